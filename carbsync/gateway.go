package carbsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hejmattias/kolsync/models"
)

const fetchPageSize = 100

// Client is the connection to one cloud record store, shared by the
// gateways of every record type.
type Client struct {
	BaseURL  string
	Token    string
	DeviceID string
	HTTP     *http.Client
}

func NewClient(baseURL, token, deviceID string) *Client {
	return &Client{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		Token:    token,
		DeviceID: deviceID,
		HTTP:     &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, op, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("X-Device-ID", c.DeviceID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	return resp, nil
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, in, out any) (int, error) {
	var body io.Reader
	contentType := ""
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return 0, &TransportError{Op: op, Err: err}
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}
	resp, err := c.do(ctx, op, method, path, body, contentType)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 && out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, &TransportError{Op: op, Err: err}
		}
	}
	return resp.StatusCode, nil
}

func (c *Client) fetchPage(ctx context.Context, recordType, cursor string, limit int) (*models.RecordPage, error) {
	q := url.Values{}
	q.Set("type", recordType)
	q.Set("limit", fmt.Sprintf("%d", limit))
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	var page models.RecordPage
	status, err := c.doJSON(ctx, "fetch records", http.MethodGet, "/v1/records?"+q.Encode(), nil, &page)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &TransportError{Op: "fetch records", Err: fmt.Errorf("unexpected status %d", status)}
	}
	return &page, nil
}

func (c *Client) saveRecord(ctx context.Context, rec *models.Record) (string, error) {
	var result models.SaveResult
	status, err := c.doJSON(ctx, "save record", http.MethodPut, "/v1/records", rec, &result)
	if err != nil {
		return "", err
	}
	switch {
	case status == http.StatusConflict:
		return "", fmt.Errorf("save record %s: %w", rec.ID, ErrConflict)
	case status < 200 || status >= 300:
		return "", &TransportError{Op: "save record", Err: fmt.Errorf("unexpected status %d", status)}
	}
	return result.ChangeTag, nil
}

func (c *Client) deleteRecord(ctx context.Context, recordType, id string) error {
	status, err := c.doJSON(ctx, "delete record", http.MethodDelete,
		fmt.Sprintf("/v1/records/%s/%s", recordType, id), nil, nil)
	if err != nil {
		return err
	}
	// A record already gone on the server is a successful delete.
	if status == http.StatusNotFound {
		return nil
	}
	if status < 200 || status >= 300 {
		return &TransportError{Op: "delete record", Err: fmt.Errorf("unexpected status %d", status)}
	}
	return nil
}

func (c *Client) deleteBatch(ctx context.Context, recordType string, ids []string) error {
	req := models.BatchDeleteRequest{Type: recordType, IDs: ids}
	status, err := c.doJSON(ctx, "batch delete", http.MethodPost, "/v1/records/delete", req, nil)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return &TransportError{Op: "batch delete", Err: fmt.Errorf("unexpected status %d", status)}
	}
	return nil
}

func (c *Client) getSubscription(ctx context.Context, id string) (bool, error) {
	status, err := c.doJSON(ctx, "fetch subscription", http.MethodGet, "/v1/subscriptions/"+id, nil, nil)
	if err != nil {
		return false, err
	}
	switch status {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, &TransportError{Op: "fetch subscription", Err: fmt.Errorf("unexpected status %d", status)}
	}
}

func (c *Client) putSubscription(ctx context.Context, sub models.SubscriptionInfo) error {
	status, err := c.doJSON(ctx, "save subscription", http.MethodPut, "/v1/subscriptions/"+sub.ID, sub, nil)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return &TransportError{Op: "save subscription", Err: fmt.Errorf("unexpected status %d", status)}
	}
	return nil
}

func (c *Client) uploadAsset(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", &TransportError{Op: "upload asset", Err: err}
	}
	resp, err := c.do(ctx, "upload asset", http.MethodPost, "/v1/assets", bytes.NewReader(data), "application/octet-stream")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &TransportError{Op: "upload asset", Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
	var out struct {
		AssetKey string `json:"assetKey"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &TransportError{Op: "upload asset", Err: err}
	}
	return out.AssetKey, nil
}

func (c *Client) downloadAsset(ctx context.Context, key string) ([]byte, error) {
	resp, err := c.do(ctx, "download asset", http.MethodGet, "/v1/assets/"+key, nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &TransportError{Op: "download asset", Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
	return io.ReadAll(resp.Body)
}

// Gateway owns all cloud store traffic for one record type, plus the
// subscription for that type and the local needs-refresh signal.
type Gateway[E Entity] struct {
	client *Client
	codec  Codec[E]
	subID  string

	// Single-slot signal: bursts of notifications collapse into one
	// pending refresh for the mirror to pick up.
	refresh chan struct{}

	mu   sync.Mutex
	tags map[string]string // record id -> last seen change tag
}

func NewGateway[E Entity](client *Client, codec Codec[E], subscriptionID string) *Gateway[E] {
	g := &Gateway[E]{
		client:  client,
		codec:   codec,
		subID:   subscriptionID,
		refresh: make(chan struct{}, 1),
		tags:    make(map[string]string),
	}
	// Push setup failing must not break the gateway: sync still works
	// via startup/manual reload.
	g.EnsureSubscription(context.Background())
	return g
}

func (g *Gateway[E]) SubscriptionID() string { return g.subID }

// FetchAll queries every record of this type, name-ascending, following
// pagination. Individual records that fail to decode are skipped with a
// log line; only a transport failure fails the whole fetch.
func (g *Gateway[E]) FetchAll(ctx context.Context) ([]E, error) {
	var out []E
	newTags := make(map[string]string)
	cursor := ""

	for {
		page, err := g.client.fetchPage(ctx, g.codec.RecordType(), cursor, fetchPageSize)
		if err != nil {
			return nil, err
		}
		for i := range page.Records {
			rec := &page.Records[i]
			if key := rec.AssetKey(); key != "" {
				data, err := g.client.downloadAsset(ctx, key)
				if err != nil {
					// Image loss degrades gracefully.
					log.Printf("Gateway[%s]: failed to download asset for %s: %v", g.codec.RecordType(), rec.ID, err)
				} else {
					rec.AssetData = data
				}
			}
			entity, err := g.codec.Decode(rec)
			if err != nil {
				log.Printf("Gateway[%s]: skipping record %s: %v", g.codec.RecordType(), rec.ID, err)
				continue
			}
			newTags[rec.ID] = rec.ChangeTag
			out = append(out, entity)
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	g.mu.Lock()
	g.tags = newTags
	g.mu.Unlock()
	return out, nil
}

// Save upserts one record. The outgoing record carries the entity's full
// field set; the store overwrites only the keys present, so two devices
// updating disjoint fields do not clobber each other. A baseline change
// tag from the last fetch or save is attached when known; a mismatch on
// the server surfaces as ErrConflict.
func (g *Gateway[E]) Save(ctx context.Context, e E) error {
	rec, err := g.codec.Encode(e)
	if err != nil {
		return err
	}

	if rec.AssetFile != "" {
		defer os.Remove(rec.AssetFile)
		key, err := g.client.uploadAsset(ctx, rec.AssetFile)
		if err != nil {
			return err
		}
		rec.SetAssetKey(key)
	}

	g.mu.Lock()
	rec.ChangeTag = g.tags[rec.ID]
	g.mu.Unlock()

	tag, err := g.client.saveRecord(ctx, rec)
	if err != nil {
		return err
	}
	g.mu.Lock()
	g.tags[rec.ID] = tag
	g.mu.Unlock()
	return nil
}

// Delete removes a record by id. Deleting an id unknown to the server is
// success, not an error.
func (g *Gateway[E]) Delete(ctx context.Context, id uuid.UUID) error {
	if err := g.client.deleteRecord(ctx, g.codec.RecordType(), id.String()); err != nil {
		return err
	}
	g.mu.Lock()
	delete(g.tags, id.String())
	g.mu.Unlock()
	return nil
}

// DeleteBatch removes many records in one request. Partial server-side
// failure surfaces as an error; the caller reloads to learn the true
// post-state.
func (g *Gateway[E]) DeleteBatch(ctx context.Context, ids []uuid.UUID) error {
	strIDs := make([]string, len(ids))
	for i, id := range ids {
		strIDs[i] = id.String()
	}
	if err := g.client.deleteBatch(ctx, g.codec.RecordType(), strIDs); err != nil {
		return err
	}
	g.mu.Lock()
	for _, id := range strIDs {
		delete(g.tags, id)
	}
	g.mu.Unlock()
	return nil
}

// EnsureSubscription checks for the fixed-id subscription and creates it
// with silent delivery when absent. Idempotent; failures are logged and
// never fatal.
func (g *Gateway[E]) EnsureSubscription(ctx context.Context) {
	exists, err := g.client.getSubscription(ctx, g.subID)
	if err != nil {
		log.Printf("Gateway[%s]: failed to fetch subscription %q: %v", g.codec.RecordType(), g.subID, err)
		return
	}
	if exists {
		return
	}
	sub := models.SubscriptionInfo{
		ID:         g.subID,
		RecordType: g.codec.RecordType(),
		Silent:     true,
	}
	if err := g.client.putSubscription(ctx, sub); err != nil {
		log.Printf("Gateway[%s]: failed to save subscription %q: %v", g.codec.RecordType(), g.subID, err)
		return
	}
	log.Printf("Gateway[%s]: subscribed to changes (%s)", g.codec.RecordType(), g.subID)
}

// SignalRefreshNeeded re-emits the needs-refresh event. Safe from any
// goroutine, never blocks, and performs no I/O itself.
func (g *Gateway[E]) SignalRefreshNeeded() {
	select {
	case g.refresh <- struct{}{}:
	default:
	}
}

// RefreshNeeded is the channel mirrors listen on to trigger a reload.
func (g *Gateway[E]) RefreshNeeded() <-chan struct{} { return g.refresh }
