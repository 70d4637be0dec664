package carbsync

import (
	"context"
	"encoding/json"
	"log"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MirrorGateway is the cloud-facing dependency of a Mirror. *Gateway[E]
// satisfies it; tests substitute fakes.
type MirrorGateway[E Entity] interface {
	FetchAll(ctx context.Context) ([]E, error)
	Save(ctx context.Context, e E) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteBatch(ctx context.Context, ids []uuid.UUID) error
	RefreshNeeded() <-chan struct{}
}

// SyncStatus is the UI-facing tri-state: syncing, last successful sync
// time, last error. Never a raw exception shown to the user.
type SyncStatus struct {
	Syncing   bool
	LastSync  time.Time
	LastError error
}

// Mirror is the in-memory, UI-authoritative collection for one entity
// type on one device, persisted as a single blob under a fixed key.
//
// All mutations run on one event-loop goroutine: public methods post
// closures to the loop, and gateway completions marshal back into it the
// same way, so collection reads/writes never interleave. Network and
// file I/O stay on worker goroutines.
type Mirror[E Entity] struct {
	gw       MirrorGateway[E] // nil for local-only mirrors
	cache    *CacheStore
	cacheKey string
	defaults []E

	ops  chan func()
	quit chan struct{}
	once sync.Once

	// Loop-owned state. Touched only from run().
	items         []E
	status        SyncStatus
	reloadToken   uint64
	reloading     bool
	pendingReload bool
}

// NewMirror loads the cached blob (or the defaults on first run) and, if
// a gateway is attached, kicks off a background reload.
func NewMirror[E Entity](gw MirrorGateway[E], cache *CacheStore, cacheKey string, defaults []E) *Mirror[E] {
	m := &Mirror[E]{
		gw:       gw,
		cache:    cache,
		cacheKey: cacheKey,
		defaults: defaults,
		ops:      make(chan func(), 64),
		quit:     make(chan struct{}),
	}
	go m.run()
	m.post(func() { m.loadFromStorage() })
	if gw != nil {
		m.Reload()
	}
	return m
}

func (m *Mirror[E]) run() {
	var refresh <-chan struct{}
	if m.gw != nil {
		refresh = m.gw.RefreshNeeded()
	}
	for {
		select {
		case <-m.quit:
			return
		case op := <-m.ops:
			op()
		case <-refresh:
			m.reload()
		}
	}
}

func (m *Mirror[E]) post(op func()) {
	select {
	case m.ops <- op:
	case <-m.quit:
	}
}

func (m *Mirror[E]) postWait(op func()) {
	done := make(chan struct{})
	m.post(func() {
		op()
		close(done)
	})
	select {
	case <-done:
	case <-m.quit:
	}
}

func (m *Mirror[E]) Close() {
	m.once.Do(func() { close(m.quit) })
}

// Items returns a snapshot of the collection, name-sorted.
func (m *Mirror[E]) Items() []E {
	var out []E
	m.postWait(func() {
		out = append(out, m.items...)
	})
	return out
}

func (m *Mirror[E]) Status() SyncStatus {
	var st SyncStatus
	m.postWait(func() { st = m.status })
	return st
}

// Add inserts the entity in sorted position, persists the blob, then
// saves to the cloud in the background. A failed save keeps the entity
// and records the error: silently dropping user data would be worse than
// transient divergence, and the user may retry.
func (m *Mirror[E]) Add(e E) {
	m.post(func() {
		if m.indexOf(e.EntityID()) >= 0 {
			return
		}
		m.items = append(m.items, e)
		m.sortItems()
		m.persist()
		m.saveRemote(e, "add")
	})
}

// Update replaces the entity with the same id, if present.
func (m *Mirror[E]) Update(e E) {
	m.post(func() {
		idx := m.indexOf(e.EntityID())
		if idx < 0 {
			return
		}
		m.items[idx] = e
		m.sortItems()
		m.persist()
		m.saveRemote(e, "update")
	})
}

// Delete removes the entity immediately; the cloud delete is idempotent,
// so a failure only surfaces in status.
func (m *Mirror[E]) Delete(id uuid.UUID) {
	m.post(func() {
		idx := m.indexOf(id)
		if idx < 0 {
			return
		}
		m.items = append(m.items[:idx], m.items[idx+1:]...)
		m.persist()
		if m.gw == nil {
			return
		}
		go func() {
			if err := m.gw.Delete(context.Background(), id); err != nil {
				log.Printf("Mirror[%s]: cloud delete failed for %s: %v", m.cacheKey, id, err)
				m.post(func() { m.status.LastError = err })
			}
		}()
	})
}

// DeleteAll clears the collection and batch-deletes on the server. On
// failure the mirror reloads to learn the true post-state.
func (m *Mirror[E]) DeleteAll() {
	m.post(func() {
		if len(m.items) == 0 {
			return
		}
		ids := make([]uuid.UUID, len(m.items))
		for i, e := range m.items {
			ids[i] = e.EntityID()
		}
		m.items = nil
		m.persist()
		if m.gw == nil {
			return
		}
		go func() {
			if err := m.gw.DeleteBatch(context.Background(), ids); err != nil {
				log.Printf("Mirror[%s]: batch delete failed: %v", m.cacheKey, err)
				m.post(func() {
					m.status.LastError = err
					m.reload()
				})
			}
		}()
	})
}

// Reload fetches the full list from the cloud and replaces the in-memory
// collection wholesale. Only one reload runs at a time; signals arriving
// mid-flight coalesce into at most one follow-up.
func (m *Mirror[E]) Reload() {
	m.post(m.reload)
}

// ApplySnapshot replaces the collection from a peer-session transfer,
// touching only local storage. The cloud path is bypassed entirely.
func (m *Mirror[E]) ApplySnapshot(items []E) {
	m.post(func() {
		m.items = append([]E(nil), items...)
		m.sortItems()
		m.persist()
	})
}

func (m *Mirror[E]) saveRemote(e E, op string) {
	if m.gw == nil {
		return
	}
	go func() {
		err := m.gw.Save(context.Background(), e)
		m.post(func() {
			// The entity may have been deleted while the save was in
			// flight; a stale completion must not touch it then.
			if m.indexOf(e.EntityID()) < 0 {
				return
			}
			if err != nil {
				log.Printf("Mirror[%s]: cloud save failed (%s) for %s: %v", m.cacheKey, op, e.EntityID(), err)
				m.status.LastError = err
				return
			}
			m.status.LastError = nil
		})
	}()
}

// reload runs on the loop goroutine.
func (m *Mirror[E]) reload() {
	if m.gw == nil {
		return
	}
	if m.reloading {
		m.pendingReload = true
		return
	}
	m.reloading = true
	m.reloadToken++
	token := m.reloadToken
	m.status.Syncing = true

	go func() {
		items, err := m.gw.FetchAll(context.Background())
		m.post(func() { m.finishReload(token, items, err) })
	}()
}

func (m *Mirror[E]) finishReload(token uint64, items []E, err error) {
	// A completion whose token is not the latest issued was superseded;
	// its result is discarded.
	if token != m.reloadToken {
		return
	}
	m.reloading = false
	m.status.Syncing = false

	if err != nil {
		// Stale-but-available beats empty: keep the current collection.
		log.Printf("Mirror[%s]: reload failed: %v", m.cacheKey, err)
		m.status.LastError = err
	} else {
		m.status.LastError = nil
		m.status.LastSync = time.Now()
		sorted := append([]E(nil), items...)
		sortEntities(sorted)
		if !reflect.DeepEqual(m.items, sorted) {
			m.items = sorted
			m.persist()
		}
	}

	if m.pendingReload {
		m.pendingReload = false
		m.reload()
	}
}

func (m *Mirror[E]) loadFromStorage() {
	blob, ok, err := m.cache.Get(m.cacheKey)
	if err != nil {
		log.Printf("Mirror[%s]: failed to read cache: %v", m.cacheKey, err)
	}
	if !ok || err != nil {
		// First run: seed with the built-in defaults.
		m.items = append([]E(nil), m.defaults...)
		m.sortItems()
		return
	}
	var list []E
	if err := json.Unmarshal(blob, &list); err != nil {
		log.Printf("Mirror[%s]: failed to decode cache, falling back to defaults: %v", m.cacheKey, err)
		m.items = append([]E(nil), m.defaults...)
	} else {
		m.items = list
	}
	m.sortItems()
}

func (m *Mirror[E]) persist() {
	blob, err := json.Marshal(m.items)
	if err != nil {
		log.Printf("Mirror[%s]: failed to encode cache: %v", m.cacheKey, err)
		return
	}
	if err := m.cache.Put(m.cacheKey, blob); err != nil {
		log.Printf("Mirror[%s]: failed to write cache: %v", m.cacheKey, err)
	}
}

func (m *Mirror[E]) indexOf(id uuid.UUID) int {
	for i, e := range m.items {
		if e.EntityID() == id {
			return i
		}
	}
	return -1
}

func (m *Mirror[E]) sortItems() {
	sortEntities(m.items)
}

func sortEntities[E Entity](items []E) {
	sort.SliceStable(items, func(i, j int) bool {
		return strings.ToLower(items[i].EntityName()) < strings.ToLower(items[j].EntityName())
	})
}
