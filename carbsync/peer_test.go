package carbsync

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hejmattias/kolsync/models"
)

func mustUUID(t *testing.T, s string) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(s)
	require.NoError(t, err)
	return id
}

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// peerTestServer is the companion end of the session: it accepts one
// websocket and exposes it to the test.
func peerTestServer(t *testing.T) (url string, conns <-chan *websocket.Conn) {
	t.Helper()
	ch := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ch <- conn
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http"), ch
}

func waitEvent(t *testing.T, s *PeerSession, want PeerEventKind) PeerEvent {
	t.Helper()
	for {
		select {
		case ev := <-s.Events():
			if ev.Kind == want {
				return ev
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for peer event %d", want)
		}
	}
}

func TestPeerSessionReceivesSnapshot(t *testing.T) {
	url, conns := peerTestServer(t)
	s := NewPeerSession(filepath.Join(t.TempDir(), "inbox.csv"))
	defer s.Close()

	s.Dial(url)
	waitEvent(t, s, PeerActivated)
	assert.Equal(t, "active", s.Status())
	remote := <-conns

	msg := peerMessage{
		Kind: "snapshot",
		Snapshot: &models.FoodSnapshot{FoodList: []models.SnapshotItem{
			{ID: "0b9fa5a8-54a2-4f3e-9893-a46d54a0f2b5", Name: "Äpple", CarbsPer100g: ptr(11.4)},
		}},
	}
	require.NoError(t, remote.WriteJSON(msg))

	ev := waitEvent(t, s, PeerSnapshotReceived)
	require.NotNil(t, ev.Snapshot)
	require.Len(t, ev.Snapshot.FoodList, 1)
	assert.Equal(t, "Äpple", ev.Snapshot.FoodList[0].Name)
}

func TestPeerSessionStoresReceivedFile(t *testing.T) {
	url, conns := peerTestServer(t)
	inbox := filepath.Join(t.TempDir(), "transfers", "inbox.csv")
	s := NewPeerSession(inbox)
	defer s.Close()

	s.Dial(url)
	waitEvent(t, s, PeerActivated)
	remote := <-conns

	require.NoError(t, remote.WriteJSON(peerMessage{
		Kind:     "file",
		FileName: "foodlist.csv",
		FileData: []byte("Äpple;11,4\n"),
	}))
	ev := waitEvent(t, s, PeerFileReceived)
	assert.Equal(t, inbox, ev.FilePath)

	data, err := os.ReadFile(inbox)
	require.NoError(t, err)
	assert.Equal(t, "Äpple;11,4\n", string(data))

	// A later transfer overwrites the same inbox slot.
	require.NoError(t, remote.WriteJSON(peerMessage{
		Kind:     "file",
		FileName: "foodlist.csv",
		FileData: []byte("Banan;22,8\n"),
	}))
	waitEvent(t, s, PeerFileReceived)
	data, err = os.ReadFile(inbox)
	require.NoError(t, err)
	assert.Equal(t, "Banan;22,8\n", string(data))
}

func TestPeerSessionSendFoodList(t *testing.T) {
	url, conns := peerTestServer(t)
	s := NewPeerSession(filepath.Join(t.TempDir(), "inbox.csv"))
	defer s.Close()

	s.Dial(url)
	waitEvent(t, s, PeerActivated)
	remote := <-conns

	items := []models.FoodItem{
		{ID: mustUUID(t, "0b9fa5a8-54a2-4f3e-9893-a46d54a0f2b5"), Name: "Äpple", CarbsPer100g: ptr(11.4), Grams: 150},
	}
	require.NoError(t, s.SendFoodList(items))
	assert.Contains(t, s.Status(), "sent 1 items")

	var msg peerMessage
	require.NoError(t, remote.ReadJSON(&msg))
	assert.Equal(t, "snapshot", msg.Kind)
	require.NotNil(t, msg.Snapshot)
	require.Len(t, msg.Snapshot.FoodList, 1)
	got := msg.Snapshot.FoodList[0]
	assert.Equal(t, "0b9fa5a8-54a2-4f3e-9893-a46d54a0f2b5", got.ID)
	assert.Equal(t, 11.4, *got.CarbsPer100g)
}

func TestPeerSessionSendWithoutPeer(t *testing.T) {
	s := NewPeerSession(filepath.Join(t.TempDir(), "inbox.csv"))
	defer s.Close()

	err := s.SendFoodList([]models.FoodItem{{Name: "Äpple"}})
	assert.ErrorIs(t, err, ErrPeerUnavailable)
	assert.Equal(t, "unavailable", s.Status())
}

func TestPeerSessionDeactivatesOnDrop(t *testing.T) {
	url, conns := peerTestServer(t)
	s := NewPeerSession(filepath.Join(t.TempDir(), "inbox.csv"))
	defer s.Close()

	s.Dial(url)
	waitEvent(t, s, PeerActivated)
	remote := <-conns

	remote.Close()
	waitEvent(t, s, PeerDeactivated)
}
