package carbsync

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hejmattias/kolsync/models"
)

type PeerEventKind int

const (
	PeerActivated PeerEventKind = iota
	PeerDeactivated
	PeerSnapshotReceived
	PeerFileReceived
)

// PeerEvent is one session event, delivered on the mailbox channel in
// receipt order, one at a time.
type PeerEvent struct {
	Kind     PeerEventKind
	Snapshot *models.FoodSnapshot
	FilePath string
}

type peerMessage struct {
	Kind     string               `json:"kind"` // "snapshot" | "file"
	Snapshot *models.FoodSnapshot `json:"snapshot,omitempty"`
	FileName string               `json:"fileName,omitempty"`
	FileData []byte               `json:"fileData,omitempty"`
}

// PeerSession is the direct phone <-> watch channel. Sends are
// fire-and-forget: when the peer is unreachable the send is not
// attempted and the status string says so; there is no retry queue.
// A dropped session reactivates on its own.
type PeerSession struct {
	inboxPath string
	events    chan PeerEvent

	mu     sync.Mutex
	conn   *websocket.Conn
	status string

	quit chan struct{}
	once sync.Once
}

// NewPeerSession creates an inactive session. Received files land at
// inboxPath, overwriting any earlier transfer of the same purpose.
func NewPeerSession(inboxPath string) *PeerSession {
	return &PeerSession{
		inboxPath: inboxPath,
		events:    make(chan PeerEvent, 16),
		status:    "inactive",
		quit:      make(chan struct{}),
	}
}

// Events is the session mailbox. The consumer drains it; events arrive
// in order.
func (s *PeerSession) Events() <-chan PeerEvent { return s.events }

func (s *PeerSession) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *PeerSession) setStatus(status string) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

// Attach adopts an accepted connection (the listening side). Any prior
// connection is dropped in favor of the new one.
func (s *PeerSession) Attach(conn *websocket.Conn) {
	s.mu.Lock()
	old := s.conn
	s.conn = conn
	s.mu.Unlock()
	if old != nil {
		old.Close()
	}
	s.setStatus("active")
	s.emit(PeerEvent{Kind: PeerActivated})

	go func() {
		s.readLoop(conn)
		s.dropConn(conn)
		s.emit(PeerEvent{Kind: PeerDeactivated})
		s.setStatus("inactive, waiting for peer")
	}()
}

// Dial connects to the companion and keeps the session alive, redialing
// whenever it drops so transfers resume without user action.
func (s *PeerSession) Dial(url string) {
	go func() {
		for {
			select {
			case <-s.quit:
				return
			default:
			}

			conn, _, err := websocket.DefaultDialer.Dial(url, nil)
			if err != nil {
				s.setStatus("unavailable")
				select {
				case <-s.quit:
					return
				case <-time.After(5 * time.Second):
				}
				continue
			}

			s.mu.Lock()
			s.conn = conn
			s.mu.Unlock()
			s.setStatus("active")
			s.emit(PeerEvent{Kind: PeerActivated})

			s.readLoop(conn)
			s.dropConn(conn)
			s.emit(PeerEvent{Kind: PeerDeactivated})
			s.setStatus("reactivating")
		}
	}()
}

func (s *PeerSession) readLoop(conn *websocket.Conn) {
	for {
		var msg peerMessage
		if err := conn.ReadJSON(&msg); err != nil {
			conn.Close()
			return
		}
		switch msg.Kind {
		case "snapshot":
			if msg.Snapshot == nil {
				log.Printf("PeerSession: snapshot message without payload, ignoring")
				continue
			}
			s.emit(PeerEvent{Kind: PeerSnapshotReceived, Snapshot: msg.Snapshot})
		case "file":
			if err := os.MkdirAll(filepath.Dir(s.inboxPath), 0o755); err != nil {
				log.Printf("PeerSession: failed to create inbox dir: %v", err)
				continue
			}
			if err := os.WriteFile(s.inboxPath, msg.FileData, 0o644); err != nil {
				log.Printf("PeerSession: failed to store received file %q: %v", msg.FileName, err)
				continue
			}
			log.Printf("PeerSession: received file %q (%d bytes)", msg.FileName, len(msg.FileData))
			s.emit(PeerEvent{Kind: PeerFileReceived, FilePath: s.inboxPath})
		default:
			log.Printf("PeerSession: unknown message kind %q, ignoring", msg.Kind)
		}
	}
}

func (s *PeerSession) dropConn(conn *websocket.Conn) {
	s.mu.Lock()
	if s.conn == conn {
		s.conn = nil
	}
	s.mu.Unlock()
}

func (s *PeerSession) emit(ev PeerEvent) {
	select {
	case s.events <- ev:
	case <-s.quit:
	}
}

// SendFoodList pushes a whole-list snapshot to the peer.
func (s *PeerSession) SendFoodList(items []models.FoodItem) error {
	snapshot := &models.FoodSnapshot{FoodList: make([]models.SnapshotItem, 0, len(items))}
	for _, f := range items {
		snapshot.FoodList = append(snapshot.FoodList, models.SnapshotItem{
			ID:           f.ID.String(),
			Name:         f.Name,
			CarbsPer100g: f.CarbsPer100g,
			GramsPerDl:   f.GramsPerDl,
			StyckPerGram: f.StyckPerGram,
		})
	}
	err := s.write(peerMessage{Kind: "snapshot", Snapshot: snapshot})
	if err != nil {
		return err
	}
	s.setStatus(fmt.Sprintf("sent %d items at %s", len(items), time.Now().Format("15:04:05")))
	return nil
}

// SendFile transmits a raw file (e.g. a CSV export) to the peer.
func (s *PeerSession) SendFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		s.setStatus("send failed: " + err.Error())
		return fmt.Errorf("read file for peer transfer: %w", err)
	}
	if err := s.write(peerMessage{Kind: "file", FileName: filepath.Base(path), FileData: data}); err != nil {
		return err
	}
	s.setStatus(fmt.Sprintf("sent file %s at %s", filepath.Base(path), time.Now().Format("15:04:05")))
	return nil
}

func (s *PeerSession) write(msg peerMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		s.status = "unavailable"
		return ErrPeerUnavailable
	}
	if err := s.conn.WriteJSON(msg); err != nil {
		s.status = "send failed: " + err.Error()
		return fmt.Errorf("peer send: %w", err)
	}
	return nil
}

func (s *PeerSession) Close() {
	s.once.Do(func() {
		close(s.quit)
		s.mu.Lock()
		if s.conn != nil {
			s.conn.Close()
			s.conn = nil
		}
		s.mu.Unlock()
	})
}
