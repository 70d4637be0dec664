package carbsync

import (
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hejmattias/kolsync/models"
)

// Listener keeps a change-feed socket open to the cloud store and feeds
// every payload to the dispatcher as a background delivery. Connection
// drops are retried with a flat backoff; a closed listener stays closed.
type Listener struct {
	url        string
	token      string
	dispatcher *Dispatcher

	quit chan struct{}
	once sync.Once
}

func NewListener(serverURL, token string, d *Dispatcher) *Listener {
	wsURL := strings.Replace(serverURL, "http", "ws", 1) + "/v1/changes/ws"
	return &Listener{
		url:        wsURL,
		token:      token,
		dispatcher: d,
		quit:       make(chan struct{}),
	}
}

func (l *Listener) Run() {
	for {
		select {
		case <-l.quit:
			return
		default:
		}

		header := http.Header{}
		header.Set("Authorization", "Bearer "+l.token)
		conn, _, err := websocket.DefaultDialer.Dial(l.url, header)
		if err != nil {
			log.Printf("Listener: connect failed: %v", err)
			select {
			case <-l.quit:
				return
			case <-time.After(5 * time.Second):
			}
			continue
		}
		log.Printf("Listener: change feed connected")

		l.readLoop(conn)
		conn.Close()
	}
}

func (l *Listener) readLoop(conn *websocket.Conn) {
	for {
		var p models.ChangePayload
		if err := conn.ReadJSON(&p); err != nil {
			log.Printf("Listener: change feed closed: %v", err)
			return
		}
		l.dispatcher.HandlePush(p, false)
	}
}

func (l *Listener) Close() {
	l.once.Do(func() { close(l.quit) })
}
