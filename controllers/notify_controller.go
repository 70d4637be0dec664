package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/hejmattias/kolsync/services"
)

type NotifyController struct {
	Hub *services.NotifyHub
}

// constructor
func NewNotifyController(hub *services.NotifyHub) *NotifyController {
	return &NotifyController{Hub: hub}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true }, // tighten behind a proxy if needed
}

// GET /v1/changes/ws — the device change feed.
func (nc *NotifyController) ChangesWS(c *gin.Context) {
	deviceID := c.GetString("deviceID")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	cl := &services.WSClient{DeviceID: deviceID, Conn: conn}
	nc.Hub.Register(cl)

	// ping to keep connections alive through some proxies
	go func() {
		t := time.NewTicker(25 * time.Second)
		defer t.Stop()
		for range t.C {
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				nc.Hub.Unregister(cl)
				return
			}
		}
	}()

	// read loop ends on client close/error → unregister
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			nc.Hub.Unregister(cl)
			return
		}
	}
}
