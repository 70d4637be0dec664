package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/hejmattias/kolsync/carbsync"
	"github.com/hejmattias/kolsync/config"
	"github.com/hejmattias/kolsync/models"
	"github.com/hejmattias/kolsync/utils"
)

// The agent is one device: it owns the local mirrors, the change-feed
// listener and the peer session, and wires them together the way the
// phone or watch app would.
func main() {
	cfg := config.LoadAgent()

	token, err := utils.GenerateDeviceToken(cfg.DeviceID)
	if err != nil {
		log.Fatalf("agent: failed to mint device token: %v", err)
	}

	cache, err := carbsync.OpenCacheStore(cfg.CachePath)
	if err != nil {
		log.Fatalf("agent: failed to open cache: %v", err)
	}
	defer cache.Close()

	client := carbsync.NewClient(cfg.ServerURL, token, cfg.DeviceID)
	foodGW := carbsync.NewGateway[models.FoodItem](client, carbsync.FoodItemCodec{}, models.FoodSubscriptionID)
	containerGW := carbsync.NewGateway[models.Container](client, carbsync.ContainerCodec{}, models.ContainerSubscriptionID)

	foodKey := carbsync.FoodListKeyPhone
	if cfg.Role == "watch" {
		foodKey = carbsync.FoodListKeyWatch
	}
	foods := carbsync.NewMirror[models.FoodItem](foodGW, cache, foodKey, carbsync.DefaultFoodList())
	containers := carbsync.NewMirror[models.Container](containerGW, cache, carbsync.ContainerListKey, nil)
	plate := carbsync.NewPlate(cache)
	defer foods.Close()
	defer containers.Close()

	dispatcher := carbsync.NewDispatcher()
	dispatcher.Register(models.FoodSubscriptionID, foodGW)
	dispatcher.Register(models.ContainerSubscriptionID, containerGW)

	listener := carbsync.NewListener(cfg.ServerURL, token, dispatcher)
	go listener.Run()
	defer listener.Close()

	peer := carbsync.NewPeerSession(cfg.ImportInbox)
	defer peer.Close()
	if cfg.PeerURL != "" {
		peer.Dial(cfg.PeerURL)
	}
	if cfg.PeerListenAddr != "" {
		go servePeer(cfg.PeerListenAddr, peer)
	}
	go consumePeerEvents(peer, foods)

	log.Printf("agent: %s (%s) up, plate holds %.1fg carbs", cfg.DeviceID, cfg.Role, plate.TotalCarbs())

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Printf("agent: shutting down")
}

var peerUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// servePeer accepts the companion device's session.
func servePeer(addr string, peer *carbsync.PeerSession) {
	mux := http.NewServeMux()
	mux.HandleFunc("/peer", func(w http.ResponseWriter, r *http.Request) {
		conn, err := peerUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		peer.Attach(conn)
	})
	log.Printf("agent: peer session listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Printf("agent: peer listener exited: %v", err)
	}
}

// consumePeerEvents drains the session mailbox: received snapshots
// replace the food list's local storage, received files go through the
// CSV importer row by row.
func consumePeerEvents(peer *carbsync.PeerSession, foods *carbsync.Mirror[models.FoodItem]) {
	for ev := range peer.Events() {
		switch ev.Kind {
		case carbsync.PeerActivated:
			log.Printf("agent: peer session active")
		case carbsync.PeerDeactivated:
			log.Printf("agent: peer session dropped, reactivating")
		case carbsync.PeerSnapshotReceived:
			items := make([]models.FoodItem, 0, len(ev.Snapshot.FoodList))
			for _, s := range ev.Snapshot.FoodList {
				id, err := uuid.Parse(s.ID)
				if err != nil {
					log.Printf("agent: skipping snapshot item %q: bad id", s.Name)
					continue
				}
				items = append(items, models.FoodItem{
					ID:           id,
					Name:         s.Name,
					CarbsPer100g: s.CarbsPer100g,
					GramsPerDl:   s.GramsPerDl,
					StyckPerGram: s.StyckPerGram,
				})
			}
			foods.ApplySnapshot(items)
			log.Printf("agent: applied peer snapshot of %d items", len(items))
		case carbsync.PeerFileReceived:
			added, skipped, err := carbsync.ImportCSV(ev.FilePath, foods)
			if err != nil {
				log.Printf("agent: peer file import failed: %v", err)
				continue
			}
			log.Printf("agent: imported %d items from peer file (%d skipped)", added, skipped)
		}
	}
}
