package main

import (
	"log"
	"os"

	"github.com/hejmattias/kolsync/config"
	"github.com/hejmattias/kolsync/controllers"
	"github.com/hejmattias/kolsync/routes"
	"github.com/hejmattias/kolsync/services"
)

func main() {
	config.InitDB()

	hub := services.NewNotifyHub()
	subs := services.NewSubscriptionService(config.DB)

	push, err := services.NewPushService(config.DB)
	if err != nil {
		log.Printf("syncd: push delivery disabled: %v", err)
		push = nil
	}
	assets, err := services.NewAssetService()
	if err != nil {
		log.Printf("syncd: asset storage disabled: %v", err)
		assets = nil
	}

	records := services.NewRecordService(config.DB, hub, push, subs)

	r := routes.SetupRouter(
		controllers.NewRecordController(records),
		controllers.NewSubscriptionController(subs),
		controllers.NewAssetController(assets),
		controllers.NewNotifyController(hub),
		controllers.NewDeviceController(push),
	)

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	if err := r.Run(addr); err != nil {
		log.Fatalf("syncd: server exited: %v", err)
	}
}
