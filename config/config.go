package config

import (
	"fmt"
	"log"
	"os"

	"github.com/hejmattias/kolsync/models"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

// InitDB connects the record store server to postgres and migrates its
// tables.
func InitDB() {
	if err := godotenv.Load(); err != nil {
		log.Println("config: no .env file found, relying on environment")
	}

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
	)

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	err = DB.AutoMigrate(
		&models.CloudRecord{},
		&models.Subscription{},
		&models.UserDevice{},
	)
	if err != nil {
		log.Fatalf("AutoMigrate failed: %v", err)
	}
}

// AgentConfig is the device-side configuration: which device this is,
// where the cloud store lives, and where the companion device listens.
type AgentConfig struct {
	ServerURL      string
	DeviceID       string
	Role           string // "phone" | "watch"
	CachePath      string
	PeerListenAddr string
	PeerURL        string
	ImportInbox    string
}

func LoadAgent() AgentConfig {
	if err := godotenv.Load(); err != nil {
		log.Println("config: no .env file found, relying on environment")
	}

	cfg := AgentConfig{
		ServerURL:      getenv("SYNC_SERVER_URL", "http://localhost:8080"),
		DeviceID:       os.Getenv("DEVICE_ID"),
		Role:           getenv("DEVICE_ROLE", "phone"),
		CachePath:      getenv("CACHE_PATH", "kolsync-cache.db"),
		PeerListenAddr: os.Getenv("PEER_LISTEN_ADDR"),
		PeerURL:        os.Getenv("PEER_URL"),
		ImportInbox:    getenv("IMPORT_INBOX", "import-inbox.csv"),
	}
	if cfg.DeviceID == "" {
		log.Fatalf("config: DEVICE_ID is required")
	}
	if cfg.Role != "phone" && cfg.Role != "watch" {
		log.Fatalf("config: DEVICE_ROLE must be phone or watch, got %q", cfg.Role)
	}
	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
