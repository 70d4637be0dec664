package carbsync

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Cache blob keys. Each key is owned by exactly one mirror on a device;
// the phone and the watch cache their food lists under different keys.
const (
	FoodListKeyPhone = "userFoodList_phone"
	FoodListKeyWatch = "userFoodList_watch"
	PlateItemsKey    = "plateItems"
	ContainerListKey = "containerList"
)

// CacheStore is the device-local durable storage: one serialized blob per
// fixed key, backed by sqlite.
type CacheStore struct {
	db *sql.DB
}

func OpenCacheStore(path string) (*CacheStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	schema := `
    CREATE TABLE IF NOT EXISTS cache_blobs (
        key        TEXT PRIMARY KEY,
        value      BLOB NOT NULL,
        updated_at DATETIME NOT NULL
    );
    `
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize cache schema: %w", err)
	}
	return &CacheStore{db: db}, nil
}

func (s *CacheStore) Close() error {
	return s.db.Close()
}

// Get returns the blob stored under key, reporting whether one exists.
func (s *CacheStore) Get(key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRow(`SELECT value FROM cache_blobs WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache blob %q: %w", key, err)
	}
	return value, true, nil
}

func (s *CacheStore) Put(key string, value []byte) error {
	_, err := s.db.Exec(`
        INSERT INTO cache_blobs (key, value, updated_at) VALUES (?, ?, ?)
        ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to write cache blob %q: %w", key, err)
	}
	return nil
}

func (s *CacheStore) Delete(key string) error {
	if _, err := s.db.Exec(`DELETE FROM cache_blobs WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete cache blob %q: %w", key, err)
	}
	return nil
}
