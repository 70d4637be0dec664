package models

import "time"

// CloudRecord is the server-side row backing one Record. Fields is the
// flat field set as JSON; Name is a lower-cased copy of the name field
// kept for sorted, paginated queries.
type CloudRecord struct {
	ID         uint   `gorm:"primaryKey"`
	RecordType string `gorm:"size:64;uniqueIndex:idx_records_type_id,priority:1;not null"`
	RecordID   string `gorm:"size:64;uniqueIndex:idx_records_type_id,priority:2;not null"`
	Name       string `gorm:"size:255;index"`
	Fields     string `gorm:"type:jsonb;not null"`
	ChangeTag  string `gorm:"size:64;not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Subscription is a standing server-side query; exactly one exists per
// record type, under a fixed id.
type Subscription struct {
	SubscriptionID string `gorm:"primaryKey;size:128"`
	RecordType     string `gorm:"size:64;index;not null"`
	Silent         bool   `gorm:"default:true"`
	CreatedAt      time.Time
}

// UserDevice is a registered push endpoint for one device, used to reach
// devices that have no change-feed socket open.
type UserDevice struct {
	ID          uint   `gorm:"primaryKey"`
	DeviceID    string `gorm:"size:64;index"`
	Platform    string `gorm:"size:16"` // "ios" | "watchos" | "android"
	TokenHash   string `gorm:"size:64"`
	EndpointARN string `gorm:"size:256"`
	Enabled     bool   `gorm:"default:true"`
	UpdatedAt   time.Time
	CreatedAt   time.Time
}
