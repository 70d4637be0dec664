package services

import (
	"errors"

	"gorm.io/gorm"

	"github.com/hejmattias/kolsync/models"
)

// SubscriptionService manages the standing change subscriptions: one
// fixed-id, all-records-of-type query per record type.
type SubscriptionService struct {
	db *gorm.DB
}

func NewSubscriptionService(db *gorm.DB) *SubscriptionService {
	return &SubscriptionService{db: db}
}

// Get returns the subscription with the given id, or nil when absent.
func (s *SubscriptionService) Get(id string) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.db.Where("subscription_id = ?", id).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// Ensure creates the subscription if it does not exist yet. Saving an
// already-registered id is a no-op, so device setup stays idempotent.
func (s *SubscriptionService) Ensure(info models.SubscriptionInfo) error {
	existing, err := s.Get(info.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	return s.db.Create(&models.Subscription{
		SubscriptionID: info.ID,
		RecordType:     info.RecordType,
		Silent:         info.Silent,
	}).Error
}

// ForRecordType returns the subscription covering a record type, or nil
// when no device has subscribed yet.
func (s *SubscriptionService) ForRecordType(recordType string) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.db.Where("record_type = ?", recordType).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}
