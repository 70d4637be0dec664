package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hejmattias/kolsync/models"
)

// ErrConflict is returned when a save carries a baseline change tag that
// no longer matches the server copy. The client reloads and retries; the
// server never merges conflicting writes.
var ErrConflict = errors.New("record changed on server since baseline")

const (
	defaultPageSize = 100
	maxPageSize     = 500
)

// RecordService owns the record table: changed-keys-only upserts with
// change-tag conflict detection, sorted paginated queries, idempotent
// deletes, and change fan-out to the hub and the push bridge.
type RecordService struct {
	db   *gorm.DB
	hub  *NotifyHub
	push *PushService // nil when SNS is not configured
	subs *SubscriptionService
}

func NewRecordService(db *gorm.DB, hub *NotifyHub, push *PushService, subs *SubscriptionService) *RecordService {
	return &RecordService{db: db, hub: hub, push: push, subs: subs}
}

// Query returns one page of records of the given type, name ascending.
// The cursor is the offset of the next page, opaque to clients.
func (s *RecordService) Query(recordType, cursor string, limit int) (*models.RecordPage, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset := 0
	if cursor != "" {
		var err error
		offset, err = strconv.Atoi(cursor)
		if err != nil || offset < 0 {
			return nil, fmt.Errorf("invalid cursor %q", cursor)
		}
	}

	var rows []models.CloudRecord
	err := s.db.Where("record_type = ?", recordType).
		Order("name ASC, record_id ASC").
		Offset(offset).Limit(limit + 1).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	page := &models.RecordPage{Records: make([]models.Record, 0, len(rows))}
	if len(rows) > limit {
		rows = rows[:limit]
		page.NextCursor = strconv.Itoa(offset + limit)
	}
	for _, row := range rows {
		fields := map[string]any{}
		if err := json.Unmarshal([]byte(row.Fields), &fields); err != nil {
			log.Printf("RecordService: corrupt fields for %s/%s: %v", row.RecordType, row.RecordID, err)
		}
		page.Records = append(page.Records, models.Record{
			Type:      row.RecordType,
			ID:        row.RecordID,
			ChangeTag: row.ChangeTag,
			Fields:    fields,
		})
	}
	return page, nil
}

// Save upserts one record. Only the keys present in the incoming field
// set are written; absent keys keep their server-side values, and an
// explicit null removes a key. A non-empty baseline change tag that no
// longer matches yields ErrConflict.
func (s *RecordService) Save(rec *models.Record, originDevice string) (string, error) {
	if rec.Type == "" || rec.ID == "" {
		return "", fmt.Errorf("record type and id are required")
	}

	newTag := uuid.NewString()
	operation := "update"

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var existing models.CloudRecord
		err := tx.Where("record_type = ? AND record_id = ?", rec.Type, rec.ID).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			operation = "create"
			merged := MergeFields(nil, rec.Fields)
			blob, err := json.Marshal(merged)
			if err != nil {
				return err
			}
			return tx.Create(&models.CloudRecord{
				RecordType: rec.Type,
				RecordID:   rec.ID,
				Name:       sortName(merged),
				Fields:     string(blob),
				ChangeTag:  newTag,
			}).Error
		case err != nil:
			return err
		}

		if rec.ChangeTag != "" && rec.ChangeTag != existing.ChangeTag {
			return ErrConflict
		}

		current := map[string]any{}
		if err := json.Unmarshal([]byte(existing.Fields), &current); err != nil {
			log.Printf("RecordService: corrupt fields for %s/%s, replacing: %v", rec.Type, rec.ID, err)
			current = map[string]any{}
		}
		merged := MergeFields(current, rec.Fields)
		blob, err := json.Marshal(merged)
		if err != nil {
			return err
		}
		existing.Fields = string(blob)
		existing.Name = sortName(merged)
		existing.ChangeTag = newTag
		return tx.Save(&existing).Error
	})
	if err != nil {
		return "", err
	}

	s.notify(rec.Type, rec.ID, operation, originDevice)
	return newTag, nil
}

// Delete removes a record by id. Deleting an id with no server copy is
// success, and fires no change notification.
func (s *RecordService) Delete(recordType, recordID, originDevice string) error {
	res := s.db.Where("record_type = ? AND record_id = ?", recordType, recordID).
		Delete(&models.CloudRecord{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		s.notify(recordType, recordID, "delete", originDevice)
	}
	return nil
}

// DeleteBatch removes many records in one transaction. Ids unknown to
// the server are ignored; any database failure surfaces whole.
func (s *RecordService) DeleteBatch(recordType string, ids []string, originDevice string) error {
	deleted := make([]string, 0, len(ids))
	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, id := range ids {
			res := tx.Where("record_type = ? AND record_id = ?", recordType, id).
				Delete(&models.CloudRecord{})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected > 0 {
				deleted = append(deleted, id)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, id := range deleted {
		s.notify(recordType, id, "delete", originDevice)
	}
	return nil
}

func (s *RecordService) notify(recordType, recordID, operation, originDevice string) {
	sub, err := s.subs.ForRecordType(recordType)
	if err != nil {
		log.Printf("RecordService: subscription lookup failed for %s: %v", recordType, err)
		return
	}
	if sub == nil {
		return
	}
	payload := models.ChangePayload{
		SubscriptionID:   sub.SubscriptionID,
		RecordType:       recordType,
		RecordID:         recordID,
		Operation:        operation,
		ContentAvailable: sub.Silent,
		OriginDevice:     originDevice,
	}
	s.hub.Broadcast(payload, originDevice)
	if s.push != nil {
		s.push.PushChange(payload)
	}
}

// MergeFields applies the changed-keys-only save policy: keys present in
// incoming overwrite, keys absent stay, explicit nulls delete.
func MergeFields(existing, incoming map[string]any) map[string]any {
	merged := make(map[string]any, len(existing)+len(incoming))
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range incoming {
		if v == nil {
			delete(merged, k)
			continue
		}
		merged[k] = v
	}
	return merged
}

// sortName is the lower-cased name column value used for ordered queries.
func sortName(fields map[string]any) string {
	name, _ := fields["name"].(string)
	return strings.ToLower(name)
}
