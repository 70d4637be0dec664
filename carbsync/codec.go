package carbsync

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/hejmattias/kolsync/models"
)

// Entity is anything a mirror can hold and a gateway can sync.
type Entity interface {
	EntityID() uuid.UUID
	EntityName() string
}

// Codec maps between a local entity and its cloud record. Decode returns
// a *DecodeError when a required field is missing or malformed; missing
// optional fields default instead of failing.
type Codec[E Entity] interface {
	RecordType() string
	Encode(e E) (*models.Record, error)
	Decode(rec *models.Record) (E, error)
}

// FoodItemCodec maps FoodItem <-> FoodItemRecord.
//
// Device-local fields (staged grams, input unit, default/logged flags)
// are not encoded and reset to their defaults on decode. Optional fields
// are left absent when nil so a save never clobbers a value another
// device wrote for a key this device has no opinion on.
type FoodItemCodec struct{}

func (FoodItemCodec) RecordType() string { return models.FoodRecordType }

func (FoodItemCodec) Encode(f models.FoodItem) (*models.Record, error) {
	if f.ID == uuid.Nil {
		return nil, fmt.Errorf("encode food item: missing id")
	}
	if f.Name == "" {
		return nil, fmt.Errorf("encode food item %s: empty name", f.ID)
	}

	fields := map[string]any{
		"name": f.Name,
	}
	if f.CarbsPer100g != nil {
		fields["carbsPer100g"] = *f.CarbsPer100g
	}
	if f.GramsPerDl != nil {
		fields["gramsPerDl"] = *f.GramsPerDl
	}
	if f.StyckPerGram != nil {
		fields["styckPerGram"] = *f.StyckPerGram
	}
	fields["isFavorite"] = boolToInt(f.IsFavorite)

	return &models.Record{
		Type:   models.FoodRecordType,
		ID:     f.ID.String(),
		Fields: fields,
	}, nil
}

func (FoodItemCodec) Decode(rec *models.Record) (models.FoodItem, error) {
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return models.FoodItem{}, &DecodeError{RecordID: rec.ID, Reason: "record id is not a UUID"}
	}
	name, ok := rec.Fields["name"].(string)
	if !ok || name == "" {
		return models.FoodItem{}, &DecodeError{RecordID: rec.ID, Reason: "missing name"}
	}
	carbs, ok := numericField(rec.Fields, "carbsPer100g")
	if !ok {
		return models.FoodItem{}, &DecodeError{RecordID: rec.ID, Reason: "missing or malformed carbsPer100g"}
	}

	item := models.FoodItem{
		ID:           id,
		Name:         name,
		CarbsPer100g: &carbs,
		Grams:        0,
	}
	if v, ok := numericField(rec.Fields, "gramsPerDl"); ok {
		item.GramsPerDl = &v
	}
	if v, ok := numericField(rec.Fields, "styckPerGram"); ok {
		item.StyckPerGram = &v
	}
	if v, ok := numericField(rec.Fields, "isFavorite"); ok {
		item.IsFavorite = v == 1
	}
	return item, nil
}

// ContainerCodec maps Container <-> ContainerRecord. The image travels as
// a separate asset: Encode stages the bytes in a freshly named temp file
// referenced by Record.AssetFile, and whoever uploads it removes the file
// afterwards. Decode reads asset bytes eagerly; a read failure degrades
// to a nil image rather than a decode failure.
type ContainerCodec struct{}

func (ContainerCodec) RecordType() string { return models.ContainerRecordType }

func (ContainerCodec) Encode(c models.Container) (*models.Record, error) {
	if c.ID == uuid.Nil {
		return nil, fmt.Errorf("encode container: missing id")
	}
	if c.Name == "" {
		return nil, fmt.Errorf("encode container %s: empty name", c.ID)
	}

	rec := &models.Record{
		Type: models.ContainerRecordType,
		ID:   c.ID.String(),
		Fields: map[string]any{
			"name":   c.Name,
			"weight": c.Weight,
		},
	}

	if len(c.ImageData) > 0 {
		path := filepath.Join(os.TempDir(), uuid.NewString()+".jpg")
		if err := os.WriteFile(path, c.ImageData, 0o600); err != nil {
			// Image loss is tolerated; the record saves without it.
			log.Printf("ContainerCodec: failed to stage image for %s: %v", c.Name, err)
		} else {
			rec.AssetFile = path
		}
	}
	return rec, nil
}

func (ContainerCodec) Decode(rec *models.Record) (models.Container, error) {
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return models.Container{}, &DecodeError{RecordID: rec.ID, Reason: "record id is not a UUID"}
	}
	name, ok := rec.Fields["name"].(string)
	if !ok || name == "" {
		return models.Container{}, &DecodeError{RecordID: rec.ID, Reason: "missing name"}
	}
	weight, ok := numericField(rec.Fields, "weight")
	if !ok {
		return models.Container{}, &DecodeError{RecordID: rec.ID, Reason: "missing or malformed weight"}
	}

	c := models.Container{ID: id, Name: name, Weight: weight}
	switch {
	case rec.AssetData != nil:
		c.ImageData = rec.AssetData
	case rec.AssetFile != "":
		data, err := os.ReadFile(rec.AssetFile)
		if err != nil {
			log.Printf("ContainerCodec: failed to load image for %s: %v", name, err)
		} else {
			c.ImageData = data
		}
	}
	return c, nil
}

// numericField reads a float64 field, accepting the integer forms JSON
// decoding may produce.
func numericField(fields map[string]any, key string) (float64, bool) {
	switch v := fields[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
