package models

import (
	"fmt"

	"github.com/google/uuid"
)

// FoodItem is one entry in the food list. Grams, InputUnit, IsDefault and
// HasBeenLogged are device-local: they are cached on the device but never
// written to the cloud store.
type FoodItem struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	CarbsPer100g  *float64  `json:"carbsPer100g,omitempty"`
	Grams         float64   `json:"grams"`
	GramsPerDl    *float64  `json:"gramsPerDl,omitempty"`
	StyckPerGram  *float64  `json:"styckPerGram,omitempty"`
	InputUnit     string    `json:"inputUnit,omitempty"` // "g" | "dl" | "st"
	IsDefault     bool      `json:"isDefault,omitempty"`
	HasBeenLogged bool      `json:"hasBeenLogged,omitempty"`
	IsFavorite    bool      `json:"isFavorite,omitempty"`
}

func (f FoodItem) EntityID() uuid.UUID { return f.ID }
func (f FoodItem) EntityName() string  { return f.Name }

// TotalCarbs is the carb content of the currently staged quantity.
func (f FoodItem) TotalCarbs() float64 {
	if f.CarbsPer100g == nil {
		return 0
	}
	return *f.CarbsPer100g * f.Grams / 100
}

// FormattedDetail renders the staged quantity in the unit it was entered
// in, falling back to grams when the conversion factor is missing.
func (f FoodItem) FormattedDetail() string {
	value := f.Grams
	unit := "g"

	switch f.InputUnit {
	case "dl":
		if f.GramsPerDl != nil && *f.GramsPerDl > 0 {
			value = f.Grams / *f.GramsPerDl
			unit = "dl"
		}
	case "st":
		if f.StyckPerGram != nil && *f.StyckPerGram > 0 {
			value = f.Grams / *f.StyckPerGram
			unit = "st"
		}
	}

	return fmt.Sprintf("%.1f%s", value, unit)
}
