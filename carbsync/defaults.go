package carbsync

import (
	"github.com/google/uuid"

	"github.com/hejmattias/kolsync/models"
)

// DefaultFoodList is the built-in starter list, used only when no cache
// blob exists yet.
func DefaultFoodList() []models.FoodItem {
	return []models.FoodItem{
		defaultItem("Äpple", 11.4, ptr(65.0), nil),
		defaultItem("Fiskpinnar", 10, ptr(50.0), ptr(100.0)),
		defaultItem("pinnfiskar", 10, nil, ptr(100.0)),
		defaultItem("Banan", 22.8, ptr(85.0), nil),
	}
}

func defaultItem(name string, carbs float64, gramsPerDl, styckPerGram *float64) models.FoodItem {
	return models.FoodItem{
		ID:           uuid.New(),
		Name:         name,
		CarbsPer100g: &carbs,
		GramsPerDl:   gramsPerDl,
		StyckPerGram: styckPerGram,
		IsDefault:    true,
	}
}

func ptr(v float64) *float64 { return &v }
