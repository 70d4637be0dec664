package carbsync

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hejmattias/kolsync/models"
)

func TestPlateTotalsAndReplacement(t *testing.T) {
	cache := openTestCache(t)
	p := NewPlate(cache)

	apple := models.FoodItem{ID: uuid.New(), Name: "Äpple", CarbsPer100g: ptr(11.4), Grams: 150}
	banana := models.FoodItem{ID: uuid.New(), Name: "Banan", CarbsPer100g: ptr(22.8), Grams: 100}
	p.AddItem(apple)
	p.AddItem(banana)
	assert.InDelta(t, 11.4*1.5+22.8, p.TotalCarbs(), 1e-9)

	// Re-adding the same id replaces the staged quantity.
	apple.Grams = 300
	p.AddItem(apple)
	require.Len(t, p.Items(), 2)
	assert.InDelta(t, 11.4*3+22.8, p.TotalCarbs(), 1e-9)

	p.RemoveItem(banana.ID)
	require.Len(t, p.Items(), 1)
	assert.Equal(t, apple.ID, p.Items()[0].ID)
}

func TestPlateInsertionOrderPreserved(t *testing.T) {
	cache := openTestCache(t)
	p := NewPlate(cache)

	p.AddItem(models.FoodItem{ID: uuid.New(), Name: "Zucchini", CarbsPer100g: ptr(2.2), Grams: 50})
	p.AddItem(models.FoodItem{ID: uuid.New(), Name: "Ananas", CarbsPer100g: ptr(11.7), Grams: 80})

	items := p.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "Zucchini", items[0].Name, "the plate is not name-sorted")
	assert.Equal(t, "Ananas", items[1].Name)
}

func TestPlatePersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	cache, err := OpenCacheStore(path)
	require.NoError(t, err)

	item := models.FoodItem{ID: uuid.New(), Name: "Pasta", CarbsPer100g: ptr(30.1), Grams: 200}
	NewPlate(cache).AddItem(item)
	require.NoError(t, cache.Close())

	cache2, err := OpenCacheStore(path)
	require.NoError(t, err)
	defer cache2.Close()

	p := NewPlate(cache2)
	require.Len(t, p.Items(), 1)
	assert.Equal(t, item.ID, p.Items()[0].ID)
	assert.InDelta(t, 60.2, p.TotalCarbs(), 1e-9)
}

func TestPlateEmpty(t *testing.T) {
	cache := openTestCache(t)
	p := NewPlate(cache)
	p.AddItem(models.FoodItem{ID: uuid.New(), Name: "Ris", CarbsPer100g: ptr(28.6), Grams: 100})
	p.Empty()

	assert.Empty(t, p.Items())
	assert.Zero(t, p.TotalCarbs())

	// The cleared plate is what the next start sees.
	p2 := NewPlate(cache)
	assert.Empty(t, p2.Items())
}
