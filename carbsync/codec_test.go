package carbsync

import (
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hejmattias/kolsync/models"
)

func TestFoodItemCodecRoundTrip(t *testing.T) {
	codec := FoodItemCodec{}
	item := models.FoodItem{
		ID:            uuid.New(),
		Name:          "Äpple",
		CarbsPer100g:  ptr(11.4),
		GramsPerDl:    ptr(65),
		Grams:         150,
		InputUnit:     "dl",
		IsDefault:     true,
		HasBeenLogged: true,
		IsFavorite:    true,
	}

	rec, err := codec.Encode(item)
	require.NoError(t, err)
	assert.Equal(t, models.FoodRecordType, rec.Type)
	assert.Equal(t, item.ID.String(), rec.ID)
	assert.Equal(t, 1, rec.Fields["isFavorite"])
	_, hasStyck := rec.Fields["styckPerGram"]
	assert.False(t, hasStyck, "nil optional must be absent, not zero")

	decoded, err := codec.Decode(rec)
	require.NoError(t, err)
	assert.Equal(t, item.ID, decoded.ID)
	assert.Equal(t, "Äpple", decoded.Name)
	assert.Equal(t, 11.4, *decoded.CarbsPer100g)
	assert.Equal(t, 65.0, *decoded.GramsPerDl)
	assert.Nil(t, decoded.StyckPerGram)
	assert.True(t, decoded.IsFavorite)

	// Staged quantity and local flags never travel.
	assert.Zero(t, decoded.Grams)
	assert.Empty(t, decoded.InputUnit)
	assert.False(t, decoded.IsDefault)
	assert.False(t, decoded.HasBeenLogged)
}

func TestFoodItemCodecEncodeRejectsIncomplete(t *testing.T) {
	codec := FoodItemCodec{}

	_, err := codec.Encode(models.FoodItem{Name: "no id"})
	assert.Error(t, err)

	_, err = codec.Encode(models.FoodItem{ID: uuid.New()})
	assert.Error(t, err)
}

func TestFoodItemCodecDecodeErrors(t *testing.T) {
	codec := FoodItemCodec{}

	cases := []struct {
		name string
		rec  models.Record
	}{
		{"bad id", models.Record{ID: "not-a-uuid", Fields: map[string]any{"name": "x", "carbsPer100g": 1.0}}},
		{"missing name", models.Record{ID: uuid.NewString(), Fields: map[string]any{"carbsPer100g": 1.0}}},
		{"missing carbs", models.Record{ID: uuid.NewString(), Fields: map[string]any{"name": "x"}}},
		{"carbs wrong type", models.Record{ID: uuid.NewString(), Fields: map[string]any{"name": "x", "carbsPer100g": "11,4"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := codec.Decode(&tc.rec)
			var de *DecodeError
			require.ErrorAs(t, err, &de)
		})
	}
}

func TestFoodItemCodecFavoriteAsInt(t *testing.T) {
	codec := FoodItemCodec{}

	rec := &models.Record{
		ID:     uuid.NewString(),
		Fields: map[string]any{"name": "Banan", "carbsPer100g": 22.8, "isFavorite": float64(0)},
	}
	item, err := codec.Decode(rec)
	require.NoError(t, err)
	assert.False(t, item.IsFavorite)

	rec.Fields["isFavorite"] = float64(1)
	item, err = codec.Decode(rec)
	require.NoError(t, err)
	assert.True(t, item.IsFavorite)
}

func TestContainerCodecStagesImage(t *testing.T) {
	codec := ContainerCodec{}
	c := models.Container{
		ID:        uuid.New(),
		Name:      "Skål",
		Weight:    215,
		ImageData: []byte{0xff, 0xd8, 0xff},
	}

	rec, err := codec.Encode(c)
	require.NoError(t, err)
	require.NotEmpty(t, rec.AssetFile)
	defer os.Remove(rec.AssetFile)

	staged, err := os.ReadFile(rec.AssetFile)
	require.NoError(t, err)
	assert.Equal(t, c.ImageData, staged)
	assert.Equal(t, c.Name, rec.Fields["name"])
	assert.Equal(t, c.Weight, rec.Fields["weight"])
}

func TestContainerCodecDecodePrefersAssetData(t *testing.T) {
	codec := ContainerCodec{}
	rec := &models.Record{
		ID:        uuid.NewString(),
		Fields:    map[string]any{"name": "Skål", "weight": 215.0},
		AssetData: []byte("img"),
	}
	c, err := codec.Decode(rec)
	require.NoError(t, err)
	assert.Equal(t, []byte("img"), c.ImageData)
}

func TestContainerCodecDecodeToleratesMissingImage(t *testing.T) {
	codec := ContainerCodec{}
	rec := &models.Record{
		ID:        uuid.NewString(),
		Fields:    map[string]any{"name": "Skål", "weight": 215.0},
		AssetFile: "/nonexistent/image.jpg",
	}
	c, err := codec.Decode(rec)
	require.NoError(t, err, "a lost image must not fail the record")
	assert.Nil(t, c.ImageData)
	assert.Equal(t, "Skål", c.Name)
}

func TestContainerCodecDecodeErrors(t *testing.T) {
	codec := ContainerCodec{}
	_, err := codec.Decode(&models.Record{
		ID:     uuid.NewString(),
		Fields: map[string]any{"name": "Skål"},
	})
	var de *DecodeError
	require.True(t, errors.As(err, &de))
	assert.Contains(t, de.Error(), "weight")
}
