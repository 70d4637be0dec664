package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeFieldsOverwritesPresentKeys(t *testing.T) {
	existing := map[string]any{"name": "Äpple", "carbsPer100g": 11.4, "isFavorite": 1}
	incoming := map[string]any{"carbsPer100g": 12.0}

	merged := MergeFields(existing, incoming)

	assert.Equal(t, 12.0, merged["carbsPer100g"])
	assert.Equal(t, "Äpple", merged["name"], "absent keys keep their server values")
	assert.Equal(t, 1, merged["isFavorite"])
}

func TestMergeFieldsNullDeletesKey(t *testing.T) {
	existing := map[string]any{"name": "Skål", "weight": 215.0, "image": map[string]any{"asset": "k"}}
	incoming := map[string]any{"image": nil}

	merged := MergeFields(existing, incoming)

	_, hasImage := merged["image"]
	assert.False(t, hasImage, "an explicit null removes the key")
	assert.Equal(t, 215.0, merged["weight"])
}

func TestMergeFieldsFromNothing(t *testing.T) {
	merged := MergeFields(nil, map[string]any{"name": "Ny", "extra": nil})
	assert.Equal(t, map[string]any{"name": "Ny"}, merged)
}

func TestMergeFieldsDoesNotMutateInputs(t *testing.T) {
	existing := map[string]any{"name": "Äpple"}
	incoming := map[string]any{"name": nil}

	MergeFields(existing, incoming)

	assert.Equal(t, "Äpple", existing["name"])
}

func TestSortNameLowercases(t *testing.T) {
	assert.Equal(t, "äpple", sortName(map[string]any{"name": "Äpple"}))
	assert.Empty(t, sortName(map[string]any{"weight": 1.0}))
	assert.Empty(t, sortName(map[string]any{"name": 42}))
}
