package carbsync

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hejmattias/kolsync/models"
)

func newTestMirror(t *testing.T) *Mirror[models.FoodItem] {
	t.Helper()
	cache, err := OpenCacheStore(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })

	m := NewMirror[models.FoodItem](nil, cache, FoodListKeyPhone, nil)
	t.Cleanup(m.Close)
	return m
}

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "import.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestImportCSVSkipsMalformedRows(t *testing.T) {
	mirror := newTestMirror(t)
	path := writeTempCSV(t, "\"Äpple\";11,4;65;;true\nBadRow;;;;\n\"Banan\";22,8;85;;false\n")

	added, skipped, err := ImportCSV(path, mirror)
	require.NoError(t, err)
	assert.Equal(t, 2, added)
	assert.Equal(t, 1, skipped)

	items := mirror.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "Äpple", items[0].Name)
	assert.Equal(t, 11.4, *items[0].CarbsPer100g)
	assert.Equal(t, 65.0, *items[0].GramsPerDl)
	assert.True(t, items[0].IsFavorite)
	assert.Equal(t, "Banan", items[1].Name)
	assert.False(t, items[1].IsFavorite)
}

func TestImportCSVCommaDelimited(t *testing.T) {
	mirror := newTestMirror(t)
	path := writeTempCSV(t, "Rice,28.6,85\nPasta,30.1\n")

	added, skipped, err := ImportCSV(path, mirror)
	require.NoError(t, err)
	assert.Equal(t, 2, added)
	assert.Zero(t, skipped)

	items := mirror.Items()
	require.Len(t, items, 2)
	assert.Equal(t, 30.1, *items[0].CarbsPer100g) // Pasta sorts first
	assert.Nil(t, items[0].GramsPerDl)
	assert.Equal(t, 85.0, *items[1].GramsPerDl)
}

func TestImportCSVSkipsDuplicates(t *testing.T) {
	mirror := newTestMirror(t)
	mirror.Add(models.FoodItem{ID: uuid.New(), Name: "Äpple", CarbsPer100g: ptr(11.4)})

	path := writeTempCSV(t, "äpple;12,0\nBanan;22,8\nbanan;23,0\n")
	added, skipped, err := ImportCSV(path, mirror)
	require.NoError(t, err)
	assert.Equal(t, 1, added, "only Banan is new")
	assert.Equal(t, 2, skipped, "existing Äpple and repeated banan skip")
	assert.Len(t, mirror.Items(), 2)
}

func TestImportCSVNegativeCarbsSkipped(t *testing.T) {
	mirror := newTestMirror(t)
	path := writeTempCSV(t, "Mystery;-5,0\n")

	added, skipped, err := ImportCSV(path, mirror)
	require.NoError(t, err)
	assert.Zero(t, added)
	assert.Equal(t, 1, skipped)
}

func TestImportCSVMissingFile(t *testing.T) {
	mirror := newTestMirror(t)
	_, _, err := ImportCSV(filepath.Join(t.TempDir(), "nope.csv"), mirror)
	assert.Error(t, err)
}

func TestExportImportRoundTrip(t *testing.T) {
	items := []models.FoodItem{
		{ID: uuid.New(), Name: `Müsli "special"`, CarbsPer100g: ptr(55.5), GramsPerDl: ptr(40), IsFavorite: true},
		{ID: uuid.New(), Name: "Äpple", CarbsPer100g: ptr(11.4)},
	}
	path := filepath.Join(t.TempDir(), "export.csv")
	require.NoError(t, ExportCSV(items, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "Name;CarbsPer100g;GramsPerDl;StyckPerGram;IsFavorite\n")
	assert.Contains(t, content, `"Müsli ""special""";55,5;40,0;;true`)

	mirror := newTestMirror(t)
	added, skipped, err := ImportCSV(path, mirror)
	require.NoError(t, err)
	assert.Equal(t, 2, added)
	assert.Zero(t, skipped, "header row does not count as skipped")

	back := mirror.Items()
	require.Len(t, back, 2)
	assert.Equal(t, `Müsli "special"`, back[0].Name)
	assert.Equal(t, 55.5, *back[0].CarbsPer100g)
	assert.True(t, back[0].IsFavorite)
}
