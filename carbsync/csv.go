package carbsync

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/hejmattias/kolsync/models"
)

// ImportCSV reads a food-list file and adds each parsed row to the
// mirror. Rows are name;carbsPer100g with optional gramsPerDl,
// styckPerGram and favorite columns; semicolon or comma delimited, with
// either decimal separator. Malformed rows are skipped with a logged
// reason, and names already present in the mirror (case-insensitive) are
// skipped as duplicates. A read failure is the only fatal outcome.
func ImportCSV(path string, mirror *Mirror[models.FoodItem]) (added, skipped int, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, 0, fmt.Errorf("read csv: %w", err)
	}

	reader := csv.NewReader(strings.NewReader(string(data)))
	reader.Comma = detectDelimiter(string(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return 0, 0, fmt.Errorf("parse csv: %w", err)
	}

	seen := make(map[string]bool)
	for _, item := range mirror.Items() {
		seen[normalizeName(item.Name)] = true
	}

	for i, row := range rows {
		line := i + 1
		if len(row) == 1 && strings.TrimSpace(row[0]) == "" {
			continue
		}
		if i == 0 && len(row) > 1 && strings.EqualFold(strings.TrimSpace(row[0]), "name") {
			continue // header row
		}
		if len(row) < 2 {
			log.Printf("ImportCSV: skipping row %d: not enough columns (%d)", line, len(row))
			skipped++
			continue
		}

		name := strings.TrimSpace(row[0])
		carbs, carbsErr := parseDecimal(row[1])
		if name == "" || carbsErr != nil {
			log.Printf("ImportCSV: skipping row %d: invalid carbs (%q) or empty name (%q)", line, row[1], name)
			skipped++
			continue
		}
		if carbs < 0 {
			log.Printf("ImportCSV: skipping row %d: negative carbs", line)
			skipped++
			continue
		}

		item := models.FoodItem{
			ID:           uuid.New(),
			Name:         name,
			CarbsPer100g: &carbs,
		}
		if len(row) > 2 {
			if v, err := parseDecimal(row[2]); err == nil {
				item.GramsPerDl = &v
			}
		}
		if len(row) > 3 {
			if v, err := parseDecimal(row[3]); err == nil {
				item.StyckPerGram = &v
			}
		}
		if len(row) > 4 {
			item.IsFavorite = strings.EqualFold(strings.TrimSpace(row[4]), "true")
		}

		if seen[normalizeName(name)] {
			log.Printf("ImportCSV: skipping row %d: duplicate item %q", line, name)
			skipped++
			continue
		}
		seen[normalizeName(name)] = true
		mirror.Add(item)
		added++
	}
	return added, skipped, nil
}

// ExportCSV writes the list in the import format: semicolon delimited,
// decimal commas, header row, names quoted.
func ExportCSV(items []models.FoodItem, path string) error {
	var b strings.Builder
	b.WriteString("Name;CarbsPer100g;GramsPerDl;StyckPerGram;IsFavorite\n")

	sorted := append([]models.FoodItem(nil), items...)
	sortEntities(sorted)
	for _, f := range sorted {
		name := `"` + strings.ReplaceAll(f.Name, `"`, `""`) + `"`
		favorite := "false"
		if f.IsFavorite {
			favorite = "true"
		}
		b.WriteString(fmt.Sprintf("%s;%s;%s;%s;%s\n",
			name,
			formatDecimal(f.CarbsPer100g),
			formatDecimal(f.GramsPerDl),
			formatDecimal(f.StyckPerGram),
			favorite))
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

func detectDelimiter(data string) rune {
	firstLine, _, _ := strings.Cut(data, "\n")
	if strings.Contains(firstLine, ";") {
		return ';'
	}
	return ','
}

// parseDecimal accepts both decimal separators.
func parseDecimal(s string) (float64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return 0, fmt.Errorf("empty")
	}
	return strconv.ParseFloat(s, 64)
}

func formatDecimal(v *float64) string {
	if v == nil {
		return ""
	}
	return strings.ReplaceAll(fmt.Sprintf("%.1f", *v), ".", ",")
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
