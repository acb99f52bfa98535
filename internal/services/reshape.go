package services

import (
	"math"
	"strconv"
	"strings"

	"co2gdp-api/internal/models"
	"co2gdp-api/internal/worldbank"
)

// Melt converts a wide economy × year table into long records, one per cell
// holding a finite number. Records are emitted column by column, so all
// economies for the first year come before the second year. Names are looked
// up by economy id; unknown ids keep an empty name.
func Melt(table *worldbank.Table, names map[string]string) []models.IndicatorRecord {
	if table.Empty() {
		return []models.IndicatorRecord{}
	}

	records := make([]models.IndicatorRecord, 0, len(table.Rows)*len(table.Columns))
	for ci, column := range table.Columns {
		year, ok := worldbank.ParseYearColumn(column)
		if !ok {
			continue
		}
		for _, row := range table.Rows {
			if ci >= len(row.Cells) {
				continue
			}
			value, ok := parseValue(row.Cells[ci])
			if !ok {
				continue
			}
			records = append(records, models.IndicatorRecord{
				CountryCode: row.Economy,
				CountryName: names[row.Economy],
				Year:        year,
				Value:       value,
			})
		}
	}
	return records
}

func parseValue(cell string) (float64, bool) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(cell, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false
	}
	return value, true
}

type joinKey struct {
	code string
	name string
	year int
}

// Merge inner-joins CO2 and GDP records on (country code, country name,
// year). Output follows the order of co2; a key repeated on both sides yields
// every pairing.
func Merge(co2, gdp []models.IndicatorRecord) []models.CombinedRecord {
	gdpByKey := make(map[joinKey][]float64, len(gdp))
	for _, r := range gdp {
		k := joinKey{code: r.CountryCode, name: r.CountryName, year: r.Year}
		gdpByKey[k] = append(gdpByKey[k], r.Value)
	}

	combined := make([]models.CombinedRecord, 0, min(len(co2), len(gdp)))
	for _, r := range co2 {
		for _, g := range gdpByKey[joinKey{code: r.CountryCode, name: r.CountryName, year: r.Year}] {
			combined = append(combined, models.CombinedRecord{
				CountryCode:  r.CountryCode,
				CountryName:  r.CountryName,
				Year:         r.Year,
				CO2Emissions: r.Value,
				GDPPerCapita: g,
			})
		}
	}
	return combined
}

// yearSpan returns the smallest and largest year in records. ok is false
// for an empty slice.
func yearSpan[T any](records []T, year func(T) int) (lo, hi int, ok bool) {
	for i, r := range records {
		y := year(r)
		if i == 0 || y < lo {
			lo = y
		}
		if i == 0 || y > hi {
			hi = y
		}
	}
	return lo, hi, len(records) > 0
}

func distinctCountries[T any](records []T, code func(T) string) int {
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		seen[code(r)] = struct{}{}
	}
	return len(seen)
}
