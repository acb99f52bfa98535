package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"co2gdp-api/internal/errors"
	"co2gdp-api/internal/services"
)

// dataQuery is the validated form of the countries/start_year/end_year
// parameters. EndYear is zero when the caller did not ask for one.
type dataQuery struct {
	Countries []string
	StartYear int
	EndYear   int
}

func parseDataQuery(r *http.Request, currentYear int) (dataQuery, error) {
	params := r.URL.Query()

	q := dataQuery{
		Countries: parseCountries(params.Get("countries")),
		StartYear: services.DefaultStartYear,
	}

	// Unparseable years are ignored rather than rejected.
	if n, ok := parseYear(params.Get("start_year")); ok {
		q.StartYear = n
	}
	if n, ok := parseYear(params.Get("end_year")); ok {
		q.EndYear = n
	}

	if q.StartYear < services.MinYear || q.StartYear > currentYear {
		return q, errors.Validation("Invalid start_year",
			fmt.Sprintf("start_year must be between %d and %d", services.MinYear, currentYear))
	}
	if q.EndYear != 0 && (q.EndYear < q.StartYear || q.EndYear > currentYear) {
		return q, errors.Validation("Invalid end_year",
			fmt.Sprintf("end_year must be >= start_year and <= %d", currentYear))
	}
	return q, nil
}

func parseYear(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

// parseCountries splits a comma separated list of codes. A list with no
// non-blank entries selects every country and is returned as nil.
func parseCountries(raw string) []string {
	var codes []string
	for _, part := range strings.Split(raw, ",") {
		if code := strings.ToUpper(strings.TrimSpace(part)); code != "" {
			codes = append(codes, code)
		}
	}
	return codes
}
