package worldbank

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Economy is a country or aggregate as listed by the provider. Aggregates
// carry no region and no income level.
type Economy struct {
	ID          string
	Name        string
	Region      string
	IncomeLevel string
}

func (e Economy) IsAggregate() bool {
	return e.Region == "" || e.IncomeLevel == ""
}

// Query selects an indicator series. A nil Economies slice means every
// economy; Start and End are inclusive years. Countries, when non-nil, is the
// set of non-aggregate economy ids SkipAggregates filters against; otherwise
// the client lists economies itself.
type Query struct {
	Code           string
	Economies      []string
	Start          int
	End            int
	SkipAggregates bool
	SkipBlanks     bool
	Countries      map[string]bool
}

// Table is an indicator series in wide form: one row per economy and one
// column per year. Cells hold the provider's raw value text, "" when missing.
type Table struct {
	Columns []string
	Rows    []Row
}

type Row struct {
	Economy string
	Cells   []string
}

func (t *Table) Empty() bool {
	return t == nil || len(t.Rows) == 0 || len(t.Columns) == 0
}

const yearColumnPrefix = "YR"

func YearColumn(year int) string {
	return yearColumnPrefix + strconv.Itoa(year)
}

// ParseYearColumn reverses YearColumn.
func ParseYearColumn(label string) (int, bool) {
	year, err := strconv.Atoi(strings.TrimPrefix(label, yearColumnPrefix))
	if err != nil {
		return 0, false
	}
	return year, true
}

// APIError is an error payload returned by the provider with HTTP 200.
type APIError struct {
	Messages []string
}

func (e *APIError) Error() string {
	return "world bank api: " + strings.Join(e.Messages, "; ")
}

// flexInt accepts both 50 and "50"; the API is inconsistent about paging
// fields across endpoints.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(string(data))
	if err != nil {
		return err
	}
	*f = flexInt(n)
	return nil
}

type pageMeta struct {
	Page    flexInt `json:"page"`
	Pages   flexInt `json:"pages"`
	PerPage flexInt `json:"per_page"`
	Total   flexInt `json:"total"`
}

type errorPayload struct {
	Message []struct {
		ID    string `json:"id"`
		Key   string `json:"key"`
		Value string `json:"value"`
	} `json:"message"`
}

type idValue struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

type economyJSON struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Region      idValue `json:"region"`
	IncomeLevel idValue `json:"incomeLevel"`
}

// aggregateID is the region and income level id the v2 API assigns to
// aggregates.
const aggregateID = "NA"

func (e economyJSON) toEconomy() Economy {
	econ := Economy{ID: e.ID, Name: e.Name}
	if id := strings.TrimSpace(e.Region.ID); id != "" && id != aggregateID {
		econ.Region = id
	}
	if id := strings.TrimSpace(e.IncomeLevel.ID); id != "" && id != aggregateID {
		econ.IncomeLevel = id
	}
	return econ
}

type observationJSON struct {
	Country         idValue         `json:"country"`
	CountryISO3Code string          `json:"countryiso3code"`
	Date            string          `json:"date"`
	Value           json.RawMessage `json:"value"`
}

func (o observationJSON) economy() string {
	if o.CountryISO3Code != "" {
		return o.CountryISO3Code
	}
	return o.Country.ID
}

// cellText renders a JSON value as table cell text: numbers verbatim,
// strings unquoted, null as "".
func cellText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return strings.TrimSpace(s)
	}
	return string(raw)
}
