package services

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"

	"co2gdp-api/internal/errors"
	"co2gdp-api/internal/models"
	"co2gdp-api/internal/worldbank"
)

var testEconomies = []worldbank.Economy{
	{ID: "USA", Name: "United States", Region: "NAC", IncomeLevel: "HIC"},
	{ID: "CHN", Name: "China", Region: "EAS", IncomeLevel: "UMC"},
	{ID: "WLD", Name: "World"},
	{ID: "BRA", Name: "Brazil", Region: "LCN", IncomeLevel: "UMC"},
}

// fakeProvider serves canned tables keyed by indicator code and records the
// queries it receives.
type fakeProvider struct {
	mu           sync.Mutex
	economies    []worldbank.Economy
	tables       map[string]*worldbank.Table
	economiesErr error
	indicatorErr error
	queries      []worldbank.Query
	economyCalls int
}

func (p *fakeProvider) Economies(ctx context.Context) ([]worldbank.Economy, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.economyCalls++
	if p.economiesErr != nil {
		return nil, p.economiesErr
	}
	return p.economies, nil
}

func (p *fakeProvider) Indicator(ctx context.Context, q worldbank.Query) (*worldbank.Table, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queries = append(p.queries, q)
	if p.indicatorErr != nil {
		return nil, p.indicatorErr
	}
	if t, ok := p.tables[q.Code]; ok {
		return t, nil
	}
	return &worldbank.Table{}, nil
}

func (p *fakeProvider) queriesFor(code string) []worldbank.Query {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []worldbank.Query
	for _, q := range p.queries {
		if q.Code == code {
			out = append(out, q)
		}
	}
	return out
}

func co2Table() *worldbank.Table {
	return &worldbank.Table{
		Columns: []string{"YR2020", "YR2021"},
		Rows: []worldbank.Row{
			{Economy: "CHN", Cells: []string{"7.6", "8.0"}},
			{Economy: "USA", Cells: []string{"13.0", ""}},
		},
	}
}

func gdpTable() *worldbank.Table {
	return &worldbank.Table{
		Columns: []string{"YR2020", "YR2021"},
		Rows: []worldbank.Row{
			{Economy: "CHN", Cells: []string{"10409", "12556"}},
			{Economy: "USA", Cells: []string{"63528", "70248"}},
		},
	}
}

func newTestFetcher(p Provider) *IndicatorFetcher {
	f := NewIndicatorFetcher(p, slog.New(slog.NewTextHandler(io.Discard, nil)))
	f.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return f
}

func TestListCountries(t *testing.T) {
	f := newTestFetcher(&fakeProvider{economies: testEconomies})

	countries, err := f.ListCountries(context.Background())
	if err != nil {
		t.Fatalf("ListCountries() error = %v", err)
	}

	want := []models.Country{
		{Code: "BRA", Name: "Brazil"},
		{Code: "CHN", Name: "China"},
		{Code: "USA", Name: "United States"},
	}
	if !slices.Equal(countries, want) {
		t.Errorf("ListCountries() = %v, want %v", countries, want)
	}
}

func TestListCountries_UpstreamFailure(t *testing.T) {
	f := newTestFetcher(&fakeProvider{economiesErr: stderrors.New("connection refused")})

	_, err := f.ListCountries(context.Background())
	if !errors.IsCode(err, errors.CodeUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestFetchIndicator(t *testing.T) {
	p := &fakeProvider{
		economies: testEconomies,
		tables:    map[string]*worldbank.Table{models.CO2IndicatorCode: co2Table()},
	}
	f := newTestFetcher(p)

	records, err := f.FetchCO2(context.Background(), []string{"USA", "CHN"}, 2020, 2021)
	if err != nil {
		t.Fatalf("FetchCO2() error = %v", err)
	}

	want := []models.IndicatorRecord{
		{CountryCode: "CHN", CountryName: "China", Year: 2020, Value: 7.6},
		{CountryCode: "USA", CountryName: "United States", Year: 2020, Value: 13.0},
		{CountryCode: "CHN", CountryName: "China", Year: 2021, Value: 8.0},
	}
	if !slices.Equal(records, want) {
		t.Errorf("FetchCO2() = %v, want %v", records, want)
	}

	queries := p.queriesFor(models.CO2IndicatorCode)
	if len(queries) != 1 {
		t.Fatalf("expected one upstream query, got %d", len(queries))
	}
	q := queries[0]
	if !slices.Equal(q.Economies, []string{"USA", "CHN"}) || q.Start != 2020 || q.End != 2021 {
		t.Errorf("unexpected query %+v", q)
	}
	if !q.SkipAggregates || !q.SkipBlanks {
		t.Error("indicator queries should skip aggregates and blanks")
	}
	if !q.Countries["USA"] || q.Countries["WLD"] {
		t.Errorf("query should carry the non-aggregate economies, got %v", q.Countries)
	}
}

func TestFetchIndicator_DefaultsEndToCurrentYear(t *testing.T) {
	p := &fakeProvider{economies: testEconomies}
	f := newTestFetcher(p)

	if _, err := f.FetchGDP(context.Background(), nil, 1990, 0); err != nil {
		t.Fatalf("FetchGDP() error = %v", err)
	}

	queries := p.queriesFor(models.GDPIndicatorCode)
	if len(queries) != 1 || queries[0].End != 2024 {
		t.Fatalf("end year should default to 2024, got %+v", queries)
	}
	if queries[0].Economies != nil {
		t.Error("nil countries should request all economies")
	}
}

func TestFetchIndicator_EmptyTable(t *testing.T) {
	f := newTestFetcher(&fakeProvider{economies: testEconomies})

	records, err := f.FetchCO2(context.Background(), nil, 2020, 2021)
	if err != nil {
		t.Fatalf("FetchCO2() error = %v", err)
	}
	if records == nil || len(records) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", records)
	}
}

func TestFetchIndicator_UpstreamFailure(t *testing.T) {
	tests := []struct {
		name     string
		provider *fakeProvider
	}{
		{
			name:     "indicator",
			provider: &fakeProvider{economies: testEconomies, indicatorErr: stderrors.New("timeout")},
		},
		{
			name:     "economies",
			provider: &fakeProvider{economiesErr: stderrors.New("timeout")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestFetcher(tt.provider)
			_, err := f.FetchCO2(context.Background(), nil, 2020, 2021)
			if !errors.IsCode(err, errors.CodeUpstream) {
				t.Errorf("expected upstream error, got %v", err)
			}
		})
	}
}

func TestFetchCombined(t *testing.T) {
	f := newTestFetcher(&fakeProvider{
		economies: testEconomies,
		tables: map[string]*worldbank.Table{
			models.CO2IndicatorCode: co2Table(),
			models.GDPIndicatorCode: gdpTable(),
		},
	})

	combined, err := f.FetchCombined(context.Background(), []string{"USA", "CHN"}, 2020, 2021)
	if err != nil {
		t.Fatalf("FetchCombined() error = %v", err)
	}

	// USA 2021 has GDP but no CO2, so the join drops it.
	want := []models.CombinedRecord{
		{CountryCode: "CHN", CountryName: "China", Year: 2020, CO2Emissions: 7.6, GDPPerCapita: 10409},
		{CountryCode: "USA", CountryName: "United States", Year: 2020, CO2Emissions: 13.0, GDPPerCapita: 63528},
		{CountryCode: "CHN", CountryName: "China", Year: 2021, CO2Emissions: 8.0, GDPPerCapita: 12556},
	}
	if !slices.Equal(combined, want) {
		t.Errorf("FetchCombined() = %v, want %v", combined, want)
	}
}

func TestFetchCombined_ListsEconomiesOnce(t *testing.T) {
	p := &fakeProvider{
		economies: testEconomies,
		tables: map[string]*worldbank.Table{
			models.CO2IndicatorCode: co2Table(),
			models.GDPIndicatorCode: gdpTable(),
		},
	}
	f := newTestFetcher(p)

	if _, err := f.FetchCombined(context.Background(), nil, 2020, 2021); err != nil {
		t.Fatalf("FetchCombined() error = %v", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.economyCalls != 1 {
		t.Errorf("economy listings = %d, want 1 shared by both indicators", p.economyCalls)
	}
	if len(p.queries) != 2 {
		t.Fatalf("indicator queries = %d, want 2", len(p.queries))
	}
	for _, q := range p.queries {
		if q.Countries == nil {
			t.Errorf("query %s should reuse the economy listing", q.Code)
		}
	}
}

func TestFetchCombined_OneSideEmpty(t *testing.T) {
	f := newTestFetcher(&fakeProvider{
		economies: testEconomies,
		tables:    map[string]*worldbank.Table{models.CO2IndicatorCode: co2Table()},
	})

	combined, err := f.FetchCombined(context.Background(), nil, 2020, 2021)
	if err != nil {
		t.Fatalf("FetchCombined() error = %v", err)
	}
	if combined == nil || len(combined) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", combined)
	}
}

func TestGetForAPI(t *testing.T) {
	f := newTestFetcher(&fakeProvider{
		economies: testEconomies,
		tables: map[string]*worldbank.Table{
			models.CO2IndicatorCode: co2Table(),
			models.GDPIndicatorCode: gdpTable(),
		},
	})

	payload, err := f.GetForAPI(context.Background(), nil, 1990, 0)
	if err != nil {
		t.Fatalf("GetForAPI() error = %v", err)
	}

	md := payload.Metadata
	if md.TotalRecords != len(payload.Data) || md.TotalRecords != 3 {
		t.Errorf("total_records = %d, data = %d", md.TotalRecords, len(payload.Data))
	}
	if md.Countries != 2 {
		t.Errorf("countries = %d, want 2", md.Countries)
	}
	if md.Years != "2020-2021" {
		t.Errorf("years = %q, want the span present in the data", md.Years)
	}
	if md.Indicators["co2"].Code != models.CO2IndicatorCode || md.Indicators["gdp"].Code != models.GDPIndicatorCode {
		t.Errorf("indicators metadata = %v", md.Indicators)
	}
	if md.LastUpdated != "2024-06-01T12:00:00Z" {
		t.Errorf("last_updated = %q", md.LastUpdated)
	}
	for _, r := range payload.Data {
		if r.CountryCode == "WLD" {
			t.Error("aggregates must not appear in the combined data")
		}
	}
}

func TestGetForAPI_NoData(t *testing.T) {
	f := newTestFetcher(&fakeProvider{economies: testEconomies})

	payload, err := f.GetForAPI(context.Background(), []string{"USA"}, 2000, 2005)
	if err != nil {
		t.Fatalf("GetForAPI() error = %v", err)
	}

	md := payload.Metadata
	if md.TotalRecords != 0 || md.Countries != 0 {
		t.Errorf("expected zero counts, got %+v", md)
	}
	if md.Years != "2000-2005" {
		t.Errorf("years = %q, want requested range", md.Years)
	}
	if len(md.Indicators) != 2 {
		t.Errorf("indicators metadata should always be present: %v", md.Indicators)
	}
}

func TestGetIndicatorForAPI(t *testing.T) {
	f := newTestFetcher(&fakeProvider{
		economies: testEconomies,
		tables:    map[string]*worldbank.Table{models.GDPIndicatorCode: gdpTable()},
	})

	payload, err := f.GetIndicatorForAPI(context.Background(), models.GDPIndicator, nil, 1990, 0)
	if err != nil {
		t.Fatalf("GetIndicatorForAPI() error = %v", err)
	}

	md := payload.Metadata
	if md.TotalRecords != 4 || md.Countries != 2 {
		t.Errorf("unexpected counts %+v", md)
	}
	if md.Years != "1990-2024" {
		t.Errorf("years = %q, want requested range", md.Years)
	}
	if md.Indicator == nil || md.Indicator.Code != models.GDPIndicatorCode {
		t.Errorf("indicator metadata = %+v", md.Indicator)
	}
	if md.Indicators != nil {
		t.Error("single indicator payload should not carry the indicators map")
	}
}
