package services

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"co2gdp-api/internal/errors"
	"co2gdp-api/internal/models"
	"co2gdp-api/internal/worldbank"
)

const (
	DefaultStartYear = 1990
	MinYear          = 1960

	upstreamFailureMessage = "The statistical data provider request failed"
)

// Provider is the upstream statistical data source.
type Provider interface {
	Economies(ctx context.Context) ([]worldbank.Economy, error)
	Indicator(ctx context.Context, q worldbank.Query) (*worldbank.Table, error)
}

// IndicatorFetcher runs the fetch → melt → clean → merge → format pipeline.
// It holds no per-request state; every call goes to the provider.
type IndicatorFetcher struct {
	provider Provider
	logger   *slog.Logger
	now      func() time.Time
}

func NewIndicatorFetcher(provider Provider, logger *slog.Logger) *IndicatorFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &IndicatorFetcher{
		provider: provider,
		logger:   logger,
		now:      time.Now,
	}
}

func (f *IndicatorFetcher) CurrentYear() int {
	return f.now().Year()
}

// ListCountries returns real countries (aggregates removed) sorted by name.
func (f *IndicatorFetcher) ListCountries(ctx context.Context) ([]models.Country, error) {
	f.logger.Info("fetching countries list")

	economies, err := f.provider.Economies(ctx)
	if err != nil {
		return nil, errors.Upstream(fmt.Errorf("list countries: %w", err), upstreamFailureMessage)
	}

	countries := make([]models.Country, 0, len(economies))
	for _, e := range economies {
		if e.IsAggregate() {
			continue
		}
		countries = append(countries, models.Country{Code: e.ID, Name: e.Name})
	}

	slices.SortStableFunc(countries, func(a, b models.Country) int {
		return cmp.Compare(a.Name, b.Name)
	})

	f.logger.Info("retrieved countries", "count", len(countries))
	return countries, nil
}

// economyIndex is one economy listing shared by every indicator fetched for
// a request: display names for all economies and the non-aggregate ids.
type economyIndex struct {
	names     map[string]string
	countries map[string]bool
}

func (f *IndicatorFetcher) listEconomies(ctx context.Context) (*economyIndex, error) {
	economies, err := f.provider.Economies(ctx)
	if err != nil {
		return nil, errors.Upstream(fmt.Errorf("list economies: %w", err), upstreamFailureMessage)
	}

	idx := &economyIndex{
		names:     make(map[string]string, len(economies)),
		countries: make(map[string]bool, len(economies)),
	}
	for _, e := range economies {
		idx.names[e.ID] = e.Name
		if !e.IsAggregate() {
			idx.countries[e.ID] = true
		}
	}
	return idx, nil
}

// FetchIndicator returns the long-form series for one indicator over
// [start, end]. An end of zero means the current year. A nil countries slice
// selects every economy.
func (f *IndicatorFetcher) FetchIndicator(ctx context.Context, code string, countries []string, start, end int) ([]models.IndicatorRecord, error) {
	if end == 0 {
		end = f.CurrentYear()
	}

	idx, err := f.listEconomies(ctx)
	if err != nil {
		return nil, err
	}
	return f.fetchIndicator(ctx, idx, code, countries, start, end)
}

func (f *IndicatorFetcher) fetchIndicator(ctx context.Context, idx *economyIndex, code string, countries []string, start, end int) ([]models.IndicatorRecord, error) {
	f.logger.Info("fetching indicator", "indicator", code, "start_year", start, "end_year", end, "countries", countries)

	table, err := f.provider.Indicator(ctx, worldbank.Query{
		Code:           code,
		Economies:      countries,
		Start:          start,
		End:            end,
		SkipAggregates: true,
		SkipBlanks:     true,
		Countries:      idx.countries,
	})
	if err != nil {
		return nil, errors.Upstream(fmt.Errorf("fetch indicator %s: %w", code, err), upstreamFailureMessage)
	}

	if table.Empty() {
		f.logger.Warn("no data found for indicator", "indicator", code)
		return []models.IndicatorRecord{}, nil
	}

	records := Melt(table, idx.names)
	f.logger.Info("retrieved data points", "indicator", code, "count", len(records))
	return records, nil
}

func (f *IndicatorFetcher) FetchCO2(ctx context.Context, countries []string, start, end int) ([]models.IndicatorRecord, error) {
	return f.FetchIndicator(ctx, models.CO2IndicatorCode, countries, start, end)
}

func (f *IndicatorFetcher) FetchGDP(ctx context.Context, countries []string, start, end int) ([]models.IndicatorRecord, error) {
	return f.FetchIndicator(ctx, models.GDPIndicatorCode, countries, start, end)
}

// FetchCombined joins CO2 and GDP for the same country-years. Either series
// being empty yields an empty result rather than an error.
func (f *IndicatorFetcher) FetchCombined(ctx context.Context, countries []string, start, end int) ([]models.CombinedRecord, error) {
	if end == 0 {
		end = f.CurrentYear()
	}

	f.logger.Info("fetching combined CO2 and GDP data")

	idx, err := f.listEconomies(ctx)
	if err != nil {
		return nil, err
	}

	var co2, gdp []models.IndicatorRecord

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		co2, err = f.fetchIndicator(gctx, idx, models.CO2IndicatorCode, countries, start, end)
		return err
	})
	g.Go(func() error {
		var err error
		gdp, err = f.fetchIndicator(gctx, idx, models.GDPIndicatorCode, countries, start, end)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(co2) == 0 || len(gdp) == 0 {
		f.logger.Warn("one or both datasets are empty", "co2_records", len(co2), "gdp_records", len(gdp))
		return []models.CombinedRecord{}, nil
	}

	combined := Merge(co2, gdp)
	f.logger.Info("combined dataset built", "count", len(combined))
	return combined, nil
}

// GetForAPI wraps FetchCombined in the /api/data envelope. The years field
// reports the span actually present in the data, falling back to the
// requested range when there is none.
func (f *IndicatorFetcher) GetForAPI(ctx context.Context, countries []string, start, end int) (*models.CombinedPayload, error) {
	combined, err := f.FetchCombined(ctx, countries, start, end)
	if err != nil {
		return nil, err
	}

	years := f.requestedYears(start, end)
	if lo, hi, ok := yearSpan(combined, func(r models.CombinedRecord) int { return r.Year }); ok {
		years = fmt.Sprintf("%d-%d", lo, hi)
	}

	return &models.CombinedPayload{
		Data: combined,
		Metadata: models.Metadata{
			TotalRecords: len(combined),
			Countries:    distinctCountries(combined, func(r models.CombinedRecord) string { return r.CountryCode }),
			Years:        years,
			Indicators: map[string]models.IndicatorInfo{
				"co2": models.CO2Indicator.Info(),
				"gdp": models.GDPIndicator.Info(),
			},
			LastUpdated: f.timestamp(),
		},
	}, nil
}

// GetIndicatorForAPI wraps a single-indicator fetch in the /api/data/co2 and
// /api/data/gdp envelope. Its years field is always the requested range.
func (f *IndicatorFetcher) GetIndicatorForAPI(ctx context.Context, indicator models.IndicatorDescriptor, countries []string, start, end int) (*models.IndicatorPayload, error) {
	records, err := f.FetchIndicator(ctx, indicator.Code, countries, start, end)
	if err != nil {
		return nil, err
	}

	info := indicator.Info()
	return &models.IndicatorPayload{
		Data: records,
		Metadata: models.Metadata{
			TotalRecords: len(records),
			Countries:    distinctCountries(records, func(r models.IndicatorRecord) string { return r.CountryCode }),
			Years:        f.requestedYears(start, end),
			Indicator:    &info,
			LastUpdated:  f.timestamp(),
		},
	}, nil
}

func (f *IndicatorFetcher) requestedYears(start, end int) string {
	if end == 0 {
		end = f.CurrentYear()
	}
	return fmt.Sprintf("%d-%d", start, end)
}

func (f *IndicatorFetcher) timestamp() string {
	return f.now().Format(time.RFC3339)
}
