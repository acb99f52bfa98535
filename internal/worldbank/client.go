// Package worldbank is a client for the World Bank Indicators API (v2).
//
// It lists economies and fetches indicator series, returning them in the
// wide economy × year shape the fetch pipeline melts into records. Requests
// are paced with a token bucket and every call is recorded as an upstream
// metric. Nothing is retried.
package worldbank

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"co2gdp-api/internal/config"
	"co2gdp-api/internal/observability"
)

const (
	// sourceWDI is the World Development Indicators database.
	sourceWDI = "2"

	endpointEconomies = "economies"
	endpointIndicator = "indicator"

	maxErrorBody = 4 << 10
)

type Client struct {
	baseURL        string
	http           *http.Client
	limiter        *rate.Limiter
	pageSize       int
	maxConcurrency int
	metrics        *observability.Metrics
	logger         *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithMetrics(m *observability.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func New(cfg config.UpstreamConfig, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		http:           &http.Client{Timeout: cfg.Timeout},
		limiter:        rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst),
		pageSize:       cfg.PageSize,
		maxConcurrency: cfg.MaxConcurrency,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Economies returns every economy the provider knows, aggregates included.
func (c *Client) Economies(ctx context.Context) ([]Economy, error) {
	pages, err := c.fetchAll(ctx, endpointEconomies, "/country", url.Values{})
	if err != nil {
		return nil, fmt.Errorf("list economies: %w", err)
	}

	var economies []Economy
	for _, page := range pages {
		var items []economyJSON
		if err := json.Unmarshal(page, &items); err != nil {
			return nil, fmt.Errorf("list economies: decode page: %w", err)
		}
		for _, item := range items {
			economies = append(economies, item.toEconomy())
		}
	}
	return economies, nil
}

// Indicator fetches one indicator series as a wide table.
func (c *Client) Indicator(ctx context.Context, q Query) (*Table, error) {
	if q.Code == "" {
		return nil, fmt.Errorf("indicator: empty code")
	}
	if q.End < q.Start {
		return nil, fmt.Errorf("indicator %s: end year %d before start year %d", q.Code, q.End, q.Start)
	}

	params := url.Values{}
	params.Set("date", fmt.Sprintf("%d:%d", q.Start, q.End))
	params.Set("source", sourceWDI)
	path := "/country/" + economyPath(q.Economies) + "/indicator/" + url.PathEscape(q.Code)

	var (
		pages     []json.RawMessage
		countries map[string]bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		pages, err = c.fetchAll(gctx, endpointIndicator, path, params)
		return err
	})
	switch {
	case q.SkipAggregates && q.Countries != nil:
		countries = q.Countries
	case q.SkipAggregates:
		g.Go(func() error {
			economies, err := c.Economies(gctx)
			if err != nil {
				return err
			}
			countries = make(map[string]bool, len(economies))
			for _, e := range economies {
				if !e.IsAggregate() {
					countries[e.ID] = true
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("indicator %s: %w", q.Code, err)
	}

	var observations []observationJSON
	for _, page := range pages {
		var items []observationJSON
		if err := json.Unmarshal(page, &items); err != nil {
			return nil, fmt.Errorf("indicator %s: decode page: %w", q.Code, err)
		}
		observations = append(observations, items...)
	}

	return buildTable(observations, q, countries), nil
}

// buildTable pivots observations into a table with rows ordered by economy
// id and columns by year. A nil countries set keeps every economy.
func buildTable(observations []observationJSON, q Query, countries map[string]bool) *Table {
	years := make(map[int]bool)
	cells := make(map[string]map[int]string)

	for _, obs := range observations {
		econ := obs.economy()
		if econ == "" {
			continue
		}
		if countries != nil && !countries[econ] {
			continue
		}
		year, err := strconv.Atoi(strings.TrimSpace(obs.Date))
		if err != nil || year < q.Start || year > q.End {
			continue
		}
		years[year] = true
		if cells[econ] == nil {
			cells[econ] = make(map[int]string)
		}
		cells[econ][year] = cellText(obs.Value)
	}

	sortedYears := make([]int, 0, len(years))
	for y := range years {
		sortedYears = append(sortedYears, y)
	}
	slices.Sort(sortedYears)

	economies := make([]string, 0, len(cells))
	for e := range cells {
		economies = append(economies, e)
	}
	slices.Sort(economies)

	table := &Table{Columns: make([]string, len(sortedYears))}
	for i, y := range sortedYears {
		table.Columns[i] = YearColumn(y)
	}

	for _, econ := range economies {
		row := Row{Economy: econ, Cells: make([]string, len(sortedYears))}
		blank := true
		for i, y := range sortedYears {
			row.Cells[i] = cells[econ][y]
			if row.Cells[i] != "" {
				blank = false
			}
		}
		if q.SkipBlanks && blank {
			continue
		}
		table.Rows = append(table.Rows, row)
	}

	if q.SkipBlanks {
		table.dropBlankColumns()
	}
	return table
}

func (t *Table) dropBlankColumns() {
	keep := make([]int, 0, len(t.Columns))
	for i := range t.Columns {
		for _, row := range t.Rows {
			if row.Cells[i] != "" {
				keep = append(keep, i)
				break
			}
		}
	}
	if len(keep) == len(t.Columns) {
		return
	}

	columns := make([]string, len(keep))
	for j, i := range keep {
		columns[j] = t.Columns[i]
	}
	for r := range t.Rows {
		cells := make([]string, len(keep))
		for j, i := range keep {
			cells[j] = t.Rows[r].Cells[i]
		}
		t.Rows[r].Cells = cells
	}
	t.Columns = columns
}

func economyPath(codes []string) string {
	if len(codes) == 0 {
		return "all"
	}
	escaped := make([]string, len(codes))
	for i, code := range codes {
		escaped[i] = url.PathEscape(code)
	}
	return strings.Join(escaped, ";")
}

// fetchAll reads the first page to learn the page count, then the remaining
// pages concurrently. Pages are returned in order; a page whose data is null
// contributes nothing.
func (c *Client) fetchAll(ctx context.Context, endpoint, path string, params url.Values) ([]json.RawMessage, error) {
	meta, first, err := c.getPage(ctx, endpoint, path, params, 1)
	if err != nil {
		return nil, err
	}

	pageCount := int(meta.Pages)
	pages := make([]json.RawMessage, max(pageCount, 1))
	pages[0] = first

	if pageCount > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(c.maxConcurrency)

		for page := 2; page <= pageCount; page++ {
			g.Go(func() error {
				_, data, err := c.getPage(gctx, endpoint, path, params, page)
				if err != nil {
					return err
				}
				pages[page-1] = data
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	out := pages[:0]
	for _, p := range pages {
		if len(p) > 0 && string(p) != "null" {
			out = append(out, p)
		}
	}
	return out, nil
}

func (c *Client) getPage(ctx context.Context, endpoint, path string, params url.Values, page int) (meta pageMeta, data json.RawMessage, err error) {
	ctx, span := observability.StartSpan(ctx, "worldbank."+endpoint)
	span.SetTag("page", strconv.Itoa(page))
	defer func() {
		if err != nil {
			span.SetError(err)
		}
		elapsed := span.Finish()
		if c.metrics != nil {
			c.metrics.ObserveUpstream(endpoint, err, elapsed)
		}
		c.logger.Debug("upstream request", "span", span)
	}()

	if err = c.limiter.Wait(ctx); err != nil {
		return meta, nil, fmt.Errorf("rate limiter: %w", err)
	}

	query := url.Values{}
	for k, v := range params {
		query[k] = v
	}
	query.Set("format", "json")
	query.Set("per_page", strconv.Itoa(c.pageSize))
	query.Set("page", strconv.Itoa(page))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return meta, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return meta, nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()
	span.SetTag("http.status_code", strconv.Itoa(resp.StatusCode))

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return meta, nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var envelope []json.RawMessage
	if err = json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return meta, nil, fmt.Errorf("decode response: %w", err)
	}
	if len(envelope) == 0 {
		return meta, nil, fmt.Errorf("decode response: empty envelope")
	}

	var apiErr errorPayload
	if json.Unmarshal(envelope[0], &apiErr) == nil && len(apiErr.Message) > 0 {
		msgs := make([]string, len(apiErr.Message))
		for i, m := range apiErr.Message {
			msgs[i] = strings.TrimSpace(m.Key + ": " + m.Value)
		}
		return meta, nil, &APIError{Messages: msgs}
	}

	if err = json.Unmarshal(envelope[0], &meta); err != nil {
		return meta, nil, fmt.Errorf("decode page metadata: %w", err)
	}
	if len(envelope) > 1 {
		data = envelope[1]
	}

	c.logger.Debug("upstream page fetched",
		"endpoint", endpoint,
		"page", page,
		"pages", int(meta.Pages),
		"duration", time.Since(start),
	)
	return meta, data, nil
}
