package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"co2gdp-api/internal/config"
	"co2gdp-api/internal/models"
	"co2gdp-api/internal/observability"
	"co2gdp-api/internal/services"
)

const economiesPage = `[
  {"page":1,"pages":1,"per_page":"1000","total":3},
  [
    {"id":"USA","name":"United States","region":{"id":"NAC","value":"North America"},"incomeLevel":{"id":"HIC","value":"High income"}},
    {"id":"CHN","name":"China","region":{"id":"EAS","value":"East Asia & Pacific"},"incomeLevel":{"id":"UMC","value":"Upper middle income"}},
    {"id":"WLD","name":"World","region":{"id":"NA","value":"Aggregates"},"incomeLevel":{"id":"NA","value":"Aggregates"}}
  ]
]`

// indicatorPages holds one page of observations per indicator code.
var indicatorPages = map[string]string{
	models.CO2IndicatorCode: `[{"page":1,"pages":1,"per_page":1000,"total":5},[
	  {"countryiso3code":"USA","date":"2021","value":14.9},
	  {"countryiso3code":"USA","date":"2020","value":13.0},
	  {"countryiso3code":"CHN","date":"2021","value":8.0},
	  {"countryiso3code":"CHN","date":"2020","value":null},
	  {"countryiso3code":"WLD","date":"2021","value":4.5}
	]]`,
	models.GDPIndicatorCode: `[{"page":1,"pages":1,"per_page":1000,"total":5},[
	  {"countryiso3code":"USA","date":"2021","value":70248.6},
	  {"countryiso3code":"USA","date":"2020","value":63528.6},
	  {"countryiso3code":"CHN","date":"2021","value":12556.3},
	  {"countryiso3code":"CHN","date":"2020","value":10408.7},
	  {"countryiso3code":"WLD","date":"2021","value":12236.6}
	]]`,
}

// invalidValuePayload is what the API sends, with HTTP 200, for an unknown
// economy code.
const invalidValuePayload = `[{"message":[{"id":"120","key":"Invalid value","value":"The provided parameter value is not valid"}]}]`

func fakeWorldBank(t *testing.T, down *atomic.Bool) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if down != nil && down.Load() {
			http.Error(w, "service unavailable", http.StatusServiceUnavailable)
			return
		}
		if strings.Contains(r.URL.Path, "/country/ZZZ") {
			io.WriteString(w, invalidValuePayload)
			return
		}
		if r.URL.Path == "/country" {
			io.WriteString(w, economiesPage)
			return
		}
		for code, page := range indicatorPages {
			if strings.HasSuffix(r.URL.Path, "/indicator/"+code) {
				io.WriteString(w, page)
				return
			}
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		Security: config.SecurityConfig{AllowedOrigins: []string{"*"}},
		Upstream: config.UpstreamConfig{
			BaseURL:        baseURL,
			Timeout:        5 * time.Second,
			PageSize:       1000,
			MaxConcurrency: 2,
			RateLimitRPS:   1000,
			RateLimitBurst: 100,
		},
	}
}

type testApp struct {
	handler http.Handler
	metrics *observability.Metrics
}

func newTestApp(t *testing.T, cfg *config.Config) *testApp {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetrics()
	provider, _ := newProvider(cfg, metrics, logger)
	fetcher := services.NewIndicatorFetcher(provider, logger)
	return &testApp{
		handler: newHandler(cfg, fetcher, metrics, logger),
		metrics: metrics,
	}
}

func (a *testApp) get(path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

// Integration tests for HTTP routes
func TestServer_Routes(t *testing.T) {
	app := newTestApp(t, testConfig(fakeWorldBank(t, nil).URL))

	tests := []struct {
		path           string
		expectedStatus int
		contentType    string
	}{
		{"/", http.StatusOK, "application/json"},
		{"/api/countries", http.StatusOK, "application/json"},
		{"/api/data", http.StatusOK, "application/json"},
		{"/api/data/co2", http.StatusOK, "application/json"},
		{"/api/data/gdp", http.StatusOK, "application/json"},
		{"/api/indicators", http.StatusOK, "application/json"},
		{"/api/nonexistent", http.StatusNotFound, "application/json"},
		{"/dashboard", http.StatusOK, "text/html"},
		{"/metrics", http.StatusOK, "text/plain"},
		{"/sse/countries", http.StatusOK, "text/event-stream"},
		{"/sse/data?countries=USA", http.StatusOK, "text/event-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := app.get(tt.path)

			if w.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.expectedStatus)
			}

			ct := w.Header().Get("Content-Type")
			if !strings.Contains(ct, tt.contentType) {
				t.Errorf("content-type = %q, want %q", ct, tt.contentType)
			}

			if tt.contentType == "application/json" {
				var result any
				if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
					t.Errorf("invalid json: %v", err)
				}
			}

			if w.Header().Get("X-Request-ID") == "" {
				t.Error("every response should carry a request id")
			}
			if w.Header().Get("Access-Control-Allow-Origin") != "*" {
				t.Error("CORS should be open by default")
			}
		})
	}
}

func TestServer_CombinedData(t *testing.T) {
	app := newTestApp(t, testConfig(fakeWorldBank(t, nil).URL))

	w := app.get("/api/data?countries=usa,chn,wld&start_year=2020&end_year=2021")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var payload models.CombinedPayload
	if err := json.NewDecoder(w.Body).Decode(&payload); err != nil {
		t.Fatal(err)
	}

	// CHN 2020 has no CO2 value and WLD is an aggregate.
	if len(payload.Data) != 3 {
		t.Fatalf("expected 3 combined rows, got %+v", payload.Data)
	}
	for _, r := range payload.Data {
		if r.CountryCode == "WLD" {
			t.Error("aggregate leaked into combined data")
		}
		if r.CountryName == "" {
			t.Errorf("country name missing for %s", r.CountryCode)
		}
		if r.Year < 2020 || r.Year > 2021 {
			t.Errorf("year %d outside requested range", r.Year)
		}
	}
	if payload.Data[0].Year != 2020 || payload.Data[0].CountryCode != "USA" {
		t.Errorf("rows should be ordered year first: %+v", payload.Data)
	}

	md := payload.Metadata
	if md.TotalRecords != 3 || md.Countries != 2 || md.Years != "2020-2021" {
		t.Errorf("unexpected metadata %+v", md)
	}
	if len(md.Indicators) != 2 {
		t.Errorf("indicators metadata = %v", md.Indicators)
	}
}

func TestServer_UpstreamDown(t *testing.T) {
	var down atomic.Bool
	down.Store(true)
	app := newTestApp(t, testConfig(fakeWorldBank(t, &down).URL))

	tests := []struct {
		path  string
		title string
	}{
		{"/api/countries", "Failed to fetch countries"},
		{"/api/data", "Failed to fetch data"},
		{"/api/data/co2", "Failed to fetch CO2 data"},
		{"/api/data/gdp", "Failed to fetch GDP data"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := app.get(tt.path)
			if w.Code != http.StatusInternalServerError {
				t.Fatalf("status = %d, want 500", w.Code)
			}

			var body map[string]any
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if body["error"] != tt.title {
				t.Errorf("error = %v, want %q", body["error"], tt.title)
			}
			if msg, _ := body["message"].(string); strings.Contains(msg, "503") {
				t.Errorf("upstream detail leaked: %q", msg)
			}
		})
	}
}

func TestServer_UnknownCountryCode(t *testing.T) {
	app := newTestApp(t, testConfig(fakeWorldBank(t, nil).URL))

	tests := []struct {
		path  string
		title string
	}{
		{"/api/data?countries=zzz", "Failed to fetch data"},
		{"/api/data/co2?countries=zzz", "Failed to fetch CO2 data"},
		{"/api/data/gdp?countries=zzz", "Failed to fetch GDP data"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := app.get(tt.path)
			if w.Code != http.StatusInternalServerError {
				t.Fatalf("status = %d, want 500", w.Code)
			}

			var body map[string]any
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if body["error"] != tt.title {
				t.Errorf("error = %v, want %q", body["error"], tt.title)
			}
		})
	}
}

func TestServer_MetricsRecorded(t *testing.T) {
	app := newTestApp(t, testConfig(fakeWorldBank(t, nil).URL))

	app.get("/api/countries")
	app.get("/api/countries")
	app.get("/api/nonexistent")

	body := app.get("/metrics").Body.String()
	for _, want := range []string{
		fmt.Sprintf(`%s{method="GET",route="GET /api/countries",status="200"} 2`, observability.MetricHTTPRequests),
		fmt.Sprintf(`%s{method="GET",route="/",status="404"} 1`, observability.MetricHTTPRequests),
		observability.MetricUpstreamRequests,
		observability.MetricUpstreamDuration,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q:\n%s", want, body)
		}
	}
}

func TestNewProvider_Cache(t *testing.T) {
	var calls atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		io.WriteString(w, economiesPage)
	}))
	defer upstream.Close()

	cfg := testConfig(upstream.URL)
	cfg.Upstream.CacheTTL = time.Minute
	app := newTestApp(t, cfg)

	for range 3 {
		if w := app.get("/api/countries"); w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("upstream calls = %d, want 1 with caching enabled", calls.Load())
	}

	_, cache := newProvider(testConfig(upstream.URL), observability.NewMetrics(), slog.Default())
	if cache != nil {
		t.Error("zero TTL should not build a cache")
	}
}

func TestDashboardHandler(t *testing.T) {
	fetcher := services.NewIndicatorFetcher(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	w := httptest.NewRecorder()
	dashboardHandler(fetcher)(w, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if cc := w.Header().Get("Cache-Control"); cc != cacheMaxAge {
		t.Errorf("cache-control = %q", cc)
	}

	body := w.Body.String()
	if !strings.Contains(body, "CO2-GDP Visualization API") {
		t.Error("dashboard should contain title")
	}
	if !strings.Contains(body, fmt.Sprintf("endYear: %d", time.Now().Year())) {
		t.Error("dashboard should default the end year to the current year")
	}
}
