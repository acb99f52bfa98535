package handlers

import (
	"cmp"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/starfederation/datastar-go/datastar"

	"co2gdp-api/internal/models"
	"co2gdp-api/internal/observability"
)

const maxTableRows = 50

var summaryTableTemplate = template.Must(template.New("summaryTable").Parse(`
<div id="data-summary">
<p class="summary-meta">{{.Metadata.TotalRecords}} records · {{.Metadata.Countries}} countries · {{.Metadata.Years}}</p>
<table class="modern-table">
<thead><tr><th>Country</th><th>Years</th><th>Latest year</th><th>CO2 (t/capita)</th><th>GDP per capita (US$)</th></tr></thead>
<tbody>
{{range .Rows}}<tr>
<td><strong>{{.CountryName}}</strong> <span class="code-badge">{{.CountryCode}}</span></td>
<td>{{.Years}}</td>
<td>{{.LatestYear}}</td>
<td>{{printf "%.2f" .CO2Emissions}}</td>
<td>${{printf "%.0f" .GDPPerCapita}}</td>
</tr>{{else}}<tr><td colspan="5">No data for this selection</td></tr>{{end}}
</tbody>
</table>
</div>`))

var countryPickerTemplate = template.Must(template.New("countryPicker").Parse(`
<select id="country-picker" multiple data-bind-countries>
{{range .}}<option value="{{.Code}}">{{.Name}}</option>
{{end}}</select>`))

var errorPanelTemplate = template.Must(template.New("errorPanel").Parse(`
<div id="{{.Target}}" class="error-panel">{{.Title}}: {{.Message}}</div>`))

type SSEHandlers struct {
	data   DataService
	logger *slog.Logger
}

func NewSSEHandlers(data DataService, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		data:   data,
		logger: logger,
	}
}

// countrySummary is the latest combined observation for one country.
type countrySummary struct {
	CountryCode  string
	CountryName  string
	Years        int
	LatestYear   int
	CO2Emissions float64
	GDPPerCapita float64
}

type summaryData struct {
	Metadata models.Metadata
	Rows     []countrySummary
}

func summarize(records []models.CombinedRecord) []countrySummary {
	byCode := make(map[string]*countrySummary)
	for _, r := range records {
		s, ok := byCode[r.CountryCode]
		if !ok {
			s = &countrySummary{CountryCode: r.CountryCode, CountryName: r.CountryName}
			byCode[r.CountryCode] = s
		}
		s.Years++
		if r.Year >= s.LatestYear {
			s.LatestYear = r.Year
			s.CO2Emissions = r.CO2Emissions
			s.GDPPerCapita = r.GDPPerCapita
		}
	}

	rows := make([]countrySummary, 0, len(byCode))
	for _, s := range byCode {
		rows = append(rows, *s)
	}
	slices.SortFunc(rows, func(a, b countrySummary) int {
		return cmp.Or(cmp.Compare(a.CountryName, b.CountryName), cmp.Compare(a.CountryCode, b.CountryCode))
	})
	if len(rows) > maxTableRows {
		rows = rows[:maxTableRows]
	}
	return rows
}

func (h *SSEHandlers) renderSummary(payload *models.CombinedPayload) (string, error) {
	var buf strings.Builder
	err := summaryTableTemplate.Execute(&buf, summaryData{
		Metadata: payload.Metadata,
		Rows:     summarize(payload.Data),
	})
	return buf.String(), err
}

func (h *SSEHandlers) patchError(sse *datastar.ServerSentEventGenerator, target, title, message string) {
	var buf strings.Builder
	if err := errorPanelTemplate.Execute(&buf, map[string]string{
		"Target":  target,
		"Title":   title,
		"Message": message,
	}); err != nil {
		h.logger.Error("render error panel", "error", err)
		return
	}
	if err := sse.PatchElements(buf.String()); err != nil {
		h.logger.Error("patch error panel", "error", err)
	}
}

// HandleData streams the combined series for the query as chart signals and
// a per-country summary table. Query validation happens before the stream
// opens so bad input still gets a JSON 400.
func (h *SSEHandlers) HandleData(w http.ResponseWriter, r *http.Request) {
	q, err := parseDataQuery(r, h.data.CurrentYear())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	sse := datastar.NewSSE(w, r)

	payload, err := h.data.GetForAPI(r.Context(), q.Countries, q.StartYear, q.EndYear)
	if err != nil {
		h.logger.Error("fetch combined data for stream",
			"error", err,
			"request_id", observability.GetRequestID(r.Context()),
		)
		h.patchError(sse, "data-summary", "Failed to fetch data", genericFailureMessage)
		flush(w)
		return
	}

	signals, err := json.Marshal(map[string]any{
		"chartData": payload.Data,
		"metadata":  payload.Metadata,
	})
	if err != nil {
		h.logger.Error("marshal chart signals", "error", err)
		return
	}
	if err := sse.PatchSignals(signals); err != nil {
		h.logger.Error("patch chart signals", "error", err)
		return
	}

	html, err := h.renderSummary(payload)
	if err != nil {
		h.logger.Error("render summary table", "error", err)
		return
	}
	if err := sse.PatchElements(html); err != nil {
		h.logger.Error("patch summary table", "error", err)
	}

	flush(w)
}

// HandleCountries streams the country picker options.
func (h *SSEHandlers) HandleCountries(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	countries, err := h.data.ListCountries(r.Context())
	if err != nil {
		h.logger.Error("fetch countries for stream",
			"error", err,
			"request_id", observability.GetRequestID(r.Context()),
		)
		h.patchError(sse, "country-picker", "Failed to fetch countries", genericFailureMessage)
		flush(w)
		return
	}

	var buf strings.Builder
	if err := countryPickerTemplate.Execute(&buf, countries); err != nil {
		h.logger.Error("render country picker", "error", err)
		return
	}
	if err := sse.PatchElements(buf.String()); err != nil {
		h.logger.Error("patch country picker", "error", err)
	}

	flush(w)
}

func flush(w http.ResponseWriter) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
