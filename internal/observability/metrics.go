package observability

import (
	"io"
	"slices"
	"strconv"
	"sync"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"
)

const (
	MetricHTTPRequests     = "co2gdp_http_requests_total"
	MetricUpstreamRequests = "co2gdp_upstream_requests_total"
	MetricUpstreamDuration = "co2gdp_upstream_request_duration_seconds"
)

// TextContentType is the content type of the Prometheus text exposition.
var TextContentType = string(expfmt.NewFormat(expfmt.TypeTextPlain))

type requestKey struct {
	method, route, status string
}

type upstreamKey struct {
	endpoint, outcome string
}

type durationSummary struct {
	count uint64
	sum   float64
}

// Metrics is a small in-process registry rendered in the Prometheus text
// format. All methods are safe for concurrent use.
type Metrics struct {
	mu        sync.Mutex
	requests  map[requestKey]float64
	upstream  map[upstreamKey]float64
	durations map[string]*durationSummary
}

func NewMetrics() *Metrics {
	return &Metrics{
		requests:  make(map[requestKey]float64),
		upstream:  make(map[upstreamKey]float64),
		durations: make(map[string]*durationSummary),
	}
}

func (m *Metrics) ObserveRequest(method, route string, status int) {
	if route == "" {
		route = "unmatched"
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[requestKey{method: method, route: route, status: strconv.Itoa(status)}]++
}

func (m *Metrics) ObserveUpstream(endpoint string, err error, elapsed time.Duration) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.upstream[upstreamKey{endpoint: endpoint, outcome: outcome}]++

	s, ok := m.durations[endpoint]
	if !ok {
		s = &durationSummary{}
		m.durations[endpoint] = s
	}
	s.count++
	s.sum += elapsed.Seconds()
}

// Gather snapshots the registry as metric families. Families without samples
// are omitted; samples are ordered by their label values.
func (m *Metrics) Gather() []*dto.MetricFamily {
	m.mu.Lock()
	defer m.mu.Unlock()

	var families []*dto.MetricFamily

	if len(m.requests) > 0 {
		mf := &dto.MetricFamily{
			Name: proto.String(MetricHTTPRequests),
			Help: proto.String("HTTP requests served, by method, route pattern and status."),
			Type: dto.MetricType_COUNTER.Enum(),
		}
		for k, v := range m.requests {
			mf.Metric = append(mf.Metric, &dto.Metric{
				Label:   labels("method", k.method, "route", k.route, "status", k.status),
				Counter: &dto.Counter{Value: proto.Float64(v)},
			})
		}
		families = append(families, sortMetrics(mf))
	}

	if len(m.upstream) > 0 {
		mf := &dto.MetricFamily{
			Name: proto.String(MetricUpstreamRequests),
			Help: proto.String("Requests sent to the World Bank API, by endpoint and outcome."),
			Type: dto.MetricType_COUNTER.Enum(),
		}
		for k, v := range m.upstream {
			mf.Metric = append(mf.Metric, &dto.Metric{
				Label:   labels("endpoint", k.endpoint, "outcome", k.outcome),
				Counter: &dto.Counter{Value: proto.Float64(v)},
			})
		}
		families = append(families, sortMetrics(mf))
	}

	if len(m.durations) > 0 {
		mf := &dto.MetricFamily{
			Name: proto.String(MetricUpstreamDuration),
			Help: proto.String("Latency of World Bank API requests."),
			Type: dto.MetricType_SUMMARY.Enum(),
		}
		for endpoint, s := range m.durations {
			mf.Metric = append(mf.Metric, &dto.Metric{
				Label: labels("endpoint", endpoint),
				Summary: &dto.Summary{
					SampleCount: proto.Uint64(s.count),
					SampleSum:   proto.Float64(s.sum),
				},
			})
		}
		families = append(families, sortMetrics(mf))
	}

	return families
}

// WriteText renders the registry in the Prometheus text exposition format.
func (m *Metrics) WriteText(w io.Writer) error {
	for _, mf := range m.Gather() {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

func labels(pairs ...string) []*dto.LabelPair {
	out := make([]*dto.LabelPair, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, &dto.LabelPair{
			Name:  proto.String(pairs[i]),
			Value: proto.String(pairs[i+1]),
		})
	}
	return out
}

func sortMetrics(mf *dto.MetricFamily) *dto.MetricFamily {
	slices.SortFunc(mf.Metric, func(a, b *dto.Metric) int {
		return compareLabels(a.GetLabel(), b.GetLabel())
	})
	return mf
}

func compareLabels(a, b []*dto.LabelPair) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i].GetValue() < b[i].GetValue() {
			return -1
		}
		if a[i].GetValue() > b[i].GetValue() {
			return 1
		}
	}
	return len(a) - len(b)
}
