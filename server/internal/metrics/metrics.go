package metrics

import (
	"log/slog"
	"net/http"
	"sort"
	"sync"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"
)

const namespace = "reportdesk"

// Export results.
const (
	ResultOK      = "ok"
	ResultInvalid = "invalid"
	ResultExpired = "expired"
	ResultError   = "error"
)

type exportKey struct {
	format, mode, result string
}

// Collector accumulates counters. The zero value is not usable; call New.
// Collector is safe for concurrent use.
type Collector struct {
	mu        sync.Mutex
	exports   map[exportKey]float64
	evictions map[string]float64

	gauges func() (sessions, entries int)
}

// New creates a Collector. gauges, if non-nil, is called on every scrape to
// read the live cache size.
func New(gauges func() (sessions, entries int)) *Collector {
	return &Collector{
		exports:   make(map[exportKey]float64),
		evictions: make(map[string]float64),
		gauges:    gauges,
	}
}

// ObserveExport counts one export attempt.
func (c *Collector) ObserveExport(format, mode, result string) {
	c.mu.Lock()
	c.exports[exportKey{format, mode, result}]++
	c.mu.Unlock()
}

// ObserveEviction counts cache entries dropped for capacity and sessions
// dropped by a sweep. Its signature matches store.Registry.OnEvict.
func (c *Collector) ObserveEviction(entries, sessions int) {
	c.mu.Lock()
	c.evictions["entry"] += float64(entries)
	c.evictions["session"] += float64(sessions)
	c.mu.Unlock()
}

// Exports returns the current count for one label set.
func (c *Collector) Exports(format, mode, result string) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exports[exportKey{format, mode, result}]
}

// Gather returns all metric families, sorted by name. The export family is
// omitted until the first export is observed.
func (c *Collector) Gather() []*dto.MetricFamily {
	c.mu.Lock()
	exports := &dto.MetricFamily{
		Name: proto.String(namespace + "_exports_total"),
		Help: proto.String("Report exports by format, mode and result."),
		Type: dto.MetricType_COUNTER.Enum(),
	}
	keys := make([]exportKey, 0, len(c.exports))
	for k := range c.exports {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.format != b.format {
			return a.format < b.format
		}
		if a.mode != b.mode {
			return a.mode < b.mode
		}
		return a.result < b.result
	})
	for _, k := range keys {
		exports.Metric = append(exports.Metric, &dto.Metric{
			Label: []*dto.LabelPair{
				label("format", k.format),
				label("mode", k.mode),
				label("result", k.result),
			},
			Counter: &dto.Counter{Value: proto.Float64(c.exports[k])},
		})
	}

	evictions := &dto.MetricFamily{
		Name: proto.String(namespace + "_cache_evictions_total"),
		Help: proto.String("Cache entries evicted for capacity and sessions swept for idleness."),
		Type: dto.MetricType_COUNTER.Enum(),
	}
	for _, kind := range []string{"entry", "session"} {
		evictions.Metric = append(evictions.Metric, &dto.Metric{
			Label:   []*dto.LabelPair{label("kind", kind)},
			Counter: &dto.Counter{Value: proto.Float64(c.evictions[kind])},
		})
	}
	c.mu.Unlock()

	out := []*dto.MetricFamily{evictions}
	if c.gauges != nil {
		sessions, entries := c.gauges()
		out = append(out,
			gauge(namespace+"_cache_entries", "Cached objects across all sessions.", float64(entries)),
			gauge(namespace+"_cache_sessions", "Sessions holding a cache store.", float64(sessions)),
		)
	}
	// The text format rejects families without samples.
	if len(exports.Metric) > 0 {
		out = append(out, exports)
	}
	return out
}

// ServeHTTP writes all families in the Prometheus text format.
func (c *Collector) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	format := expfmt.NewFormat(expfmt.TypeTextPlain)
	w.Header().Set("Content-Type", string(format))
	enc := expfmt.NewEncoder(w, format)
	for _, mf := range c.Gather() {
		if err := enc.Encode(mf); err != nil {
			slog.Error("metrics: encode failed", "family", mf.GetName(), "err", err)
			return
		}
	}
}

func label(name, value string) *dto.LabelPair {
	return &dto.LabelPair{Name: proto.String(name), Value: proto.String(value)}
}

func gauge(name, help string, v float64) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name:   proto.String(name),
		Help:   proto.String(help),
		Type:   dto.MetricType_GAUGE.Enum(),
		Metric: []*dto.Metric{{Gauge: &dto.Gauge{Value: proto.Float64(v)}}},
	}
}
