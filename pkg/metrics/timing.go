// Package metrics records timings for the load, layout and render passes
// and hit rates for the layout memo.
//
// Samples are kept in memory with atomic counters, so export workers can
// record concurrently. Collection is on unless THREATMAP_METRICS=0.
//
//	func layoutPass() {
//	    defer metrics.Timer(metrics.LayoutCompute)()
//	    ...
//	}
package metrics

import (
	"os"
	"sync/atomic"
	"time"
)

var enabled atomic.Bool

func init() {
	enabled.Store(os.Getenv("THREATMAP_METRICS") != "0")
}

// Enabled reports whether samples are being recorded.
func Enabled() bool { return enabled.Load() }

// SetEnabled switches collection on or off.
func SetEnabled(e bool) { enabled.Store(e) }

// TimingMetric accumulates durations for one named pass.
type TimingMetric struct {
	name  string
	count atomic.Int64
	total atomic.Int64
	max   atomic.Int64
	// min is zero until the first sample.
	min atomic.Int64
}

func newTimingMetric(name string) *TimingMetric {
	return &TimingMetric{name: name}
}

// Record adds one sample.
func (m *TimingMetric) Record(d time.Duration) {
	if !Enabled() {
		return
	}
	ns := int64(d)
	m.count.Add(1)
	m.total.Add(ns)
	for old := m.max.Load(); ns > old; old = m.max.Load() {
		if m.max.CompareAndSwap(old, ns) {
			break
		}
	}
	for old := m.min.Load(); old == 0 || ns < old; old = m.min.Load() {
		if m.min.CompareAndSwap(old, ns) {
			break
		}
	}
}

// Name returns the metric name.
func (m *TimingMetric) Name() string { return m.name }

// Count returns the number of samples.
func (m *TimingMetric) Count() int64 { return m.count.Load() }

// Stats snapshots the metric in milliseconds.
func (m *TimingMetric) Stats() TimingStats {
	s := TimingStats{
		Name:    m.name,
		Count:   m.count.Load(),
		TotalMs: ms(m.total.Load()),
		MaxMs:   ms(m.max.Load()),
		MinMs:   ms(m.min.Load()),
	}
	if s.Count > 0 {
		s.AvgMs = ms(m.total.Load() / s.Count)
	}
	return s
}

// Reset drops all samples.
func (m *TimingMetric) Reset() {
	m.count.Store(0)
	m.total.Store(0)
	m.max.Store(0)
	m.min.Store(0)
}

func ms(ns int64) float64 { return float64(ns) / float64(time.Millisecond) }

// TimingStats is a point-in-time view of a TimingMetric.
type TimingStats struct {
	Name    string  `json:"name"`
	Count   int64   `json:"count"`
	TotalMs float64 `json:"total_ms"`
	AvgMs   float64 `json:"avg_ms"`
	MaxMs   float64 `json:"max_ms"`
	MinMs   float64 `json:"min_ms,omitempty"`
}

// Timer starts timing m and returns the func that stops it.
func Timer(m *TimingMetric) func() {
	if m == nil || !Enabled() {
		return func() {}
	}
	start := time.Now()
	return func() { m.Record(time.Since(start)) }
}

// Pipeline passes, in the order a render runs them.
var (
	DatasetLoad        = newTimingMetric("dataset_load")
	CentralityCompute  = newTimingMetric("centrality_compute")
	NeighborhoodDerive = newTimingMetric("neighborhood_derive")
	LayoutCompute      = newTimingMetric("layout_compute")
	EdgeResolve        = newTimingMetric("edge_resolve")
	SVGRender          = newTimingMetric("svg_render")
	PNGRender          = newTimingMetric("png_render")
	HTMLRender         = newTimingMetric("html_render")

	timings = []*TimingMetric{
		DatasetLoad, CentralityCompute, NeighborhoodDerive, LayoutCompute,
		EdgeResolve, SVGRender, PNGRender, HTMLRender,
	}
)

// AllTimingMetrics returns the pipeline metrics in pass order.
func AllTimingMetrics() []*TimingMetric {
	return append([]*TimingMetric(nil), timings...)
}

// Lookup finds a timing metric by name.
func Lookup(name string) (*TimingMetric, bool) {
	for _, m := range timings {
		if m.name == name {
			return m, true
		}
	}
	return nil, false
}

// ResetAll clears every timing and cache metric.
func ResetAll() {
	for _, m := range timings {
		m.Reset()
	}
	for _, c := range AllCacheMetrics() {
		c.Reset()
	}
}

// AllTimingStats returns stats for the metrics that have samples.
func AllTimingStats() []TimingStats {
	var out []TimingStats
	for _, m := range timings {
		if m.Count() > 0 {
			out = append(out, m.Stats())
		}
	}
	return out
}
