package metrics

import (
	"testing"
	"time"
)

func TestTimingMetricRecord(t *testing.T) {
	m := newTimingMetric("test")
	m.Record(2 * time.Millisecond)
	m.Record(4 * time.Millisecond)

	s := m.Stats()
	if s.Count != 2 {
		t.Fatalf("count = %d, want 2", s.Count)
	}
	if s.AvgMs != 3 {
		t.Errorf("avg = %v, want 3", s.AvgMs)
	}
	if s.MaxMs != 4 || s.MinMs != 2 {
		t.Errorf("max/min = %v/%v, want 4/2", s.MaxMs, s.MinMs)
	}

	m.Reset()
	if m.Count() != 0 {
		t.Errorf("count after reset = %d", m.Count())
	}
}

func TestTimerDisabled(t *testing.T) {
	SetEnabled(false)
	defer SetEnabled(true)

	m := newTimingMetric("off")
	Timer(m)()
	if m.Count() != 0 {
		t.Errorf("disabled timer recorded %d samples", m.Count())
	}
}

func TestAllTimingStatsSkipsEmpty(t *testing.T) {
	ResetAll()
	defer ResetAll()

	Timer(LayoutCompute)()
	stats := AllTimingStats()
	if len(stats) != 1 || stats[0].Name != "layout_compute" {
		t.Errorf("AllTimingStats = %+v", stats)
	}
}

func TestCacheMetric(t *testing.T) {
	c := newCacheMetric("memo")
	if c.HitRate() != 0 {
		t.Error("empty hit rate should be 0")
	}
	c.Hit()
	c.Hit()
	c.Hit()
	c.Miss()
	if c.HitRate() != 0.75 {
		t.Errorf("hit rate = %v, want 0.75", c.HitRate())
	}
	c.Reset()
	if c.Hits() != 0 || c.Misses() != 0 {
		t.Error("reset did not clear counters")
	}
}

func TestLookup(t *testing.T) {
	m, ok := Lookup("svg_render")
	if !ok || m != SVGRender {
		t.Errorf("Lookup(svg_render) = %v, %v", m, ok)
	}
	if _, ok := Lookup("nope"); ok {
		t.Error("unknown metric found")
	}
	if len(AllTimingMetrics()) != 8 {
		t.Errorf("metrics = %d", len(AllTimingMetrics()))
	}
}
