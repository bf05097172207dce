package geometry

import (
	"math"
	"regexp"
	"testing"

	"github.com/vanderheijden86/threatmap/pkg/layout"
	"github.com/vanderheijden86/threatmap/pkg/model"
	"github.com/vanderheijden86/threatmap/pkg/theme"

	"pgregory.net/rapid"
)

const eps = 1e-9

func positioned(id string, x, y float64, fill string) layout.LayoutNode {
	return layout.LayoutNode{ID: id, X: x, Y: y, Node: &model.Node{ID: id, Fill: fill}}
}

func TestResolve_HorizontalEdge(t *testing.T) {
	l := layout.Layout{
		"A": positioned("A", 120, 300, "#e15759"),
		"B": positioned("B", 400, 300, "#4e79a7"),
	}
	gs := Resolve(l, []model.Edge{{ID: "e1", Source: "A", Target: "B", Size: 3}}, DefaultOptions())
	if len(gs) != 1 {
		t.Fatalf("expected 1 geometry, got %d", len(gs))
	}
	g := gs[0]
	if math.Abs(g.X1-140) > eps || math.Abs(g.Y1-300) > eps {
		t.Errorf("start = (%v, %v), want (140, 300)", g.X1, g.Y1)
	}
	if math.Abs(g.X2-375) > eps || math.Abs(g.Y2-300) > eps {
		t.Errorf("end = (%v, %v), want (375, 300)", g.X2, g.Y2)
	}
	if g.GradientID != "grad-e1" || g.MarkerID != "arrow-e1" {
		t.Errorf("ids = %s / %s", g.GradientID, g.MarkerID)
	}
	from, to := g.GradientStops()
	if from != "#e15759" || to != "#4e79a7" || g.ArrowColor() != "#4e79a7" {
		t.Errorf("colors = %s -> %s, arrow %s", from, to, g.ArrowColor())
	}
	if g.StrokeWidth() != 3 || g.Opacity() != 0.5 {
		t.Errorf("width %v opacity %v", g.StrokeWidth(), g.Opacity())
	}
}

func TestResolve_DropsMissingEndpoints(t *testing.T) {
	l := layout.Layout{"A": positioned("A", 0, 0, "")}
	gs := Resolve(l, []model.Edge{
		{ID: "e1", Source: "A", Target: "ghost"},
		{ID: "e2", Source: "ghost", Target: "A"},
	}, DefaultOptions())
	if len(gs) != 0 {
		t.Errorf("expected no geometry, got %d", len(gs))
	}
}

func TestResolve_AccentOverride(t *testing.T) {
	l := layout.Layout{
		"A": positioned("A", 0, 0, "#111111"),
		"B": positioned("B", 100, 0, "#222222"),
	}
	edges := []model.Edge{
		{ID: "hov", Source: "A", Target: "B"},
		{ID: "sel", Source: "A", Target: "B"},
		{ID: "plain", Source: "A", Target: "B"},
	}
	opts := DefaultOptions()
	opts.Hovered = "hov"
	opts.Highlighted = "sel"
	gs := Resolve(l, edges, opts)

	for _, g := range gs[:2] {
		from, to := g.GradientStops()
		if from != theme.DefaultAccent || to != theme.DefaultAccent || g.ArrowColor() != theme.DefaultAccent {
			t.Errorf("%s should be accented, got %s -> %s arrow %s", g.Edge.ID, from, to, g.ArrowColor())
		}
		if g.Opacity() != 1 {
			t.Errorf("%s opacity = %v", g.Edge.ID, g.Opacity())
		}
	}
	if gs[2].ArrowColor() != "#222222" {
		t.Errorf("plain edge arrow = %s", gs[2].ArrowColor())
	}

	Restate(gs, "plain", "")
	if gs[0].State != StateNormal || gs[2].State != StateHovered {
		t.Errorf("restate: %v %v", gs[0].State, gs[2].State)
	}
}

func TestResolve_MissingFillIsNeutral(t *testing.T) {
	l := layout.Layout{
		"A": {ID: "A", X: 0, Y: 0},
		"B": positioned("B", 0, 100, ""),
	}
	g := Resolve(l, []model.Edge{{ID: "e", Source: "A", Target: "B"}}, Options{})[0]
	if g.SourceFill != theme.Neutral || g.TargetFill != theme.Neutral {
		t.Errorf("fills = %s, %s", g.SourceFill, g.TargetFill)
	}
}

func TestResolve_DuplicateIDsGetDistinctResources(t *testing.T) {
	l := layout.Layout{
		"A": positioned("A", 0, 0, ""),
		"B": positioned("B", 100, 0, ""),
	}
	gs := Resolve(l, []model.Edge{
		{ID: "dup", Source: "A", Target: "B"},
		{ID: "dup", Source: "A", Target: "B"},
		{ID: "dup__2", Source: "A", Target: "B"},
	}, DefaultOptions())
	seen := map[string]bool{}
	for _, g := range gs {
		if seen[g.GradientID] {
			t.Fatalf("gradient id %s reused", g.GradientID)
		}
		seen[g.GradientID] = true
	}
}

var validID = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

func TestResourceKey(t *testing.T) {
	if got := ResourceKey("edge_1-x"); got != "edge_1-x" {
		t.Errorf("clean id changed: %s", got)
	}
	a, b := ResourceKey("a:b"), ResourceKey("a/b")
	if a == b {
		t.Fatalf("a:b and a/b collided on %s", a)
	}
	for _, k := range []string{a, b, ResourceKey(""), ResourceKey("日本 語")} {
		if !validID.MatchString(k) {
			t.Errorf("key %q has invalid characters", k)
		}
	}
	if ResourceKey("a:b") != a {
		t.Error("ResourceKey must be deterministic")
	}
}

func TestDistanceToSegment(t *testing.T) {
	tests := []struct {
		name           string
		px, py         float64
		x1, y1, x2, y2 float64
		want           float64
	}{
		{"perpendicular", 5, 3, 0, 0, 10, 0, 3},
		{"past end", 13, 4, 0, 0, 10, 0, 5},
		{"before start", -3, 0, 0, 0, 10, 0, 3},
		{"degenerate", 3, 4, 0, 0, 0, 0, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceToSegment(tt.px, tt.py, tt.x1, tt.y1, tt.x2, tt.y2)
			if math.Abs(got-tt.want) > eps {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestArrowheadPolygonTipOnCircle(t *testing.T) {
	l := layout.Layout{
		"A": positioned("A", 0, 0, ""),
		"B": positioned("B", 300, 400, ""),
	}
	opts := DefaultOptions()
	g := Resolve(l, []model.Edge{{ID: "e", Source: "A", Target: "B"}}, opts)[0]
	poly := ArrowheadPolygon(g, opts.ArrowheadSize)
	tip := poly[0]
	if d := math.Hypot(tip[0]-300, tip[1]-400); math.Abs(d-opts.NodeRadius) > 1e-6 {
		t.Errorf("tip is %v from target center, want %v", d, opts.NodeRadius)
	}
}

func TestProperty_TrimDistanceIndependentOfAngle(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		r := rapid.Float64Range(1, 50).Draw(t, "radius")
		a := rapid.Float64Range(1, 30).Draw(t, "arrow")
		theta := rapid.Float64Range(-math.Pi, math.Pi).Draw(t, "theta")
		dist := rapid.Float64Range(2*(r+a)+1, 2000).Draw(t, "dist")

		tx, ty := 400+dist*math.Cos(theta), 300+dist*math.Sin(theta)
		l := layout.Layout{
			"S": positioned("S", 400, 300, ""),
			"T": positioned("T", tx, ty, ""),
		}
		g := Resolve(l, []model.Edge{{ID: "e", Source: "S", Target: "T"}}, Options{NodeRadius: r, ArrowheadSize: a})[0]

		if d := math.Hypot(g.X2-tx, g.Y2-ty); math.Abs(d-(r+a/2)) > 1e-6 {
			t.Fatalf("end is %v from target, want %v", d, r+a/2)
		}
		if d := math.Hypot(g.X1-400, g.Y1-300); math.Abs(d-r) > 1e-6 {
			t.Fatalf("start is %v from source, want %v", d, r)
		}
	})
}
