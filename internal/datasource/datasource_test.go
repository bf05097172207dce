package datasource

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/vanderheijden86/threatmap/pkg/loader"
	"github.com/vanderheijden86/threatmap/pkg/model"
)

func sampleDataset() *model.Dataset {
	return model.NewDataset(
		[]model.Node{
			{
				ID: "A", Label: "Ransomware", ShortLabel: "Ransom", Category: model.CategoryThreat,
				Metrics:       model.Metrics{PageRank: 0.4, InDegree: 0, OutDegree: 2},
				DocumentCount: 3, CitationCount: 5,
				Citations: []model.Citation{{Title: "Report", DocumentLink: "https://example.com/r", QuotedText: "a ||| b"}},
			},
			{ID: "B", Label: "Phishing", Category: model.CategoryActor, Metrics: model.Metrics{PageRank: 0.3}},
			{ID: "C", Label: "Data loss", Metrics: model.Metrics{PageRank: 0.3}},
		},
		[]model.Edge{
			{ID: "e1", Source: "A", Target: "B", Weight: 5, RawCount: 7,
				Citations: []model.CitationRelation{{Citation: model.Citation{Title: "T"}, Cause: "phish", Effect: "encrypt"}}},
			{ID: "e2", Source: "A", Target: "C", Weight: 3},
			{ID: "e2b", Source: "A", Target: "C", Weight: 1},
		},
	)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDetect(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content string
		want    SourceType
	}{
		{"json extension", "g.json", `{}`, SourceTypeJSON},
		{"jsonl extension", "g.jsonl", `{"id":"A"}`, SourceTypeJSONL},
		{"sqlite extension", "g.db", ``, SourceTypeSQLite},
		{"sniff document", "graph.data", "{\n  \"nodes\": []\n}\n", SourceTypeJSON},
		{"sniff stream", "graph.data2", "{\"id\":\"A\"}\n{\"id\":\"B\"}\n", SourceTypeJSONL},
		{"sniff sqlite", "graph.bin", "SQLite format 3\x00rest", SourceTypeSQLite},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, tt.file, tt.content)
			src, err := Detect(path)
			if err != nil {
				t.Fatalf("Detect: %v", err)
			}
			if src.Type != tt.want {
				t.Errorf("type = %s, want %s", src.Type, tt.want)
			}
			if src.Size != int64(len(tt.content)) {
				t.Errorf("size = %d", src.Size)
			}
		})
	}
}

func TestDetect_Unknown(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "notes.txt", "just some text")
	if _, err := Detect(path); !errors.Is(err, ErrUnknownSource) {
		t.Errorf("expected ErrUnknownSource, got %v", err)
	}
	if _, err := Detect(dir); !errors.Is(err, ErrUnknownSource) {
		t.Errorf("directories should be rejected, got %v", err)
	}
	if _, err := Detect(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "graph.db")

	want := sampleDataset()
	if err := WriteSQLite(ctx, path, want); err != nil {
		t.Fatalf("WriteSQLite: %v", err)
	}
	// Writing again replaces the file instead of appending.
	if err := WriteSQLite(ctx, path, want); err != nil {
		t.Fatalf("second WriteSQLite: %v", err)
	}

	got, src, err := Load(ctx, path, loader.ParseOptions{SkipCentrality: true})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if src.Type != SourceTypeSQLite {
		t.Errorf("source type = %s", src.Type)
	}
	if len(got.Nodes) != 3 || len(got.Edges) != 3 {
		t.Fatalf("got %d nodes %d edges", len(got.Nodes), len(got.Edges))
	}

	a := got.Nodes[0]
	if a.ID != "A" || a.ShortLabel != "Ransom" || a.Category != model.CategoryThreat {
		t.Errorf("node A = %+v", a)
	}
	if a.Metrics.PageRank != 0.4 || a.Metrics.OutDegree != 2 || a.DocumentCount != 3 || a.CitationCount != 5 {
		t.Errorf("node A numbers = %+v", a)
	}
	if len(a.Citations) != 1 || a.Citations[0].DocumentLink != "https://example.com/r" {
		t.Errorf("node A citations = %+v", a.Citations)
	}
	if got.Nodes[2].ID != "C" || len(got.Nodes[2].Citations) != 0 {
		t.Errorf("order or empty citations wrong: %+v", got.Nodes[2])
	}

	e1 := got.Edges[0]
	if e1.Weight != 5 || e1.RawCount != 7 || len(e1.Citations) != 1 || e1.Citations[0].Cause != "phish" {
		t.Errorf("edge e1 = %+v", e1)
	}
	if got.Edges[1].Weight != 3 || got.Edges[2].Weight != 1 {
		t.Error("parallel edges should keep their order")
	}
}

func TestLoad_JSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "g.json", `{"nodes":[{"id":"A"},{"id":"B"}],"edges":[{"source":"A","target":"B","weight":1}]}`)

	ds, src, err := Load(context.Background(), path, loader.ParseOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if src.Type != SourceTypeJSON || len(ds.Edges) != 1 || ds.Edges[0].ID == "" {
		t.Errorf("unexpected load: %s %+v", src.Type, ds.Edges)
	}
}

func TestLoadFromSource_NotSQLite(t *testing.T) {
	_, err := NewSQLiteReader(DataSource{Type: SourceTypeJSON, Path: "x.json"})
	if err == nil {
		t.Error("reader should refuse non-SQLite sources")
	}
	_, err = LoadFromSource(context.Background(), DataSource{Type: "csv"}, loader.ParseOptions{})
	if !errors.Is(err, ErrUnknownSource) {
		t.Errorf("expected ErrUnknownSource, got %v", err)
	}
}

func TestDiff(t *testing.T) {
	before := sampleDataset()
	after := model.NewDataset(
		[]model.Node{{ID: "A"}, {ID: "C"}, {ID: "D"}, {ID: "E"}},
		[]model.Edge{
			{ID: "e2", Source: "A", Target: "C", Weight: 2},
			{ID: "e3", Source: "A", Target: "D", Weight: 1},
		},
	)

	d := Diff(before, after)
	if len(d.AddedNodes) != 2 || d.AddedNodes[0] != "D" || d.AddedNodes[1] != "E" {
		t.Errorf("added nodes = %v", d.AddedNodes)
	}
	if len(d.RemovedNodes) != 1 || d.RemovedNodes[0] != "B" {
		t.Errorf("removed nodes = %v", d.RemovedNodes)
	}
	if len(d.AddedEdges) != 1 || len(d.RemovedEdges) != 2 {
		t.Errorf("edges = +%v -%v", d.AddedEdges, d.RemovedEdges)
	}
	if len(d.Reweighted) != 1 || d.Reweighted[0] != (WeightChange{ID: "e2", Before: 3, After: 2}) {
		t.Errorf("reweighted = %+v", d.Reweighted)
	}
	if got := d.Summary(); got != "+2 nodes, -1 node, +1 edge, -2 edges, ~1 weight" {
		t.Errorf("summary = %q", got)
	}

	if !Diff(before, before).IsEmpty() {
		t.Error("a dataset should not differ from itself")
	}
	if Diff(nil, nil).Summary() != "no changes" {
		t.Error("nil datasets should produce no changes")
	}
}
