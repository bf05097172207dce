package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/threatmap/pkg/export"
	"github.com/vanderheijden86/threatmap/pkg/testutil"
	"github.com/vanderheijden86/threatmap/pkg/version"
)

// isolate points config and data lookups at empty locations so the host
// environment cannot leak into a test.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_STATE_HOME", t.TempDir())
	unsetenv(t, "THREATMAP_CONFIG")
	unsetenv(t, "THREATMAP_DATA")
}

// unsetenv removes key for the test and restores the previous state after.
func unsetenv(t *testing.T, key string) {
	t.Helper()
	old, had := os.LookupEnv(key)
	os.Unsetenv(key)
	t.Cleanup(func() {
		if had {
			os.Setenv(key, old)
		} else {
			os.Unsetenv(key)
		}
	})
}

func writeStar(t *testing.T) string {
	t.Helper()
	return testutil.WriteDatasetFile(t, t.TempDir(), "threats.json", testutil.QuickStar(3))
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs(append([]string{"--no-color", "--env-file", ""}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestRenderToFile(t *testing.T) {
	isolate(t)
	data := writeStar(t)
	dest := filepath.Join(t.TempDir(), "nested", "hub.svg")

	_, stderr, err := run(t, "render", "--data", data, "--focus", "T-hub", "-o", dest)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	body, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !bytes.HasPrefix(body, []byte("<?xml")) {
		t.Errorf("not an svg: %.40q", body)
	}
	if !strings.Contains(stderr, "rendered") || !strings.Contains(stderr, "(4 nodes, 3 edges)") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestRenderToStdout(t *testing.T) {
	isolate(t)
	data := writeStar(t)

	stdout, _, err := run(t, "render", "--data", data, "--focus", "T-hub", "--format", "md")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.HasPrefix(stdout, "# Threat hub") {
		t.Errorf("markdown output = %.60q", stdout)
	}
}

func TestRenderErrors(t *testing.T) {
	isolate(t)
	data := writeStar(t)

	tests := []struct {
		name string
		args []string
		code int
	}{
		{"unknown focus", []string{"render", "--data", data, "--focus", "nope"}, ExitDataError},
		{"no focus", []string{"render", "--data", data}, ExitError},
		{"no dataset", []string{"render", "--focus", "T-hub"}, ExitConfigError},
		{"missing file", []string{"render", "--data", filepath.Join(t.TempDir(), "x.json"), "--focus", "T-hub"}, ExitDataError},
		{"bad format", []string{"render", "--data", data, "--focus", "T-hub", "--format", "gif"}, ExitError},
		{"bad config", []string{"render", "--config", writeFile(t, "bad.yaml", "canvas: [1"), "--data", data}, ExitConfigError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := run(t, tt.args...)
			if err == nil {
				t.Fatal("expected an error")
			}
			if got := exitCode(err); got != tt.code {
				t.Errorf("exit code = %d, want %d (%v)", got, tt.code, err)
			}
		})
	}
}

func TestRenderFormat(t *testing.T) {
	tests := []struct {
		format, output string
		want           export.Format
	}{
		{"", "", export.FormatSVG},
		{"", "out.png", export.FormatPNG},
		{"", "out.HTML", export.FormatHTML},
		{"", "out.txt", export.FormatSVG},
		{"markdown", "out.svg", export.FormatMarkdown},
	}
	for _, tt := range tests {
		got, err := renderFormat(tt.format, tt.output)
		if err != nil || got != tt.want {
			t.Errorf("renderFormat(%q, %q) = %q, %v; want %q", tt.format, tt.output, got, err, tt.want)
		}
	}
}

func TestDefaultFocusFromConfig(t *testing.T) {
	isolate(t)
	data := writeStar(t)
	cfg := writeFile(t, "config.yaml", "selection:\n  default_focus: T-hub\n")

	stdout, _, err := run(t, "render", "--config", cfg, "--data", data, "--format", "md")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(stdout, "Threat hub") {
		t.Errorf("default focus not used:\n%s", stdout)
	}
}

func TestEnvFileSuppliesDataset(t *testing.T) {
	isolate(t)
	data := writeStar(t)
	env := writeFile(t, ".env", "THREATMAP_DATA="+data+"\n")

	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs([]string{"--no-color", "--env-file", env, "stats", "--json"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("stats: %v", err)
	}
	if !strings.Contains(out.String(), `"nodes": 4`) {
		t.Errorf("stats output = %s", out.String())
	}
}

func TestExport(t *testing.T) {
	isolate(t)
	data := testutil.WriteDatasetFile(t, t.TempDir(), "tree.json", testutil.QuickTree(2, 2))
	dir := filepath.Join(t.TempDir(), "out")

	_, stderr, err := run(t, "export", "--data", data, "--dir", dir, "--format", "svg,md", "-j", "2")
	if err != nil {
		t.Fatalf("export: %v\n%s", err, stderr)
	}

	// The root and its two children have outgoing edges.
	for _, name := range []string{"T-root.svg", "T-root.md", "T-root_0-", export.ManifestName} {
		matches, _ := filepath.Glob(filepath.Join(dir, name+"*"))
		if len(matches) == 0 {
			t.Errorf("missing %s*", name)
		}
	}
	if !strings.Contains(stderr, "exported 6 files") {
		t.Errorf("stderr = %q", stderr)
	}

	raw, err := os.ReadFile(filepath.Join(dir, export.ManifestName))
	if err != nil {
		t.Fatal(err)
	}
	var manifest []export.Result
	if err := json.Unmarshal(raw, &manifest); err != nil {
		t.Fatalf("manifest: %v", err)
	}
	if len(manifest) != 6 {
		t.Errorf("manifest entries = %d", len(manifest))
	}
}

func TestStats(t *testing.T) {
	isolate(t)
	gen := testutil.New(testutil.GeneratorConfig{IncludeMetrics: true})
	data := testutil.WriteDatasetFile(t, t.TempDir(), "d.json", gen.ToDataset(gen.Diamond(2)))

	stdout, _, err := run(t, "stats", "--data", data, "--top", "2", "--timings")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	for _, want := range []string{"4 nodes, 4 edges, 3 focus candidates", "Categories", "threat", "Most central", "Timings"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("stats missing %q:\n%s", want, stdout)
		}
	}

	stdout, _, err = run(t, "stats", "--data", data, "--top", "2", "--json")
	if err != nil {
		t.Fatalf("stats --json: %v", err)
	}
	var report statsReport
	if err := json.Unmarshal([]byte(stdout), &report); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if report.Nodes != 4 || len(report.Top) != 2 || report.Focuses != 3 {
		t.Errorf("report = %+v", report)
	}
	if len(report.Categories) != 1 || report.Categories[0].Count != 4 {
		t.Errorf("categories = %+v", report.Categories)
	}
	if report.Top[0].PageRank < report.Top[1].PageRank {
		t.Error("top nodes not ordered by pagerank")
	}
}

func TestConvertRoundTrip(t *testing.T) {
	isolate(t)
	data := writeStar(t)
	db := filepath.Join(t.TempDir(), "threats.db")

	_, stderr, err := run(t, "convert", "--data", data, "--to", db)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if !strings.Contains(stderr, "wrote") {
		t.Errorf("stderr = %q", stderr)
	}

	stdout, _, err := run(t, "stats", "--data", db, "--json")
	if err != nil {
		t.Fatalf("stats on db: %v", err)
	}
	if !strings.Contains(stdout, `"edges": 3`) {
		t.Errorf("sqlite stats = %s", stdout)
	}

	if _, _, err := run(t, "convert", "--data", db, "--to", db); err == nil {
		t.Error("converting onto the source should fail")
	}
	if _, _, err := run(t, "convert", "--data", data); err == nil {
		t.Error("missing --to should fail")
	}
}

func TestVersion(t *testing.T) {
	stdout, _, err := run(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(stdout, "threatmap "+version.Version) {
		t.Errorf("version output = %q", stdout)
	}
}

func TestStartWatcher(t *testing.T) {
	isolate(t)
	data := writeStar(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, src, err := (&app{errOut: &bytes.Buffer{}, dataPath: data}).loadDataset(ctx)
	if err != nil {
		t.Fatal(err)
	}
	w, err := startWatcher(ctx, src)
	if err != nil {
		t.Fatalf("startWatcher: %v", err)
	}
	defer w.Stop()
	if !w.IsStarted() {
		t.Error("watcher not started")
	}
}

func TestExitCode(t *testing.T) {
	if exitCode(nil) != ExitSuccess {
		t.Error("nil error should exit 0")
	}
	if exitCode(errors.New("x")) != ExitError {
		t.Error("plain error should exit 1")
	}
	wrapped := errors.Join(errors.New("ctx"), withCode(ExitDataError, errors.New("bad")))
	if exitCode(wrapped) != ExitDataError {
		t.Error("wrapped exit code lost")
	}
	if withCode(ExitDataError, nil) != nil {
		t.Error("withCode(nil) should be nil")
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
