package ui

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/threatmap/internal/datasource"
	"github.com/vanderheijden86/threatmap/pkg/config"
	"github.com/vanderheijden86/threatmap/pkg/loader"
	"github.com/vanderheijden86/threatmap/pkg/model"
	"github.com/vanderheijden86/threatmap/pkg/render"
	"github.com/vanderheijden86/threatmap/pkg/selection"
)

func newTestModel(t *testing.T) Model {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Selection.DefaultFocus = "A"
	cfg.Explorer.ShowHelp = false
	cfg.Transition.SwapDelay = time.Millisecond
	cfg.Transition.FitDelay = 2 * time.Millisecond

	m := NewModel(testDataset(), Options{Config: cfg, SnapshotDir: t.TempDir()})
	return update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return out
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModelView(t *testing.T) {
	m := newTestModel(t)
	view := m.View()
	for _, want := range []string{"threatmap", "focus: Ransomware", "4 nodes · 4 edges", "Ransomware → Phishing", "? help"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
	if !strings.Contains(m.detailMD, "## Ransomware") {
		t.Errorf("detail should describe the focus node, got %q", m.detailMD)
	}

	m = update(t, m, keyRunes("?"))
	if !strings.Contains(m.View(), "choose focus") {
		t.Error("help should replace the detail pane")
	}

	if got := NewModel(testDataset(), Options{Config: config.DefaultConfig()}).View(); got != "Loading…" {
		t.Errorf("unsized view = %q", got)
	}
}

func TestKeyboardEdgeSelection(t *testing.T) {
	m := newTestModel(t)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.cursor != 0 || m.Renderer().Hovered() != "e1" {
		t.Fatalf("cursor = %d, hovered = %q", m.cursor, m.Renderer().Hovered())
	}
	m = update(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.cursor != 0 {
		t.Errorf("shift+tab then tab should return to 0, got %d", m.cursor)
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if id, ok := m.Controller().Selection().EdgeID(); !ok || id != "e1" {
		t.Fatalf("selection = %v", m.Controller().Selection())
	}
	if m.Renderer().SelectedEdge() != "e1" {
		t.Error("renderer should mirror the edge selection")
	}
	if !strings.Contains(m.detailMD, "## Ransomware → Phishing") || !strings.Contains(m.detailMD, "Cause: phishing") {
		t.Errorf("edge detail = %q", m.detailMD)
	}
	if links := m.links(); len(links) != 1 || links[0] != "https://example.com/note" {
		t.Errorf("edge links = %v", links)
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if !m.Controller().Selection().IsNone() {
		t.Error("selecting the same edge again should clear it")
	}

	m = update(t, m, keyRunes("n"))
	if id, ok := m.Controller().Selection().NodeID(); !ok || id != "A" {
		t.Errorf("n should select the focus node, got %v", m.Controller().Selection())
	}
	if links := m.links(); len(links) != 1 || links[0] != "https://example.com/dbir" {
		t.Errorf("node links should be distinct and non-empty: %v", links)
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if !m.Controller().Selection().IsNone() || m.cursor != -1 {
		t.Error("esc should clear selection and cursor")
	}
}

func TestOpenAndReset(t *testing.T) {
	m := newTestModel(t)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = update(t, m, keyRunes("o"))
	if m.Controller().Focus() != "B" {
		t.Fatalf("o should focus the edge target, focus = %q", m.Controller().Focus())
	}
	if !strings.Contains(m.detailMD, "## Phishing") {
		t.Errorf("detail should follow the selected node: %q", m.detailMD)
	}

	m = update(t, m, keyRunes("R"))
	if m.Controller().Focus() != "A" || !m.Controller().Selection().IsNone() {
		t.Errorf("R should return to the default focus, got %q", m.Controller().Focus())
	}
}

func TestFocusPicker(t *testing.T) {
	m := newTestModel(t)

	m = update(t, m, keyRunes("/"))
	if !m.showPicker || !strings.Contains(m.View(), "Choose a focus") {
		t.Fatal("/ should open the picker")
	}
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.showPicker {
		t.Error("enter should close the picker")
	}
	if m.Controller().Focus() != "D" {
		t.Errorf("picker lists by pagerank, expected D, got %q", m.Controller().Focus())
	}

	m = update(t, m, keyRunes("/"))
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.showPicker || m.Controller().Focus() != "D" {
		t.Error("esc should close the picker without refocusing")
	}
}

func TestPickerKeepsBackgroundLoops(t *testing.T) {
	t.Run("file change reloads", func(t *testing.T) {
		m := newTestModel(t)
		m = update(t, m, keyRunes("/"))

		next, cmd := m.Update(FileChangedMsg{})
		m = next.(Model)
		if cmd == nil || !strings.Contains(m.statusMsg, "reloading") {
			t.Errorf("file change ignored while picking: status %q", m.statusMsg)
		}
		if !m.showPicker {
			t.Error("picker should stay open")
		}
	})

	t.Run("frames keep ticking", func(t *testing.T) {
		m := newTestModel(t)
		next, _ := m.Update(tea.KeyMsg{Type: tea.KeyLeft})
		m = next.(Model)
		m = update(t, m, keyRunes("/"))

		next, cmd := m.Update(frameMsg(m.lastFrame.Add(100 * time.Millisecond)))
		m = next.(Model)
		if cmd == nil {
			t.Fatal("held key should schedule another frame while picking")
		}
		m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
		m = update(t, m, frameMsg(m.lastFrame.Add(time.Second)))
		if m.ticking || m.panner.Active() {
			t.Error("frame loop should wind down after the hold window")
		}
	})

	t.Run("redraw re-arms", func(t *testing.T) {
		m := newTestModel(t)
		m = update(t, m, keyRunes("/"))
		if _, cmd := m.Update(redrawMsg{}); cmd == nil {
			t.Error("redraw wait not re-armed while picking")
		}
	})
}

func TestCameraKeys(t *testing.T) {
	m := newTestModel(t)
	cam := m.Renderer().Camera()
	s0 := cam.Scale()

	m = update(t, m, keyRunes("+"))
	if got := cam.Scale(); math.Abs(got-s0*(1+zoomStep)) > 1e-9 {
		t.Errorf("zoom in: %v -> %v", s0, got)
	}
	m = update(t, m, keyRunes("-"))
	if got := cam.Scale(); math.Abs(got-s0) > 1e-9 {
		t.Errorf("zoom out should undo zoom in: %v -> %v", s0, got)
	}

	m = update(t, m, keyRunes("0"))
	if cam.Scale() != 1 {
		t.Errorf("0 should reset the camera, scale = %v", cam.Scale())
	}
	m = update(t, m, keyRunes("f"))
	if math.Abs(cam.Scale()-s0) > 1e-9 {
		t.Errorf("f should fit again: %v vs %v", cam.Scale(), s0)
	}

	m = update(t, m, keyRunes("i"))
	m = update(t, m, keyRunes("+"))
	if math.Abs(cam.Scale()-s0) > 1e-9 {
		t.Error("zoom should be ignored while locked")
	}
	if !strings.Contains(m.View(), "locked") {
		t.Error("header should show the lock")
	}
}

func TestArrowKeysPanWhileHeld(t *testing.T) {
	m := newTestModel(t)
	cam := m.Renderer().Camera()
	x0, _ := cam.ToScreen(0, 0)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyLeft})
	m = next.(Model)
	if cmd == nil || !m.ticking || !m.panner.Held(render.KeyLeft) {
		t.Fatal("arrow press should start the frame loop")
	}

	m = update(t, m, frameMsg(m.lastFrame.Add(100*time.Millisecond)))
	x1, _ := cam.ToScreen(0, 0)
	want := render.DefaultPanSpeed * 0.1
	if math.Abs((x1-x0)-want) > 1e-6 {
		t.Errorf("held left should move content right by %v, moved %v", want, x1-x0)
	}

	m = update(t, m, frameMsg(m.lastFrame.Add(time.Second)))
	if m.panner.Active() || m.ticking {
		t.Error("keys should be released once the hold window passes")
	}
}

func TestMouseClickSelectsNode(t *testing.T) {
	m := newTestModel(t)
	b := m.Renderer().Scene().Layout["B"]

	p, ox, oy := m.projection()
	cx, cy := p.cell(b.X, b.Y)
	m = update(t, m, tea.MouseMsg{X: cx + ox, Y: cy + oy, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})

	if m.Controller().Focus() != "B" {
		t.Errorf("clicking B should focus it, focus = %q", m.Controller().Focus())
	}
	if id, ok := m.Controller().Selection().NodeID(); !ok || id != "B" {
		t.Errorf("selection = %v", m.Controller().Selection())
	}

	// Clicks outside the graph panel are ignored.
	m = update(t, m, tea.MouseMsg{X: 119, Y: 39, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	if m.Controller().Selection().Kind() != selection.KindNode {
		t.Error("click outside the canvas should not change the selection")
	}
}

func TestSnapshot(t *testing.T) {
	m := newTestModel(t)
	next, cmd := m.Update(keyRunes("s"))
	m = next.(Model)
	if cmd == nil {
		t.Fatal("s should return a snapshot command")
	}
	msg, ok := cmd().(SnapshotMsg)
	if !ok || msg.Err != nil {
		t.Fatalf("snapshot = %+v", msg)
	}
	if filepath.Dir(msg.Path) != m.opts.SnapshotDir || !strings.HasPrefix(filepath.Base(msg.Path), "A-") {
		t.Errorf("snapshot path = %s", msg.Path)
	}
	data, err := os.ReadFile(msg.Path)
	if err != nil || !strings.Contains(string(data), "<svg") {
		t.Fatalf("snapshot file: %v", err)
	}

	m = update(t, m, msg)
	if !strings.Contains(m.statusMsg, "Snapshot written") {
		t.Errorf("status = %q", m.statusMsg)
	}
}

func TestDatasetReload(t *testing.T) {
	m := newTestModel(t)

	m = update(t, m, DatasetLoadedMsg{Err: os.ErrNotExist})
	if !m.statusIsError || !strings.Contains(m.statusMsg, "Reload failed") {
		t.Errorf("status = %q", m.statusMsg)
	}

	next := model.NewDataset(
		[]model.Node{{ID: "A", Label: "Ransomware"}, {ID: "E", Label: "Extortion"}},
		[]model.Edge{{ID: "e9", Source: "A", Target: "E", Weight: 2}},
	)
	m = update(t, m, DatasetLoadedMsg{Dataset: next})
	if m.Controller().Dataset() != next {
		t.Fatal("controller should hold the reloaded dataset")
	}
	if m.statusIsError || !strings.HasPrefix(m.statusMsg, "Reloaded: +1 node, -3 nodes") {
		t.Errorf("status = %q", m.statusMsg)
	}
	if len(m.Controller().Neighborhood().Edges) != 1 {
		t.Errorf("neighborhood should be recomputed: %+v", m.Controller().Neighborhood().Edges)
	}
}

func TestReloadCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.json")
	content := `{"nodes":[{"id":"A"},{"id":"B"}],"edges":[{"source":"A","target":"B","weight":1}]}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	src, err := datasource.Detect(path)
	if err != nil {
		t.Fatal(err)
	}
	msg := ReloadCmd(src, loader.ParseOptions{})()
	loaded, ok := msg.(DatasetLoadedMsg)
	if !ok || loaded.Err != nil || len(loaded.Dataset.Nodes) != 2 {
		t.Errorf("reload = %+v", msg)
	}
}

func TestQuit(t *testing.T) {
	m := newTestModel(t)
	_, cmd := m.Update(keyRunes("q"))
	if cmd == nil {
		t.Fatal("q should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should return tea.Quit")
	}
	if m.Renderer().Panner() != nil {
		t.Error("quit should unmount the panner")
	}
}
