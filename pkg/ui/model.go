// Package ui is the terminal explorer: the focus neighborhood drawn as three
// tier columns, the working edge list, and a detail pane with the citation
// evidence of the current selection.
package ui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/threatmap/internal/datasource"
	"github.com/vanderheijden86/threatmap/pkg/config"
	"github.com/vanderheijden86/threatmap/pkg/debug"
	"github.com/vanderheijden86/threatmap/pkg/export"
	"github.com/vanderheijden86/threatmap/pkg/geometry"
	"github.com/vanderheijden86/threatmap/pkg/loader"
	"github.com/vanderheijden86/threatmap/pkg/model"
	"github.com/vanderheijden86/threatmap/pkg/render"
	"github.com/vanderheijden86/threatmap/pkg/selection"
	"github.com/vanderheijden86/threatmap/pkg/theme"
	"github.com/vanderheijden86/threatmap/pkg/watcher"
)

const (
	// holdWindow is how long an arrow key counts as held after its last
	// press. Terminals report repeats, not releases.
	holdWindow = 250 * time.Millisecond

	zoomStep       = 0.25
	maxEdgeRows    = 12
	minGraphWidth  = 24
	defaultFrameMs = 50
)

// FileChangedMsg is sent when the dataset file changes on disk.
type FileChangedMsg struct{}

// DatasetLoadedMsg carries a reloaded dataset.
type DatasetLoadedMsg struct {
	Dataset *model.Dataset
	Err     error
}

// SnapshotMsg reports a written snapshot.
type SnapshotMsg struct {
	Path string
	Err  error
}

type frameMsg time.Time

type redrawMsg struct{}

// Options configures the explorer.
type Options struct {
	Config config.Config

	// Source and ParseOptions are used to reload the dataset when Watcher
	// reports a change. A nil Watcher disables live reload.
	Source       datasource.DataSource
	ParseOptions loader.ParseOptions
	Watcher      *watcher.Watcher

	// Focus overrides the configured default focus for the first view.
	Focus string

	// SnapshotDir receives SVG snapshots. Empty uses the state directory.
	SnapshotDir string
}

// Model is the Bubble Tea model for the explorer.
type Model struct {
	opts    Options
	ctrl    *selection.Controller
	r       *render.Renderer
	panner  *render.KeyPanner
	palette theme.Palette

	width, height int
	ready         bool

	detail     viewport.Model
	mdRenderer *glamour.TermRenderer
	mdWidth    int
	detailMD   string

	picker     list.Model
	showPicker bool
	showHelp   bool

	// cursor indexes the working edge list, -1 when no edge is hovered.
	cursor int

	keyPress  map[render.Key]time.Time
	frameRate time.Duration
	lastFrame time.Time
	ticking   bool
	redraw    chan struct{}

	statusMsg     string
	statusIsError bool
}

// NewModel creates the explorer for ds.
func NewModel(ds *model.Dataset, opts Options) Model {
	cfg := opts.Config
	selOpts := cfg.SelectionOptions()

	r := render.New(cfg.RenderOptions())
	ctrl := selection.NewController(ds, selOpts)
	if opts.Focus != "" && opts.Focus != ctrl.Focus() {
		ctrl.SetFocus(opts.Focus)
	}
	ctrl.AddListener(r)

	r.SetHandlers(render.Handlers{
		NodeClick:       ctrl.SelectNode,
		EdgeClick:       func(e *model.Edge) { ctrl.SelectEdge(e.ID) },
		BackgroundClick: ctrl.ClearSelection,
	})

	hood := ctrl.Neighborhood()
	r.Show(hood.Nodes, hood.Edges)
	if !hood.IsEmpty() {
		if err := r.FitView(); err != nil {
			debug.Warn("fit view: %v", err)
		}
	}

	redraw := make(chan struct{}, 1)
	r.UseTransition(render.NewTransition(r, cfg.Transition.SwapDelay, cfg.Transition.FitDelay, func() {
		select {
		case redraw <- struct{}{}:
		default:
		}
	}))

	frameRate := cfg.Explorer.FrameRate
	if frameRate <= 0 {
		frameRate = defaultFrameMs * time.Millisecond
	}

	picker := list.New(nodeItems(ds), list.NewDefaultDelegate(), 0, 0)
	picker.Title = "Choose a focus"

	return Model{
		opts:      opts,
		ctrl:      ctrl,
		r:         r,
		panner:    r.Mount(),
		palette:   selOpts.Palette,
		detail:    viewport.New(0, 0),
		picker:    picker,
		showHelp:  cfg.Explorer.ShowHelp,
		cursor:    -1,
		keyPress:  make(map[render.Key]time.Time, 4),
		frameRate: frameRate,
		redraw:    redraw,
	}
}

// Controller exposes the selection controller, mainly for tests.
func (m Model) Controller() *selection.Controller { return m.ctrl }

// Renderer exposes the renderer, mainly for tests.
func (m Model) Renderer() *render.Renderer { return m.r }

// WatchFileCmd returns a command that waits for file changes and sends FileChangedMsg
func WatchFileCmd(w *watcher.Watcher) tea.Cmd {
	return func() tea.Msg {
		<-w.Changed()
		return FileChangedMsg{}
	}
}

// ReloadCmd reloads the dataset from source.
func ReloadCmd(source datasource.DataSource, opts loader.ParseOptions) tea.Cmd {
	return func() tea.Msg {
		ds, err := datasource.LoadFromSource(context.Background(), source, opts)
		return DatasetLoadedMsg{Dataset: ds, Err: err}
	}
}

func waitRedrawCmd(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return redrawMsg{}
	}
}

func (m Model) frameCmd() tea.Cmd {
	return tea.Tick(m.frameRate, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{waitRedrawCmd(m.redraw)}
	if m.opts.Watcher != nil && m.opts.Config.Explorer.LiveReload {
		cmds = append(cmds, WatchFileCmd(m.opts.Watcher))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	if m.showPicker {
		switch msg.(type) {
		case tea.KeyMsg, tea.MouseMsg:
			return m.updatePicker(msg)
		}
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ready = true
		m.resize()

	case tea.KeyMsg:
		var cmd tea.Cmd
		m, cmd = m.handleKey(msg)
		if cmd != nil {
			cmds = append(cmds, cmd)
		}

	case tea.MouseMsg:
		m.handleMouse(msg)

	case frameMsg:
		now := time.Time(msg)
		m.panner.Tick(now.Sub(m.lastFrame))
		m.lastFrame = now
		for k, at := range m.keyPress {
			if now.Sub(at) > holdWindow {
				m.panner.Release(k)
				delete(m.keyPress, k)
			}
		}
		if m.panner.Active() {
			cmds = append(cmds, m.frameCmd())
		} else {
			m.ticking = false
		}

	case redrawMsg:
		cmds = append(cmds, waitRedrawCmd(m.redraw))

	case FileChangedMsg:
		m.statusMsg = "Dataset changed, reloading…"
		m.statusIsError = false
		cmds = append(cmds, ReloadCmd(m.opts.Source, m.opts.ParseOptions))
		if m.opts.Watcher != nil {
			cmds = append(cmds, WatchFileCmd(m.opts.Watcher))
		}

	case DatasetLoadedMsg:
		if msg.Err != nil {
			m.statusMsg = fmt.Sprintf("Reload failed: %v", msg.Err)
			m.statusIsError = true
			break
		}
		diff := datasource.Diff(m.ctrl.Dataset(), msg.Dataset)
		m.ctrl.SetDataset(msg.Dataset)
		cmds = append(cmds, m.picker.SetItems(nodeItems(msg.Dataset)))
		m.clampCursor()
		m.statusMsg = "Reloaded: " + diff.Summary()
		m.statusIsError = false

	case SnapshotMsg:
		if msg.Err != nil {
			m.statusMsg = fmt.Sprintf("Snapshot failed: %v", msg.Err)
			m.statusIsError = true
		} else {
			m.statusMsg = "Snapshot written to " + msg.Path
			m.statusIsError = false
		}

	default:
		// The list's own filter messages.
		if m.showPicker {
			var cmd tea.Cmd
			m.picker, cmd = m.picker.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	m.refreshDetail()
	return m, tea.Batch(cmds...)
}

func (m Model) updatePicker(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && m.picker.FilterState() != list.Filtering {
		switch key.String() {
		case "esc", "q":
			m.showPicker = false
			return m, nil
		case "enter":
			if item, ok := m.picker.SelectedItem().(NodeItem); ok {
				m.ctrl.SetFocus(item.Node.ID)
				m.cursor = -1
				m.statusMsg = "Focus: " + item.Node.DisplayLabel()
				m.statusIsError = false
			}
			m.showPicker = false
			m.refreshDetail()
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	key := msg.String()

	if k, ok := render.ParseKey(key); ok {
		now := time.Now()
		m.panner.Press(k)
		m.keyPress[k] = now
		if !m.ticking {
			m.ticking = true
			m.lastFrame = now
			return m, m.frameCmd()
		}
		return m, nil
	}

	cam := m.r.Camera()
	hood := m.ctrl.Neighborhood()

	switch key {
	case "q", "ctrl+c":
		m.r.Unmount()
		return m, tea.Quit
	case "?":
		m.showHelp = !m.showHelp
	case "/":
		m.showPicker = true
		m.resize()
	case "tab", "j":
		m.moveCursor(1)
	case "shift+tab", "k":
		m.moveCursor(-1)
	case "enter":
		if e, ok := m.cursorEdge(); ok {
			m.ctrl.SelectEdge(e.ID)
		}
	case "o":
		if e, ok := m.cursorEdge(); ok {
			m.ctrl.SelectNode(e.Target)
			m.cursor = -1
			m.r.ClearHover()
		}
	case "n":
		if hood.Focus != "" {
			m.ctrl.SelectNode(hood.Focus)
		}
	case "esc":
		m.ctrl.ClearSelection()
		m.cursor = -1
		m.r.ClearHover()
	case "R":
		m.ctrl.Reset()
		m.cursor = -1
		m.statusMsg = "Reset to default focus"
		m.statusIsError = false
	case "+", "=":
		cam.Zoom(zoomStep)
	case "-", "_":
		cam.Zoom(-zoomStep / (1 + zoomStep))
	case "0":
		cam.Reset()
	case "f":
		if err := m.r.FitView(); err != nil {
			m.statusMsg = "Nothing to fit"
			m.statusIsError = true
		}
	case "i":
		cam.SetInteractionEnabled(!cam.InteractionEnabled())
		if cam.InteractionEnabled() {
			m.statusMsg = "Zoom and pan enabled"
		} else {
			m.statusMsg = "Zoom and pan locked"
		}
		m.statusIsError = false
	case "y":
		m.copyLinks()
	case "s":
		return m, m.snapshotCmd()
	case "pgdown", "pgup", "ctrl+d", "ctrl+u":
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleMouse(msg tea.MouseMsg) {
	p, ox, oy := m.projection()
	cx, cy := msg.X-ox, msg.Y-oy
	if cx < 0 || cy < 0 || cx >= p.w || cy >= p.h {
		return
	}
	px, py := p.viewport(cx, cy)

	switch {
	case msg.Button == tea.MouseButtonWheelUp:
		m.r.Camera().Zoom(zoomStep)
	case msg.Button == tea.MouseButtonWheelDown:
		m.r.Camera().Zoom(-zoomStep / (1 + zoomStep))
	case msg.Action == tea.MouseActionMotion:
		if m.r.PointerMove(px, py) {
			m.cursor = m.edgeIndex(m.r.Hovered())
		}
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		hit := m.r.Click(px, py)
		if hit.Kind == render.HitNode {
			m.cursor = -1
		}
	}
}

func (m *Model) moveCursor(delta int) {
	n := len(m.ctrl.Neighborhood().Edges)
	if n == 0 {
		m.cursor = -1
		return
	}
	switch {
	case m.cursor < 0 && delta > 0:
		m.cursor = 0
	case m.cursor < 0:
		m.cursor = n - 1
	default:
		m.cursor = (m.cursor + delta + n) % n
	}
	e, _ := m.cursorEdge()
	m.r.HoverEdge(e.ID)
}

func (m *Model) clampCursor() {
	if m.cursor >= len(m.ctrl.Neighborhood().Edges) {
		m.cursor = -1
		m.r.ClearHover()
	}
}

func (m Model) cursorEdge() (model.Edge, bool) {
	edges := m.ctrl.Neighborhood().Edges
	if m.cursor < 0 || m.cursor >= len(edges) {
		return model.Edge{}, false
	}
	return edges[m.cursor], true
}

func (m Model) edgeIndex(id string) int {
	for i, e := range m.ctrl.Neighborhood().Edges {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// selectionMarkdown returns the detail text for the current selection, or
// for the focus node when nothing is selected.
func (m Model) selectionMarkdown() string {
	ds := m.ctrl.Dataset()
	sel := m.ctrl.Selection()

	if id, ok := sel.EdgeID(); ok {
		e, found := m.ctrl.Neighborhood().Edge(id)
		if !found {
			e, found = ds.Edge(id)
		}
		if found {
			src, _ := ds.Node(e.Source)
			tgt, _ := ds.Node(e.Target)
			return export.EdgeMarkdown(e, src.DisplayLabel(), tgt.DisplayLabel())
		}
	}

	id, ok := sel.NodeID()
	if !ok {
		id = m.ctrl.Focus()
	}
	if n, found := ds.Node(id); found {
		return export.NodeMarkdown(n)
	}
	return "*No focus.* Press `/` to choose one.\n"
}

func (m *Model) refreshDetail() {
	if !m.ready {
		return
	}
	m.sizeDetail()
	md := m.selectionMarkdown()
	width := max(m.detail.Width-2, 10)
	if md == m.detailMD && width == m.mdWidth {
		return
	}
	if m.mdRenderer == nil || width != m.mdWidth {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			debug.Warn("markdown renderer: %v", err)
		}
		m.mdRenderer = r
		m.mdWidth = width
	}
	content := md
	if m.mdRenderer != nil {
		if out, err := m.mdRenderer.Render(md); err == nil {
			content = strings.TrimRight(out, "\n")
		}
	}
	m.detailMD = md
	m.detail.SetContent(content)
	m.detail.GotoTop()
}

// links collects the distinct citation links of the current selection.
func (m Model) links() []string {
	ds := m.ctrl.Dataset()
	seen := make(map[string]bool)
	var out []string
	add := func(link string) {
		if link != "" && !seen[link] {
			seen[link] = true
			out = append(out, link)
		}
	}

	if id, ok := m.ctrl.Selection().EdgeID(); ok {
		if e, found := ds.Edge(id); found {
			for _, c := range e.Citations {
				add(c.DocumentLink)
			}
		}
		return out
	}
	id, ok := m.ctrl.Selection().NodeID()
	if !ok {
		id = m.ctrl.Focus()
	}
	if n, found := ds.Node(id); found {
		for _, c := range n.Citations {
			add(c.DocumentLink)
		}
	}
	return out
}

func (m *Model) copyLinks() {
	links := m.links()
	if len(links) == 0 {
		m.statusMsg = "No citation links to copy"
		m.statusIsError = false
		return
	}
	if err := clipboard.WriteAll(strings.Join(links, "\n")); err != nil {
		m.statusMsg = fmt.Sprintf("Clipboard error: %v", err)
		m.statusIsError = true
		return
	}
	m.statusMsg = fmt.Sprintf("Copied %d %s to clipboard", len(links), plural(len(links), "link", "links"))
	m.statusIsError = false
}

func (m Model) snapshotCmd() tea.Cmd {
	hood := m.ctrl.Neighborhood()
	dir := m.opts.SnapshotDir
	if dir == "" {
		dir = filepath.Join(config.StateDir(), "snapshots")
	}
	renderOpts := m.r.Options()
	return func() tea.Msg {
		if hood.IsEmpty() {
			return SnapshotMsg{Err: render.ErrEmptyScene}
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return SnapshotMsg{Err: err}
		}
		name := fmt.Sprintf("%s-%s.svg", geometry.ResourceKey(hood.Focus), time.Now().Format("20060102-150405"))
		path := filepath.Join(dir, name)
		f, err := os.Create(path)
		if err != nil {
			return SnapshotMsg{Err: err}
		}
		err = export.Neighborhood(f, hood, export.FormatSVG, export.Options{Render: renderOpts})
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		return SnapshotMsg{Path: path, Err: err}
	}
}

// layout sizes: header and footer take one line each; the graph panel is on
// the left, the edge list and detail pane stack on the right.
func (m Model) graphWidth() int {
	if m.width < 2*minGraphWidth {
		return m.width
	}
	return max(minGraphWidth, m.width*3/5)
}

func (m Model) bodyHeight() int {
	return max(m.height-2, 3)
}

func (m Model) edgeRows() int {
	return min(max(len(m.ctrl.Neighborhood().Edges), 1), maxEdgeRows)
}

// projection returns the graph grid mapping and its top-left terminal cell.
func (m Model) projection() (projection, int, int) {
	opts := m.r.Options()
	return projection{
		cam: m.r.Camera(),
		vw:  opts.Layout.Width,
		vh:  opts.Layout.Height,
		w:   max(m.graphWidth()-2, 1),
		h:   max(m.bodyHeight()-2, 1),
	}, 1, 2
}

func (m *Model) resize() {
	m.sizeDetail()
	m.picker.SetSize(m.width, m.height)
	m.mdWidth = -1
}

// sizeDetail fits the detail pane under the edge list, whose height follows
// the neighborhood.
func (m *Model) sizeDetail() {
	rightWidth := m.width - m.graphWidth()
	m.detail.Width = max(rightWidth-2, 0)
	m.detail.Height = max(m.bodyHeight()-m.edgeRows()-4, 0)
}

func (m Model) View() string {
	if !m.ready {
		return "Loading…"
	}
	if m.showPicker {
		return m.picker.View()
	}

	header := m.renderHeader()
	footer := m.renderFooter()

	p, _, _ := m.projection()
	c := newCanvas(p.w, p.h)
	drawScene(c, m.r.Scene(), m.r.Geometry(), p, m.ctrl.Focus())
	graph := FocusedPanelStyle.Width(p.w).Height(p.h).Render(c.String())

	rightWidth := m.width - m.graphWidth()
	if rightWidth < 10 {
		return lipgloss.JoinVertical(lipgloss.Left, header, graph, footer)
	}
	inner := rightWidth - 2
	edges := PanelStyle.Width(inner).Height(m.edgeRows()).Render(m.renderEdgeList(inner))
	var lower string
	if m.showHelp {
		lower = PanelStyle.Width(inner).Height(m.detail.Height).Render(renderHelp(inner))
	} else {
		lower = PanelStyle.Width(inner).Height(m.detail.Height).Render(m.detail.View())
	}
	right := lipgloss.JoinVertical(lipgloss.Left, edges, lower)

	body := lipgloss.JoinHorizontal(lipgloss.Top, graph, right)
	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

func (m Model) renderHeader() string {
	hood := m.ctrl.Neighborhood()
	focus := "none"
	if n, ok := m.ctrl.Dataset().Node(hood.Focus); ok {
		focus = n.DisplayLabel() + " " + RenderCategoryBadge(m.palette, n.Category)
	}
	parts := []string{
		headerStyle.Render("threatmap"),
		"focus: " + focus,
		fmt.Sprintf("%d nodes · %d edges", len(hood.Nodes), len(hood.Edges)),
		fmt.Sprintf("zoom %.2fx", m.r.Camera().Scale()),
	}
	if !m.r.Camera().InteractionEnabled() {
		parts = append(parts, "locked")
	}
	return lipgloss.NewStyle().MaxWidth(m.width).Render(strings.Join(parts, mutedStyle.Render(" │ ")))
}

func (m Model) renderFooter() string {
	if m.statusMsg != "" {
		if m.statusIsError {
			return errorStyle.Render(m.statusMsg)
		}
		return statusStyle.Render(m.statusMsg)
	}
	return mutedStyle.Render("? help • / focus • tab edges • enter select • o open • s snapshot • q quit")
}

func (m Model) renderEdgeList(width int) string {
	hood := m.ctrl.Neighborhood()
	if len(hood.Edges) == 0 {
		return mutedStyle.Render("no relationships")
	}
	labels := make(map[string]string, len(hood.Nodes))
	fills := make(map[string]string, len(hood.Nodes))
	for _, n := range hood.Nodes {
		labels[n.ID] = n.DisplayLabel()
		fills[n.ID] = n.Fill
	}
	selected, _ := m.ctrl.Selection().EdgeID()

	start := 0
	if m.cursor >= maxEdgeRows {
		start = m.cursor - maxEdgeRows + 1
	}
	var lines []string
	for i := start; i < len(hood.Edges) && i < start+maxEdgeRows; i++ {
		e := hood.Edges[i]
		marker := "  "
		if i == m.cursor {
			marker = "› "
		}
		if e.ID == selected {
			marker = "● "
		}
		weight := fmt.Sprintf(" %5.2f", e.Weight)
		room := max(width-2-len(weight), 4)
		text := padRight(truncateRunesHelper(labels[e.Source]+" → "+labels[e.Target], room, "…"), room)
		style := fg(fills[e.Target], e.ID == selected)
		if e.ID == m.r.Hovered() || e.ID == selected {
			style = fg(m.palette.AccentColor(), true)
		}
		lines = append(lines, marker+style.Render(text)+mutedStyle.Render(weight))
	}
	return strings.Join(lines, "\n")
}

var helpEntries = [][2]string{
	{"/", "choose focus"},
	{"tab / j k", "move through edges"},
	{"enter", "select edge (toggle)"},
	{"o", "focus edge target"},
	{"n", "select focus node"},
	{"esc", "clear selection"},
	{"R", "reset to default focus"},
	{"arrows", "pan (hold)"},
	{"+ / -", "zoom"},
	{"0 / f", "reset view / fit"},
	{"i", "lock zoom and pan"},
	{"y", "copy citation links"},
	{"s", "SVG snapshot"},
	{"pgup / pgdn", "scroll detail"},
	{"?", "toggle help"},
	{"q", "quit"},
}

func renderHelp(width int) string {
	var sb strings.Builder
	for i, e := range helpEntries {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(helpKeyStyle.Render(padRight(e[0], 12)))
		sb.WriteString(helpDescStyle.Render(truncateRunesHelper(e[1], max(width-12, 1), "…")))
	}
	return sb.String()
}
