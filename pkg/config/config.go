// Package config handles loading and saving threatmap configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/threatmap/config.yaml (or config.toml)
//   - State:   ~/.local/state/threatmap/ (explorer snapshots)
//
// THREATMAP_CONFIG points at an explicit file; THREATMAP_DATA overrides the
// default dataset path.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/threatmap/pkg/geometry"
	"github.com/vanderheijden86/threatmap/pkg/layout"
	"github.com/vanderheijden86/threatmap/pkg/render"
	"github.com/vanderheijden86/threatmap/pkg/selection"
	"github.com/vanderheijden86/threatmap/pkg/theme"
)

const (
	appName = "threatmap"

	EnvConfig = "THREATMAP_CONFIG"
	EnvData   = "THREATMAP_DATA"
)

// CanvasConfig holds drawing geometry. Zero fields take the renderer defaults.
type CanvasConfig struct {
	Width           float64 `yaml:"width,omitempty" toml:"width,omitempty"`
	Height          float64 `yaml:"height,omitempty" toml:"height,omitempty"`
	NodeRadius      float64 `yaml:"node_radius,omitempty" toml:"node_radius,omitempty"`
	VerticalSpacing float64 `yaml:"vertical_spacing,omitempty" toml:"vertical_spacing,omitempty"`
	LeftPadding     float64 `yaml:"left_padding,omitempty" toml:"left_padding,omitempty"`
	RightPadding    float64 `yaml:"right_padding,omitempty" toml:"right_padding,omitempty"`
	VerticalPadding float64 `yaml:"vertical_padding,omitempty" toml:"vertical_padding,omitempty"`
	ArrowheadSize   float64 `yaml:"arrowhead_size,omitempty" toml:"arrowhead_size,omitempty"`
	HitPadding      float64 `yaml:"hit_padding,omitempty" toml:"hit_padding,omitempty"`
	LabelFontSize   float64 `yaml:"label_font_size,omitempty" toml:"label_font_size,omitempty"`
	PanSpeed        float64 `yaml:"pan_speed,omitempty" toml:"pan_speed,omitempty"` // px per second
	Background      string  `yaml:"background,omitempty" toml:"background,omitempty"`
	LabelColor      string  `yaml:"label_color,omitempty" toml:"label_color,omitempty"`
}

// SelectionConfig controls the focus neighborhood. A negative limit removes
// the cap.
type SelectionConfig struct {
	DefaultFocus     string `yaml:"default_focus,omitempty" toml:"default_focus,omitempty"`
	FirstOrderLimit  int    `yaml:"first_order_limit,omitempty" toml:"first_order_limit,omitempty"`
	SecondOrderLimit int    `yaml:"second_order_limit,omitempty" toml:"second_order_limit,omitempty"`
}

// TransitionConfig holds the delays between a focus change, the scene swap
// and the fit-view that follows it.
type TransitionConfig struct {
	SwapDelay time.Duration `yaml:"swap_delay,omitempty" toml:"swap_delay,omitempty"`
	FitDelay  time.Duration `yaml:"fit_delay,omitempty" toml:"fit_delay,omitempty"`
}

// ThemeConfig overrides the category colors and the accent.
type ThemeConfig struct {
	Accent     string            `yaml:"accent,omitempty" toml:"accent,omitempty"`
	Categories map[string]string `yaml:"categories,omitempty" toml:"categories,omitempty"`
}

// ExplorerConfig holds terminal explorer preferences.
type ExplorerConfig struct {
	LiveReload bool          `yaml:"live_reload" toml:"live_reload"`
	FrameRate  time.Duration `yaml:"frame_rate,omitempty" toml:"frame_rate,omitempty"` // key-hold pan tick
	ShowHelp   bool          `yaml:"show_help" toml:"show_help"`
}

// Config is the top-level configuration for threatmap.
type Config struct {
	Data       string           `yaml:"data,omitempty" toml:"data,omitempty"`
	Canvas     CanvasConfig     `yaml:"canvas,omitempty" toml:"canvas"`
	Selection  SelectionConfig  `yaml:"selection,omitempty" toml:"selection"`
	Transition TransitionConfig `yaml:"transition,omitempty" toml:"transition"`
	Theme      ThemeConfig      `yaml:"theme,omitempty" toml:"theme"`
	Explorer   ExplorerConfig   `yaml:"explorer,omitempty" toml:"explorer"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Selection: SelectionConfig{
			FirstOrderLimit:  selection.DefaultEdgeLimit,
			SecondOrderLimit: selection.DefaultEdgeLimit,
		},
		Transition: TransitionConfig{
			SwapDelay: render.DefaultSwapDelay,
			FitDelay:  render.DefaultFitDelay,
		},
		Explorer: ExplorerConfig{
			LiveReload: true,
			FrameRate:  50 * time.Millisecond,
			ShowHelp:   true,
		},
	}
}

// ConfigDir returns the XDG config directory for threatmap.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", appName)
}

// StateDir returns the XDG state directory for threatmap.
func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "state", appName)
}

// ConfigPath returns the config file to read: THREATMAP_CONFIG if set,
// otherwise config.yaml in the config directory.
func ConfigPath() string {
	if p := os.Getenv(EnvConfig); p != "" {
		return expandHome(p)
	}
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from ConfigPath.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path. Files ending in .toml are
// parsed as TOML, everything else as YAML.
// Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if isTOML(path) {
		err = toml.Unmarshal(data, &cfg)
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	cfg.Data = expandHome(cfg.Data)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save writes the config to ConfigPath.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path, as TOML when the path ends
// in .toml.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	var data []byte
	var err error
	if isTOML(path) {
		var b strings.Builder
		err = toml.NewEncoder(&b).Encode(cfg)
		data = []byte(b.String())
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// Validate rejects values no renderer could use.
func (c Config) Validate() error {
	for name, v := range map[string]float64{
		"canvas.width":  c.Canvas.Width,
		"canvas.height": c.Canvas.Height,
	} {
		if v < 0 {
			return fmt.Errorf("invalid config: %s must not be negative", name)
		}
	}
	if c.Theme.Accent != "" {
		if _, err := theme.ParseHex(c.Theme.Accent); err != nil {
			return fmt.Errorf("invalid config: theme.accent: %w", err)
		}
	}
	for name, v := range c.Theme.Categories {
		if _, err := theme.ParseHex(v); err != nil {
			return fmt.Errorf("invalid config: theme.categories.%s: %w", name, err)
		}
	}
	if c.Transition.SwapDelay < 0 || c.Transition.FitDelay < 0 {
		return fmt.Errorf("invalid config: transition delays must not be negative")
	}
	return nil
}

// DataPath returns THREATMAP_DATA if set, otherwise the configured dataset.
func (c Config) DataPath() string {
	if p := os.Getenv(EnvData); p != "" {
		return expandHome(p)
	}
	return c.Data
}

// LayoutConfig returns the positioner canvas.
func (c Config) LayoutConfig() layout.Config {
	return layout.Config{
		Width:           c.Canvas.Width,
		Height:          c.Canvas.Height,
		NodeRadius:      c.Canvas.NodeRadius,
		VerticalSpacing: c.Canvas.VerticalSpacing,
		LeftPadding:     c.Canvas.LeftPadding,
		RightPadding:    c.Canvas.RightPadding,
		VerticalPadding: c.Canvas.VerticalPadding,
	}.WithDefaults()
}

// GeometryOptions returns the edge trimming and accent settings.
func (c Config) GeometryOptions() geometry.Options {
	return geometry.Options{
		NodeRadius:    c.LayoutConfig().NodeRadius,
		ArrowheadSize: c.Canvas.ArrowheadSize,
		Accent:        c.Palette().AccentColor(),
	}.WithDefaults()
}

// RenderOptions returns the full drawing options.
func (c Config) RenderOptions() render.Options {
	return render.Options{
		Layout:        c.LayoutConfig(),
		Geometry:      c.GeometryOptions(),
		HitPadding:    c.Canvas.HitPadding,
		LabelFontSize: c.Canvas.LabelFontSize,
		Background:    c.Canvas.Background,
		LabelColor:    c.Canvas.LabelColor,
		PanSpeed:      c.Canvas.PanSpeed,
	}.WithDefaults()
}

// Limits returns the neighborhood caps.
func (c Config) Limits() selection.Limits {
	return selection.Limits{
		FirstOrder:  c.Selection.FirstOrderLimit,
		SecondOrder: c.Selection.SecondOrderLimit,
	}
}

// Palette returns the default palette with the theme overrides applied.
func (c Config) Palette() theme.Palette {
	return theme.DefaultPalette().WithOverrides(c.Theme.Categories, c.Theme.Accent)
}

// SelectionOptions returns controller options for this config.
func (c Config) SelectionOptions() selection.Options {
	return selection.Options{
		Limits:       c.Limits(),
		Palette:      c.Palette(),
		DefaultFocus: c.Selection.DefaultFocus,
	}
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
