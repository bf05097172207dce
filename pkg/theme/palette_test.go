package theme

import (
	"image/color"
	"testing"

	"github.com/vanderheijden86/threatmap/pkg/model"
)

func TestPaletteFill(t *testing.T) {
	p := DefaultPalette()
	if got := p.Fill(model.CategoryThreat); got != "#e15759" {
		t.Errorf("Fill(threat) = %s", got)
	}
	if got := p.Fill("THREAT"); got != "#e15759" {
		t.Errorf("category lookup should be case-insensitive, got %s", got)
	}
	if got := p.Fill("weather"); got != Neutral {
		t.Errorf("unknown category should be neutral, got %s", got)
	}
}

func TestPaletteOverrides(t *testing.T) {
	base := DefaultPalette()
	p := base.WithOverrides(map[string]string{"Threat": "#000", "actor": "nope"}, "#00ff00")
	if got := p.Fill(model.CategoryThreat); got != "#000000" {
		t.Errorf("override not applied: %s", got)
	}
	if got := p.Fill(model.CategoryActor); got != "#f28e2b" {
		t.Errorf("invalid override should be ignored: %s", got)
	}
	if p.AccentColor() != "#00ff00" {
		t.Errorf("accent = %s", p.AccentColor())
	}
	if base.Fill(model.CategoryThreat) != "#e15759" {
		t.Error("WithOverrides mutated the receiver")
	}
}

func TestParseHex(t *testing.T) {
	c, err := ParseHex("#1a2B3c")
	if err != nil {
		t.Fatal(err)
	}
	if c != (color.RGBA{0x1a, 0x2b, 0x3c, 0xff}) {
		t.Errorf("ParseHex = %+v", c)
	}
	if CSS(c) != "#1a2b3c" {
		t.Errorf("CSS round trip = %s", CSS(c))
	}
	if _, err := ParseHex("#12"); err == nil {
		t.Error("expected error for short hex")
	}
	if _, err := ParseHex("#zzzzzz"); err == nil {
		t.Error("expected error for non-hex digits")
	}
	for _, in := range []string{"bad", "fed", "1a2b3c"} {
		if _, err := ParseHex(in); err == nil {
			t.Errorf("ParseHex(%q) accepted a color without '#'", in)
		}
		if HexOrNeutral(in) != HexOrNeutral(Neutral) {
			t.Errorf("HexOrNeutral(%q) should fall back to neutral", in)
		}
	}
	if HexOrNeutral("#abc") != (color.RGBA{0xaa, 0xbb, 0xcc, 0xff}) {
		t.Error("short form not expanded")
	}
}

func TestAdaptive(t *testing.T) {
	p := DefaultPalette()
	got := p.Adaptive(model.CategoryMitigation)
	if got.Dark != "#59a14f" {
		t.Errorf("dark = %s", got.Dark)
	}
	// 0x59*0.75 = 0x42, 0xa1*0.75 = 0x78, 0x4f*0.75 = 0x3b
	if got.Light != "#42783b" {
		t.Errorf("light = %s", got.Light)
	}
	if p.AccentAdaptive().Dark != DefaultAccent {
		t.Errorf("accent = %+v", p.AccentAdaptive())
	}
}
