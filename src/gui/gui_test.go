package gui

import (
	"image/color"
	"strings"
	"testing"

	"screen-select/src/geometry"
	"screen-select/src/selection"
)

func TestHintText(t *testing.T) {
	tests := []struct {
		name  string
		state selection.State
		rect  geometry.Rect
		want  string
	}{
		{"empty", selection.State{Mode: selection.AutoDetect}, geometry.Empty, "auto-detect   ENTER"},
		{"zero", selection.State{Mode: selection.AutoDetect}, geometry.Zero, "auto-detect   ENTER"},
		{"sized", selection.State{Mode: selection.Fixed}, geometry.NewRect(10, 20, 300, 200), "fixed 300x200 at (10,20)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := hintText(tt.state, tt.rect); !strings.HasPrefix(got, tt.want) {
				t.Errorf("Expected prefix %q, got %q", tt.want, got)
			}
		})
	}
}

func TestColorText(t *testing.T) {
	if got := colorText(color.RGBA{R: 0x12, G: 0xab, B: 0xff, A: 255}, true); got != "   #12abff" {
		t.Errorf("Expected %q, got %q", "   #12abff", got)
	}
	if got := colorText(nil, false); got != "" {
		t.Errorf("Expected no suffix without a sample, got %q", got)
	}
}
