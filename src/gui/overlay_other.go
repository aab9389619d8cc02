//go:build !windows

package gui

import (
	"image/color"

	"screen-select/src/geometry"
	"screen-select/src/monitor"
	"screen-select/src/screenshot"
	"screen-select/src/selection"
)

// Overlay is not available on this platform. Show reports ErrUnsupported
// and the render callbacks do nothing.
type Overlay struct{}

func NewOverlay(monitors []monitor.Info, background *screenshot.Sampler) *Overlay {
	return &Overlay{}
}

func (o *Overlay) Show() error { return ErrUnsupported }

func (o *Overlay) Close() {}

func (o *Overlay) OnRect(int, geometry.Rect) {}

func (o *Overlay) OnState(int, selection.State) {}

func (o *Overlay) OnColor(color.Color, bool) {}
