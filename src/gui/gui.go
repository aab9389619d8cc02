// Package gui draws the selection over a frozen capture of the desktop and
// moves the OS cursor for the session.
package gui

import (
	"errors"
	"fmt"
	"image/color"

	"screen-select/src/geometry"
	"screen-select/src/selection"
)

var ErrUnsupported = errors.New("overlay not supported on this platform")

// hintText is the status line shown in the top-left corner of the overlay.
func hintText(s selection.State, r geometry.Rect) string {
	if r.IsZeroArea() {
		return fmt.Sprintf("%s   ENTER save   ESC / right-click cancel", s.Mode)
	}
	return fmt.Sprintf("%s %.0fx%.0f at (%.0f,%.0f)   ENTER save   ESC / right-click cancel",
		s.Mode, r.Width, r.Height, r.X, r.Y)
}

// colorText is the hint suffix naming the background pixel under the pointer.
func colorText(c color.Color, ok bool) string {
	if !ok || c == nil {
		return ""
	}
	rgba := color.RGBAModel.Convert(c).(color.RGBA)
	return fmt.Sprintf("   #%02x%02x%02x", rgba.R, rgba.G, rgba.B)
}
