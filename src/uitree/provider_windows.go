//go:build windows

package uitree

import (
	"fmt"

	"screen-select/src/geometry"

	"github.com/lxn/win"
)

// windowProvider walks the HWND tree. GetWindow(GW_CHILD/GW_HWNDNEXT)
// enumerates siblings in z-order, topmost first.
type windowProvider struct{}

func newPlatformProvider() Provider { return windowProvider{} }

func (windowProvider) RootChildren() ([]Element, error) {
	return children(win.GetDesktopWindow())
}

func (windowProvider) Children(h Handle) ([]Element, error) {
	hwnd := win.HWND(h)
	if !win.IsWindow(hwnd) {
		return nil, fmt.Errorf("window %#x: %w", h, ErrUnavailable)
	}
	return children(hwnd)
}

func children(parent win.HWND) ([]Element, error) {
	var out []Element
	for hwnd := win.GetWindow(parent, win.GW_CHILD); hwnd != 0; hwnd = win.GetWindow(hwnd, win.GW_HWNDNEXT) {
		style := uint32(win.GetWindowLong(hwnd, win.GWL_STYLE))
		if style&win.WS_VISIBLE == 0 {
			continue
		}
		var rc win.RECT
		if !win.GetWindowRect(hwnd, &rc) {
			continue
		}
		out = append(out, Element{
			Handle:    Handle(hwnd),
			Rect:      geometry.NewRect(float64(rc.Left), float64(rc.Top), float64(rc.Right-rc.Left), float64(rc.Bottom-rc.Top)),
			Minimized: style&win.WS_MINIMIZE != 0,
		})
	}
	return out, nil
}
