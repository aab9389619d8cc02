// Package uitree hit-tests on-screen UI elements. It walks the platform's
// window tree lazily and keeps a per-session snapshot of element bounds.
package uitree

import (
	"errors"

	"screen-select/src/geometry"
)

// ErrUnavailable is returned by providers when the tree cannot be queried
// right now (target busy, element gone, no display connection).
var ErrUnavailable = errors.New("ui tree unavailable")

// Handle identifies a native element (HWND, X11 window id).
type Handle uintptr

// Element is one node as reported by a Provider. Rect is in physical pixels.
type Element struct {
	Handle    Handle
	Rect      geometry.Rect
	Minimized bool
}

// Provider queries the platform accessibility / window tree. Children are
// returned front-to-back. Any error is treated by the cache as "no children".
type Provider interface {
	RootChildren() ([]Element, error)
	Children(h Handle) ([]Element, error)
}

// NewPlatformProvider returns the provider for the running OS.
func NewPlatformProvider() Provider { return newPlatformProvider() }
