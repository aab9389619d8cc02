//go:build !windows && !linux

package gui

// Cursor is a no-op where the pointer cannot be moved.
type Cursor struct{}

func (Cursor) SetCursorPos(x, y int) error { return ErrUnsupported }
