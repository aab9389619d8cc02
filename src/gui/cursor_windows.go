//go:build windows

package gui

import (
	"fmt"

	"github.com/lxn/win"
)

// Cursor moves the system cursor. It implements session.CursorPositioner.
type Cursor struct{}

func (Cursor) SetCursorPos(x, y int) error {
	if !win.SetCursorPos(int32(x), int32(y)) {
		return fmt.Errorf("SetCursorPos(%d, %d) failed", x, y)
	}
	return nil
}
