// Package inputhook owns the process-wide gohook event stream and fans it out
// to pointer and keyboard subscribers.
package inputhook

import (
	"screen-select/src/selection"

	gohook "github.com/robotn/gohook"
)

// libuiohook button numbers.
const (
	buttonLeft  = 1
	buttonRight = 2
)

// KeyEvent is a key press or release identified by its platform rawcode.
type KeyEvent struct {
	Down    bool
	Rawcode uint16
}

// FromHook converts a gohook mouse event into a selection event. It reports
// false for events the selection engine does not consume (wheel, middle
// button, clicks, keys).
//
// libuiohook names are offset from Win32 terms: MouseHold is the button
// press, MouseDown the release and MouseUp the synthesized click.
func FromHook(ev gohook.Event) (selection.Event, bool) {
	var msg selection.Message
	switch ev.Kind {
	case gohook.MouseMove, gohook.MouseDrag:
		msg = selection.MouseMove
	case gohook.MouseHold:
		switch ev.Button {
		case buttonLeft:
			msg = selection.LeftDown
		case buttonRight:
			msg = selection.RightDown
		default:
			return selection.Event{}, false
		}
	case gohook.MouseDown:
		if ev.Button != buttonLeft {
			return selection.Event{}, false
		}
		msg = selection.LeftUp
	default:
		return selection.Event{}, false
	}
	return selection.Event{Message: msg, X: int(ev.X), Y: int(ev.Y)}, true
}

// KeyFromHook converts a gohook keyboard event. Repeats (KeyHold) count as
// presses.
func KeyFromHook(ev gohook.Event) (KeyEvent, bool) {
	switch ev.Kind {
	case gohook.KeyDown, gohook.KeyHold:
		return KeyEvent{Down: true, Rawcode: ev.Rawcode}, true
	case gohook.KeyUp:
		return KeyEvent{Down: false, Rawcode: ev.Rawcode}, true
	}
	return KeyEvent{}, false
}
