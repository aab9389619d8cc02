// Package selection turns an ordered stream of pointer messages into a live
// selection rectangle for one monitor.
package selection

import "fmt"

// Message is the kind of pointer event.
type Message int

const (
	MouseMove Message = iota
	LeftDown
	LeftUp
	RightDown
)

func (m Message) String() string {
	switch m {
	case MouseMove:
		return "move"
	case LeftDown:
		return "left-down"
	case LeftUp:
		return "left-up"
	case RightDown:
		return "right-down"
	default:
		return fmt.Sprintf("message(%d)", int(m))
	}
}

// Event is one pointer message at a physical screen position.
type Event struct {
	Message Message
	X       int
	Y       int
}

func (e Event) String() string {
	return fmt.Sprintf("%s@(%d,%d)", e.Message, e.X, e.Y)
}

// Mode is the interaction mode of a Machine.
type Mode int

const (
	AutoDetect Mode = iota
	ResizingVertex
	ResizingLeftEdge
	ResizingTopEdge
	ResizingRightEdge
	ResizingBottomEdge
	Moving
	Fixed
)

var modeNames = [...]string{
	AutoDetect:         "auto-detect",
	ResizingVertex:     "resizing-vertex",
	ResizingLeftEdge:   "resizing-left",
	ResizingTopEdge:    "resizing-top",
	ResizingRightEdge:  "resizing-right",
	ResizingBottomEdge: "resizing-bottom",
	Moving:             "moving",
	Fixed:              "fixed",
}

func (m Mode) String() string {
	if m >= 0 && int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// IsResizing reports whether m is one of the resizing modes.
func (m Mode) IsResizing() bool { return m >= ResizingVertex && m <= ResizingBottomEdge }

// Outcome tells the owner of a Machine what an event implies beyond the
// rectangle update.
type Outcome struct {
	// Exit is set when the user asked to leave the session (right click
	// while auto-detecting).
	Exit bool
	// Debounced is set when a left-button release finished a drag; the
	// release position was not applied to the rectangle.
	Debounced bool
}
