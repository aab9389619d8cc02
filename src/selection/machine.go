package selection

import (
	"math"
	"slices"
	"sync"

	"screen-select/src/geometry"
)

// DetectFunc returns the element rectangle under a physical point, or
// geometry.Empty when there is none.
type DetectFunc func(x, y float64) geometry.Rect

// Config wires a Machine to its monitor.
type Config struct {
	// Model receives the selection in display units of the monitor.
	Model *geometry.RectModel
	// Detect hit-tests the element tree. Nil means nothing is ever detected.
	Detect DetectFunc
	// Converter maps physical pixels to the monitor's display units.
	Converter geometry.Converter
	// Bounds is the monitor's physical rectangle.
	Bounds geometry.Rect
}

// State is the observable part of a Machine besides its rectangle.
type State struct {
	Mode        Mode
	Orientation geometry.Orientation
}

// Machine is the per-monitor selection state machine. Handle must be called
// from a single goroutine; listeners run on that goroutine.
type Machine struct {
	model   *geometry.RectModel
	detect  DetectFunc
	conv    geometry.Converter
	bounds  geometry.Rect
	pointer geometry.PointModel

	mode        Mode
	orientation geometry.Orientation
	prevX       float64
	prevY       float64

	mu        sync.Mutex
	listeners []func(State)
}

// New returns a machine in AutoDetect mode.
func New(cfg Config) *Machine {
	model := cfg.Model
	if model == nil {
		model = geometry.NewRectModel(geometry.Empty)
	}
	detect := cfg.Detect
	if detect == nil {
		detect = func(float64, float64) geometry.Rect { return geometry.Empty }
	}
	conv := cfg.Converter
	if conv.ScaleX == 0 || conv.ScaleY == 0 {
		conv = geometry.NewConverter(conv.OriginX, conv.OriginY, conv.ScaleX, conv.ScaleY)
	}
	return &Machine{
		model:       model,
		detect:      detect,
		conv:        conv,
		bounds:      cfg.Bounds,
		mode:        AutoDetect,
		orientation: geometry.Center,
	}
}

// Model returns the rectangle driven by the machine.
func (m *Machine) Model() *geometry.RectModel { return m.model }

// Converter returns the machine's physical/display converter.
func (m *Machine) Converter() geometry.Converter { return m.conv }

// Bounds returns the monitor's physical rectangle.
func (m *Machine) Bounds() geometry.Rect { return m.bounds }

// Pointer holds the last physical pointer position applied to the machine.
// Left-button releases are not recorded.
func (m *Machine) Pointer() *geometry.PointModel { return &m.pointer }

// State returns the current mode and orientation.
func (m *Machine) State() State {
	return State{Mode: m.mode, Orientation: m.orientation}
}

// OnChange registers fn to be called whenever the mode or orientation changes.
func (m *Machine) OnChange(fn func(State)) {
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

// Handle applies one event. Every mode accepts every message; combinations
// without a transition leave the machine untouched.
func (m *Machine) Handle(e Event) Outcome {
	px, py := float64(e.X), float64(e.Y)
	x, y := m.conv.ToDisplay(px, py)

	var out Outcome
	switch e.Message {
	case MouseMove:
		m.onMove(px, py, x, y)
	case LeftDown:
		m.onLeftDown(x, y)
	case LeftUp:
		out.Debounced = m.onLeftUp()
	case RightDown:
		out.Exit = m.onRightDown(px, py)
	}

	if e.Message != LeftUp {
		m.pointer.Set(px, py)
	}
	return out
}

func (m *Machine) onMove(px, py, x, y float64) {
	switch m.mode {
	case AutoDetect:
		m.autoDetect(px, py)
	case Fixed:
		m.setState(Fixed, geometry.Classify(x, y, m.model.Rect()))
	case ResizingVertex:
		r := geometry.RectFromTwoPoints(m.prevX, m.prevY, x, y)
		m.model.SetRect(r)
		if o := geometry.Classify(x, y, r); o.IsVertex() {
			m.setState(ResizingVertex, o)
		}
	case ResizingLeftEdge, ResizingTopEdge, ResizingRightEdge, ResizingBottomEdge:
		m.resizeEdge(x, y)
	case Moving:
		m.model.Offset(m.prevX, m.prevY, x, y)
		m.prevX, m.prevY = x, y
	}
}

func (m *Machine) onLeftDown(x, y float64) {
	switch m.mode {
	case AutoDetect:
		m.prevX, m.prevY = x, y
		m.setState(ResizingVertex, geometry.Center)
	case Fixed:
		r := m.model.Rect()
		if r.IsEmpty() {
			r = geometry.NewRect(x, y, 0, 0)
			m.model.SetRect(r)
		}
		if r.Contains(x, y) {
			m.prevX, m.prevY = x, y
			m.setState(Moving, geometry.Center)
			return
		}
		m.beginResize(geometry.Classify(x, y, r), r)
		m.model.Union(x, y)
	}
}

func (m *Machine) onLeftUp() bool {
	if m.mode.IsResizing() || m.mode == Moving {
		// A click without a drag over nothing detected fixes a point at the
		// press position; Fixed never holds Empty.
		if m.model.Rect().IsEmpty() {
			m.model.SetRect(geometry.NewRect(m.prevX, m.prevY, 0, 0))
		}
		m.setState(Fixed, m.orientation)
		return true
	}
	return false
}

func (m *Machine) onRightDown(px, py float64) bool {
	switch m.mode {
	case AutoDetect:
		return true
	case Fixed:
		m.setState(AutoDetect, geometry.Center)
		m.autoDetect(px, py)
	}
	return false
}

func (m *Machine) autoDetect(px, py float64) {
	r := m.detect(px, py)
	if r.IsEmpty() || !m.bounds.IntersectsWith(r) {
		m.model.SetRect(geometry.Zero)
		return
	}
	m.model.SetRect(m.conv.ToDisplayRect(r))
}

// beginResize enters the resize mode matching o, a classification of a point
// outside r. Vertex resizes anchor at the opposite corner.
func (m *Machine) beginResize(o geometry.Orientation, r geometry.Rect) {
	switch {
	case o == geometry.Left|geometry.Top:
		m.prevX, m.prevY = r.Right(), r.Bottom()
	case o == geometry.Right|geometry.Top:
		m.prevX, m.prevY = r.X, r.Bottom()
	case o == geometry.Left|geometry.Bottom:
		m.prevX, m.prevY = r.Right(), r.Y
	case o == geometry.Right|geometry.Bottom:
		m.prevX, m.prevY = r.X, r.Y
	case o.Has(geometry.Left):
		m.setState(ResizingLeftEdge, geometry.Left)
		return
	case o.Has(geometry.Top):
		m.setState(ResizingTopEdge, geometry.Top)
		return
	case o.Has(geometry.Right):
		m.setState(ResizingRightEdge, geometry.Right)
		return
	case o.Has(geometry.Bottom):
		m.setState(ResizingBottomEdge, geometry.Bottom)
		return
	}
	m.setState(ResizingVertex, o)
}

// resizeEdge moves the live edge to the pointer. Dragging past the opposite
// edge collapses the rectangle onto that edge and continues from there with
// the mirrored edge, so extents never go negative.
func (m *Machine) resizeEdge(x, y float64) {
	r := m.model.Rect()
	o := geometry.Classify(x, y, r)

	switch m.mode {
	case ResizingLeftEdge:
		if o.Has(geometry.Right) {
			m.setState(ResizingRightEdge, geometry.Right)
			m.model.Set(r.Right(), r.Y, math.Max(x-r.Right(), 0), r.Height)
			return
		}
		m.model.SetLeft(x)
	case ResizingRightEdge:
		if o.Has(geometry.Left) {
			m.setState(ResizingLeftEdge, geometry.Left)
			m.model.Set(math.Min(x, r.X), r.Y, math.Max(r.X-x, 0), r.Height)
			return
		}
		m.model.SetRight(x)
	case ResizingTopEdge:
		if o.Has(geometry.Bottom) {
			m.setState(ResizingBottomEdge, geometry.Bottom)
			m.model.Set(r.X, r.Bottom(), r.Width, math.Max(y-r.Bottom(), 0))
			return
		}
		m.model.SetTop(y)
	case ResizingBottomEdge:
		if o.Has(geometry.Top) {
			m.setState(ResizingTopEdge, geometry.Top)
			m.model.Set(r.X, math.Min(y, r.Y), r.Width, math.Max(r.Y-y, 0))
			return
		}
		m.model.SetBottom(y)
	}
}

func (m *Machine) setState(mode Mode, o geometry.Orientation) {
	if m.mode == mode && m.orientation == o {
		return
	}
	m.mode, m.orientation = mode, o
	s := State{Mode: mode, Orientation: o}

	m.mu.Lock()
	listeners := slices.Clone(m.listeners)
	m.mu.Unlock()
	for _, fn := range listeners {
		fn(s)
	}
}
