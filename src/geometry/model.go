package geometry

import (
	"math"
	"slices"
	"sync"
)

// RectModel is an observable rectangle. One owner mutates it; any number of
// subscribers are notified after each change that actually alters the value.
// Callbacks run on the mutating goroutine.
type RectModel struct {
	mu     sync.RWMutex
	rect   Rect
	nextID int
	subs   []rectSub
}

type rectSub struct {
	id int
	fn func(Rect)
}

// NewRectModel returns a model holding initial.
func NewRectModel(initial Rect) *RectModel {
	return &RectModel{rect: initial}
}

// Rect returns the current value.
func (m *RectModel) Rect() Rect {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rect
}

// Contains reports whether the current rectangle contains the point.
func (m *RectModel) Contains(x, y float64) bool { return m.Rect().Contains(x, y) }

// Subscribe registers fn for change notifications and returns a function
// that removes it. The unsubscribe function is safe to call more than once.
func (m *RectModel) Subscribe(fn func(Rect)) (unsubscribe func()) {
	m.mu.Lock()
	m.nextID++
	id := m.nextID
	m.subs = append(m.subs, rectSub{id: id, fn: fn})
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			for i, s := range m.subs {
				if s.id == id {
					m.subs = append(m.subs[:i:i], m.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Reset drops every subscriber.
func (m *RectModel) Reset() {
	m.mu.Lock()
	m.subs = nil
	m.mu.Unlock()
}

// Set replaces the rectangle.
func (m *RectModel) Set(x, y, width, height float64) {
	m.SetRect(Rect{X: x, Y: y, Width: width, Height: height})
}

// SetRect replaces the rectangle with r.
func (m *RectModel) SetRect(r Rect) {
	m.mu.Lock()
	if m.rect == r {
		m.mu.Unlock()
		return
	}
	m.rect = r
	subs := make([]rectSub, len(m.subs))
	copy(subs, m.subs)
	m.mu.Unlock()

	for _, s := range subs {
		s.fn(r)
	}
}

func (m *RectModel) update(fn func(Rect) Rect) {
	m.SetRect(fn(m.Rect()))
}

// Offset moves the rectangle by the delta between (x1, y1) and (x2, y2).
func (m *RectModel) Offset(x1, y1, x2, y2 float64) {
	m.update(func(r Rect) Rect { return r.Offset(x2-x1, y2-y1) })
}

// Union grows the rectangle so that it contains (x, y).
func (m *RectModel) Union(x, y float64) {
	m.update(func(r Rect) Rect { return r.UnionPoint(x, y) })
}

// SetLeft moves the left edge, keeping the right edge fixed. Moving it past
// the right edge collapses the width to zero.
func (m *RectModel) SetLeft(left float64) {
	m.update(func(r Rect) Rect {
		right := r.Right()
		r.X = math.Min(left, right)
		r.Width = right - r.X
		return r
	})
}

// SetTop moves the top edge, keeping the bottom edge fixed.
func (m *RectModel) SetTop(top float64) {
	m.update(func(r Rect) Rect {
		bottom := r.Bottom()
		r.Y = math.Min(top, bottom)
		r.Height = bottom - r.Y
		return r
	})
}

// SetRight moves the right edge, keeping the left edge fixed.
func (m *RectModel) SetRight(right float64) {
	m.update(func(r Rect) Rect {
		r.Width = math.Max(right-r.X, 0)
		return r
	})
}

// SetBottom moves the bottom edge, keeping the top edge fixed.
func (m *RectModel) SetBottom(bottom float64) {
	m.update(func(r Rect) Rect {
		r.Height = math.Max(bottom-r.Y, 0)
		return r
	})
}

// PointModel is an observable point, used to track the last pointer
// position applied to the selection.
type PointModel struct {
	mu   sync.RWMutex
	x, y float64
	set  bool
	subs []func(x, y float64)
}

// Set stores the point and notifies subscribers when it changed.
func (p *PointModel) Set(x, y float64) {
	p.mu.Lock()
	if p.set && p.x == x && p.y == y {
		p.mu.Unlock()
		return
	}
	p.x, p.y, p.set = x, y, true
	subs := slices.Clone(p.subs)
	p.mu.Unlock()
	for _, fn := range subs {
		fn(x, y)
	}
}

// Get returns the point and whether one was ever set.
func (p *PointModel) Get() (x, y float64, ok bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.x, p.y, p.set
}

// Subscribe registers fn for change notifications.
func (p *PointModel) Subscribe(fn func(x, y float64)) {
	p.mu.Lock()
	p.subs = append(p.subs, fn)
	p.mu.Unlock()
}
