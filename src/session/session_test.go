package session

import (
	"context"
	"errors"
	"image/color"
	"sync"
	"testing"
	"time"

	"screen-select/src/geometry"
	"screen-select/src/monitor"
	"screen-select/src/selection"
	"screen-select/src/uitree"
)

type staticProvider struct {
	roots []uitree.Element
}

func (p staticProvider) RootChildren() ([]uitree.Element, error) { return p.roots, nil }

func (p staticProvider) Children(uitree.Handle) ([]uitree.Element, error) { return nil, nil }

type recordingSink struct {
	mu     sync.Mutex
	rects  map[int][]geometry.Rect
	states map[int][]selection.State
}

func newRecordingSink() *recordingSink {
	return &recordingSink{rects: map[int][]geometry.Rect{}, states: map[int][]selection.State{}}
}

func (r *recordingSink) OnRect(monitor int, rect geometry.Rect) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rects[monitor] = append(r.rects[monitor], rect)
}

func (r *recordingSink) OnState(monitor int, s selection.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[monitor] = append(r.states[monitor], s)
}

func (r *recordingSink) last(monitor int) geometry.Rect {
	r.mu.Lock()
	defer r.mu.Unlock()
	rects := r.rects[monitor]
	if len(rects) == 0 {
		return geometry.Empty
	}
	return rects[len(rects)-1]
}

type fakeCursor struct {
	mu     sync.Mutex
	points [][2]int
}

func (c *fakeCursor) SetCursorPos(x, y int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.points = append(c.points, [2]int{x, y})
	return nil
}

type solidPixels struct{}

func (solidPixels) ColorAt(x, y int) (color.Color, bool) {
	return color.RGBA{R: uint8(x), G: uint8(y), A: 255}, true
}

func twoMonitors() []monitor.Info {
	return []monitor.Info{
		{Index: 0, PhysicalBounds: geometry.NewRect(0, 0, 1920, 1080), ScaleX: 1, ScaleY: 1, Primary: true},
		{Index: 1, PhysicalBounds: geometry.NewRect(1920, 0, 1920, 1080), ScaleX: 1.25, ScaleY: 1.25},
	}
}

func ev(msg selection.Message, x, y int) selection.Event {
	return selection.Event{Message: msg, X: x, Y: y}
}

func startSession(t *testing.T, opts Options) (*Session, chan selection.Event) {
	t.Helper()
	events := make(chan selection.Event, 64)
	opts.Events = events
	if opts.Monitors == nil {
		opts.Monitors = twoMonitors()
	}
	if opts.Provider == nil {
		opts.Provider = staticProvider{}
	}
	s, err := New(opts)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(s.Stop)
	return s, events
}

func waitResult(t *testing.T, s *Session) (Result, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.Wait(ctx)
}

func TestCommitOnSecondMonitor(t *testing.T) {
	sink := newRecordingSink()
	s, events := startSession(t, Options{Render: sink})

	events <- ev(selection.LeftDown, 1920, 100)
	events <- ev(selection.MouseMove, 2000, 180)

	if err := s.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	res, err := waitResult(t, s)
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if res.Monitor != 1 {
		t.Errorf("Expected monitor 1, got %d", res.Monitor)
	}
	if want := geometry.NewRect(1920, 100, 80, 80); res.Rect != want {
		t.Errorf("Expected physical rect %v, got %v", want, res.Rect)
	}
	if got, want := sink.last(1), geometry.NewRect(0, 125, 100, 100); got != want {
		t.Errorf("Expected display rect %v on monitor 1, got %v", want, got)
	}
	if got, want := sink.last(0), geometry.NewRect(1920, 100, 80, 80); got != want {
		t.Errorf("Expected mirrored rect %v on monitor 0, got %v", want, got)
	}
}

func TestCommitEmptySelectionKeepsRunning(t *testing.T) {
	s, events := startSession(t, Options{})

	events <- ev(selection.MouseMove, 100, 100)
	if err := s.Commit(); !errors.Is(err, ErrEmptySelection) {
		t.Fatalf("Expected ErrEmptySelection, got %v", err)
	}
	select {
	case <-s.Done():
		t.Fatal("Expected session to keep running")
	default:
	}

	events <- ev(selection.LeftDown, 10, 10)
	events <- ev(selection.MouseMove, 110, 60)
	events <- ev(selection.LeftUp, 111, 61)
	if err := s.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	res, err := waitResult(t, s)
	if err != nil || res.Rect != geometry.NewRect(10, 10, 100, 50) || res.Monitor != 0 {
		t.Errorf("Unexpected result %+v, %v", res, err)
	}
}

func TestAutoDetectCommit(t *testing.T) {
	provider := staticProvider{roots: []uitree.Element{
		{Handle: 1, Rect: geometry.NewRect(100, 100, 400, 300)},
	}}
	s, events := startSession(t, Options{Provider: provider})

	events <- ev(selection.MouseMove, 200, 200)
	if err := s.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	res, err := waitResult(t, s)
	if err != nil || res.Rect != geometry.NewRect(100, 100, 400, 300) {
		t.Errorf("Unexpected result %+v, %v", res, err)
	}
}

func TestRightClickExits(t *testing.T) {
	s, events := startSession(t, Options{})

	events <- ev(selection.RightDown, 5, 5)
	if _, err := waitResult(t, s); !errors.Is(err, ErrSelectionCancelled) {
		t.Errorf("Expected ErrSelectionCancelled, got %v", err)
	}
	if err := s.Commit(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Expected ErrNotRunning after exit, got %v", err)
	}
}

func TestCancel(t *testing.T) {
	s, _ := startSession(t, Options{})
	if err := s.Cancel(); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if _, err := waitResult(t, s); !errors.Is(err, ErrSelectionCancelled) {
		t.Errorf("Expected ErrSelectionCancelled, got %v", err)
	}
}

func TestSnapBackAfterDrag(t *testing.T) {
	cursor := &fakeCursor{}
	s, events := startSession(t, Options{Cursor: cursor})

	events <- ev(selection.LeftDown, 10, 10)
	events <- ev(selection.MouseMove, 50, 50)
	events <- ev(selection.LeftUp, 52, 51)
	if err := s.Cancel(); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	cursor.mu.Lock()
	defer cursor.mu.Unlock()
	if len(cursor.points) != 1 || cursor.points[0] != [2]int{50, 50} {
		t.Errorf("Expected one snap-back to (50, 50), got %v", cursor.points)
	}
}

func TestStopReleasesResources(t *testing.T) {
	sink := newRecordingSink()
	provider := staticProvider{roots: []uitree.Element{
		{Handle: 1, Rect: geometry.NewRect(0, 0, 100, 100)},
	}}
	s, events := startSession(t, Options{Render: sink, Provider: provider})
	events <- ev(selection.MouseMove, 10, 10)
	if err := s.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	s.Stop()

	if stats := s.cache.Stats(); stats.Roots != 0 {
		t.Errorf("Expected cache released, got %+v", stats)
	}
	before := len(sink.rects[0])
	s.Model(0).Set(1, 2, 3, 4)
	if len(sink.rects[0]) != before {
		t.Error("Expected renderers to be unsubscribed after Stop")
	}
}

func TestPixelAt(t *testing.T) {
	s, _ := startSession(t, Options{Pixels: solidPixels{}})

	c, ok := s.PixelAt(1, 125, 25)
	if !ok {
		t.Fatal("Expected a pixel")
	}
	// Display (125, 25) on monitor 1 is physical (2020, 20).
	if got := c.(color.RGBA); got.R != uint8(2020%256) || got.G != 20 {
		t.Errorf("Unexpected color %v", got)
	}
	if _, ok := s.PixelAt(5, 0, 0); ok {
		t.Error("Expected miss for unknown monitor")
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New(Options{Events: make(chan selection.Event)}); !errors.Is(err, monitor.ErrNoMonitors) {
		t.Errorf("Expected ErrNoMonitors, got %v", err)
	}
	if _, err := New(Options{Monitors: twoMonitors()}); err == nil {
		t.Error("Expected error without events")
	}
}

func TestStartTwice(t *testing.T) {
	s, _ := startSession(t, Options{})
	if err := s.Start(context.Background()); err == nil {
		t.Error("Expected error on second Start")
	}
}

func TestCommitAfterClickWithoutMove(t *testing.T) {
	s, events := startSession(t, Options{})

	// Click and release before the pointer ever moved.
	events <- ev(selection.LeftDown, 50, 50)
	events <- ev(selection.LeftUp, 50, 50)
	if err := s.Commit(); !errors.Is(err, ErrEmptySelection) {
		t.Fatalf("Expected ErrEmptySelection for a point selection, got %v", err)
	}

	events <- ev(selection.MouseMove, 200, 200)
	events <- ev(selection.LeftDown, 200, 200)
	events <- ev(selection.MouseMove, 300, 300)
	if err := s.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	res, err := waitResult(t, s)
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if !res.Rect.IsFinite() {
		t.Fatalf("Expected a finite rect, got %#v", res.Rect)
	}
	if want := geometry.NewRect(50, 50, 250, 250); res.Rect != want {
		t.Errorf("Expected %v, got %v", want, res.Rect)
	}
}
