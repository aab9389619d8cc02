package session

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"log"
	"math"
	"sync"

	"screen-select/src/geometry"
	"screen-select/src/monitor"
	"screen-select/src/selection"
	"screen-select/src/uitree"
)

var (
	ErrSelectionCancelled = errors.New("selection cancelled")
	ErrEmptySelection     = errors.New("selection is empty")
	ErrNotRunning         = errors.New("session is not running")
)

// RenderSink receives every rectangle and state change of every monitor's
// machine, in display units of that monitor. Calls arrive on the session's
// consumer goroutine and must return quickly.
type RenderSink interface {
	OnRect(monitor int, r geometry.Rect)
	OnState(monitor int, s selection.State)
}

// CursorPositioner moves the OS cursor to a physical position.
type CursorPositioner interface {
	SetCursorPos(x, y int) error
}

// PixelSource returns the color of a physical pixel from a capture taken at
// session start.
type PixelSource interface {
	ColorAt(x, y int) (color.Color, bool)
}

// Options configures a Session.
type Options struct {
	Monitors []monitor.Info
	// Events is the ordered pointer stream, usually from inputhook.Hub.
	Events <-chan selection.Event
	// Provider backs element auto-detection. Nil uses the platform provider.
	Provider uitree.Provider
	Render   RenderSink
	// Cursor, when set, snaps the cursor back to the last applied point
	// after a drag is released.
	Cursor CursorPositioner
	Pixels PixelSource
}

// Result is the outcome of a committed session.
type Result struct {
	// Rect is the selection in physical pixels.
	Rect    geometry.Rect
	Monitor int
}

type requestKind int

const (
	commitRequest requestKind = iota
	cancelRequest
)

type request struct {
	kind  requestKind
	reply chan error
}

// Session owns everything one selection needs: the element cache snapshot,
// one state machine and rectangle model per monitor, and the goroutine that
// feeds pointer events to them. All machines see every event, so a drag that
// crosses monitors is mirrored on each of them.
type Session struct {
	opts     Options
	cache    *uitree.Cache
	machines []*selection.Machine
	unsubs   []func()

	requests chan request
	done     chan struct{}
	cancel   context.CancelFunc
	stopped  chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once
	finish    sync.Once
	result    Result
	err       error

	// Owned by the consumer goroutine.
	lastDown    int
	lastPointer int
}

// New builds a session. It does not touch the event stream until Start.
func New(opts Options) (*Session, error) {
	if len(opts.Monitors) == 0 {
		return nil, monitor.ErrNoMonitors
	}
	if opts.Events == nil {
		return nil, errors.New("session: pointer events are required")
	}
	provider := opts.Provider
	if provider == nil {
		provider = uitree.NewPlatformProvider()
	}

	s := &Session{
		opts:        opts,
		cache:       uitree.NewCache(provider),
		requests:    make(chan request),
		done:        make(chan struct{}),
		stopped:     make(chan struct{}),
		lastDown:    -1,
		lastPointer: monitor.Primary(opts.Monitors),
	}
	for i, m := range opts.Monitors {
		model := geometry.NewRectModel(geometry.Empty)
		machine := selection.New(selection.Config{
			Model:     model,
			Detect:    s.cache.GetByPoint,
			Converter: m.Converter(),
			Bounds:    m.PhysicalBounds,
		})
		if opts.Render != nil {
			idx, sink := i, opts.Render
			s.unsubs = append(s.unsubs, model.Subscribe(func(r geometry.Rect) { sink.OnRect(idx, r) }))
			machine.OnChange(func(st selection.State) { sink.OnState(idx, st) })
		}
		s.machines = append(s.machines, machine)
	}
	return s, nil
}

// Start snapshots the element tree over all monitors and begins consuming
// pointer events. It returns an error if the session was already started.
func (s *Session) Start(ctx context.Context) error {
	started := false
	s.startOnce.Do(func() {
		started = true
		ctx, s.cancel = context.WithCancel(ctx)
		s.cache.Snapshot(monitor.VirtualBounds(s.opts.Monitors))
		log.Printf("session: started on %d monitor(s)", len(s.machines))
		go s.run(ctx)
	})
	if !started {
		return errors.New("session: already started")
	}
	return nil
}

// Stop ends the session if it is still running and releases its resources.
// Renderers are unsubscribed and the cache snapshot is dropped.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		if s.cancel == nil {
			s.end(Result{}, ErrSelectionCancelled)
			s.teardown()
			return
		}
		s.cancel()
		<-s.stopped
	})
}

// Commit ends the session with the active monitor's selection. It fails with
// ErrEmptySelection, leaving the session running, when nothing is selected.
func (s *Session) Commit() error { return s.send(commitRequest) }

// Cancel ends the session with ErrSelectionCancelled.
func (s *Session) Cancel() error { return s.send(cancelRequest) }

func (s *Session) send(kind requestKind) error {
	req := request{kind: kind, reply: make(chan error, 1)}
	select {
	case s.requests <- req:
	case <-s.done:
		return ErrNotRunning
	}
	// The consumer answers every request it accepts.
	return <-req.reply
}

// Wait blocks until the session ends and returns its outcome.
func (s *Session) Wait(ctx context.Context) (Result, error) {
	select {
	case <-s.done:
		return s.result, s.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Done is closed when the session has ended.
func (s *Session) Done() <-chan struct{} { return s.done }

// Monitors returns the monitors the session covers.
func (s *Session) Monitors() []monitor.Info { return s.opts.Monitors }

// Machine returns the state machine of monitor i. Its state may only be read
// from RenderSink callbacks or after the session ended.
func (s *Session) Machine(i int) *selection.Machine { return s.machines[i] }

// Model returns the rectangle model of monitor i.
func (s *Session) Model(i int) *geometry.RectModel { return s.machines[i].Model() }

// PixelAt returns the captured color under a display point of monitor i.
func (s *Session) PixelAt(i int, displayX, displayY float64) (color.Color, bool) {
	if s.opts.Pixels == nil || i < 0 || i >= len(s.machines) {
		return nil, false
	}
	px, py := s.machines[i].Converter().ToPhysical(displayX, displayY)
	return s.opts.Pixels.ColorAt(int(math.Floor(px)), int(math.Floor(py)))
}

func (s *Session) run(ctx context.Context) {
	defer close(s.stopped)
	defer s.teardown()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("PANIC in session consumer: %v", r)
			s.end(Result{}, fmt.Errorf("session: consumer panic: %v", r))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			s.end(Result{}, ErrSelectionCancelled)
			return
		case e, ok := <-s.opts.Events:
			if !ok {
				s.end(Result{}, fmt.Errorf("pointer stream closed: %w", ErrSelectionCancelled))
				return
			}
			if s.dispatch(e) {
				return
			}
		case req := <-s.requests:
			// Apply everything the user did before asking.
			if s.drain() {
				req.reply <- ErrNotRunning
				return
			}
			if s.handle(req) {
				return
			}
		}
	}
}

func (s *Session) drain() bool {
	for {
		select {
		case e, ok := <-s.opts.Events:
			if !ok {
				return false
			}
			if s.dispatch(e) {
				return true
			}
		default:
			return false
		}
	}
}

// dispatch feeds e to every machine and reports whether the session ended.
func (s *Session) dispatch(e selection.Event) bool {
	if idx := monitor.Find(s.opts.Monitors, float64(e.X), float64(e.Y)); idx >= 0 {
		s.lastPointer = idx
		switch e.Message {
		case selection.LeftDown:
			s.lastDown = idx
		case selection.RightDown:
			s.lastDown = -1
		}
	}

	var exit, debounced bool
	for _, m := range s.machines {
		out := m.Handle(e)
		exit = exit || out.Exit
		debounced = debounced || out.Debounced
	}

	if debounced {
		s.snapBack()
	}
	if exit {
		log.Printf("session: exit requested at (%d,%d)", e.X, e.Y)
		s.end(Result{}, ErrSelectionCancelled)
		return true
	}
	return false
}

func (s *Session) handle(req request) bool {
	switch req.kind {
	case cancelRequest:
		s.end(Result{}, ErrSelectionCancelled)
		req.reply <- nil
		return true
	case commitRequest:
		idx := s.active()
		m := s.machines[idx]
		r := m.Model().Rect()
		if r.IsZeroArea() {
			req.reply <- ErrEmptySelection
			return false
		}
		res := Result{Rect: m.Converter().ToPhysicalRect(r), Monitor: idx}
		log.Printf("session: committed %s on monitor %d", res.Rect, idx)
		s.end(res, nil)
		req.reply <- nil
		return true
	}
	req.reply <- fmt.Errorf("session: unknown request %d", req.kind)
	return false
}

func (s *Session) active() int {
	if s.lastDown >= 0 {
		return s.lastDown
	}
	return s.lastPointer
}

func (s *Session) snapBack() {
	if s.opts.Cursor == nil {
		return
	}
	x, y, ok := s.machines[s.active()].Pointer().Get()
	if !ok {
		return
	}
	if err := s.opts.Cursor.SetCursorPos(int(x), int(y)); err != nil {
		log.Printf("session: cursor snap-back failed: %v", err)
	}
}

func (s *Session) end(res Result, err error) {
	s.finish.Do(func() {
		s.result, s.err = res, err
		close(s.done)
	})
}

func (s *Session) teardown() {
	for _, unsub := range s.unsubs {
		unsub()
	}
	for _, m := range s.machines {
		m.Model().Reset()
	}
	stats := s.cache.Stats()
	s.cache.Release()
	log.Printf("session: released element cache (%d roots, %d nodes, %d provider queries)",
		stats.Roots, stats.Nodes, stats.Queries)
}
