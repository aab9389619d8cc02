// Package overlay runs one interactive selection end to end: it wires the
// input hook, the monitors, the element tree and the on-screen overlay into a
// session and waits for the user to commit or cancel.
package overlay

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"log"

	"screen-select/src/config"
	"screen-select/src/geometry"
	"screen-select/src/gui"
	"screen-select/src/hotkey"
	"screen-select/src/inputhook"
	"screen-select/src/monitor"
	"screen-select/src/screenshot"
	"screen-select/src/selection"
	"screen-select/src/session"
	"screen-select/src/uitree"
)

// Selector defines a synchronous region-selection API owned by the event loop.
// The call is blocking and MUST be invoked only from the single event-loop goroutine.
// Returns (region, cancelled, error). If cancelled is true, region is undefined and err is nil.
type Selector interface {
	Select(ctx context.Context) (geometry.Rect, bool, error)
}

// InputSource provides the pointer and key streams. *inputhook.Hub implements it.
type InputSource interface {
	Pointer(buffer int) (<-chan selection.Event, func())
	Keys(buffer int) (<-chan inputhook.KeyEvent, func())
}

// Renderer shows the selection while a session runs.
type Renderer interface {
	session.RenderSink
	Show() error
	Close()
}

// ColorRenderer is implemented by renderers that show the background color
// under the pointer.
type ColorRenderer interface {
	OnColor(c color.Color, ok bool)
}

type Options struct {
	Input     InputSource
	CommitKey string
	CancelKey string
	// SnapCursor moves the cursor back to the last applied point after a drag.
	SnapCursor  bool
	TraceRender bool
	EventBuffer int

	// The fields below default to the platform implementations.
	Provider     uitree.Provider
	ListMonitors func() ([]monitor.Info, error)
	Sample       func() (*screenshot.Sampler, error)
	NewRenderer  func([]monitor.Info, *screenshot.Sampler) Renderer
	Cursor       session.CursorPositioner
}

type selector struct {
	opts   Options
	commit *hotkey.Matcher
	cancel *hotkey.Matcher
}

// NewSelector validates the key bindings and fills in platform defaults.
func NewSelector(opts Options) (Selector, error) {
	if opts.Input == nil {
		return nil, errors.New("overlay: input source is required")
	}
	if opts.CommitKey == "" {
		opts.CommitKey = "enter"
	}
	if opts.CancelKey == "" {
		opts.CancelKey = "esc"
	}
	commit, err := hotkey.NewMatcher(opts.CommitKey)
	if err != nil {
		return nil, fmt.Errorf("commit key: %w", err)
	}
	cancel, err := hotkey.NewMatcher(opts.CancelKey)
	if err != nil {
		return nil, fmt.Errorf("cancel key: %w", err)
	}

	if opts.EventBuffer <= 0 {
		opts.EventBuffer = 1024
	}
	if opts.ListMonitors == nil {
		opts.ListMonitors = monitor.List
	}
	if opts.Sample == nil {
		opts.Sample = screenshot.CaptureSampler
	}
	if opts.NewRenderer == nil {
		opts.NewRenderer = func(m []monitor.Info, s *screenshot.Sampler) Renderer {
			return gui.NewOverlay(m, s)
		}
	}
	if opts.Cursor == nil && opts.SnapCursor {
		opts.Cursor = gui.Cursor{}
	}
	if !opts.SnapCursor {
		opts.Cursor = nil
	}
	return &selector{opts: opts, commit: commit, cancel: cancel}, nil
}

func (s *selector) Select(ctx context.Context) (geometry.Rect, bool, error) {
	monitors, err := s.opts.ListMonitors()
	if err != nil {
		return geometry.Rect{}, false, fmt.Errorf("failed to list monitors: %w", err)
	}
	for _, m := range monitors {
		log.Printf("overlay: monitor %s", m)
	}

	// The background must be captured before the overlay covers the screen.
	sampler, err := s.opts.Sample()
	if err != nil {
		log.Printf("overlay: background capture failed: %v", err)
		sampler = nil
	}
	renderer := s.opts.NewRenderer(monitors, sampler)
	sink := session.MultiSink{renderer}
	if s.opts.TraceRender {
		sink = append(sink, session.LogSink{})
	}

	events, unsubPointer := s.opts.Input.Pointer(s.opts.EventBuffer)
	defer unsubPointer()
	keys, unsubKeys := s.opts.Input.Keys(64)
	defer unsubKeys()

	var pixels session.PixelSource
	if sampler != nil {
		pixels = sampler
	}
	sess, err := session.New(session.Options{
		Monitors: monitors,
		Events:   events,
		Provider: s.opts.Provider,
		Render:   sink,
		Cursor:   s.opts.Cursor,
		Pixels:   pixels,
	})
	if err != nil {
		return geometry.Rect{}, false, err
	}

	if cr, ok := renderer.(ColorRenderer); ok && pixels != nil {
		// Every machine sees every event, so the first one's pointer tracks
		// the cursor across all monitors.
		sess.Machine(0).Pointer().Subscribe(func(x, y float64) {
			cr.OnColor(pixelUnder(sess, x, y))
		})
	}

	// Start snapshots the element tree, which must not contain the overlay.
	if err := sess.Start(ctx); err != nil {
		return geometry.Rect{}, false, err
	}
	defer sess.Stop()

	if err := renderer.Show(); err != nil {
		if !errors.Is(err, gui.ErrUnsupported) {
			return geometry.Rect{}, false, fmt.Errorf("failed to show overlay: %w", err)
		}
		log.Printf("overlay: %v, selecting without visual feedback", err)
	}
	defer renderer.Close()

	keyCtx, stopKeys := context.WithCancel(ctx)
	defer stopKeys()
	hotkey.Listen(keyCtx, keys,
		hotkey.Binding{Matcher: s.commit, Action: func() { go commitOrLog(sess) }},
		hotkey.Binding{Matcher: s.cancel, Action: func() { go sess.Cancel() }},
	)

	res, err := sess.Wait(ctx)
	switch {
	case errors.Is(err, session.ErrSelectionCancelled):
		log.Printf("overlay: selection cancelled")
		return geometry.Rect{}, true, nil
	case err != nil:
		return geometry.Rect{}, false, err
	}
	log.Printf("overlay: selected %s on monitor %d", res.Rect, res.Monitor)
	return res.Rect, false, nil
}

// pixelUnder samples the captured background under a physical pointer
// position.
func pixelUnder(sess *session.Session, x, y float64) (color.Color, bool) {
	i := monitor.Find(sess.Monitors(), x, y)
	if i < 0 {
		return nil, false
	}
	dx, dy := sess.Machine(i).Converter().ToDisplay(x, y)
	return sess.PixelAt(i, dx, dy)
}

func commitOrLog(sess *session.Session) {
	err := sess.Commit()
	switch {
	case err == nil, errors.Is(err, session.ErrNotRunning):
	case errors.Is(err, session.ErrEmptySelection):
		log.Printf("overlay: nothing selected yet")
	default:
		log.Printf("overlay: commit failed: %v", err)
	}
}

// ConfigOptions maps the selection settings of cfg onto Options.
func ConfigOptions(cfg *config.Config, input InputSource) Options {
	return Options{
		Input:       input,
		CommitKey:   cfg.CommitKey,
		CancelKey:   cfg.CancelKey,
		SnapCursor:  cfg.SnapCursor,
		TraceRender: cfg.TraceRender,
		EventBuffer: cfg.EventBuffer,
	}
}
