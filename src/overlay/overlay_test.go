package overlay

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"screen-select/src/config"
	"screen-select/src/geometry"
	"screen-select/src/inputhook"
	"screen-select/src/monitor"
	"screen-select/src/screenshot"
	"screen-select/src/selection"
	"screen-select/src/uitree"
)

type fakeInput struct {
	pointer chan selection.Event
	keys    chan inputhook.KeyEvent
}

func newFakeInput() *fakeInput {
	return &fakeInput{
		pointer: make(chan selection.Event, 32),
		keys:    make(chan inputhook.KeyEvent, 8),
	}
}

func (f *fakeInput) Pointer(int) (<-chan selection.Event, func()) { return f.pointer, func() {} }

func (f *fakeInput) Keys(int) (<-chan inputhook.KeyEvent, func()) { return f.keys, func() {} }

type fakeRenderer struct {
	mu            sync.Mutex
	shown, closed int
	rects         int
	colors        []color.Color
}

func (r *fakeRenderer) OnColor(c color.Color, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ok {
		r.colors = append(r.colors, c)
	}
}

func (r *fakeRenderer) OnRect(int, geometry.Rect) {
	r.mu.Lock()
	r.rects++
	r.mu.Unlock()
}

func (r *fakeRenderer) OnState(int, selection.State) {}

func (r *fakeRenderer) Show() error {
	r.mu.Lock()
	r.shown++
	r.mu.Unlock()
	return nil
}

func (r *fakeRenderer) Close() {
	r.mu.Lock()
	r.closed++
	r.mu.Unlock()
}

type emptyProvider struct{}

func (emptyProvider) RootChildren() ([]uitree.Element, error) { return nil, nil }

func (emptyProvider) Children(uitree.Handle) ([]uitree.Element, error) { return nil, nil }

func testSelector(t *testing.T, input *fakeInput, renderer *fakeRenderer) Selector {
	t.Helper()
	sel, err := NewSelector(Options{
		Input:    input,
		Provider: emptyProvider{},
		ListMonitors: func() ([]monitor.Info, error) {
			return []monitor.Info{{PhysicalBounds: geometry.NewRect(0, 0, 800, 600), ScaleX: 1, ScaleY: 1, Primary: true}}, nil
		},
		Sample: func() (*screenshot.Sampler, error) { return nil, errors.New("headless") },
		NewRenderer: func([]monitor.Info, *screenshot.Sampler) Renderer {
			return renderer
		},
	})
	if err != nil {
		t.Fatalf("NewSelector failed: %v", err)
	}
	return sel
}

func TestSelectCommit(t *testing.T) {
	input := newFakeInput()
	renderer := &fakeRenderer{}
	sel := testSelector(t, input, renderer)

	input.pointer <- selection.Event{Message: selection.LeftDown, X: 100, Y: 100}
	input.pointer <- selection.Event{Message: selection.MouseMove, X: 300, Y: 250}
	input.keys <- inputhook.KeyEvent{Down: true, Rawcode: 13}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	region, cancelled, err := sel.Select(ctx)
	if err != nil || cancelled {
		t.Fatalf("Select returned cancelled=%v err=%v", cancelled, err)
	}
	if want := geometry.NewRect(100, 100, 200, 150); region != want {
		t.Errorf("Expected %v, got %v", want, region)
	}
	if renderer.shown != 1 || renderer.closed != 1 {
		t.Errorf("Expected renderer shown and closed once, got %d/%d", renderer.shown, renderer.closed)
	}
	if renderer.rects == 0 {
		t.Error("Expected renderer to receive rectangles")
	}
}

func TestSelectCancelKey(t *testing.T) {
	input := newFakeInput()
	sel := testSelector(t, input, &fakeRenderer{})

	input.keys <- inputhook.KeyEvent{Down: true, Rawcode: 27}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, cancelled, err := sel.Select(ctx)
	if err != nil || !cancelled {
		t.Errorf("Expected cancellation, got cancelled=%v err=%v", cancelled, err)
	}
}

func TestSelectRightClickCancels(t *testing.T) {
	input := newFakeInput()
	sel := testSelector(t, input, &fakeRenderer{})

	input.pointer <- selection.Event{Message: selection.RightDown, X: 10, Y: 10}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, cancelled, err := sel.Select(ctx); err != nil || !cancelled {
		t.Errorf("Expected cancellation, got cancelled=%v err=%v", cancelled, err)
	}
}

func TestNewSelectorValidation(t *testing.T) {
	if _, err := NewSelector(Options{}); err == nil {
		t.Error("Expected error without input source")
	}
	if _, err := NewSelector(Options{Input: newFakeInput(), CommitKey: "hyper+q"}); err == nil {
		t.Error("Expected error for unknown commit key")
	}
}

func TestConfigOptions(t *testing.T) {
	cfg := &config.Config{CommitKey: "space", CancelKey: "q", SnapCursor: true, EventBuffer: 16}
	opts := ConfigOptions(cfg, newFakeInput())
	if opts.CommitKey != "space" || opts.CancelKey != "q" || !opts.SnapCursor || opts.EventBuffer != 16 {
		t.Errorf("Unexpected options %+v", opts)
	}
	if opts.Input == nil {
		t.Error("Expected input to be set")
	}
}

func TestSelectReportsPixelUnderPointer(t *testing.T) {
	input := newFakeInput()
	renderer := &fakeRenderer{}
	bg := image.NewRGBA(image.Rect(0, 0, 800, 600))
	bg.SetRGBA(120, 80, color.RGBA{R: 200, G: 10, B: 30, A: 255})

	sel, err := NewSelector(Options{
		Input:    input,
		Provider: emptyProvider{},
		ListMonitors: func() ([]monitor.Info, error) {
			return []monitor.Info{{PhysicalBounds: geometry.NewRect(0, 0, 800, 600), ScaleX: 1, ScaleY: 1, Primary: true}}, nil
		},
		Sample: func() (*screenshot.Sampler, error) { return screenshot.NewSampler(bg, image.Point{}), nil },
		NewRenderer: func([]monitor.Info, *screenshot.Sampler) Renderer {
			return renderer
		},
	})
	if err != nil {
		t.Fatalf("NewSelector failed: %v", err)
	}

	input.pointer <- selection.Event{Message: selection.MouseMove, X: 120, Y: 80}
	input.pointer <- selection.Event{Message: selection.LeftDown, X: 120, Y: 80}
	input.pointer <- selection.Event{Message: selection.MouseMove, X: 200, Y: 160}
	input.keys <- inputhook.KeyEvent{Down: true, Rawcode: 13}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, cancelled, err := sel.Select(ctx); err != nil || cancelled {
		t.Fatalf("Select returned cancelled=%v err=%v", cancelled, err)
	}

	renderer.mu.Lock()
	defer renderer.mu.Unlock()
	if len(renderer.colors) == 0 {
		t.Fatal("Expected colors under the pointer")
	}
	if got := color.RGBAModel.Convert(renderer.colors[0]).(color.RGBA); got != (color.RGBA{R: 200, G: 10, B: 30, A: 255}) {
		t.Errorf("Expected the pixel at (120,80), got %v", got)
	}
}
