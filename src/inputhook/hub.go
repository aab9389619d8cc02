package inputhook

import (
	"errors"
	"log"
	"sync"

	"screen-select/src/selection"

	gohook "github.com/robotn/gohook"
)

// ErrHookUnavailable is returned when the global hook could not be started.
var ErrHookUnavailable = errors.New("global input hook unavailable")

type subscriber[T any] struct {
	ch   chan T
	done chan struct{}
}

// Hub owns the single gohook event channel of the process. gohook can only
// run one hook at a time, so every consumer subscribes here instead.
//
// Events are delivered to each subscriber in arrival order. A send blocks
// until the subscriber receives it or unsubscribes; nothing is dropped or
// coalesced.
type Hub struct {
	start func() chan gohook.Event
	end   func()

	mu      sync.Mutex
	running bool
	quit    chan struct{}
	stopped chan struct{}
	nextID  int
	pointer map[int]subscriber[selection.Event]
	keys    map[int]subscriber[KeyEvent]
}

// NewHub returns a hub backed by gohook.
func NewHub() *Hub {
	return newHub(gohook.Start, gohook.End)
}

func newHub(start func() chan gohook.Event, end func()) *Hub {
	return &Hub{
		start:   start,
		end:     end,
		pointer: map[int]subscriber[selection.Event]{},
		keys:    map[int]subscriber[KeyEvent]{},
	}
}

// Start begins forwarding hook events. Calling Start on a running hub is a
// no-op.
func (h *Hub) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return nil
	}

	log.Printf("inputhook: starting gohook")
	events := h.start()
	if events == nil {
		return ErrHookUnavailable
	}
	h.running = true
	h.quit = make(chan struct{})
	h.stopped = make(chan struct{})
	go h.forward(events, h.quit, h.stopped)
	return nil
}

// Stop ends the hook and waits for the forwarding goroutine to exit.
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	quit, stopped := h.quit, h.stopped
	h.mu.Unlock()

	close(quit)
	h.end()
	<-stopped
	log.Printf("inputhook: stopped")
}

// Pointer subscribes to pointer events. buffer sizes the channel between the
// hook and the consumer. The returned function unsubscribes.
func (h *Hub) Pointer(buffer int) (<-chan selection.Event, func()) {
	sub := subscriber[selection.Event]{ch: make(chan selection.Event, buffer), done: make(chan struct{})}
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.pointer[id] = sub
	h.mu.Unlock()
	return sub.ch, h.unsubscriber(func() { delete(h.pointer, id) }, sub.done)
}

// Keys subscribes to keyboard events.
func (h *Hub) Keys(buffer int) (<-chan KeyEvent, func()) {
	sub := subscriber[KeyEvent]{ch: make(chan KeyEvent, buffer), done: make(chan struct{})}
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.keys[id] = sub
	h.mu.Unlock()
	return sub.ch, h.unsubscriber(func() { delete(h.keys, id) }, sub.done)
}

func (h *Hub) unsubscriber(remove func(), done chan struct{}) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			remove()
			h.mu.Unlock()
			close(done)
		})
	}
}

func (h *Hub) forward(events chan gohook.Event, quit, stopped chan struct{}) {
	defer close(stopped)
	defer func() {
		if r := recover(); r != nil {
			log.Printf("PANIC in inputhook forwarder: %v", r)
		}
	}()

	for {
		var ev gohook.Event
		var ok bool
		select {
		case ev, ok = <-events:
			if !ok {
				log.Printf("inputhook: event channel closed")
				return
			}
		case <-quit:
			return
		}

		if pe, ok := FromHook(ev); ok {
			h.mu.Lock()
			subs := make([]subscriber[selection.Event], 0, len(h.pointer))
			for _, s := range h.pointer {
				subs = append(subs, s)
			}
			h.mu.Unlock()
			for _, s := range subs {
				deliver(s, pe, quit)
			}
			continue
		}
		if ke, ok := KeyFromHook(ev); ok {
			h.mu.Lock()
			subs := make([]subscriber[KeyEvent], 0, len(h.keys))
			for _, s := range h.keys {
				subs = append(subs, s)
			}
			h.mu.Unlock()
			for _, s := range subs {
				deliver(s, ke, quit)
			}
		}
	}
}

func deliver[T any](s subscriber[T], v T, quit <-chan struct{}) {
	select {
	case s.ch <- v:
	case <-s.done:
	case <-quit:
	}
}
