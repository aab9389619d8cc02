package session

import (
	"log"

	"screen-select/src/geometry"
	"screen-select/src/selection"
)

// LogSink logs every rectangle and state change. Useful with TRACE_RENDER
// and on platforms without an overlay.
type LogSink struct{}

func (LogSink) OnRect(monitor int, r geometry.Rect) {
	log.Printf("render: monitor %d rect %s", monitor, r)
}

func (LogSink) OnState(monitor int, s selection.State) {
	log.Printf("render: monitor %d mode=%s orientation=%s", monitor, s.Mode, s.Orientation)
}

// MultiSink forwards to each sink in order.
type MultiSink []RenderSink

func (m MultiSink) OnRect(monitor int, r geometry.Rect) {
	for _, s := range m {
		s.OnRect(monitor, r)
	}
}

func (m MultiSink) OnState(monitor int, s selection.State) {
	for _, sink := range m {
		sink.OnState(monitor, s)
	}
}
