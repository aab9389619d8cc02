package worker

import (
	"context"
	"image"
	"log"
	"runtime"
	"sync"

	"screen-select/src/geometry"
	"screen-select/src/screenshot"
)

// ResultCallback is invoked on capture completion (from a worker goroutine).
// The event loop should pass a closure that posts back into the event loop safely.
type ResultCallback func(img *image.RGBA, err error)

// CaptureFunc grabs the pixels of a physical region.
type CaptureFunc func(ctx context.Context, region geometry.Rect) (*image.RGBA, error)

// Pool is a fixed-size capture worker pool with a 1-slot input queue (strict back-pressure).
type Pool struct {
	jobs    chan job
	wg      sync.WaitGroup
	capture CaptureFunc
}

type job struct {
	ctx    context.Context
	region geometry.Rect
	cb     ResultCallback
}

// New creates a worker pool. Size defaults to NumCPU when size<=0. Queue is 1 slot.
// A nil capture uses CaptureWithContext.
func New(size int, capture CaptureFunc) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	if capture == nil {
		capture = CaptureWithContext
	}
	p := &Pool{jobs: make(chan job, 1), capture: capture}
	p.start(size)
	return p
}

func (p *Pool) start(n int) {
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for j := range p.jobs {
				p.run(j)
			}
		}()
	}
}

func (p *Pool) run(j job) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("PANIC in capture worker: %v", r)
		}
	}()
	log.Printf("Worker: capturing region %s", j.region)
	img, err := p.capture(j.ctx, j.region)
	log.Printf("Worker: capture completed, err=%v", err)
	j.cb(img, err)
}

// Submit enqueues a capture job if the single-slot queue is free. Returns false if dropped.
func (p *Pool) Submit(ctx context.Context, region geometry.Rect, cb ResultCallback) bool {
	select {
	case p.jobs <- job{ctx: ctx, region: region, cb: cb}:
		return true
	default:
		return false
	}
}

// Close stops the pool after draining current work.
func (p *Pool) Close() {
	close(p.jobs)
	p.wg.Wait()
}

// CaptureWithContext wraps screenshot.CaptureRect with a deadline-aware path.
func CaptureWithContext(ctx context.Context, region geometry.Rect) (*image.RGBA, error) {
	if _, ok := ctx.Deadline(); !ok {
		return screenshot.CaptureRect(region)
	}
	type result struct {
		img *image.RGBA
		err error
	}
	resCh := make(chan result, 1)
	go func() {
		img, err := screenshot.CaptureRect(region)
		resCh <- result{img: img, err: err}
	}()
	select {
	case r := <-resCh:
		return r.img, r.err
	case <-ctx.Done():
		// The capture keeps running in the background; its result is dropped.
		return nil, ctx.Err()
	}
}
