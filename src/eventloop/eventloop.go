package eventloop

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"time"

	"screen-select/src/config"
	"screen-select/src/export"
	"screen-select/src/geometry"
	"screen-select/src/hotkey"
	"screen-select/src/inputhook"
	"screen-select/src/notification"
	"screen-select/src/overlay"
	"screen-select/src/session"
	"screen-select/src/singleinstance"
	"screen-select/src/tray"
	"screen-select/src/worker"
)

// Loop is the single-threaded coordinator for delegated and hotkey flows.
type Loop struct {
	selector       overlay.Selector
	pool           *worker.Pool
	srv            singleinstance.Server
	busy           bool
	results        chan result
	captureCh      chan struct{}
	defaultTooltip string
	deadline       time.Duration
	cfg            config.Config
}

type result struct {
	img    *image.RGBA
	region geometry.Rect
	err    error
	target resultTarget
	cancel context.CancelFunc
}

type resultTarget interface {
	OnSuccess(img *image.RGBA, region geometry.Rect) error
	OnProcessError(err error)
	OnDeliveryError(err error)
	Close()
}

// hotkeyResultTarget exports with the configured format and destination.
type hotkeyResultTarget struct {
	target export.Target
}

func (t hotkeyResultTarget) OnSuccess(img *image.RGBA, region geometry.Rect) error {
	return t.target.OnSuccess(img, region)
}

func (t hotkeyResultTarget) OnProcessError(err error) {
	_ = t.target.OnFailure(err)
}

func (t hotkeyResultTarget) OnDeliveryError(err error) {
	notification.ShowBlockingError("Export failed", err.Error())
}

func (hotkeyResultTarget) Close() {}

// delegatedResultTarget answers a client that asked the resident to select.
type delegatedResultTarget struct {
	conn singleinstance.Conn
	req  singleinstance.Request
	dir  string
	opts export.Options
}

func (t delegatedResultTarget) OnSuccess(img *image.RGBA, region geometry.Rect) error {
	var payload []byte
	switch t.req.Delivery {
	case singleinstance.DeliverStdout:
		var buf bytes.Buffer
		if err := export.Encode(&buf, img, t.opts); err != nil {
			return err
		}
		payload = buf.Bytes()
	case singleinstance.DeliverClipboard:
		if err := (export.ClipboardTarget{}).OnSuccess(img, region); err != nil {
			return err
		}
	default:
		ft := &export.FileTarget{Dir: t.dir, Options: t.opts}
		if err := ft.OnSuccess(img, region); err != nil {
			return err
		}
		payload = []byte(ft.Saved)
	}
	return t.conn.RespondSuccess(payload)
}

func (t delegatedResultTarget) OnProcessError(err error) {
	_ = t.conn.RespondError(err.Error())
}

func (t delegatedResultTarget) OnDeliveryError(err error) {
	_ = t.conn.RespondError(err.Error())
}

func (t delegatedResultTarget) Close() {
	if t.conn != nil {
		_ = t.conn.Close()
	}
}

type requestCallbacks struct {
	onBusy        func()
	onSelectError func(err error)
	onCancelled   func()
}

type Options struct {
	Config   *config.Config
	Selector overlay.Selector
	// Server defaults to the TCP single-instance server.
	Server singleinstance.Server
	// Capture defaults to worker.CaptureWithContext.
	Capture worker.CaptureFunc
}

// New creates a new event loop with defaults based on config.
// If the config has no capture deadline, a 10s deadline is used.
func New(opts Options) (*Loop, error) {
	if opts.Selector == nil {
		return nil, errors.New("eventloop: selector is required")
	}
	var cfg config.Config
	if opts.Config != nil {
		cfg = *opts.Config
	}
	deadlineSec := 10
	if cfg.CaptureDeadlineSec > 0 {
		deadlineSec = cfg.CaptureDeadlineSec
	}
	srv := opts.Server
	if srv == nil {
		srv = singleinstance.NewServer()
	}

	return &Loop{
		selector:       opts.Selector,
		pool:           worker.New(0, opts.Capture),
		srv:            srv,
		results:        make(chan result, 1),
		captureCh:      make(chan struct{}, 4),
		defaultTooltip: "Screen Select",
		deadline:       time.Duration(deadlineSec) * time.Second,
		cfg:            cfg,
	}, nil
}

// SetDefaultTooltip optionally sets the tray tooltip base text.
func (l *Loop) SetDefaultTooltip(tt string) { l.defaultTooltip = tt }

func (l *Loop) setBusy(b bool) {
	l.busy = b
	if b {
		tray.UpdateTooltip("Screen Select: exporting...")
	} else {
		tray.UpdateTooltip(l.defaultTooltip)
	}
}

// StartHotkey listens for combo on keys and posts capture requests into the loop.
func (l *Loop) StartHotkey(ctx context.Context, keys <-chan inputhook.KeyEvent, combo string) error {
	if combo == "" {
		return nil
	}
	m, err := hotkey.NewMatcher(combo)
	if err != nil {
		return err
	}
	hotkey.Listen(ctx, keys, hotkey.Binding{Matcher: m, Action: l.TriggerCapture})
	return nil
}

// TriggerCapture asks the loop to start a selection. Requests beyond the
// small queue are dropped.
func (l *Loop) TriggerCapture() {
	select {
	case l.captureCh <- struct{}{}:
	default:
	}
}

// Run starts the singleinstance server and processes capture requests.
// It blocks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.srv.Start(ctx); err != nil {
		return fmt.Errorf("another instance may be running: %w", err)
	}
	defer l.srv.Close()
	if p := l.srv.Port(); p > 0 {
		log.Printf("Resident listening on 127.0.0.1:%d", p)
		tray.SetAboutExtra("Resident TCP port", fmt.Sprint(p))
	}
	defer l.pool.Close()

	// Accept loop in background to avoid blocking result handling
	reqCh := make(chan singleinstance.Conn, 4)
	go func() {
		for {
			conn, err := l.srv.Next(ctx)
			if err != nil {
				close(reqCh)
				return
			}
			reqCh <- conn
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.captureCh:
			l.handleHotkey(ctx)
			l.dropPendingCaptures()
		case conn, ok := <-reqCh:
			if !ok {
				return nil
			}
			l.handleConn(ctx, conn)
		case res := <-l.results:
			l.handleResult(res)
		}
	}
}

func (l *Loop) exportOptions(format string) export.Options {
	if format == "" {
		format = l.cfg.ExportFormat
	}
	f, err := export.ParseFormat(format)
	if err != nil {
		log.Printf("eventloop: %v, using png", err)
		f = export.PNG
	}
	return export.Options{Format: f, Quality: l.cfg.JPEGQuality}
}

func (l *Loop) handleConn(ctx context.Context, conn singleinstance.Conn) {
	req := conn.Request()
	if req.Format != "" {
		if _, err := export.ParseFormat(req.Format); err != nil {
			_ = conn.RespondError(err.Error())
			_ = conn.Close()
			return
		}
	}
	target := delegatedResultTarget{conn: conn, req: req, dir: l.cfg.ExportDir, opts: l.exportOptions(req.Format)}
	l.startRequest(ctx, target, requestCallbacks{
		onBusy: func() {
			target.OnProcessError(errors.New("Busy, please retry"))
			target.Close()
		},
		onSelectError: func(err error) {
			target.OnProcessError(fmt.Errorf("Failed to select region: %w", err))
			target.Close()
		},
		onCancelled: func() {
			target.OnProcessError(session.ErrSelectionCancelled)
			target.Close()
		},
	})
}

func (l *Loop) handleResult(res result) {
	log.Printf("handleResult: region=%s err=%v", res.region, res.err)
	defer func() {
		l.setBusy(false)
		if res.cancel != nil {
			res.cancel()
		}
	}()
	if res.target == nil {
		log.Printf("handleResult: missing target")
		return
	}
	defer res.target.Close()

	if res.err != nil {
		log.Printf("handleResult: capture error: %v", res.err)
		res.target.OnProcessError(res.err)
		return
	}

	if err := res.target.OnSuccess(res.img, res.region); err != nil {
		log.Printf("handleResult: delivery error: %v", err)
		res.target.OnDeliveryError(err)
	}
}

func (l *Loop) handleHotkey(ctx context.Context) {
	log.Printf("handleHotkey: called")
	target, err := export.NewTarget(l.cfg.ExportTarget, l.cfg.ExportDir, l.exportOptions(""))
	if err != nil {
		log.Printf("handleHotkey: %v", err)
		return
	}
	l.startRequest(ctx, hotkeyResultTarget{target: target}, requestCallbacks{
		onBusy: func() {
			log.Printf("handleHotkey: busy, skipping")
		},
		onSelectError: func(err error) {
			log.Printf("handleHotkey: selection error: %v", err)
			notification.ShowBlockingError("Selection error", err.Error())
		},
		onCancelled: func() {
			log.Printf("handleHotkey: selection cancelled")
		},
	})
}

func (l *Loop) startRequest(ctx context.Context, target resultTarget, callbacks requestCallbacks) {
	if l.busy {
		if callbacks.onBusy != nil {
			callbacks.onBusy()
		}
		return
	}

	region, cancelled, err := l.selector.Select(ctx)
	if err != nil {
		if callbacks.onSelectError != nil {
			callbacks.onSelectError(err)
		}
		return
	}
	if cancelled {
		if callbacks.onCancelled != nil {
			callbacks.onCancelled()
		}
		return
	}

	jobCtx, cancel := context.WithTimeout(ctx, l.deadline)

	l.setBusy(true)
	submitted := l.pool.Submit(jobCtx, region, func(img *image.RGBA, err error) {
		select {
		case l.results <- result{img: img, region: region, err: err, target: target, cancel: cancel}:
		case <-ctx.Done():
			cancel()
			target.Close()
		}
	})
	if !submitted {
		cancel()
		l.setBusy(false)
		if callbacks.onBusy != nil {
			callbacks.onBusy()
		}
	}
}

// dropPendingCaptures discards triggers that arrived while a selection was on
// screen.
func (l *Loop) dropPendingCaptures() {
	for {
		select {
		case <-l.captureCh:
		default:
			return
		}
	}
}

// Deadline returns the configured capture deadline for this loop.
func (l *Loop) Deadline() time.Duration { return l.deadline }
