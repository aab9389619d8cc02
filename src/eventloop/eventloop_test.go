package eventloop

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"screen-select/src/config"
	"screen-select/src/geometry"
	"screen-select/src/singleinstance"
)

type fakeSelector struct {
	region    geometry.Rect
	cancelled bool
	err       error
}

func (f fakeSelector) Select(context.Context) (geometry.Rect, bool, error) {
	return f.region, f.cancelled, f.err
}

type fakeServer struct {
	conns chan singleinstance.Conn
}

func newFakeServer() *fakeServer { return &fakeServer{conns: make(chan singleinstance.Conn, 4)} }

func (s *fakeServer) Start(context.Context) error { return nil }
func (s *fakeServer) Port() int                   { return 0 }
func (s *fakeServer) Close() error                { return nil }

func (s *fakeServer) Next(ctx context.Context) (singleinstance.Conn, error) {
	select {
	case c := <-s.conns:
		return c, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type fakeConn struct {
	req singleinstance.Request

	mu      sync.Mutex
	payload []byte
	errMsg  string
	closed  chan struct{}
}

func newFakeConn(req singleinstance.Request) *fakeConn {
	return &fakeConn{req: req, closed: make(chan struct{})}
}

func (c *fakeConn) Request() singleinstance.Request { return c.req }

func (c *fakeConn) RespondSuccess(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.payload = payload
	return nil
}

func (c *fakeConn) RespondError(msg string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errMsg = msg
	return nil
}

func (c *fakeConn) Close() error {
	close(c.closed)
	return nil
}

func (c *fakeConn) wait(t *testing.T) {
	t.Helper()
	select {
	case <-c.closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for the response")
	}
}

func solidCapture(ctx context.Context, region geometry.Rect) (*image.RGBA, error) {
	return image.NewRGBA(image.Rect(0, 0, int(region.Width), int(region.Height))), nil
}

func startLoop(t *testing.T, cfg *config.Config, sel fakeSelector) (*Loop, *fakeServer) {
	t.Helper()
	srv := newFakeServer()
	l, err := New(Options{Config: cfg, Selector: sel, Server: srv, Capture: solidCapture})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = l.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return l, srv
}

func TestDelegatedStdout(t *testing.T) {
	_, srv := startLoop(t, &config.Config{ExportFormat: "png"}, fakeSelector{region: geometry.NewRect(10, 10, 40, 30)})

	conn := newFakeConn(singleinstance.Request{Delivery: singleinstance.DeliverStdout})
	srv.conns <- conn
	conn.wait(t)

	conn.mu.Lock()
	defer conn.mu.Unlock()
	if conn.errMsg != "" {
		t.Fatalf("Unexpected error response: %s", conn.errMsg)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(conn.payload))
	if err != nil || cfg.Width != 40 || cfg.Height != 30 {
		t.Errorf("Expected 40x30 png payload, got %+v, %v", cfg, err)
	}
}

func TestDelegatedFile(t *testing.T) {
	dir := t.TempDir()
	_, srv := startLoop(t, &config.Config{ExportDir: dir}, fakeSelector{region: geometry.NewRect(0, 0, 8, 8)})

	conn := newFakeConn(singleinstance.Request{Delivery: singleinstance.DeliverFile, Format: "bmp"})
	srv.conns <- conn
	conn.wait(t)

	conn.mu.Lock()
	defer conn.mu.Unlock()
	path := string(conn.payload)
	if filepath.Dir(path) != dir || filepath.Ext(path) != ".bmp" {
		t.Errorf("Expected a .bmp in %s, got %q", dir, path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("Expected saved file: %v", err)
	}
}

func TestDelegatedCancelledAndErrors(t *testing.T) {
	tests := []struct {
		name string
		sel  fakeSelector
		req  singleinstance.Request
		want string
	}{
		{"cancelled", fakeSelector{cancelled: true}, singleinstance.Request{Delivery: singleinstance.DeliverFile}, "selection cancelled"},
		{"select error", fakeSelector{err: errors.New("no monitors")}, singleinstance.Request{Delivery: singleinstance.DeliverFile}, "Failed to select region: no monitors"},
		{"bad format", fakeSelector{}, singleinstance.Request{Delivery: singleinstance.DeliverStdout, Format: "gif"}, `unknown export format: "gif"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, srv := startLoop(t, &config.Config{}, tt.sel)
			conn := newFakeConn(tt.req)
			srv.conns <- conn
			conn.wait(t)

			conn.mu.Lock()
			defer conn.mu.Unlock()
			if conn.errMsg != tt.want {
				t.Errorf("Expected error %q, got %q", tt.want, conn.errMsg)
			}
		})
	}
}

func TestHotkeyExportsToFile(t *testing.T) {
	dir := t.TempDir()
	l, _ := startLoop(t, &config.Config{ExportDir: dir, ExportTarget: config.TargetFile, ExportFormat: "jpeg"},
		fakeSelector{region: geometry.NewRect(0, 0, 16, 16)})

	l.TriggerCapture()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		matches, _ := filepath.Glob(filepath.Join(dir, "screenshot-*.jpg"))
		if len(matches) == 1 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("Expected one exported jpg")
}

func TestNewDefaults(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Error("Expected error without selector")
	}
	l, err := New(Options{Selector: fakeSelector{}, Server: newFakeServer()})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer l.pool.Close()
	if l.Deadline() != 10*time.Second {
		t.Errorf("Expected 10s default deadline, got %v", l.Deadline())
	}
}
