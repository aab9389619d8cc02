package singleinstance

import (
	"context"
	"testing"
	"time"
)

func usePorts(t *testing.T, start, end int) {
	t.Helper()
	prevStart, prevEnd := getPortRange()
	SetPortRange(start, end)
	t.Cleanup(func() { SetPortRange(prevStart, prevEnd) })
}

func TestServerClientRoundTrip(t *testing.T) {
	usePorts(t, 49711, 49711)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv := NewServer()
	if err := srv.Start(ctx); err != nil {
		t.Skipf("loopback listener unavailable in this environment: %v", err)
	}
	defer srv.Close()

	if port, ok := DetectResidentPort(ctx); !ok || port != 49711 {
		t.Errorf("Expected resident on 49711, got %d (%v)", port, ok)
	}

	client := NewClient()
	delegatedCh := make(chan struct{})
	go func() {
		defer close(delegatedCh)
		delegated, payload, err := client.TrySelect(ctx, Request{Delivery: DeliverStdout, Format: "png"})
		if err != nil {
			t.Errorf("client: %v", err)
		}
		if !delegated {
			t.Errorf("expected delegation")
		}
		if string(payload) != "image-bytes" {
			t.Errorf("Expected payload 'image-bytes', got %q", payload)
		}
	}()

	conn, err := srv.Next(ctx)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if req := conn.Request(); req.Delivery != DeliverStdout || req.Format != "png" {
		t.Errorf("Unexpected request %+v", req)
	}
	if err := conn.RespondSuccess([]byte("image-bytes")); err != nil {
		t.Fatalf("respond: %v", err)
	}
	_ = conn.Close()
	<-delegatedCh
}

func TestClientReceivesError(t *testing.T) {
	usePorts(t, 49712, 49712)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv := NewServer()
	if err := srv.Start(ctx); err != nil {
		t.Skipf("loopback listener unavailable in this environment: %v", err)
	}
	defer srv.Close()

	go func() {
		conn, err := srv.Next(ctx)
		if err != nil {
			return
		}
		_ = conn.RespondError("selection cancelled")
		_ = conn.Close()
	}()

	delegated, _, err := NewClient().TrySelect(ctx, Request{Delivery: DeliverFile})
	if !delegated || err == nil || err.Error() != "selection cancelled" {
		t.Errorf("Expected delegated error, got delegated=%v err=%v", delegated, err)
	}
}

func TestNoResident(t *testing.T) {
	usePorts(t, 49713, 49713)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	delegated, _, err := NewClient().TrySelect(ctx, Request{Delivery: DeliverClipboard})
	if delegated || err != nil {
		t.Errorf("Expected no delegation, got delegated=%v err=%v", delegated, err)
	}
}

func TestParseRequest(t *testing.T) {
	tests := []struct {
		line    string
		want    Request
		wantErr bool
	}{
		{"SELECT FILE\n", Request{Delivery: DeliverFile}, false},
		{"SELECT STDOUT jpeg\n", Request{Delivery: DeliverStdout, Format: "jpeg"}, false},
		{"SELECT CLIPBOARD\n", Request{Delivery: DeliverClipboard}, false},
		{"STDOUT\n", Request{}, true},
		{"SELECT PRINTER\n", Request{}, true},
		{"SELECT FILE png extra\n", Request{}, true},
	}
	for _, tt := range tests {
		got, err := parseRequest(tt.line)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseRequest(%q) error = %v, wantErr %v", tt.line, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseRequest(%q): Expected %+v, got %+v", tt.line, tt.want, got)
		}
	}

	for _, req := range []Request{{Delivery: DeliverFile}, {Delivery: DeliverStdout, Format: "bmp"}} {
		if got, err := parseRequest(req.line()); err != nil || got != req {
			t.Errorf("Expected %+v to survive the wire, got %+v (%v)", req, got, err)
		}
	}
}

func TestSetPortRange(t *testing.T) {
	prevStart, prevEnd := getPortRange()
	t.Cleanup(func() { SetPortRange(prevStart, prevEnd) })

	tests := []struct {
		name       string
		start, end int
		wantStart  int
		wantEnd    int
	}{
		{"as given", 50000, 50010, 50000, 50010},
		{"reversed", 50010, 50000, 50000, 50010},
		{"below minimum", 80, 2000, 1024, 2000},
		{"above maximum", 60000, 70000, 60000, 65535},
		{"both clamped and swapped", 70000, 10, 1024, 65535},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SetPortRange(tt.start, tt.end)
			start, end := getPortRange()
			if start != tt.wantStart || end != tt.wantEnd {
				t.Errorf("Expected %d-%d, got %d-%d", tt.wantStart, tt.wantEnd, start, end)
			}
		})
	}
}
