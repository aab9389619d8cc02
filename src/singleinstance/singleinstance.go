package singleinstance

// This file defines the API for single-instance ownership and select delegation.

import (
	"context"
	"fmt"
	"strings"
)

// Server owns the TCP endpoint and answers select requests.
type Server interface {
	// Start begins listening on the first port of the configured range and accepting client requests.
	Start(ctx context.Context) error
	// Port returns the bound TCP port, or 0 if not started.
	Port() int
	// Next returns the next accepted connection as a Conn, or ctx error.
	Next(ctx context.Context) (Conn, error)
	// Close releases ownership and stops accepting clients.
	Close() error
}

// Conn represents one client connection and exposes request + response API.
type Conn interface {
	// Request returns the parsed client request.
	Request() Request
	// RespondSuccess sends success with an optional payload: the saved path
	// for file delivery, the encoded image for stdout delivery.
	RespondSuccess(payload []byte) error
	// RespondError sends an error with human-readable message.
	RespondError(msg string) error
	// Close closes the underlying connection.
	Close() error
}

// Delivery says where the resident should put the capture.
type Delivery string

const (
	DeliverFile      Delivery = "FILE"
	DeliverClipboard Delivery = "CLIPBOARD"
	DeliverStdout    Delivery = "STDOUT"
)

// Request represents a single delegated selection.
type Request struct {
	Delivery Delivery
	// Format is an export format name; empty means the resident's default.
	Format string
}

func (r Request) line() string {
	if r.Format == "" {
		return fmt.Sprintf("SELECT %s\n", r.Delivery)
	}
	return fmt.Sprintf("SELECT %s %s\n", r.Delivery, r.Format)
}

func parseRequest(line string) (Request, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 || len(fields) > 3 || fields[0] != "SELECT" {
		return Request{}, fmt.Errorf("malformed request %q", strings.TrimSpace(line))
	}
	req := Request{Delivery: Delivery(fields[1])}
	switch req.Delivery {
	case DeliverFile, DeliverClipboard, DeliverStdout:
	default:
		return Request{}, fmt.Errorf("unknown delivery %q", fields[1])
	}
	if len(fields) == 3 {
		req.Format = fields[2]
	}
	return req, nil
}

// Client attempts to delegate a selection to a resident server.
type Client interface {
	// TrySelect scans the port range, performs the handshake, and delegates to the resident.
	// If no resident is found, returns delegated=false, err=nil.
	TrySelect(ctx context.Context, req Request) (delegated bool, payload []byte, err error)
}

// NewServer returns TCP implementation.
func NewServer() Server { return newTcpServer() }

// NewClient returns TCP implementation.
func NewClient() Client { return newTcpClient() }
