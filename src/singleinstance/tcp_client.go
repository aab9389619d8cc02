package singleinstance

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"time"
)

type tcpClient struct{}

func newTcpClient() Client { return &tcpClient{} }

func (c *tcpClient) TrySelect(ctx context.Context, req Request) (bool, []byte, error) {
	addr, ok := findResident(ctx, defaultPingTimeout)
	if !ok {
		return false, nil, nil
	}
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return false, nil, err
	}
	payload, err := exchange(ctx, conn, req)
	return true, payload, err
}

// exchange sends req and waits, for as long as the user takes to select,
// for the resident's answer.
func exchange(ctx context.Context, conn net.Conn, req Request) ([]byte, error) {
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	w := bufio.NewWriter(conn)
	if _, err := w.WriteString(req.line()); err != nil {
		return nil, err
	}
	if err := w.Flush(); err != nil {
		return nil, err
	}
	br := bufio.NewReader(conn)
	status, err := br.ReadString('\n')
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	body, err := io.ReadAll(br)
	if err != nil {
		return nil, err
	}
	switch status {
	case successResponse:
		return body, nil
	case errorResponse:
		return nil, errors.New(string(body))
	}
	return nil, errors.New("unexpected response from resident")
}
