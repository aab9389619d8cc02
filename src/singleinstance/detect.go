package singleinstance

import (
	"bufio"
	"context"
	"net"
	"strconv"
	"time"
)

const defaultPingTimeout = 300 * time.Millisecond

// DetectResidentPort returns the first port in the range whose listener
// answers PING. ctx bounds the whole scan; each probe waits at most the
// remaining time or 300ms.
func DetectResidentPort(ctx context.Context) (int, bool) {
	timeout := defaultPingTimeout
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 && d < timeout {
			timeout = d
		}
	}
	addr, ok := findResident(ctx, timeout)
	if !ok {
		return 0, false
	}
	_, p, _ := net.SplitHostPort(addr)
	port, err := strconv.Atoi(p)
	return port, err == nil
}

// findResident scans the configured range and returns the address of the
// first resident.
func findResident(ctx context.Context, timeout time.Duration) (string, bool) {
	start, end := getPortRange()
	for port := start; port <= end; port++ {
		if ctx.Err() != nil {
			return "", false
		}
		addr := net.JoinHostPort(residentHost, strconv.Itoa(port))
		if ping(ctx, addr, timeout) {
			return addr, true
		}
	}
	return "", false
}

func ping(ctx context.Context, addr string, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return false
	}
	defer conn.Close()
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}
	if _, err := conn.Write([]byte(pingRequest)); err != nil {
		return false
	}
	resp, err := bufio.NewReader(conn).ReadString('\n')
	return err == nil && resp == pongResponse
}
