package singleinstance

import "sync"

const (
	DefaultPortStart = 49600
	DefaultPortEnd   = 49650

	minPort = 1024
	maxPort = 65535
)

var (
	portsMu   sync.RWMutex
	portStart = DefaultPortStart
	portEnd   = DefaultPortEnd
)

// SetPortRange sets the inclusive loopback port range that residents bind
// and clients scan. Values are clamped to [1024, 65535] and a reversed range
// is swapped.
func SetPortRange(start, end int) {
	start, end = clampPort(start), clampPort(end)
	if end < start {
		start, end = end, start
	}
	portsMu.Lock()
	portStart, portEnd = start, end
	portsMu.Unlock()
}

func getPortRange() (int, int) {
	portsMu.RLock()
	defer portsMu.RUnlock()
	return portStart, portEnd
}

func clampPort(p int) int {
	return min(max(p, minPort), maxPort)
}
