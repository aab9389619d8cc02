package uitree

import (
	"log"
	"sync"
	"sync/atomic"

	"screen-select/src/geometry"
)

type node struct {
	handle   Handle
	rect     geometry.Rect
	children atomic.Pointer[[]*node]
}

// Cache is a point-in-time snapshot of element rectangles. Children of each
// node are fetched from the provider on first descent and memoized, so each
// node is queried at most once per snapshot.
type Cache struct {
	provider Provider

	mu    sync.RWMutex
	roots []*node

	queries atomic.Int64
	nodes   atomic.Int64
}

// Stats describes the work a cache has done since its last snapshot.
type Stats struct {
	Roots   int
	Nodes   int64
	Queries int64
}

// NewCache returns an empty cache backed by provider.
func NewCache(provider Provider) *Cache {
	return &Cache{provider: provider}
}

// Snapshot replaces the current snapshot with the provider's top-level
// elements clipped to root.
func (c *Cache) Snapshot(root geometry.Rect) {
	c.queries.Store(0)
	c.nodes.Store(0)

	elements, err := c.provider.RootChildren()
	c.queries.Add(1)
	if err != nil {
		log.Printf("uitree: root query failed: %v", err)
		elements = nil
	}
	roots := c.build(elements, root)

	c.mu.Lock()
	c.roots = roots
	c.mu.Unlock()
	log.Printf("uitree: snapshot of %s has %d top-level elements", root, len(roots))
}

// Release drops the snapshot. Subsequent lookups return geometry.Empty.
func (c *Cache) Release() {
	c.mu.Lock()
	c.roots = nil
	c.mu.Unlock()
}

// GetByPoint returns the deepest element rectangle containing (x, y), or
// geometry.Empty when no top-level element does. Coordinates are physical.
func (c *Cache) GetByPoint(x, y float64) geometry.Rect {
	c.mu.RLock()
	level := c.roots
	c.mu.RUnlock()

	found := geometry.Empty
	for {
		hit := firstContaining(level, x, y)
		if hit == nil {
			return found
		}
		found = hit.rect
		level = c.childrenOf(hit)
	}
}

// Stats reports snapshot size and provider traffic.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	roots := len(c.roots)
	c.mu.RUnlock()
	return Stats{Roots: roots, Nodes: c.nodes.Load(), Queries: c.queries.Load()}
}

func firstContaining(nodes []*node, x, y float64) *node {
	for _, n := range nodes {
		if n.rect.Contains(x, y) {
			return n
		}
	}
	return nil
}

func (c *Cache) childrenOf(n *node) []*node {
	if cached := n.children.Load(); cached != nil {
		return *cached
	}

	elements, err := c.provider.Children(n.handle)
	c.queries.Add(1)
	if err != nil {
		elements = nil
	}
	built := c.build(elements, n.rect)
	if n.children.CompareAndSwap(nil, &built) {
		return built
	}
	// Another hit-test won the race; use its result.
	return *n.children.Load()
}

func (c *Cache) build(elements []Element, parent geometry.Rect) []*node {
	nodes := make([]*node, 0, len(elements))
	for _, e := range elements {
		if e.Minimized {
			continue
		}
		r := e.Rect.Intersect(parent)
		if r.IsZeroArea() {
			continue
		}
		nodes = append(nodes, &node{handle: e.Handle, rect: r})
	}
	c.nodes.Add(int64(len(nodes)))
	return nodes
}
