package uitree

import (
	"errors"
	"sync"
	"testing"

	"screen-select/src/geometry"
)

type fakeProvider struct {
	mu       sync.Mutex
	roots    []Element
	rootErr  error
	children map[Handle][]Element
	failing  map[Handle]bool
	calls    map[Handle]int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		children: map[Handle][]Element{},
		failing:  map[Handle]bool{},
		calls:    map[Handle]int{},
	}
}

func (f *fakeProvider) RootChildren() ([]Element, error) {
	return f.roots, f.rootErr
}

func (f *fakeProvider) Children(h Handle) ([]Element, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[h]++
	if f.failing[h] {
		return nil, ErrUnavailable
	}
	return f.children[h], nil
}

func screen() geometry.Rect { return geometry.NewRect(0, 0, 1920, 1080) }

// desktop builds: window 1 (100,100,800,600) containing panel 11 (150,150,200,200)
// which contains button 111 (160,160,50,20); window 2 behind window 1.
func desktop() *fakeProvider {
	f := newFakeProvider()
	f.roots = []Element{
		{Handle: 1, Rect: geometry.NewRect(100, 100, 800, 600)},
		{Handle: 2, Rect: geometry.NewRect(0, 0, 1920, 1080)},
		{Handle: 3, Rect: geometry.NewRect(500, 500, 100, 100), Minimized: true},
	}
	f.children[1] = []Element{
		{Handle: 11, Rect: geometry.NewRect(150, 150, 200, 200)},
		{Handle: 12, Rect: geometry.NewRect(850, 650, 400, 400)},
	}
	f.children[11] = []Element{
		{Handle: 111, Rect: geometry.NewRect(160, 160, 50, 20)},
	}
	return f
}

func TestGetByPointDescends(t *testing.T) {
	c := NewCache(desktop())
	c.Snapshot(screen())

	tests := []struct {
		name string
		x, y float64
		want geometry.Rect
	}{
		{"button", 170, 165, geometry.NewRect(160, 160, 50, 20)},
		{"panel", 300, 300, geometry.NewRect(150, 150, 200, 200)},
		{"window", 600, 600, geometry.NewRect(100, 100, 800, 600)},
		{"clipped child", 880, 680, geometry.NewRect(850, 650, 50, 50)},
		{"background", 1500, 900, geometry.NewRect(0, 0, 1920, 1080)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.GetByPoint(tt.x, tt.y); got != tt.want {
				t.Errorf("GetByPoint(%v, %v) = %v, want %v", tt.x, tt.y, got, tt.want)
			}
		})
	}
}

func TestGetByPointIdempotent(t *testing.T) {
	f := desktop()
	c := NewCache(f)
	c.Snapshot(screen())

	first := c.GetByPoint(170, 165)
	second := c.GetByPoint(170, 165)
	if first != second {
		t.Errorf("Expected identical results, got %v and %v", first, second)
	}
	if f.calls[1] != 1 || f.calls[11] != 1 {
		t.Errorf("Expected each node queried once, got %v", f.calls)
	}
}

func TestGetByPointMiss(t *testing.T) {
	f := newFakeProvider()
	f.roots = []Element{{Handle: 1, Rect: geometry.NewRect(0, 0, 10, 10)}}
	c := NewCache(f)

	if got := c.GetByPoint(5, 5); !got.IsEmpty() {
		t.Errorf("Expected Empty before snapshot, got %v", got)
	}
	c.Snapshot(screen())
	if got := c.GetByPoint(500, 500); !got.IsEmpty() {
		t.Errorf("Expected Empty for a miss, got %v", got)
	}
	c.Release()
	if got := c.GetByPoint(5, 5); !got.IsEmpty() {
		t.Errorf("Expected Empty after release, got %v", got)
	}
}

func TestSnapshotFiltersElements(t *testing.T) {
	f := newFakeProvider()
	f.roots = []Element{
		{Handle: 1, Rect: geometry.NewRect(5000, 5000, 10, 10)},
		{Handle: 2, Rect: geometry.NewRect(10, 10, 0, 50)},
		{Handle: 3, Rect: geometry.NewRect(10, 10, 50, 50), Minimized: true},
		{Handle: 4, Rect: geometry.NewRect(-50, -50, 100, 100)},
	}
	c := NewCache(f)
	c.Snapshot(screen())

	if stats := c.Stats(); stats.Roots != 1 {
		t.Fatalf("Expected 1 surviving root, got %+v", stats)
	}
	if got := c.GetByPoint(20, 20); got != geometry.NewRect(0, 0, 50, 50) {
		t.Errorf("Expected clipped rect (0,0,50,50), got %v", got)
	}
}

func TestProviderFailuresAreEmpty(t *testing.T) {
	f := desktop()
	f.failing[1] = true
	c := NewCache(f)
	c.Snapshot(screen())

	if got := c.GetByPoint(170, 165); got != geometry.NewRect(100, 100, 800, 600) {
		t.Errorf("Expected top-level rect when children fail, got %v", got)
	}

	f.rootErr = errors.New("busy")
	c.Snapshot(screen())
	if got := c.GetByPoint(170, 165); !got.IsEmpty() {
		t.Errorf("Expected Empty when root query fails, got %v", got)
	}
}

func TestConcurrentHitTests(t *testing.T) {
	f := desktop()
	c := NewCache(f)
	c.Snapshot(screen())

	var wg sync.WaitGroup
	results := make([]geometry.Rect, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.GetByPoint(170, 165)
		}(i)
	}
	wg.Wait()

	for i, r := range results {
		if r != geometry.NewRect(160, 160, 50, 20) {
			t.Errorf("Result %d: got %v", i, r)
		}
	}
}
