//go:build linux

package uitree

import (
	"fmt"
	"sync"

	"screen-select/src/geometry"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
)

// x11Provider walks the X11 window tree. The connection is opened on first
// use and kept for the life of the process.
type x11Provider struct {
	once sync.Once
	conn *xgb.Conn
	root xproto.Window
	err  error
}

func newPlatformProvider() Provider { return &x11Provider{} }

func (p *x11Provider) connect() error {
	p.once.Do(func() {
		conn, err := xgb.NewConn()
		if err != nil {
			p.err = fmt.Errorf("connect to X server: %v: %w", err, ErrUnavailable)
			return
		}
		p.conn = conn
		p.root = xproto.Setup(conn).DefaultScreen(conn).Root
	})
	return p.err
}

func (p *x11Provider) RootChildren() ([]Element, error) {
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p.children(p.root)
}

func (p *x11Provider) Children(h Handle) ([]Element, error) {
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p.children(xproto.Window(h))
}

func (p *x11Provider) children(parent xproto.Window) ([]Element, error) {
	tree, err := xproto.QueryTree(p.conn, parent).Reply()
	if err != nil {
		return nil, fmt.Errorf("query tree %#x: %v: %w", parent, err, ErrUnavailable)
	}

	// QueryTree lists children bottom-to-top; hit-testing wants front first.
	out := make([]Element, 0, len(tree.Children))
	for i := len(tree.Children) - 1; i >= 0; i-- {
		w := tree.Children[i]
		attrs, err := xproto.GetWindowAttributes(p.conn, w).Reply()
		if err != nil {
			continue
		}
		geom, err := xproto.GetGeometry(p.conn, xproto.Drawable(w)).Reply()
		if err != nil {
			continue
		}
		origin, err := xproto.TranslateCoordinates(p.conn, w, p.root, 0, 0).Reply()
		if err != nil {
			continue
		}
		out = append(out, Element{
			Handle:    Handle(w),
			Rect:      geometry.NewRect(float64(origin.DstX), float64(origin.DstY), float64(geom.Width), float64(geom.Height)),
			Minimized: attrs.MapState != xproto.MapStateViewable,
		})
	}
	return out, nil
}
