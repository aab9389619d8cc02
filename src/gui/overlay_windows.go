//go:build windows

package gui

import (
	"errors"
	"fmt"
	"image/color"
	"log"
	"runtime"
	"sync"
	"syscall"
	"unsafe"

	"github.com/lxn/win"
	"golang.org/x/sys/windows"

	"screen-select/src/geometry"
	"screen-select/src/monitor"
	"screen-select/src/screenshot"
	"screen-select/src/selection"
)

const overlayClassName = "ScreenSelectOverlay"

var (
	gdi32                 = windows.NewLazySystemDLL("gdi32.dll")
	procCreatePen         = gdi32.NewProc("CreatePen")
	procRectangle         = gdi32.NewProc("Rectangle")
	procIntersectClipRect = gdi32.NewProc("IntersectClipRect")
	procSaveDC            = gdi32.NewProc("SaveDC")
	procRestoreDC         = gdi32.NewProc("RestoreDC")

	user32                       = windows.NewLazySystemDLL("user32.dll")
	procAllowSetForegroundWindow = user32.NewProc("AllowSetForegroundWindow")

	registerOnce sync.Once
	registerErr  error

	overlaysMu sync.Mutex
	overlays   = map[win.HWND]*Overlay{}
)

// Overlay is a topmost window spanning the virtual screen. It paints the
// frozen background and the rectangle of every monitor's machine, and
// implements session.RenderSink.
type Overlay struct {
	monitors   []monitor.Info
	background *screenshot.Sampler
	origin     geometry.Rect

	mu     sync.Mutex
	hwnd   win.HWND
	bg     backgroundDC
	rects  []geometry.Rect // physical, per monitor
	states []selection.State
	hint   int
	pixel  color.Color
	// hasPixel is false when nothing could be sampled under the pointer.
	hasPixel bool

	closed chan struct{}
}

// NewOverlay prepares an overlay. background may be nil.
func NewOverlay(monitors []monitor.Info, background *screenshot.Sampler) *Overlay {
	o := &Overlay{
		monitors:   monitors,
		background: background,
		origin:     monitor.VirtualBounds(monitors),
		rects:      make([]geometry.Rect, len(monitors)),
		states:     make([]selection.State, len(monitors)),
		hint:       monitor.Primary(monitors),
		closed:     make(chan struct{}),
	}
	for i := range o.rects {
		o.rects[i] = geometry.Empty
	}
	return o
}

// Show creates the window on a dedicated OS thread and returns once it is
// visible.
func (o *Overlay) Show() error {
	if o.origin.IsZeroArea() {
		return monitor.ErrNoMonitors
	}
	errCh := make(chan error, 1)
	go o.loop(errCh)
	return <-errCh
}

// Close destroys the window and waits for its thread to finish.
func (o *Overlay) Close() {
	o.mu.Lock()
	hwnd := o.hwnd
	o.mu.Unlock()
	if hwnd == 0 {
		return
	}
	win.PostMessage(hwnd, win.WM_CLOSE, 0, 0)
	<-o.closed
}

func (o *Overlay) OnRect(i int, r geometry.Rect) {
	if i < 0 || i >= len(o.monitors) {
		return
	}
	phys := o.monitors[i].Converter().ToPhysicalRect(r)
	o.mu.Lock()
	o.rects[i] = phys
	if !phys.IsZeroArea() {
		o.hint = i
	}
	hwnd := o.hwnd
	o.mu.Unlock()
	if hwnd != 0 {
		win.InvalidateRect(hwnd, nil, false)
	}
}

func (o *Overlay) OnState(i int, s selection.State) {
	if i < 0 || i >= len(o.monitors) {
		return
	}
	o.mu.Lock()
	o.states[i] = s
	hwnd := o.hwnd
	o.mu.Unlock()
	if hwnd != 0 {
		win.InvalidateRect(hwnd, nil, false)
	}
}

// OnColor shows the background color under the pointer in the hint line.
func (o *Overlay) OnColor(c color.Color, ok bool) {
	o.mu.Lock()
	o.pixel, o.hasPixel = c, ok
	hwnd := o.hwnd
	o.mu.Unlock()
	if hwnd != 0 {
		win.InvalidateRect(hwnd, nil, false)
	}
}

func registerClass() error {
	registerOnce.Do(func() {
		wndClass := win.WNDCLASSEX{
			CbSize:        uint32(unsafe.Sizeof(win.WNDCLASSEX{})),
			Style:         win.CS_HREDRAW | win.CS_VREDRAW,
			LpfnWndProc:   syscall.NewCallback(overlayWndProc),
			HInstance:     win.GetModuleHandle(nil),
			HCursor:       win.LoadCursor(0, win.MAKEINTRESOURCE(win.IDC_CROSS)),
			LpszClassName: syscall.StringToUTF16Ptr(overlayClassName),
		}
		if atom := win.RegisterClassEx(&wndClass); atom == 0 {
			registerErr = errors.New("failed to register overlay window class")
		}
	})
	return registerErr
}

func (o *Overlay) loop(errCh chan<- error) {
	// The thread is never unlocked, so it exits with this goroutine along
	// with any message left in its queue.
	runtime.LockOSThread()
	defer close(o.closed)

	if err := registerClass(); err != nil {
		errCh <- err
		return
	}

	bg, err := newBackgroundDC(o.background, o.origin)
	if err != nil {
		log.Printf("overlay: background unavailable: %v", err)
	}
	defer bg.release()

	vx, vy := int32(o.origin.X), int32(o.origin.Y)
	vw, vh := int32(o.origin.Width), int32(o.origin.Height)
	hwnd := win.CreateWindowEx(
		win.WS_EX_TOPMOST|win.WS_EX_TOOLWINDOW,
		syscall.StringToUTF16Ptr(overlayClassName),
		syscall.StringToUTF16Ptr("Select Region"),
		win.WS_POPUP,
		vx, vy, vw, vh,
		0, 0, win.GetModuleHandle(nil), nil,
	)
	if hwnd == 0 {
		errCh <- errors.New("failed to create overlay window")
		return
	}

	overlaysMu.Lock()
	overlays[hwnd] = o
	overlaysMu.Unlock()
	o.mu.Lock()
	o.hwnd = hwnd
	o.bg = bg
	o.mu.Unlock()
	defer func() {
		overlaysMu.Lock()
		delete(overlays, hwnd)
		overlaysMu.Unlock()
		o.mu.Lock()
		o.hwnd = 0
		o.mu.Unlock()
	}()

	win.ShowWindow(hwnd, win.SW_SHOW)
	procAllowSetForegroundWindow.Call(uintptr(windows.GetCurrentProcessId()))
	win.SetForegroundWindow(hwnd)
	win.BringWindowToTop(hwnd)
	win.UpdateWindow(hwnd)
	log.Printf("overlay: window %v at (%d,%d) size %dx%d", hwnd, vx, vy, vw, vh)
	errCh <- nil

	var msg win.MSG
	for {
		ret := win.GetMessage(&msg, 0, 0, 0)
		if ret == 0 {
			return
		}
		if ret == -1 {
			log.Printf("overlay: GetMessage error")
			return
		}
		win.TranslateMessage(&msg)
		win.DispatchMessage(&msg)
	}
}

func overlayWndProc(hwnd win.HWND, msg uint32, wParam, lParam uintptr) uintptr {
	overlaysMu.Lock()
	o := overlays[hwnd]
	overlaysMu.Unlock()
	if o == nil {
		return win.DefWindowProc(hwnd, msg, wParam, lParam)
	}

	switch msg {
	case win.WM_PAINT:
		var ps win.PAINTSTRUCT
		hdc := win.BeginPaint(hwnd, &ps)
		o.paint(hdc)
		win.EndPaint(hwnd, &ps)
		return 0

	case win.WM_ERASEBKGND:
		return 1

	case win.WM_NCHITTEST:
		return uintptr(win.HTCLIENT)

	case win.WM_CLOSE:
		win.DestroyWindow(hwnd)
		return 0

	case win.WM_DESTROY:
		win.PostQuitMessage(0)
		return 0
	}
	return win.DefWindowProc(hwnd, msg, wParam, lParam)
}

func (o *Overlay) paint(hdc win.HDC) {
	w, h := int32(o.origin.Width), int32(o.origin.Height)

	// Draw into a back buffer to avoid flicker while dragging.
	memDC := win.CreateCompatibleDC(hdc)
	defer win.DeleteDC(memDC)
	buf := win.CreateCompatibleBitmap(hdc, w, h)
	defer win.DeleteObject(win.HGDIOBJ(buf))
	old := win.SelectObject(memDC, win.HGDIOBJ(buf))
	defer win.SelectObject(memDC, old)

	o.mu.Lock()
	bg := o.bg
	rects := append([]geometry.Rect(nil), o.rects...)
	hintIdx := o.hint
	hint := hintText(o.states[hintIdx], o.monitors[hintIdx].Converter().ToDisplayRect(o.rects[hintIdx])) +
		colorText(o.pixel, o.hasPixel)
	o.mu.Unlock()

	if bg.dc != 0 {
		win.BitBlt(memDC, 0, 0, w, h, bg.dc, 0, 0, win.SRCCOPY)
	}

	pen, _, _ := procCreatePen.Call(0, 2, 0x0000FF)
	oldPen := win.SelectObject(memDC, win.HGDIOBJ(pen))
	oldBrush := win.SelectObject(memDC, win.GetStockObject(win.NULL_BRUSH))
	for i, r := range rects {
		if r.IsZeroArea() {
			continue
		}
		clip := o.monitors[i].PhysicalBounds.Offset(-o.origin.X, -o.origin.Y).ToImage()
		rect := r.Offset(-o.origin.X, -o.origin.Y).ToImage()

		saved, _, _ := procSaveDC.Call(uintptr(memDC))
		procIntersectClipRect.Call(uintptr(memDC),
			uintptr(clip.Min.X), uintptr(clip.Min.Y), uintptr(clip.Max.X), uintptr(clip.Max.Y))
		procRectangle.Call(uintptr(memDC),
			uintptr(rect.Min.X), uintptr(rect.Min.Y), uintptr(rect.Max.X), uintptr(rect.Max.Y))
		procRestoreDC.Call(uintptr(memDC), saved)
	}
	win.SelectObject(memDC, oldPen)
	win.SelectObject(memDC, oldBrush)
	win.DeleteObject(win.HGDIOBJ(pen))

	hintAt := o.monitors[hintIdx].PhysicalBounds.Offset(-o.origin.X, -o.origin.Y)
	win.SetBkMode(memDC, win.TRANSPARENT)
	win.SetTextColor(memDC, win.COLORREF(0x00FFFF))
	text := syscall.StringToUTF16(hint)
	win.TextOut(memDC, int32(hintAt.X)+16, int32(hintAt.Y)+16, &text[0], int32(len(text)-1))

	win.BitBlt(hdc, 0, 0, w, h, memDC, 0, 0, win.SRCCOPY)
}

// backgroundDC holds the frozen desktop as a DIB selected into a memory DC.
type backgroundDC struct {
	dc     win.HDC
	bitmap win.HBITMAP
	old    win.HGDIOBJ
}

func newBackgroundDC(s *screenshot.Sampler, origin geometry.Rect) (backgroundDC, error) {
	if s == nil || s.Image() == nil {
		return backgroundDC{}, errors.New("no capture")
	}
	img := s.Image()
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()

	dc := win.CreateCompatibleDC(0)
	if dc == 0 {
		return backgroundDC{}, errors.New("CreateCompatibleDC failed")
	}
	header := win.BITMAPINFOHEADER{
		BiSize:        uint32(unsafe.Sizeof(win.BITMAPINFOHEADER{})),
		BiWidth:       int32(width),
		BiHeight:      -int32(height), // top-down
		BiPlanes:      1,
		BiBitCount:    32,
		BiCompression: win.BI_RGB,
	}
	var bits unsafe.Pointer
	bitmap := win.CreateDIBSection(dc, &header, win.DIB_RGB_COLORS, &bits, 0, 0)
	if bitmap == 0 {
		win.DeleteDC(dc)
		return backgroundDC{}, fmt.Errorf("CreateDIBSection failed for %dx%d", width, height)
	}

	// 32bpp rows are already DWORD aligned.
	dst := unsafe.Slice((*byte)(bits), width*height*4)
	for y := 0; y < height; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+width*4]
		out := dst[y*width*4 : (y+1)*width*4]
		for x := 0; x < width*4; x += 4 {
			out[x], out[x+1], out[x+2], out[x+3] = row[x+2], row[x+1], row[x], row[x+3]
		}
	}

	if off := s.Origin(); float64(off.X) != origin.X || float64(off.Y) != origin.Y {
		log.Printf("overlay: capture origin %v differs from virtual screen %s", off, origin)
	}
	old := win.SelectObject(dc, win.HGDIOBJ(bitmap))
	return backgroundDC{dc: dc, bitmap: bitmap, old: old}, nil
}

func (b backgroundDC) release() {
	if b.dc == 0 {
		return
	}
	win.SelectObject(b.dc, b.old)
	win.DeleteObject(win.HGDIOBJ(b.bitmap))
	win.DeleteDC(b.dc)
}
