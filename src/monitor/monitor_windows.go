//go:build windows

package monitor

import (
	"fmt"
	"syscall"
	"unsafe"

	"screen-select/src/geometry"

	"github.com/lxn/win"
	"golang.org/x/sys/windows"
)

const (
	mdtEffectiveDPI = 0
	defaultDPI      = 96
)

var (
	shcore               = windows.NewLazySystemDLL("shcore.dll")
	procGetDpiForMonitor = shcore.NewProc("GetDpiForMonitor")
)

func list() ([]Info, error) {
	state := &enumState{}
	callback := syscall.NewCallback(state.enumProc)

	if ok := win.EnumDisplayMonitors(0, nil, callback, 0); !ok {
		return nil, fmt.Errorf("EnumDisplayMonitors failed: %w", syscall.GetLastError())
	}
	return state.list, nil
}

type enumState struct {
	list []Info
}

func (s *enumState) enumProc(hMonitor win.HMONITOR, hdc win.HDC, rect *win.RECT, lparam uintptr) uintptr {
	var info win.MONITORINFO
	info.CbSize = uint32(unsafe.Sizeof(info))
	if !win.GetMonitorInfo(hMonitor, &info) {
		return 1
	}

	rc := info.RcMonitor
	dpiX, dpiY := monitorDPI(hMonitor)
	s.list = append(s.list, Info{
		Index:          len(s.list),
		PhysicalBounds: geometry.NewRect(float64(rc.Left), float64(rc.Top), float64(rc.Right-rc.Left), float64(rc.Bottom-rc.Top)),
		ScaleX:         defaultDPI / float64(dpiX),
		ScaleY:         defaultDPI / float64(dpiY),
		Primary:        info.DwFlags&win.MONITORINFOF_PRIMARY != 0,
	})
	return 1
}

// monitorDPI asks shcore for the effective DPI (Windows 8.1+). Older systems
// report the default DPI.
func monitorDPI(h win.HMONITOR) (uint32, uint32) {
	if err := procGetDpiForMonitor.Find(); err != nil {
		return defaultDPI, defaultDPI
	}
	var dpiX, dpiY uint32
	hr, _, _ := procGetDpiForMonitor.Call(
		uintptr(h),
		mdtEffectiveDPI,
		uintptr(unsafe.Pointer(&dpiX)),
		uintptr(unsafe.Pointer(&dpiY)),
	)
	if hr != 0 || dpiX == 0 || dpiY == 0 {
		return defaultDPI, defaultDPI
	}
	return dpiX, dpiY
}
