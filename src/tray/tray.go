package tray

import (
	"fmt"
	"log"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/getlantern/systray"

	"screen-select/src/notification"
)

type Config struct {
	Title     string
	Tooltip   string
	OnCapture func()
	OnExit    func()
}

// Tray is the notification-area icon with Capture / About / Quit items.
type Tray struct {
	cfg  Config
	quit sync.Once
}

var (
	stateMu    sync.Mutex
	ready      bool
	tooltip    string
	aboutLines = map[string]string{}
)

func New(cfg Config) (*Tray, error) {
	if cfg.Title == "" {
		cfg.Title = "Screen Select"
	}
	return &Tray{cfg: cfg}, nil
}

// Run blocks until Destroy is called or the user picks Quit. On macOS it
// must be called from the main goroutine.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Destroy removes the icon.
func (t *Tray) Destroy() {
	t.quit.Do(systray.Quit)
}

func (t *Tray) onReady() {
	if runtime.GOOS == "windows" {
		systray.SetIcon(IconICO())
	} else {
		systray.SetIcon(IconPNG())
	}
	systray.SetTitle(t.cfg.Title)

	stateMu.Lock()
	ready = true
	if tooltip == "" {
		tooltip = t.cfg.Tooltip
	}
	systray.SetTooltip(tooltip)
	stateMu.Unlock()

	mCapture := systray.AddMenuItem("Capture region", "Select a region and export it")
	mAbout := systray.AddMenuItem("About", "Show settings in effect")
	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit", "Quit the application")

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("PANIC in tray menu goroutine: %v", r)
			}
		}()
		for {
			select {
			case <-mCapture.ClickedCh:
				log.Printf("tray: capture requested")
				if t.cfg.OnCapture != nil {
					t.cfg.OnCapture()
				}
			case <-mAbout.ClickedCh:
				go notification.ShowInfo("About "+t.cfg.Title, aboutText())
			case <-mQuit.ClickedCh:
				log.Printf("tray: quit requested")
				t.Destroy()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {
	stateMu.Lock()
	ready = false
	stateMu.Unlock()
	if t.cfg.OnExit != nil {
		t.cfg.OnExit()
	}
}

// UpdateTooltip sets the hover text. Calls before the icon is ready are kept
// and applied once it is.
func UpdateTooltip(s string) {
	stateMu.Lock()
	defer stateMu.Unlock()
	tooltip = s
	if ready {
		systray.SetTooltip(s)
	}
}

// SetAboutExtra adds or replaces a line of the About box.
func SetAboutExtra(key, value string) {
	stateMu.Lock()
	defer stateMu.Unlock()
	aboutLines[key] = value
}

func aboutText() string {
	stateMu.Lock()
	defer stateMu.Unlock()
	keys := make([]string, 0, len(aboutLines))
	for k := range aboutLines {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	var b strings.Builder
	b.WriteString("Select a screen region and export it.\n")
	for _, k := range keys {
		fmt.Fprintf(&b, "\n%s: %s", k, aboutLines[k])
	}
	return b.String()
}
