package hotkey

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"screen-select/src/inputhook"
)

// Matcher tracks key state for one combination such as "Ctrl+Alt+A".
type Matcher struct {
	combo string

	mu    sync.Mutex
	keys  []keyState
	fired bool
}

type keyState struct {
	name     string
	rawcodes []uint16
	pressed  bool
}

// NewMatcher parses combo. Unknown key names are an error.
func NewMatcher(combo string) (*Matcher, error) {
	names := parseHotkey(combo)
	if len(names) == 0 {
		return nil, fmt.Errorf("empty hotkey %q", combo)
	}
	m := &Matcher{combo: combo}
	for _, name := range names {
		rawcodes := keyNameToRawcodes(name)
		if len(rawcodes) == 0 {
			return nil, fmt.Errorf("hotkey %q: unknown key %q", combo, name)
		}
		m.keys = append(m.keys, keyState{name: name, rawcodes: rawcodes})
	}
	return m, nil
}

func (m *Matcher) String() string { return m.combo }

// Feed records a key event and reports whether it completed the combination.
// Auto-repeat of held keys does not fire again; releasing any key of the
// combination re-arms it.
func (m *Matcher) Feed(ev inputhook.KeyEvent) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	changed := false
	for i := range m.keys {
		if m.keys[i].matches(ev.Rawcode) && m.keys[i].pressed != ev.Down {
			m.keys[i].pressed = ev.Down
			changed = true
		}
	}
	if !changed {
		return false
	}
	if !ev.Down {
		m.fired = false
		return false
	}
	if m.fired {
		return false
	}
	for i := range m.keys {
		if !m.keys[i].pressed {
			return false
		}
	}
	m.fired = true
	return true
}

func (k keyState) matches(rawcode uint16) bool {
	for _, rc := range k.rawcodes {
		if rc == rawcode {
			return true
		}
	}
	return false
}

// Binding pairs a matcher with the action to run when it fires.
type Binding struct {
	Matcher *Matcher
	Action  func()
}

// Listen consumes keys until ctx is done or the channel closes, running the
// action of every binding whose combination completes. Actions run on the
// listener goroutine and must not block.
func Listen(ctx context.Context, keys <-chan inputhook.KeyEvent, bindings ...Binding) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("PANIC in hotkey goroutine: %v", r)
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-keys:
				if !ok {
					log.Printf("hotkey: key channel closed")
					return
				}
				for _, b := range bindings {
					if b.Matcher.Feed(ev) {
						log.Printf("hotkey: %s activated", b.Matcher)
						if b.Action != nil {
							b.Action()
						}
					}
				}
			}
		}
	}()
}

// parseHotkey converts a hotkey string like "Ctrl+Alt+q" to normalized key names
func parseHotkey(hotkeyConfig string) []string {
	var keys []string
	for _, part := range strings.Split(strings.ToLower(hotkeyConfig), "+") {
		part = strings.TrimSpace(part)
		switch part {
		case "":
			continue
		case "win", "cmd", "super":
			keys = append(keys, "cmd")
		case "control":
			keys = append(keys, "ctrl")
		default:
			keys = append(keys, part)
		}
	}
	return keys
}

// Windows virtual key codes. Modifiers list both the left and right variants.
var namedKeys = map[string][]uint16{
	"ctrl":  {162, 163}, // VK_LCONTROL, VK_RCONTROL
	"alt":   {164, 165}, // VK_LMENU, VK_RMENU
	"shift": {160, 161}, // VK_LSHIFT, VK_RSHIFT
	"cmd":   {91, 92},   // VK_LWIN, VK_RWIN

	"space":     {32},
	"enter":     {13},
	"return":    {13},
	"esc":       {27},
	"escape":    {27},
	"tab":       {9},
	"backspace": {8},
	"delete":    {46},
	"del":       {46},
	"insert":    {45},
	"ins":       {45},
	"home":      {36},
	"end":       {35},
	"pageup":    {33},
	"pgup":      {33},
	"pagedown":  {34},
	"pgdn":      {34},
	"left":      {37},
	"up":        {38},
	"right":     {39},
	"down":      {40},

	"printscreen": {44},
	"prtsc":       {44},
}

// keyNameToRawcodes maps a key name to its rawcodes, or nil when unknown.
func keyNameToRawcodes(keyName string) []uint16 {
	keyName = strings.ToLower(strings.TrimSpace(keyName))
	if codes, ok := namedKeys[keyName]; ok {
		return codes
	}
	if keyName == "win" || keyName == "super" {
		return namedKeys["cmd"]
	}

	// Letters and digits share their ASCII uppercase code.
	if len(keyName) == 1 {
		c := keyName[0]
		switch {
		case c >= 'a' && c <= 'z':
			return []uint16{uint16(c - 'a' + 'A')}
		case c >= '0' && c <= '9':
			return []uint16{uint16(c)}
		}
	}

	// F1-F24 are VK_F1 (112) onwards.
	var n int
	if _, err := fmt.Sscanf(keyName, "f%d", &n); err == nil && n >= 1 && n <= 24 && keyName == fmt.Sprintf("f%d", n) {
		return []uint16{uint16(111 + n)}
	}

	log.Printf("WARNING: Unknown key name '%s', cannot map to rawcode", keyName)
	return nil
}
