// Package hotkey matches key-state combinations against registered
// key-name sets, generalized from the reference codebase's global-hotkey
// manager (itself a chord matcher over a live pressed-key map) to serve the
// input interceptor's emergency-key detection: single keys and modifier
// chords that must always reach the OS regardless of suppress.
package hotkey

import (
	"strings"
	"sync"
)

// Matcher tracks which key names are currently held down and reports which
// registered combos become satisfied on each key-down event.
type Matcher struct {
	mu     sync.RWMutex
	combos []*combo
	state  map[string]bool
}

type combo struct {
	parts    []string
	original string
	onMatch  func()
}

// NewMatcher creates an empty Matcher.
func NewMatcher() *Matcher {
	return &Matcher{state: make(map[string]bool)}
}

// Register adds a combo, e.g. "CTRL+ALT+ESC" or a bare "SCROLL_LOCK", with
// an optional callback invoked when the combo becomes satisfied on a
// key-down.
func (m *Matcher) Register(comboStr string, onMatch func()) {
	parts := strings.Split(strings.ToUpper(strings.TrimSpace(comboStr)), "+")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.combos = append(m.combos, &combo{parts: parts, original: comboStr, onMatch: onMatch})
}

// Clear removes every registered combo and resets tracked key state.
func (m *Matcher) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.combos = nil
	m.state = make(map[string]bool)
}

// KeyEvent updates the pressed-state of keyName and, on a key-down, returns
// the original strings of every combo that is now fully satisfied, firing
// each combo's callback in the order registered.
func (m *Matcher) KeyEvent(keyName string, down bool) []string {
	keyName = strings.ToUpper(keyName)
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state[keyName] = down
	if !down {
		return nil
	}

	var matched []string
	for _, c := range m.combos {
		if m.satisfiedLocked(c) {
			matched = append(matched, c.original)
			if c.onMatch != nil {
				c.onMatch()
			}
		}
	}
	return matched
}

// IsDown reports whether keyName is currently tracked as held down.
func (m *Matcher) IsDown(keyName string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state[strings.ToUpper(keyName)]
}

func (m *Matcher) satisfiedLocked(c *combo) bool {
	for _, part := range c.parts {
		if !m.state[part] {
			return false
		}
	}
	return true
}
