package hotkey

import "testing"

func TestMatcherSingleKey(t *testing.T) {
	m := NewMatcher()
	m.Register("SCROLL_LOCK", nil)

	matched := m.KeyEvent("SCROLL_LOCK", true)
	if len(matched) != 1 || matched[0] != "SCROLL_LOCK" {
		t.Errorf("matched = %v, want [SCROLL_LOCK]", matched)
	}
}

func TestMatcherChordRequiresAllParts(t *testing.T) {
	m := NewMatcher()
	fired := false
	m.Register("CTRL+ALT+ESC", func() { fired = true })

	m.KeyEvent("CTRL", true)
	if fired {
		t.Fatal("should not fire with only one part held")
	}
	m.KeyEvent("ALT", true)
	if fired {
		t.Fatal("should not fire with only two parts held")
	}
	m.KeyEvent("ESC", true)
	if !fired {
		t.Fatal("expected the chord to fire once all parts are held")
	}
}

func TestMatcherKeyUpDoesNotFire(t *testing.T) {
	m := NewMatcher()
	m.Register("WIN", nil)
	m.KeyEvent("WIN", true)
	matched := m.KeyEvent("WIN", false)
	if matched != nil {
		t.Errorf("key-up should never report a match, got %v", matched)
	}
}

func TestIsDownTracksKeyState(t *testing.T) {
	m := NewMatcher()
	if m.IsDown("ALT") {
		t.Fatal("ALT should not be down before any event")
	}
	m.KeyEvent("alt", true) // case-insensitive
	if !m.IsDown("ALT") {
		t.Fatal("expected ALT to be down")
	}
	m.KeyEvent("ALT", false)
	if m.IsDown("ALT") {
		t.Fatal("expected ALT to be up after key-up")
	}
}
