package engine

import (
	"time"

	"github.com/riffluv/manaby-typing-sub000/internal/romaji"
)

// Key represents a key event from the keyboard layer.
type Key struct {
	// Char is the character the key produces. Zero for keys that produce
	// nothing (modifiers, function keys).
	Char rune

	// Code is the platform virtual key code, if known. It is only logged.
	Code uint16

	// Modifiers indicates which modifier keys are held.
	Modifiers Modifiers

	// Timestamp is when the key event occurred.
	// If zero, the engine clock is used.
	Timestamp time.Time
}

// NewKey creates a Key for char with no modifiers.
func NewKey(char rune) Key {
	return Key{Char: char}
}

// NewKeyAt creates a Key for char observed at ts.
func NewKeyAt(char rune, ts time.Time) Key {
	return Key{Char: char, Timestamp: ts}
}

// Modifiers represents modifier key state.
type Modifiers uint8

const (
	ModShift Modifiers = 1 << iota
	ModControl
	ModAlt
	ModMeta // Command on macOS, Windows key on Windows
)

// Chord reports whether a modifier other than Shift is held. Such keys are
// shortcuts, never typed text.
func (m Modifiers) Chord() bool {
	return m&(ModControl|ModAlt|ModMeta) != 0
}

// normalize returns the rune a typing session accepts for k.
func (k Key) normalize() (rune, bool) {
	if k.Modifiers.Chord() {
		return 0, false
	}
	return romaji.NormalizeKey(k.Char)
}
