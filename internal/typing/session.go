// Package typing matches a stream of keystrokes against a compiled phrase.
//
// A Session is created per phrase and mutated in place by ProcessKey. It
// performs no locking and no I/O; callers that share a Session across
// goroutines must serialize access themselves.
package typing

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/riffluv/manaby-typing-sub000/internal/romaji"
)

// ErrConstruction is matched by every error NewSession returns.
var ErrConstruction = errors.New("typing: cannot construct session")

// ConstructionError reports why a phrase could not become a Session.
type ConstructionError struct {
	Phrase Phrase
	Reason string
	Err    error
}

func (e *ConstructionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("typing: phrase %q: %s: %v", e.Phrase.Display, e.Reason, e.Err)
	}
	return fmt.Sprintf("typing: phrase %q: %s", e.Phrase.Display, e.Reason)
}

// Unwrap exposes the underlying cause.
func (e *ConstructionError) Unwrap() error {
	return e.Err
}

// Is makes every ConstructionError match ErrConstruction.
func (e *ConstructionError) Is(target error) bool {
	return target == ErrConstruction
}

// Phrase is a target to type.
type Phrase struct {
	// Display is the text shown to the typist (kanji, mixed script).
	Display string `json:"display" toml:"display" yaml:"display"`

	// Phonetic is the kana reading that is actually compiled.
	Phonetic string `json:"phonetic" toml:"phonetic" yaml:"phonetic"`
}

// Session tracks progress through one phrase.
type Session struct {
	phrase   Phrase
	compiled *romaji.Compiled

	index     int
	buffer    string
	committed int
	completed bool

	typed strings.Builder

	clock func() time.Time
	stats Stats
}

// Option configures a Session.
type Option func(*sessionOptions)

type sessionOptions struct {
	table romaji.Table
	clock func() time.Time
}

// WithTable compiles the phrase with a custom romaji table.
func WithTable(t romaji.Table) Option {
	return func(o *sessionOptions) {
		o.table = t
	}
}

// WithClock sets the time source sampled at creation and on each keystroke.
func WithClock(clock func() time.Time) Option {
	return func(o *sessionOptions) {
		o.clock = clock
	}
}

// NewSession compiles p and returns a fresh Session positioned at its first
// unit. It fails with a *ConstructionError when the phonetic text is missing,
// blank, or not valid UTF-8 text.
func NewSession(p Phrase, opts ...Option) (*Session, error) {
	o := sessionOptions{clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	if p.Phonetic == "" {
		return nil, &ConstructionError{Phrase: p, Reason: "missing phonetic text"}
	}
	if !utf8.ValidString(p.Phonetic) {
		return nil, &ConstructionError{Phrase: p, Reason: "phonetic text is not valid UTF-8"}
	}

	compiled, err := romaji.Compile(p.Phonetic, o.table)
	if err != nil {
		return nil, &ConstructionError{Phrase: p, Reason: "compile", Err: err}
	}

	s := &Session{
		phrase:   p,
		compiled: compiled,
		clock:    o.clock,
	}
	s.stats.StartedAt = s.clock()
	return s, nil
}

// Phrase returns the phrase the session was built from.
func (s *Session) Phrase() Phrase {
	return s.phrase
}

// Phonetic returns the normalized phonetic text.
func (s *Session) Phonetic() string {
	return s.compiled.Phonetic
}

// Units returns a copy of the compiled units.
func (s *Session) Units() []romaji.Unit {
	out := make([]romaji.Unit, len(s.compiled.Units))
	for i, u := range s.compiled.Units {
		u.Candidates = append([]string(nil), u.Candidates...)
		out[i] = u
	}
	return out
}

// DisplayString returns the preferred romaji of the whole phrase.
func (s *Session) DisplayString() string {
	return s.compiled.Display
}

// Index returns the position of the active unit.
func (s *Session) Index() int {
	return s.index
}

// Buffer returns the keys typed towards the active unit.
func (s *Session) Buffer() string {
	return s.buffer
}

// CommittedLength returns the display length of every committed unit.
func (s *Session) CommittedLength() int {
	return s.committed
}

// IsCompleted reports whether every unit has been committed.
func (s *Session) IsCompleted() bool {
	return s.completed
}

// Typed returns the spellings actually used for the committed units.
func (s *Session) Typed() string {
	return s.typed.String()
}

func (s *Session) active() *romaji.Unit {
	if s.index >= len(s.compiled.Units) {
		return nil
	}
	return &s.compiled.Units[s.index]
}

func (s *Session) next() *romaji.Unit {
	if s.index+1 >= len(s.compiled.Units) {
		return nil
	}
	return &s.compiled.Units[s.index+1]
}

// commit finishes the active unit with spelling and advances.
func (s *Session) commit(spelling string) {
	u := s.active()
	s.committed += len(u.Preferred())
	s.typed.WriteString(spelling)
	s.buffer = ""
	s.index++
	if s.index == len(s.compiled.Units) {
		s.completed = true
	}
}
