package typing

import (
	"strings"
	"unicode/utf8"
)

// DisplayInfo is the snapshot a renderer needs to highlight progress.
type DisplayInfo struct {
	CommittedLength         int `json:"committed_length"`
	BufferLength            int `json:"buffer_length"`
	ActiveUnitDisplayOffset int `json:"active_unit_display_offset"`
	PercentComplete         int `json:"percent_complete"`
}

// ExpectedNextKey returns the key that continues the preferred path: the
// first rune of the preferred spelling when nothing is buffered, otherwise
// the next rune of the first spelling the buffer is a strict prefix of.
func (s *Session) ExpectedNextKey() (rune, bool) {
	u := s.active()
	if s.completed || u == nil {
		return 0, false
	}
	if s.buffer == "" {
		r, _ := utf8.DecodeRuneInString(u.Preferred())
		return r, true
	}
	for _, c := range u.Candidates {
		if len(c) > len(s.buffer) && strings.HasPrefix(c, s.buffer) {
			r, _ := utf8.DecodeRuneInString(c[len(s.buffer):])
			return r, true
		}
	}
	return 0, false
}

// NextPossibleKeys returns every distinct key that legally extends the
// buffer, in candidate order. More than one key means the typist has a
// choice, e.g. "n" or "x" for ん.
func (s *Session) NextPossibleKeys() []rune {
	u := s.active()
	if s.completed || u == nil {
		return nil
	}
	var keys []rune
	seen := make(map[rune]bool)
	for _, c := range u.Candidates {
		if len(c) <= len(s.buffer) || !strings.HasPrefix(c, s.buffer) {
			continue
		}
		r, _ := utf8.DecodeRuneInString(c[len(s.buffer):])
		if !seen[r] {
			seen[r] = true
			keys = append(keys, r)
		}
	}
	return keys
}

// PercentComplete is the share of committed units, floored. It is 100 only
// once the session is completed.
func (s *Session) PercentComplete() int {
	if s.completed {
		return 100
	}
	n := len(s.compiled.Units)
	if n == 0 {
		return 0
	}
	return s.index * 100 / n
}

// DisplayInfo returns the current highlight positions.
func (s *Session) DisplayInfo() DisplayInfo {
	info := DisplayInfo{
		CommittedLength: s.committed,
		BufferLength:    len(s.buffer),
		PercentComplete: s.PercentComplete(),
	}
	if u := s.active(); u != nil {
		info.ActiveUnitDisplayOffset = u.DisplayOffset
	} else {
		info.ActiveUnitDisplayOffset = len(s.compiled.Display)
	}
	return info
}

// Remaining returns the romaji still to be typed: the rest of the spelling
// the buffer is heading towards, then the preferred spelling of every later
// unit.
func (s *Session) Remaining() string {
	u := s.active()
	if u == nil {
		return ""
	}
	var b strings.Builder
	rest := u.Preferred()
	if s.buffer != "" {
		for _, c := range u.Candidates {
			if strings.HasPrefix(c, s.buffer) {
				rest = c[len(s.buffer):]
				break
			}
		}
	}
	b.WriteString(rest)
	for _, later := range s.compiled.Units[s.index+1:] {
		b.WriteString(later.Preferred())
	}
	return b.String()
}
