package typing

import "strings"

// Status is the outcome of a single keystroke.
type Status int

const (
	// StatusNoMatch means the key was rejected; the session is unchanged.
	StatusNoMatch Status = iota
	// StatusInProgress means the key extended the active unit's buffer.
	StatusInProgress
	// StatusUnitCompleted means at least one unit was committed.
	StatusUnitCompleted
	// StatusAllCompleted means the last unit was committed.
	StatusAllCompleted
	// StatusAlreadyCompleted means the phrase was finished before the key.
	StatusAlreadyCompleted
)

func (s Status) String() string {
	switch s {
	case StatusNoMatch:
		return "no_match"
	case StatusInProgress:
		return "in_progress"
	case StatusUnitCompleted:
		return "unit_completed"
	case StatusAllCompleted:
		return "all_completed"
	case StatusAlreadyCompleted:
		return "already_completed"
	default:
		return "unknown"
	}
}

// Result describes what ProcessKey did with a key.
type Result struct {
	Accepted bool
	Status   Status

	// Committed is the number of units the key committed: 0, 1, or 2 when
	// the key straddled a unit boundary and completed the next unit too.
	Committed int

	// Recovered is set when the key closed the previous unit with its
	// shorter spelling before being applied to the next one.
	Recovered bool
}

// ProcessKey applies one normalized key to the session. The key must already
// be a single lower-cased, width-normalized, printable character.
func (s *Session) ProcessKey(key rune) Result {
	if s.completed {
		return Result{Status: StatusAlreadyCompleted}
	}

	res := s.match(key)
	if res.Accepted {
		s.stats.Correct++
	} else {
		s.stats.Misses++
	}
	s.markKey()
	return res
}

func (s *Session) match(key rune) Result {
	k := string(key)

	if res, ok := s.advance(s.buffer + k); ok {
		return res
	}

	// Boundary recovery: the buffer already spells the active unit and the key
	// starts the next one.
	shorter := s.buffer
	nextUnit := s.next()
	if shorter == "" || nextUnit == nil || !contains(s.active().Candidates, shorter) {
		return Result{Status: StatusNoMatch}
	}
	if !matchesAny(nextUnit.Candidates, k) {
		return Result{Status: StatusNoMatch}
	}

	s.commit(shorter)
	res, ok := s.advance(k)
	if !ok {
		// matchesAny guaranteed a prefix or exact match on the new unit.
		return Result{Accepted: true, Status: StatusUnitCompleted, Committed: 1, Recovered: true}
	}
	res.Committed++
	res.Recovered = true
	if res.Status == StatusInProgress {
		res.Status = StatusUnitCompleted
	}
	return res
}

// advance tries tentative against the active unit without boundary recovery.
func (s *Session) advance(tentative string) (Result, bool) {
	u := s.active()
	exact := contains(u.Candidates, tentative)
	prefix := hasStrictPrefix(u.Candidates, tentative)

	// An exact spelling that also starts a longer one (ん typed as "n" on the
	// way to "nn") is held while a following unit can still disambiguate it.
	if exact && !(prefix && s.next() != nil) {
		s.commit(tentative)
		if s.completed {
			return Result{Accepted: true, Status: StatusAllCompleted, Committed: 1}, true
		}
		return Result{Accepted: true, Status: StatusUnitCompleted, Committed: 1}, true
	}
	if prefix {
		s.buffer = tentative
		return Result{Accepted: true, Status: StatusInProgress}, true
	}
	return Result{}, false
}

func contains(cands []string, s string) bool {
	for _, c := range cands {
		if c == s {
			return true
		}
	}
	return false
}

func hasStrictPrefix(cands []string, s string) bool {
	for _, c := range cands {
		if len(c) > len(s) && strings.HasPrefix(c, s) {
			return true
		}
	}
	return false
}

func matchesAny(cands []string, s string) bool {
	for _, c := range cands {
		if strings.HasPrefix(c, s) {
			return true
		}
	}
	return false
}
