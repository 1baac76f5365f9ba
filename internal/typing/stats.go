package typing

import "time"

// Stats holds the per-phrase counters a score tracker consumes.
type Stats struct {
	StartedAt   time.Time
	FirstKeyAt  time.Time
	LastKeyAt   time.Time
	CompletedAt time.Time

	// Correct counts accepted keys; Misses counts rejected ones.
	Correct int
	Misses  int
}

// Elapsed is the time from session creation to completion, or to the last
// key while the phrase is unfinished.
func (st Stats) Elapsed() time.Duration {
	end := st.CompletedAt
	if end.IsZero() {
		end = st.LastKeyAt
	}
	if end.IsZero() || end.Before(st.StartedAt) {
		return 0
	}
	return end.Sub(st.StartedAt)
}

// Keystrokes is every key the session saw before completion.
func (st Stats) Keystrokes() int {
	return st.Correct + st.Misses
}

// Accuracy is the share of accepted keys in [0, 1]; 1 when nothing was typed.
func (st Stats) Accuracy() float64 {
	total := st.Keystrokes()
	if total == 0 {
		return 1
	}
	return float64(st.Correct) / float64(total)
}

// Stats returns the session's counters.
func (s *Session) Stats() Stats {
	return s.stats
}

func (s *Session) markKey() {
	now := s.clock()
	if s.stats.FirstKeyAt.IsZero() {
		s.stats.FirstKeyAt = now
	}
	s.stats.LastKeyAt = now
	if s.completed && s.stats.CompletedAt.IsZero() {
		s.stats.CompletedAt = now
	}
}
