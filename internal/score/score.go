// Package score turns per-phrase keystroke counts into a typing speed and a
// coarse rank.
package score

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Policy selects how phrase results are combined into one session metric.
type Policy int

const (
	// PolicyAggregate divides all correct keys by all elapsed minutes.
	PolicyAggregate Policy = iota
	// PolicyAveraged is the arithmetic mean of each phrase's own KPM.
	PolicyAveraged
)

func (p Policy) String() string {
	switch p {
	case PolicyAggregate:
		return "aggregate"
	case PolicyAveraged:
		return "averaged"
	default:
		return "unknown"
	}
}

// ParsePolicy parses "aggregate" or "averaged".
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "aggregate", "":
		return PolicyAggregate, nil
	case "averaged", "average", "mean":
		return PolicyAveraged, nil
	default:
		return PolicyAggregate, fmt.Errorf("unknown scoring policy: %s", s)
	}
}

// PhraseResult is what a caller reports once a phrase is completed.
type PhraseResult struct {
	Display  string        `json:"display"`
	Correct  int           `json:"correct"`
	Misses   int           `json:"misses"`
	Elapsed  time.Duration `json:"elapsed"`
	Finished time.Time     `json:"finished"`
}

// KPM is the phrase's own keys-per-minute metric.
func (r PhraseResult) KPM() int {
	return PhraseKPM(r.Correct, r.Elapsed)
}

// PhraseKPM is correct keystrokes per elapsed minute, floored. It is 0 when
// no time has elapsed.
func PhraseKPM(correct int, elapsed time.Duration) int {
	if elapsed <= 0 || correct <= 0 {
		return 0
	}
	return int(int64(correct) * int64(time.Minute) / int64(elapsed))
}

// Tracker accumulates completed phrases. It is safe for concurrent use.
type Tracker struct {
	mu      sync.RWMutex
	policy  Policy
	results []PhraseResult
}

// NewTracker creates a tracker using policy.
func NewTracker(policy Policy) *Tracker {
	return &Tracker{policy: policy}
}

// Policy returns the combination policy.
func (t *Tracker) Policy() Policy {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.policy
}

// SetPolicy switches the combination policy; recorded results are kept.
func (t *Tracker) SetPolicy(p Policy) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.policy = p
}

// Add records a completed phrase.
func (t *Tracker) Add(r PhraseResult) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.results = append(t.results, r)
}

// Count returns the number of recorded phrases.
func (t *Tracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.results)
}

// Results returns a copy of the recorded phrases.
func (t *Tracker) Results() []PhraseResult {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]PhraseResult, len(t.results))
	copy(out, t.results)
	return out
}

// Reset forgets every recorded phrase.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.results = nil
}

// KPM combines the recorded phrases according to the tracker's policy.
func (t *Tracker) KPM() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(t.results) == 0 {
		return 0
	}

	switch t.policy {
	case PolicyAveraged:
		sum := 0
		for _, r := range t.results {
			sum += r.KPM()
		}
		return sum / len(t.results)
	default:
		var correct int
		var elapsed time.Duration
		for _, r := range t.results {
			correct += r.Correct
			elapsed += r.Elapsed
		}
		return PhraseKPM(correct, elapsed)
	}
}

// Accuracy is the share of accepted keys across every phrase, in [0, 1].
func (t *Tracker) Accuracy() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var correct, total int
	for _, r := range t.results {
		correct += r.Correct
		total += r.Correct + r.Misses
	}
	if total == 0 {
		return 1
	}
	return float64(correct) / float64(total)
}

// Summary is a point-in-time view of a tracker.
type Summary struct {
	Policy   string  `json:"policy"`
	Phrases  int     `json:"phrases"`
	KPM      int     `json:"kpm"`
	Accuracy float64 `json:"accuracy"`
	Rank     string  `json:"rank"`
}

// Summarize ranks the tracker's KPM with ranks.
func (t *Tracker) Summarize(ranks RankTable) Summary {
	kpm := t.KPM()
	return Summary{
		Policy:   t.Policy().String(),
		Phrases:  t.Count(),
		KPM:      kpm,
		Accuracy: t.Accuracy(),
		Rank:     ranks.Rank(kpm),
	}
}
