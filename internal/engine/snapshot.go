package engine

import (
	"encoding/json"
	"fmt"

	"github.com/riffluv/manaby-typing-sub000/internal/score"
	"github.com/riffluv/manaby-typing-sub000/internal/typing"
)

// Snapshot is a read-only copy of the engine's position, safe to hand to a
// rendering layer.
type Snapshot struct {
	PhraseIndex int           `json:"phrase_index"`
	PhraseCount int           `json:"phrase_count"`
	Phrase      typing.Phrase `json:"phrase"`
	Romaji      string        `json:"romaji"`
	Typed       string        `json:"typed"`
	Buffer      string        `json:"buffer"`
	Remaining   string        `json:"remaining"`
	Expected    string        `json:"expected,omitempty"`
	NextKeys    []string      `json:"next_keys,omitempty"`
	Percent     int           `json:"percent"`
	Finished    bool          `json:"finished"`

	Display typing.DisplayInfo `json:"display"`
}

// Current returns a snapshot of the active phrase. It returns nil before
// Start.
func (e *Engine) Current() *Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.started || e.session == nil {
		return nil
	}

	s := e.session
	snap := &Snapshot{
		PhraseIndex: e.pos,
		PhraseCount: len(e.phrases),
		Phrase:      s.Phrase(),
		Romaji:      s.DisplayString(),
		Typed:       s.Typed(),
		Buffer:      s.Buffer(),
		Remaining:   s.Remaining(),
		Percent:     s.PercentComplete(),
		Finished:    e.finished,
		Display:     s.DisplayInfo(),
	}
	if r, ok := s.ExpectedNextKey(); ok {
		snap.Expected = string(r)
	}
	for _, r := range s.NextPossibleKeys() {
		snap.NextKeys = append(snap.NextKeys, string(r))
	}
	return snap
}

// Report is the exportable outcome of a run.
type Report struct {
	Summary score.Summary        `json:"summary"`
	Results []score.PhraseResult `json:"results"`
}

// Report returns the summary together with every phrase result.
func (e *Engine) Report() *Report {
	return &Report{
		Summary: e.Score(),
		Results: e.Results(),
	}
}

// ToJSON returns the report as indented JSON.
func (r *Report) ToJSON() ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}
	return data, nil
}
