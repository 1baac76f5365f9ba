package engine

import (
	"time"

	"github.com/riffluv/manaby-typing-sub000/internal/score"
	"github.com/riffluv/manaby-typing-sub000/internal/typing"
)

// EventType identifies what happened in the engine.
type EventType int

const (
	// EventUnitCompleted is sent when a key committed one or more units.
	EventUnitCompleted EventType = iota
	// EventMiss is sent when a key was rejected.
	EventMiss
	// EventPhraseCompleted is sent when the last unit of a phrase was typed.
	EventPhraseCompleted
	// EventPhraseSkipped is sent when a phrase was abandoned with Skip.
	EventPhraseSkipped
	// EventAllCompleted is sent once the phrase list is exhausted.
	EventAllCompleted
)

func (t EventType) String() string {
	switch t {
	case EventUnitCompleted:
		return "unit_completed"
	case EventMiss:
		return "miss"
	case EventPhraseCompleted:
		return "phrase_completed"
	case EventPhraseSkipped:
		return "phrase_skipped"
	case EventAllCompleted:
		return "all_completed"
	default:
		return "unknown"
	}
}

// Event is delivered to subscribers. Rendering and sound layers react to
// these instead of polling.
type Event struct {
	Type        EventType
	PhraseIndex int
	Phrase      typing.Phrase
	Key         rune
	Status      typing.Status
	Timestamp   time.Time

	// Result is set for EventPhraseCompleted.
	Result *score.PhraseResult

	// Summary is set for EventAllCompleted.
	Summary *score.Summary
}

// Subscribe returns a channel that receives engine events. Events are
// dropped for a subscriber whose buffer is full.
func (e *Engine) Subscribe() <-chan Event {
	e.mu.Lock()
	defer e.mu.Unlock()

	ch := make(chan Event, 64)
	if e.closed {
		close(ch)
		return ch
	}
	e.listeners = append(e.listeners, ch)
	return ch
}

// notify must be called with e.mu held.
func (e *Engine) notify(ev Event) {
	for _, ch := range e.listeners {
		select {
		case ch <- ev:
		default:
			// Channel full, skip
		}
	}
}

// Close closes every subscriber channel. The engine rejects further keys.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	e.closed = true
	for _, ch := range e.listeners {
		close(ch)
	}
	e.listeners = nil
}
