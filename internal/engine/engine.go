// Package engine drives typing sessions over a list of phrases.
//
// The typing package matches one phrase and performs no locking. Engine is
// the caller around it: it serializes access with a mutex, filters keys that
// are not text, creates a fresh Session for every phrase, forwards finished
// phrases to a score.Tracker, and publishes events to subscribers.
//
// Typical use:
//
//	eng := engine.New(engine.Options{Policy: score.PolicyAggregate})
//	if err := eng.Start(phrases); err != nil {
//		return err
//	}
//	for key := range keys {
//		res, err := eng.OnKeyDown(engine.NewKey(key))
//		...
//	}
//	summary := eng.Score()
package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/riffluv/manaby-typing-sub000/internal/logging"
	"github.com/riffluv/manaby-typing-sub000/internal/metrics"
	"github.com/riffluv/manaby-typing-sub000/internal/romaji"
	"github.com/riffluv/manaby-typing-sub000/internal/score"
	"github.com/riffluv/manaby-typing-sub000/internal/typing"
)

var (
	// ErrNotStarted is returned before Start succeeds.
	ErrNotStarted = errors.New("engine: not started")
	// ErrFinished is returned once every phrase has been typed.
	ErrFinished = errors.New("engine: all phrases completed")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("engine: closed")
	// ErrKeyFiltered is returned for modifier chords and keys that produce no
	// printable character. The active session is not touched.
	ErrKeyFiltered = errors.New("engine: key filtered")
	// ErrNoPhrases is returned by Start for an empty phrase list.
	ErrNoPhrases = errors.New("engine: no phrases")
)

// Options configures an Engine.
type Options struct {
	// Table overrides the romaji table. Nil uses the default table.
	Table romaji.Table

	// Policy selects how phrase speeds are combined.
	Policy score.Policy

	// Ranks maps the combined speed to a label. Nil uses the default table.
	Ranks score.RankTable

	// Loop restarts from the first phrase instead of finishing.
	Loop bool

	// Clock is used when a key carries no timestamp. Defaults to time.Now.
	Clock func() time.Time

	// Logger receives debug traces. Defaults to logging.Default().
	Logger *logging.Logger

	// Metrics counts keys and phrases. Defaults to a private registry.
	Metrics *metrics.Typing
}

// Engine serializes keystrokes into the active typing session.
type Engine struct {
	mu   sync.Mutex
	opts Options
	log  *logging.Logger

	phrases []typing.Phrase
	pos     int
	session *typing.Session
	tracker *score.Tracker

	// now is the time of the event being processed; sessions read it as
	// their clock.
	now time.Time

	started   bool
	finished  bool
	closed    bool
	listeners []chan Event
}

// New creates an idle engine.
func New(opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Ranks == nil {
		opts.Ranks = score.DefaultRankTable()
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewTyping(nil)
	}
	return &Engine{
		opts:    opts,
		log:     opts.Logger.WithComponent("engine"),
		tracker: score.NewTracker(opts.Policy),
	}
}

// Start checks that every phrase compiles, resets the score and begins the
// first phrase. On error the engine keeps its previous state.
func (e *Engine) Start(phrases []typing.Phrase) error {
	if len(phrases) == 0 {
		return ErrNoPhrases
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}

	var errs []error
	for i, p := range phrases {
		if _, err := typing.NewSession(p, typing.WithTable(e.opts.Table)); err != nil {
			errs = append(errs, fmt.Errorf("phrase %d: %w", i, err))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	e.phrases = append([]typing.Phrase(nil), phrases...)
	e.tracker.Reset()
	e.started = true
	e.finished = false
	e.now = e.opts.Clock()
	e.opts.Metrics.Run()

	if err := e.begin(0); err != nil {
		return err
	}

	e.log.Info("engine started", "phrases", len(e.phrases), "policy", e.tracker.Policy().String())
	return nil
}

// begin replaces the session with a new one for phrase i.
func (e *Engine) begin(i int) error {
	s, err := typing.NewSession(e.phrases[i],
		typing.WithTable(e.opts.Table),
		typing.WithClock(func() time.Time { return e.now }),
	)
	if err != nil {
		return err
	}
	e.pos = i
	e.session = s
	e.opts.Metrics.ActivePhrase.Set(int64(i))
	e.log.Debug("phrase started", "index", i, "display", s.Phrase().Display, "romaji", s.DisplayString())
	return nil
}

// advance moves past the current phrase, finishing or looping at the end.
func (e *Engine) advance() {
	next := e.pos + 1
	if next >= len(e.phrases) {
		if !e.opts.Loop {
			e.finish()
			return
		}
		next = 0
	}
	// Every phrase compiled in Start with the same table.
	if err := e.begin(next); err != nil {
		e.log.Error("cannot start phrase", "index", next, "error", err)
		e.finish()
	}
}

func (e *Engine) finish() {
	e.finished = true
	summary := e.tracker.Summarize(e.opts.Ranks)
	e.log.Info("all phrases completed", "kpm", summary.KPM, "rank", summary.Rank, "accuracy", summary.Accuracy)
	e.notify(Event{
		Type:        EventAllCompleted,
		PhraseIndex: e.pos,
		Timestamp:   e.now,
		Summary:     &summary,
	})
}

// OnKeyDown feeds a key to the active phrase. Filtered keys return
// ErrKeyFiltered and do not count as misses.
func (e *Engine) OnKeyDown(key Key) (typing.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch {
	case e.closed:
		return typing.Result{}, ErrClosed
	case !e.started:
		return typing.Result{}, ErrNotStarted
	case e.finished:
		return typing.Result{Status: typing.StatusAlreadyCompleted}, ErrFinished
	}

	r, ok := key.normalize()
	if !ok {
		e.opts.Metrics.FilteredKeys.Inc()
		e.log.Debug("key filtered", "char", key.Char, "code", key.Code, "modifiers", uint8(key.Modifiers))
		return typing.Result{}, ErrKeyFiltered
	}

	e.now = key.Timestamp
	if e.now.IsZero() {
		e.now = e.opts.Clock()
	}

	res := e.session.ProcessKey(r)
	e.opts.Metrics.Key(e.now, res.Status == typing.StatusNoMatch)
	e.log.Debug("key", "key", string(r), "status", res.Status.String(), "buffer", e.session.Buffer(), "index", e.session.Index())

	ev := Event{
		PhraseIndex: e.pos,
		Phrase:      e.session.Phrase(),
		Key:         r,
		Status:      res.Status,
		Timestamp:   e.now,
	}

	switch res.Status {
	case typing.StatusNoMatch:
		ev.Type = EventMiss
		e.notify(ev)
	case typing.StatusUnitCompleted:
		ev.Type = EventUnitCompleted
		e.notify(ev)
	case typing.StatusAllCompleted:
		result := e.record()
		ev.Type = EventPhraseCompleted
		ev.Result = &result
		e.notify(ev)
		e.advance()
	}

	return res, nil
}

// record forwards the finished session to the tracker.
func (e *Engine) record() score.PhraseResult {
	st := e.session.Stats()
	result := score.PhraseResult{
		Display:  e.session.Phrase().Display,
		Correct:  st.Correct,
		Misses:   st.Misses,
		Elapsed:  st.Elapsed(),
		Finished: st.CompletedAt,
	}
	e.tracker.Add(result)
	e.opts.Metrics.Phrase(result.KPM())
	e.log.Info("phrase completed",
		"index", e.pos,
		"display", result.Display,
		"typed", e.session.Typed(),
		"kpm", result.KPM(),
		"misses", result.Misses,
	)
	return result
}

// Skip abandons the active phrase without scoring it.
func (e *Engine) Skip() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch {
	case e.closed:
		return ErrClosed
	case !e.started:
		return ErrNotStarted
	case e.finished:
		return ErrFinished
	}

	e.now = e.opts.Clock()
	e.notify(Event{
		Type:        EventPhraseSkipped,
		PhraseIndex: e.pos,
		Phrase:      e.session.Phrase(),
		Timestamp:   e.now,
	})
	e.opts.Metrics.PhrasesSkipped.Inc()
	e.log.Debug("phrase skipped", "index", e.pos)
	e.advance()
	return nil
}

// Finished reports whether the phrase list is exhausted.
func (e *Engine) Finished() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.finished
}

// SetPolicy switches how phrase speeds are combined.
func (e *Engine) SetPolicy(p score.Policy) {
	e.tracker.SetPolicy(p)
}

// SetRanks replaces the rank table after validating it.
func (e *Engine) SetRanks(ranks score.RankTable) error {
	if err := ranks.Validate(); err != nil {
		return fmt.Errorf("invalid rank table: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.opts.Ranks = append(score.RankTable(nil), ranks...)
	return nil
}

// Score summarizes every completed phrase so far.
func (e *Engine) Score() score.Summary {
	e.mu.Lock()
	ranks := e.opts.Ranks
	e.mu.Unlock()
	return e.tracker.Summarize(ranks)
}

// Metrics returns the engine's metric set.
func (e *Engine) Metrics() *metrics.Typing {
	return e.opts.Metrics
}

// Results returns the completed phrases in order.
func (e *Engine) Results() []score.PhraseResult {
	return e.tracker.Results()
}
