package metrics

import "time"

// Typing holds the metrics recorded by a typing engine.
type Typing struct {
	registry *Registry

	Keystrokes       *Counter
	Misses           *Counter
	FilteredKeys     *Counter
	PhrasesCompleted *Counter
	PhrasesSkipped   *Counter
	Runs             *Counter

	ActivePhrase *Gauge

	KeyInterval *Histogram
	PhraseSpeed *Histogram

	last time.Time
}

// NewTyping registers the typing metrics on registry. A nil registry gets
// a fresh one under the "kanatype" namespace.
func NewTyping(registry *Registry) *Typing {
	if registry == nil {
		registry = NewRegistry("kanatype", "")
	}
	return &Typing{
		registry: registry,

		Keystrokes:       registry.RegisterCounter("keystrokes_total", "Keys accepted by the matcher", nil),
		Misses:           registry.RegisterCounter("misses_total", "Keys rejected by the matcher", nil),
		FilteredKeys:     registry.RegisterCounter("filtered_keys_total", "Modifier chords and non-printable keys dropped before matching", nil),
		PhrasesCompleted: registry.RegisterCounter("phrases_completed_total", "Phrases typed to the end", nil),
		PhrasesSkipped:   registry.RegisterCounter("phrases_skipped_total", "Phrases abandoned without a score", nil),
		Runs:             registry.RegisterCounter("runs_total", "Phrase lists started", nil),

		ActivePhrase: registry.RegisterGauge("active_phrase_index", "Index of the phrase being typed", nil),

		KeyInterval: registry.RegisterHistogram("key_interval_seconds", "Time between consecutive matched or missed keys", nil, IntervalBuckets),
		PhraseSpeed: registry.RegisterHistogram("phrase_kpm", "Keys per minute of each completed phrase", nil, SpeedBuckets),
	}
}

// Registry returns the registry the metrics live in.
func (t *Typing) Registry() *Registry {
	return t.registry
}

// Key records one matched or missed key typed at ts. Callers serialize
// calls.
func (t *Typing) Key(ts time.Time, miss bool) {
	if miss {
		t.Misses.Inc()
	} else {
		t.Keystrokes.Inc()
	}
	if !t.last.IsZero() && ts.After(t.last) {
		t.KeyInterval.ObserveDuration(ts.Sub(t.last))
	}
	t.last = ts
}

// Phrase records a completed phrase.
func (t *Typing) Phrase(kpm int) {
	t.PhrasesCompleted.Inc()
	t.PhraseSpeed.Observe(float64(kpm))
}

// Run records the start of a phrase list.
func (t *Typing) Run() {
	t.Runs.Inc()
	t.last = time.Time{}
	t.ActivePhrase.Set(0)
}
