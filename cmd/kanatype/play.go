package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"sync"
	"time"

	"github.com/riffluv/manaby-typing-sub000/internal/config"
	"github.com/riffluv/manaby-typing-sub000/internal/engine"
	"github.com/riffluv/manaby-typing-sub000/internal/metrics"
	"github.com/riffluv/manaby-typing-sub000/internal/phrases"
	"github.com/riffluv/manaby-typing-sub000/internal/typing"
)

type playOptions struct {
	phrasesPath string
	inputPath   string
	interval    time.Duration
	jsonOut     bool
	watch       bool
	metricsPath string
}

func (c *cli) cmdPlay(args []string) int {
	fs := flag.NewFlagSet("play", flag.ContinueOnError)
	fs.SetOutput(c.stderr)

	var opts playOptions
	fs.StringVar(&opts.phrasesPath, "phrases", "", "phrase set file (default: config or built-in set)")
	fs.StringVar(&opts.inputPath, "input", "", "read keystrokes from file instead of stdin")
	fs.DurationVar(&opts.interval, "interval", 0, "assume this delay between keys instead of the wall clock")
	fs.BoolVar(&opts.jsonOut, "json", false, "print the final report as JSON")
	fs.BoolVar(&opts.watch, "watch", false, "reload config and phrase set when their files change")
	fs.StringVar(&opts.metricsPath, "metrics", "", "write Prometheus metrics to this file at exit (- for stderr)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := c.loadConfig()
	if err != nil {
		return c.fail(err)
	}
	if err := c.setupLogging(cfg); err != nil {
		return c.fail(err)
	}
	defer c.log.Close()

	if opts.phrasesPath == "" {
		opts.phrasesPath = cfg.PhrasesPath()
	}
	opts.watch = opts.watch || cfg.Phrases.Watch

	set, err := c.loadPhrases(opts.phrasesPath)
	if err != nil {
		return c.fail(err)
	}

	policy, err := cfg.ScorePolicy()
	if err != nil {
		return c.fail(err)
	}

	clock := newKeyClock(opts.interval)
	eng := engine.New(engine.Options{
		Table:   cfg.Table(),
		Policy:  policy,
		Ranks:   cfg.RankTable(),
		Loop:    cfg.Phrases.Loop,
		Clock:   clock.Now,
		Logger:  c.log,
		Metrics: metrics.NewTyping(metrics.NewRegistry("kanatype", "")),
	})
	defer eng.Close()

	order := func(s *phrases.Set) []typing.Phrase {
		if !cfg.Phrases.Shuffle {
			return s.Phrases
		}
		seed := cfg.Phrases.Seed
		if seed == 0 {
			seed = rand.Uint64()
		}
		return s.Shuffled(rand.New(rand.NewPCG(seed, seed)))
	}

	if err := eng.Start(order(set)); err != nil {
		return c.fail(err)
	}

	if opts.watch {
		stop, err := c.watch(eng, opts.phrasesPath, order)
		if err != nil {
			return c.fail(err)
		}
		defer stop()
	}

	in := c.stdin
	if opts.inputPath != "" {
		f, err := os.Open(opts.inputPath)
		if err != nil {
			return c.fail(fmt.Errorf("open input: %w", err))
		}
		defer f.Close()
		in = f
	}

	events := eng.Subscribe()
	c.printPhrase(eng.Current())

	if err := c.feed(eng, events, in, clock); err != nil {
		return c.fail(err)
	}

	if !eng.Finished() {
		fmt.Fprintln(c.stdout, "input ended before the last phrase")
	}

	if opts.metricsPath != "" {
		if err := c.writeMetrics(eng.Metrics().Registry(), opts.metricsPath); err != nil {
			return c.fail(err)
		}
	}

	report := eng.Report()
	if opts.jsonOut {
		data, err := report.ToJSON()
		if err != nil {
			return c.fail(err)
		}
		fmt.Fprintln(c.stdout, string(data))
		return 0
	}

	s := report.Summary
	fmt.Fprintf(c.stdout, "phrases=%d kpm=%d accuracy=%.1f%% rank=%s policy=%s\n",
		s.Phrases, s.KPM, s.Accuracy*100, s.Rank, s.Policy)
	return 0
}

// keyClock stamps keys. With a zero interval it follows the wall clock;
// otherwise every key lands exactly interval after the previous one.
type keyClock struct {
	mu       sync.Mutex
	interval time.Duration
	t        time.Time
}

func newKeyClock(interval time.Duration) *keyClock {
	return &keyClock{interval: interval, t: time.Now()}
}

// Now returns the time of the last key, or the start time before any key.
func (k *keyClock) Now() time.Time {
	if k.interval <= 0 {
		return time.Now()
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.t
}

// Tick advances the clock by one key.
func (k *keyClock) Tick() time.Time {
	if k.interval <= 0 {
		return time.Now()
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	k.t = k.t.Add(k.interval)
	return k.t
}

func (c *cli) writeMetrics(r *metrics.Registry, path string) error {
	if path == "-" {
		return r.WritePrometheus(c.stderr)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	if err := r.WritePrometheus(f); err != nil {
		f.Close()
		return fmt.Errorf("write metrics: %w", err)
	}
	return f.Close()
}

func (c *cli) loadPhrases(path string) (*phrases.Set, error) {
	if path == "" {
		return phrases.Default(), nil
	}
	return phrases.Load(path)
}

// feed sends every rune of in to the engine until the input ends or the
// phrase list is done.
func (c *cli) feed(eng *engine.Engine, events <-chan engine.Event, in io.Reader, clock *keyClock) error {
	r := bufio.NewReader(in)

	for {
		ch, _, err := r.ReadRune()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}

		_, err = eng.OnKeyDown(engine.NewKeyAt(ch, clock.Tick()))
		switch {
		case errors.Is(err, engine.ErrKeyFiltered):
			continue
		case errors.Is(err, engine.ErrFinished):
			return nil
		case err != nil:
			return err
		}

		c.drain(eng, events)
		if eng.Finished() {
			return nil
		}
	}
}

// drain prints the events produced by the last key.
func (c *cli) drain(eng *engine.Engine, events <-chan engine.Event) {
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			c.printEvent(eng, ev)
		default:
			return
		}
	}
}

func (c *cli) printEvent(eng *engine.Engine, ev engine.Event) {
	switch ev.Type {
	case engine.EventMiss:
		fmt.Fprintf(c.stdout, "  miss %q\n", ev.Key)
	case engine.EventPhraseCompleted:
		fmt.Fprintf(c.stdout, "  done %s kpm=%d misses=%d\n", ev.Phrase.Display, ev.Result.KPM(), ev.Result.Misses)
		if !eng.Finished() {
			c.printPhrase(eng.Current())
		}
	case engine.EventPhraseSkipped:
		fmt.Fprintf(c.stdout, "  skipped %s\n", ev.Phrase.Display)
	}
}

func (c *cli) printPhrase(snap *engine.Snapshot) {
	if snap == nil || snap.Finished {
		return
	}
	fmt.Fprintf(c.stdout, "[%d/%d] %s  %s\n", snap.PhraseIndex+1, snap.PhraseCount, snap.Phrase.Display, snap.Romaji)
}

// watch keeps the engine in sync with the config and phrase files. The
// returned func stops watching.
func (c *cli) watch(eng *engine.Engine, phrasesPath string, order func(*phrases.Set) []typing.Phrase) (func(), error) {
	done := make(chan struct{})
	stops := []func(){func() { close(done) }}
	stop := func() {
		for _, s := range stops {
			s()
		}
	}

	if path := c.configPath; path != "" {
		loader := config.NewLoader(path)
		if _, err := loader.Load(); err != nil {
			stop()
			return nil, err
		}
		loader.OnChange(func(next *config.Config) {
			if policy, err := next.ScorePolicy(); err == nil {
				eng.SetPolicy(policy)
			}
			if err := eng.SetRanks(next.RankTable()); err != nil {
				c.log.Warn("ignoring rank table", "error", err)
			}
			c.log.Info("config reloaded", "path", path)
		})
		if err := loader.Watch(); err != nil {
			stop()
			return nil, err
		}
		go c.logErrors(done, loader.Errors())
		stops = append(stops, func() { loader.Close() })
	}

	if phrasesPath != "" {
		w, err := phrases.NewWatcher(phrasesPath)
		if err != nil {
			stop()
			return nil, err
		}
		w.OnChange(func(set *phrases.Set) {
			if err := eng.Start(order(set)); err != nil {
				c.log.Warn("phrase set not applied", "error", err)
				return
			}
			c.log.Info("phrase set reloaded, run restarted", "path", phrasesPath, "phrases", set.Len())
		})
		if err := w.Watch(); err != nil {
			stop()
			return nil, err
		}
		go c.logErrors(done, w.Errors())
		stops = append(stops, func() { w.Close() })
	}

	return stop, nil
}

func (c *cli) logErrors(done <-chan struct{}, errs <-chan error) {
	for {
		select {
		case <-done:
			return
		case err := <-errs:
			c.log.Warn("watch error", "error", err)
		}
	}
}
