package phrases

import (
	"fmt"
	"slices"
	"sync"

	"github.com/riffluv/manaby-typing-sub000/internal/filewatch"
)

// Watcher keeps a phrase set in sync with its file. A reload that fails to
// parse or validate keeps the previous set and is reported on Errors.
type Watcher struct {
	path string
	file *filewatch.File

	mu        sync.RWMutex
	set       *Set
	listeners []func(*Set)
}

// NewWatcher loads path once and returns a watcher that is not yet running.
func NewWatcher(path string) (*Watcher, error) {
	set, err := Load(path)
	if err != nil {
		return nil, err
	}

	w := &Watcher{path: path, set: set}
	w.file = filewatch.New(path, w.reload)
	return w, nil
}

// Set returns the most recently loaded set.
func (w *Watcher) Set() *Set {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.set
}

// OnChange registers a callback run after each successful reload.
func (w *Watcher) OnChange(cb func(*Set)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners = append(w.listeners, cb)
}

// Errors returns a channel for receiving reload errors.
func (w *Watcher) Errors() <-chan error {
	return w.file.Errors()
}

// Watch starts watching the file.
func (w *Watcher) Watch() error {
	return w.file.Start()
}

func (w *Watcher) reload() {
	set, err := Load(w.path)
	if err != nil {
		w.file.Report(fmt.Errorf("reload phrase set: %w", err))
		return
	}

	w.mu.Lock()
	w.set = set
	listeners := slices.Clone(w.listeners)
	w.mu.Unlock()

	for _, cb := range listeners {
		cb(set)
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.file.Close()
}
