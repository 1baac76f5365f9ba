// Package filewatch runs a callback when a single file changes on disk.
//
// The parent directory is watched rather than the file itself, so saves
// that replace the file (write to temp, rename over) are still seen.
// Bursts of events are collapsed into one call after a quiet period.
package filewatch

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period used when none is given.
const DefaultDebounce = 100 * time.Millisecond

// File watches one path.
type File struct {
	// Debounce is the quiet period before the callback runs. Set it before
	// Start; zero means DefaultDebounce.
	Debounce time.Duration

	path string
	name string
	fn   func()

	watcher *fsnotify.Watcher
	errs    chan error
	done    chan struct{}
	wg      sync.WaitGroup

	mu     sync.Mutex
	timer  *time.Timer
	closed bool
}

// New returns a stopped watcher that calls fn after path changes.
func New(path string, fn func()) *File {
	return &File{
		Debounce: DefaultDebounce,
		path:     path,
		name:     filepath.Base(path),
		fn:       fn,
		errs:     make(chan error, 1),
		done:     make(chan struct{}),
	}
}

// Start begins watching in a background goroutine. It may be called once.
func (f *File) Start() error {
	if f.watcher != nil {
		return fmt.Errorf("watcher for %s already started", f.path)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(f.path)); err != nil {
		w.Close()
		return fmt.Errorf("watch directory: %w", err)
	}
	f.watcher = w

	f.wg.Add(1)
	go f.loop()
	return nil
}

// relevant reports whether ev may have changed the watched file's content.
func (f *File) relevant(ev fsnotify.Event) bool {
	if filepath.Base(ev.Name) != f.name {
		return false
	}
	return ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

func (f *File) loop() {
	defer f.wg.Done()

	for {
		select {
		case <-f.done:
			return

		case ev, ok := <-f.watcher.Events:
			if !ok {
				return
			}
			if f.relevant(ev) {
				f.schedule()
			}

		case err, ok := <-f.watcher.Errors:
			if !ok {
				return
			}
			f.Report(err)
		}
	}
}

// schedule (re)arms the debounce timer.
func (f *File) schedule() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	if f.timer != nil {
		f.timer.Stop()
	}
	d := f.Debounce
	if d <= 0 {
		d = DefaultDebounce
	}
	f.timer = time.AfterFunc(d, f.fire)
}

func (f *File) fire() {
	f.mu.Lock()
	closed := f.closed
	f.mu.Unlock()
	if !closed {
		f.fn()
	}
}

// Errors delivers watch failures and anything passed to Report. Errors
// are dropped while one is already pending.
func (f *File) Errors() <-chan error {
	return f.errs
}

// Report queues err on Errors without blocking.
func (f *File) Report(err error) {
	select {
	case f.errs <- err:
	default:
	}
}

// Close stops watching. A pending callback is cancelled; one already
// running is not interrupted. Close is idempotent.
func (f *File) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	if f.timer != nil {
		f.timer.Stop()
	}
	f.mu.Unlock()

	close(f.done)
	var err error
	if f.watcher != nil {
		err = f.watcher.Close()
	}
	f.wg.Wait()
	return err
}
