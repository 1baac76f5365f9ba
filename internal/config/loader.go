package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/riffluv/manaby-typing-sub000/internal/filewatch"
)

// Loader owns the live configuration. After Watch, edits to the file are
// validated and swapped in; a broken edit leaves the last good config in
// place and is reported on Errors.
type Loader struct {
	path string
	file *filewatch.File

	mu        sync.RWMutex
	current   *Config
	listeners []func(*Config)
}

// NewLoader returns a loader for path, or for ConfigPath when path is empty.
func NewLoader(path string) *Loader {
	if path == "" {
		path = ConfigPath()
	}
	l := &Loader{path: path}
	l.file = filewatch.New(path, l.reload)
	return l
}

// Path returns the file the loader reads.
func (l *Loader) Path() string {
	return l.path
}

// Load reads, validates and stores the configuration.
func (l *Loader) Load() (*Config, error) {
	cfg, err := l.read()
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.current = cfg
	l.mu.Unlock()
	return cfg, nil
}

func (l *Loader) read() (*Config, error) {
	cfg, err := loadConfigFromFile(l.path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return cfg, nil
}

// Config returns the last configuration that loaded cleanly.
func (l *Loader) Config() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// OnChange registers cb to run with every config accepted by a reload.
func (l *Loader) OnChange(cb func(*Config)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listeners = append(l.listeners, cb)
}

// Watch starts reloading the file when it changes.
func (l *Loader) Watch() error {
	return l.file.Start()
}

// Errors reports watch failures and rejected reloads.
func (l *Loader) Errors() <-chan error {
	return l.file.Errors()
}

func (l *Loader) reload() {
	cfg, err := l.read()
	if err != nil {
		l.file.Report(fmt.Errorf("reload config: %w", err))
		return
	}

	l.mu.Lock()
	l.current = cfg
	listeners := slices.Clone(l.listeners)
	l.mu.Unlock()

	for _, cb := range listeners {
		cb(cfg)
	}
}

// Close stops watching.
func (l *Loader) Close() error {
	return l.file.Close()
}

// loadConfigFromFile parses path by extension. A missing file yields the
// defaults.
func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return DefaultConfig(), nil
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data, filepath.Ext(path))
}

// LoadOrCreate loads path, first writing the defaults there if the file is
// missing. The bool reports whether the file was created.
func LoadOrCreate(path string) (*Config, bool, error) {
	if path == "" {
		path = ConfigPath()
	}

	_, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg := DefaultConfig()
		if err := SaveConfig(cfg, path); err != nil {
			return nil, false, fmt.Errorf("create default config: %w", err)
		}
		return cfg, true, nil
	}

	cfg, err := NewLoader(path).Load()
	return cfg, false, err
}
