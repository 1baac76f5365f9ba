// Package logging sets up log/slog for kanatype: text or JSON records, a
// component attribute per subsystem, redaction of credential-like
// attributes, and an optional size-rotated log file.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
)

type Level = slog.Level

const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// Format selects the slog handler.
type Format int

const (
	FormatText Format = iota
	FormatJSON
)

// Config holds the logging configuration.
type Config struct {
	Level  Level
	Format Format

	// Output is "stdout", "stderr", "file", "both" (stderr and file) or
	// "discard".
	Output string

	// FilePath is the log file used when Output includes a file.
	FilePath string

	// MaxSize is the size in megabytes at which the file is rotated.
	MaxSize int64
	// MaxAge is the age in days after which rotated files are removed.
	MaxAge int
	// MaxBackups is the number of rotated files kept.
	MaxBackups int
	// Compress gzips rotated files.
	Compress bool

	AddSource bool

	// Component is attached to every record as the "component" attribute.
	Component string

	// Writer overrides Output when set.
	Writer io.Writer
}

// DefaultConfig logs info and above as text to stderr.
func DefaultConfig() *Config {
	return &Config{
		Level:      LevelInfo,
		Format:     FormatText,
		Output:     "stderr",
		FilePath:   DefaultLogPath(),
		MaxSize:    10,
		MaxAge:     14,
		MaxBackups: 3,
		Compress:   true,
		Component:  "kanatype",
	}
}

// DefaultLogPath returns kanatype.log in the platform's per-user state
// directory: ~/Library/Logs/kanatype on macOS, %LOCALAPPDATA%\kanatype\logs
// on Windows and $XDG_STATE_HOME/kanatype (or ~/.local/state/kanatype)
// elsewhere.
func DefaultLogPath() string {
	home, _ := os.UserHomeDir()

	var dir string
	switch runtime.GOOS {
	case "darwin":
		dir = filepath.Join(home, "Library", "Logs", "kanatype")
	case "windows":
		base := os.Getenv("LOCALAPPDATA")
		if base == "" {
			base = os.Getenv("APPDATA")
		}
		dir = filepath.Join(base, "kanatype", "logs")
	default:
		base := os.Getenv("XDG_STATE_HOME")
		if base == "" {
			base = filepath.Join(home, ".local", "state")
		}
		dir = filepath.Join(base, "kanatype")
	}
	return filepath.Join(dir, "kanatype.log")
}

// Logger is a slog.Logger that may own a rotating log file.
type Logger struct {
	*slog.Logger
	config  *Config
	rotator *FileRotator
	mu      sync.Mutex

	// base is the handler before the component attribute was attached.
	base slog.Handler
}

var (
	defaultMu     sync.RWMutex
	defaultLogger *Logger
)

// Default returns the process-wide logger, creating one from DefaultConfig
// on first use.
func Default() *Logger {
	defaultMu.RLock()
	l := defaultLogger
	defaultMu.RUnlock()
	if l != nil {
		return l
	}

	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLogger == nil {
		if l, err := New(DefaultConfig()); err == nil {
			defaultLogger = l
		} else {
			defaultLogger = &Logger{Logger: slog.Default(), config: DefaultConfig()}
		}
	}
	return defaultLogger
}

// SetDefault installs l as the process-wide logger and as slog's default.
func SetDefault(l *Logger) {
	defaultMu.Lock()
	defaultLogger = l
	defaultMu.Unlock()
	slog.SetDefault(l.Logger)
}

// Discard returns a logger that drops every record.
func Discard() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
		config: &Config{Level: LevelError, Output: "discard"},
		base:   slog.DiscardHandler,
	}
}

// New builds a logger from cfg; nil means DefaultConfig.
func New(cfg *Config) (*Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	l := &Logger{config: cfg}
	w, err := l.openOutput()
	if err != nil {
		return nil, fmt.Errorf("open log output: %w", err)
	}

	l.base = newHandler(w, cfg)
	l.Logger = slog.New(withComponent(l.base, cfg.Component))
	return l, nil
}

func withComponent(h slog.Handler, name string) slog.Handler {
	if name == "" {
		return h
	}
	return h.WithAttrs([]slog.Attr{slog.String("component", name)})
}

func newHandler(w io.Writer, cfg *Config) slog.Handler {
	opts := &slog.HandlerOptions{
		Level:       cfg.Level,
		AddSource:   cfg.AddSource,
		ReplaceAttr: redactAttr,
	}
	if cfg.Format == FormatJSON {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

func (l *Logger) openOutput() (io.Writer, error) {
	if l.config.Writer != nil {
		return l.config.Writer, nil
	}

	out := strings.ToLower(l.config.Output)
	switch out {
	case "stdout":
		return os.Stdout, nil
	case "discard":
		return io.Discard, nil
	case "file", "both":
		r, err := NewFileRotator(l.config)
		if err != nil {
			return nil, err
		}
		l.rotator = r
		if out == "both" {
			return io.MultiWriter(os.Stderr, r), nil
		}
		return r, nil
	default:
		return os.Stderr, nil
	}
}

// sensitiveKeys are substrings of attribute keys whose values are never
// written.
var sensitiveKeys = []string{
	"password", "secret", "token", "credential",
	"private", "auth", "cookie", "api_key", "apikey",
}

func redactAttr(_ []string, a slog.Attr) slog.Attr {
	if shouldRedact(a.Key) {
		a.Value = slog.StringValue("[REDACTED]")
	}
	return a
}

func shouldRedact(key string) bool {
	key = strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(key, s) {
			return true
		}
	}
	return false
}

// WithComponent returns a child logger whose component attribute is name
// in place of the parent's. The child shares the parent's file; close the
// parent only.
func (l *Logger) WithComponent(name string) *Logger {
	child := &Logger{config: l.config, rotator: l.rotator, base: l.base}
	if l.base == nil {
		child.Logger = l.Logger.With(slog.String("component", name))
	} else {
		child.Logger = slog.New(withComponent(l.base, name))
	}
	return child
}

// Close closes the log file, if any.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.rotator == nil {
		return nil
	}
	return l.rotator.Close()
}

// ParseLevel accepts the slog level names in any case, optionally with an
// offset ("debug-2"), plus "warning" as an alias for warn.
func ParseLevel(s string) (Level, error) {
	if strings.EqualFold(s, "warning") {
		return LevelWarn, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}

// LevelString is the lower-case form ParseLevel accepts.
func LevelString(level Level) string {
	return strings.ToLower(level.String())
}

// ParseFormat parses "text" or "json"; empty means text.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "text", "":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	default:
		return FormatText, fmt.Errorf("unknown log format %q", s)
	}
}
