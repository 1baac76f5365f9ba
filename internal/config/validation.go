package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/riffluv/manaby-typing-sub000/internal/logging"
	"github.com/riffluv/manaby-typing-sub000/internal/romaji"
	"github.com/riffluv/manaby-typing-sub000/internal/score"
)

// ErrInvalidConfig is matched by every ValidationErrors value.
var ErrInvalidConfig = errors.New("invalid configuration")

// ValidationError is one problem found in a configuration.
type ValidationError struct {
	Field   string
	Message string
	// Warning marks problems that do not stop the config from loading.
	Warning bool
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// IsWarning reports whether the problem is non-fatal.
func (e *ValidationError) IsWarning() bool {
	return e.Warning
}

// ValidationErrors collects every problem found by Lint.
type ValidationErrors []ValidationError

func (e *ValidationErrors) addf(field, format string, args ...any) {
	*e = append(*e, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (e *ValidationErrors) warnf(field, format string, args ...any) {
	*e = append(*e, ValidationError{Field: field, Message: fmt.Sprintf(format, args...), Warning: true})
}

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i := range e {
		msgs[i] = e[i].Error()
	}
	return strings.Join(msgs, "; ")
}

// Is makes ValidationErrors match ErrInvalidConfig.
func (e ValidationErrors) Is(target error) bool {
	return target == ErrInvalidConfig
}

func (e ValidationErrors) filter(warnings bool) ValidationErrors {
	var out ValidationErrors
	for _, v := range e {
		if v.Warning == warnings {
			out = append(out, v)
		}
	}
	return out
}

// Warnings returns the non-fatal problems.
func (e ValidationErrors) Warnings() ValidationErrors { return e.filter(true) }

// Errors returns the problems that make the config unusable.
func (e ValidationErrors) Errors() ValidationErrors { return e.filter(false) }

// HasErrors reports whether any problem is fatal.
func (e ValidationErrors) HasErrors() bool {
	return len(e.Errors()) > 0
}

// ValidateConfig returns the fatal problems in c as ValidationErrors, or nil.
func ValidateConfig(c *Config) error {
	if errs := Lint(c).Errors(); len(errs) > 0 {
		return errs
	}
	return nil
}

// Lint returns every problem in the configuration, warnings included.
func Lint(c *Config) ValidationErrors {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var errs ValidationErrors
	if c.Version < 1 || c.Version > Version {
		errs.addf("version", "unsupported version %d (current: %d)", c.Version, Version)
	}
	lintLogging(&errs, &c.Logging)
	lintRomaji(&errs, &c.Romaji)
	lintScoring(&errs, &c.Scoring)
	lintPhrases(&errs, &c.Phrases)
	return errs
}

func lintLogging(errs *ValidationErrors, l *LoggingConfig) {
	if _, err := logging.ParseLevel(l.Level); err != nil || l.Level == "" {
		errs.addf("logging.level", "invalid log level: %s (valid: debug, info, warn, error)", l.Level)
	}
	if _, err := logging.ParseFormat(l.Format); err != nil || l.Format == "" {
		errs.addf("logging.format", "invalid log format: %s (valid: text, json)", l.Format)
	}

	switch l.Output {
	case "stdout", "stderr", "discard":
	case "file", "both":
		if l.FilePath == "" {
			errs.addf("logging.file_path", "file path is required when output is %q", l.Output)
		}
	case "":
		errs.addf("logging.output", "log output is required")
	default:
		errs.addf("logging.output", "invalid log output: %s (valid: stdout, stderr, file, both, discard)", l.Output)
	}

	if l.MaxSizeMB < 1 {
		errs.addf("logging.max_size_mb", "must be at least 1, got %d", l.MaxSizeMB)
	}
	if l.MaxBackups < 0 {
		errs.addf("logging.max_backups", "cannot be negative")
	}
	if l.MaxAgeDays < 0 {
		errs.addf("logging.max_age_days", "cannot be negative")
	}
}

func lintRomaji(errs *ValidationErrors, r *RomajiConfig) {
	for unit, spellings := range r.Overrides {
		field := fmt.Sprintf("romaji.overrides[%q]", unit)

		if n := utf8.RuneCountInString(romaji.Normalize(unit)); n < 1 || n > 2 {
			errs.addf(field, "unit must be one or two kana")
			continue
		}

		seen := make(map[string]bool, len(spellings))
		for _, sp := range spellings {
			switch {
			case !isTypable(sp):
				errs.addf(field, "spelling %q is not lower-case printable keys", sp)
			case seen[sp]:
				errs.addf(field, "duplicate spelling %q", sp)
			}
			seen[sp] = true
		}
	}
}

// isTypable reports whether every rune of s is already a normalized key.
func isTypable(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if n, ok := romaji.NormalizeKey(r); !ok || n != r {
			return false
		}
	}
	return true
}

func lintScoring(errs *ValidationErrors, s *ScoringConfig) {
	if _, err := score.ParsePolicy(s.Policy); err != nil {
		errs.addf("scoring.policy", "invalid policy: %s (valid: aggregate, averaged)", s.Policy)
	}
	if len(s.Ranks) > 0 {
		if err := score.RankTable(s.Ranks).Validate(); err != nil {
			errs.addf("scoring.ranks", "%v", err)
		}
	}
}

func lintPhrases(errs *ValidationErrors, p *PhrasesConfig) {
	if p.Path != "" {
		// The phrase file may be created after the config.
		if _, err := os.Stat(expandPath(p.Path)); err != nil {
			errs.warnf("phrases.path", "phrase set not readable: %v", err)
		}
	}
	if p.Watch && p.Path == "" {
		errs.addf("phrases.watch", "watch requires a phrase set path")
	}
}
