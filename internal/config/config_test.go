package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riffluv/manaby-typing-sub000/internal/logging"
	"github.com/riffluv/manaby-typing-sub000/internal/score"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

// =============================================================================
// Defaults
// =============================================================================

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, Version, cfg.Version)
	assert.Equal(t, "aggregate", cfg.Scoring.Policy)
	assert.Equal(t, score.DefaultRankTable(), cfg.RankTable())
	assert.True(t, strings.HasSuffix(cfg.Logging.FilePath, "kanatype.log"))

	policy, err := cfg.ScorePolicy()
	require.NoError(t, err)
	assert.Equal(t, score.PolicyAggregate, policy)
}

func TestConfigPath(t *testing.T) {
	t.Setenv("KANATYPE_CONFIG_DIR", "/tmp/kanatype-test")
	assert.Equal(t, filepath.Join("/tmp/kanatype-test", "config.toml"), ConfigPath())
}

func TestFindConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("KANATYPE_CONFIG_DIR", dir)
	t.Chdir(t.TempDir())

	assert.Equal(t, "", FindConfigFile())

	path := writeConfig(t, dir, "config.yaml", "version: 1\n")
	assert.Equal(t, path, FindConfigFile())

	writeConfig(t, ".", "kanatype.toml", "version = 1\n")
	assert.Equal(t, filepath.Join(".", "kanatype.toml"), FindConfigFile())
}

// =============================================================================
// Loading
// =============================================================================

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Scoring, cfg.Scoring)
}

func TestLoad_Formats(t *testing.T) {
	dir := t.TempDir()

	files := map[string]string{
		"config.toml": `
version = 1

[logging]
level = "debug"

[romaji.overrides]
"し" = ["si", "shi"]

[scoring]
policy = "averaged"

[[scoring.ranks]]
min = 0
label = "slow"

[[scoring.ranks]]
min = 120
label = "fast"

[phrases]
loop = true
`,
		"config.yaml": `
version: 1
logging:
  level: debug
romaji:
  overrides:
    し: [si, shi]
scoring:
  policy: averaged
  ranks:
    - {min: 0, label: slow}
    - {min: 120, label: fast}
phrases:
  loop: true
`,
		"config.json": `{
  "version": 1,
  "logging": {"level": "debug"},
  "romaji": {"overrides": {"し": ["si", "shi"]}},
  "scoring": {
    "policy": "averaged",
    "ranks": [{"min": 0, "label": "slow"}, {"min": 120, "label": "fast"}]
  },
  "phrases": {"loop": true}
}`,
	}

	for name, content := range files {
		t.Run(name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, dir, name, content))
			require.NoError(t, err)
			require.NoError(t, cfg.Validate())

			assert.Equal(t, "debug", cfg.Logging.Level)
			// Unset fields keep their defaults.
			assert.Equal(t, "text", cfg.Logging.Format)
			assert.True(t, cfg.Phrases.Loop)

			policy, err := cfg.ScorePolicy()
			require.NoError(t, err)
			assert.Equal(t, score.PolicyAveraged, policy)

			ranks := cfg.RankTable()
			assert.Equal(t, "fast", ranks.Rank(130))
			assert.Equal(t, "slow", ranks.Rank(119))

			spellings, ok := cfg.Table().Lookup("し")
			require.True(t, ok)
			assert.Equal(t, []string{"si", "shi"}, spellings)
		})
	}
}

func TestLoad_DecodeError(t *testing.T) {
	_, err := Load(writeConfig(t, t.TempDir(), "config.toml", "version = "))
	assert.ErrorContains(t, err, "decode TOML")

	_, err = Load(writeConfig(t, t.TempDir(), "config.json", "{"))
	assert.ErrorContains(t, err, "decode JSON")
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("KANATYPE_LOG_LEVEL", "warn")
	t.Setenv("KANATYPE_LOG_OUTPUT", "discard")
	t.Setenv("KANATYPE_SCORING_POLICY", "averaged")
	t.Setenv("KANATYPE_PHRASES_PATH", "/srv/phrases.toml")
	t.Setenv("KANATYPE_PHRASES_LOOP", "true")
	t.Setenv("KANATYPE_PHRASES_SHUFFLE", "not-a-bool")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "discard", cfg.Logging.Output)
	assert.Equal(t, "averaged", cfg.Scoring.Policy)
	assert.Equal(t, "/srv/phrases.toml", cfg.Phrases.Path)
	assert.True(t, cfg.Phrases.Loop)
	assert.False(t, cfg.Phrases.Shuffle)
}

func TestClone(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Romaji.Overrides["し"] = []string{"si"}

	clone := cfg.Clone()
	clone.Romaji.Overrides["し"][0] = "shi"
	clone.Scoring.Ranks[0].Label = "changed"

	assert.Equal(t, "si", cfg.Romaji.Overrides["し"][0])
	assert.Equal(t, "E", cfg.Scoring.Ranks[0].Label)
}

func TestLoggerConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Level = "debug"
	cfg.Logging.Format = "json"
	cfg.Logging.FilePath = "~/logs/k.log"

	lc, err := cfg.LoggerConfig()
	require.NoError(t, err)
	assert.Equal(t, logging.LevelDebug, lc.Level)
	assert.Equal(t, logging.FormatJSON, lc.Format)
	assert.Equal(t, int64(10), lc.MaxSize)
	assert.False(t, strings.HasPrefix(lc.FilePath, "~"))

	cfg.Logging.Level = "loud"
	_, err = cfg.LoggerConfig()
	assert.Error(t, err)
}

// =============================================================================
// Validation
// =============================================================================

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"version", func(c *Config) { c.Version = 9 }, "version"},
		{"level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"output", func(c *Config) { c.Logging.Output = "syslog" }, "logging.output"},
		{"file path", func(c *Config) { c.Logging.Output = "file"; c.Logging.FilePath = "" }, "logging.file_path"},
		{"max size", func(c *Config) { c.Logging.MaxSizeMB = 0 }, "logging.max_size_mb"},
		{"policy", func(c *Config) { c.Scoring.Policy = "median" }, "scoring.policy"},
		{"ranks", func(c *Config) { c.Scoring.Ranks = []score.Threshold{{Min: 10, Label: "x"}} }, "scoring.ranks"},
		{"override unit", func(c *Config) { c.Romaji.Overrides["しゃしん"] = []string{"shashin"} }, `romaji.overrides["しゃしん"]`},
		{"override spelling", func(c *Config) { c.Romaji.Overrides["し"] = []string{"Si"} }, `romaji.overrides["し"]`},
		{"override duplicate", func(c *Config) { c.Romaji.Overrides["し"] = []string{"si", "si"} }, `romaji.overrides["し"]`},
		{"watch without path", func(c *Config) { c.Phrases.Watch = true }, "phrases.watch"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig))

			var verrs ValidationErrors
			require.True(t, errors.As(err, &verrs))
			require.Len(t, verrs, 1)
			assert.Equal(t, tt.field, verrs[0].Field)
		})
	}
}

func TestValidateConfig_Aggregates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Level = "loud"
	cfg.Scoring.Policy = "median"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logging.level")
	assert.Contains(t, err.Error(), "; ")
	assert.Contains(t, err.Error(), "scoring.policy")
}

func TestLint_MissingPhraseFileIsWarning(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Phrases.Path = filepath.Join(t.TempDir(), "missing.toml")

	assert.NoError(t, cfg.Validate())

	issues := Lint(cfg)
	require.Len(t, issues.Warnings(), 1)
	assert.Equal(t, "phrases.path", issues.Warnings()[0].Field)
	assert.False(t, issues.HasErrors())
}

// =============================================================================
// Saving
// =============================================================================

func TestSaveConfig_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{"out.toml", "out.json", "out.yaml"} {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Scoring.Policy = "averaged"
			cfg.Romaji.Overrides["ふ"] = []string{"hu", "fu"}
			cfg.Phrases.Seed = 42

			path := filepath.Join(dir, "nested", name)
			require.NoError(t, SaveConfig(cfg, path))

			loaded, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, "averaged", loaded.Scoring.Policy)
			assert.Equal(t, []string{"hu", "fu"}, loaded.Romaji.Overrides["ふ"])
			assert.Equal(t, uint64(42), loaded.Phrases.Seed)
			assert.Equal(t, cfg.RankTable(), loaded.RankTable())
		})
	}
}

func TestLoadOrCreate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	_, created, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.True(t, created)
	assert.FileExists(t, path)

	_, created, err = LoadOrCreate(path)
	require.NoError(t, err)
	assert.False(t, created)
}

// =============================================================================
// Loader
// =============================================================================

func TestLoader_Reload(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.toml", "version = 1\n[scoring]\npolicy = \"aggregate\"\n")

	l := NewLoader(path)
	l.file.Debounce = 10 * time.Millisecond
	defer l.Close()

	cfg, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, "aggregate", cfg.Scoring.Policy)
	assert.Equal(t, path, l.Path())

	changed := make(chan *Config, 1)
	l.OnChange(func(c *Config) {
		select {
		case changed <- c:
		default:
		}
	})
	require.NoError(t, l.Watch())

	writeConfig(t, dir, "config.toml", "version = 1\n[scoring]\npolicy = \"averaged\"\n")

	select {
	case c := <-changed:
		assert.Equal(t, "averaged", c.Scoring.Policy)
		assert.Equal(t, "averaged", l.Config().Scoring.Policy)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}

func TestLoader_InvalidReloadKeepsConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.toml", "version = 1\n")

	l := NewLoader(path)
	l.file.Debounce = 10 * time.Millisecond
	defer l.Close()

	_, err := l.Load()
	require.NoError(t, err)
	require.NoError(t, l.Watch())

	writeConfig(t, dir, "config.toml", "version = 1\n[scoring]\npolicy = \"median\"\n")

	select {
	case err := <-l.Errors():
		assert.ErrorIs(t, err, ErrInvalidConfig)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload error")
	}
	assert.Equal(t, "aggregate", l.Config().Scoring.Policy)
}

func TestLoader_LoadRejectsInvalid(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.toml", "[logging]\nlevel = \"loud\"\n")

	_, err := NewLoader(path).Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
