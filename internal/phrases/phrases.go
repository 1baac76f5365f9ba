// Package phrases loads the phrase sets a typing run draws from.
//
// A set is a TOML, YAML or JSON document with a list of display/phonetic
// pairs. Every document is checked against an embedded JSON Schema before it
// is decoded, so malformed files fail with the location of each problem.
package phrases

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/riffluv/manaby-typing-sub000/internal/romaji"
	"github.com/riffluv/manaby-typing-sub000/internal/schemavalidation"
	"github.com/riffluv/manaby-typing-sub000/internal/typing"
)

//go:embed phrases.schema.json
var schemaData []byte

//go:embed default.toml
var defaultData []byte

const schemaURL = "phrases-v1.schema.json"

var (
	schemaOnce sync.Once
	schema     *schemavalidation.Schema
)

func phraseSchema() *schemavalidation.Schema {
	schemaOnce.Do(func() {
		schema = schemavalidation.MustCompile(schemaURL, schemaData)
	})
	return schema
}

// Format is a phrase file encoding.
type Format int

const (
	FormatTOML Format = iota
	FormatYAML
	FormatJSON
)

func (f Format) String() string {
	switch f {
	case FormatTOML:
		return "toml"
	case FormatYAML:
		return "yaml"
	case FormatJSON:
		return "json"
	default:
		return "unknown"
	}
}

// FormatFromPath picks the format from the file extension. Unknown
// extensions are read as TOML.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatTOML
	}
}

// Set is a named list of phrases.
type Set struct {
	Name        string          `json:"name" toml:"name" yaml:"name"`
	Description string          `json:"description,omitempty" toml:"description" yaml:"description,omitempty"`
	Phrases     []typing.Phrase `json:"phrases" toml:"phrases" yaml:"phrases"`
}

// Load reads and validates the phrase set at path. A set without a name is
// named after its file.
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read phrase set: %w", err)
	}

	set, err := Parse(data, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if set.Name == "" {
		base := filepath.Base(path)
		set.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return set, nil
}

// Parse decodes data in the given format and validates it.
func Parse(data []byte, format Format) (*Set, error) {
	var doc any
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse JSON: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse YAML: %w", err)
		}
	default:
		var m map[string]any
		if _, err := toml.Decode(string(data), &m); err != nil {
			return nil, fmt.Errorf("parse TOML: %w", err)
		}
		doc = m
	}

	normalized, err := schemavalidation.Normalize(doc)
	if err != nil {
		return nil, err
	}
	if err := phraseSchema().Validate(normalized); err != nil {
		return nil, err
	}

	// The document is now known to have the Set shape.
	raw, err := json.Marshal(normalized)
	if err != nil {
		return nil, fmt.Errorf("encode phrase set: %w", err)
	}
	var set Set
	if err := json.Unmarshal(raw, &set); err != nil {
		return nil, fmt.Errorf("decode phrase set: %w", err)
	}
	return &set, nil
}

// Default returns the built-in phrase set.
func Default() *Set {
	set, err := Parse(defaultData, FormatTOML)
	if err != nil {
		panic(fmt.Sprintf("phrases: built-in set is invalid: %v", err))
	}
	return set
}

// Compile compiles every phrase with table and reports all failures at once.
func (s *Set) Compile(table romaji.Table) ([]*romaji.Compiled, error) {
	out := make([]*romaji.Compiled, 0, len(s.Phrases))
	var errs []error
	for i, p := range s.Phrases {
		c, err := romaji.Compile(p.Phonetic, table)
		if err != nil {
			errs = append(errs, fmt.Errorf("phrase %d (%q): %w", i, p.Display, err))
			continue
		}
		out = append(out, c)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

// Shuffled returns the phrases in an order drawn from r. The set itself is
// not modified.
func (s *Set) Shuffled(r *rand.Rand) []typing.Phrase {
	out := append([]typing.Phrase(nil), s.Phrases...)
	r.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

// Len returns the number of phrases.
func (s *Set) Len() int {
	return len(s.Phrases)
}
