package phrases

import (
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riffluv/manaby-typing-sub000/internal/romaji"
	"github.com/riffluv/manaby-typing-sub000/internal/schemavalidation"
	"github.com/riffluv/manaby-typing-sub000/internal/typing"
)

const tomlSet = `
name = "food"

[[phrases]]
display = "寿司"
phonetic = "すし"

[[phrases]]
display = "天ぷら"
phonetic = "てんぷら"
`

const yamlSet = `
name: food
phrases:
  - display: 寿司
    phonetic: すし
  - display: 天ぷら
    phonetic: てんぷら
`

const jsonSet = `{
  "name": "food",
  "phrases": [
    {"display": "寿司", "phonetic": "すし"},
    {"display": "天ぷら", "phonetic": "てんぷら"}
  ]
}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad_Formats(t *testing.T) {
	dir := t.TempDir()
	want := []typing.Phrase{
		{Display: "寿司", Phonetic: "すし"},
		{Display: "天ぷら", Phonetic: "てんぷら"},
	}

	for name, content := range map[string]string{
		"food.toml": tomlSet,
		"food.yaml": yamlSet,
		"food.yml":  yamlSet,
		"food.json": jsonSet,
	} {
		t.Run(name, func(t *testing.T) {
			set, err := Load(writeFile(t, dir, name, content))
			require.NoError(t, err)
			assert.Equal(t, "food", set.Name)
			assert.Equal(t, want, set.Phrases)
			assert.Equal(t, 2, set.Len())
		})
	}
}

func TestLoad_NameFromFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "animals.toml", `
[[phrases]]
display = "猫"
phonetic = "ねこ"
`)
	set, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "animals", set.Name)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestParse_SchemaViolations(t *testing.T) {
	tests := []struct {
		name     string
		format   Format
		data     string
		location string
	}{
		{"no phrases", FormatTOML, `name = "x"`, ""},
		{"empty list", FormatJSON, `{"phrases": []}`, "/phrases"},
		{"missing phonetic", FormatJSON, `{"phrases": [{"display": "a"}]}`, "/phrases/0"},
		{"blank phonetic", FormatYAML, "phrases:\n  - display: a\n    phonetic: \"  \"\n", "/phrases/0/phonetic"},
		{"phonetic not a string", FormatTOML, "[[phrases]]\ndisplay = \"a\"\nphonetic = 3\n", "/phrases/0/phonetic"},
		{"unknown key", FormatJSON, `{"phrases": [{"display": "a", "phonetic": "あ"}], "level": 3}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), tt.format)
			require.Error(t, err)

			var verr *schemavalidation.Error
			require.True(t, errors.As(err, &verr), "got %v", err)
			found := false
			for _, p := range verr.Problems {
				if p.Location == tt.location {
					found = true
				}
			}
			assert.True(t, found, "problems: %v", verr.Problems)
		})
	}
}

func TestParse_SyntaxErrors(t *testing.T) {
	_, err := Parse([]byte(`name = `), FormatTOML)
	assert.ErrorContains(t, err, "parse TOML")

	_, err = Parse([]byte(`{`), FormatJSON)
	assert.ErrorContains(t, err, "parse JSON")

	_, err = Parse([]byte("phrases: [\n"), FormatYAML)
	assert.ErrorContains(t, err, "parse YAML")
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, FormatJSON, FormatFromPath("a.JSON"))
	assert.Equal(t, FormatYAML, FormatFromPath("a.yml"))
	assert.Equal(t, FormatTOML, FormatFromPath("a.toml"))
	assert.Equal(t, FormatTOML, FormatFromPath("a.txt"))
	assert.Equal(t, "yaml", FormatYAML.String())
}

func TestDefault(t *testing.T) {
	set := Default()
	assert.Equal(t, "default", set.Name)
	require.NotEmpty(t, set.Phrases)

	compiled, err := set.Compile(nil)
	require.NoError(t, err)
	assert.Len(t, compiled, set.Len())

	// Every built-in phrase can be typed.
	for _, p := range set.Phrases {
		_, err := typing.NewSession(p)
		assert.NoError(t, err, p.Display)
	}
}

func TestSet_Compile(t *testing.T) {
	set := &Set{Phrases: []typing.Phrase{
		{Display: "寿司", Phonetic: "すし"},
		{Display: "blank", Phonetic: " "},
		{Display: "bell", Phonetic: "べ\x07る"},
	}}

	_, err := set.Compile(nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, romaji.ErrEmptyPhonetic)
	assert.ErrorIs(t, err, romaji.ErrUntypable)
	assert.Contains(t, err.Error(), `phrase 1 ("blank")`)
	assert.Contains(t, err.Error(), `phrase 2 ("bell")`)

	set.Phrases = set.Phrases[:1]
	compiled, err := set.Compile(romaji.DefaultTable().With(map[string][]string{"す": {"su", "zu"}}))
	require.NoError(t, err)
	assert.Equal(t, []string{"su", "zu"}, compiled[0].Units[0].Candidates)
}

func TestSet_Shuffled(t *testing.T) {
	set := Default()
	orig := append([]typing.Phrase(nil), set.Phrases...)

	a := set.Shuffled(rand.New(rand.NewPCG(1, 2)))
	b := set.Shuffled(rand.New(rand.NewPCG(1, 2)))

	assert.Equal(t, a, b)
	assert.ElementsMatch(t, orig, a)
	assert.Equal(t, orig, set.Phrases)
}

func TestWatcher_Reload(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "food.toml", tomlSet)

	w, err := NewWatcher(path)
	require.NoError(t, err)
	defer w.Close()
	w.file.Debounce = 10 * time.Millisecond

	changed := make(chan *Set, 1)
	w.OnChange(func(s *Set) {
		select {
		case changed <- s:
		default:
		}
	})
	require.NoError(t, w.Watch())
	assert.Equal(t, 2, w.Set().Len())

	writeFile(t, dir, "food.toml", "name = \"food\"\n[[phrases]]\ndisplay = \"猫\"\nphonetic = \"ねこ\"\n")

	select {
	case s := <-changed:
		assert.Equal(t, 1, s.Len())
		assert.Equal(t, "猫", w.Set().Phrases[0].Display)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}

func TestWatcher_InvalidReloadKeepsSet(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "food.toml", tomlSet)

	w, err := NewWatcher(path)
	require.NoError(t, err)
	defer w.Close()
	w.file.Debounce = 10 * time.Millisecond
	require.NoError(t, w.Watch())

	writeFile(t, dir, "food.toml", `name = "broken"`)

	select {
	case err := <-w.Errors():
		assert.ErrorContains(t, err, "reload phrase set")
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload error")
	}
	assert.Equal(t, "food", w.Set().Name)
}
