package romaji

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compile(t *testing.T, phonetic string) *Compiled {
	t.Helper()
	c, err := Compile(phonetic, nil)
	require.NoError(t, err)
	return c
}

func candidates(c *Compiled) [][]string {
	out := make([][]string, len(c.Units))
	for i, u := range c.Units {
		out[i] = u.Candidates
	}
	return out
}

func TestCompile_Basic(t *testing.T) {
	c := compile(t, "すし")

	require.Len(t, c.Units, 2)
	assert.Equal(t, []string{"su"}, c.Units[0].Candidates)
	assert.Equal(t, []string{"shi", "si", "ci"}, c.Units[1].Candidates)
	assert.Equal(t, "sushi", c.Display)
	assert.Equal(t, "すし", c.Phonetic)
}

func TestCompile_DisplayContract(t *testing.T) {
	phrases := []string{
		"きょうはいいてんきですね",
		"がっこうへいっしょにいこう",
		"こんにちは",
		"しんぶん",
		"ちょっとまって",
		"ふぁいる、ぜんぶ。",
		"ゔぁいおりん",
	}

	for _, p := range phrases {
		t.Run(p, func(t *testing.T) {
			c := compile(t, p)

			var b strings.Builder
			for _, u := range c.Units {
				require.NotEmpty(t, u.Candidates)
				assert.Equal(t, b.Len(), u.DisplayOffset, "offset of %q", u.Source)
				b.WriteString(u.Preferred())
			}
			assert.Equal(t, b.String(), c.Display)
		})
	}
}

func TestCompile_Digraph(t *testing.T) {
	c := compile(t, "きょう")

	require.Len(t, c.Units, 2)
	assert.Equal(t, "きょ", c.Units[0].Source)
	assert.Equal(t, "kyo", c.Units[0].Preferred())
	assert.Contains(t, c.Units[0].Candidates, "kixyo")
	assert.Contains(t, c.Units[0].Candidates, "kilyo")
	assert.Equal(t, "kyou", c.Display)
}

func TestCompile_DigraphSpellingsAreOrdered(t *testing.T) {
	c := compile(t, "しゃ")

	require.Len(t, c.Units, 1)
	assert.Equal(t, []string{"sha", "sya"}, c.Units[0].Candidates[:2])
	assert.Contains(t, c.Units[0].Candidates, "shixya")
	assert.Contains(t, c.Units[0].Candidates, "cilya")
}

func TestCompile_SmallKanaAlone(t *testing.T) {
	c := compile(t, "ぁ")

	require.Len(t, c.Units, 1)
	assert.Equal(t, []string{"xa", "la"}, c.Units[0].Candidates)
}

func TestCompile_ConsonantDoubling(t *testing.T) {
	tests := []struct {
		phonetic string
		want     string
		units    int
	}{
		{"あった", "t", 3},
		{"ちょっと", "t", 3},
		{"まっちゃ", "c", 3},
		{"ざっし", "s", 3},
		{"あっ", sokuonFallback, 2},
		{"っあ", sokuonFallback, 2},
		{"っー", sokuonFallback, 2},
	}

	for _, tt := range tests {
		t.Run(tt.phonetic, func(t *testing.T) {
			c := compile(t, tt.phonetic)
			require.Len(t, c.Units, tt.units)

			var doubled *Unit
			for i := range c.Units {
				if c.Units[i].Source == sokuon {
					doubled = &c.Units[i]
				}
			}
			require.NotNil(t, doubled)
			assert.Equal(t, []string{tt.want}, doubled.Candidates)
		})
	}
}

func TestCompile_ConsonantDoublingChain(t *testing.T) {
	c := compile(t, "っっか")

	assert.Equal(t, [][]string{{"k"}, {"k"}, {"ka", "ca"}}, candidates(c))
}

func TestCompile_NasalMora(t *testing.T) {
	long := []string{"nn", "xn"}
	both := []string{"nn", "xn", "n"}

	tests := []struct {
		phonetic string
		want     []string
	}{
		{"あん", both},
		{"あんい", long},
		{"あんや", long},
		{"あんわ", long},
		{"あんか", both},
		{"あんしゃ", both},
		{"あんな", both},
		{"あんー", both},
		{"あんっか", both},
	}

	for _, tt := range tests {
		t.Run(tt.phonetic, func(t *testing.T) {
			c := compile(t, tt.phonetic)
			require.GreaterOrEqual(t, len(c.Units), 2)
			assert.Equal(t, nasal, c.Units[1].Source)
			assert.Equal(t, tt.want, c.Units[1].Candidates)
		})
	}
}

func TestCompile_Katakana(t *testing.T) {
	hira := compile(t, "かたかな")
	kata := compile(t, "カタカナ")
	half := compile(t, "ｶﾀｶﾅ")

	assert.Equal(t, hira.Display, kata.Display)
	assert.Equal(t, hira.Display, half.Display)
	assert.Equal(t, "かたかな", kata.Phonetic)
}

func TestCompile_VoicedHalfWidth(t *testing.T) {
	c := compile(t, "ｶﾞｯｺｳ")

	assert.Equal(t, "がっこう", c.Phonetic)
	assert.Equal(t, "gakkou", c.Display)
}

func TestCompile_Fallback(t *testing.T) {
	c := compile(t, "ＡＢ1")

	assert.Equal(t, [][]string{{"a"}, {"b"}, {"1"}}, candidates(c))
	assert.Equal(t, "ab1", c.Display)
}

func TestCompile_Punctuation(t *testing.T) {
	c := compile(t, "ね、ー。")

	assert.Equal(t, "ne,-.", c.Display)
}

func TestCompile_Empty(t *testing.T) {
	for _, s := range []string{"", "   ", "　"} {
		_, err := Compile(s, nil)
		assert.ErrorIs(t, err, ErrEmptyPhonetic, "input %q", s)
	}
}

func TestCompile_InnerWhitespace(t *testing.T) {
	c := compile(t, "あ\tい")

	assert.Equal(t, [][]string{{"a"}, {" "}, {"i"}}, candidates(c))
	assert.Equal(t, "a i", c.Display)
}

func TestCompile_Untypable(t *testing.T) {
	for _, s := range []string{"あ\x00い", "ね\x7fこ", "あ\u200bい"} {
		_, err := Compile(s, nil)
		assert.ErrorIs(t, err, ErrUntypable, "input %q", s)
	}
}

func TestCompile_TableOverrides(t *testing.T) {
	table := DefaultTable().With(map[string][]string{
		"し": {"si", "shi"},
		"ん": {"nn"},
	})

	c, err := Compile("しん", table)
	require.NoError(t, err)

	assert.Equal(t, "sinn", c.Display)
	assert.Equal(t, []string{"nn"}, c.Units[1].Candidates)
}

func TestTable_WithRemovesEmpty(t *testing.T) {
	table := DefaultTable().With(map[string][]string{"きゃ": nil})

	_, ok := table.Lookup("きゃ")
	assert.False(t, ok)

	c, err := Compile("きゃ", table)
	require.NoError(t, err)
	assert.Equal(t, "kixya", c.Display)
}

func TestTable_LookupReturnsCopy(t *testing.T) {
	table := DefaultTable()

	c, ok := table.Lookup("し")
	require.True(t, ok)
	c[0] = "zz"

	p, _ := table.Preferred("し")
	assert.Equal(t, "shi", p)
}

func TestDefaultTable_Independent(t *testing.T) {
	a := DefaultTable()
	a["か"][0] = "xx"

	b := DefaultTable()
	assert.Equal(t, "ka", b["か"][0])
}

func TestDefaultTable_NoSelfPrefixOutsideNasal(t *testing.T) {
	// Only ん may carry a spelling that is a strict prefix of a sibling.
	table := DefaultTable()
	for _, unit := range table.Units() {
		if unit == nasal {
			continue
		}
		cands := table[unit]
		for _, a := range cands {
			for _, b := range cands {
				if a != b && strings.HasPrefix(b, a) {
					t.Errorf("%s: %q is a prefix of %q", unit, a, b)
				}
			}
		}
	}
}
