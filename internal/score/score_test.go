package score

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhraseKPM(t *testing.T) {
	tests := []struct {
		name    string
		correct int
		elapsed time.Duration
		want    int
	}{
		{"one minute", 300, time.Minute, 300},
		{"half minute", 100, 30 * time.Second, 200},
		{"floored", 10, 7 * time.Second, 85},
		{"exact quotient", 23, 23 * time.Second, 60},
		{"exact slow quotient", 11, 110 * time.Second, 6},
		{"sub-second", 7, 1500 * time.Millisecond, 280},
		{"zero time", 10, 0, 0},
		{"negative time", 10, -time.Second, 0},
		{"no keys", 0, time.Minute, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PhraseKPM(tt.correct, tt.elapsed))
		})
	}
}

func TestPhraseKPM_MatchesIntegerRate(t *testing.T) {
	for correct := 1; correct <= 200; correct++ {
		for secs := 1; secs <= 120; secs++ {
			want := correct * 60 / secs
			got := PhraseKPM(correct, time.Duration(secs)*time.Second)
			if got != want {
				t.Fatalf("PhraseKPM(%d, %ds) = %d, want %d", correct, secs, got, want)
			}
		}
	}
}

func TestTracker_Policies(t *testing.T) {
	results := []PhraseResult{
		{Correct: 100, Elapsed: 30 * time.Second}, // 200
		{Correct: 100, Elapsed: 90 * time.Second}, // 66
	}

	agg := NewTracker(PolicyAggregate)
	avg := NewTracker(PolicyAveraged)
	for _, r := range results {
		agg.Add(r)
		avg.Add(r)
	}

	// 200 keys over 2 minutes.
	assert.Equal(t, 100, agg.KPM())
	// (200 + 66) / 2.
	assert.Equal(t, 133, avg.KPM())

	avg.SetPolicy(PolicyAggregate)
	assert.Equal(t, 100, avg.KPM())
	assert.Equal(t, 2, avg.Count())
}

func TestTracker_Empty(t *testing.T) {
	tr := NewTracker(PolicyAveraged)

	assert.Equal(t, 0, tr.KPM())
	assert.Equal(t, 1.0, tr.Accuracy())
	assert.Empty(t, tr.Results())
}

func TestTracker_AccuracyAndReset(t *testing.T) {
	tr := NewTracker(PolicyAggregate)
	tr.Add(PhraseResult{Correct: 9, Misses: 1, Elapsed: time.Second})
	tr.Add(PhraseResult{Correct: 10, Misses: 0, Elapsed: time.Second})

	assert.InDelta(t, 19.0/20.0, tr.Accuracy(), 1e-9)

	tr.Reset()
	assert.Equal(t, 0, tr.Count())
}

func TestTracker_Concurrent(t *testing.T) {
	tr := NewTracker(PolicyAggregate)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tr.Add(PhraseResult{Correct: 1, Elapsed: time.Second})
				_ = tr.KPM()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1000, tr.Count())
	assert.Equal(t, 60, tr.KPM())
}

func TestTracker_Summarize(t *testing.T) {
	tr := NewTracker(PolicyAveraged)
	tr.Add(PhraseResult{Correct: 130, Elapsed: 30 * time.Second})

	s := tr.Summarize(DefaultRankTable())
	assert.Equal(t, Summary{Policy: "averaged", Phrases: 1, KPM: 260, Accuracy: 1, Rank: "A"}, s)
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    Policy
		wantErr bool
	}{
		{"aggregate", PolicyAggregate, false},
		{"", PolicyAggregate, false},
		{"AVERAGED", PolicyAveraged, false},
		{"mean", PolicyAveraged, false},
		{"median", PolicyAggregate, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePolicy(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRankTable_Rank(t *testing.T) {
	table := DefaultRankTable()

	tests := []struct {
		kpm  int
		want string
	}{
		{-5, "E"},
		{0, "E"},
		{99, "E"},
		{100, "D"},
		{149, "D"},
		{250, "A"},
		{399, "S"},
		{400, "SS"},
		{10000, "SS"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, table.Rank(tt.kpm), "kpm %d", tt.kpm)
	}
}

func TestRankTable_Monotonic(t *testing.T) {
	table := DefaultRankTable()
	order := make(map[string]int)
	for i, l := range table.Labels() {
		order[l] = i
	}

	prev := 0
	for kpm := 0; kpm <= 600; kpm++ {
		cur := order[table.Rank(kpm)]
		require.GreaterOrEqual(t, cur, prev, "kpm %d", kpm)
		prev = cur
	}
}

func TestRankTable_Validate(t *testing.T) {
	assert.NoError(t, DefaultRankTable().Validate())

	bad := map[string]RankTable{
		"empty":         {},
		"nonzero start": {{Min: 10, Label: "A"}},
		"empty label":   {{Min: 0, Label: ""}},
		"duplicate":     {{Min: 0, Label: "A"}, {Min: 10, Label: "A"}},
		"not ascending": {{Min: 0, Label: "A"}, {Min: 10, Label: "B"}, {Min: 10, Label: "C"}},
		"descending":    {{Min: 0, Label: "A"}, {Min: 20, Label: "B"}, {Min: 5, Label: "C"}},
	}
	for name, table := range bad {
		assert.Error(t, table.Validate(), name)
	}
}

func TestRankTable_EmptyRank(t *testing.T) {
	assert.Equal(t, "", RankTable(nil).Rank(100))
}
