package score

import (
	"errors"
	"fmt"
	"sort"
)

// Threshold assigns Label to every metric at or above Min.
type Threshold struct {
	Min   int    `toml:"min" json:"min" yaml:"min"`
	Label string `toml:"label" json:"label" yaml:"label"`
}

// RankTable is an ascending list of thresholds. Rank is a step function over
// it, so a higher metric never yields a lower label.
type RankTable []Threshold

// DefaultRankTable returns the built-in labels, slowest first.
func DefaultRankTable() RankTable {
	return RankTable{
		{Min: 0, Label: "E"},
		{Min: 100, Label: "D"},
		{Min: 150, Label: "C"},
		{Min: 200, Label: "B"},
		{Min: 250, Label: "A"},
		{Min: 300, Label: "S"},
		{Min: 400, Label: "SS"},
	}
}

// Rank returns the label of the highest threshold not above kpm. Metrics
// below the first threshold get the first label.
func (t RankTable) Rank(kpm int) string {
	if len(t) == 0 {
		return ""
	}
	i := sort.Search(len(t), func(i int) bool { return t[i].Min > kpm })
	if i == 0 {
		return t[0].Label
	}
	return t[i-1].Label
}

// Labels returns the labels in ascending order.
func (t RankTable) Labels() []string {
	out := make([]string, len(t))
	for i, th := range t {
		out[i] = th.Label
	}
	return out
}

// Validate checks that the table is non-empty, strictly ascending, starts at
// zero, and has non-empty unique labels.
func (t RankTable) Validate() error {
	if len(t) == 0 {
		return errors.New("rank table is empty")
	}
	if t[0].Min != 0 {
		return fmt.Errorf("first rank threshold must be 0, got %d", t[0].Min)
	}
	seen := make(map[string]bool, len(t))
	for i, th := range t {
		if th.Label == "" {
			return fmt.Errorf("rank %d has an empty label", i)
		}
		if seen[th.Label] {
			return fmt.Errorf("duplicate rank label %q", th.Label)
		}
		seen[th.Label] = true
		if i > 0 && th.Min <= t[i-1].Min {
			return fmt.Errorf("rank %q threshold %d is not above %d", th.Label, th.Min, t[i-1].Min)
		}
	}
	return nil
}
