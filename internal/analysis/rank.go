package analysis

import (
	"sort"
)

type Ranked struct {
	Rank int    `json:"rank"`
	Name string `json:"name"`
	Summary
}

// RankByTotalReturn sorts summaries descending by TotalReturn, ties by name.
func RankByTotalReturn(byName map[string]Summary) []Ranked {
	out := make([]Ranked, 0, len(byName))
	for name, s := range byName {
		out = append(out, Ranked{Name: name, Summary: s})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalReturn != out[j].TotalReturn {
			return out[i].TotalReturn > out[j].TotalReturn
		}
		return out[i].Name < out[j].Name
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
