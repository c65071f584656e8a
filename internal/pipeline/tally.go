package pipeline

import "github.com/KaramelBytes/skyscope/internal/dataset"

// Tally counts, for each category in order, the rows of view in that city.
//
// An empty view yields an empty slice, not a slice of zeros; chart consumers
// only call Tally for non-empty views and rely on len(result) == len(categories).
func Tally(categories []string, view *dataset.Dataset) []int {
	if view.Len() == 0 {
		return []int{}
	}
	counts := make(map[string]int)
	for i := 0; i < view.Len(); i++ {
		counts[view.At(i).City]++
	}
	out := make([]int, len(categories))
	for i, c := range categories {
		out[i] = counts[c]
	}
	return out
}
