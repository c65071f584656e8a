package pipeline

import "github.com/KaramelBytes/skyscope/internal/dataset"

// ListCities returns each distinct city once, in order of first occurrence.
func ListCities(ds *dataset.Dataset) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for i := 0; i < ds.Len(); i++ {
		city := ds.At(i).City
		if _, ok := seen[city]; ok {
			continue
		}
		seen[city] = struct{}{}
		out = append(out, city)
	}
	return out
}
