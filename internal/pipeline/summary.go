package pipeline

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/skyscope/internal/dataset"
)

// NumStats summarizes a numeric column.
type NumStats struct {
	Count int     `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
}

// CityCount is a city with its record count.
type CityCount struct {
	City  string `json:"city"`
	Count int    `json:"count"`
}

// Summary profiles a dataset for the describe command and the summary endpoint.
type Summary struct {
	Name              string      `json:"name"`
	Rows              int         `json:"rows"`
	Cities            int         `json:"cities"`
	TopCities         []CityCount `json:"top_cities"`
	Floors            NumStats    `json:"floors"`
	Completion        NumStats    `json:"completion"`
	HeightFeet        NumStats    `json:"height_feet"`
	MissingFloors     int         `json:"missing_floors"`
	MissingCompletion int         `json:"missing_completion"`
	MissingCoords     int         `json:"missing_coords"`
	MalformedHeights  int         `json:"malformed_heights"`
}

// welford accumulates mean and variance in one pass.
type welford struct {
	n        int
	mean, m2 float64
	min, max float64
}

func (w *welford) add(x float64) {
	if w.n == 0 {
		w.min, w.max = x, x
	}
	w.n++
	if x < w.min {
		w.min = x
	}
	if x > w.max {
		w.max = x
	}
	d := x - w.mean
	w.mean += d / float64(w.n)
	w.m2 += d * (x - w.mean)
}

func (w *welford) stats() NumStats {
	s := NumStats{Count: w.n, Min: w.min, Max: w.max, Mean: w.mean}
	if w.n > 1 {
		s.Std = math.Sqrt(w.m2 / float64(w.n-1))
	}
	return s
}

// Summarize computes a per-column profile of ds.
func Summarize(ds *dataset.Dataset, topN int) *Summary {
	s := &Summary{Rows: ds.Len()}
	if ds != nil {
		s.Name = ds.Name
	}
	var floors, years, feet welford
	counts := map[string]int{}
	for i := 0; i < ds.Len(); i++ {
		r := ds.At(i)
		counts[r.City]++
		if r.Floors.Valid {
			floors.add(float64(r.Floors.Int))
		} else {
			s.MissingFloors++
		}
		if r.Completion.Valid {
			years.add(float64(r.Completion.Int))
		} else {
			s.MissingCompletion++
		}
		if !r.Latitude.Valid || !r.Longitude.Valid {
			s.MissingCoords++
		}
		if h, err := ParseHeight(r.Feet); err == nil {
			feet.add(float64(h))
		} else {
			s.MalformedHeights++
		}
	}
	s.Floors, s.Completion, s.HeightFeet = floors.stats(), years.stats(), feet.stats()
	s.Cities = len(counts)
	tops := make([]CityCount, 0, len(counts))
	for c, n := range counts {
		tops = append(tops, CityCount{City: c, Count: n})
	}
	sort.Slice(tops, func(i, j int) bool {
		if tops[i].Count == tops[j].Count {
			return tops[i].City < tops[j].City
		}
		return tops[i].Count > tops[j].Count
	})
	if topN > 0 && len(tops) > topN {
		tops = tops[:topN]
	}
	s.TopCities = tops
	return s
}

// Markdown renders the summary in the same sectioned layout as query reports.
func (s *Summary) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if s.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", s.Name))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", s.Rows))
	b.WriteString(fmt.Sprintf("Cities: %d\n\n", s.Cities))

	b.WriteString("[COLUMNS]\n")
	writeStats := func(name string, st NumStats, missing int) {
		b.WriteString(fmt.Sprintf("- %s: numeric (non-null %d, missing %d)", name, st.Count, missing))
		if st.Count > 0 {
			b.WriteString(fmt.Sprintf(" — min %.4g, max %.4g, mean %.4g, std %.4g", st.Min, st.Max, st.Mean, st.Std))
		}
		b.WriteString("\n")
	}
	writeStats(dataset.ColFloors, s.Floors, s.MissingFloors)
	writeStats(dataset.ColCompletion, s.Completion, s.MissingCompletion)
	writeStats(dataset.ColFeet+" [ft]", s.HeightFeet, s.MalformedHeights)
	if len(s.TopCities) > 0 {
		b.WriteString("- CITY: categorical — top: ")
		for i, c := range s.TopCities {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(fmt.Sprintf("%s(%d)", c.City, c.Count))
		}
		if s.Cities > len(s.TopCities) {
			b.WriteString(fmt.Sprintf("; unique=%d", s.Cities))
		}
		b.WriteString("\n")
	}

	var notes []string
	if s.MalformedHeights > 0 {
		notes = append(notes, fmt.Sprintf("%d row(s) have a malformed %s value; use height_policy=skip to aggregate around them", s.MalformedHeights, dataset.ColFeet))
	}
	if s.MissingCoords > 0 {
		notes = append(notes, fmt.Sprintf("%d row(s) lack coordinates and are not placed on the map", s.MissingCoords))
	}
	if len(notes) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, n := range notes {
			b.WriteString("- ")
			b.WriteString(n)
			b.WriteString("\n")
		}
	}
	return b.String()
}
