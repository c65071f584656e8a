package pipeline

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/KaramelBytes/skyscope/internal/dataset"
)

// HeightPolicy decides what happens when a height cell cannot be parsed.
type HeightPolicy string

const (
	// HeightAbort fails the whole aggregation on the first malformed row.
	HeightAbort HeightPolicy = "abort"
	// HeightSkip drops malformed rows and reports them in HeightIndex.Skipped.
	HeightSkip HeightPolicy = "skip"
)

// ParseHeightPolicy accepts "abort", "skip" or "" (abort).
func ParseHeightPolicy(s string) (HeightPolicy, error) {
	switch HeightPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", HeightAbort:
		return HeightAbort, nil
	case HeightSkip:
		return HeightSkip, nil
	}
	return "", fmt.Errorf("invalid height policy %q (use abort or skip)", s)
}

// ParseHeight reads the leading integer of a "1,454 ft" style cell.
func ParseHeight(raw string) (int, error) {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return 0, &UnparsableHeightError{Raw: raw}
	}
	n, err := strconv.Atoi(strings.ReplaceAll(fields[0], ",", ""))
	if err != nil {
		return 0, &UnparsableHeightError{Raw: raw, Err: err}
	}
	return n, nil
}

// SkippedHeight is a row dropped under HeightSkip.
type SkippedHeight struct {
	ID     string `json:"id"`
	City   string `json:"city"`
	Raw    string `json:"raw"`
	Reason string `json:"reason"`
}

// HeightIndex maps city to parsed heights in row order. Cities iterate in
// order of first occurrence.
type HeightIndex struct {
	cities  []string
	heights map[string][]int
	Skipped []SkippedHeight
}

// Cities returns the cities in insertion order.
func (h *HeightIndex) Cities() []string {
	out := make([]string, len(h.cities))
	copy(out, h.cities)
	return out
}

// Heights returns the parsed heights for city.
func (h *HeightIndex) Heights(city string) []int {
	return append([]int(nil), h.heights[city]...)
}

func (h *HeightIndex) add(city string, v int) {
	if _, ok := h.heights[city]; !ok {
		h.cities = append(h.cities, city)
	}
	h.heights[city] = append(h.heights[city], v)
}

// GroupHeights parses the Feet column of every row in view and groups the
// values by city.
func GroupHeights(view *dataset.Dataset, policy HeightPolicy) (*HeightIndex, error) {
	idx := &HeightIndex{heights: make(map[string][]int)}
	for i := 0; i < view.Len(); i++ {
		r := view.At(i)
		v, err := ParseHeight(r.Feet)
		if err != nil {
			if policy != HeightSkip {
				he := err.(*UnparsableHeightError)
				he.ID = r.ID
				return nil, he
			}
			idx.Skipped = append(idx.Skipped, SkippedHeight{ID: r.ID, City: r.City, Raw: r.Feet, Reason: err.Error()})
			continue
		}
		idx.add(r.City, v)
	}
	return idx, nil
}

// CityAverage is one city's mean height in feet.
type CityAverage struct {
	City string  `json:"city"`
	Feet float64 `json:"feet"`
}

// CityAverages is an insertion-ordered city → mean mapping.
type CityAverages []CityAverage

// Get returns the mean for city.
func (a CityAverages) Get(city string) (float64, bool) {
	for _, c := range a {
		if c.City == city {
			return c.Feet, true
		}
	}
	return 0, false
}

// Cities returns the city keys in order.
func (a CityAverages) Cities() []string {
	out := make([]string, len(a))
	for i, c := range a {
		out[i] = c.City
	}
	return out
}

// Averages returns the arithmetic mean per city. A city with no heights maps to NaN.
func (h *HeightIndex) Averages() CityAverages {
	out := make(CityAverages, 0, len(h.cities))
	for _, city := range h.cities {
		out = append(out, CityAverage{City: city, Feet: mean(h.heights[city])})
	}
	return out
}

// CityHeightAverages groups view by city and averages the parsed heights.
func CityHeightAverages(view *dataset.Dataset, policy HeightPolicy) (CityAverages, []SkippedHeight, error) {
	idx, err := GroupHeights(view, policy)
	if err != nil {
		return nil, nil, err
	}
	return idx.Averages(), idx.Skipped, nil
}

func mean(vals []int) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, v := range vals {
		sum += float64(v)
	}
	return sum / float64(len(vals))
}
