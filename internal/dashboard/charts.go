package dashboard

import (
	"math"
	"strings"

	"github.com/KaramelBytes/skyscope/internal/pipeline"
)

const pieExplode = 0.2

// Pie is the per-city share of matching skyscrapers. The slice with the
// largest count is pulled out.
type Pie struct {
	Labels  []string  `json:"labels"`
	Counts  []int     `json:"counts"`
	Percent []float64 `json:"percent"`
	Explode []float64 `json:"explode"`
}

// Bar compares the mean height of each city.
type Bar struct {
	Title  string                `json:"title"`
	XLabel string                `json:"x_label"`
	YLabel string                `json:"y_label"`
	Color  string                `json:"color"`
	Bars   pipeline.CityAverages `json:"bars"`
}

func buildPie(labels []string, counts []int) *Pie {
	p := &Pie{
		Labels:  append([]string(nil), labels...),
		Counts:  counts,
		Percent: make([]float64, len(counts)),
		Explode: make([]float64, len(counts)),
	}
	total := 0
	for _, c := range counts {
		total += c
	}
	if total == 0 {
		return p
	}
	maxAt := 0
	for i, c := range counts {
		p.Percent[i] = round2(float64(c) * 100 / float64(total))
		if c > counts[maxAt] {
			maxAt = i
		}
	}
	p.Explode[maxAt] = pieExplode
	return p
}

func buildBar(avgs pipeline.CityAverages, color string) *Bar {
	return &Bar{
		Title:  "Average Skyscraper Height for Cities: " + strings.Join(avgs.Cities(), ","),
		XLabel: "City",
		YLabel: "Feet",
		Color:  color,
		Bars:   avgs,
	}
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
