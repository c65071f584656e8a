package dashboard

import (
	"math"
	"sort"

	"github.com/KaramelBytes/skyscope/internal/dataset"
	"github.com/KaramelBytes/skyscope/internal/pipeline"
)

const (
	defaultZoom    = 6
	defaultCellDeg = 1.0
)

// Map is the geographic view. Locations mode fills Points, density mode fills Cells.
type Map struct {
	Mode    MapMode         `json:"mode"`
	Center  *Center         `json:"center,omitempty"`
	Points  *pipeline.Table `json:"points,omitempty"`
	Cells   []DensityCell   `json:"cells,omitempty"`
	Tooltip string          `json:"tooltip"`
	// Unplaced counts matching records without usable coordinates.
	Unplaced int `json:"unplaced"`
}

// Center is the initial viewport.
type Center struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Zoom      int     `json:"zoom"`
}

// DensityCell aggregates buildings inside one lat/lon grid cell.
type DensityCell struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Buildings int     `json:"buildings"`
}

const (
	locationsTooltip = "{COMPLETION}<br/><b>{NAME}</b><br>Height: {Meters}<br>Material: {MATERIAL}"
	densityTooltip   = "Buildings: {elevationValue}<br/>"
)

func buildMap(view *dataset.Dataset, mode MapMode, cellDeg float64) (*Map, error) {
	m := &Map{Mode: mode}
	var sumLat, sumLon float64
	placed := 0
	for i := 0; i < view.Len(); i++ {
		r := view.At(i)
		if !r.Latitude.Valid || !r.Longitude.Valid {
			m.Unplaced++
			continue
		}
		sumLat += r.Latitude.Float
		sumLon += r.Longitude.Float
		placed++
	}
	if placed > 0 {
		m.Center = &Center{Latitude: sumLat / float64(placed), Longitude: sumLon / float64(placed), Zoom: defaultZoom}
	}

	switch mode {
	case MapDensity:
		m.Tooltip = densityTooltip
		m.Cells = densityCells(view, cellDeg)
	default:
		m.Tooltip = locationsTooltip
		pts, err := pipeline.Project(view, MapColumns)
		if err != nil {
			return nil, err
		}
		m.Points = pts
	}
	return m, nil
}

// densityCells bins located records into a square grid of cellDeg degrees.
// Cells are ordered by descending count, then by position.
func densityCells(view *dataset.Dataset, cellDeg float64) []DensityCell {
	if cellDeg <= 0 {
		cellDeg = defaultCellDeg
	}
	type key struct{ lat, lon int64 }
	counts := map[key]int{}
	for i := 0; i < view.Len(); i++ {
		r := view.At(i)
		if !r.Latitude.Valid || !r.Longitude.Valid {
			continue
		}
		k := key{int64(math.Floor(r.Latitude.Float / cellDeg)), int64(math.Floor(r.Longitude.Float / cellDeg))}
		counts[k]++
	}
	out := make([]DensityCell, 0, len(counts))
	for k, n := range counts {
		out = append(out, DensityCell{
			Latitude:  (float64(k.lat) + 0.5) * cellDeg,
			Longitude: (float64(k.lon) + 0.5) * cellDeg,
			Buildings: n,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Buildings != out[j].Buildings {
			return out[i].Buildings > out[j].Buildings
		}
		if out[i].Latitude != out[j].Latitude {
			return out[i].Latitude < out[j].Latitude
		}
		return out[i].Longitude < out[j].Longitude
	})
	return out
}
