// Package dashboard derives the data behind each dashboard widget (table,
// map, proportion chart, height chart) from one filtered view.
package dashboard

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/KaramelBytes/skyscope/internal/dataset"
	"github.com/KaramelBytes/skyscope/internal/pipeline"
)

// ErrBadRequest marks invalid user choices (map view, colour).
var ErrBadRequest = errors.New("bad request")

// MapMode selects the map layer.
type MapMode string

const (
	MapLocations MapMode = "locations"
	MapDensity   MapMode = "density"
)

// BarColors are the colours the height chart accepts.
var BarColors = []string{"red", "pink", "orange", "purple"}

// TableColumns are shown in the filtered table.
var TableColumns = []string{dataset.ColName, dataset.ColCity, dataset.ColCompletion, dataset.ColHeight}

// MapColumns feed the location layer and its tooltip.
var MapColumns = []string{dataset.ColName, dataset.ColMaterial, dataset.ColMeters, dataset.ColCompletion, dataset.ColLatitude, dataset.ColLongitude}

// Request is one dashboard interaction.
type Request struct {
	Criteria pipeline.Criteria `json:"criteria"`
	MapView  MapMode           `json:"map_view"`
	BarColor string            `json:"bar_color"`
}

// Options are session-level settings.
type Options struct {
	HeightPolicy   pipeline.HeightPolicy
	DensityCellDeg float64
}

// Dashboard is everything the presentation layer renders for one request.
// Map, Pie and Bar are nil when no record matched.
type Dashboard struct {
	RunID          string                   `json:"run_id"`
	Dataset        string                   `json:"dataset"`
	Request        Request                  `json:"request"`
	Matched        int                      `json:"matched"`
	Table          *pipeline.Table          `json:"table"`
	Map            *Map                     `json:"map,omitempty"`
	Pie            *Pie                     `json:"pie,omitempty"`
	Bar            *Bar                     `json:"bar,omitempty"`
	SkippedHeights []pipeline.SkippedHeight `json:"skipped_heights,omitempty"`
}

// Validate normalizes empty choices and rejects unknown ones.
func (r *Request) Validate() error {
	if r.MapView == "" {
		r.MapView = MapLocations
	}
	r.MapView = MapMode(strings.ToLower(string(r.MapView)))
	if r.MapView != MapLocations && r.MapView != MapDensity {
		return fmt.Errorf("%w: unsupported map view %q (use locations or density)", ErrBadRequest, r.MapView)
	}
	if r.BarColor == "" {
		r.BarColor = BarColors[0]
	}
	r.BarColor = strings.ToLower(r.BarColor)
	for _, c := range BarColors {
		if c == r.BarColor {
			return nil
		}
	}
	return fmt.Errorf("%w: unsupported bar color %q (use %s)", ErrBadRequest, r.BarColor, strings.Join(BarColors, ", "))
}

// Build runs the whole pipeline for req over ds.
func Build(ds *dataset.Dataset, req Request, opt Options) (*Dashboard, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	view := pipeline.Filter(ds, req.Criteria)
	d := &Dashboard{
		RunID:   uuid.NewString(),
		Request: req,
		Matched: view.Len(),
	}
	if ds != nil {
		d.Dataset = ds.Name
	}

	table, err := pipeline.Project(view.SortedStable(byCityThenCompletion), TableColumns)
	if err != nil {
		return nil, err
	}
	d.Table = table
	if view.Len() == 0 {
		return d, nil
	}

	if d.Map, err = buildMap(view, req.MapView, opt.DensityCellDeg); err != nil {
		return nil, err
	}
	d.Pie = buildPie(req.Criteria.Cities, pipeline.Tally(req.Criteria.Cities, view))
	avgs, skipped, err := pipeline.CityHeightAverages(view, opt.HeightPolicy)
	if err != nil {
		return nil, err
	}
	d.SkippedHeights = skipped
	d.Bar = buildBar(avgs, req.BarColor)
	return d, nil
}

// byCityThenCompletion orders rows by city, then completion year; unknown years sort last.
func byCityThenCompletion(a, b dataset.Record) bool {
	if a.City != b.City {
		return a.City < b.City
	}
	if a.Completion.Valid != b.Completion.Valid {
		return a.Completion.Valid
	}
	return a.Completion.Int < b.Completion.Int
}
