package pipeline

import (
	"strconv"
	"strings"

	"github.com/KaramelBytes/skyscope/internal/dataset"
)

// Criteria is one user query: the selected cities plus two strict bounds.
//
// Cities keeps the user's selection order (it labels tallies and charts) but
// acts as a set for filtering. An empty selection matches no rows.
type Criteria struct {
	Cities    []string `json:"cities"`
	MaxFloors int      `json:"max_floors"`
	MinYear   int      `json:"min_year"`
}

// Matches reports whether r satisfies every predicate of c.
func (c Criteria) Matches(r dataset.Record) bool { return c.matcher()(r) }

func (c Criteria) matcher() func(dataset.Record) bool {
	set := make(map[string]struct{}, len(c.Cities))
	for _, city := range c.Cities {
		set[city] = struct{}{}
	}
	return func(r dataset.Record) bool {
		if _, ok := set[r.City]; !ok {
			return false
		}
		// null cells compare false, like a missing value would
		if !r.Floors.Valid || r.Floors.Int >= c.MaxFloors {
			return false
		}
		return r.Completion.Valid && r.Completion.Int > c.MinYear
	}
}

// Key is a canonical string for caching results of c.
func (c Criteria) Key() string {
	var b strings.Builder
	for _, city := range c.Cities {
		b.WriteString(strconv.Quote(city))
		b.WriteByte(',')
	}
	b.WriteString("|floors<")
	b.WriteString(strconv.Itoa(c.MaxFloors))
	b.WriteString("|year>")
	b.WriteString(strconv.Itoa(c.MinYear))
	return b.String()
}

// Filter returns the records of ds matching c, in dataset order.
func Filter(ds *dataset.Dataset, c Criteria) *dataset.Dataset {
	name := ""
	if ds != nil {
		name = ds.Name
	}
	return ds.Select(name, c.matcher())
}
