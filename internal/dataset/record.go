package dataset

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// Column names of the skyscraper table. The contract is exact and case-sensitive.
const (
	ColRank       = "RANK"
	ColName       = "NAME"
	ColCity       = "CITY"
	ColFloors     = "FLOORS"
	ColCompletion = "COMPLETION"
	ColHeight     = "Height"
	ColFeet       = "Feet"
	ColMeters     = "Meters"
	ColLatitude   = "Latitude"
	ColLongitude  = "Longitude"
	ColMaterial   = "MATERIAL"
)

// RequiredColumns must be present in every source header.
var RequiredColumns = []string{ColRank, ColCity, ColFloors, ColCompletion, ColFeet}

// Columns lists every column a Record carries, in display order.
var Columns = []string{
	ColRank, ColName, ColCity, ColFloors, ColCompletion,
	ColHeight, ColFeet, ColMeters, ColLatitude, ColLongitude, ColMaterial,
}

// NullInt is an integer cell that may be missing or malformed.
type NullInt struct {
	Int   int
	Valid bool
}

// NullFloat is a floating point cell that may be missing or malformed.
type NullFloat struct {
	Float float64
	Valid bool
}

func (n NullInt) String() string {
	if !n.Valid {
		return ""
	}
	return strconv.Itoa(n.Int)
}

func (n NullFloat) String() string {
	if !n.Valid {
		return ""
	}
	return strconv.FormatFloat(n.Float, 'f', -1, 64)
}

// MarshalJSON encodes a missing value as null.
func (n NullInt) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(n.Int)), nil
}

// MarshalJSON encodes a missing or non-finite value as null.
func (n NullFloat) MarshalJSON() ([]byte, error) {
	if !n.Valid || math.IsNaN(n.Float) || math.IsInf(n.Float, 0) {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(n.Float, 'f', -1, 64)), nil
}

// Record is one skyscraper row. Height, Feet and Meters keep their raw text.
type Record struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	City       string    `json:"city"`
	Floors     NullInt   `json:"floors"`
	Completion NullInt   `json:"completion"`
	Height     string    `json:"height"`
	Feet       string    `json:"feet"`
	Meters     string    `json:"meters"`
	Latitude   NullFloat `json:"latitude"`
	Longitude  NullFloat `json:"longitude"`
	Material   string    `json:"material"`
}

// Field returns the textual value of a column and whether the column exists.
func (r Record) Field(column string) (string, bool) {
	switch column {
	case ColRank:
		return r.ID, true
	case ColName:
		return r.Name, true
	case ColCity:
		return r.City, true
	case ColFloors:
		return r.Floors.String(), true
	case ColCompletion:
		return r.Completion.String(), true
	case ColHeight:
		return r.Height, true
	case ColFeet:
		return r.Feet, true
	case ColMeters:
		return r.Meters, true
	case ColLatitude:
		return r.Latitude.String(), true
	case ColLongitude:
		return r.Longitude.String(), true
	case ColMaterial:
		return r.Material, true
	}
	return "", false
}

func parseInt(s string) NullInt {
	s = strings.TrimSpace(s)
	if s == "" {
		return NullInt{}
	}
	if n, err := strconv.Atoi(s); err == nil {
		return NullInt{Int: n, Valid: true}
	}
	// database drivers and spreadsheets may hand back "52.0"
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return NullInt{}
	}
	return NullInt{Int: int(f), Valid: true}
}

func parseFloat(s string) NullFloat {
	s = strings.TrimSpace(s)
	if s == "" {
		return NullFloat{}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return NullFloat{}
	}
	return NullFloat{Float: f, Valid: true}
}

// Dataset is an ordered, immutable sequence of records indexed by ID.
type Dataset struct {
	Name    string
	records []Record
	index   map[string]int
}

// New builds a Dataset and rejects empty or duplicate identifiers.
func New(name string, records []Record) (*Dataset, error) {
	index := make(map[string]int, len(records))
	for i, r := range records {
		if r.ID == "" {
			return nil, &DataUnavailableError{Source: name, Reason: "row " + strconv.Itoa(i+1) + " has an empty " + ColRank}
		}
		if _, dup := index[r.ID]; dup {
			return nil, &DataUnavailableError{Source: name, Reason: "duplicate " + ColRank + " " + strconv.Quote(r.ID)}
		}
		index[r.ID] = i
	}
	cp := make([]Record, len(records))
	copy(cp, records)
	return &Dataset{Name: name, records: cp, index: index}, nil
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.records)
}

// At returns the i-th record.
func (d *Dataset) At(i int) Record { return d.records[i] }

// Records returns a copy of the records in dataset order.
func (d *Dataset) Records() []Record {
	if d == nil {
		return nil
	}
	out := make([]Record, len(d.records))
	copy(out, d.records)
	return out
}

// Lookup finds a record by identifier.
func (d *Dataset) Lookup(id string) (Record, bool) {
	if d == nil {
		return Record{}, false
	}
	i, ok := d.index[id]
	if !ok {
		return Record{}, false
	}
	return d.records[i], true
}

// Select returns a new Dataset with the records for which keep is true,
// preserving relative order.
func (d *Dataset) Select(name string, keep func(Record) bool) *Dataset {
	out := &Dataset{Name: name, index: map[string]int{}}
	for _, r := range d.recordsOrNil() {
		if keep(r) {
			out.index[r.ID] = len(out.records)
			out.records = append(out.records, r)
		}
	}
	return out
}

// SortedStable returns a reordered copy; equal records keep dataset order.
func (d *Dataset) SortedStable(less func(a, b Record) bool) *Dataset {
	recs := d.Records()
	sort.SliceStable(recs, func(i, j int) bool { return less(recs[i], recs[j]) })
	out := &Dataset{records: recs, index: make(map[string]int, len(recs))}
	if d != nil {
		out.Name = d.Name
	}
	for i, r := range recs {
		out.index[r.ID] = i
	}
	return out
}

func (d *Dataset) recordsOrNil() []Record {
	if d == nil {
		return nil
	}
	return d.records
}
