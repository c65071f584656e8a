package pipeline

import "github.com/KaramelBytes/skyscope/internal/dataset"

// Row is one projected record; ID is always carried even when RANK is not requested.
type Row struct {
	ID     string   `json:"id"`
	Values []string `json:"values"`
}

// Table is a narrowed view over a dataset.
type Table struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// Column returns the values of the named column.
func (t *Table) Column(name string) ([]string, error) {
	for j, c := range t.Columns {
		if c == name {
			out := make([]string, len(t.Rows))
			for i, r := range t.Rows {
				out[i] = r.Values[j]
			}
			return out, nil
		}
	}
	return nil, &UnknownColumnError{Column: name}
}

// Project keeps only the requested columns of view, in the requested order.
func Project(view *dataset.Dataset, columns []string) (*Table, error) {
	var probe dataset.Record
	for _, c := range columns {
		if _, ok := probe.Field(c); !ok {
			return nil, &UnknownColumnError{Column: c}
		}
	}
	t := &Table{
		Columns: append([]string(nil), columns...),
		Rows:    make([]Row, 0, view.Len()),
	}
	for i := 0; i < view.Len(); i++ {
		r := view.At(i)
		vals := make([]string, len(columns))
		for j, c := range columns {
			vals[j], _ = r.Field(c)
		}
		t.Rows = append(t.Rows, Row{ID: r.ID, Values: vals})
	}
	return t, nil
}
