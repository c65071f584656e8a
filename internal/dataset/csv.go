package dataset

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

type csvSource struct {
	r *csv.Reader
}

func (s *csvSource) Next() ([]string, error) { return s.r.Read() }

func newCSVSource(r io.Reader, name string) *csvSource {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comma = sniffDelimiter(name)
	return &csvSource{r: cr}
}

func openCSVFile(path string) (*csvSource, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open csv: %w", err)
	}
	return newCSVSource(f, path), f, nil
}

func csvFromBytes(data []byte, name string) *csvSource {
	return newCSVSource(bytes.NewReader(data), name)
}

func sniffDelimiter(path string) rune {
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		return '\t'
	}
	return ','
}
