package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// LoadOptions carries source-specific settings for Load.
type LoadOptions struct {
	// XLSX: sheet name; if empty, SheetIndex (1-based) is used.
	Sheet      string
	SheetIndex int
	// SQLTable is the table read by postgres:// and mysql:// sources.
	SQLTable string
	// S3 configures s3:// sources.
	S3 S3Options
}

// rowSource yields the header first, then data rows, then io.EOF.
type rowSource interface {
	Next() ([]string, error)
}

// Load reads a dataset from a local CSV/TSV/XLSX file, an s3:// object, or a
// postgres:// / mysql:// table. Any failure is a *DataUnavailableError.
func Load(ctx context.Context, source string, opt LoadOptions) (*Dataset, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, unavailable("", "no dataset source configured", nil)
	}
	lower := strings.ToLower(source)
	switch {
	case strings.HasPrefix(lower, "s3://"):
		return loadS3(ctx, source, opt)
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"), strings.HasPrefix(lower, "mysql://"):
		return loadSQL(ctx, source, opt)
	default:
		return loadFile(source, opt)
	}
}

func loadFile(path string, opt LoadOptions) (*Dataset, error) {
	name := filepath.Base(path)
	if isXLSX(path) {
		src, err := openXLSXFile(path, opt.Sheet, opt.SheetIndex)
		if err != nil {
			return nil, unavailable(name, "", err)
		}
		return build(name, src)
	}
	src, closer, err := openCSVFile(path)
	if err != nil {
		return nil, unavailable(name, "", err)
	}
	defer closer.Close()
	return build(name, src)
}

func isXLSX(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".xlsx")
}

// build maps a header + rows stream onto Records.
func build(name string, src rowSource) (*Dataset, error) {
	header, err := src.Next()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, unavailable(name, "source has no header row", nil)
		}
		return nil, unavailable(name, "read header", err)
	}
	pos := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF"))
		if _, seen := pos[h]; !seen {
			pos[h] = i
		}
	}
	var missing []string
	for _, c := range RequiredColumns {
		if _, ok := pos[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, unavailable(name, "missing required column(s): "+strings.Join(missing, ", "), nil)
	}
	cell := func(row []string, col string) string {
		i, ok := pos[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var records []Record
	for n := 1; ; n++ {
		row, err := src.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, unavailable(name, fmt.Sprintf("read row %d", n), err)
		}
		if isBlank(row) {
			continue
		}
		records = append(records, Record{
			ID:         cell(row, ColRank),
			Name:       cell(row, ColName),
			City:       cell(row, ColCity),
			Floors:     parseInt(cell(row, ColFloors)),
			Completion: parseInt(cell(row, ColCompletion)),
			Height:     cell(row, ColHeight),
			Feet:       cell(row, ColFeet),
			Meters:     cell(row, ColMeters),
			Latitude:   parseFloat(cell(row, ColLatitude)),
			Longitude:  parseFloat(cell(row, ColLongitude)),
			Material:   cell(row, ColMaterial),
		})
	}
	return New(name, records)
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
