package dashboard

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/skyscope/internal/pipeline"
	"github.com/KaramelBytes/skyscope/internal/utils"
)

// JSON renders the dashboard as indented JSON.
func (d *Dashboard) JSON() ([]byte, error) {
	return utils.PrettyJSON(d)
}

// Markdown renders a compact report of every view.
func (d *Dashboard) Markdown() string {
	var b strings.Builder
	c := d.Request.Criteria
	b.WriteString("[QUERY]\n")
	if d.Dataset != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", d.Dataset))
	}
	b.WriteString(fmt.Sprintf("Run: %s\n", d.RunID))
	cities := "(none)"
	if len(c.Cities) > 0 {
		cities = strings.Join(c.Cities, ", ")
	}
	b.WriteString(fmt.Sprintf("Cities: %s\n", cities))
	b.WriteString(fmt.Sprintf("Floors: < %d\n", c.MaxFloors))
	b.WriteString(fmt.Sprintf("Completed: after %d\n", c.MinYear))
	b.WriteString(fmt.Sprintf("Matched: %d\n", d.Matched))

	b.WriteString("\n[TABLE]\n")
	writeTable(&b, d.Table)

	if d.Map != nil {
		b.WriteString(fmt.Sprintf("\n[MAP: %s]\n", d.Map.Mode))
		if d.Map.Center != nil {
			b.WriteString(fmt.Sprintf("Center: %.4f, %.4f (zoom %d)\n", d.Map.Center.Latitude, d.Map.Center.Longitude, d.Map.Center.Zoom))
		}
		switch d.Map.Mode {
		case MapDensity:
			for _, cell := range d.Map.Cells {
				b.WriteString(fmt.Sprintf("- cell %.2f, %.2f: %d building(s)\n", cell.Latitude, cell.Longitude, cell.Buildings))
			}
		default:
			writeTable(&b, d.Map.Points)
		}
	}

	if d.Pie != nil {
		b.WriteString("\n[PROPORTIONS]\n")
		for i, label := range d.Pie.Labels {
			if i >= len(d.Pie.Counts) {
				break
			}
			mark := ""
			if d.Pie.Explode[i] > 0 {
				mark = " *"
			}
			b.WriteString(fmt.Sprintf("- %s: %d (%.2f%%)%s\n", label, d.Pie.Counts[i], d.Pie.Percent[i], mark))
		}
	}

	if d.Bar != nil {
		b.WriteString("\n[AVERAGE HEIGHT]\n")
		b.WriteString(d.Bar.Title)
		b.WriteString("\n")
		for _, a := range d.Bar.Bars {
			b.WriteString(fmt.Sprintf("- %s: %.1f %s\n", a.City, a.Feet, strings.ToLower(d.Bar.YLabel)))
		}
	}

	var notes []string
	if d.Matched == 0 {
		if len(c.Cities) == 0 {
			notes = append(notes, "no cities selected; select at least one city to see charts")
		} else {
			notes = append(notes, "no skyscrapers match the current filters")
		}
	}
	if d.Map != nil && d.Map.Unplaced > 0 {
		notes = append(notes, fmt.Sprintf("%d matching record(s) have no coordinates", d.Map.Unplaced))
	}
	for _, s := range d.SkippedHeights {
		notes = append(notes, fmt.Sprintf("skipped record %s (%s): height %q not parsable", s.ID, s.City, s.Raw))
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

func writeTable(b *strings.Builder, t *pipeline.Table) {
	if t == nil || len(t.Rows) == 0 {
		b.WriteString("(no rows)\n")
		return
	}
	b.WriteString("| RANK | ")
	b.WriteString(strings.Join(t.Columns, " | "))
	b.WriteString(" |\n|")
	for i := 0; i <= len(t.Columns); i++ {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")
	for _, r := range t.Rows {
		b.WriteString("| ")
		b.WriteString(safeVal(r.ID))
		for _, v := range r.Values {
			b.WriteString(" | ")
			b.WriteString(safeVal(v))
		}
		b.WriteString(" |\n")
	}
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
