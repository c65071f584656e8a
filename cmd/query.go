package cmd

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/skyscope/internal/dashboard"
	"github.com/KaramelBytes/skyscope/internal/pipeline"
	"github.com/KaramelBytes/skyscope/internal/utils"
	"github.com/spf13/cobra"
)

var (
	qCities    []string
	qMaxFloors int
	qMinYear   int
	qView      string
	qColor     string
	qFormat    string
	qOutput    string
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Filter the dataset and render every dashboard view",
	Long: `Filter skyscrapers by city, floor count and completion year, then render the
table, map, proportion and average-height views as Markdown or JSON.

Example:
  skyscope query --city Dubai --city "New York City" --max-floors 60 --min-year 2000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		log := newLogger(cmd, c)
		policy, err := heightPolicy(c)
		if err != nil {
			return err
		}
		req := dashboard.Request{
			Criteria: pipeline.Criteria{
				Cities:    qCities,
				MaxFloors: c.DefaultMaxFloors,
				MinYear:   c.DefaultMinYear,
			},
			MapView:  dashboard.MapMode(c.DefaultMapView),
			BarColor: c.BarColor,
		}
		if cmd.Flags().Changed("max-floors") {
			req.Criteria.MaxFloors = qMaxFloors
		}
		if cmd.Flags().Changed("min-year") {
			req.Criteria.MinYear = qMinYear
		}
		if qView != "" {
			req.MapView = dashboard.MapMode(qView)
		}
		if qColor != "" {
			req.BarColor = qColor
		}
		format := strings.ToLower(strings.TrimSpace(qFormat))
		if format != "markdown" && format != "md" && format != "json" {
			return fmt.Errorf("unsupported --format: %s (use markdown|json)", qFormat)
		}

		ds, err := loadDataset(cmd.Context(), c, log)
		if err != nil {
			return err
		}
		d, err := dashboard.Build(ds, req, dashboard.Options{HeightPolicy: policy, DensityCellDeg: c.DensityCellDeg})
		if err != nil {
			return err
		}
		log.WithRun(d.RunID).Debug("dashboard built", "matched", d.Matched)
		if len(d.SkippedHeights) > 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "⚠ Warning: skipped %d record(s) with unparsable heights\n", len(d.SkippedHeights))
		}

		var out []byte
		if format == "json" {
			if out, err = d.JSON(); err != nil {
				return err
			}
			out = append(out, '\n')
		} else {
			out = []byte(d.Markdown())
		}
		if qOutput != "" {
			if err := utils.SafeWriteFile(qOutput, out); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote dashboard (%d matching) to %s\n", d.Matched, qOutput)
			return nil
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringArrayVar(&qCities, "city", nil, "city to include (repeatable); no city means an empty selection")
	queryCmd.Flags().IntVar(&qMaxFloors, "max-floors", 0, "keep buildings with fewer floors than this (default from config)")
	queryCmd.Flags().IntVar(&qMinYear, "min-year", 0, "keep buildings completed after this year (default from config)")
	queryCmd.Flags().StringVar(&qView, "view", "", "map view: locations or density (default from config)")
	queryCmd.Flags().StringVar(&qColor, "color", "", "height chart colour: red, pink, orange or purple (default from config)")
	queryCmd.Flags().StringVar(&qFormat, "format", "markdown", "output format: markdown or json")
	queryCmd.Flags().StringVarP(&qOutput, "output", "o", "", "write output to file instead of stdout")
}
