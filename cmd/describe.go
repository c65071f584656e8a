package cmd

import (
	"fmt"

	"github.com/KaramelBytes/skyscope/internal/pipeline"
	"github.com/KaramelBytes/skyscope/internal/utils"
	"github.com/spf13/cobra"
)

var (
	descTop    int
	descJSON   bool
	descOutput string
)

var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "Profile the dataset: row counts, city spread and numeric columns",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		ds, err := loadDataset(cmd.Context(), c, newLogger(cmd, c))
		if err != nil {
			return err
		}
		sum := pipeline.Summarize(ds, descTop)

		var out []byte
		if descJSON {
			if out, err = utils.PrettyJSON(sum); err != nil {
				return err
			}
			out = append(out, '\n')
		} else {
			out = []byte(sum.Markdown())
		}
		if descOutput != "" {
			if err := utils.SafeWriteFile(descOutput, out); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote summary to %s\n", descOutput)
			return nil
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	rootCmd.AddCommand(describeCmd)
	describeCmd.Flags().IntVar(&descTop, "top", 10, "number of cities listed by building count")
	describeCmd.Flags().BoolVar(&descJSON, "json", false, "print the summary as JSON")
	describeCmd.Flags().StringVarP(&descOutput, "output", "o", "", "write summary to file instead of stdout")
}
