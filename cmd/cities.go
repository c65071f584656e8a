package cmd

import (
	"fmt"

	"github.com/KaramelBytes/skyscope/internal/pipeline"
	"github.com/KaramelBytes/skyscope/internal/utils"
	"github.com/spf13/cobra"
)

var citiesJSON bool

var citiesCmd = &cobra.Command{
	Use:   "cities",
	Short: "List the distinct cities in the dataset",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		ds, err := loadDataset(cmd.Context(), c, newLogger(cmd, c))
		if err != nil {
			return err
		}
		cities := pipeline.ListCities(ds)
		out := cmd.OutOrStdout()
		if citiesJSON {
			b, err := utils.PrettyJSON(cities)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
			return nil
		}
		for _, city := range cities {
			fmt.Fprintln(out, city)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(citiesCmd)
	citiesCmd.Flags().BoolVar(&citiesJSON, "json", false, "print the cities as a JSON array")
}
