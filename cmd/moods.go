package cmd

import (
	"github.com/spf13/cobra"

	"github.com/RyanBlaney/genre-mood-classifier/internal/app"
	"github.com/RyanBlaney/genre-mood-classifier/internal/mood"
)

var (
	moodsExport   string
	moodsValidate string
)

var moodsCmd = &cobra.Command{
	Use:   "moods",
	Short: "Show, export or validate the genre to mood table",
	Long: `Print the genre to mood table in effect. A custom table can be supplied
through paths.mood_table as a YAML or JSON file with a "moods" map and an
optional "fallback" phrase for genres it does not list.

Examples:
  # Print the table in effect
  genremood moods

  # Write the built-in table as a starting point
  genremood moods --export ./configs/moods.yaml

  # Check a custom table covers the ten trained genres
  genremood moods --validate ./configs/moods.yaml`,
	Args: cobra.NoArgs,
	RunE: runMoods,
}

func init() {
	rootCmd.AddCommand(moodsCmd)

	moodsCmd.Flags().StringVar(&moodsExport, "export", "",
		"write the built-in mood table to this file")
	moodsCmd.Flags().StringVar(&moodsValidate, "validate", "",
		"validate a mood table file")
}

func runMoods(cmd *cobra.Command, args []string) error {
	if moodsExport != "" {
		return app.GenerateExampleMoodTable(moodsExport)
	}
	if moodsValidate != "" {
		return app.ValidateMoodTable(moodsValidate, mood.DefaultTable().Labels())
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.PrintMoods()
}
