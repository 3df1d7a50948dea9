package cmd

import (
	"github.com/spf13/cobra"
)

var curateCmd = &cobra.Command{
	Use:   "curate",
	Short: "Filter the raw dataset into a clean track list",
	Long: `Walk the dataset directory (one sub-directory per genre) and check every
audio file, in order, for corruption, silence, a duration outside the target
window and byte-identical duplicates. Accepted files are written to the clean
track list. No file is ever modified or deleted.

Examples:
  # Curate the dataset named in the configuration
  genremood curate

  # Curate with a custom configuration file
  genremood --config ./configs/genremood.yaml curate`,
	Args: cobra.NoArgs,
	RunE: runCurate,
}

func init() {
	rootCmd.AddCommand(curateCmd)
}

func runCurate(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	_, err = a.Curate(ctx)
	return err
}
