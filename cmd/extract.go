package cmd

import (
	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Compute feature vectors for the clean track list",
	Long: `Decode every track in the clean track list, compute its 173-value feature
vector (MFCC, chroma, mel, spectral contrast and tonnetz means over the first
30 seconds) and write the feature table. Tracks that fail are reported and
skipped. Vectors are cached by file content, so unchanged tracks are not
recomputed on later runs.`,
	Args: cobra.NoArgs,
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	_, _, err = a.Extract(ctx)
	return err
}
