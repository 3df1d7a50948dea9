package cmd

import (
	"github.com/spf13/cobra"

	"github.com/RyanBlaney/genre-mood-classifier/pkg/common"
)

const predictUsage = "🎵 Usage: genremood predict <path_to_audio>"

var predictCmd = &cobra.Command{
	Use:   "predict <path_to_audio>",
	Short: "Predict the genre and mood of one recording",
	Long: `Classify one WAV or MP3 recording with the published model and print the
predicted genre and its mood. The model is never trained implicitly: run
the train stage first.`,
	RunE: runPredict,
}

func init() {
	rootCmd.AddCommand(predictCmd)
}

func runPredict(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return common.NewError(common.StagePredict, "", common.ErrCodeUsage, predictUsage, nil)
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	_, err = a.Predict(ctx, args[0])
	return err
}
