package cmd

import (
	"github.com/spf13/cobra"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Fit and publish the classifier and scaler",
	Long: `Load the feature table, hold out a stratified test partition, fit the
feature scaler on the training rows only, fit the random forest, print the
evaluation and publish the (classifier, scaler) pair. A failed run leaves
the previously published pair untouched.`,
	Args: cobra.NoArgs,
	RunE: runTrain,
}

func init() {
	rootCmd.AddCommand(trainCmd)
}

func runTrain(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	_, err = a.Train(ctx)
	return err
}
