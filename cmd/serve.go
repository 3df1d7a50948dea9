package cmd

import (
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve genre and mood prediction over HTTP",
	Long: `Load the published model once and serve a JSON API:

  POST /api/v1/predict   raw audio body or multipart "file" field
  GET  /api/v1/moods     the genre to mood table
  GET  /api/v1/genres    the genres the model predicts
  GET  /healthz          liveness

Start-up fails when no trained model is available.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("address", "", "listen address (overrides server.address)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if addr, _ := cmd.Flags().GetString("address"); addr != "" {
		a.Config().Server.Address = addr
	}
	return a.Serve(ctx)
}
