package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/RyanBlaney/genre-mood-classifier/configs"
	"github.com/RyanBlaney/genre-mood-classifier/internal/app"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and validate configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display every effective configuration value",
	Long: `Load the configuration and display all values to verify that the YAML
file and GENREMOOD_* environment variables are parsed as intended.

Examples:
  # Show the effective configuration
  genremood config show

  # Show a specific config file
  genremood --config /path/to/genremood.yaml config show`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate <config-file>",
	Short: "Validate a configuration file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := app.ValidateConfigFile(args[0])
		return err
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	fmt.Println("GENREMOOD CONFIGURATION")
	fmt.Println(strings.Repeat("=", 80))

	config, err := configs.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := configs.ValidateConfig(config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	printSection("APPLICATION SETTINGS")
	printKeyValue("Verbose", fmt.Sprintf("%t", config.Verbose))
	printKeyValue("Log Level", config.LogLevel)
	printKeyValue("Log Format", config.LogFormat)

	printSection("PATHS")
	printKeyValue("Dataset Directory", config.Paths.DatasetDir)
	printKeyValue("Clean Track List", config.Paths.TrackList)
	printKeyValue("Feature Table", config.Paths.FeatureTable)
	printKeyValue("Feature Cache", orNone(config.Paths.FeatureCache))
	printKeyValue("Model", config.Paths.ModelPath())
	printKeyValue("Scaler", config.Paths.ScalerPath())
	printKeyValue("Mood Table", orDefault(config.Paths.MoodTable))

	printSection("CURATION")
	printKeyValue("Extensions", strings.Join(config.Curation.Extensions, ", "))
	printKeyValue("Probe Duration", config.Curation.ProbeDuration.String())
	printKeyValue("Silence Epsilon", fmt.Sprintf("%g", config.Curation.SilenceEpsilon))
	printKeyValue("Target Duration", config.Curation.TargetDuration.String())
	printKeyValue("Tolerance", config.Curation.Tolerance.String())
	printKeyValue("Workers", workers(config.Curation.Workers))

	printSection("AUDIO FEATURES")
	printKeyValue("Sample Rate", fmt.Sprintf("%d Hz", config.Audio.SampleRate))
	printKeyValue("Duration", config.Audio.Duration.String())
	printKeyValue("Window Size", fmt.Sprintf("%d", config.Audio.WindowSize))
	printKeyValue("Hop Size", fmt.Sprintf("%d", config.Audio.HopSize))
	printKeyValue("Contrast fmin", fmt.Sprintf("%g Hz", config.Audio.ContrastFMin))
	printKeyValue("HPSS Kernel", fmt.Sprintf("%d", config.Audio.HPSSKernel))
	printKeyValue("HPSS Margin", fmt.Sprintf("%g", config.Audio.HPSSMargin))
	printKeyValue("Signature", config.Audio.Signature())

	printSection("TRAINING")
	printKeyValue("Test Size", fmt.Sprintf("%.2f", config.Training.TestSize))
	printKeyValue("Seed", fmt.Sprintf("%d", config.Training.Seed))
	printKeyValue("Trees", fmt.Sprintf("%d", config.Training.Trees))
	printKeyValue("Max Depth", fmt.Sprintf("%d", config.Training.MaxDepth))
	printKeyValue("Min Samples Split", fmt.Sprintf("%d", config.Training.MinSamplesSplit))
	printKeyValue("Min Samples Leaf", fmt.Sprintf("%d", config.Training.MinSamplesLeaf))
	printKeyValue("Workers", workers(config.Training.Workers))

	printSection("SERVER")
	printKeyValue("Address", config.Server.Address)
	printKeyValue("Max Upload", fmt.Sprintf("%d bytes", config.Server.MaxUploadBytes))
	printKeyValue("Allowed Origins", strings.Join(config.Server.AllowedOrigins, ", "))
	printKeyValue("Read Timeout", config.Server.ReadTimeout.String())
	printKeyValue("Write Timeout", config.Server.WriteTimeout.String())

	printSection("TELEMETRY")
	printKeyValue("StatsD Address", orNone(config.Telemetry.StatsdAddress))
	printKeyValue("Namespace", config.Telemetry.Namespace)
	if len(config.Telemetry.Tags) > 0 {
		printKeyValue("Tags", strings.Join(config.Telemetry.Tags, ", "))
	}

	fmt.Println()
	fmt.Println(strings.Repeat("-", 80))
	fmt.Println("CONFIGURATION LOADED SUCCESSFULLY")
	fmt.Printf("Config file: %s\n", orNone(viper.ConfigFileUsed()))
	fmt.Println(strings.Repeat("=", 80))

	return nil
}

func printSection(title string) {
	fmt.Printf("\n%s\n", title)
	fmt.Println(strings.Repeat("-", len(title)))
}

func printKeyValue(key, value string) {
	if value == "" {
		fmt.Printf("%-35s\n", key)
	} else {
		fmt.Printf("%-35s %s\n", key+":", value)
	}
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func orDefault(s string) string {
	if s == "" {
		return "(built-in)"
	}
	return s
}

func workers(n int) string {
	if n <= 0 {
		return "all CPUs"
	}
	return fmt.Sprintf("%d", n)
}
