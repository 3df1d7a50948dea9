package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/RyanBlaney/genre-mood-classifier/internal/app"
	"github.com/RyanBlaney/genre-mood-classifier/pkg/common"
)

const envPrefix = "GENREMOOD"

var (
	configFile string
	verbose    bool
	logLevel   string
	logFormat  string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "genremood",
	Short: "Music genre classification and mood mapping",
	Long: `Classify short music recordings into a genre and map the genre to a mood.

The pipeline runs in stages, each reading the previous stage's output:
  curate   filter the raw dataset into a clean, duplicate-free track list
  extract  compute a 173-value feature vector for every clean track
  train    fit the scaler and random forest and publish the model pair
  predict  classify one recording and print its genre and mood
  serve    expose prediction over an HTTP JSON API

Paths and parameters come from the configuration file (genremood.yaml),
GENREMOOD_* environment variables, or the built-in defaults.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initializeConfig(cmd)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(reportError(err, os.Stdout, os.Stderr))
	}
}

// reportError prints a failed command's error and returns the exit status.
// Usage messages are regular program output and go to stdout with status 2.
func reportError(err error, stdout, stderr io.Writer) int {
	var pipelineErr *common.Error
	if errors.As(err, &pipelineErr) && pipelineErr.Code == common.ErrCodeUsage {
		fmt.Fprintln(stdout, pipelineErr.Message)
		return 2
	}
	fmt.Fprintf(stderr, "error: %v\n", err)
	return 1
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file (default is ./genremood.yaml, ./configs/genremood.yaml or $HOME/.config/genremood/genremood.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"verbose output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"log format (console, json)")

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("./configs")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "genremood"))
		}
		viper.SetConfigName("genremood")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
		}
	} else if configFile != "" {
		fmt.Fprintf(os.Stderr, "error: failed to read config file %s: %v\n", configFile, err)
		os.Exit(1)
	}
}

// initializeConfig initializes configuration after flags are parsed
func initializeConfig(cmd *cobra.Command) error {
	return bindFlags(cmd, viper.GetViper())
}

// bindFlags binds each cobra flag to its associated viper configuration
func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	var lastErr error

	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		key := strings.ReplaceAll(f.Name, "-", "_")
		envVarSuffix := strings.ToUpper(key)

		if !f.Changed && v.IsSet(key) {
			val := v.Get(key)
			if err := cmd.Flags().Set(f.Name, fmt.Sprintf("%v", val)); err != nil {
				lastErr = err
			}
		}

		if err := v.BindPFlag(key, f); err != nil {
			lastErr = err
		}

		if err := v.BindEnv(key, envPrefix+"_"+envVarSuffix); err != nil {
			lastErr = err
		}
	})

	return lastErr
}

// newApp builds the application from the global flags
func newApp(cmd *cobra.Command) (*app.App, error) {
	return app.NewApp(&app.Context{
		ConfigFile: viper.ConfigFileUsed(),
		Verbose:    verbose,
		LogLevel:   logLevel,
		LogFormat:  logFormat,
		Out:        cmd.OutOrStdout(),
	})
}

// signalContext returns the command context cancelled on SIGINT or SIGTERM
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}
