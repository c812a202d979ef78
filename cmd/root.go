package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/pagelens/pagelens/engine"
	"github.com/pagelens/pagelens/harlog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	verbose bool
	cfgFile string
	Logger  *slog.Logger

	rootCmd = &cobra.Command{
		Use:   "pagelens",
		Short: "A page network telemetry correlation engine",
		Long: `Pagelens ingests resource-timing captures of a running page, enriches
them into structured request records, and compares captures against saved
baselines to detect and classify performance regressions. Captures travel
as HAR documents with vendor extensions for the enrichment data.`,
		Example: `  pagelens inspect capture.har --sort duration --desc
  pagelens compare live.har baseline.har --duration-threshold 150
  pagelens gen sample.har --entries 50 --seed 42`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogger()
		},
	}
)

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default .pagelens.yaml)")

	// will be reconfigured in PersistentPreRun based on flags
	setupLogger()
}

// initConfig loads threshold defaults from a config file when one exists;
// flags still win over the file.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".pagelens")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
	}

	viper.SetDefault("thresholds.duration_ms", engine.DefaultThresholds.Duration)
	viper.SetDefault("thresholds.size_bytes", engine.DefaultThresholds.Size)

	if err := viper.ReadInConfig(); err == nil && verbose {
		GetLogger().Debug("loaded config", "file", viper.ConfigFileUsed())
	}
}

// configuredThresholds returns the threshold values from the config file,
// or the engine defaults.
func configuredThresholds() engine.Thresholds {
	return engine.Thresholds{
		Duration: viper.GetFloat64("thresholds.duration_ms"),
		Size:     viper.GetInt64("thresholds.size_bytes"),
	}
}

// setupLogger configures the global slog logger based on the verbose flag
func setupLogger() {
	var opts *slog.HandlerOptions

	if verbose {
		opts = &slog.HandlerOptions{
			Level:     slog.LevelDebug,
			AddSource: true,
		}
	} else {
		opts = &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}
	}

	handler := slog.NewTextHandler(os.Stderr, opts)
	Logger = slog.New(handler)
	slog.SetDefault(Logger)
}

// GetLogger returns the global logger instance
func GetLogger() *slog.Logger {
	if Logger == nil {
		setupLogger()
	}
	return Logger
}

// ValidateCaptureFile checks that the provided capture file exists and is
// not a directory.
func ValidateCaptureFile(path string) error {
	if path == "" {
		return fmt.Errorf("capture file path is required")
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("capture file does not exist: %s", path)
		}
		return fmt.Errorf("error accessing capture file: %w", err)
	}

	if info.IsDir() {
		return fmt.Errorf("provided path is a directory, not a file: %s", path)
	}

	return nil
}

// loadCapture imports an interchange file into a fresh session.
func loadCapture(path string, thresholds engine.Thresholds) (*engine.Session, *harlog.ImportResult, error) {
	if err := ValidateCaptureFile(path); err != nil {
		return nil, nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open capture file: %w", err)
	}
	defer f.Close()

	result, err := harlog.Read(f)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to import %s: %w", path, err)
	}

	session := engine.NewSession(engine.Config{
		PageURL:    result.PageURL,
		Thresholds: thresholds,
		Logger:     GetLogger(),
	})
	session.Replace(result.Records)
	session.SetNavigationMetrics(result.Navigation)

	GetLogger().Debug("capture loaded",
		"file", path,
		"records", session.Len(),
		"page", result.PageURL)

	return session, result, nil
}
