// Package cmd contains the CLI commands for enerframe
package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/enerframe/enerframe/pkg/observability"
	"github.com/enerframe/enerframe/pkg/study"
)

//nolint:gochecknoglobals // Global vars needed for cobra CLI
var (
	cfgFile string
	logger  *logrus.Logger
)

// rootCmd represents the base command
//
//nolint:gochecknoglobals // Cobra commands are typically global
var rootCmd = &cobra.Command{
	Use:   "enerframe",
	Short: "EnerFrame - Dataset access, composition and caching for energy-systems analysis",
	Long: `EnerFrame is a dataset access, composition and caching layer: it routes
flag-based data requests to the right source, caches expensive results in a
pluggable backend, and combines fragments from many sources into unified
tables.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error, fatal, panic)")

	// Initialize logger
	logger = logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
}

func initConfig() {
	if cfgFile == "" {
		cfgFile = "./config.yaml"
	}

	// Set log level
	logLevel, err := rootCmd.PersistentFlags().GetString("log-level")
	if err != nil {
		logLevel = "info" // Default to info if error
	}
	level, parseErr := logrus.ParseLevel(logLevel)
	if parseErr != nil {
		logger.WithError(parseErr).Warn("Invalid log level, defaulting to info")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	// Start the metrics endpoint when the study config asks for one. Commands
	// re-load the config themselves; the server is started at most once.
	config, err := study.Load(cfgFile)
	if err != nil {
		logger.WithError(err).Warn("Failed to load study config")

		return
	}

	if config.MetricsAddr != "" {
		observability.StartMetricsServer(config.MetricsAddr)
	}
}
