package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/memkit/internal/config"
	"github.com/joshuapare/memkit/internal/logger"
	"github.com/joshuapare/memkit/report"
)

var (
	// Global flags
	configPath string
	verbose    bool
	quiet      bool
	jsonOut    bool
	noColor    bool
	logFile    string
	logLevel   string

	// cfg is loaded before every command runs.
	cfg = config.Default()

	closeLog = func() error { return nil }
)

var rootCmd = &cobra.Command{
	Use:   "memctl",
	Short: "Demonstrate and benchmark region-based allocators",
	Long: `memctl exercises the memkit allocators: a bump allocator, a fixed-size
pool, a stack with rollback markers, and a first-fit free list with
coalescing. Each command works on regions it reserves itself.`,
	Version:            "0.1.0",
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output and debug logging")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Append structured logs to this file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
}

// setup loads the configuration and starts logging.
func setup(cmd *cobra.Command, args []string) error {
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	level, err := logger.ParseLevel(logLevel)
	if err != nil {
		return err
	}
	if verbose {
		level = slog.LevelDebug
	}
	closeLog, err = logger.Init(logger.Options{
		Enabled: verbose || logFile != "",
		Path:    logFile,
		Level:   level,
		JSON:    jsonOut,
	})
	if err != nil {
		return fmt.Errorf("failed to init logging: %w", err)
	}
	logger.Debug("memctl starting", "command", cmd.Name(), "config", configPath)
	return nil
}

// teardown flushes and closes the log file, if any.
func teardown(cmd *cobra.Command, args []string) error {
	err := closeLog()
	closeLog = func() error { return nil }
	return err
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...any) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...any) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// reportOptions returns status rendering options from flags and config.
func reportOptions() *report.Options {
	return &report.Options{
		Width: cfg.Report.BarWidth,
		Color: !noColor,
	}
}
