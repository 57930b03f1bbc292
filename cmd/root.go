package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KaramelBytes/datafix-cli/internal/ai"
	cfgpkg "github.com/KaramelBytes/datafix-cli/internal/config"
	"github.com/KaramelBytes/datafix-cli/internal/logging"
	"github.com/KaramelBytes/datafix-cli/internal/table"
)

var (
	cfgFile string
	debug   bool
	// Retry/HTTP flags (override config if set)
	flagHTTPTimeoutSec   int
	flagRetryMaxAttempts int
	flagRetryBaseDelayMs int
	flagRetryMaxDelayMs  int
	// Table reading
	flagDelimiter string
	flagSheet     string

	// Loaded configuration and the logger built from it
	cfg    *cfgpkg.Global
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "datafix",
	Short: "datafix: clean CSV/XLSX tables with actions, plain-English commands and SQL",
	Long: `datafix applies cleaning actions to tabular data. Actions come from a JSON/YAML
file, from a plain-English instruction, from a small SQL dialect, or from an AI
model via OpenRouter or a local Ollama server. Every run ends with a report of
what was applied and what failed.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.datafix/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().IntVar(&flagHTTPTimeoutSec, "http-timeout", 0, "HTTP client timeout in seconds (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagRetryMaxAttempts, "retry-max", 0, "max retry attempts on 429/5xx (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagRetryBaseDelayMs, "retry-base-ms", 0, "base retry backoff in ms (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagRetryMaxDelayMs, "retry-max-ms", 0, "max retry backoff cap in ms (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' | '|' | auto (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagSheet, "sheet", "", "XLSX: sheet name (default first sheet)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: commands that need config report it via settings()
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		cfg = nil
		logger = fallbackLogger()
		return
	}
	cfg = c

	// Apply CLI overrides if provided
	f := rootCmd.PersistentFlags()
	if f.Changed("http-timeout") && flagHTTPTimeoutSec > 0 {
		cfg.HTTPTimeoutSec = flagHTTPTimeoutSec
	}
	if f.Changed("retry-max") && flagRetryMaxAttempts > 0 {
		cfg.RetryMaxAttempts = flagRetryMaxAttempts
	}
	if f.Changed("retry-base-ms") && flagRetryBaseDelayMs > 0 {
		cfg.RetryBaseDelayMs = flagRetryBaseDelayMs
	}
	if f.Changed("retry-max-ms") && flagRetryMaxDelayMs > 0 {
		cfg.RetryMaxDelayMs = flagRetryMaxDelayMs
	}
	if f.Changed("delimiter") {
		cfg.Delimiter = flagDelimiter
	}

	level := cfg.LogLevel
	if debug {
		level = "debug"
	}
	l, err := logging.New(level, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "⚠ Warning: %v; using defaults\n", err)
		l = fallbackLogger()
	}
	logger = l

	if cfg.ModelsCatalog != "" {
		m, err := ai.LoadCatalog(cfg.ModelsCatalog)
		if err != nil {
			fmt.Fprintf(os.Stderr, "⚠ Warning: models catalog not loaded: %v\n", err)
		} else {
			ai.MergeCatalog(m)
			logger.Debug("Merged model catalog", zap.String("path", cfg.ModelsCatalog), zap.Int("models", len(m)))
		}
	}
}

func fallbackLogger() *zap.Logger {
	level := "warn"
	if debug {
		level = "debug"
	}
	l, err := logging.New(level, "console")
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// settings returns the loaded configuration, surfacing the load error when
// the config file could not be read.
func settings() (*cfgpkg.Global, error) {
	if cfg != nil {
		return cfg, nil
	}
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	cfg = c
	return cfg, nil
}

// tableOptions resolves the delimiter and sheet used to read tables.
func tableOptions() (table.Options, error) {
	c, err := settings()
	if err != nil {
		return table.Options{}, err
	}
	delim, err := table.ParseDelimiter(c.Delimiter)
	if err != nil {
		return table.Options{}, err
	}
	return table.Options{Delimiter: delim, Sheet: flagSheet}, nil
}
