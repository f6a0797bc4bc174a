package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"doccov/internal/config"
	"doccov/internal/engine"
	"doccov/internal/errors"
	"doccov/internal/paths"
	"doccov/internal/slogutil"
	"doccov/internal/version"
)

var (
	verbosity  int
	quiet      bool
	logFormat  string
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "doccov",
	Short: "doccov - documentation coverage and drift for Go packages",
	Long: `doccov extracts a normalized description (an openpkg spec) of a Go package's
exported API, scores how well each export is documented, detects drift
between doc comments and code, runs documented examples in a sandbox and
compares two spec snapshots for breaking changes.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("doccov version {{.Version}}\n")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress all log output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: human or json (default from config)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a config file (default .doccov/config.*)")
}

// loadConfig reads the configuration for the module enclosing dir. A
// missing file yields the defaults.
func loadConfig(dir string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadConfigFromPath(configPath)
	} else {
		root := dir
		if mod, findErr := paths.FindModule(dir); findErr == nil {
			root = mod.Root
		}
		cfg, err = config.LoadConfig(root)
	}
	if err != nil {
		return nil, errors.New(errors.ConfigInvalid, "load configuration", err)
	}
	return cfg, nil
}

// newLogger builds the stderr logger. -v and --quiet win over the
// configured level.
func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	format := cfg.Logging.Format
	if logFormat != "" {
		format = logFormat
	}
	level := slogutil.LevelFromString(cfg.Logging.Level)
	if verbosity > 0 || quiet {
		level = slogutil.LevelFromVerbosity(verbosity, quiet)
	}
	return slogutil.New(w, format, level)
}

// setup loads configuration relative to dir and returns an engine and its
// logger.
func setup(dir string) (*engine.Engine, *slog.Logger, error) {
	cfg, err := loadConfig(dir)
	if err != nil {
		return nil, nil, err
	}
	logger := newLogger(cfg, os.Stderr)
	return engine.New(cfg, logger), logger, nil
}

// entryDir returns the directory an entry argument lives in.
func entryDir(entry string) string {
	if entry == "" {
		return "."
	}
	if info, err := os.Stat(entry); err == nil && !info.IsDir() {
		return filepath.Dir(entry)
	}
	return entry
}

// newContext returns a context cancelled on SIGINT or SIGTERM.
func newContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// openOutput returns stdout or the named file.
func openOutput(path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create %s: %w", path, err)
	}
	return f, f.Close, nil
}
