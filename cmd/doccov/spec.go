package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"doccov/internal/engine"
	"doccov/internal/openpkg"
)

var (
	specMaxDepth        int
	specResolveExternal bool
	specNoCache         bool
	specOutput          string
	specVersion         string
)

var specCmd = &cobra.Command{
	Use:   "spec [entry]",
	Short: "Extract the openpkg spec of a package",
	Long: `Extract a normalized description of the exported API of the package at
entry (a directory or a file inside it; default from config, usually ".").

The spec is served from .doccov/spec.cache.json when no input changed.
Output ending in .zst is written zstd-compressed.

Examples:
  doccov spec                          # current package to stdout
  doccov spec ./pkg/calc -o calc.json  # write to a file
  doccov spec --no-cache -o api.json.zst`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSpec,
}

func init() {
	specCmd.Flags().IntVar(&specMaxDepth, "max-depth", 0, "Maximum type expansion depth (default from config)")
	specCmd.Flags().BoolVar(&specResolveExternal, "resolve-external", false, "Expand types declared in other modules")
	specCmd.Flags().BoolVar(&specNoCache, "no-cache", false, "Bypass the spec cache")
	specCmd.Flags().StringVarP(&specOutput, "output", "o", "", "Write the spec to a file instead of stdout")
	specCmd.Flags().StringVar(&specVersion, "pkg-version", "", "Package version recorded in meta.version")
	rootCmd.AddCommand(specCmd)
}

func runSpec(cmd *cobra.Command, args []string) error {
	entry := firstArg(args)
	eng, logger, err := setup(entryDir(entry))
	if err != nil {
		return err
	}
	ctx, cancel := newContext()
	defer cancel()

	res, err := eng.Spec(ctx, engine.SpecOptions{
		Entry:                entry,
		MaxDepth:             specMaxDepth,
		ResolveExternalTypes: specResolveExternal,
		Version:              specVersion,
		NoCache:              specNoCache,
	})
	if err != nil {
		return err
	}
	logDiagnostics(logger, res.Diagnostics)

	if specOutput != "" {
		if err := openpkg.Save(specOutput, res.Spec); err != nil {
			return err
		}
		logger.Info("spec written",
			"path", specOutput,
			"exports", len(res.Spec.Exports),
			"fromCache", res.FromCache,
		)
		return nil
	}

	data, err := openpkg.Encode(res.Spec)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}

func logDiagnostics(logger *slog.Logger, diags []openpkg.Diagnostic) {
	for _, d := range diags {
		attrs := []any{"file", d.File, "line", d.Line}
		if d.Export != "" {
			attrs = append(attrs, "export", d.Export)
		}
		switch d.Severity {
		case openpkg.SeverityError:
			logger.Error(d.Message, attrs...)
		case openpkg.SeverityWarning:
			logger.Warn(d.Message, attrs...)
		default:
			logger.Info(d.Message, attrs...)
		}
	}
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
