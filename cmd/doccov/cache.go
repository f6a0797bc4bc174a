package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"doccov/internal/errors"
	"doccov/internal/paths"
	"doccov/internal/speccache"
)

var cacheFormat string

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the spec cache",
	Long:  "Inspect or clear the spec cache stored in .doccov/spec.cache.json",
}

var cacheStatusCmd = &cobra.Command{
	Use:   "status [dir]",
	Short: "Show the spec cache of the enclosing module",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCacheStatus,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear [dir]",
	Short: "Remove the spec cache of the enclosing module",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCacheClear,
}

func init() {
	cacheStatusCmd.Flags().StringVar(&cacheFormat, "format", "human", "Output format (human, json)")
	cacheCmd.AddCommand(cacheStatusCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

// cacheStore opens the cache of the module enclosing dir.
func cacheStore(args []string) (*speccache.Store, error) {
	dir := firstArg(args)
	if dir == "" {
		dir = "."
	}
	mod, err := paths.FindModule(dir)
	if err != nil {
		return nil, errors.New(errors.EntryNotFound, "locate go.mod", err)
	}
	return speccache.New(mod.Root, nil), nil
}

func runCacheStatus(cmd *cobra.Command, args []string) error {
	store, err := cacheStore(args)
	if err != nil {
		return err
	}
	st := store.Status()

	if cacheFormat == "json" {
		return writeJSON(cmd.OutOrStdout(), st)
	}

	var b strings.Builder
	b.WriteString("Spec Cache\n")
	b.WriteString(strings.Repeat("─", 50) + "\n")
	b.WriteString(fmt.Sprintf("  Path:      %s\n", st.Path))
	if !st.Exists {
		b.WriteString("  Status:    empty\n")
		_, err := fmt.Fprint(cmd.OutOrStdout(), b.String())
		return err
	}
	b.WriteString(fmt.Sprintf("  Size:      %s\n", formatBytes(st.Size)))
	if st.GeneratedAt == "" {
		b.WriteString("  Status:    unreadable (will be rebuilt)\n")
	} else {
		b.WriteString(fmt.Sprintf("  Generated: %s\n", st.GeneratedAt))
		b.WriteString(fmt.Sprintf("  Entry:     %s\n", st.EntryFile))
		b.WriteString(fmt.Sprintf("  Files:     %d\n", st.Files))
		b.WriteString(fmt.Sprintf("  Exports:   %d\n", st.Exports))
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), b.String())
	return err
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	store, err := cacheStore(args)
	if err != nil {
		return err
	}
	if err := store.Clear(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", store.Path())
	return nil
}

// formatBytes formats byte size in human-readable format
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
