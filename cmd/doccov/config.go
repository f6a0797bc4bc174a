package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"doccov/internal/config"
	"doccov/internal/errors"
	"doccov/internal/paths"
)

var (
	configInitFormat string
	configInitForce  bool
	configShowFormat string
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage doccov configuration",
	Long:  "View and manage doccov configuration stored in .doccov/config.{json,yaml,toml}",
}

var configInitCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Write a configuration file with the defaults",
	Long: `Write .doccov/config.json (or config.toml with --format toml) at the root
of the module enclosing dir.

Examples:
  doccov config init
  doccov config init --format toml --force`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show [dir]",
	Short: "Show the effective configuration",
	Long:  "Display the configuration after defaults, the config file and DOCCOV_ environment overrides.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigShow,
}

func init() {
	configInitCmd.Flags().StringVar(&configInitFormat, "format", "json", "File format (json, toml)")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing configuration")
	configShowCmd.Flags().StringVar(&configShowFormat, "format", "json", "Output format (json, toml)")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	root, err := moduleRoot(firstArg(args))
	if err != nil {
		return err
	}

	if !configInitForce {
		for _, ext := range []string{"json", "yaml", "toml"} {
			existing := filepath.Join(paths.ConfigDir(root), "config."+ext)
			if _, err := os.Stat(existing); err == nil {
				return errors.Newf(errors.ConfigInvalid, "%s already exists (use --force to overwrite)", existing)
			}
		}
	}

	cfg := config.DefaultConfig()
	name := "config." + configInitFormat
	switch configInitFormat {
	case "json":
		err = cfg.Save(root)
	case "toml":
		err = cfg.SaveTOML(root)
	default:
		return errors.Newf(errors.InvalidRequest, "unsupported format %q (want json or toml)", configInitFormat)
	}
	if err != nil {
		return errors.New(errors.ConfigInvalid, "write configuration", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", filepath.Join(paths.ConfigDir(root), name))
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	dir := firstArg(args)
	if dir == "" {
		dir = "."
	}
	cfg, err := loadConfig(dir)
	if err != nil {
		return err
	}
	if configShowFormat == "toml" {
		return writeTOML(cmd.OutOrStdout(), cfg)
	}
	return writeJSON(cmd.OutOrStdout(), cfg)
}

func writeTOML(w io.Writer, cfg *config.Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// moduleRoot returns the root of the module enclosing dir, or dir itself
// outside a module.
func moduleRoot(dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	if mod, err := paths.FindModule(dir); err == nil {
		return mod.Root, nil
	}
	return filepath.Abs(dir)
}
