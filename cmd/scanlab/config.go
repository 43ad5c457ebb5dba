package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Faultbox/scanlab/internal/config"
	"github.com/Faultbox/scanlab/internal/logger"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the scanlab config file",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the effective config as YAML",
	Long: `Writes the effective configuration (defaults, config file and flags
merged) to path, or to config.yaml in the user config directory when no path
is given. An existing file is kept unless --force is set.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := filepath.Join(config.ConfigDir(), "config.yaml")
		if len(args) > 0 {
			path = args[0]
		}
		return runConfigInit(cmd.OutOrStdout(), path, configForce)
	},
}

func init() {
	configInitCmd.Flags().BoolVarP(&configForce, "force", "f", false, "Overwrite an existing config file")
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigInit(w io.Writer, path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	if err := cfg.SaveTo(path); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	logger.Sugar.Infof("wrote config to %s", path)
	fmt.Fprintln(w, path)
	return nil
}
