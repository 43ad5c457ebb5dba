package main

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/Faultbox/scanlab/internal/engine/registry"
	"github.com/Faultbox/scanlab/internal/session"
)

var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Load a reference and overlay the extracted reference mesh",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExtract(cmd.Context(), cmd.OutOrStdout(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
}

func runExtract(ctx context.Context, w io.Writer, path string) error {
	s, err := newSession()
	if err != nil {
		return err
	}

	f, err := session.ReadFile(path, registry.RoleReference)
	if err != nil {
		return err
	}
	if err := s.Load(ctx, f); err != nil {
		return err
	}
	if _, err := s.ToggleExtraction(ctx); err != nil {
		return err
	}
	return printSnapshot(w, s.Snapshot())
}
