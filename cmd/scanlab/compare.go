package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Faultbox/scanlab/internal/engine/align"
	"github.com/Faultbox/scanlab/internal/engine/diff"
	"github.com/Faultbox/scanlab/internal/engine/registry"
	"github.com/Faultbox/scanlab/internal/session"
)

var compareCmd = &cobra.Command{
	Use:   "compare <reference> <scan>",
	Short: "Align a scan onto a reference and report the difference",
	Long: `Loads both meshes concurrently, enters calibration, shows the comparison
and prints the alignment result, the difference statistics and the color
histogram of the scan.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCompare(cmd.Context(), cmd.OutOrStdout(), args[0], args[1])
	},
}

func init() {
	rootCmd.AddCommand(compareCmd)
}

func runCompare(ctx context.Context, w io.Writer, referencePath, scanPath string) error {
	s, err := newSession()
	if err != nil {
		return err
	}

	reference, err := session.ReadFile(referencePath, registry.RoleReference)
	if err != nil {
		return err
	}
	scan, err := session.ReadFile(scanPath, registry.RoleScan)
	if err != nil {
		return err
	}
	if err := s.LoadAll(ctx, []session.File{reference, scan}); err != nil {
		return err
	}

	if state, err := s.ToggleCalibration(ctx); err != nil {
		return err
	} else if state != align.Calibrating {
		return fmt.Errorf("calibration did not start")
	}
	if vis, err := s.ToggleComparison(ctx); err != nil {
		return err
	} else if vis != diff.Shown {
		return fmt.Errorf("comparison did not start")
	}

	if res, ok := s.LastAlignment(); ok {
		fmt.Fprintf(w, "alignment:  %s\n", res.Strategy)
		fmt.Fprintf(w, "  rmse:       %.6f\n", res.RMSE)
		fmt.Fprintf(w, "  quality:    %s\n", res.Quality)
		fmt.Fprintf(w, "  iterations: %d (converged %t)\n", res.Iterations, res.Converged)
		fmt.Fprintf(w, "  position:   %s\n", formatVec(res.Transform.Position))
		fmt.Fprintf(w, "  rotation:   %s\n", formatVec(res.Transform.Rotation))
	}
	if report, ok := s.LastDifference(); ok {
		fmt.Fprintf(w, "difference: %s\n", report.Strategy)
		printStats(w, "reference", report.Reference)
		printStats(w, "scan", report.Scan)
	}

	v, _ := s.Asset(registry.RoleScan)
	fmt.Fprintln(w)
	return printHistogram(w, v.Colors)
}

func printStats(w io.Writer, label string, st diff.Stats) {
	if st.Count == 0 {
		return
	}
	fmt.Fprintf(w, "  %-10s n=%d min=%.4f max=%.4f mean=%.4f rms=%.4f\n",
		label, st.Count, st.Min, st.Max, st.Mean, st.RMS)
}
