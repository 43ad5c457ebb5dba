package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Faultbox/scanlab/pkg/formats"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Show format, vertex count and bounds of a mesh",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInspect(cmd.OutOrStdout(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(w io.Writer, path string) error {
	mesh, err := formats.ParseFile(path)
	if err != nil {
		return err
	}

	b := mesh.Bounds()
	fmt.Fprintf(w, "file:      %s\n", path)
	fmt.Fprintf(w, "format:    %s\n", mesh.Format)
	if mesh.Header != "" {
		fmt.Fprintf(w, "header:    %s\n", mesh.Header)
	}
	fmt.Fprintf(w, "vertices:  %d\n", mesh.VertexCount())
	fmt.Fprintf(w, "triangles: %d\n", mesh.TriangleCount())
	fmt.Fprintf(w, "indexed:   %t\n", mesh.Indices != nil)
	fmt.Fprintf(w, "colors:    %t\n", mesh.Colors != nil)
	fmt.Fprintf(w, "bounds:    %s\n", formatBounds(b))
	fmt.Fprintf(w, "size:      %s\n", formatVec(b.Size()))
	return nil
}
