package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/philipparndt/stlcheck/pkg/analysis"
	"github.com/philipparndt/stlcheck/pkg/orientation"
	"github.com/philipparndt/stlcheck/pkg/stl"
)

func newInfoCmd() *cobra.Command {
	var (
		longest  int
		shortest int
	)
	cmd := &cobra.Command{
		Use:   "info [file]",
		Short: "Display general information about an STL file",
		Long:  "Show dimensions, facet and edge counts, surface area, volume, watertightness and the recommended print orientation.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mesh, err := stl.LoadFile(args[0])
			if err != nil {
				return fmt.Errorf("error parsing STL file: %w", err)
			}
			return printInfo(cmd.Context(), cmd.OutOrStdout(), args[0], mesh, longest, shortest)
		},
	}
	cmd.Flags().IntVarP(&longest, "longest", "l", 0, "Also list the N longest edges")
	cmd.Flags().IntVarP(&shortest, "shortest", "s", 0, "Also list the N shortest edges")
	return cmd
}

func printInfo(ctx context.Context, w io.Writer, filename string, mesh *stl.Mesh, longest, shortest int) error {
	result := analysis.Measure(mesh)
	defects, err := analysis.Analyze(ctx, mesh, analysis.DefaultOptions())
	if err != nil {
		return err
	}
	orient, err := orientation.New(orientation.DefaultOptions()).Optimize(ctx, mesh)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, "STL File Information")
	fmt.Fprintln(w, "====================")
	if mesh.Name != "" {
		fmt.Fprintf(w, "Name: %s\n", mesh.Name)
	}
	fmt.Fprintf(w, "File: %s\n\n", filename)

	fmt.Fprintln(w, "Model Statistics:")
	fmt.Fprintf(w, "  Solids: %d\n", result.SolidCount)
	fmt.Fprintf(w, "  Facets: %d\n", result.FacetCount)
	fmt.Fprintf(w, "  Vertices: %d\n", result.VertexCount)
	fmt.Fprintf(w, "  Edges: %d (%d boundary, %d non-manifold)\n", result.EdgeCount, result.BoundaryEdges, result.NonManifoldEdges)
	fmt.Fprintf(w, "  Surface Area: %.6f square units\n", result.SurfaceArea)
	fmt.Fprintf(w, "  Watertight: %v\n\n", analysis.Watertight(defects))

	fmt.Fprintln(w, "Bounding Box:")
	fmt.Fprintf(w, "  Min: %s\n", analysis.FormatVector(result.BoundingBox.Min))
	fmt.Fprintf(w, "  Max: %s\n", analysis.FormatVector(result.BoundingBox.Max))
	fmt.Fprintf(w, "  Center: %s\n\n", analysis.FormatVector(result.BoundingBox.Center()))

	fmt.Fprintln(w, "Dimensions:")
	fmt.Fprintf(w, "  Width (X): %.6f units\n", result.Dimensions.X)
	fmt.Fprintf(w, "  Depth (Y): %.6f units\n", result.Dimensions.Y)
	fmt.Fprintf(w, "  Height (Z): %.6f units\n", result.Dimensions.Z)
	fmt.Fprintf(w, "  Diagonal: %.6f units\n", result.BoundingBox.Diagonal())
	fmt.Fprintf(w, "  Volume: %.6f cubic units\n\n", result.Volume)

	fmt.Fprintln(w, "Edge Lengths:")
	fmt.Fprintf(w, "  Minimum: %.6f units\n", result.MinEdgeLength)
	fmt.Fprintf(w, "  Maximum: %.6f units\n", result.MaxEdgeLength)
	fmt.Fprintf(w, "  Average: %.6f units\n\n", result.AvgEdgeLength)

	if len(defects) > 0 {
		fmt.Fprintln(w, "Defects:")
		for _, kind := range analysis.Kinds {
			if n := analysis.Summarize(defects)[kind]; n > 0 {
				fmt.Fprintf(w, "  %s: %d\n", kind, n)
			}
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "Orientation:")
	fmt.Fprintf(w, "  Current cost: %.6f\n", orient.Current.Cost)
	fmt.Fprintf(w, "  Recommended cost: %.6f (%s, down %s)\n",
		orient.Recommended.Cost, orient.Recommended.Source, analysis.FormatVector(orient.Recommended.Down))
	fmt.Fprintf(w, "  Tilt: %.2f degrees\n", orient.DeltaDegrees)
	fmt.Fprintf(w, "  Suboptimal: %v\n", orient.Suboptimal)

	if longest > 0 {
		printEdges(w, fmt.Sprintf("Top %d Longest Edges", longest), analysis.FindLongestEdges(mesh, longest))
	}
	if shortest > 0 {
		printEdges(w, fmt.Sprintf("Top %d Shortest Edges", shortest), analysis.FindShortestEdges(mesh, shortest))
	}
	return nil
}

func printEdges(w io.Writer, title string, edges []analysis.EdgeInfo) {
	fmt.Fprintf(w, "\n%s:\n", title)
	for i, e := range edges {
		fmt.Fprintf(w, "  %d. %s -> %s  length %.6f  facets %d\n",
			i+1, analysis.FormatVector(e.Start), analysis.FormatVector(e.End), e.Length, e.Facets)
	}
}
