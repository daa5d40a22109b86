package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/taigrr/bimstage/pkg/geom"
	"github.com/taigrr/bimstage/pkg/math3d"
	"github.com/taigrr/bimstage/pkg/scene"
	"github.com/taigrr/bimstage/pkg/viewer"
)

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <model.glb>",
		Short: "Display model information",
		Long:  "Display information about a building model: instance, vertex, and triangle counts, bounding box, and per-object mesh counts.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(cmd, args[0])
		},
	}
}

func runInfo(cmd *cobra.Command, ref string) error {
	cfg := LoadConfig()
	src, err := cfg.Source(ref)
	if err != nil {
		return err
	}
	buf, err := src.Fetch(cmd.Context(), ref)
	if err != nil {
		return err
	}

	registry := scene.NewRegistry()
	count, err := viewer.LoadModel(geom.NewGLBKernel(), buf, geom.OpenOptions{}, registry)
	if err != nil {
		return err
	}

	vertices, triangles := 0, 0
	bounds := math3d.EmptyBox3()
	for _, m := range registry.All() {
		vertices += m.VertexCount()
		triangles += m.TriangleCount()
		bounds = bounds.Union(m.Bounds)
	}

	fmt.Printf("File:       %s\n", filepath.Base(ref))
	fmt.Printf("Size:       %.2f KB\n", float64(len(buf))/1024)
	fmt.Println()
	fmt.Printf("Objects:    %d\n", len(registry.IDs()))
	fmt.Printf("Meshes:     %d\n", count)
	fmt.Printf("Vertices:   %d\n", vertices)
	fmt.Printf("Triangles:  %d\n", triangles)
	if !bounds.IsEmpty() {
		size := bounds.Size()
		center := bounds.Center()
		fmt.Println()
		fmt.Printf("Bounds Min: (%.3f, %.3f, %.3f)\n", bounds.Min.X, bounds.Min.Y, bounds.Min.Z)
		fmt.Printf("Bounds Max: (%.3f, %.3f, %.3f)\n", bounds.Max.X, bounds.Max.Y, bounds.Max.Z)
		fmt.Printf("Dimensions: %.3f x %.3f x %.3f\n", size.X, size.Y, size.Z)
		fmt.Printf("Center:     (%.3f, %.3f, %.3f)\n", center.X, center.Y, center.Z)
	}
	return nil
}
