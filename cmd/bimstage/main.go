// bimstage - building model extraction, staging, and viewport tool.
//
// Ingests a 3D building model, extracts typed entities with
// confidence-scored template matches, lets the operator select what to
// commit, imports the selection, and keeps a viewport synchronized with
// the selection.
package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "bimstage",
		Short: "Building model extraction and staging tool",
		Long: `bimstage - building model extraction, staging, and viewport tool.

Decode a translated building model (GLB), review the extracted areas,
equipment, and materials with their template-match confidence, select
what to commit, and import the selection. The viewport stays in sync
with the selection: highlight, fit, and isolation.`,
	}

	root.AddCommand(newInfoCmd(), newSnapshotCmd(), newViewCmd(), newExtractCmd(), newImportCmd())

	if err := fang.Execute(context.Background(), root); err != nil {
		os.Exit(1)
	}
}
