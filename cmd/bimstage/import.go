package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"fortio.org/log"
	"github.com/spf13/cobra"

	"github.com/taigrr/bimstage/pkg/staging"
	"github.com/taigrr/bimstage/pkg/viewer"
)

func newImportCmd() *cobra.Command {
	var (
		skipProblems bool
		deselect     []string
		attachViewer bool
	)
	cmd := &cobra.Command{
		Use:   "import <model-ref>",
		Short: "Extract entities and commit the selection",
		Long: `Extract tagged entities from a model, adjust the selection, and
commit it as a batch import. Each category imports independently; a
failure in one category does not roll back the others.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, args[0], skipProblems, deselect, attachViewer)
		},
	}
	cmd.Flags().BoolVar(&skipProblems, "skip-problems", false, "Deselect low-confidence matches before committing")
	cmd.Flags().StringSliceVar(&deselect, "deselect", nil, "Object ids to deselect, as category:id")
	cmd.Flags().BoolVar(&attachViewer, "viewer", false, "Mirror the selection to the hosted viewer")
	return cmd
}

func runImport(cmd *cobra.Command, ref string, skipProblems bool, deselect []string, attachViewer bool) error {
	ctx := cmd.Context()
	cfg := LoadConfig()
	client := staging.NewClient(cfg.APIBase, nil)

	var view viewer.Viewer
	if attachViewer {
		cloud, err := viewer.NewCloud(viewer.CloudConfig{
			BaseURL: cfg.ViewerURL,
			Model:   ref,
			Token:   cfg.TokenProvider(),
		})
		if err != nil {
			return err
		}
		if err := cloud.Start(ctx); err != nil {
			return err
		}
		go func() {
			for ev := range cloud.Events() {
				if ev.Type == "object-selected" {
					log.Infof("viewer selected %q", ev.ObjectID)
				}
			}
		}()
		view = cloud
	}

	sess := staging.NewSession(ref, client, client, view, staging.LogNotifier{})
	defer sess.Close()

	if err := sess.Extract(ctx); err != nil {
		return err
	}
	ex := sess.Extraction()

	if skipProblems {
		for _, cat := range staging.Categories() {
			for _, id := range ex.IDs(cat) {
				if base, ok := ex.Base(cat, id); ok && base.Problem() {
					sess.Toggle(cat, id)
				}
			}
		}
	}
	for _, spec := range deselect {
		cat, id, err := splitSelector(spec)
		if err != nil {
			return err
		}
		if !sess.Selection().Has(cat, id) {
			return fmt.Errorf("deselect %s: not selected", spec)
		}
		sess.Toggle(cat, id)
	}

	if !sess.CanCommit() {
		return fmt.Errorf("nothing left selected, not committing")
	}
	fmt.Printf("Committing %d entities from %s\n", sess.Selection().Total(), ref)

	results, err := sess.Commit(ctx)
	printResults(results)
	return err
}

// splitSelector parses "category:id" flags.
func splitSelector(spec string) (staging.Category, string, error) {
	for _, cat := range staging.Categories() {
		prefix := string(cat) + ":"
		if len(spec) > len(prefix) && spec[:len(prefix)] == prefix {
			return cat, spec[len(prefix):], nil
		}
	}
	return "", "", fmt.Errorf("bad selector %q, want category:id", spec)
}

func printResults(results []staging.ImportResult) {
	if len(results) == 0 {
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 2, 8, 2, ' ', 0)
	defer w.Flush()
	fmt.Fprintln(w, "CATEGORY\tIMPORTED\tSKIPPED\tLINKED")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\n", r.Category, r.ImportedCount, r.SkippedCount, r.LinkedCount)
	}
	fmt.Fprintf(w, "total imported: %d\n", staging.TotalImported(results))
}
