package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/taigrr/bimstage/pkg/staging"
)

func newExtractCmd() *cobra.Command {
	var problemsOnly bool
	cmd := &cobra.Command{
		Use:   "extract <model-ref>",
		Short: "Extract tagged entities from a model and list them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd, args[0], problemsOnly)
		},
	}
	cmd.Flags().BoolVar(&problemsOnly, "problems", false, "Only list low-confidence matches")
	return cmd
}

func runExtract(cmd *cobra.Command, ref string, problemsOnly bool) error {
	cfg := LoadConfig()
	client := staging.NewClient(cfg.APIBase, nil)
	sess := staging.NewSession(ref, client, client, nil, staging.LogNotifier{})
	defer sess.Close()

	if err := sess.Extract(cmd.Context()); err != nil {
		return err
	}
	printExtraction(sess.Extraction(), problemsOnly)
	return nil
}

func printExtraction(ex *staging.Extraction, problemsOnly bool) {
	w := tabwriter.NewWriter(os.Stdout, 2, 8, 2, ' ', 0)
	defer w.Flush()
	for _, cat := range staging.Categories() {
		n := ex.Count(cat)
		if n == 0 {
			continue
		}
		fmt.Fprintf(w, "%s (%d)\n", cat, n)
		fmt.Fprintln(w, "  ID\tNAME\tCONF\tTEMPLATE")
		for _, id := range ex.IDs(cat) {
			base, _ := ex.Base(cat, id)
			if problemsOnly && !base.Problem() {
				continue
			}
			printEntity(w, base)
		}
	}
}

func printEntity(w *tabwriter.Writer, base staging.EntityBase) {
	tmpl := "-"
	if base.Matched() {
		tmpl = base.MatchedTemplateName
	}
	mark := ""
	if base.Problem() {
		mark = " !"
	}
	fmt.Fprintf(w, "  %s\t%s\t%.2f%s\t%s\n", base.ExternalObjectID, base.Name, base.Confidence, mark, tmpl)
}
