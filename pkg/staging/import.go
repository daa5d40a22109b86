package staging

import (
	"context"
	"errors"
	"fmt"
)

// ErrImport wraps per-category import failures.
var ErrImport = errors.New("import failed")

// ImportResult is one category's commit outcome. Produced once per commit
// call and never mutated afterward. LinkedCount counts entities that
// matched an existing record and were linked instead of duplicated.
type ImportResult struct {
	Category      Category `json:"category"`
	ImportedCount int      `json:"importedCount"`
	SkippedCount  int      `json:"skippedCount"`
	LinkedCount   int      `json:"linkedCount"`
}

// TemplateMapping links one selected entity to the catalog template it
// matched.
type TemplateMapping struct {
	ExternalObjectID string `json:"externalObjectId"`
	TemplateID       string `json:"templateId"`
}

// ImportRequest is one category's commit payload.
type ImportRequest struct {
	SelectedIDs      []string          `json:"selectedIds"`
	TemplateMappings []TemplateMapping `json:"templateMappings,omitempty"`
}

// Importer is the per-category import endpoint collaborator.
type Importer interface {
	Import(ctx context.Context, cat Category, req ImportRequest) (ImportResult, error)
}

// Orchestrator converts selection sets into per-category commit requests
// and aggregates the outcomes.
type Orchestrator struct {
	importer Importer
}

// NewOrchestrator creates an orchestrator over the import collaborator.
func NewOrchestrator(importer Importer) *Orchestrator {
	return &Orchestrator{importer: importer}
}

// Commit issues exactly one import call per category with a non-empty
// selection; empty categories are skipped entirely, no empty-payload call
// is made. Each category's call is independently error-scoped: one
// category failing never discards the results of categories that already
// succeeded. The returned results cover the categories that succeeded;
// the error, if any, aggregates the ones that did not.
func (o *Orchestrator) Commit(ctx context.Context, sel *Selection, extr *Extraction) ([]ImportResult, error) {
	var (
		results []ImportResult
		errs    []error
	)
	for _, cat := range Categories() {
		ids := sel.IDs(cat)
		if len(ids) == 0 {
			continue
		}
		req := ImportRequest{
			SelectedIDs:      ids,
			TemplateMappings: mappingsFor(cat, ids, extr),
		}
		res, err := o.importer.Import(ctx, cat, req)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %s: %v", ErrImport, cat, err))
			continue
		}
		res.Category = cat
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}

// mappingsFor builds the id-to-template mapping for a category, restricted
// to entities that are both selected and carry a template match. Unmatched
// entities import without a template link. Areas never carry mappings.
func mappingsFor(cat Category, selectedIDs []string, extr *Extraction) []TemplateMapping {
	if cat == CategoryArea {
		return nil
	}
	var out []TemplateMapping
	for _, id := range selectedIDs {
		base, ok := extr.Base(cat, id)
		if !ok || !base.Matched() {
			continue
		}
		out = append(out, TemplateMapping{
			ExternalObjectID: id,
			TemplateID:       base.MatchedTemplateID,
		})
	}
	return out
}

// TotalImported sums ImportedCount across results. This is the number the
// operator sees in the success notification.
func TotalImported(results []ImportResult) int {
	n := 0
	for _, r := range results {
		n += r.ImportedCount
	}
	return n
}
