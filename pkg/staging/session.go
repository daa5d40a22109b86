package staging

import (
	"context"
	"fmt"

	"fortio.org/log"

	"github.com/taigrr/bimstage/pkg/viewer"
)

// Notifier is the one-way toast channel. Both calls are fire-and-forget.
type Notifier interface {
	ShowError(msg string)
	ShowSuccess(msg string)
}

// LogNotifier reports notifications through the log.
type LogNotifier struct{}

func (LogNotifier) ShowError(msg string)   { log.Errf("%s", msg) }
func (LogNotifier) ShowSuccess(msg string) { log.Infof("%s", msg) }

// Session is one review pass over one model: extraction staging, the
// operator's selection, and the viewport kept in sync with it. A session
// is created per extract and discarded on close or model switch; staged
// state is never reused across models.
type Session struct {
	modelRef  string
	extractor Extractor
	commit    *Orchestrator
	view      viewer.Viewer // nil when no viewport is attached
	notify    Notifier

	extraction *Extraction
	selection  *Selection
	isolating  bool
}

// NewSession creates a session for one model. view may be nil.
func NewSession(modelRef string, extractor Extractor, importer Importer, view viewer.Viewer, notify Notifier) *Session {
	if notify == nil {
		notify = LogNotifier{}
	}
	return &Session{
		modelRef:  modelRef,
		extractor: extractor,
		commit:    NewOrchestrator(importer),
		view:      view,
		notify:    notify,
		selection: NewSelection(),
	}
}

// Extract decodes the model and stages its entities. On success the
// selection resets to all-selected per category. On failure prior staging
// is left untouched; the session stays on the extraction step.
func (s *Session) Extract(ctx context.Context) error {
	extraction, err := s.extractor.Extract(ctx, s.modelRef)
	if err != nil {
		s.notify.ShowError(fmt.Sprintf("extraction failed: %v", err))
		return err
	}
	s.extraction = extraction
	s.selection = NewSelection()
	s.selection.SelectAll(extraction)
	s.syncViewport()
	return nil
}

// Refresh forces a re-decode, discarding prior staging on success. Same
// failure semantics as Extract.
func (s *Session) Refresh(ctx context.Context) error {
	return s.Extract(ctx)
}

// Extraction returns the staged result, nil before the first successful
// extract.
func (s *Session) Extraction() *Extraction {
	return s.extraction
}

// Selection returns the live selection. The highlight engine shares it by
// reference and only reads it.
func (s *Session) Selection() *Selection {
	return s.selection
}

// Toggle flips one entity's selection and resyncs the viewport.
func (s *Session) Toggle(cat Category, id string) {
	s.selection.Toggle(cat, id)
	s.syncViewport()
}

// ToggleAll applies complement-to-full on one category and resyncs.
func (s *Session) ToggleAll(cat Category) {
	if s.extraction == nil {
		return
	}
	s.selection.ToggleAll(cat, s.extraction.IDs(cat))
	s.syncViewport()
}

// SetIsolation switches isolation mode and resyncs.
func (s *Session) SetIsolation(enabled bool) {
	s.isolating = enabled
	s.syncViewport()
}

// CanCommit reports whether anything is selected.
func (s *Session) CanCommit() bool {
	return s.selection.Total() > 0
}

// Commit imports the selection. Categories that succeed are always
// reported: the success notification carries the summed imported count
// even when another category failed.
func (s *Session) Commit(ctx context.Context) ([]ImportResult, error) {
	if !s.CanCommit() {
		return nil, fmt.Errorf("nothing selected")
	}
	results, err := s.commit.Commit(ctx, s.selection, s.extraction)
	if len(results) > 0 {
		s.notify.ShowSuccess(fmt.Sprintf("imported %d entities", TotalImported(results)))
	}
	if err != nil {
		s.notify.ShowError(fmt.Sprintf("import failed: %v", err))
	}
	return results, err
}

// syncViewport pushes the current selection to the viewport: clear+apply
// highlight, fit, and isolation. Highlighting reacts to selection changes
// only; it is independent of import.
func (s *Session) syncViewport() {
	if s.view == nil {
		return
	}
	ids := s.selection.AllIDs()
	if err := s.view.Highlight(ids); err != nil {
		s.notify.ShowError(fmt.Sprintf("viewport highlight: %v", err))
	}
	if len(ids) > 0 {
		if err := s.view.FitToSelection(ids); err != nil {
			s.notify.ShowError(fmt.Sprintf("viewport fit: %v", err))
		}
	}
	if err := s.view.SetIsolation(s.isolating, ids); err != nil {
		s.notify.ShowError(fmt.Sprintf("viewport isolation: %v", err))
	}
}

// Close discards staged state and clears the viewport highlight. Errors
// during teardown are swallowed.
func (s *Session) Close() {
	if s.view != nil {
		_ = s.view.ClearHighlight()
		_ = s.view.SetIsolation(false, nil)
	}
	s.extraction = nil
	s.selection = NewSelection()
}
