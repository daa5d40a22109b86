package staging

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExtractor struct {
	result *Extraction
	err    error
	calls  int
}

func (f *fakeExtractor) Extract(context.Context, string) (*Extraction, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

// fakeViewer records every viewport call in order.
type fakeViewer struct {
	highlights   [][]string
	fits         [][]string
	isolations   []bool
	cleared      int
	closed       bool
	highlightErr error
}

func (f *fakeViewer) Highlight(ids []string) error {
	f.highlights = append(f.highlights, ids)
	return f.highlightErr
}
func (f *fakeViewer) ClearHighlight() error        { f.cleared++; return nil }
func (f *fakeViewer) FitToSelection(ids []string) error {
	f.fits = append(f.fits, ids)
	return nil
}
func (f *fakeViewer) SetIsolation(enabled bool, _ []string) error {
	f.isolations = append(f.isolations, enabled)
	return nil
}
func (f *fakeViewer) Close() error { f.closed = true; return nil }

type fakeNotifier struct {
	errors    []string
	successes []string
}

func (f *fakeNotifier) ShowError(msg string)   { f.errors = append(f.errors, msg) }
func (f *fakeNotifier) ShowSuccess(msg string) { f.successes = append(f.successes, msg) }

func TestSessionExtractSelectsAllAndSyncs(t *testing.T) {
	view := &fakeViewer{}
	notify := &fakeNotifier{}
	sess := NewSession("model-1", &fakeExtractor{result: sampleExtraction()}, newRecordingImporter(), view, notify)

	require.NoError(t, sess.Extract(context.Background()))

	assert.Equal(t, 5, sess.Selection().Total())
	require.Len(t, view.highlights, 1)
	assert.Equal(t, []string{"a1", "a2", "e1", "e2", "m1"}, view.highlights[0])
	require.Len(t, view.fits, 1)
	assert.Empty(t, notify.errors)
}

func TestSessionViewportFailureReportedToNotifier(t *testing.T) {
	view := &fakeViewer{highlightErr: errors.New("session lost")}
	notify := &fakeNotifier{}
	sess := NewSession("model-1", &fakeExtractor{result: sampleExtraction()}, newRecordingImporter(), view, notify)

	require.NoError(t, sess.Extract(context.Background()))

	require.NotEmpty(t, notify.errors)
	assert.Contains(t, notify.errors[0], "session lost")
}

func TestSessionExtractFailureKeepsPriorStaging(t *testing.T) {
	ext := &fakeExtractor{result: sampleExtraction()}
	notify := &fakeNotifier{}
	sess := NewSession("model-1", ext, newRecordingImporter(), nil, notify)
	require.NoError(t, sess.Extract(context.Background()))

	ext.err = errors.New("decode failed")
	err := sess.Refresh(context.Background())
	require.Error(t, err)

	// Prior staging and selection survive the failed refresh.
	assert.NotNil(t, sess.Extraction())
	assert.Equal(t, 5, sess.Selection().Total())
	require.Len(t, notify.errors, 1)
	assert.Contains(t, notify.errors[0], "extraction failed")
}

func TestSessionToggleResyncsViewport(t *testing.T) {
	view := &fakeViewer{}
	sess := NewSession("model-1", &fakeExtractor{result: sampleExtraction()}, newRecordingImporter(), view, nil)
	require.NoError(t, sess.Extract(context.Background()))

	sess.Toggle(CategoryArea, "a1")
	require.Len(t, view.highlights, 2)
	assert.Equal(t, []string{"a2", "e1", "e2", "m1"}, view.highlights[1])
}

func TestSessionCanCommit(t *testing.T) {
	ex := sampleExtraction()
	sess := NewSession("model-1", &fakeExtractor{result: ex}, newRecordingImporter(), nil, nil)
	require.NoError(t, sess.Extract(context.Background()))
	assert.True(t, sess.CanCommit())

	for _, cat := range Categories() {
		sess.ToggleAll(cat)
	}
	assert.False(t, sess.CanCommit())

	_, err := sess.Commit(context.Background())
	assert.Error(t, err)
}

func TestSessionCommitNotifiesTotals(t *testing.T) {
	ex := &Extraction{}
	for i := range 10 {
		ex.Areas = append(ex.Areas, Area{EntityBase: EntityBase{ExternalObjectID: area(i), Confidence: 1}})
	}
	for i := range 20 {
		ex.Equipment = append(ex.Equipment, Equipment{EntityBase: EntityBase{ExternalObjectID: equip(i), Confidence: 1}})
	}
	for i := range 15 {
		ex.Materials = append(ex.Materials, Material{EntityBase: EntityBase{ExternalObjectID: mat(i), Confidence: 1}})
	}

	notify := &fakeNotifier{}
	sess := NewSession("model-1", &fakeExtractor{result: ex}, newRecordingImporter(), nil, notify)
	require.NoError(t, sess.Extract(context.Background()))

	results, err := sess.Commit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 45, TotalImported(results))
	require.Len(t, notify.successes, 1)
	assert.Contains(t, notify.successes[0], "45")
}

func TestSessionCommitPartialFailureStillNotifiesSuccess(t *testing.T) {
	imp := newRecordingImporter()
	imp.fail[CategoryEquipment] = errors.New("boom")
	notify := &fakeNotifier{}
	sess := NewSession("model-1", &fakeExtractor{result: sampleExtraction()}, imp, nil, notify)
	require.NoError(t, sess.Extract(context.Background()))

	results, err := sess.Commit(context.Background())
	require.Error(t, err)
	assert.NotEmpty(t, results)
	// Succeeded categories are still reported to the operator.
	require.Len(t, notify.successes, 1)
	require.Len(t, notify.errors, 1)
}

func TestSessionIsolation(t *testing.T) {
	view := &fakeViewer{}
	sess := NewSession("model-1", &fakeExtractor{result: sampleExtraction()}, newRecordingImporter(), view, nil)
	require.NoError(t, sess.Extract(context.Background()))

	sess.SetIsolation(true)
	require.NotEmpty(t, view.isolations)
	assert.True(t, view.isolations[len(view.isolations)-1])

	sess.SetIsolation(false)
	assert.False(t, view.isolations[len(view.isolations)-1])
}

func TestSessionCloseClearsViewport(t *testing.T) {
	view := &fakeViewer{}
	sess := NewSession("model-1", &fakeExtractor{result: sampleExtraction()}, newRecordingImporter(), view, nil)
	require.NoError(t, sess.Extract(context.Background()))

	sess.Close()
	assert.Equal(t, 1, view.cleared)
	assert.Nil(t, sess.Extraction())
	assert.Equal(t, 0, sess.Selection().Total())
}

func area(i int) string  { return fmt.Sprintf("area-%02d", i) }
func equip(i int) string { return fmt.Sprintf("equip-%02d", i) }
func mat(i int) string   { return fmt.Sprintf("mat-%02d", i) }
