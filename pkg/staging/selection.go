package staging

import "sort"

// Selection holds three independent, category-scoped selection sets over
// external object ids. It is created alongside an Extraction and discarded
// with it; ids never outlive the staged set they refer to.
//
// The selection is shared by reference between the review UI and the
// highlight engine; only the review side mutates it.
type Selection struct {
	sets map[Category]map[string]struct{}
}

// NewSelection creates an empty selection.
func NewSelection() *Selection {
	s := &Selection{sets: make(map[Category]map[string]struct{})}
	for _, cat := range Categories() {
		s.sets[cat] = make(map[string]struct{})
	}
	return s
}

// SelectAll resets every category to the full staged set. This is the
// default state after an extraction completes.
func (s *Selection) SelectAll(e *Extraction) {
	for _, cat := range Categories() {
		set := make(map[string]struct{})
		for _, id := range e.IDs(cat) {
			set[id] = struct{}{}
		}
		s.sets[cat] = set
	}
}

// Toggle flips membership of id: symmetric difference with {id}. Applying
// it twice is a no-op.
func (s *Selection) Toggle(cat Category, id string) {
	set := s.sets[cat]
	if _, ok := set[id]; ok {
		delete(set, id)
	} else {
		set[id] = struct{}{}
	}
}

// ToggleAll is complement-to-full: if the current selection already covers
// all of allIDs, it clears; otherwise it selects all of allIDs. A strict
// subset always moves to full, never to the literal complement.
func (s *Selection) ToggleAll(cat Category, allIDs []string) {
	if len(s.sets[cat]) == len(allIDs) {
		s.sets[cat] = make(map[string]struct{})
		return
	}
	set := make(map[string]struct{}, len(allIDs))
	for _, id := range allIDs {
		set[id] = struct{}{}
	}
	s.sets[cat] = set
}

// Has reports whether id is selected in the category.
func (s *Selection) Has(cat Category, id string) bool {
	_, ok := s.sets[cat][id]
	return ok
}

// Count returns the selection size for one category.
func (s *Selection) Count(cat Category) int {
	return len(s.sets[cat])
}

// Total returns the sum of all three category set sizes. A commit is only
// possible when Total is non-zero.
func (s *Selection) Total() int {
	n := 0
	for _, cat := range Categories() {
		n += len(s.sets[cat])
	}
	return n
}

// IDs returns the selected ids for a category, sorted for deterministic
// request payloads.
func (s *Selection) IDs(cat Category) []string {
	set := s.sets[cat]
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// AllIDs returns the union of every category's selected ids, sorted.
func (s *Selection) AllIDs() []string {
	var out []string
	for _, cat := range Categories() {
		out = append(out, s.IDs(cat)...)
	}
	sort.Strings(out)
	return out
}
