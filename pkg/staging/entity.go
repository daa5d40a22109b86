// Package staging holds entities extracted from a building model for
// operator review: confidence-scored template matches, category-scoped
// selection sets, and the batch import that commits the selection.
package staging

// Category scopes entities and selections. The three categories are
// independent; an external object id is unique within its category.
type Category string

const (
	CategoryArea      Category = "areas"
	CategoryEquipment Category = "equipment"
	CategoryMaterial  Category = "materials"
)

// Categories returns all categories in commit order.
func Categories() []Category {
	return []Category{CategoryArea, CategoryEquipment, CategoryMaterial}
}

// ProblemConfidence is the threshold below which an automatic template
// match counts as a problem. The boundary itself is not a problem.
const ProblemConfidence = 0.6

// EntityBase is the part every extracted entity shares. Entities are
// immutable once staged; a refresh replaces the whole staged set.
type EntityBase struct {
	ExternalObjectID    string  `json:"externalObjectId"`
	Name                string  `json:"name"`
	Confidence          float64 `json:"confidence"`
	MatchedTemplateID   string  `json:"matchedTemplateId,omitempty"`
	MatchedTemplateName string  `json:"matchedTemplateName,omitempty"`
}

// Problem reports whether the entity's match confidence is below the
// problem threshold.
func (e EntityBase) Problem() bool {
	return e.Confidence < ProblemConfidence
}

// Matched reports whether the entity carries a template match.
func (e EntityBase) Matched() bool {
	return e.MatchedTemplateID != ""
}

// Area is an extracted room or zone.
type Area struct {
	EntityBase
	Code  string `json:"code,omitempty"`
	Floor string `json:"floor,omitempty"`
}

// Equipment is an extracted piece of equipment.
type Equipment struct {
	EntityBase
	Type         string            `json:"type,omitempty"`
	Manufacturer string            `json:"manufacturer,omitempty"`
	Spec         map[string]string `json:"spec,omitempty"`
}

// Material is an extracted construction material.
type Material struct {
	EntityBase
	Type         string            `json:"type,omitempty"`
	Manufacturer string            `json:"manufacturer,omitempty"`
	Spec         map[string]string `json:"spec,omitempty"`
}

// Extraction is one staged extraction result. It is created whole and
// never mutated; re-extraction produces a fresh Extraction.
type Extraction struct {
	Areas     []Area     `json:"areas"`
	Equipment []Equipment `json:"equipment"`
	Materials []Material `json:"materials"`
}

// IDs returns the external object ids staged under a category.
func (e *Extraction) IDs(cat Category) []string {
	switch cat {
	case CategoryArea:
		out := make([]string, len(e.Areas))
		for i, a := range e.Areas {
			out[i] = a.ExternalObjectID
		}
		return out
	case CategoryEquipment:
		out := make([]string, len(e.Equipment))
		for i, q := range e.Equipment {
			out[i] = q.ExternalObjectID
		}
		return out
	case CategoryMaterial:
		out := make([]string, len(e.Materials))
		for i, m := range e.Materials {
			out[i] = m.ExternalObjectID
		}
		return out
	}
	return nil
}

// Count returns the number of staged entities in a category.
func (e *Extraction) Count(cat Category) int {
	switch cat {
	case CategoryArea:
		return len(e.Areas)
	case CategoryEquipment:
		return len(e.Equipment)
	case CategoryMaterial:
		return len(e.Materials)
	}
	return 0
}

// Base returns the shared fields of the entity with the given id, and
// whether it exists in the category.
func (e *Extraction) Base(cat Category, id string) (EntityBase, bool) {
	switch cat {
	case CategoryArea:
		for _, a := range e.Areas {
			if a.ExternalObjectID == id {
				return a.EntityBase, true
			}
		}
	case CategoryEquipment:
		for _, q := range e.Equipment {
			if q.ExternalObjectID == id {
				return q.EntityBase, true
			}
		}
	case CategoryMaterial:
		for _, m := range e.Materials {
			if m.ExternalObjectID == id {
				return m.EntityBase, true
			}
		}
	}
	return EntityBase{}, false
}

// Filter returns the entities matching pred. It is a read-only view; the
// staged slice is never mutated.
func Filter[T any](items []T, pred func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if pred(it) {
			out = append(out, it)
		}
	}
	return out
}
