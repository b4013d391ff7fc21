// Package checklist contains the pure business logic for the step-3
// verification checklist and document review.
// This is part of the Functional Core - no I/O, only pure functions.
package checklist

// Item is one configurable checklist entry for an installation.
type Item struct {
	ID        string
	Label     string
	Mandatory bool
}

// DocumentType is one required (or optional) document kind to verify on site.
type DocumentType struct {
	Code      string
	Name      string
	Mandatory bool
}

// DocAnswer is the tri-state review outcome for a document type.
// Unanswered and No are displayed differently but count identically
// in the compliance ratio: both are unchecked.
type DocAnswer int

const (
	DocUnanswered DocAnswer = iota
	DocPresent
	DocMissing
)

// Result records the operator's mark for one checklist item.
// An item with no Result counts as unchecked, not as "not applicable".
type Result struct {
	ItemID    string
	Checked   bool
	FindingID string // set when an unchecked item prompted finding creation
}

// ComplianceRatio returns (checked documents + checked items) over
// (total documents + total items), or nil when the denominator is zero:
// undefined, not zero.
func ComplianceRatio(items []Item, marks map[string]bool, docs []DocumentType, answers map[string]DocAnswer) *float64 {
	total := len(items) + len(docs)
	if total == 0 {
		return nil
	}

	checked := 0
	for _, it := range items {
		if marks[it.ID] {
			checked++
		}
	}
	for _, d := range docs {
		if answers[d.Code] == DocPresent {
			checked++
		}
	}

	ratio := float64(checked) / float64(total)
	return &ratio
}

// Results materializes the operator's marks into one Result per marked item.
// Unmarked items produce no record; the server treats absence as unchecked.
func Results(items []Item, marks map[string]bool, findingLinks map[string]string) []Result {
	var out []Result
	for _, it := range items {
		checked, marked := marks[it.ID]
		link := findingLinks[it.ID]
		if !marked && link == "" {
			continue
		}
		out = append(out, Result{ItemID: it.ID, Checked: checked, FindingID: link})
	}
	return out
}

// DocumentMap flattens the tri-state answers into the checked/unchecked map
// persisted on the visit. Unanswered and missing both map to false.
func DocumentMap(docs []DocumentType, answers map[string]DocAnswer) map[string]bool {
	out := make(map[string]bool, len(docs))
	for _, d := range docs {
		out[d.Code] = answers[d.Code] == DocPresent
	}
	return out
}
