package mutation

import (
	"strings"

	"studyloader/internal/barcode"
)

// Merge combines two calls of the same sample and event, for example one
// reported by several centers. The result starts from a and takes b's fields
// wholesale when b carries a real matched normal, a positive validation, or
// a stronger mutation status. Centers are always the union of both, without
// "NA", and the event identity always comes from a. Neither input is modified.
func Merge(a, b Candidate) Candidate {
	out := a
	if prefer(a.Mutation.MatchedNormSampleBarcode, b.Mutation.MatchedNormSampleBarcode, a.Mutation.ValidationStatus, b.Mutation.ValidationStatus, a.Mutation.MutationStatus, b.Mutation.MutationStatus) {
		out = b
	}
	out.Event = a.Event
	out.Mutation.EventID = a.Mutation.EventID
	out.Mutation.Center = mergeCenters(a.Mutation.Center, b.Mutation.Center)
	return out
}

func prefer(normalA, normalB, validA, validB, statusA, statusB string) bool {
	if normalB != normalA && barcode.IsNormalSample(normalB) {
		return true
	}
	if validB != validA && (strings.EqualFold(validB, "Valid") || strings.EqualFold(validB, "Validated")) {
		return true
	}
	if statusB != statusA {
		if strings.EqualFold(statusB, "Germline") {
			return true
		}
		if strings.EqualFold(statusB, "Somatic") && !strings.EqualFold(statusA, "Germline") {
			return true
		}
	}
	return false
}

// mergeCenters joins the semicolon-separated tokens of both values in first
// appearance order.
func mergeCenters(a, b string) string {
	seen := make(map[string]struct{})
	var tokens []string
	for _, field := range []string{a, b} {
		for _, tok := range strings.Split(field, ";") {
			tok = strings.TrimSpace(tok)
			if tok == "" || tok == "NA" {
				continue
			}
			if _, dup := seen[tok]; dup {
				continue
			}
			seen[tok] = struct{}{}
			tokens = append(tokens, tok)
		}
	}
	return strings.Join(tokens, ";")
}

// Merger accumulates candidates keyed by sample and event, merging repeats.
// Samples are compared by stable id, so aliquots of one sample collapse
// together. Order of first appearance is preserved.
type Merger struct {
	index map[mergeKey]int
	items []Candidate
}

type mergeKey struct {
	sample string
	event  EventKey
}

// NewMerger returns an empty Merger.
func NewMerger() *Merger {
	return &Merger{index: make(map[mergeKey]int)}
}

// Add records c, merging it into an earlier candidate of the same key.
// It reports whether c was a duplicate.
func (m *Merger) Add(c Candidate) bool {
	k := mergeKey{sample: barcode.SampleStableID(c.SampleBarcode), event: c.Key()}
	if i, ok := m.index[k]; ok {
		m.items[i] = Merge(m.items[i], c)
		return true
	}
	m.index[k] = len(m.items)
	m.items = append(m.items, c)
	return false
}

// Len returns the number of distinct candidates.
func (m *Merger) Len() int { return len(m.items) }

// Candidates returns the merged candidates in first-seen order.
func (m *Merger) Candidates() []Candidate {
	out := make([]Candidate, len(m.items))
	copy(out, m.items)
	return out
}
