package mutation

import (
	"fmt"
	"strings"
)

// PromoterType replaces the mutation type of whitelisted 5'Flank calls.
const PromoterType = "Promoter"

// DefaultPromoterWhitelist holds the genes whose promoter mutations are kept (TERT).
var DefaultPromoterWhitelist = []int64{7015}

// FilterCounts tallies filter decisions by outcome.
type FilterCounts struct {
	Decisions      int `json:"decisions"`
	Accepts        int `json:"accepts"`
	StatusNone     int `json:"mutation_status_none"`
	SilentOrIntron int `json:"silent_or_intron"`
	LOHOrWildtype  int `json:"loh_or_wildtype"`
	Redacted       int `json:"redacted"`
	UTR            int `json:"utr"`
	IGR            int `json:"igr"`
}

// Rejects is the sum of every reject bucket.
func (c FilterCounts) Rejects() int {
	return c.StatusNone + c.SilentOrIntron + c.LOHOrWildtype + c.Redacted + c.UTR + c.IGR
}

// Verify checks that every decision landed in exactly one bucket.
func (c FilterCounts) Verify() error {
	if c.Decisions != c.Accepts+c.Rejects() {
		return fmt.Errorf("filter counts out of balance: %d decisions, %d accepts, %d rejects", c.Decisions, c.Accepts, c.Rejects())
	}
	return nil
}

// Buckets returns every outcome count keyed by metric label.
func (c FilterCounts) Buckets() map[string]int {
	return map[string]int{
		"accept":           c.Accepts,
		"status_none":      c.StatusNone,
		"silent_or_intron": c.SilentOrIntron,
		"loh_or_wildtype":  c.LOHOrWildtype,
		"redacted":         c.Redacted,
		"utr":              c.UTR,
		"igr":              c.IGR,
	}
}

func (c FilterCounts) String() string {
	return fmt.Sprintf("decisions=%d accepts=%d status_none=%d silent_or_intron=%d loh_or_wildtype=%d redacted=%d utr=%d igr=%d",
		c.Decisions, c.Accepts, c.StatusNone, c.SilentOrIntron, c.LOHOrWildtype, c.Redacted, c.UTR, c.IGR)
}

// Filter decides which mutation calls are imported. A Filter keeps running
// counts and is not safe for concurrent use.
type Filter struct {
	promoterGenes map[int64]struct{}
	counts        FilterCounts
}

// NewFilter returns a filter that keeps 5'Flank calls only for the given genes.
func NewFilter(promoterWhitelist []int64) *Filter {
	f := &Filter{promoterGenes: make(map[int64]struct{}, len(promoterWhitelist))}
	for _, id := range promoterWhitelist {
		f.promoterGenes[id] = struct{}{}
	}
	return f
}

// Accept applies the rules in order; the first matching rule decides. The
// returned record differs from the input only for accepted promoter calls,
// whose mutation type becomes PromoterType.
func (f *Filter) Accept(rec Record, entrezID int64) (Record, bool) {
	f.counts.Decisions++
	status := rec.MutationStatus
	switch {
	case status == "" || strings.EqualFold(status, "None"):
		f.counts.StatusNone++
		return rec, false
	case hasPrefixFold(rec.MutationType, "Silent"), hasPrefixFold(rec.MutationType, "Intron"):
		f.counts.SilentOrIntron++
		return rec, false
	case hasPrefixFold(status, "LOH"), hasPrefixFold(status, "Wildtype"):
		f.counts.LOHOrWildtype++
		return rec, false
	case hasPrefixFold(rec.ValidationStatus, "Redacted"):
		f.counts.Redacted++
		return rec, false
	case hasPrefixFold(rec.MutationType, "3'UTR"),
		hasPrefixFold(rec.MutationType, "3'Flank"),
		hasPrefixFold(rec.MutationType, "5'UTR"):
		f.counts.UTR++
		return rec, false
	case hasPrefixFold(rec.MutationType, "5'Flank"):
		if _, ok := f.promoterGenes[entrezID]; !ok {
			f.counts.UTR++
			return rec, false
		}
		rec.MutationType = PromoterType
	case hasPrefixFold(rec.MutationType, "IGR"):
		f.counts.IGR++
		return rec, false
	}
	f.counts.Accepts++
	return rec, true
}

// Counts returns a snapshot of the running tallies.
func (f *Filter) Counts() FilterCounts { return f.counts }

func hasPrefixFold(value, prefix string) bool {
	return len(value) >= len(prefix) && strings.EqualFold(value[:len(prefix)], prefix)
}
