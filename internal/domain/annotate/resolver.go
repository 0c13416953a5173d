// Package annotate tags a tokenized document with keyword entities.
//
// One pass runs Scan → Resolve → Tag → Merge. Matches from the keyword index
// are resolved to token-aligned spans, every token of an accepted span is
// tagged with the match's canonical form, and finally each span is collapsed
// into a single token. Tagging completes before any merge so that no
// resolved span refers to a stale token index.
package annotate

import (
	"github.com/kwtag/kwtag/internal/domain/doc"
	"github.com/kwtag/kwtag/internal/ports"
)

// Rejection explains why a match produced no span.
type Rejection int

const (
	// Accepted means the match resolved to a span.
	Accepted Rejection = iota
	// RejectAlignment: the byte range does not start and end on token boundaries.
	RejectAlignment
	// RejectDuplicate: the surface text equals a pre-existing entity's text.
	RejectDuplicate
	// RejectOverlap: the range overlaps a pre-existing entity span.
	RejectOverlap
)

// String returns the rejection name.
func (r Rejection) String() string {
	switch r {
	case Accepted:
		return "accepted"
	case RejectAlignment:
		return "alignment"
	case RejectDuplicate:
		return "duplicate"
	case RejectOverlap:
		return "overlap"
	default:
		return "unknown"
	}
}

// Resolver converts matches to spans against a snapshot of the entities that
// existed before the current pass.
type Resolver struct {
	label    string
	existing []doc.Span
	texts    map[string]struct{}
}

// NewResolver snapshots d's current entities. Matches later in the same pass
// are not checked against each other; the index never returns overlaps.
func NewResolver(d *doc.Document, label string) *Resolver {
	ents := d.Ents()
	r := &Resolver{
		label:    label,
		existing: ents,
		texts:    make(map[string]struct{}, len(ents)),
	}
	for _, e := range ents {
		r.texts[d.SpanText(e)] = struct{}{}
	}
	return r
}

// Resolve maps m to the minimal token run covering it. It has no side effects.
func (r *Resolver) Resolve(d *doc.Document, m ports.Match) (doc.Span, Rejection) {
	span, ok := d.CharSpan(m.Start, m.End, r.label)
	if !ok {
		return doc.Span{}, RejectAlignment
	}
	if _, dup := r.texts[d.SpanText(span)]; dup {
		return doc.Span{}, RejectDuplicate
	}
	for _, e := range r.existing {
		if span.OverlapsChars(e) {
			return doc.Span{}, RejectOverlap
		}
	}
	return span, Accepted
}
