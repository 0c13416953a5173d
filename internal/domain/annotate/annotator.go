package annotate

import (
	"fmt"

	"github.com/kwtag/kwtag/internal/domain/doc"
	"github.com/kwtag/kwtag/internal/ports"
)

// DefaultName is the pipeline name of an annotator built without WithName.
const DefaultName = "entity"

// Result summarizes one pass over one document.
type Result struct {
	Matches  int               // matches returned by the keyword index
	Accepted int               // spans added to the document
	Rejected map[Rejection]int // dropped matches by reason
	Removed  int               // tokens removed by merging
}

// Option configures an Annotator.
type Option func(*Annotator)

// WithLabel sets the label attached to every produced span.
func WithLabel(label string) Option {
	return func(a *Annotator) { a.label = label }
}

// WithName sets the annotator's pipeline name.
func WithName(name string) Option {
	return func(a *Annotator) { a.name = name }
}

// WithObserver registers fn to receive the Result of every Process call.
// fn runs synchronously on the calling goroutine.
func WithObserver(fn func(Result)) Option {
	return func(a *Annotator) { a.observe = fn }
}

// Annotator tags keyword occurrences in documents. It holds no per-document
// state, so one Annotator may process different documents concurrently as
// long as each document is processed by a single goroutine.
type Annotator struct {
	name    string
	label   string
	index   ports.KeywordIndex
	observe func(Result)
}

// New returns an annotator matching against index.
func New(index ports.KeywordIndex, opts ...Option) *Annotator {
	a := &Annotator{name: DefaultName, index: index}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name returns the pipeline name.
func (a *Annotator) Name() string {
	return a.name
}

// Label returns the span label.
func (a *Annotator) Label() string {
	return a.label
}

// Process annotates d in place and returns it. Matches that cannot be
// resolved are dropped; Process never fails.
func (a *Annotator) Process(d *doc.Document) *doc.Document {
	res := a.Annotate(d)
	if a.observe != nil {
		a.observe(res)
	}
	return d
}

// Annotate runs one pass over d and reports what happened.
func (a *Annotator) Annotate(d *doc.Document) Result {
	res := Result{Rejected: make(map[Rejection]int)}

	// Scan
	matches := a.index.FindMatches(d.Text)
	res.Matches = len(matches)
	if len(matches) == 0 {
		return res
	}

	// Resolve
	resolver := NewResolver(d, a.label)
	spans := make([]doc.Span, 0, len(matches))
	canonicals := make([]string, 0, len(matches))
	prevEnd := 0
	for _, m := range matches {
		span, why := resolver.Resolve(d, m)
		if why == Accepted && span.Start < prevEnd {
			why = RejectOverlap
		}
		if why != Accepted {
			res.Rejected[why]++
			continue
		}
		spans = append(spans, span)
		canonicals = append(canonicals, m.Canonical)
		prevEnd = span.End
	}
	if len(spans) == 0 {
		return res
	}

	// Tag every token before any merge changes indices.
	for i, s := range spans {
		for k := s.Start; k < s.End; k++ {
			d.SetEntity(k, canonicals[i])
		}
	}
	if err := d.AddEnts(spans...); err != nil {
		panic(fmt.Sprintf("annotate: resolved spans rejected by document: %v", err))
	}
	res.Accepted = len(spans)

	// Merge
	before := d.Len()
	if err := d.Merge(spans); err != nil {
		panic(fmt.Sprintf("annotate: merge of resolved spans failed: %v", err))
	}
	res.Removed = before - d.Len()
	return res
}
