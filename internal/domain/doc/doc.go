// Package doc holds the tokenized document shared by every pipeline component.
// A Document owns a single token array addressed by index. Entity spans refer to
// token index ranges, never to Token values, and are remapped explicitly whenever
// a merge changes the token layout.
//
// All offsets are byte offsets into Document.Text.
package doc

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrOverlap is returned when spans claim the same tokens.
	ErrOverlap = errors.New("overlapping spans")
	// ErrOutOfRange is returned for token or span bounds outside the document.
	ErrOutOfRange = errors.New("out of range")
	// ErrMisaligned is returned when a token's text disagrees with its offsets.
	ErrMisaligned = errors.New("token text does not match offsets")
)

// Token is one element of a Document.
type Token struct {
	Index      int    // position in the document, renumbered after merges
	Text       string // surface text, always Document.Text[Start:End]
	Start      int    // byte offset (inclusive)
	End        int    // byte offset (exclusive)
	Whitespace string // trailing whitespace

	IsEntity  bool   // true iff the token lies inside an accepted keyword span
	Canonical string // canonical form of the keyword that tagged it
}

// Span is a labeled, contiguous run of tokens [Start, End) backed by the
// byte range [StartChar, EndChar) of the document text.
type Span struct {
	Start     int
	End       int
	Label     string
	StartChar int
	EndChar   int
}

// Len returns the number of tokens covered by the span.
func (s Span) Len() int {
	return s.End - s.Start
}

func (s Span) overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

// OverlapsChars reports whether two spans share any byte of text.
func (s Span) OverlapsChars(o Span) bool {
	return s.StartChar < o.EndChar && o.StartChar < s.EndChar
}

// Container is anything holding an ordered run of tokens: a whole Document
// or a Range view over part of one.
type Container interface {
	Len() int
	At(i int) Token
}

// Document is the raw text, its tokens and its entity spans.
// It is not safe for concurrent mutation.
type Document struct {
	Text   string
	tokens []Token
	ents   []Span
}

// New builds a Document from text and an ordered, non-overlapping token
// sequence. The tokens are copied and renumbered.
func New(text string, tokens []Token) (*Document, error) {
	toks := make([]Token, len(tokens))
	copy(toks, tokens)

	prevEnd := 0
	for i := range toks {
		t := &toks[i]
		if t.Start < prevEnd || t.End <= t.Start || t.End > len(text) {
			return nil, fmt.Errorf("token %d [%d,%d): %w", i, t.Start, t.End, ErrOutOfRange)
		}
		if text[t.Start:t.End] != t.Text {
			return nil, fmt.Errorf("token %d %q: %w", i, t.Text, ErrMisaligned)
		}
		t.Index = i
		prevEnd = t.End
	}
	return &Document{Text: text, tokens: toks}, nil
}

// Len returns the number of tokens.
func (d *Document) Len() int {
	return len(d.tokens)
}

// At returns the token at index i. Panics if i is out of range, like a slice.
func (d *Document) At(i int) Token {
	return d.tokens[i]
}

// Tokens returns a copy of the token sequence.
func (d *Document) Tokens() []Token {
	out := make([]Token, len(d.tokens))
	copy(out, d.tokens)
	return out
}

// Ents returns a copy of the entity spans, ordered by start token.
func (d *Document) Ents() []Span {
	out := make([]Span, len(d.ents))
	copy(out, d.ents)
	return out
}

// SetEntity tags token i as part of a keyword match with the given canonical form.
func (d *Document) SetEntity(i int, canonical string) {
	d.tokens[i].IsEntity = true
	d.tokens[i].Canonical = canonical
}

// SpanText returns the surface text covered by s.
func (d *Document) SpanText(s Span) string {
	return d.Text[s.StartChar:s.EndChar]
}

// CharSpan converts the byte range [start, end) into a token-aligned span.
// Alignment is strict: some token must begin exactly at start and some token
// must end exactly at end. Returns false when the range cuts through a token,
// falls between tokens, or is empty.
func (d *Document) CharSpan(start, end int, label string) (Span, bool) {
	if start < 0 || end > len(d.Text) || start >= end {
		return Span{}, false
	}
	n := len(d.tokens)
	first := sort.Search(n, func(i int) bool { return d.tokens[i].Start >= start })
	if first == n || d.tokens[first].Start != start {
		return Span{}, false
	}
	last := sort.Search(n, func(i int) bool { return d.tokens[i].End >= end })
	if last == n || d.tokens[last].End != end || last < first {
		return Span{}, false
	}
	return Span{
		Start:     first,
		End:       last + 1,
		Label:     label,
		StartChar: start,
		EndChar:   end,
	}, true
}

// Slice returns a view of tokens [start, end). Bounds are clamped to the
// document, so Slice(0, 8) on a shorter document covers all of it.
func (d *Document) Slice(start, end int) Range {
	if start < 0 {
		start = 0
	}
	if end > len(d.tokens) {
		end = len(d.tokens)
	}
	if end < start {
		end = start
	}
	return Range{doc: d, start: start, end: end}
}

// View returns the tokens covered by an entity span as a Range.
func (d *Document) View(s Span) Range {
	return d.Slice(s.Start, s.End)
}

func (d *Document) checkSpan(s Span) error {
	if s.Start < 0 || s.End > len(d.tokens) || s.Start >= s.End {
		return fmt.Errorf("span [%d,%d) in %d tokens: %w", s.Start, s.End, len(d.tokens), ErrOutOfRange)
	}
	return nil
}

// AddEnts appends entity spans. Each span's byte range is reset to the range
// of its tokens. Spans overlapping an existing entity or each other are
// rejected with ErrOverlap and nothing is added.
func (d *Document) AddEnts(spans ...Span) error {
	for i, s := range spans {
		if err := d.checkSpan(s); err != nil {
			return err
		}
		for _, e := range d.ents {
			if s.overlaps(e) {
				return fmt.Errorf("span [%d,%d) vs entity [%d,%d): %w", s.Start, s.End, e.Start, e.End, ErrOverlap)
			}
		}
		for _, o := range spans[:i] {
			if s.overlaps(o) {
				return fmt.Errorf("span [%d,%d) vs [%d,%d): %w", s.Start, s.End, o.Start, o.End, ErrOverlap)
			}
		}
	}
	for _, s := range spans {
		s.StartChar = d.tokens[s.Start].Start
		s.EndChar = d.tokens[s.End-1].End
		d.ents = append(d.ents, s)
	}
	sort.SliceStable(d.ents, func(i, j int) bool { return d.ents[i].Start < d.ents[j].Start })
	return nil
}

// Merge collapses each span's tokens into a single token. All spans are
// resolved against the current layout and applied as one batch, so callers
// never see partially merged state. The merged token keeps the surface text
// of its range, the trailing whitespace of its last token and the entity tags
// of its first token. Entity spans are remapped to the new indices.
//
// Overlapping spans, or an entity that partially overlaps a merge, fail with
// ErrOverlap and leave the document unchanged.
func (d *Document) Merge(spans []Span) error {
	if len(spans) == 0 {
		return nil
	}
	sorted := make([]Span, len(spans))
	copy(sorted, spans)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	for i, s := range sorted {
		if err := d.checkSpan(s); err != nil {
			return err
		}
		if i > 0 && s.Start < sorted[i-1].End {
			return fmt.Errorf("merge [%d,%d) vs [%d,%d): %w", s.Start, s.End, sorted[i-1].Start, sorted[i-1].End, ErrOverlap)
		}
		for _, e := range d.ents {
			if crosses(s, e) {
				return fmt.Errorf("merge [%d,%d) splits entity [%d,%d): %w", s.Start, s.End, e.Start, e.End, ErrOverlap)
			}
		}
	}

	newIdx := make([]int, len(d.tokens))
	out := make([]Token, 0, len(d.tokens))
	j := 0
	for i := 0; i < len(d.tokens); {
		if j < len(sorted) && sorted[j].Start == i {
			s := sorted[j]
			first, last := d.tokens[s.Start], d.tokens[s.End-1]
			merged := first
			merged.End = last.End
			merged.Text = d.Text[merged.Start:merged.End]
			merged.Whitespace = last.Whitespace
			for k := s.Start; k < s.End; k++ {
				newIdx[k] = len(out)
			}
			out = append(out, merged)
			i = s.End
			j++
			continue
		}
		newIdx[i] = len(out)
		out = append(out, d.tokens[i])
		i++
	}
	for k := range out {
		out[k].Index = k
	}

	for k, e := range d.ents {
		d.ents[k].Start = newIdx[e.Start]
		d.ents[k].End = newIdx[e.End-1] + 1
	}
	d.tokens = out
	return nil
}

// crosses reports whether a and b intersect without one containing the other.
func crosses(a, b Span) bool {
	if !a.overlaps(b) {
		return false
	}
	aInB := a.Start >= b.Start && a.End <= b.End
	bInA := b.Start >= a.Start && b.End <= a.End
	return !aInB && !bInA
}

// Range is a read-only view of consecutive tokens in a Document. It is only
// valid until the next Merge on that document.
type Range struct {
	doc   *Document
	start int
	end   int
}

// Len returns the number of tokens in the view.
func (r Range) Len() int {
	return r.end - r.start
}

// At returns the i-th token of the view (0-based within the view).
func (r Range) At(i int) Token {
	if i < 0 || i >= r.Len() {
		panic(fmt.Sprintf("doc: index %d out of range [0,%d)", i, r.Len()))
	}
	return r.doc.tokens[r.start+i]
}

// Text returns the surface text from the first to the last token of the view.
func (r Range) Text() string {
	if r.Len() == 0 {
		return ""
	}
	return r.doc.Text[r.doc.tokens[r.start].Start:r.doc.tokens[r.end-1].End]
}
