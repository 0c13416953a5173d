// Package ahocorasick implements ports.KeywordIndex using an Aho-Corasick automaton.
// It wraps the petar-dambovaliev/aho-corasick library and selects leftmost-longest,
// non-overlapping matches that begin at a word start.
package ahocorasick

import (
	"sort"
	"unicode"
	"unicode/utf8"

	aho "github.com/petar-dambovaliev/aho-corasick"

	"github.com/kwtag/kwtag/internal/domain/vocab"
	"github.com/kwtag/kwtag/internal/ports"
)

// Index is an immutable keyword index built once from a vocabulary.
// FindMatches is safe for concurrent use.
type Index struct {
	automaton     aho.AhoCorasick
	patterns      []string // variants as compiled (folded when case-insensitive)
	canonicals    []string // canonical form per pattern index
	caseSensitive bool
	built         bool
}

// NewIndex compiles the vocabulary. When caseSensitive is false, variants that
// differ only by case collapse into one pattern and the last canonical wins.
func NewIndex(v *vocab.Vocabulary, caseSensitive bool) *Index {
	idx := &Index{caseSensitive: caseSensitive}

	seen := make(map[string]int, v.Len())
	for _, e := range v.Entries() {
		key := e.Variant
		if !caseSensitive {
			key = Fold(key)
		}
		if i, ok := seen[key]; ok {
			idx.canonicals[i] = e.Canonical
			continue
		}
		seen[key] = len(idx.patterns)
		idx.patterns = append(idx.patterns, key)
		idx.canonicals = append(idx.canonicals, e.Canonical)
	}

	// An empty automaton matches nothing; skip building it.
	if len(idx.patterns) == 0 {
		return idx
	}
	// Overlapping iteration needs StandardMatch; FindMatches does the
	// leftmost-longest selection itself.
	builder := aho.NewAhoCorasickBuilder(aho.Opts{
		MatchKind: aho.StandardMatch,
		DFA:       true,
	})
	idx.automaton = builder.Build(idx.patterns)
	idx.built = true
	return idx
}

// FindMatches returns non-overlapping matches in text, earliest first.
// A match must begin at a word start: the start of text, or after a rune that
// is not a letter, digit or underscore. Among the matches at one start the
// longest wins, and a match is dropped when it begins before the previous one
// ends. So "manager" is found in "subproduct manager" and shadowed in
// "a product manager" when "product manager" is also a keyword.
//
// Offsets are byte offsets into text; folding never changes byte widths, so
// they hold for the original text in case-insensitive mode too.
func (x *Index) FindMatches(text string) []ports.Match {
	if !x.built || len(text) == 0 {
		return nil
	}
	haystack := text
	if !x.caseSensitive {
		haystack = Fold(text)
	}

	// Longest candidate per word start.
	best := make(map[int]ports.Match)
	iter := x.automaton.IterOverlapping(haystack)
	for next := iter.Next(); next != nil; next = iter.Next() {
		m := *next
		start, end := m.Start(), m.End()
		if cur, ok := best[start]; ok && cur.End >= end {
			continue
		}
		if !wordStart(haystack, start) {
			continue
		}
		best[start] = ports.Match{
			Canonical: x.canonicals[m.Pattern()],
			Start:     start,
			End:       end,
		}
	}
	if len(best) == 0 {
		return nil
	}

	candidates := make([]ports.Match, 0, len(best))
	for _, m := range best {
		candidates = append(candidates, m)
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Start < candidates[j].Start
	})

	matches := candidates[:0]
	lastEnd := 0
	for _, m := range candidates {
		if m.Start < lastEnd {
			continue
		}
		matches = append(matches, m)
		lastEnd = m.End
	}
	return matches
}

// wordStart reports whether a match at byte offset start begins a word. A
// match whose own first rune is not a word rune, as for the keyword ".net",
// may follow a word directly.
func wordStart(text string, start int) bool {
	if start == 0 {
		return true
	}
	if r, _ := utf8.DecodeRuneInString(text[start:]); !isWordRune(r) {
		return true
	}
	prev, _ := utf8.DecodeLastRuneInString(text[:start])
	return !isWordRune(prev)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// Size returns the number of compiled patterns.
func (x *Index) Size() int {
	return len(x.patterns)
}

// Fold lowercases s rune by rune, keeping any rune whose lowercase form has a
// different UTF-8 width (and any invalid byte) unchanged, so len(Fold(s)) ==
// len(s) and every offset in the folded string is valid in s.
func Fold(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); {
		r, w := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && w == 1 {
			out = append(out, s[i])
			i++
			continue
		}
		if l := unicode.ToLower(r); l != r && utf8.RuneLen(l) == w {
			out = utf8.AppendRune(out, l)
		} else {
			out = append(out, s[i:i+w]...)
		}
		i += w
	}
	return string(out)
}
