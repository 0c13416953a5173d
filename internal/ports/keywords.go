package ports

// Match is one keyword occurrence reported by a KeywordIndex. Start and End
// are byte offsets into the scanned text (End exclusive). Canonical is the
// normalized form the matched variant maps to.
type Match struct {
	Canonical string
	Start     int
	End       int
}

// KeywordIndex finds keyword occurrences using multi-pattern matching (Aho-Corasick).
// A single pass over the text finds every match regardless of vocabulary size.
//
// Matches are non-overlapping, ordered by Start, and begin at a word start.
// Where several variants begin at the same offset the longest one wins. The
// index is immutable once built, so FindMatches is safe for concurrent use.
type KeywordIndex interface {
	// FindMatches returns all matches in text, earliest first. Returns nil
	// when nothing matches or the vocabulary is empty.
	FindMatches(text string) []Match

	// Size returns the number of distinct keyword variants in the index.
	Size() int
}
