// Package tokenizer implements ports.Tokenizer with a small rule-based English
// tokenizer. Text is split on Unicode whitespace, then leading and trailing
// punctuation is peeled off into separate tokens. Hyphens, underscores and
// apostrophes inside a word stay in the word ("java-based", "java_2e").
package tokenizer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kwtag/kwtag/internal/domain/doc"
)

const (
	defaultPrefixes = `([{"'`
	defaultSuffixes = `.,;:!?)]}"'`
)

// Tokenizer splits text into doc.Tokens with byte offsets.
type Tokenizer struct {
	prefixes string
	suffixes string
}

// New returns a Tokenizer with the default punctuation rules.
func New() *Tokenizer {
	return &Tokenizer{prefixes: defaultPrefixes, suffixes: defaultSuffixes}
}

// Tokenize splits text into tokens. Each token's Whitespace holds the
// whitespace following it, so concatenating Text+Whitespace rebuilds text
// minus any leading whitespace.
func (t *Tokenizer) Tokenize(text string) []doc.Token {
	var tokens []doc.Token
	i := 0
	for i < len(text) {
		// Skip whitespace
		r, w := utf8.DecodeRuneInString(text[i:])
		if unicode.IsSpace(r) {
			i += w
			continue
		}

		start := i
		for i < len(text) {
			r, w = utf8.DecodeRuneInString(text[i:])
			if unicode.IsSpace(r) {
				break
			}
			i += w
		}
		end := i

		chunk := t.splitChunk(text, start, end)

		wsEnd := end
		for wsEnd < len(text) {
			r, w = utf8.DecodeRuneInString(text[wsEnd:])
			if !unicode.IsSpace(r) {
				break
			}
			wsEnd += w
		}
		chunk[len(chunk)-1].Whitespace = text[end:wsEnd]
		tokens = append(tokens, chunk...)
	}
	for k := range tokens {
		tokens[k].Index = k
	}
	return tokens
}

// splitChunk peels prefix and suffix punctuation off text[start:end].
func (t *Tokenizer) splitChunk(text string, start, end int) []doc.Token {
	var out []doc.Token
	for start < end {
		r, w := utf8.DecodeRuneInString(text[start:end])
		if !strings.ContainsRune(t.prefixes, r) || start+w == end {
			break
		}
		out = append(out, token(text, start, start+w))
		start += w
	}

	var suffixes []doc.Token
	for end > start {
		r, w := utf8.DecodeLastRuneInString(text[start:end])
		if !strings.ContainsRune(t.suffixes, r) || end-w == start {
			break
		}
		suffixes = append(suffixes, token(text, end-w, end))
		end -= w
	}

	out = append(out, token(text, start, end))
	for k := len(suffixes) - 1; k >= 0; k-- {
		out = append(out, suffixes[k])
	}
	return out
}

func token(text string, start, end int) doc.Token {
	return doc.Token{Text: text[start:end], Start: start, End: end}
}
