package ports

import "github.com/kwtag/kwtag/internal/domain/doc"

// Tokenizer turns raw text into a token sequence with byte offsets.
// The concrete implementation lives in internal/adapters/tokenizer; any
// tokenizer producing ordered, non-overlapping tokens can be plugged in.
type Tokenizer interface {
	// Tokenize splits text into tokens. Token offsets must index text and
	// Token.Text must equal text[Start:End].
	Tokenize(text string) []doc.Token
}
