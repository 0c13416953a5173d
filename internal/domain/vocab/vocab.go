// Package vocab builds keyword vocabularies: the variant -> canonical mappings
// an annotator matches against. Sources are loaded in a fixed order (plain
// list, then dictionary, then keyword file); a variant added twice keeps the
// canonical form of its last occurrence.
package vocab

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// mapSep separates a variant from its canonical form in keyword files.
const mapSep = "=>"

// ErrMalformed marks a keyword source that cannot be parsed.
var ErrMalformed = errors.New("malformed keyword source")

// ConfigError reports a keyword source that could not be loaded. It is the
// only error an annotator's construction surfaces to callers.
type ConfigError struct {
	Source string // file path, "list" or "dict"
	Line   int    // 1-based line for file sources, 0 otherwise
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("keyword source %s:%d: %v", e.Source, e.Line, e.Err)
	}
	return fmt.Sprintf("keyword source %s: %v", e.Source, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Config is the construction-time description of one vocabulary.
type Config struct {
	Name          string
	KeywordList   []string            // plain keywords, each its own canonical form
	KeywordDict   map[string][]string // canonical -> surface variants
	KeywordFile   string              // line-delimited keywords, optional "variant=>canonical"
	Label         string              // entity label attached to produced spans
	CaseSensitive bool
}

// Clone returns a deep copy, so no collection is shared between annotators.
func (c Config) Clone() Config {
	out := c
	if c.KeywordList != nil {
		out.KeywordList = append([]string(nil), c.KeywordList...)
	}
	if c.KeywordDict != nil {
		out.KeywordDict = make(map[string][]string, len(c.KeywordDict))
		for k, v := range c.KeywordDict {
			out.KeywordDict[k] = append([]string(nil), v...)
		}
	}
	return out
}

// Entry maps one surface variant to its canonical form.
type Entry struct {
	Variant   string
	Canonical string
}

// Vocabulary is an ordered set of unique variants.
type Vocabulary struct {
	entries []Entry
	pos     map[string]int // variant -> index in entries
}

// New returns an empty vocabulary.
func New() *Vocabulary {
	return &Vocabulary{pos: make(map[string]int)}
}

// Load builds a vocabulary from cfg: list, then dict, then file.
// Any failure is returned as a *ConfigError.
func Load(cfg Config) (*Vocabulary, error) {
	cfg = cfg.Clone()
	v := New()
	if err := v.AddList(cfg.KeywordList); err != nil {
		return nil, err
	}
	if err := v.AddDict(cfg.KeywordDict); err != nil {
		return nil, err
	}
	if cfg.KeywordFile != "" {
		if err := v.AddFile(cfg.KeywordFile); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// Add maps variant to canonical, replacing any earlier mapping of variant.
// Both strings are NFC-normalized.
func (v *Vocabulary) Add(variant, canonical string) error {
	variant = norm.NFC.String(strings.TrimSpace(variant))
	canonical = norm.NFC.String(strings.TrimSpace(canonical))
	if variant == "" {
		return fmt.Errorf("empty keyword: %w", ErrMalformed)
	}
	if canonical == "" {
		canonical = variant
	}
	if i, ok := v.pos[variant]; ok {
		v.entries[i].Canonical = canonical
		return nil
	}
	v.pos[variant] = len(v.entries)
	v.entries = append(v.entries, Entry{Variant: variant, Canonical: canonical})
	return nil
}

// AddList adds plain keywords that map to themselves.
func (v *Vocabulary) AddList(keywords []string) error {
	for i, kw := range keywords {
		if err := v.Add(kw, kw); err != nil {
			return &ConfigError{Source: "list", Err: fmt.Errorf("item %d: %w", i, err)}
		}
	}
	return nil
}

// AddDict adds canonical -> variants mappings. Canonical keys are visited in
// sorted order so that conflicting variants resolve deterministically.
func (v *Vocabulary) AddDict(dict map[string][]string) error {
	keys := make([]string, 0, len(dict))
	for k := range dict {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, canonical := range keys {
		if strings.TrimSpace(canonical) == "" {
			return &ConfigError{Source: "dict", Err: fmt.Errorf("empty canonical form: %w", ErrMalformed)}
		}
		for _, variant := range dict[canonical] {
			if err := v.Add(variant, canonical); err != nil {
				return &ConfigError{Source: "dict", Err: fmt.Errorf("%q: %w", canonical, err)}
			}
		}
	}
	return nil
}

// AddFile reads a keyword file from disk.
func (v *Vocabulary) AddFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return &ConfigError{Source: path, Err: err}
	}
	defer f.Close()
	return v.AddReader(f, path)
}

// AddReader parses a keyword source: UTF-8, one keyword per line, blank lines
// ignored. A line of the form "variant=>canonical" maps variant to canonical;
// any other line is a keyword that maps to itself.
func (v *Vocabulary) AddReader(r io.Reader, source string) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		raw := sc.Text()
		if !utf8.ValidString(raw) {
			return &ConfigError{Source: source, Line: line, Err: fmt.Errorf("invalid UTF-8: %w", ErrMalformed)}
		}
		text := strings.TrimSpace(raw)
		if text == "" {
			continue
		}

		variant, canonical := text, text
		if i := strings.Index(text, mapSep); i >= 0 {
			variant = strings.TrimSpace(text[:i])
			canonical = strings.TrimSpace(text[i+len(mapSep):])
			if variant == "" || canonical == "" {
				return &ConfigError{Source: source, Line: line, Err: fmt.Errorf("%q: %w", text, ErrMalformed)}
			}
		}
		if err := v.Add(variant, canonical); err != nil {
			return &ConfigError{Source: source, Line: line, Err: err}
		}
	}
	if err := sc.Err(); err != nil {
		return &ConfigError{Source: source, Line: line, Err: err}
	}
	return nil
}

// Entries returns a copy of the entries in insertion order.
func (v *Vocabulary) Entries() []Entry {
	out := make([]Entry, len(v.entries))
	copy(out, v.entries)
	return out
}

// Len returns the number of distinct variants.
func (v *Vocabulary) Len() int {
	return len(v.entries)
}

// Canonical returns the canonical form of an exact variant.
func (v *Vocabulary) Canonical(variant string) (string, bool) {
	i, ok := v.pos[norm.NFC.String(variant)]
	if !ok {
		return "", false
	}
	return v.entries[i].Canonical, true
}
