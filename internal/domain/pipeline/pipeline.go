// Package pipeline runs a tokenizer followed by an ordered list of named
// document components. Components run sequentially on one document; a
// Pipeline is safe for concurrent Run calls once it is fully assembled.
package pipeline

import (
	"errors"
	"fmt"

	"github.com/kwtag/kwtag/internal/domain/doc"
	"github.com/kwtag/kwtag/internal/ports"
)

var (
	// ErrDuplicateName is returned when adding a component whose name is taken.
	ErrDuplicateName = errors.New("duplicate component name")
	// ErrUnknownName is returned when Before/After names a missing component.
	ErrUnknownName = errors.New("unknown component name")
)

// Component processes a document in place and returns it.
type Component interface {
	Name() string
	Process(d *doc.Document) *doc.Document
}

type placement struct {
	first  bool
	before string
	after  string
}

// AddOption positions a component. The default is last.
type AddOption func(*placement)

// First places the component at the front.
func First() AddOption {
	return func(p *placement) { p.first = true }
}

// Before places the component directly before the named one.
func Before(name string) AddOption {
	return func(p *placement) { p.before = name }
}

// After places the component directly after the named one.
func After(name string) AddOption {
	return func(p *placement) { p.after = name }
}

// Pipeline is a tokenizer plus components.
type Pipeline struct {
	tokenizer  ports.Tokenizer
	components []Component
}

// New creates an empty pipeline around tok.
func New(tok ports.Tokenizer) *Pipeline {
	return &Pipeline{tokenizer: tok}
}

// Add inserts c according to opts.
func (p *Pipeline) Add(c Component, opts ...AddOption) error {
	if _, ok := p.index(c.Name()); ok {
		return fmt.Errorf("add %q: %w", c.Name(), ErrDuplicateName)
	}
	var pl placement
	for _, opt := range opts {
		opt(&pl)
	}

	at := len(p.components)
	switch {
	case pl.first:
		at = 0
	case pl.before != "":
		i, ok := p.index(pl.before)
		if !ok {
			return fmt.Errorf("add %q before %q: %w", c.Name(), pl.before, ErrUnknownName)
		}
		at = i
	case pl.after != "":
		i, ok := p.index(pl.after)
		if !ok {
			return fmt.Errorf("add %q after %q: %w", c.Name(), pl.after, ErrUnknownName)
		}
		at = i + 1
	}

	p.components = append(p.components, nil)
	copy(p.components[at+1:], p.components[at:])
	p.components[at] = c
	return nil
}

// Remove drops the named component. Returns false if it was not present.
func (p *Pipeline) Remove(name string) bool {
	i, ok := p.index(name)
	if !ok {
		return false
	}
	p.components = append(p.components[:i], p.components[i+1:]...)
	return true
}

// Get returns the named component.
func (p *Pipeline) Get(name string) (Component, bool) {
	i, ok := p.index(name)
	if !ok {
		return nil, false
	}
	return p.components[i], true
}

// Names lists component names in execution order.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.components))
	for i, c := range p.components {
		names[i] = c.Name()
	}
	return names
}

func (p *Pipeline) index(name string) (int, bool) {
	for i, c := range p.components {
		if c.Name() == name {
			return i, true
		}
	}
	return 0, false
}

// MakeDoc tokenizes text without running any component.
func (p *Pipeline) MakeDoc(text string) (*doc.Document, error) {
	d, err := doc.New(text, p.tokenizer.Tokenize(text))
	if err != nil {
		return nil, fmt.Errorf("tokenize: %w", err)
	}
	return d, nil
}

// Run tokenizes text and passes the document through every component.
func (p *Pipeline) Run(text string) (*doc.Document, error) {
	d, err := p.MakeDoc(text)
	if err != nil {
		return nil, err
	}
	return p.Process(d), nil
}

// Process passes an existing document through every component.
func (p *Pipeline) Process(d *doc.Document) *doc.Document {
	for _, c := range p.components {
		d = c.Process(d)
	}
	return d
}
