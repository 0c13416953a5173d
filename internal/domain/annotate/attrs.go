package annotate

import "github.com/kwtag/kwtag/internal/domain/doc"

// EntityRef is one tagged token of a container.
type EntityRef struct {
	Text      string `json:"text"`
	Index     int    `json:"index"` // position within the container
	Canonical string `json:"canonical"`
}

// The queries below read the current token state on every call; nothing is
// cached, so results stay correct across merges.

// HasEntities reports whether any token in c is tagged.
func HasEntities(c doc.Container) bool {
	for i := 0; i < c.Len(); i++ {
		if c.At(i).IsEntity {
			return true
		}
	}
	return false
}

// Entities lists the tagged tokens of c in container order.
func Entities(c doc.Container) []EntityRef {
	var out []EntityRef
	for i := 0; i < c.Len(); i++ {
		t := c.At(i)
		if t.IsEntity {
			out = append(out, EntityRef{Text: t.Text, Index: i, Canonical: t.Canonical})
		}
	}
	return out
}

// IsEntity reports whether t was tagged by a keyword match.
func IsEntity(t doc.Token) bool {
	return t.IsEntity
}

// Canonical returns t's canonical form when tagged.
func Canonical(t doc.Token) (string, bool) {
	if !t.IsEntity {
		return "", false
	}
	return t.Canonical, true
}

// EntityDescription is a human-readable description of t: its canonical form
// when tagged, otherwise its own text.
func EntityDescription(t doc.Token) string {
	if t.IsEntity && t.Canonical != "" {
		return t.Canonical
	}
	return t.Text
}
