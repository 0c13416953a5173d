package cmd

import (
	"fmt"
	"strings"

	"github.com/kwtag/kwtag/internal/domain/doc"
	"github.com/kwtag/kwtag/internal/ports"
)

// formatEntities renders the entity spans of d, one per line:
//
//	⚡ 2 entities
//	  [7:22] product manager  ACME  → product management
//	  [29:36] java_2e  ACME  → java
func formatEntities(d *doc.Document) string {
	ents := d.Ents()
	var sb strings.Builder
	noun := "entities"
	if len(ents) == 1 {
		noun = "entity"
	}
	fmt.Fprintf(&sb, "⚡ %d %s\n", len(ents), noun)

	for _, e := range ents {
		text := d.SpanText(e)
		fmt.Fprintf(&sb, "  [%d:%d] %s", e.StartChar, e.EndChar, text)
		if e.Label != "" {
			fmt.Fprintf(&sb, "  %s", e.Label)
		}
		// Merged spans are a single token carrying the canonical form.
		if c := d.At(e.Start).Canonical; c != "" && c != text {
			fmt.Fprintf(&sb, "  → %s", c)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// formatVocabularies renders stored records as a table.
func formatVocabularies(recs []*ports.VocabularyRecord) string {
	if len(recs) == 0 {
		return "⚡ no stored vocabularies\n"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "⚡ %d vocabularies\n", len(recs))
	for _, r := range recs {
		label := r.Label
		if label == "" {
			label = "-"
		}
		fmt.Fprintf(&sb, "  %-20s %-12s %5d variants  %s\n",
			r.Name, label, r.Size(), r.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return sb.String()
}
