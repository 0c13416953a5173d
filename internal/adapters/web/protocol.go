package web

import (
	"github.com/kwtag/kwtag/internal/domain/annotate"
	"github.com/kwtag/kwtag/internal/domain/doc"
	"github.com/kwtag/kwtag/internal/ports"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

// AnnotateRequest is the body of POST /api/annotate.
type AnnotateRequest struct {
	Text string `json:"text"`
}

// TokenResult is one token of an annotated document.
type TokenResult struct {
	Index      int    `json:"index"`
	Text       string `json:"text"`
	Start      int    `json:"start"`
	End        int    `json:"end"`
	Whitespace string `json:"whitespace,omitempty"`
	IsEntity   bool   `json:"is_entity"`
	Canonical  string `json:"canonical,omitempty"`
}

// SpanResult is one entity span. Start/End are token indices, StartChar/EndChar
// byte offsets into the text.
type SpanResult struct {
	Start     int    `json:"start"`
	End       int    `json:"end"`
	Label     string `json:"label"`
	StartChar int    `json:"start_char"`
	EndChar   int    `json:"end_char"`
	Text      string `json:"text"`
}

// AnnotateResult is the response of POST /api/annotate and the JSON output
// of the annotate command.
type AnnotateResult struct {
	RequestID   string               `json:"request_id,omitempty"`
	Text        string               `json:"text"`
	Tokens      []TokenResult        `json:"tokens"`
	Ents        []SpanResult         `json:"ents"`
	Entities    []annotate.EntityRef `json:"entities"`
	HasEntities bool                 `json:"has_entities"`
}

// NewAnnotateResult converts an annotated document.
func NewAnnotateResult(d *doc.Document) AnnotateResult {
	res := AnnotateResult{
		Text:        d.Text,
		Tokens:      make([]TokenResult, 0, d.Len()),
		Ents:        []SpanResult{},
		Entities:    annotate.Entities(d),
		HasEntities: annotate.HasEntities(d),
	}
	for _, t := range d.Tokens() {
		res.Tokens = append(res.Tokens, TokenResult{
			Index:      t.Index,
			Text:       t.Text,
			Start:      t.Start,
			End:        t.End,
			Whitespace: t.Whitespace,
			IsEntity:   t.IsEntity,
			Canonical:  t.Canonical,
		})
	}
	for _, e := range d.Ents() {
		res.Ents = append(res.Ents, SpanResult{
			Start:     e.Start,
			End:       e.End,
			Label:     e.Label,
			StartChar: e.StartChar,
			EndChar:   e.EndChar,
			Text:      d.SpanText(e),
		})
	}
	if res.Entities == nil {
		res.Entities = []annotate.EntityRef{}
	}
	return res
}

// HealthResult is the response of GET /api/health.
type HealthResult struct {
	Status     string `json:"status"`
	Uptime     string `json:"uptime"`
	Annotators int    `json:"annotators"`
	Patterns   int    `json:"patterns"`
}

// VocabulariesResult is the response of GET /api/vocabularies.
type VocabulariesResult struct {
	Vocabularies []ports.VocabularyInfo `json:"vocabularies"`
	Count        int                    `json:"count"`
}

// ErrorResult is the body of every non-2xx API response.
type ErrorResult struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}
