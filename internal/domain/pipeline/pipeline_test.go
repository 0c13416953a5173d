package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kwtag/kwtag/internal/adapters/ahocorasick"
	"github.com/kwtag/kwtag/internal/adapters/tokenizer"
	"github.com/kwtag/kwtag/internal/domain/annotate"
	"github.com/kwtag/kwtag/internal/domain/doc"
	"github.com/kwtag/kwtag/internal/domain/vocab"
)

// recorder appends its name to a shared log when run.
type recorder struct {
	name string
	log  *[]string
}

func (r recorder) Name() string { return r.name }

func (r recorder) Process(d *doc.Document) *doc.Document {
	*r.log = append(*r.log, r.name)
	return d
}

func keywordAnnotator(t *testing.T, name string, cfg vocab.Config) *annotate.Annotator {
	t.Helper()
	v, err := vocab.Load(cfg)
	require.NoError(t, err)
	return annotate.New(ahocorasick.NewIndex(v, cfg.CaseSensitive),
		annotate.WithName(name), annotate.WithLabel(cfg.Label))
}

// =============================================================================
// Assembly
// =============================================================================

func TestAdd_Placement(t *testing.T) {
	var log []string
	p := New(tokenizer.New())
	require.NoError(t, p.Add(recorder{"b", &log}))
	require.NoError(t, p.Add(recorder{"a", &log}, First()))
	require.NoError(t, p.Add(recorder{"d", &log}))
	require.NoError(t, p.Add(recorder{"c", &log}, Before("d")))
	require.NoError(t, p.Add(recorder{"e", &log}, After("d")))
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, p.Names())

	_, err := p.Run("text")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, log)
}

func TestAdd_Errors(t *testing.T) {
	var log []string
	p := New(tokenizer.New())
	require.NoError(t, p.Add(recorder{"entity", &log}))
	assert.ErrorIs(t, p.Add(recorder{"entity", &log}), ErrDuplicateName)
	assert.ErrorIs(t, p.Add(recorder{"x", &log}, Before("missing")), ErrUnknownName)
	assert.ErrorIs(t, p.Add(recorder{"x", &log}, After("missing")), ErrUnknownName)
	assert.Equal(t, []string{"entity"}, p.Names())
}

func TestRemoveAndGet(t *testing.T) {
	var log []string
	p := New(tokenizer.New())
	require.NoError(t, p.Add(recorder{"a", &log}))

	c, ok := p.Get("a")
	require.True(t, ok)
	assert.Equal(t, "a", c.Name())

	assert.True(t, p.Remove("a"))
	assert.False(t, p.Remove("a"))
	_, ok = p.Get("a")
	assert.False(t, ok)
	assert.Empty(t, p.Names())
}

// =============================================================================
// Running
// =============================================================================

func TestRun_MultipleKeywordComponents(t *testing.T) {
	p := New(tokenizer.New())
	require.NoError(t, p.Add(keywordAnnotator(t, "entity1", vocab.Config{
		KeywordList: []string{"java", "python"},
		Label:       "ACME_1",
	})))
	require.NoError(t, p.Add(keywordAnnotator(t, "entity2", vocab.Config{
		KeywordDict: map[string][]string{
			"java":               {"java_2e", "java programing"},
			"product management": {"PM", "product manager"},
		},
		Label: "ACME_2",
	})))
	assert.Equal(t, []string{"entity1", "entity2"}, p.Names())

	d, err := p.Run("I am a product manager for a java_2e platform and python.")
	require.NoError(t, err)

	assert.True(t, annotate.HasEntities(d))
	assert.Len(t, annotate.Entities(d), 3)
	assert.Len(t, annotate.Entities(d.Slice(0, 4)), 1)
	assert.Equal(t, "product management", annotate.EntityDescription(d.At(3)))
	assert.Equal(t, "java", annotate.EntityDescription(d.At(6)))
	assert.Equal(t, "python", annotate.EntityDescription(d.At(9)))

	labels := map[string]string{}
	for _, e := range d.Ents() {
		labels[d.SpanText(e)] = e.Label
	}
	assert.Equal(t, map[string]string{
		"python":          "ACME_1",
		"product manager": "ACME_2",
		"java_2e":         "ACME_2",
	}, labels)
}

func TestMakeDoc_DoesNotRunComponents(t *testing.T) {
	var log []string
	p := New(tokenizer.New())
	require.NoError(t, p.Add(recorder{"a", &log}))

	d, err := p.MakeDoc("hello world")
	require.NoError(t, err)
	assert.Equal(t, 2, d.Len())
	assert.Empty(t, log)

	p.Process(d)
	assert.Equal(t, []string{"a"}, log)
}

func TestRun_EmptyText(t *testing.T) {
	p := New(tokenizer.New())
	d, err := p.Run("")
	require.NoError(t, err)
	assert.Equal(t, 0, d.Len())
}
