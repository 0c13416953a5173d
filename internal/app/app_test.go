package app

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kwtag/kwtag/internal/adapters/bbolt"
	"github.com/kwtag/kwtag/internal/config"
	"github.com/kwtag/kwtag/internal/domain/annotate"
	"github.com/kwtag/kwtag/internal/domain/vocab"
	"github.com/kwtag/kwtag/internal/ports"
)

const (
	sentence    = "I am a product manager for a java platform and python."
	sentence2e  = "I am a product manager for a java_2e platform and python."
	testAddress = "127.0.0.1:0"
)

// fakeWatcher records the watched paths and lets tests fire events by hand.
type fakeWatcher struct {
	mu       sync.Mutex
	paths    []string
	onChange func(string)
	stopped  bool
}

func (w *fakeWatcher) Watch(paths []string, onChange func(string)) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.paths = paths
	w.onChange = onChange
	return nil
}

func (w *fakeWatcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = true
	return nil
}

func (w *fakeWatcher) fire(path string) {
	w.mu.Lock()
	fn := w.onChange
	w.mu.Unlock()
	fn(path)
}

func newTestApp(t *testing.T, cfg *config.Config, opts ...Option) *App {
	t.Helper()
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = testAddress
	}
	a, err := New(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { a.Stop() })
	return a
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// metricValue reads one counter or gauge sample from the registry.
func metricValue(t *testing.T, reg prometheus.Gatherer, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if !hasLabels(m, labels) {
				continue
			}
			switch {
			case m.GetCounter() != nil:
				return m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				return m.GetGauge().GetValue()
			}
		}
	}
	return 0
}

func hasLabels(m *dto.Metric, want map[string]string) bool {
	got := make(map[string]string, len(m.GetLabel()))
	for _, lp := range m.GetLabel() {
		got[lp.GetName()] = lp.GetValue()
	}
	for k, v := range want {
		if got[k] != v {
			return false
		}
	}
	return true
}

func TestAnnotate_KeywordList(t *testing.T) {
	a := newTestApp(t, &config.Config{Vocabularies: []config.VocabularyConfig{{
		Name:     "entity",
		Label:    "ACME",
		Keywords: []string{"java", "python"},
	}}})

	d, err := a.Annotate(sentence)
	require.NoError(t, err)
	require.Len(t, d.Ents(), 2)
	assert.Equal(t, "java", d.SpanText(d.Ents()[0]))
	assert.Equal(t, "python", d.SpanText(d.Ents()[1]))
	assert.Equal(t, "ACME", d.Ents()[0].Label)
	assert.Len(t, annotate.Entities(d), 2)
}

func TestAnnotate_KeywordDict(t *testing.T) {
	a := newTestApp(t, &config.Config{Vocabularies: []config.VocabularyConfig{{
		Name: "entity",
		Dict: map[string][]string{
			"java":               {"java_2e", "java programing"},
			"product management": {"PM", "product manager"},
		},
	}}})

	d, err := a.Annotate(sentence2e)
	require.NoError(t, err)
	require.Len(t, d.Ents(), 2)

	pm := d.At(d.Ents()[0].Start)
	assert.Equal(t, "product manager", pm.Text)
	assert.Equal(t, "product management", pm.Canonical)

	java := d.At(d.Ents()[1].Start)
	assert.Equal(t, "java_2e", java.Text)
	assert.Equal(t, "java", java.Canonical)
}

func TestAnnotate_LongestMatchAcrossSources(t *testing.T) {
	file := filepath.Join(t.TempDir(), "keywords.txt")
	writeFile(t, file, "java_2e platform\n")

	a := newTestApp(t, &config.Config{Vocabularies: []config.VocabularyConfig{{
		Name:     "entity",
		Keywords: []string{"java_2e"},
		Dict:     map[string][]string{"java": {"java_2e"}},
		File:     file,
	}}})

	d, err := a.Annotate(sentence2e)
	require.NoError(t, err)
	require.Len(t, d.Ents(), 1)
	assert.Equal(t, "java_2e platform", d.SpanText(d.Ents()[0]))
}

func TestAnnotate_PipelineOrder(t *testing.T) {
	a := newTestApp(t, &config.Config{Vocabularies: []config.VocabularyConfig{
		{Name: "languages", Label: "LANG", Keywords: []string{"java", "python"}},
		{Name: "roles", Label: "ROLE", Keywords: []string{"product manager", "java"}},
	}})

	d, err := a.Annotate(sentence)
	require.NoError(t, err)
	labels := map[string]string{}
	for _, e := range d.Ents() {
		labels[d.SpanText(e)] = e.Label
	}
	assert.Equal(t, map[string]string{
		"product manager": "ROLE",
		"java":            "LANG",
		"python":          "LANG",
	}, labels)
}

func TestAnnotate_EmptyText(t *testing.T) {
	a := newTestApp(t, &config.Config{Vocabularies: []config.VocabularyConfig{{
		Name: "entity", Keywords: []string{"java"},
	}}})

	d, err := a.Annotate("")
	require.NoError(t, err)
	assert.Equal(t, 0, d.Len())
	assert.False(t, annotate.HasEntities(d))
}

func TestNew_NilConfig(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestNew_MissingKeywordFile(t *testing.T) {
	_, err := New(&config.Config{Vocabularies: []config.VocabularyConfig{{
		Name: "entity", File: filepath.Join(t.TempDir(), "missing.txt"),
	}}})
	require.Error(t, err)

	var cfgErr *vocab.ConfigError
	assert.True(t, errors.As(err, &cfgErr), "want ConfigError, got %v", err)
}

func TestNew_DuplicateRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	cfg := &config.Config{Vocabularies: []config.VocabularyConfig{{Name: "entity", Keywords: []string{"java"}}}}
	newTestApp(t, cfg, WithRegistry(reg))

	_, err := New(cfg, WithRegistry(reg))
	assert.Error(t, err)
}

func TestVocabularies(t *testing.T) {
	a := newTestApp(t, &config.Config{Vocabularies: []config.VocabularyConfig{
		{Name: "languages", Label: "LANG", Keywords: []string{"java", "python", "java"}},
		{Name: "roles", Label: "ROLE", CaseSensitive: true, Dict: map[string][]string{"pm": {"PM", "product manager"}}},
	}})

	infos := a.Vocabularies()
	require.Len(t, infos, 2)
	assert.Equal(t, VocabularyInfo{Name: "languages", Label: "LANG", Patterns: 2, Source: SourceInline}, infos[0])
	assert.Equal(t, VocabularyInfo{Name: "roles", Label: "ROLE", CaseSensitive: true, Patterns: 2, Source: SourceInline}, infos[1])

	infos[0].Name = "changed"
	assert.Equal(t, "languages", a.Vocabularies()[0].Name, "returned slice is a copy")
}

func TestReload_PicksUpFileChanges(t *testing.T) {
	file := filepath.Join(t.TempDir(), "keywords.txt")
	writeFile(t, file, "java\n")

	reg := prometheus.NewRegistry()
	a := newTestApp(t, &config.Config{Vocabularies: []config.VocabularyConfig{{
		Name: "entity", File: file,
	}}}, WithRegistry(reg))

	d, err := a.Annotate(sentence)
	require.NoError(t, err)
	assert.Len(t, d.Ents(), 1)

	writeFile(t, file, "java\npython\nproduct manager=>product management\n")
	require.NoError(t, a.Reload())

	d, err = a.Annotate(sentence)
	require.NoError(t, err)
	require.Len(t, d.Ents(), 3)
	assert.Equal(t, "product management", d.At(d.Ents()[0].Start).Canonical)
	assert.Equal(t, 3, a.Vocabularies()[0].Patterns)
	assert.Equal(t, 1.0, metricValue(t, reg, "kwtag_reloads_total", map[string]string{"status": "ok"}))
	assert.Equal(t, 3.0, metricValue(t, reg, "kwtag_patterns", map[string]string{"annotator": "entity"}))
}

func TestReload_KeepsPipelineOnError(t *testing.T) {
	file := filepath.Join(t.TempDir(), "keywords.txt")
	writeFile(t, file, "java\npython\n")

	reg := prometheus.NewRegistry()
	a := newTestApp(t, &config.Config{Vocabularies: []config.VocabularyConfig{{
		Name: "entity", File: file,
	}}}, WithRegistry(reg))

	require.NoError(t, os.Remove(file))
	assert.Error(t, a.Reload())

	d, err := a.Annotate(sentence)
	require.NoError(t, err)
	assert.Len(t, d.Ents(), 2, "previous pipeline still active")
	assert.Equal(t, 1.0, metricValue(t, reg, "kwtag_reloads_total", map[string]string{"status": "error"}))
	assert.Equal(t, 2.0, metricValue(t, reg, "kwtag_patterns", map[string]string{"annotator": "entity"}))
}

func TestStoreBackedVocabulary(t *testing.T) {
	store, err := bbolt.NewStore(filepath.Join(t.TempDir(), "kwtag.db"))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.SaveVocabulary(&ports.VocabularyRecord{
		Name:  "skills",
		Label: "SKILL",
		Dict:  map[string][]string{"java": {"java_2e", "java programing"}},
	}))

	a := newTestApp(t, &config.Config{Vocabularies: []config.VocabularyConfig{
		{Name: "skills", Store: true},
		{Name: "roles", Label: "ROLE", Keywords: []string{"product manager"}},
	}}, WithStore(store))

	d, err := a.Annotate(sentence2e)
	require.NoError(t, err)
	require.Len(t, d.Ents(), 2)
	assert.Equal(t, "ROLE", d.Ents()[0].Label)
	assert.Equal(t, "SKILL", d.Ents()[1].Label)
	assert.Equal(t, "java", d.At(d.Ents()[1].Start).Canonical)

	infos := a.Vocabularies()
	assert.Equal(t, SourceStore, infos[0].Source)
	assert.Equal(t, 2, infos[0].Patterns)

	// Updates in the store take effect on reload.
	require.NoError(t, store.SaveVocabulary(&ports.VocabularyRecord{
		Name:     "skills",
		Label:    "SKILL",
		Keywords: []string{"python"},
	}))
	require.NoError(t, a.Reload())
	d, err = a.Annotate(sentence2e)
	require.NoError(t, err)
	require.Len(t, d.Ents(), 2)
	assert.Equal(t, "python", d.SpanText(d.Ents()[1]))
}

func TestStoreBackedVocabulary_LabelOverride(t *testing.T) {
	store, err := bbolt.NewStore(filepath.Join(t.TempDir(), "kwtag.db"))
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.SaveVocabulary(&ports.VocabularyRecord{Name: "skills", Label: "SKILL", Keywords: []string{"java"}}))

	a := newTestApp(t, &config.Config{Vocabularies: []config.VocabularyConfig{
		{Name: "skills", Label: "TECH", Store: true},
	}}, WithStore(store))

	assert.Equal(t, "TECH", a.Vocabularies()[0].Label)
	d, err := a.Annotate(sentence)
	require.NoError(t, err)
	require.Len(t, d.Ents(), 1)
	assert.Equal(t, "TECH", d.Ents()[0].Label)
}

func TestStoreBackedVocabulary_Missing(t *testing.T) {
	store, err := bbolt.NewStore(filepath.Join(t.TempDir(), "kwtag.db"))
	require.NoError(t, err)
	defer store.Close()

	_, err = New(&config.Config{Vocabularies: []config.VocabularyConfig{
		{Name: "skills", Store: true},
	}}, WithStore(store))
	assert.ErrorIs(t, err, ErrVocabularyNotFound)
}

func TestStoreOpenedFromConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kwtag.db")
	store, err := bbolt.NewStore(path)
	require.NoError(t, err)
	require.NoError(t, store.SaveVocabulary(&ports.VocabularyRecord{Name: "skills", Keywords: []string{"python"}}))
	require.NoError(t, store.Close())

	cfg := &config.Config{
		Vocabularies: []config.VocabularyConfig{{Name: "skills", Store: true}},
		Store:        config.StoreConfig{Path: path},
		Server:       config.ServerConfig{Addr: testAddress},
	}
	a, err := New(cfg)
	require.NoError(t, err)
	require.NotNil(t, a.Store)

	d, err := a.Annotate(sentence)
	require.NoError(t, err)
	assert.Len(t, d.Ents(), 1)

	require.NoError(t, a.Stop())

	// Stop released the database lock.
	reopened, err := bbolt.NewStore(path)
	require.NoError(t, err)
	reopened.Close()
}

func TestMetrics_RecordAnnotation(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := newTestApp(t, &config.Config{Vocabularies: []config.VocabularyConfig{
		{Name: "roles", Keywords: []string{"product manager", "manager for"}},
	}}, WithRegistry(reg))

	_, err := a.Annotate(sentence)
	require.NoError(t, err)
	_, err = a.Annotate("no keywords here")
	require.NoError(t, err)

	assert.Equal(t, 2.0, metricValue(t, reg, "kwtag_documents_total", map[string]string{"status": "ok"}))
	assert.Equal(t, 1.0, metricValue(t, reg, "kwtag_entities_total", map[string]string{"annotator": "roles"}))
	assert.Equal(t, 1.0, metricValue(t, reg, "kwtag_tokens_merged_total", map[string]string{"annotator": "roles"}))
	assert.Equal(t, 2.0, metricValue(t, reg, "kwtag_patterns", map[string]string{"annotator": "roles"}))
}

func TestStart_WatcherTriggersReload(t *testing.T) {
	file := filepath.Join(t.TempDir(), "keywords.txt")
	writeFile(t, file, "java\n")

	w := &fakeWatcher{}
	a := newTestApp(t, &config.Config{
		Vocabularies: []config.VocabularyConfig{{Name: "entity", File: file}},
		Watch:        true,
	}, WithWatcher(w))
	require.NoError(t, a.Start())
	assert.Equal(t, []string{file}, w.paths)
	assert.NotEmpty(t, a.WebServer.Addr())

	writeFile(t, file, "java\npython\n")
	w.fire(file)

	d, err := a.Annotate(sentence)
	require.NoError(t, err)
	assert.Len(t, d.Ents(), 2)

	require.NoError(t, a.Stop())
	assert.True(t, w.stopped)
}

func TestStart_WatchDisabled(t *testing.T) {
	w := &fakeWatcher{}
	a := newTestApp(t, &config.Config{
		Vocabularies: []config.VocabularyConfig{{Name: "entity", Keywords: []string{"java"}}},
	}, WithWatcher(w))
	require.NoError(t, a.Start())
	assert.Nil(t, w.paths)
	assert.Greater(t, a.Uptime(), time.Duration(0))
}

func TestStart_FsnotifyReload(t *testing.T) {
	file := filepath.Join(t.TempDir(), "keywords.txt")
	writeFile(t, file, "java\n")

	a := newTestApp(t, &config.Config{
		Vocabularies: []config.VocabularyConfig{{Name: "entity", File: file}},
		Watch:        true,
	})
	require.NoError(t, a.Start())

	writeFile(t, file, "java\npython\n")
	assert.Eventually(t, func() bool {
		d, err := a.Annotate(sentence)
		return err == nil && len(d.Ents()) == 2
	}, 3*time.Second, 20*time.Millisecond)
}

func TestStart_AddressInUse(t *testing.T) {
	first := newTestApp(t, &config.Config{})
	require.NoError(t, first.Start())

	second := newTestApp(t, &config.Config{Server: config.ServerConfig{Addr: first.WebServer.Addr()}})
	assert.Error(t, second.Start())
}
