// Package app wires together all adapters and domain logic.
// It builds one keyword annotator per configured vocabulary, runs documents
// through the resulting pipeline, and rebuilds the pipeline when keyword
// sources change. A rebuild replaces the whole pipeline at once; in-flight
// documents finish on the pipeline they started with.
package app

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kwtag/kwtag/internal/adapters/ahocorasick"
	"github.com/kwtag/kwtag/internal/adapters/bbolt"
	fsw "github.com/kwtag/kwtag/internal/adapters/fsnotify"
	"github.com/kwtag/kwtag/internal/adapters/tokenizer"
	"github.com/kwtag/kwtag/internal/adapters/web"
	"github.com/kwtag/kwtag/internal/config"
	"github.com/kwtag/kwtag/internal/domain/annotate"
	"github.com/kwtag/kwtag/internal/domain/doc"
	"github.com/kwtag/kwtag/internal/domain/pipeline"
	"github.com/kwtag/kwtag/internal/domain/vocab"
	"github.com/kwtag/kwtag/internal/logging"
	"github.com/kwtag/kwtag/internal/ports"
)

// Vocabulary sources reported in VocabularyInfo.
const (
	SourceInline = "inline"
	SourceStore  = "store"
)

// ErrVocabularyNotFound is returned when a store-backed vocabulary is missing.
var ErrVocabularyNotFound = errors.New("vocabulary not found in store")

// VocabularyInfo describes one annotator of the running pipeline.
type VocabularyInfo = ports.VocabularyInfo

// snapshot is one immutable generation of the pipeline.
type snapshot struct {
	pipe  *pipeline.Pipeline
	infos []VocabularyInfo
}

// Option configures an App.
type Option func(*App)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l logging.Logger) Option {
	return func(a *App) { a.log = l }
}

// WithStore injects a vocabulary store. An injected store is not closed by Stop.
func WithStore(s ports.VocabularyStore) Option {
	return func(a *App) { a.Store = s }
}

// WithRegistry registers metrics on reg instead of a private registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(a *App) { a.registry = reg }
}

// WithWatcher injects the keyword file watcher.
func WithWatcher(w ports.Watcher) Option {
	return func(a *App) { a.Watcher = w }
}

// App is the top-level container wiring all components together.
type App struct {
	Store     ports.VocabularyStore // nil unless some vocabulary uses the store
	Watcher   ports.Watcher         // nil until Start when watching is enabled
	WebServer *web.Server
	Metrics   *Metrics

	cfg       *config.Config
	log       logging.Logger
	registry  *prometheus.Registry
	tokenizer ports.Tokenizer
	ownStore  *bbolt.Store // opened by New, closed by Stop

	current atomic.Pointer[snapshot]
	mu      sync.Mutex // serializes Reload
	started time.Time
}

// New creates an App and builds the initial pipeline. Configuration errors in
// any keyword source fail construction. Does not start services.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	a := &App{
		cfg:       cfg,
		log:       logging.NewNop(),
		tokenizer: tokenizer.New(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.registry == nil {
		a.registry = prometheus.NewRegistry()
	}

	metrics, err := NewMetrics(a.registry)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}
	a.Metrics = metrics

	if a.Store == nil && cfg.UsesStore() {
		store, err := bbolt.NewStore(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		a.Store = store
		a.ownStore = store
	}

	snap, err := a.build()
	if err != nil {
		a.closeStore()
		return nil, err
	}
	a.current.Store(snap)
	a.Metrics.setPatterns(snap.infos)

	a.WebServer = web.NewServer(a, a.registry, a.log.Named("web"))
	return a, nil
}

// build compiles every configured vocabulary into a fresh pipeline.
func (a *App) build() (*snapshot, error) {
	p := pipeline.New(a.tokenizer)
	infos := make([]VocabularyInfo, 0, len(a.cfg.Vocabularies))

	for _, vc := range a.cfg.Vocabularies {
		c, source, err := a.vocabConfig(vc)
		if err != nil {
			return nil, err
		}
		v, err := vocab.Load(c)
		if err != nil {
			return nil, fmt.Errorf("vocabulary %q: %w", vc.Name, err)
		}
		idx := ahocorasick.NewIndex(v, c.CaseSensitive)
		ann := annotate.New(idx,
			annotate.WithName(vc.Name),
			annotate.WithLabel(c.Label),
			annotate.WithObserver(a.Metrics.observer(vc.Name)),
		)
		if err := p.Add(ann); err != nil {
			return nil, err
		}
		infos = append(infos, VocabularyInfo{
			Name:          vc.Name,
			Label:         c.Label,
			CaseSensitive: c.CaseSensitive,
			Patterns:      idx.Size(),
			Source:        source,
		})
	}
	return &snapshot{pipe: p, infos: infos}, nil
}

// vocabConfig resolves the keyword sources of one configured vocabulary.
// Store-backed entries take label and case sensitivity from the record unless
// the configuration sets them.
func (a *App) vocabConfig(vc config.VocabularyConfig) (vocab.Config, string, error) {
	if !vc.Store {
		return vc.VocabConfig(), SourceInline, nil
	}
	if a.Store == nil {
		return vocab.Config{}, "", fmt.Errorf("vocabulary %q: no store configured", vc.Name)
	}
	rec, err := a.Store.LoadVocabulary(vc.Name)
	if err != nil {
		return vocab.Config{}, "", fmt.Errorf("vocabulary %q: %w", vc.Name, err)
	}
	if rec == nil {
		return vocab.Config{}, "", fmt.Errorf("vocabulary %q: %w", vc.Name, ErrVocabularyNotFound)
	}
	c := RecordConfig(rec)
	if vc.Label != "" {
		c.Label = vc.Label
	}
	c.CaseSensitive = c.CaseSensitive || vc.CaseSensitive
	return c, SourceStore, nil
}

// RecordConfig converts a stored record to annotator construction options.
func RecordConfig(rec *ports.VocabularyRecord) vocab.Config {
	return vocab.Config{
		Name:          rec.Name,
		KeywordList:   rec.Keywords,
		KeywordDict:   rec.Dict,
		Label:         rec.Label,
		CaseSensitive: rec.CaseSensitive,
	}.Clone()
}

// Annotate tokenizes text and runs it through the current pipeline.
// Safe for concurrent use.
func (a *App) Annotate(text string) (*doc.Document, error) {
	start := time.Now()
	d, err := a.current.Load().pipe.Run(text)
	a.Metrics.observeDocument(err, time.Since(start))
	return d, err
}

// Vocabularies describes the annotators of the current pipeline, in order.
func (a *App) Vocabularies() []VocabularyInfo {
	infos := a.current.Load().infos
	out := make([]VocabularyInfo, len(infos))
	copy(out, infos)
	return out
}

// Reload rebuilds every annotator from its sources and swaps the pipeline in.
// On failure the previous pipeline stays active and the error is returned.
func (a *App) Reload() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	start := time.Now()
	snap, err := a.build()
	a.Metrics.observeReload(err)
	if err != nil {
		a.log.Warn("reload failed, keeping previous pipeline", logging.Err(err))
		return err
	}
	a.current.Store(snap)
	a.Metrics.setPatterns(snap.infos)
	a.log.Info("pipeline reloaded",
		logging.Int("annotators", len(snap.infos)),
		logging.Duration("took", time.Since(start)))
	return nil
}

// Start serves the HTTP API and, when configured, watches keyword files.
func (a *App) Start() error {
	a.started = time.Now()
	if err := a.WebServer.Start(a.cfg.Server.Addr); err != nil {
		return fmt.Errorf("start http server: %w", err)
	}
	files := a.cfg.Files()
	if !a.cfg.Watch || len(files) == 0 {
		return nil
	}
	// Watcher failures are non-fatal: the server keeps the loaded pipeline.
	if a.Watcher == nil {
		w, err := fsw.NewWatcher(fsw.WithErrorHandler(func(err error) {
			a.log.Warn("file watcher error", logging.Err(err))
		}))
		if err != nil {
			a.log.Warn("file watcher unavailable", logging.Err(err))
			return nil
		}
		a.Watcher = w
	}
	if err := a.Watcher.Watch(files, a.onFileChanged); err != nil {
		a.log.Warn("file watcher unavailable", logging.Err(err))
		return nil
	}
	a.log.Info("watching keyword files", logging.Strings("files", files))
	return nil
}

// onFileChanged rebuilds the pipeline after a keyword file event.
func (a *App) onFileChanged(path string) {
	a.log.Info("keyword file changed", logging.String("file", path))
	// Reload logs its own failure
	_ = a.Reload()
}

// Stop shuts down services and closes resources opened by New.
func (a *App) Stop() error {
	if a.Watcher != nil {
		a.Watcher.Stop()
	}
	a.WebServer.Stop()
	err := a.closeStore()
	a.log.Sync()
	return err
}

// Uptime returns the time since Start.
func (a *App) Uptime() time.Duration {
	if a.started.IsZero() {
		return 0
	}
	return time.Since(a.started)
}

// Registry returns the metrics registry.
func (a *App) Registry() *prometheus.Registry {
	return a.registry
}

func (a *App) closeStore() error {
	if a.ownStore == nil {
		return nil
	}
	err := a.ownStore.Close()
	a.ownStore = nil
	return err
}
