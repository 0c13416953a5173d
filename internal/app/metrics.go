package app

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kwtag/kwtag/internal/domain/annotate"
)

const metricsPrefix = "kwtag_"

var durationBuckets = []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .025, .05, .1, .25}

// Metrics is the Prometheus instrumentation of the annotation pipeline.
type Metrics struct {
	documents *prometheus.CounterVec
	duration  prometheus.Histogram
	matches   *prometheus.CounterVec
	accepted  *prometheus.CounterVec
	rejected  *prometheus.CounterVec
	merged    *prometheus.CounterVec
	patterns  *prometheus.GaugeVec
	reloads   *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
// Registering twice on one registry is an error.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricsPrefix + "documents_total",
			Help: "Documents run through the pipeline.",
		}, []string{"status"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    metricsPrefix + "annotate_duration_seconds",
			Help:    "Time to tokenize and annotate one document.",
			Buckets: durationBuckets,
		}),
		matches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricsPrefix + "matches_total",
			Help: "Keyword matches returned by the index.",
		}, []string{"annotator"}),
		accepted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricsPrefix + "entities_total",
			Help: "Matches accepted as entity spans.",
		}, []string{"annotator"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricsPrefix + "rejected_total",
			Help: "Matches dropped during span resolution.",
		}, []string{"annotator", "reason"}),
		merged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricsPrefix + "tokens_merged_total",
			Help: "Tokens removed by merging entity spans.",
		}, []string{"annotator"}),
		patterns: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: metricsPrefix + "patterns",
			Help: "Compiled keyword variants per annotator.",
		}, []string{"annotator"}),
		reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricsPrefix + "reloads_total",
			Help: "Pipeline rebuilds.",
		}, []string{"status"}),
	}

	collectors := []prometheus.Collector{
		m.documents, m.duration, m.matches, m.accepted,
		m.rejected, m.merged, m.patterns, m.reloads,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// observer returns an annotate observer that records results under name.
func (m *Metrics) observer(name string) func(annotate.Result) {
	return func(r annotate.Result) {
		m.matches.WithLabelValues(name).Add(float64(r.Matches))
		m.accepted.WithLabelValues(name).Add(float64(r.Accepted))
		m.merged.WithLabelValues(name).Add(float64(r.Removed))
		for reason, n := range r.Rejected {
			m.rejected.WithLabelValues(name, reason.String()).Add(float64(n))
		}
	}
}

func (m *Metrics) observeDocument(err error, took time.Duration) {
	if err != nil {
		m.documents.WithLabelValues("error").Inc()
		return
	}
	m.documents.WithLabelValues("ok").Inc()
	m.duration.Observe(took.Seconds())
}

func (m *Metrics) observeReload(err error) {
	if err != nil {
		m.reloads.WithLabelValues("error").Inc()
		return
	}
	m.reloads.WithLabelValues("ok").Inc()
}

// setPatterns replaces the pattern gauges with the current annotators.
func (m *Metrics) setPatterns(infos []VocabularyInfo) {
	m.patterns.Reset()
	for _, v := range infos {
		m.patterns.WithLabelValues(v.Name).Set(float64(v.Patterns))
	}
}
