package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kwtag/kwtag/internal/domain/doc"
	"github.com/kwtag/kwtag/internal/logging"
	"github.com/kwtag/kwtag/internal/ports"
)

// maxBodyBytes bounds the annotate request body.
const maxBodyBytes = 1 << 20

// Service is what the server needs from the application.
type Service interface {
	Annotate(text string) (*doc.Document, error)
	Vocabularies() []ports.VocabularyInfo
}

// Server serves the JSON API, Prometheus metrics and the embedded page.
type Server struct {
	svc      Service
	gatherer prometheus.Gatherer
	log      logging.Logger
	listener net.Listener
	httpSrv  *http.Server
	started  time.Time
	stopOnce sync.Once
}

// NewServer creates an HTTP server. A nil gatherer disables /metrics.
func NewServer(svc Service, gatherer prometheus.Gatherer, log logging.Logger) *Server {
	if log == nil {
		log = logging.NewNop()
	}
	return &Server{svc: svc, gatherer: gatherer, log: log, started: time.Now()}
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /", http.FileServerFS(staticFS))
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/vocabularies", s.handleVocabularies)
	mux.HandleFunc("POST /api/annotate", s.handleAnnotate)
	if s.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

// Start begins listening on addr and serves in the background.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	s.listener = ln
	s.started = time.Now()
	s.httpSrv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("http server stopped", logging.Err(err))
		}
	}()
	s.log.Info("http server listening", logging.String("addr", s.Addr()))
	return nil
}

// Stop gracefully shuts down the HTTP server. Idempotent.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		if s.httpSrv != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			s.httpSrv.Shutdown(ctx)
		}
	})
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// URL returns the base URL of the bound server.
func (s *Server) URL() string {
	return "http://" + s.Addr()
}

func requestID(r *http.Request) string {
	if id := r.Header.Get(RequestIDHeader); id != "" {
		return id
	}
	return uuid.NewString()
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	vocabs := s.svc.Vocabularies()
	patterns := 0
	for _, v := range vocabs {
		patterns += v.Patterns
	}
	writeJSON(w, http.StatusOK, HealthResult{
		Status:     "ok",
		Uptime:     time.Since(s.started).Round(time.Second).String(),
		Annotators: len(vocabs),
		Patterns:   patterns,
	})
}

func (s *Server) handleVocabularies(w http.ResponseWriter, r *http.Request) {
	vocabs := s.svc.Vocabularies()
	if vocabs == nil {
		vocabs = []ports.VocabularyInfo{}
	}
	writeJSON(w, http.StatusOK, VocabulariesResult{Vocabularies: vocabs, Count: len(vocabs)})
}

func (s *Server) handleAnnotate(w http.ResponseWriter, r *http.Request) {
	id := requestID(r)
	w.Header().Set(RequestIDHeader, id)
	log := s.log.With(logging.String("request_id", id))

	var req AnnotateRequest
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		writeJSON(w, status, ErrorResult{Error: "invalid request body: " + err.Error(), RequestID: id})
		return
	}

	start := time.Now()
	d, err := s.svc.Annotate(req.Text)
	if err != nil {
		log.Error("annotate failed", logging.Err(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResult{Error: err.Error(), RequestID: id})
		return
	}
	res := NewAnnotateResult(d)
	res.RequestID = id
	log.Debug("annotated",
		logging.Int("bytes", len(req.Text)),
		logging.Int("entities", len(res.Ents)),
		logging.Duration("took", time.Since(start)))
	writeJSON(w, http.StatusOK, res)
}
