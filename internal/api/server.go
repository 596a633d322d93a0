package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ppiankov/covenant/internal/classify"
	"github.com/ppiankov/covenant/internal/extract"
	"github.com/ppiankov/covenant/internal/model"
	"github.com/ppiankov/covenant/internal/pipeline"
	"github.com/ppiankov/covenant/internal/resolve"
	"github.com/ppiankov/covenant/internal/store"
)

// maxBodyBytes caps request bodies
const maxBodyBytes = 5 << 20

// Server exposes the engine over HTTP
type Server struct {
	router     *chi.Mux
	pipeline   *pipeline.Pipeline
	classifier *classify.Classifier
	resolver   *resolve.Resolver
	store      store.Store // nil when persistence is disabled
	maxDepth   int
}

// NewServer wires routes and middleware. st may be nil.
func NewServer(p *pipeline.Pipeline, st store.Store, cfg *model.Config) *Server {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	maxDepth := cfg.Engine.MaxBindingDepth
	if maxDepth <= 0 {
		maxDepth = resolve.DefaultMaxDepth
	}

	s := &Server{
		router:     r,
		pipeline:   p,
		classifier: classify.NewClassifier(),
		resolver:   resolve.NewResolver(extract.NewPatternLibrary()),
		store:      st,
		maxDepth:   maxDepth,
	}
	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	// Health check
	s.router.Get("/health", s.handleHealth)

	// API v1
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/analyze", s.handleAnalyze)
		r.Post("/classify", s.handleClassify)
		r.Post("/resolve-term", s.handleResolveTerm)
		r.Get("/confidence", s.handleConfidence)

		r.Route("/documents/{documentID}", func(r chi.Router) {
			r.Get("/versions", s.handleListVersions)
			r.Get("/versions/{version}", s.handleGetVersion)
		})
	})
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run listens on addr until the server fails
func (s *Server) Run(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}

// Helper to send JSON responses
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
