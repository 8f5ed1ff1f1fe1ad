// Package httpapi provides a read-only chi-routed HTTP surface over the
// Curator's current state and per-stage error sinks, the observability
// analog of the teacher's internal/api review/enrichment server (spec §C
// "internal/httpapi... enriches observability"). It is not part of the
// CORE's required CLI (spec §6 only names the curate subcommands), so it
// never mutates the store.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"fisbd/internal/errsink"
	"fisbd/internal/product"
	"fisbd/internal/store"
)

// Server exposes current-state and error-sink queries over HTTP.
type Server struct {
	db    store.Store
	sinks map[string]*errsink.Sink
	port  int
}

// Config configures the server's bind port.
type Config struct {
	Port int
}

// New builds a Server. sinks maps a stage name (cmd/fisbd passes
// "pipeline" and "curator") to its error sink, for the
// /api/v1/errors/{stage} route.
func New(db store.Store, sinks map[string]*errsink.Sink, cfg Config) *Server {
	return &Server{db: db, sinks: sinks, port: cfg.Port}
}

// Router returns the configured chi router, for embedding or for Run.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/products/{type}", s.handleListByType)
		r.Get("/products/{type}/{unique_name}", s.handleGetProduct)
		r.Get("/errors/{stage}", s.handleErrors)
	})

	return r
}

// Run starts the HTTP server and blocks until it exits.
func (s *Server) Run() error {
	addr := ":" + itoa(s.port)
	return http.ListenAndServe(addr, s.Router())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleListByType(w http.ResponseWriter, r *http.Request) {
	typ := product.Type(chi.URLParam(r, "type"))
	products, err := s.db.ListByType(r.Context(), typ)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	typ := product.Type(chi.URLParam(r, "type"))
	name := chi.URLParam(r, "unique_name")
	p, err := s.db.Get(r.Context(), typ, name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleErrors(w http.ResponseWriter, r *http.Request) {
	stage := chi.URLParam(r, "stage")
	sink, ok := s.sinks[stage]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown stage "+stage)
		return
	}
	writeJSON(w, http.StatusOK, sink.Entries())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
