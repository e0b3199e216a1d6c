// Package httpapi exposes resolution and reverse lookup over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"xns-resolver/internal/domain"
	"xns-resolver/internal/observability"
)

// Resolver is the resolution surface served by the API.
type Resolver interface {
	Resolve(ctx context.Context, name string) (*domain.DomainRecord, error)
	ReverseLookup(ctx context.Context, address string) ([]string, error)
}

// AddressStore returns memo-published address bindings.
type AddressStore interface {
	GetAddresses(ctx context.Context, account string) (map[string]string, error)
}

// Server holds the API dependencies.
type Server struct {
	resolver Resolver
	memos    AddressStore
	logger   zerolog.Logger
}

// NewServer creates a Server. memos may be nil, which disables the memo route.
func NewServer(resolver Resolver, memos AddressStore, logger zerolog.Logger) *Server {
	return &Server{resolver: resolver, memos: memos, logger: logger}
}

// Router returns the HTTP routes.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(s.logRequests)

	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	router.Handle("/metrics", observability.Handler()).Methods(http.MethodGet)

	v1 := router.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/domains/{domain}", s.handleResolve).Methods(http.MethodGet)
	v1.HandleFunc("/addresses/{address}/domains", s.handleReverse).Methods(http.MethodGet)
	if s.memos != nil {
		v1.HandleFunc("/addresses/{address}/memo", s.handleMemoAddresses).Methods(http.MethodGet)
	}

	return router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	rec, err := s.resolver.Resolve(r.Context(), mux.Vars(r)["domain"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// ReverseResponse is the body of a reverse lookup.
type ReverseResponse struct {
	Address string   `json:"address"`
	Domains []string `json:"domains"`
}

func (s *Server) handleReverse(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	domains, err := s.resolver.ReverseLookup(r.Context(), address)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if domains == nil {
		domains = []string{}
	}
	writeJSON(w, http.StatusOK, ReverseResponse{Address: address, Domains: domains})
}

// MemoResponse is the body of a memo address query.
type MemoResponse struct {
	Account   string            `json:"account"`
	Addresses map[string]string `json:"addresses"`
}

func (s *Server) handleMemoAddresses(w http.ResponseWriter, r *http.Request) {
	account := mux.Vars(r)["address"]
	addresses, err := s.memos.GetAddresses(r.Context(), account)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MemoResponse{Account: account, Addresses: addresses})
}

// StatusFor maps a resolution error to an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidDomain), errors.Is(err, domain.ErrInvalidAddress):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrDomainNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Warn().Err(err).Str("path", r.URL.Path).Int("status", status).Msg("request failed")
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}
