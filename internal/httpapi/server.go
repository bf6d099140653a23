// Package httpapi exposes the optimizer commands over HTTP for remote or
// browser front-ends. Rendering is left to the client.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	apimw "github.com/hamed0406/dnsoptimizer/internal/httpapi/middleware"
	"github.com/hamed0406/dnsoptimizer/internal/domain"
	"github.com/hamed0406/dnsoptimizer/internal/optimizer"
	"github.com/hamed0406/dnsoptimizer/internal/privilege"
	"github.com/hamed0406/dnsoptimizer/internal/resolver"
)

// Optimizer is the subset of *optimizer.Optimizer the API drives.
type Optimizer interface {
	Servers() []domain.CandidateServer
	Current(ctx context.Context) domain.Snapshot
	Test(ctx context.Context) <-chan optimizer.TestOutcome
	TestAndApply(ctx context.Context) <-chan optimizer.ApplyOutcome
}

type Server struct {
	Logger    *zap.Logger
	Optimizer Optimizer
	// ResolvConf is checked for write access in /api/resolver; empty on
	// the command platform.
	ResolvConf string
}

func NewServer(l *zap.Logger, o Optimizer, resolvConf string) *Server {
	return &Server{Logger: l, Optimizer: o, ResolvConf: resolvConf}
}

func (s *Server) Router(keys apimw.Keys, allowedOrigins []string, publicRPM, publicBurst int) http.Handler {
	r := chi.NewRouter()
	if len(allowedOrigins) == 0 {
		r.Use(cors.AllowAll().Handler)
	} else {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost},
			AllowedHeaders: []string{"Authorization", "Content-Type", "X-API-Key"},
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(apimw.RateLimit(publicRPM, publicBurst))
		r.Use(apimw.RequireAny(keys))

		r.Get("/catalog", s.handleCatalog)
		r.Get("/resolver", s.handleResolver)
		r.Post("/test", s.handleTest)
		r.With(apimw.RequireAdmin(keys)).Post("/apply", s.handleApply)
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Optimizer.Servers())
}

type resolverResponse struct {
	Current   domain.Snapshot  `json:"current"`
	Privilege privilege.Status `json:"privilege"`
}

func (s *Server) handleResolver(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, resolverResponse{
		Current:   s.Optimizer.Current(r.Context()),
		Privilege: privilege.Check(s.ResolvConf),
	})
}

type testResponse struct {
	Round domain.ProbeRound   `json:"round"`
	Best  *domain.ProbeResult `json:"best"`
}

func (s *Server) handleTest(w http.ResponseWriter, r *http.Request) {
	var out optimizer.TestOutcome
	select {
	case out = <-s.Optimizer.Test(r.Context()):
	case <-r.Context().Done():
		return
	}
	if out.Err != nil {
		s.Logger.Warn("api_test_error", zap.Error(out.Err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": out.Err.Error()})
		return
	}
	resp := testResponse{Round: out.Round}
	if out.Found {
		resp.Best = &out.Best
	}
	writeJSON(w, http.StatusOK, resp)
}

type applyResponse struct {
	Status       optimizer.Status    `json:"status"`
	Previous     domain.Snapshot     `json:"previous"`
	Applied      *domain.ProbeResult `json:"applied,omitempty"`
	Confirmation *domain.Snapshot    `json:"confirmation,omitempty"`
	Round        domain.ProbeRound   `json:"round,omitempty"`
	ErrorKind    string              `json:"error_kind,omitempty"`
	Error        string              `json:"error,omitempty"`
}

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	var out optimizer.ApplyOutcome
	select {
	case out = <-s.Optimizer.TestAndApply(r.Context()):
	case <-r.Context().Done():
		return
	}

	resp := applyResponse{
		Status:   out.Status,
		Previous: out.Previous,
		Applied:  out.Applied,
		Round:    out.Round,
	}
	status := http.StatusOK
	switch out.Status {
	case optimizer.StatusApplied:
		resp.Confirmation = &out.Confirmation
	case optimizer.StatusNothingToApply:
		status = http.StatusUnprocessableEntity
	default:
		resp.Error = out.Err.Error()
		resp.ErrorKind = resolver.KindOf(out.Err).String()
		switch {
		case resolver.IsPermissionDenied(out.Err):
			status = http.StatusForbidden
		case errors.Is(out.Err, optimizer.ErrBusy), errors.Is(out.Err, optimizer.ErrClosed):
			status = http.StatusServiceUnavailable
		default:
			status = http.StatusInternalServerError
		}
	}

	s.Logger.Info("api_apply",
		zap.String("status", string(out.Status)),
		zap.Int("http_status", status),
	)
	writeJSON(w, status, resp)
}
