// Package v1 wires the HTTP surface of the ATM ledger.
// Handlers stay thin: they parse input, resolve the caller and delegate to the teller service.
package v1

import (
	"log/slog"
	"net/http"
	"strings"

	chi "github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Options configures optional behaviour of the HTTP server.
type Options struct {
	// Currency used to parse request amounts.
	Currency string
	// AdminJWTSecret enables HS256 bearer auth on /v1/admin routes when set.
	AdminJWTSecret string
	// Ready is consulted by /readyz. Nil means always ready.
	Ready ReadyChecker
}

// Server wires handlers and middleware using Chi.
type Server struct {
	svc    Teller
	curr   string
	secret []byte
	ready  ReadyChecker
	log    *slog.Logger
	rt     *chi.Mux
}

// New constructs the HTTP server with routes and middleware.
func New(svc Teller, opts Options, logger *slog.Logger) *Server {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(metricsMiddleware)
	r.Use(requestLogger(logger))
	r.Use(recoverer(logger))

	curr := strings.ToUpper(strings.TrimSpace(opts.Currency))
	if curr == "" {
		curr = "INR"
	}
	s := &Server{svc: svc, curr: curr, ready: opts.Ready, log: logger, rt: r}
	if secret := strings.TrimSpace(opts.AdminJWTSecret); secret != "" {
		s.secret = []byte(secret)
	}
	s.routes()
	return s
}

// Handler exposes the configured http.Handler.
func (s *Server) Handler() http.Handler { return s.rt }

// routes declares the public HTTP API endpoints and attaches any per-route middleware.
func (s *Server) routes() {
	// Customer (v1)
	s.rt.Post("/v1/session", s.postSession)
	s.rt.Post("/v1/withdraw", s.postWithdraw)
	s.rt.Post("/v1/deposit", s.postDeposit)
	s.rt.Post("/v1/transfer", s.postTransfer)
	// Admin (v1)
	s.rt.Route("/v1/admin", func(r chi.Router) {
		r.Use(s.adminAuth)
		r.Get("/accounts", s.listAccounts)
		r.Post("/accounts", s.postAccount)
		r.Delete("/accounts/{id}", s.deleteAccount)
		r.Get("/pool", s.getPool)
		r.Post("/pool/refill", s.postRefill)
		r.Get("/log", s.getLog)
	})
	// Dictionary
	s.rt.Get("/v1/dictionary/operations", s.getOperationsDictionary)
	// Health and metrics (unversioned)
	s.rt.Get("/healthz", s.healthz)
	s.rt.Get("/readyz", s.readyz)
	s.rt.Handle("/metrics", metricsHandler())
}
