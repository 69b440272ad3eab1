// Package api exposes the verification and generation endpoints over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/digkill/resumegate/internal/models"
	"github.com/digkill/resumegate/internal/service"
)

type Verifier interface {
	Verify(ctx context.Context, identifier string, claim models.PaymentClaim) (*models.EntitlementRecord, error)
}

type Gateway interface {
	AuthorizeAndGenerate(ctx context.Context, req service.GenerationRequest) (*models.DocumentResult, error)
}

type EntitlementLookup interface {
	Lookup(ctx context.Context, identifier string) (string, *models.EntitlementRecord, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Addr            string
	EnforceOrigin   bool
	MaxPayloadBytes int64
	Limits          service.Limits
	AdminUsername   string
	AdminPassword   string
	WriteTimeout    time.Duration
}

type Server struct {
	opts        Options
	log         *slog.Logger
	verifier    Verifier
	gateway     Gateway
	plans       *service.PlanService
	entitlement EntitlementLookup
	health      Pinger
	limiter     *RateLimiter
	router      *chi.Mux
}

func NewServer(opts Options, log *slog.Logger, verifier Verifier, gateway Gateway, plans *service.PlanService, entitlement EntitlementLookup, health Pinger, limiter *RateLimiter) *Server {
	if opts.MaxPayloadBytes <= 0 {
		opts.MaxPayloadBytes = 50000
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 60 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)
	r.Use(countRequests)

	s := &Server{
		opts:        opts,
		log:         log,
		verifier:    verifier,
		gateway:     gateway,
		plans:       plans,
		entitlement: entitlement,
		health:      health,
		limiter:     limiter,
		router:      r,
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(api chi.Router) {
		api.Get("/packages", s.handleListPlans)
		api.Group(func(guarded chi.Router) {
			guarded.Use(s.checkOrigin)
			guarded.With(s.rateLimit("verify")).Post("/verify", s.handleVerify)
			guarded.With(s.rateLimit("generate")).Post("/generate", s.handleGenerate)
		})
	})

	if opts.AdminPassword != "" {
		r.Group(func(protected chi.Router) {
			protected.Use(s.basicAuthMiddleware())
			protected.Get("/admin/entitlements", s.handleLookupEntitlement)
		})
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      s.opts.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Error("http shutdown error", "err", err)
		}
	}()

	s.log.Info("http server listening", "addr", s.opts.Addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http listen: %w", err)
	}
	return nil
}
