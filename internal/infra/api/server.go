// File: internal/infra/api/server.go
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"course-marketplace-checkout/internal/usecase"
)

// Server exposes the checkout API: the storefront session endpoints, the
// provider return callback, and the JWT-guarded admin stats endpoint.
type Server struct {
	checkoutUC usecase.CheckoutUseCase
	statsUC    usecase.StatsUseCase
	auth       *AuthManager
	log        *zerolog.Logger

	httpSrv *http.Server
}

func NewServer(checkoutUC usecase.CheckoutUseCase, statsUC usecase.StatsUseCase, auth *AuthManager, port int, logger *zerolog.Logger) *Server {
	s := &Server{
		checkoutUC: checkoutUC,
		statsUC:    statsUC,
		auth:       auth,
		log:        logger,
	}
	s.httpSrv = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Router builds the chi routing tree. Exposed separately so tests can drive
// the handlers without binding a port.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Provider return callback. The buyer's browser lands here, so the
	// response is a human-readable page, not JSON.
	r.Get("/checkout/callback", s.handleCallback)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/checkout", func(r chi.Router) {
			r.Post("/", s.handleStart)
			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", s.handleGet)
				r.Delete("/", s.handleAbandon)
				r.Post("/coupon", s.handleApplyCoupon)
				r.Post("/gateway", s.handleSelectGateway)
				r.Post("/submit", s.handleSubmit)
				r.Post("/retry", s.handleRetry)
			})
		})
		r.With(s.auth.RequireAdmin).Get("/stats", s.handleStats)
	})
	return r
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpSrv.Addr).Msg("api server listening")
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}
