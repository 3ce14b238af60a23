// Package httpapi wystawia run importu cennika jako JSON API (chi).
// Uwierzytelnienie jest poza nami: aktora podaje nagłówek X-Actor-ID.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/bartek5186/cennik/internal/importer"
)

const ActorHeader = "X-Actor-ID"

type Options struct {
	MaxUploadMB int
}

type Server struct {
	svc       *importer.Service
	log       zerolog.Logger
	router    *chi.Mux
	server    *http.Server
	maxUpload int64
}

func New(svc *importer.Service, log zerolog.Logger, opts Options) *Server {
	if opts.MaxUploadMB <= 0 {
		opts.MaxUploadMB = 20
	}
	s := &Server{
		svc:       svc,
		log:       log.With().Str("component", "http").Logger(),
		router:    chi.NewRouter(),
		maxUpload: int64(opts.MaxUploadMB) << 20,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(accessLog(s.log))
	s.router.Use(middleware.Recoverer)
	s.router.Use(metrics)
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/suppliers/{supplierID}/runs", s.handleStage)

		r.Route("/runs/{token}", func(r chi.Router) {
			r.Get("/", s.handleRun)
			r.Post("/mapping", s.handleMapping)
			r.Post("/match", s.handleMatch)
			r.Get("/rows", s.handleRows)
			r.Get("/history", s.handleHistory)
			r.Post("/apply", s.handleApply)
		})
	})
}

func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	s.log.Info().Str("addr", addr).Msg("HTTP listening")
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router: do testów (httptest)
func (s *Server) Router() http.Handler { return s.router }
