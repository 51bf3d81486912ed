package api

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"zero.share/config"
	"zero.share/internal/link"
	"zero.share/internal/share"
	"zero.share/internal/store"
)

func SetupRouter(s store.Store, cfg *config.Config, logger *slog.Logger) *chi.Mux {
	shares := share.NewService(s, share.Limits{
		MaxContentBytes:    cfg.Shares.MaxContentBytes,
		MaxAttachments:     cfg.Shares.MaxAttachments,
		MaxAttachmentBytes: cfg.Shares.MaxAttachmentBytes,
		MaxViewsLimit:      cfg.Shares.MaxViewsLimit,
	}, logger)
	links := link.NewCodec(cfg.Server.BaseURL)
	h := NewHandler(shares, links, logger)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(RequestID)
	r.Use(Logger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	// CORS
	r.Use(CORS(CORSConfig{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		MaxAge:         86400,
	}))

	// Health
	r.Get("/health", h.Health)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Use(JSONOnly)

		if cfg.RateLimit.Enabled {
			apiLimiter := NewRateLimiter(cfg.RateLimit.RequestsPerMin, time.Minute)
			revealLimiter := NewRateLimiter(cfg.RateLimit.RevealPerMin, time.Minute)

			r.Use(apiLimiter.Middleware)

			r.Route("/shares", func(r chi.Router) {
				r.Post("/", h.CreateShare)
				r.Get("/{id}", h.GetMetadata)
				r.With(revealLimiter.Middleware).Post("/{id}/reveal", h.RevealShare)
			})
		} else {
			r.Route("/shares", func(r chi.Router) {
				r.Post("/", h.CreateShare)
				r.Get("/{id}", h.GetMetadata)
				r.Post("/{id}/reveal", h.RevealShare)
			})
		}
	})

	return r
}
