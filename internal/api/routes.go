package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"music.mint/config"
	"music.mint/web"
)

func SetupRouter(d Deps, cfg *config.Config) (*chi.Mux, error) {
	h, err := NewHandler(d, cfg)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(RequestID)
	r.Use(Logger(d.Logger))
	r.Use(middleware.Recoverer)

	// CORS
	r.Use(CORS(CORSConfig{
		AllowedOrigins: []string{cfg.Server.PublicURL},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		MaxAge:         86400,
	}))

	// Health
	r.Get("/health", h.Health)

	r.Group(func(r chi.Router) {
		revealLimit := func(r chi.Router) chi.Router { return r }
		if cfg.RateLimit.Enabled {
			apiLimiter := NewRateLimiter(cfg.RateLimit.RequestsPerMin, time.Minute)
			revealLimiter := NewRateLimiter(cfg.RateLimit.RevealPerMin, time.Minute)
			r.Use(apiLimiter.Middleware)
			revealLimit = func(r chi.Router) chi.Router { return r.With(revealLimiter.Middleware) }
		}

		// Uploads and video composition run as long as they need.
		r.Post("/api/upload-image", h.UploadImage)
		r.Post("/api/upload-music", h.UploadMusic)
		r.With(JSONOnly).Post("/create-mint", h.CreateMint)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))

			r.Get("/api/mints", h.ListMints)
			r.Get("/mint/{id}", h.GetMint)
			r.With(JSONOnly).Post("/api/create-nft-metadata", h.CreateMetadata)
			revealLimit(r).Get("/api/keypair/{mintId}", h.RevealKeypair)
			r.With(JSONOnly).Post("/api/mark-minted/{mintId}", h.MarkMinted)
		})
	})

	// Stored files, gated on mint state
	r.Get("/uploads/{filename}", h.ServeUpload)

	// Frontend
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(web.Static())))
	r.Get("/", h.Index)
	r.Get("/m/{id}", h.MintPage)

	return r, nil
}
