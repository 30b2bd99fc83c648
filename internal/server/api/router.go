package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Routes builds the HTTP router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(h.log))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", h.Health)

	r.Route("/auth", func(r chi.Router) {
		r.Use(RateLimitMiddleware(h.limiter))
		r.Get("/login", h.Login)
		r.Get("/callback", h.Callback)
		r.Get("/me", h.Me)
		r.Post("/logout", h.Logout)
	})

	r.Post("/backup/start", h.StartBackup)
	r.Get("/backup/status", h.BackupStatus)
	r.Get("/backups", h.ListBackups)

	r.Post("/checkout/create-session", h.CreateCheckoutSession)
	r.Post("/checkout/confirm", h.ConfirmCheckout)

	r.Get("/download", h.Download)

	return r
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
