package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"bitable-auth/internal/config"
	"bitable-auth/internal/handler"
	"bitable-auth/internal/middleware"
)

func New(cfg *config.Config, authMiddleware *middleware.AuthMiddleware, authHandler *handler.AuthHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.CORSOrigins))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api/auth", func(auth chi.Router) {
		auth.Use(middleware.Timeout(cfg.RequestTimeout))

		auth.Post("/login", authHandler.Login)
		auth.Post("/register", authHandler.Register)
		auth.Post("/logout", authHandler.Logout)
		auth.With(authMiddleware.RequireAuth).Get("/me", authHandler.Me)
	})

	return r
}
