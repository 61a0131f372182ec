package api

import (
	"net/http"
	"time"

	"yagptchat/internal/handlers"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates and configures the main application router.
func NewRouter(
	jwtSecret string,
	authHandler *handlers.AuthHandler,
	profileHandler *handlers.ProfileHandler,
	convHandler *handlers.ConversationHandler,
) http.Handler {
	r := chi.NewRouter()

	// Base middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS for browser-based clients
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/auth/signup", authHandler.HandleSignup)
		r.Post("/auth/login", authHandler.HandleLogin)

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(JwtAuthMiddleware(jwtSecret))

			r.Get("/profile", profileHandler.HandleGetProfile)
			r.Put("/profile", profileHandler.HandleUpdateProfile)

			r.Route("/conversations", func(r chi.Router) {
				r.Post("/", convHandler.HandleCreateConversation)
				r.Get("/", convHandler.HandleListConversations)

				r.Route("/{conversationID}", func(r chi.Router) {
					r.Get("/", convHandler.HandleGetConversation)
					r.Patch("/title", convHandler.HandleRenameConversation)
					r.Post("/messages", convHandler.HandleSendMessage)
				})
			})
		})
	})

	return r
}
