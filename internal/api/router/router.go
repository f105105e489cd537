// Package router assembles the HTTP surface: public call endpoints, the web
// chat widget, and the JWT-protected admin group.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/git-bonda108/Dentsi-sub000/internal/conversation"
	"github.com/git-bonda108/Dentsi-sub000/internal/http/handlers"
	httpmiddleware "github.com/git-bonda108/Dentsi-sub000/internal/http/middleware"
	"github.com/git-bonda108/Dentsi-sub000/internal/webchat"
	"github.com/git-bonda108/Dentsi-sub000/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	ConversationHandler *conversation.Handler
	WebchatHandler      *webchat.Handler
	AdminSupport        *handlers.AdminSupportHandler
	AdminCalls          *handlers.AdminCallsHandler
	AdminAuthSecret     string
	MetricsHandler      http.Handler
	CORSAllowedOrigins  []string

	// Requests/sec and burst for the public call endpoints. Zero disables
	// rate limiting.
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", handleHealth)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}

		if cfg.ConversationHandler != nil {
			public.Group(func(calls chi.Router) {
				if cfg.RateLimitPerSecond > 0 {
					calls.Use(httpmiddleware.RateLimit(cfg.RateLimitPerSecond, cfg.RateLimitBurst))
				}
				cfg.ConversationHandler.Routes(calls)
			})
		}

		if cfg.WebchatHandler != nil {
			public.Route("/webchat", func(chat chi.Router) {
				chat.Get("/ws", cfg.WebchatHandler.HandleWebSocket)
				chat.Post("/message", cfg.WebchatHandler.HandleMessage)
				chat.Get("/widget.js", cfg.WebchatHandler.HandleWidgetJS)
			})
		}
	})

	// Admin routes, protected by an HMAC JWT
	if cfg.AdminAuthSecret != "" {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))

			if cfg.AdminSupport != nil {
				admin.Route("/clinics/{clinicID}", func(clinicRoutes chi.Router) {
					clinicRoutes.Get("/escalations", cfg.AdminSupport.ListEscalations)
					clinicRoutes.Get("/callbacks", cfg.AdminSupport.ListCallbacks)
					clinicRoutes.Post("/callbacks/claim", cfg.AdminSupport.ClaimCallback)
					if cfg.AdminCalls != nil {
						clinicRoutes.Get("/calls", cfg.AdminCalls.ListCalls)
					}
				})
				admin.Post("/escalations/{id}/resolve", cfg.AdminSupport.ResolveEscalation)
				admin.Post("/callbacks/{id}/status", cfg.AdminSupport.UpdateCallback)
			}
			if cfg.AdminCalls != nil {
				admin.Get("/calls/{callID}", cfg.AdminCalls.GetCall)
			}
		})
	}

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
