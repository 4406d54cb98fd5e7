package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/estateone/tour-engine/internal/http/handlers"
	httpmiddleware "github.com/estateone/tour-engine/internal/http/middleware"
	"github.com/estateone/tour-engine/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger             *logging.Logger
	Bookings           *handlers.BookingsHandler
	Availability       *handlers.AvailabilityHandler
	Admin              *handlers.AdminHandler
	AdminAuthSecret    string
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
}

// New creates a Chi router with all routes configured.
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

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// User-facing endpoints. Identity arrives via the gateway's X-User-Id
	// header; ownership is enforced in the lifecycle service.
	r.Group(func(user chi.Router) {
		user.Route("/bookings", func(r chi.Router) {
			r.Post("/", cfg.Bookings.Create)
			r.Get("/", cfg.Bookings.List)
			r.Post("/{bookingID}/reschedule", cfg.Bookings.Reschedule)
			r.Post("/{bookingID}/cancel", cfg.Bookings.Cancel)
			r.Post("/{bookingID}/complete", cfg.Bookings.Complete)
		})
		user.Get("/agents/{agentID}/availability", cfg.Availability.Day)
		user.Get("/agents/{agentID}/bookings", cfg.Admin.Agenda)
	})

	// Operator endpoints behind admin JWT auth.
	r.Route("/admin", func(admin chi.Router) {
		admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))

		admin.Route("/bookings/{bookingID}", func(r chi.Router) {
			r.Post("/confirm", cfg.Admin.Confirm)
			r.Post("/remind", cfg.Admin.TriggerReminder)
			r.Post("/reschedule", cfg.Bookings.Reschedule)
			r.Post("/cancel", cfg.Bookings.Cancel)
		})
		admin.Post("/agents/{agentID}/availability", cfg.Availability.CreateWindow)
		admin.Delete("/availability/{windowID}", cfg.Availability.DeactivateWindow)
	})

	return r
}
