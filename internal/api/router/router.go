package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Lubabaloboqwana6/clinicconnect-platform/internal/http/handlers"
	httpmiddleware "github.com/Lubabaloboqwana6/clinicconnect-platform/internal/http/middleware"
	"github.com/Lubabaloboqwana6/clinicconnect-platform/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger               *logging.Logger
	QueueHandler         *handlers.QueueHandler
	ClinicsHandler       *handlers.ClinicsHandler
	NotificationsHandler *handlers.NotificationsHandler
	AppointmentsHandler  *handlers.AppointmentsHandler
	AssistantHandler     *handlers.AssistantHandler
	StreamHandler        *handlers.StreamHandler
	MetricsHandler       http.Handler
	CORSAllowedOrigins   []string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
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

	r.Route("/api", func(api chi.Router) {
		if cfg.QueueHandler != nil {
			api.Route("/queue", func(q chi.Router) {
				q.Post("/join", cfg.QueueHandler.Join)
				q.Get("/", cfg.QueueHandler.Status)
				q.Delete("/", cfg.QueueHandler.Leave)
				q.Patch("/details", cfg.QueueHandler.UpdateDetails)
			})
		}
		if cfg.ClinicsHandler != nil {
			api.Route("/clinics", func(c chi.Router) {
				c.Get("/", cfg.ClinicsHandler.List)
				c.Route("/{clinicID}", func(one chi.Router) {
					one.Get("/", cfg.ClinicsHandler.Get)
					one.Get("/stats", cfg.ClinicsHandler.Stats)
					one.Get("/availability", cfg.ClinicsHandler.Availability)
					one.Get("/can-join", cfg.ClinicsHandler.CanJoin)
				})
			})
		}
		if cfg.NotificationsHandler != nil {
			api.Route("/notifications", func(n chi.Router) {
				n.Get("/", cfg.NotificationsHandler.List)
				n.Delete("/", cfg.NotificationsHandler.ClearAll)
				n.Post("/read-all", cfg.NotificationsHandler.MarkAllRead)
				n.Post("/{notificationID}/read", cfg.NotificationsHandler.MarkRead)
				n.Delete("/{notificationID}", cfg.NotificationsHandler.Delete)
			})
		}
		if cfg.AppointmentsHandler != nil {
			api.Route("/appointments", func(a chi.Router) {
				a.Post("/", cfg.AppointmentsHandler.Book)
				a.Get("/", cfg.AppointmentsHandler.List)
				a.Delete("/{appointmentID}", cfg.AppointmentsHandler.Cancel)
				a.Patch("/{appointmentID}", cfg.AppointmentsHandler.Reschedule)
			})
		}
		if cfg.AssistantHandler != nil {
			api.Post("/assistant/message", cfg.AssistantHandler.Message)
		}
		if cfg.StreamHandler != nil {
			api.Get("/stream", cfg.StreamHandler.Serve)
		}
	})

	return r
}
