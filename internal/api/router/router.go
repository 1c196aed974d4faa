// Package router assembles the HTTP surface: tenant-scoped integration
// routes behind the workspace header, plus public health, metrics and
// insurance lookups.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	apimiddleware "github.com/caremesh/erpbridge/internal/api/middleware"
	"github.com/caremesh/erpbridge/internal/extraction"
	"github.com/caremesh/erpbridge/internal/insurance"
	"github.com/caremesh/erpbridge/internal/refdata"
	"github.com/caremesh/erpbridge/internal/schedule"
	"github.com/caremesh/erpbridge/internal/scheduling"
	"github.com/caremesh/erpbridge/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	Scheduling         *scheduling.Handler
	Extractions        *extraction.Handler
	Schedules          *schedule.Handler
	Refdata            *refdata.Handler
	Insurance          *insurance.Handler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(apimiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(apimiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status":"ok"}`))
		})
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.Insurance != nil {
			public.Get("/insurance/{provider}/{nationalID}", cfg.Insurance.ActivePlan)
		}
	})

	// Tenant-scoped endpoints
	r.Group(func(tenant chi.Router) {
		tenant.Use(apimiddleware.RequireWorkspace)

		tenant.Route("/integrations/{integrationID}", func(r chi.Router) {
			if cfg.Scheduling != nil {
				r.Post("/appointments", cfg.Scheduling.CreateAppointment)
				r.Post("/appointments/cancel", cfg.Scheduling.CancelAppointment)
				r.Post("/appointments/cancel/v2", cfg.Scheduling.CancelAppointmentV2)
				r.Post("/appointments/confirm", cfg.Scheduling.ConfirmAppointment)
				r.Post("/appointments/reschedule", cfg.Scheduling.RescheduleAppointment)
				r.Post("/appointments/value", cfg.Scheduling.AppointmentValue)
				r.Get("/slots", cfg.Scheduling.ListSlots)
			}
			if cfg.Extractions != nil {
				r.Post("/extractions", cfg.Extractions.Start)
				r.Get("/extractions/{runID}", cfg.Extractions.GetRun)
			}
			if cfg.Refdata != nil {
				r.Get("/refs/{kind}", cfg.Refdata.List)
			}
		})

		if cfg.Schedules != nil {
			tenant.Get("/schedules", cfg.Schedules.List)
		}
	})

	return r
}
