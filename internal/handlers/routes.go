package handlers

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func RegisterRoutes(r *chi.Mux, windowHandler *WindowHandler, scheduleHandler *ScheduleHandler, registrationHandler *RegistrationHandler, sweepHandler *SweepHandler) {
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Initialize Huma API
	config := huma.DefaultConfig("Exam Scheduler API", "1.0.0")
	api := humachi.New(r, config)

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	// Registration window
	huma.Get(api, "/window", windowHandler.HandleGetWindow)
	huma.Post(api, "/window/open", windowHandler.HandleOpenWindow)
	huma.Post(api, "/window/close", windowHandler.HandleCloseWindow)

	// Schedule catalog
	huma.Get(api, "/schedules", scheduleHandler.HandleCatalog)
	huma.Post(api, "/schedules/generate", scheduleHandler.HandleGenerate)
	huma.Post(api, "/schedules/{date}/code", scheduleHandler.HandleGenerateCode)
	huma.Post(api, "/schedules/reschedule-day", scheduleHandler.HandleRescheduleDay)

	// Registrations
	huma.Post(api, "/registrations", registrationHandler.HandleRegister)
	huma.Post(api, "/registrations/bulk-assign", registrationHandler.HandleBulkAssign)
	huma.Post(api, "/registrations/{id}/assign", registrationHandler.HandleAssign)
	huma.Post(api, "/registrations/{id}/self-assign", registrationHandler.HandleSelfAssign)
	huma.Post(api, "/registrations/{id}/reschedule", registrationHandler.HandleReschedule)
	huma.Post(api, "/registrations/{id}/cancel", registrationHandler.HandleCancel)
	huma.Post(api, "/registrations/{id}/complete", registrationHandler.HandleComplete)
	huma.Post(api, "/registrations/{id}/archive", registrationHandler.HandleArchive)
	huma.Post(api, "/registrations/{id}/reinstate", registrationHandler.HandleReinstate)
	huma.Get(api, "/registrations/{id}/events", registrationHandler.HandleEvents)
	huma.Delete(api, "/registrations/{id}", registrationHandler.HandleDelete)

	// Maintenance
	huma.Post(api, "/capacity/reconcile", sweepHandler.HandleReconcile)
	huma.Post(api, "/sweeps/no-shows", sweepHandler.HandleNoShows)
	huma.Post(api, "/sweeps/schedule-closures", sweepHandler.HandleScheduleClosures)
	huma.Post(api, "/sweeps/window-closure", sweepHandler.HandleWindowClosure)
	huma.Post(api, "/sweeps/run", sweepHandler.HandleRun)
}
