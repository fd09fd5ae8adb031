package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/EcoFlow-E2/ecoflow_backend/internal/sim"
	"github.com/EcoFlow-E2/ecoflow_backend/internal/store"
	"github.com/EcoFlow-E2/ecoflow_backend/internal/ws"
)

// SetupRoutes configures all HTTP routes for the drainage network API
func SetupRoutes(s *store.Store, engine *sim.Engine, wsHub *ws.Hub) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"}, // In production, specify allowed origins
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	handlers := NewHandlers(s, engine)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check
		r.Get("/health", handlers.GetHealth)

		// Simulation lifecycle
		r.Route("/sim", func(r chi.Router) {
			r.Post("/start", handlers.StartSimulation)
			r.Post("/stop", handlers.StopSimulation)
			r.Post("/step", handlers.StepSimulation)
			r.Post("/scenario", handlers.SetScenario)
			r.Get("/scenarios", handlers.GetScenarios)
		})

		// Full state and aggregate stats
		r.Get("/state", handlers.GetState)
		r.Get("/stats", handlers.GetSystemStats)

		// Tick history
		r.Route("/snapshots", func(r chi.Router) {
			r.Get("/", handlers.GetSnapshots)
			r.Get("/latest", handlers.GetLatestSnapshot)
		})

		// Sensor grid
		r.Route("/sensors", func(r chi.Router) {
			r.Get("/", handlers.GetSensors)
			r.Get("/{id}", handlers.GetSensor)
		})

		// Incident feed
		r.Route("/incidents", func(r chi.Router) {
			r.Get("/", handlers.GetIncidents)
			r.Post("/{id}/resolve", handlers.ResolveIncident)
		})

		// Alerts and maintenance
		r.Get("/alerts", handlers.GetAlerts)
		r.Get("/maintenance", handlers.GetMaintenance)

		// Valve control
		r.Route("/valves", func(r chi.Router) {
			r.Get("/", handlers.GetValves)
			r.Post("/{id}/command", handlers.QueueValveCommand)
		})

		// Mitigations and risk evaluation
		r.Post("/mitigations", handlers.ApplyMitigation)
		r.Get("/ai/summary", handlers.GetAiSummary)

		// Operator activity log
		r.Get("/activity", handlers.GetActivity)

		// Export routes for snapshots and history
		r.Route("/export", func(r chi.Router) {
			r.Get("/snapshot.json", handlers.ExportSnapshotJSON)
			r.Get("/history.xlsx", handlers.ExportHistoryExcel)
			r.Get("/history.csv", handlers.ExportHistoryCSV)
		})
	})

	// WebSocket route for real-time updates
	r.HandleFunc("/ws", wsHub.HandleWebSocket)

	return r
}
