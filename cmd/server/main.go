package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/EcoFlow-E2/ecoflow_backend/config"
	"github.com/EcoFlow-E2/ecoflow_backend/internal/database"
	httphandlers "github.com/EcoFlow-E2/ecoflow_backend/internal/http"
	"github.com/EcoFlow-E2/ecoflow_backend/internal/mqtt"
	"github.com/EcoFlow-E2/ecoflow_backend/internal/services"
	"github.com/EcoFlow-E2/ecoflow_backend/internal/sim"
	"github.com/EcoFlow-E2/ecoflow_backend/internal/store"
	"github.com/EcoFlow-E2/ecoflow_backend/internal/ws"
)

func main() {
	log.Println("🌧️  Starting EcoFlow Drainage Network Backend...")

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  Warning: No .env file found: %v", err)
	} else {
		log.Println("✅ Loaded .env file")
	}

	// Load configuration
	cfg := config.Load()
	log.Printf("📋 Loaded configuration: Server port=%s, DB host=%s, scenario=%s",
		cfg.Server.Port, cfg.Database.Host, cfg.Sim.Scenario)

	// Connect to PostgreSQL or fall back to in-memory operation
	var dbStore *database.DatabaseStore

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Printf("⚠️  Warning: Failed to connect to database: %v", err)
		log.Println("📱 Running without persistence; state lives in memory only")
	} else {
		log.Println("✅ Connected to PostgreSQL database")

		if err := database.CreateTables(db.DB); err != nil {
			log.Fatalf("❌ Failed to create tables: %v", err)
		}

		dbStore = database.NewDatabaseStore(db.DB)
		defer db.Close()
	}

	// Restore persisted state when available, otherwise start fresh
	initialState := store.DefaultState()
	if dbStore != nil {
		if restored, ok, err := dbStore.LoadState(); err != nil {
			log.Printf("⚠️  Warning: Failed to load persisted state: %v", err)
		} else if ok {
			initialState = restored
			log.Printf("💾 Restored persisted state at tick %d (scenario %s)",
				initialState.Sim.Tick, initialState.Sim.Scenario)
		}
	}
	appStore := store.New(initialState)

	// Initialize WebSocket hub
	wsHub := ws.NewHub()
	go wsHub.Run()
	log.Println("🔌 Started WebSocket hub")

	// Initialize simulation engine
	engineCfg := sim.DefaultConfig()
	engineCfg.TickInterval = cfg.Sim.TickInterval
	engine := sim.NewEngine(appStore, engineCfg, wsHub)
	log.Printf("⚙️  Simulation engine ready (tick interval %s)", engineCfg.TickInterval)

	// Initialize MQTT client (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		log.Println("📡 Attempting to connect to MQTT broker...")
		client := mqtt.NewClient(&mqtt.Config{
			BrokerURL:    cfg.MQTT.BrokerURL,
			ClientID:     cfg.MQTT.ClientID,
			Username:     cfg.MQTT.Username,
			Password:     cfg.MQTT.Password,
			KeepAlive:    cfg.MQTT.KeepAlive,
			PingTimeout:  cfg.MQTT.PingTimeout,
			ConnectRetry: cfg.MQTT.ConnectRetry,
		})
		if err := client.Connect(); err != nil {
			log.Printf("⚠️  Warning: Failed to connect to MQTT broker: %v", err)
			log.Println("📡 Continuing without MQTT support")
		} else {
			log.Printf("📡 MQTT client connected - Broker: %s", cfg.MQTT.BrokerURL)
			mqttClient = client
			defer mqttClient.Disconnect()

			client.SetValveCommandHandler(func(valveID, desiredState string) {
				engine.QueueValveCommand(valveID, mqtt.ParseValveState(desiredState))
			})
			if err := client.SubscribeToValveCommands(); err != nil {
				log.Printf("⚠️  Warning: Failed to subscribe to valve commands: %v", err)
			}
		}
	} else {
		log.Println("📡 MQTT disabled, skipping broker connection")
	}

	// Archive completed ticks, publish them to MQTT, and push valve command
	// outcomes to dashboards and external consumers
	unsubscribe := appStore.Subscribe(func(state store.AppState, action store.Action) {
		switch a := action.(type) {
		case store.TickApplied:
			if dbStore != nil {
				if err := dbStore.ArchiveSnapshot(state.Sim.Scenario, state.Sim.Seed, a.Snapshot); err != nil {
					log.Printf("❌ Failed to archive snapshot: %v", err)
				}
			}
			if mqttClient != nil && mqttClient.IsConnected() {
				if err := mqttClient.PublishSnapshot(a.Snapshot); err != nil {
					log.Printf("❌ Failed to publish snapshot: %v", err)
				}
			}

		case store.ValveCommandSucceeded:
			wsHub.BroadcastValves(state.Network.Valves)
			if mqttClient != nil && mqttClient.IsConnected() {
				if err := mqttClient.PublishNotice("success", fmt.Sprintf("Valve %s switched %s", a.ValveID, a.DesiredState)); err != nil {
					log.Printf("❌ Failed to publish notice: %v", err)
				}
			}

		case store.ValveCommandFailed:
			wsHub.BroadcastValves(state.Network.Valves)
			if mqttClient != nil && mqttClient.IsConnected() {
				if err := mqttClient.PublishNotice("warning", fmt.Sprintf("Valve %s command failed", a.ValveID)); err != nil {
					log.Printf("❌ Failed to publish notice: %v", err)
				}
			}
		}
	})
	defer unsubscribe()

	// Start periodic state persistence
	var autoSaver *services.AutoSaver
	if dbStore != nil {
		autoSaver = services.NewAutoSaver(appStore, dbStore, cfg.Sim.AutosaveInterval)
		autoSaver.Start()
	}

	// Start the simulation
	if cfg.Sim.AutoStart {
		seed := cfg.Sim.Seed
		engine.Start(sim.StartOptions{Seed: &seed, Scenario: cfg.Sim.Scenario})
		log.Printf("▶️  Simulation started (seed %d, scenario %s)", seed, cfg.Sim.Scenario)
	}

	// Setup HTTP routes
	router := httphandlers.SetupRoutes(appStore, engine, wsHub)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start HTTP server in a goroutine
	go func() {
		log.Printf("🚀 Starting HTTP server on port %s", cfg.Server.Port)
		log.Println("📡 API endpoints available:")
		log.Println("  POST /api/v1/sim/start - Start the simulation loop")
		log.Println("  POST /api/v1/sim/stop - Stop the simulation loop")
		log.Println("  POST /api/v1/sim/step - Advance one tick")
		log.Println("  POST /api/v1/sim/scenario - Switch scenario")
		log.Println("  GET /api/v1/sim/scenarios - List scenarios")
		log.Println("  GET /api/v1/state - Full application state")
		log.Println("  GET /api/v1/stats - System statistics")
		log.Println("  GET /api/v1/snapshots?limit=50 - Tick history")
		log.Println("  GET /api/v1/snapshots/latest - Latest tick snapshot")
		log.Println("  GET /api/v1/sensors - Sensor grid")
		log.Println("  GET /api/v1/incidents - Incident feed")
		log.Println("  POST /api/v1/incidents/{id}/resolve - Resolve incident")
		log.Println("  GET /api/v1/alerts - Active alerts")
		log.Println("  GET /api/v1/maintenance - Maintenance queue")
		log.Println("  GET /api/v1/valves - Valve states")
		log.Println("  POST /api/v1/valves/{id}/command - Queue valve command")
		log.Println("  POST /api/v1/mitigations - Apply mitigation")
		log.Println("  GET /api/v1/ai/summary - Risk evaluation")
		log.Println("  GET /api/v1/activity - Operator activity log")
		log.Println("  GET /api/v1/export/snapshot.json - Export latest snapshot")
		log.Println("  GET /api/v1/export/history.xlsx - Export history to Excel")
		log.Println("  GET /api/v1/export/history.csv - Export history to CSV")
		log.Println("  WS /ws - WebSocket for real-time updates")
		log.Printf("🌐 Server running at http://localhost:%s", cfg.Server.Port)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ HTTP server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")

	// Stop the simulation loop
	engine.Stop()

	// Flush and stop the autosaver
	if autoSaver != nil {
		autoSaver.Stop()
	}

	// Shutdown HTTP server
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("❌ Server forced to shutdown: %v", err)
	}

	log.Println("✅ Server shutdown complete")
}
