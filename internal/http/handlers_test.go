package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/EcoFlow-E2/ecoflow_backend/internal/models"
	"github.com/EcoFlow-E2/ecoflow_backend/internal/sim"
	"github.com/EcoFlow-E2/ecoflow_backend/internal/store"
	"github.com/EcoFlow-E2/ecoflow_backend/internal/ws"
)

func testRouter() (http.Handler, *store.Store, *sim.Engine) {
	s := store.New(store.DefaultState())

	cfg := sim.DefaultConfig()
	cfg.TickInterval = time.Hour // tests drive ticks explicitly
	engine := sim.NewEngine(s, cfg, nil)

	hub := ws.NewHub()
	go hub.Run()

	return SetupRoutes(s, engine, hub), s, engine
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return resp
}

func TestGetScenarios(t *testing.T) {
	router, _, _ := testRouter()

	req := httptest.NewRequest("GET", "/api/v1/sim/scenarios", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if !resp.Success {
		t.Error("Expected success response")
	}

	entries, ok := resp.Data.([]interface{})
	if !ok {
		t.Fatalf("Expected scenario list, got %T", resp.Data)
	}
	if len(entries) != 4 {
		t.Errorf("Expected 4 scenarios, got %d", len(entries))
	}
}

func TestStartStopStep(t *testing.T) {
	router, s, engine := testRouter()
	defer engine.Stop()

	// Step before anything is running is rejected.
	req := httptest.NewRequest("POST", "/api/v1/sim/step", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Errorf("Expected 409 for step while stopped, got %d", rec.Code)
	}

	// Start with an explicit seed and scenario.
	body := strings.NewReader(`{"seed": 240219, "scenario": "heavy_rain"}`)
	req = httptest.NewRequest("POST", "/api/v1/sim/start", body)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 for start, got %d: %s", rec.Code, rec.Body.String())
	}

	state := s.GetState()
	if !state.Sim.Running {
		t.Error("Expected simulation running after start")
	}
	if state.Sim.Tick != 1 {
		t.Errorf("Expected immediate first tick, got %d", state.Sim.Tick)
	}
	if state.Sim.Scenario != "heavy_rain" {
		t.Errorf("Expected heavy_rain, got %s", state.Sim.Scenario)
	}

	// Step advances one tick.
	req = httptest.NewRequest("POST", "/api/v1/sim/step", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 for step, got %d", rec.Code)
	}
	if s.GetState().Sim.Tick != 2 {
		t.Errorf("Expected tick 2 after step, got %d", s.GetState().Sim.Tick)
	}

	// Stop.
	req = httptest.NewRequest("POST", "/api/v1/sim/stop", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 for stop, got %d", rec.Code)
	}
	if s.GetState().Sim.Running {
		t.Error("Expected simulation stopped")
	}
}

func TestStartWithUnknownScenario(t *testing.T) {
	router, _, _ := testRouter()

	body := strings.NewReader(`{"scenario": "volcano"}`)
	req := httptest.NewRequest("POST", "/api/v1/sim/start", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown scenario, got %d", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if resp.Success {
		t.Error("Expected error response")
	}
}

func TestSetScenarioValidation(t *testing.T) {
	router, _, _ := testRouter()

	body := strings.NewReader(`{"scenario": "volcano"}`)
	req := httptest.NewRequest("POST", "/api/v1/sim/scenario", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown scenario, got %d", rec.Code)
	}

	body = strings.NewReader(`{"scenario": "pump_failure"}`)
	req = httptest.NewRequest("POST", "/api/v1/sim/scenario", body)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 for known scenario, got %d", rec.Code)
	}
}

func TestGetStateAndStats(t *testing.T) {
	router, _, engine := testRouter()
	seed := int64(240219)
	engine.Start(sim.StartOptions{Seed: &seed, Scenario: "normal_ops"})
	defer engine.Stop()

	req := httptest.NewRequest("GET", "/api/v1/state", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 for state, got %d", rec.Code)
	}

	req = httptest.NewRequest("GET", "/api/v1/stats", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 for stats, got %d", rec.Code)
	}
	resp := decodeResponse(t, rec)
	stats, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("Expected stats object, got %T", resp.Data)
	}
	if stats["sensorCount"] != float64(12) {
		t.Errorf("Expected 12 sensors, got %v", stats["sensorCount"])
	}
	if stats["running"] != true {
		t.Errorf("Expected running true, got %v", stats["running"])
	}
}

func TestGetSnapshots(t *testing.T) {
	router, s, engine := testRouter()
	seed := int64(240219)
	engine.Start(sim.StartOptions{Seed: &seed})
	engine.Stop()
	s.Dispatch(store.RunningSet{Running: true})
	engine.Step()
	engine.Step()
	s.Dispatch(store.RunningSet{Running: false})

	req := httptest.NewRequest("GET", "/api/v1/snapshots", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	resp := decodeResponse(t, rec)
	all, _ := resp.Data.([]interface{})
	if len(all) != 3 {
		t.Errorf("Expected 3 snapshots, got %d", len(all))
	}

	req = httptest.NewRequest("GET", "/api/v1/snapshots?limit=2", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	resp = decodeResponse(t, rec)
	limited, _ := resp.Data.([]interface{})
	if len(limited) != 2 {
		t.Errorf("Expected 2 snapshots with limit, got %d", len(limited))
	}

	req = httptest.NewRequest("GET", "/api/v1/snapshots?limit=nope", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad limit, got %d", rec.Code)
	}

	req = httptest.NewRequest("GET", "/api/v1/snapshots/latest", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 for latest snapshot, got %d", rec.Code)
	}
}

func TestGetLatestSnapshot_EmptyHistory(t *testing.T) {
	router, _, _ := testRouter()

	req := httptest.NewRequest("GET", "/api/v1/snapshots/latest", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 before first tick, got %d", rec.Code)
	}
}

func TestGetSensorByID(t *testing.T) {
	router, _, engine := testRouter()
	seed := int64(240219)
	engine.Start(sim.StartOptions{Seed: &seed})
	engine.Stop()

	req := httptest.NewRequest("GET", "/api/v1/sensors/sensor-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 for sensor-1, got %d", rec.Code)
	}

	req = httptest.NewRequest("GET", "/api/v1/sensors/sensor-99", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown sensor, got %d", rec.Code)
	}
}

func TestQueueValveCommandEndpoint(t *testing.T) {
	router, s, _ := testRouter()

	body := strings.NewReader(`{"desiredState": "ON"}`)
	req := httptest.NewRequest("POST", "/api/v1/valves/101/command", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d", rec.Code)
	}

	valve, _ := s.GetState().Network.FindValve("101")
	if valve.CommandStatus == "idle" {
		t.Error("Expected command queued after accept")
	}

	// Invalid desired state is rejected before reaching the engine.
	body = strings.NewReader(`{"desiredState": "SIDEWAYS"}`)
	req = httptest.NewRequest("POST", "/api/v1/valves/204/command", body)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid desired state, got %d", rec.Code)
	}

	// Unknown valve ids are accepted and dropped silently; the command
	// protocol is fire-and-forget.
	body = strings.NewReader(`{"desiredState": "ON"}`)
	req = httptest.NewRequest("POST", "/api/v1/valves/999/command", body)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Errorf("Expected 202 for unknown valve, got %d", rec.Code)
	}
}

func TestApplyMitigationEndpoint(t *testing.T) {
	router, s, _ := testRouter()

	body := strings.NewReader(`{"type": "preflush_network"}`)
	req := httptest.NewRequest("POST", "/api/v1/mitigations", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d", rec.Code)
	}
	if got := s.GetState().Sim.MitigationBoost; got != 3.1 {
		t.Errorf("Expected boost 3.1, got %v", got)
	}

	// Missing type is a client error.
	req = httptest.NewRequest("POST", "/api/v1/mitigations", strings.NewReader(`{}`))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing type, got %d", rec.Code)
	}
}

func TestResolveIncidentEndpoint(t *testing.T) {
	router, s, _ := testRouter()

	req := httptest.NewRequest("POST", "/api/v1/incidents/incident-x-1/resolve", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown incident, got %d", rec.Code)
	}

	s.Dispatch(store.TickApplied{
		Tick: 1,
		Incidents: []models.Incident{
			{ID: "incident-sensor-1-1", SensorID: "sensor-1", Zone: "NMIET", Severity: "Critical"},
		},
	})

	req = httptest.NewRequest("POST", "/api/v1/incidents/incident-sensor-1-1/resolve", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !s.GetState().Network.Incidents[0].Resolved {
		t.Error("Expected incident marked resolved")
	}
}

func TestExportSnapshotJSON(t *testing.T) {
	router, _, engine := testRouter()

	// Before the first tick there is nothing to export.
	req := httptest.NewRequest("GET", "/api/v1/export/snapshot.json", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 before first tick, got %d", rec.Code)
	}

	seed := int64(240219)
	engine.Start(sim.StartOptions{Seed: &seed})
	engine.Stop()

	req = httptest.NewRequest("GET", "/api/v1/export/snapshot.json", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var payload map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("Failed to decode payload: %v", err)
	}
	for _, key := range []string{"exportedAt", "route", "filters", "scenario", "tick", "snapshot"} {
		if _, ok := payload[key]; !ok {
			t.Errorf("Missing payload key %q", key)
		}
	}
	if payload["tick"] != float64(1) {
		t.Errorf("Expected tick 1 in payload, got %v", payload["tick"])
	}
}

func TestExportHistoryCSVEndpoint(t *testing.T) {
	router, _, engine := testRouter()
	seed := int64(240219)
	engine.Start(sim.StartOptions{Seed: &seed})
	engine.Stop()

	req := httptest.NewRequest("GET", "/api/v1/export/history.csv", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("Expected text/csv, got %s", ct)
	}
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 2 {
		t.Errorf("Expected header + 1 row, got %d lines", len(lines))
	}
}

func TestGetActivityEndpoint(t *testing.T) {
	router, _, engine := testRouter()
	engine.SetScenario("heavy_rain")

	req := httptest.NewRequest("GET", "/api/v1/activity", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	resp := decodeResponse(t, rec)
	entries, _ := resp.Data.([]interface{})
	if len(entries) == 0 {
		t.Error("Expected activity entries after scenario switch")
	}
}
