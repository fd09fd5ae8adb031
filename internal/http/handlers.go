package http

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/EcoFlow-E2/ecoflow_backend/internal/export"
	"github.com/EcoFlow-E2/ecoflow_backend/internal/models"
	"github.com/EcoFlow-E2/ecoflow_backend/internal/sim"
	"github.com/EcoFlow-E2/ecoflow_backend/internal/store"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	store         *store.Store
	engine        *sim.Engine
	exportService *export.ExportService
}

// NewHandlers creates a new handlers instance
func NewHandlers(s *store.Store, engine *sim.Engine) *Handlers {
	return &Handlers{
		store:         s,
		engine:        engine,
		exportService: export.NewExportService(),
	}
}

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// GetHealth is a liveness check
func (h *Handlers) GetHealth(w http.ResponseWriter, r *http.Request) {
	state := h.store.GetState()
	h.sendSuccessResponse(w, "", map[string]interface{}{
		"status":  "ok",
		"running": state.Sim.Running,
		"tick":    state.Sim.Tick,
	})
}

// StartSimulation starts the background tick loop. Seed and scenario are
// optional; omitted fields keep the current values.
func (h *Handlers) StartSimulation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Seed     *int64 `json:"seed"`
		Scenario string `json:"scenario"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.sendErrorResponse(w, "Invalid JSON body", http.StatusBadRequest)
			return
		}
	}

	if req.Scenario != "" {
		if _, ok := sim.ScenarioByName(req.Scenario); !ok {
			h.sendErrorResponse(w, fmt.Sprintf("Unknown scenario: %s", req.Scenario), http.StatusBadRequest)
			return
		}
	}

	h.engine.Start(sim.StartOptions{Seed: req.Seed, Scenario: req.Scenario})

	state := h.store.GetState()
	h.sendSuccessResponse(w, "Simulation started", map[string]interface{}{
		"running":  state.Sim.Running,
		"scenario": state.Sim.Scenario,
		"seed":     state.Sim.Seed,
		"tick":     state.Sim.Tick,
	})
}

// StopSimulation halts the background tick loop
func (h *Handlers) StopSimulation(w http.ResponseWriter, r *http.Request) {
	h.engine.Stop()

	state := h.store.GetState()
	h.sendSuccessResponse(w, "Simulation stopped", map[string]interface{}{
		"running": state.Sim.Running,
		"tick":    state.Sim.Tick,
	})
}

// StepSimulation advances the simulation by a single tick while running
func (h *Handlers) StepSimulation(w http.ResponseWriter, r *http.Request) {
	if !h.engine.IsRunning() {
		h.sendErrorResponse(w, "Simulation is not running", http.StatusConflict)
		return
	}

	h.engine.Step()

	state := h.store.GetState()
	snapshot, _ := state.Sim.LatestSnapshot()
	h.sendSuccessResponse(w, "Tick applied", snapshot)
}

// SetScenario switches the active scenario and reinitializes the network
func (h *Handlers) SetScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Scenario string `json:"scenario"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendErrorResponse(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	if _, ok := sim.ScenarioByName(req.Scenario); !ok {
		h.sendErrorResponse(w, fmt.Sprintf("Unknown scenario: %s", req.Scenario), http.StatusBadRequest)
		return
	}

	h.engine.SetScenario(req.Scenario)

	state := h.store.GetState()
	h.sendSuccessResponse(w, fmt.Sprintf("Scenario switched to %s", req.Scenario), map[string]interface{}{
		"scenario": state.Sim.Scenario,
		"seed":     state.Sim.Seed,
		"tick":     state.Sim.Tick,
	})
}

// GetScenarios lists the available scenarios with their parameters
func (h *Handlers) GetScenarios(w http.ResponseWriter, r *http.Request) {
	type scenarioEntry struct {
		Key string `json:"key"`
		sim.Scenario
	}

	scenarios := make([]scenarioEntry, 0, len(sim.Scenarios))
	for _, name := range sim.ScenarioNames() {
		scenarios = append(scenarios, scenarioEntry{Key: name, Scenario: sim.Scenarios[name]})
	}
	h.sendSuccessResponse(w, "", scenarios)
}

// GetState returns the complete application state
func (h *Handlers) GetState(w http.ResponseWriter, r *http.Request) {
	h.sendSuccessResponse(w, "", h.store.GetState())
}

// GetSystemStats returns overall system statistics
func (h *Handlers) GetSystemStats(w http.ResponseWriter, r *http.Request) {
	state := h.store.GetState()

	openIncidents := 0
	for _, incident := range state.Network.Incidents {
		if !incident.Resolved {
			openIncidents++
		}
	}

	stats := map[string]interface{}{
		"running":          state.Sim.Running,
		"scenario":         state.Sim.Scenario,
		"seed":             state.Sim.Seed,
		"tick":             state.Sim.Tick,
		"lastTickAt":       state.Sim.LastTickAt,
		"sensorCount":      len(state.Network.Sensors),
		"openIncidents":    openIncidents,
		"activeAlerts":     len(state.Network.Alerts),
		"maintenanceTasks": len(state.Network.MaintenanceTasks),
		"health":           state.Sim.Health,
		"snapshotsHeld":    len(state.Sim.History),
	}

	h.sendSuccessResponse(w, "", stats)
}

// GetSnapshots returns the retained tick history, newest last.
// An optional limit query parameter restricts the result to the most
// recent N snapshots.
func (h *Handlers) GetSnapshots(w http.ResponseWriter, r *http.Request) {
	state := h.store.GetState()
	history := state.Sim.History

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			h.sendErrorResponse(w, "Invalid limit parameter", http.StatusBadRequest)
			return
		}
		if limit < len(history) {
			history = history[len(history)-limit:]
		}
	}

	h.sendSuccessResponse(w, "", history)
}

// GetLatestSnapshot returns the most recent tick snapshot
func (h *Handlers) GetLatestSnapshot(w http.ResponseWriter, r *http.Request) {
	state := h.store.GetState()
	snapshot, ok := state.Sim.LatestSnapshot()
	if !ok {
		h.sendErrorResponse(w, "No simulation snapshot available yet", http.StatusNotFound)
		return
	}
	h.sendSuccessResponse(w, "", snapshot)
}

// GetSensors returns all sensors, optionally filtered by zone or status
func (h *Handlers) GetSensors(w http.ResponseWriter, r *http.Request) {
	state := h.store.GetState()
	sensors := state.Network.Sensors

	zone := r.URL.Query().Get("zone")
	status := r.URL.Query().Get("status")

	if zone != "" || status != "" {
		filtered := []models.Sensor{}
		for _, sensor := range sensors {
			if zone != "" && !strings.EqualFold(sensor.Zone, zone) {
				continue
			}
			if status != "" && string(sensor.Status) != status {
				continue
			}
			filtered = append(filtered, sensor)
		}
		sensors = filtered
	}

	h.sendSuccessResponse(w, "", sensors)
}

// GetSensor returns a single sensor by ID
func (h *Handlers) GetSensor(w http.ResponseWriter, r *http.Request) {
	sensorID := chi.URLParam(r, "id")

	state := h.store.GetState()
	sensor, ok := state.Network.FindSensor(sensorID)
	if !ok {
		h.sendErrorResponse(w, "Sensor not found", http.StatusNotFound)
		return
	}

	h.sendSuccessResponse(w, "", sensor)
}

// GetIncidents returns the open incident feed, newest first
func (h *Handlers) GetIncidents(w http.ResponseWriter, r *http.Request) {
	state := h.store.GetState()
	h.sendSuccessResponse(w, "", state.Network.Incidents)
}

// ResolveIncident marks an incident as resolved so it is pruned on the
// next tick
func (h *Handlers) ResolveIncident(w http.ResponseWriter, r *http.Request) {
	incidentID := chi.URLParam(r, "id")

	state := h.store.GetState()
	found := false
	for _, incident := range state.Network.Incidents {
		if incident.ID == incidentID {
			found = true
			break
		}
	}
	if !found {
		h.sendErrorResponse(w, "Incident not found", http.StatusNotFound)
		return
	}

	h.engine.ResolveIncident(incidentID)
	h.sendSuccessResponse(w, "Incident resolved", nil)
}

// GetAlerts returns the active alert feed, newest first
func (h *Handlers) GetAlerts(w http.ResponseWriter, r *http.Request) {
	state := h.store.GetState()
	h.sendSuccessResponse(w, "", state.Network.Alerts)
}

// GetMaintenance returns the maintenance dispatch queue, highest risk first
func (h *Handlers) GetMaintenance(w http.ResponseWriter, r *http.Request) {
	state := h.store.GetState()
	h.sendSuccessResponse(w, "", state.Network.MaintenanceTasks)
}

// GetValves returns all actuated valves with their command status
func (h *Handlers) GetValves(w http.ResponseWriter, r *http.Request) {
	state := h.store.GetState()
	h.sendSuccessResponse(w, "", state.Network.Valves)
}

// QueueValveCommand queues an asynchronous valve command. The command is
// accepted for processing; the outcome arrives later through the state
// and the websocket feed. Commands for unknown valves or valves with an
// outstanding command are dropped without error, matching the engine's
// silent no-op behavior.
func (h *Handlers) QueueValveCommand(w http.ResponseWriter, r *http.Request) {
	valveID := chi.URLParam(r, "id")

	var req struct {
		DesiredState string `json:"desiredState"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.sendErrorResponse(w, "Invalid JSON body", http.StatusBadRequest)
			return
		}
	}

	var desired models.ValveState
	switch strings.ToUpper(req.DesiredState) {
	case "":
		// Empty desired state toggles the valve
	case string(models.ValveOn):
		desired = models.ValveOn
	case string(models.ValveOff):
		desired = models.ValveOff
	default:
		h.sendErrorResponse(w, "Invalid desiredState. Use 'ON' or 'OFF'", http.StatusBadRequest)
		return
	}

	h.engine.QueueValveCommand(valveID, desired)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(APIResponse{
		Success: true,
		Message: "Valve command accepted",
	})
}

// ApplyMitigation applies a mitigation action that temporarily suppresses
// the evaluated risk score
func (h *Handlers) ApplyMitigation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type string `json:"type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendErrorResponse(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.Type == "" {
		h.sendErrorResponse(w, "Mitigation type is required", http.StatusBadRequest)
		return
	}

	h.engine.ApplyMitigation(req.Type)

	state := h.store.GetState()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(APIResponse{
		Success: true,
		Message: "Mitigation applied",
		Data: map[string]interface{}{
			"mitigationBoost": state.Sim.MitigationBoost,
		},
	})
}

// GetAiSummary returns the latest rule-based risk evaluation
func (h *Handlers) GetAiSummary(w http.ResponseWriter, r *http.Request) {
	state := h.store.GetState()
	h.sendSuccessResponse(w, "", state.Sim.AiSummary)
}

// GetActivity returns the operator activity log, newest first
func (h *Handlers) GetActivity(w http.ResponseWriter, r *http.Request) {
	state := h.store.GetState()
	h.sendSuccessResponse(w, "", state.Ops.ActivityLog)
}

// ExportSnapshotJSON serves the latest tick as a downloadable JSON document
func (h *Handlers) ExportSnapshotJSON(w http.ResponseWriter, r *http.Request) {
	state := h.store.GetState()

	payload, err := h.exportService.BuildSnapshotPayload(state, time.Now())
	if err != nil {
		h.sendErrorResponse(w, "No simulation snapshot available yet", http.StatusNotFound)
		return
	}

	filename := fmt.Sprintf("ecoflow_snapshot_tick_%d.json", payload.Tick)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	json.NewEncoder(w).Encode(payload)
}

// ExportHistoryExcel generates and serves an Excel report of the
// retained simulation history
func (h *Handlers) ExportHistoryExcel(w http.ResponseWriter, r *http.Request) {
	state := h.store.GetState()

	excelFile, err := h.exportService.GenerateExcel(state)
	if err != nil {
		h.sendErrorResponse(w, "Failed to generate Excel file", http.StatusInternalServerError)
		return
	}

	filename := fmt.Sprintf("ecoflow_history_tick_%d.xlsx", state.Sim.Tick)
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))

	if err := excelFile.Write(w); err != nil {
		h.sendErrorResponse(w, "Failed to write Excel file", http.StatusInternalServerError)
		return
	}
}

// ExportHistoryCSV serves the retained simulation history as CSV
func (h *Handlers) ExportHistoryCSV(w http.ResponseWriter, r *http.Request) {
	state := h.store.GetState()

	csvData, err := h.exportService.GenerateCSV(state.Sim.History)
	if err != nil {
		h.sendErrorResponse(w, "Failed to generate CSV data", http.StatusInternalServerError)
		return
	}

	filename := fmt.Sprintf("ecoflow_history_tick_%d.csv", state.Sim.Tick)
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))

	csvWriter := csv.NewWriter(w)
	if err := h.exportService.WriteCSV(csvWriter, csvData); err != nil {
		h.sendErrorResponse(w, "Failed to write CSV data", http.StatusInternalServerError)
		return
	}
}

// sendSuccessResponse writes a successful API response
func (h *Handlers) sendSuccessResponse(w http.ResponseWriter, message string, data interface{}) {
	response := APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// sendErrorResponse writes an error API response
func (h *Handlers) sendErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	response := APIResponse{
		Success: false,
		Error:   message,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}
