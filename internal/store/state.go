package store

import (
	"time"

	"github.com/EcoFlow-E2/ecoflow_backend/internal/models"
)

// StateVersion is the schema version of the persisted application state.
// Deserialized blobs of any other version are discarded by the loader.
const StateVersion = 2

// Bounds on the retained collections
const (
	MaxHistory     = 120
	MaxIncidents   = 25
	MaxAlerts      = 24
	MaxActivityLog = 90
)

// DefaultSeed seeds the simulation RNG when no seed is configured
const DefaultSeed int64 = 240219

// UIState is the minimal dashboard state the core carries. It exists so the
// snapshot export payload can pass route and filters through unchanged.
type UIState struct {
	Route   string         `json:"route"`
	Filters models.Filters `json:"filters"`
}

// NetworkState holds everything owned by the drainage network simulation
type NetworkState struct {
	Sensors          []models.Sensor          `json:"sensors"`
	Valves           []models.Valve           `json:"valves"`
	Incidents        []models.Incident        `json:"incidents"`
	Alerts           []models.Alert           `json:"alerts"`
	MaintenanceTasks []models.MaintenanceTask `json:"maintenanceTasks"`
}

// SimState holds the simulation bookkeeping: seed, scenario, tick counter,
// bounded snapshot history, aggregate health, and the mitigation accumulator.
type SimState struct {
	Seed            int64             `json:"seed"`
	Scenario        string            `json:"scenario"`
	Tick            int               `json:"tick"`
	Running         bool              `json:"running"`
	LastTickAt      *time.Time        `json:"lastTickAt"`
	History         []models.Snapshot `json:"history"`
	Health          models.Health     `json:"health"`
	LastAlertTick   int               `json:"lastAlertTick"`
	AiSummary       models.AiSummary  `json:"aiSummary"`
	MitigationBoost float64           `json:"mitigationBoost"`
}

// OpsState holds operator-facing bookkeeping outside the simulation proper
type OpsState struct {
	ActivityLog []models.ActivityEntry `json:"activityLog"`
}

// AppState is the complete application state. It is treated as immutable:
// the reducer returns a fresh value and never mutates slices in place, so a
// state once read stays a fully-formed snapshot.
type AppState struct {
	Version int          `json:"version"`
	UI      UIState      `json:"ui"`
	Network NetworkState `json:"network"`
	Sim     SimState     `json:"sim"`
	Ops     OpsState     `json:"ops"`
}

// DefaultState returns a freshly constructed application state
func DefaultState() AppState {
	return AppState{
		Version: StateVersion,
		UI: UIState{
			Route: "/dashboard",
			Filters: models.Filters{
				Zone:       "all",
				Severity:   "all",
				TimeWindow: "30m",
			},
		},
		Network: NetworkState{
			Sensors: []models.Sensor{},
			Valves: []models.Valve{
				{ID: "101", Label: "Valve #101 (NMIET Junction)", Zone: "NMIET", State: models.ValveOff, CommandStatus: models.CommandIdle},
				{ID: "204", Label: "Valve #204 (Latis West)", Zone: "Latis Society", State: models.ValveOff, CommandStatus: models.CommandIdle},
				{ID: "307", Label: "Valve #307 (Shahu Link)", Zone: "Shahu Colony", State: models.ValveOff, CommandStatus: models.CommandIdle},
				{ID: "411", Label: "Valve #411 (Vaibhav Node)", Zone: "Vaibhav Apartment", State: models.ValveOff, CommandStatus: models.CommandIdle},
			},
			Incidents:        []models.Incident{},
			Alerts:           []models.Alert{},
			MaintenanceTasks: []models.MaintenanceTask{},
		},
		Sim: SimState{
			Seed:     DefaultSeed,
			Scenario: "normal_ops",
			Health: models.Health{
				Score:      99,
				PumpUptime: 99.6,
			},
			LastAlertTick: -999,
			AiSummary:     models.DefaultAiSummary(),
		},
		Ops: OpsState{
			ActivityLog: []models.ActivityEntry{},
		},
	}
}

// FindValve returns a copy of the valve with the given id, if present
func (n NetworkState) FindValve(id string) (models.Valve, bool) {
	for _, valve := range n.Valves {
		if valve.ID == id {
			return valve, true
		}
	}
	return models.Valve{}, false
}

// FindSensor returns a copy of the sensor with the given id, if present
func (n NetworkState) FindSensor(id string) (models.Sensor, bool) {
	for _, sensor := range n.Sensors {
		if sensor.ID == id {
			return sensor, true
		}
	}
	return models.Sensor{}, false
}

// LatestSnapshot returns the newest history entry, if any
func (s SimState) LatestSnapshot() (models.Snapshot, bool) {
	if len(s.History) == 0 {
		return models.Snapshot{}, false
	}
	return s.History[len(s.History)-1], true
}
