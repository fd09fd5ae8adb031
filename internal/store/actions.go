package store

import (
	"github.com/EcoFlow-E2/ecoflow_backend/internal/models"
)

// Action is one variant of the tagged union processed by the reducer. Every
// state change flows through exactly one Action dispatch.
type Action interface {
	// ActionType returns the stable name of the action variant, used for
	// logging and listener filtering.
	ActionType() string
}

// SensorsInitialized replaces the entire sensor list after a scenario
// activation. Sensors are never partially reseeded.
type SensorsInitialized struct {
	Sensors []models.Sensor
}

// SeedSet records a new base seed for the simulation RNG
type SeedSet struct {
	Seed int64
}

// ScenarioSet switches the active scenario and resets all derived state:
// incidents, alerts, maintenance queue, history, tick counter, alert
// cooldown, and the AI summary placeholder.
type ScenarioSet struct {
	Scenario string
}

// RunningSet starts or stops the periodic tick timeline
type RunningSet struct {
	Running bool
}

// TickApplied carries the complete result of one tick transition. It is
// dispatched as a single action so the physical transition, incident/alert
// derivation, and risk evaluation land atomically.
type TickApplied struct {
	Tick             int
	Sensors          []models.Sensor
	Incidents        []models.Incident
	Alerts           []models.Alert
	MaintenanceTasks []models.MaintenanceTask
	History          []models.Snapshot
	AiSummary        models.AiSummary
	Snapshot         models.Snapshot
	LastAlertTick    int
	MitigationBoost  float64
	Health           models.Health
}

// ValveCommandQueued moves a valve to the queued command state. Retry marks
// an automatic re-queue after a transient failure; a fresh command resets
// the retry counter.
type ValveCommandQueued struct {
	ValveID      string
	DesiredState models.ValveState
	Retry        bool
}

// ValveCommandInFlight marks a queued valve command as dispatched to the
// (simulated) field network
type ValveCommandInFlight struct {
	ValveID string
}

// ValveCommandSucceeded resolves a command: the valve takes its desired
// state and returns to idle.
type ValveCommandSucceeded struct {
	ValveID      string
	DesiredState models.ValveState
}

// ValveCommandFailed records a failed command resolution. WillRetry is true
// when an automatic re-queue is scheduled.
type ValveCommandFailed struct {
	ValveID   string
	WillRetry bool
}

// MitigationApplied adds a mitigation boost to the decaying accumulator
type MitigationApplied struct {
	Type  string
	Boost float64
}

// IncidentResolved marks an open incident as resolved; it is pruned on the
// next tick.
type IncidentResolved struct {
	IncidentID string
}

func (SensorsInitialized) ActionType() string   { return "NETWORK_SENSORS_INITIALIZED" }
func (SeedSet) ActionType() string              { return "SIM_SEED_SET" }
func (ScenarioSet) ActionType() string          { return "SIM_SCENARIO_SET" }
func (RunningSet) ActionType() string           { return "SIMULATION_RUNNING_SET" }
func (TickApplied) ActionType() string          { return "SIM_TICK_APPLIED" }
func (ValveCommandQueued) ActionType() string   { return "VALVE_COMMAND_QUEUED" }
func (ValveCommandInFlight) ActionType() string { return "VALVE_COMMAND_IN_FLIGHT" }
func (ValveCommandSucceeded) ActionType() string {
	return "VALVE_COMMAND_SUCCESS"
}
func (ValveCommandFailed) ActionType() string { return "VALVE_COMMAND_FAILED" }
func (MitigationApplied) ActionType() string  { return "MITIGATION_APPLIED" }
func (IncidentResolved) ActionType() string   { return "INCIDENT_RESOLVED" }
