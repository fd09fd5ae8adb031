package store

import (
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/EcoFlow-E2/ecoflow_backend/internal/models"
)

var activitySeq uint64

func newActivityEntry(level, message string) models.ActivityEntry {
	return models.ActivityEntry{
		ID:        fmt.Sprintf("log-%d-%d", time.Now().UnixMilli(), atomic.AddUint64(&activitySeq, 1)),
		Level:     level,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// appendActivity returns state with a new activity entry prepended, newest
// first, capped at MaxActivityLog.
func appendActivity(state AppState, level, message string) AppState {
	log := make([]models.ActivityEntry, 0, len(state.Ops.ActivityLog)+1)
	log = append(log, newActivityEntry(level, message))
	log = append(log, state.Ops.ActivityLog...)
	if len(log) > MaxActivityLog {
		log = log[:MaxActivityLog]
	}
	state.Ops.ActivityLog = log
	return state
}

func cloneValves(valves []models.Valve) []models.Valve {
	out := make([]models.Valve, len(valves))
	copy(out, valves)
	return out
}

// Reduce applies one action to the state and returns the next state. It
// never mutates its input: AppState is passed and returned by value and any
// modified slice is cloned first, so previously read states stay intact.
func Reduce(state AppState, action Action) AppState {
	switch a := action.(type) {
	case SensorsInitialized:
		state.Network.Sensors = a.Sensors
		return state

	case SeedSet:
		state.Sim.Seed = a.Seed
		return state

	case ScenarioSet:
		state.Network.Incidents = []models.Incident{}
		state.Network.Alerts = []models.Alert{}
		state.Network.MaintenanceTasks = []models.MaintenanceTask{}
		state.Sim.Scenario = a.Scenario
		state.Sim.Tick = 0
		state.Sim.History = nil
		state.Sim.AiSummary = models.DefaultAiSummary()
		state.Sim.LastAlertTick = -999
		return appendActivity(state, "info", fmt.Sprintf("Scenario switched to %s", a.Scenario))

	case RunningSet:
		state.Sim.Running = a.Running
		return state

	case TickApplied:
		state.Network.Sensors = a.Sensors
		state.Network.Incidents = a.Incidents
		state.Network.Alerts = a.Alerts
		state.Network.MaintenanceTasks = a.MaintenanceTasks
		state.Sim.Tick = a.Tick
		state.Sim.History = a.History
		state.Sim.AiSummary = a.AiSummary
		state.Sim.LastAlertTick = a.LastAlertTick
		state.Sim.MitigationBoost = a.MitigationBoost
		state.Sim.Health = a.Health
		ts := a.Snapshot.Timestamp
		state.Sim.LastTickAt = &ts
		return state

	case ValveCommandQueued:
		valves := cloneValves(state.Network.Valves)
		for i := range valves {
			if valves[i].ID != a.ValveID {
				continue
			}
			valves[i].CommandStatus = models.CommandQueued
			valves[i].DesiredState = a.DesiredState
			if !a.Retry {
				valves[i].Retries = 0
			}
		}
		state.Network.Valves = valves
		return appendActivity(state, "info", fmt.Sprintf("Queued command for valve %s", a.ValveID))

	case ValveCommandInFlight:
		valves := cloneValves(state.Network.Valves)
		for i := range valves {
			if valves[i].ID == a.ValveID {
				valves[i].CommandStatus = models.CommandInFlight
			}
		}
		state.Network.Valves = valves
		return state

	case ValveCommandSucceeded:
		valves := cloneValves(state.Network.Valves)
		for i := range valves {
			if valves[i].ID != a.ValveID {
				continue
			}
			valves[i].State = a.DesiredState
			valves[i].CommandStatus = models.CommandIdle
			valves[i].Retries = 0
			valves[i].DesiredState = ""
		}
		state.Network.Valves = valves
		return appendActivity(state, "success", fmt.Sprintf("Valve %s set to %s", a.ValveID, a.DesiredState))

	case ValveCommandFailed:
		valves := cloneValves(state.Network.Valves)
		for i := range valves {
			if valves[i].ID != a.ValveID {
				continue
			}
			valves[i].CommandStatus = models.CommandFailed
			valves[i].Retries++
		}
		state.Network.Valves = valves
		return appendActivity(state, "warning", fmt.Sprintf("Valve %s command failed", a.ValveID))

	case MitigationApplied:
		boost := state.Sim.MitigationBoost + a.Boost
		state.Sim.MitigationBoost = math.Round(boost*100) / 100
		return appendActivity(state, "success", fmt.Sprintf("Mitigation applied: %s", a.Type))

	case IncidentResolved:
		incidents := make([]models.Incident, len(state.Network.Incidents))
		copy(incidents, state.Network.Incidents)
		for i := range incidents {
			if incidents[i].ID == a.IncidentID {
				incidents[i].Resolved = true
			}
		}
		state.Network.Incidents = incidents
		return appendActivity(state, "info", fmt.Sprintf("Incident %s resolved", a.IncidentID))

	default:
		return state
	}
}
