package sim

import (
	"fmt"
	"time"

	"github.com/EcoFlow-E2/ecoflow_backend/internal/models"
	"github.com/EcoFlow-E2/ecoflow_backend/internal/store"
)

// maxValveRetries bounds the automatic retry budget of a valve command
const maxValveRetries = 2

// highLoadFailurePenalty is added to the failure probability while the
// network load is above the high-load threshold
const (
	highLoadThreshold      = 75.0
	highLoadFailurePenalty = 0.08
)

// QueueValveCommand enters the asynchronous valve command protocol:
// queued -> in_flight -> success or failed, with a bounded automatic retry
// on failure. Unknown valve ids are a silent no-op, as is queueing while a
// command is already outstanding for the valve.
//
// desiredState may be empty, in which case the command toggles the valve's
// current position.
func (e *Engine) QueueValveCommand(valveID string, desiredState models.ValveState) {
	// The outstanding-command check and the queue dispatch must be atomic
	// with respect to other callers, otherwise two concurrent commands for
	// the same valve can both pass the check and arm duplicate timer chains.
	e.valveMu.Lock()
	defer e.valveMu.Unlock()

	state := e.store.GetState()
	valve, ok := state.Network.FindValve(valveID)
	if !ok {
		return
	}
	if valve.HasOutstandingCommand() {
		return
	}

	finalState := desiredState
	if finalState == "" {
		finalState = valve.Toggled()
	}

	e.scheduleCommand(valveID, finalState, false)
}

// scheduleCommand dispatches the queued transition and arms the two command
// timers: a short fixed delay to in_flight and a randomized field latency to
// resolution. Each timer callback re-fetches the latest state rather than
// acting on a captured snapshot, so a valve resolved or removed by another
// path is handled as a no-op.
func (e *Engine) scheduleCommand(valveID string, finalState models.ValveState, isRetry bool) {
	e.store.Dispatch(store.ValveCommandQueued{
		ValveID:      valveID,
		DesiredState: finalState,
		Retry:        isRetry,
	})

	time.AfterFunc(e.cfg.QueueDelay, func() {
		latest := e.store.GetState()
		if valve, ok := latest.Network.FindValve(valveID); !ok || valve.CommandStatus != models.CommandQueued {
			return
		}
		e.store.Dispatch(store.ValveCommandInFlight{ValveID: valveID})
	})

	e.mu.Lock()
	latencyRange := float64(e.cfg.LatencyMax-e.cfg.LatencyMin) / float64(time.Millisecond)
	latency := e.cfg.LatencyMin + time.Duration(e.rng.Range(0, latencyRange))*time.Millisecond
	e.mu.Unlock()

	time.AfterFunc(latency, func() {
		e.resolveCommand(valveID, finalState)
	})
}

// resolveCommand draws the success/failure outcome for an in-flight command
// against the scenario's failure rate, biased upward under high network
// load.
func (e *Engine) resolveCommand(valveID string, finalState models.ValveState) {
	latest := e.store.GetState()
	valve, ok := latest.Network.FindValve(valveID)
	if !ok {
		return
	}

	scenario := ActiveScenario(latest.Sim.Scenario)
	failureBias := scenario.ValveFailureRate
	if latest.Sim.Health.NetworkLoad > highLoadThreshold {
		failureBias += highLoadFailurePenalty
	}

	e.mu.Lock()
	draw := e.rng.Float64()
	e.mu.Unlock()

	if draw > failureBias {
		e.store.Dispatch(store.ValveCommandSucceeded{
			ValveID:      valveID,
			DesiredState: finalState,
		})
		if e.sink != nil {
			e.sink.Notify("success", fmt.Sprintf("%s switched %s", valve.Label, finalState))
		}
		return
	}

	willRetry := valve.Retries+1 < maxValveRetries
	e.store.Dispatch(store.ValveCommandFailed{ValveID: valveID, WillRetry: willRetry})

	if e.sink != nil {
		suffix := ""
		if willRetry {
			suffix = ", retrying..."
		}
		e.sink.Notify("warning", fmt.Sprintf("%s command failed%s", valve.Label, suffix))
	}

	if willRetry {
		time.AfterFunc(e.cfg.RetryBackoff, func() {
			e.scheduleCommand(valveID, finalState, true)
		})
	}
}
