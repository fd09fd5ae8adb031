package models

// ValveState is the physical position of an actuated valve
type ValveState string

const (
	ValveOn  ValveState = "ON"
	ValveOff ValveState = "OFF"
)

// CommandStatus tracks the asynchronous command protocol of a valve
type CommandStatus string

const (
	CommandIdle     CommandStatus = "idle"
	CommandQueued   CommandStatus = "queued"
	CommandInFlight CommandStatus = "in_flight"
	CommandFailed   CommandStatus = "failed"
)

// Valve is an actuated network valve. A valve has at most one outstanding
// command at a time; DesiredState is set while a command is pending and
// cleared on success.
type Valve struct {
	ID            string        `json:"id"`
	Label         string        `json:"label"`
	Zone          string        `json:"zone"`
	State         ValveState    `json:"state"`
	CommandStatus CommandStatus `json:"commandStatus"`
	DesiredState  ValveState    `json:"desiredState,omitempty"`
	Retries       int           `json:"retries"`
}

// Toggled returns the opposite of the valve's current position
func (v Valve) Toggled() ValveState {
	if v.State == ValveOn {
		return ValveOff
	}
	return ValveOn
}

// HasOutstandingCommand reports whether a command is currently queued or in
// flight for this valve. Failed is terminal, not outstanding.
func (v Valve) HasOutstandingCommand() bool {
	return v.CommandStatus == CommandQueued || v.CommandStatus == CommandInFlight
}
