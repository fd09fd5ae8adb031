package models

// Incident is raised when a sensor turns critical. At most one open
// (unresolved, unexpired) incident per sensor exists at any tick; incidents
// expire 24 ticks after being raised.
type Incident struct {
	ID       string `json:"id"`
	Tick     int    `json:"tick"`
	SensorID string `json:"sensorId"`
	Zone     string `json:"zone"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Resolved bool   `json:"resolved"`
}

// Alert is a network-level notification raised when critical sensors exist
// or warning sensors pile up, subject to a 3-tick cooldown. Alerts expire
// after 28 ticks.
type Alert struct {
	ID      string `json:"id"`
	Tick    int    `json:"tick"`
	Level   string `json:"level"`
	Zone    string `json:"zone"`
	Message string `json:"message"`
}

// MaintenanceTask is one entry of the maintenance queue. Tasks are fully
// recomputed every tick and never carried over as mutable entities.
type MaintenanceTask struct {
	ID              string  `json:"id"`
	SensorID        string  `json:"sensorId"`
	Location        string  `json:"location"`
	Zone            string  `json:"zone"`
	Risk            float64 `json:"risk"`
	ETAMinutes      int     `json:"etaMinutes"`
	Crew            string  `json:"crew"`
	Status          string  `json:"status"`
	PredictedImpact string  `json:"predictedImpact"`
}
