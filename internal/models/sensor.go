package models

import (
	"time"
)

// SensorStatus is the severity bucket derived from a sensor's risk value
type SensorStatus string

const (
	StatusNormal   SensorStatus = "normal"
	StatusWarning  SensorStatus = "warning"
	StatusCritical SensorStatus = "critical"
)

// Sensor represents one simulated drainage sensor. Sensors are owned by the
// simulation and replaced wholesale on every tick; consumers only ever see
// copies.
type Sensor struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	Zone            string       `json:"zone"`
	Lat             float64      `json:"lat"`
	Lng             float64      `json:"lng"`
	Flow            float64      `json:"flow"`
	Sludge          float64      `json:"sludge"`
	Risk            float64      `json:"risk"`
	Status          SensorStatus `json:"status"`
	ClogProbability float64      `json:"clogProbability"`
	Direction       string       `json:"direction"`
	CleanedAtTick   int          `json:"cleanedAtTick"`
}

// StatusFromRisk maps a 0-100 risk value to its severity bucket
func StatusFromRisk(risk float64) SensorStatus {
	switch {
	case risk >= 80:
		return StatusCritical
	case risk >= 60:
		return StatusWarning
	default:
		return StatusNormal
	}
}

// ZoneRisk aggregates sensor state for one zone within a single tick
type ZoneRisk struct {
	AvgRisk  float64 `json:"avgRisk"`
	Normal   int     `json:"normal"`
	Warning  int     `json:"warning"`
	Critical int     `json:"critical"`
	Count    int     `json:"count"`
}

// MaintenanceStats summarizes the maintenance queue for one tick
type MaintenanceStats struct {
	Urgent    int `json:"urgent"`
	Scheduled int `json:"scheduled"`
	Healthy   int `json:"healthy"`
}

// Snapshot is the complete observable state produced by one tick. Snapshots
// are immutable once created and are appended to a bounded history.
type Snapshot struct {
	Tick             int                 `json:"tick"`
	Timestamp        time.Time           `json:"timestamp"`
	NetworkLoad      float64             `json:"networkLoad"`
	ZoneRisk         map[string]ZoneRisk `json:"zoneRisk"`
	Sensors          []Sensor            `json:"sensors"`
	MaintenanceStats MaintenanceStats    `json:"maintenanceStats"`
}
