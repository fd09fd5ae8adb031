package models

import (
	"time"
)

// Severity tiers for the rule-based risk evaluator
const (
	SeverityOK       = "ok"
	SeverityWatch    = "watch"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// AiSummary is the output of the rule-based risk evaluator. It is fully
// recomputed each tick and never merged with prior values.
type AiSummary struct {
	RiskScore      int      `json:"riskScore"`
	AnomalyClass   string   `json:"anomalyClass"`
	Recommendation string   `json:"recommendation"`
	Rationale      []string `json:"rationale"`
	Severity       string   `json:"severity"`
}

// DefaultAiSummary returns the bootstrap placeholder shown before the first
// tick of a scenario
func DefaultAiSummary() AiSummary {
	return AiSummary{
		RiskScore:      0,
		AnomalyClass:   "Bootstrapping simulation",
		Recommendation: "Initializing telemetry stream.",
		Rationale:      []string{"Awaiting first simulation tick."},
		Severity:       SeverityOK,
	}
}

// Health holds the network-wide aggregate health metrics for one tick
type Health struct {
	Score         float64 `json:"score"`
	ActiveAlerts  int     `json:"activeAlerts"`
	AffectedZones int     `json:"affectedZones"`
	PumpUptime    float64 `json:"pumpUptime"`
	NetworkLoad   float64 `json:"networkLoad"`
}

// ActivityEntry is one line of the operations activity log
type ActivityEntry struct {
	ID        string    `json:"id"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Filters are the dashboard-facing view filters. The core only carries them
// so the snapshot export payload can pass them through.
type Filters struct {
	Zone       string `json:"zone"`
	Severity   string `json:"severity"`
	TimeWindow string `json:"timeWindow"`
}
