package sim

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/EcoFlow-E2/ecoflow_backend/internal/models"
)

// Evaluate is the rule-based risk evaluator: a pure function of one snapshot,
// the current mitigation boost, and the active scenario. It is side-effect
// free and returns the same summary for identical inputs.
func Evaluate(snapshot models.Snapshot, mitigationBoost float64, scenario Scenario) models.AiSummary {
	sensorCount := len(snapshot.Sensors)
	divisor := sensorCount
	if divisor == 0 {
		divisor = 1
	}

	criticalSensors, warningSensors := 0, 0
	clogSum := 0.0
	for _, sensor := range snapshot.Sensors {
		switch sensor.Status {
		case models.StatusCritical:
			criticalSensors++
		case models.StatusWarning:
			warningSensors++
		}
		clogSum += sensor.ClogProbability
	}
	avgClog := clogSum / float64(divisor)

	rainfallSignal := scenario.Rainfall * 100
	loadSignal := snapshot.NetworkLoad
	alertSignal := float64(criticalSensors)*5 + float64(warningSensors)*2
	clogSignal := avgClog * 35

	raw := rainfallSignal*0.27 + loadSignal*0.35 + alertSignal + clogSignal - mitigationBoost*5
	riskScore := int(math.Max(0, math.Min(100, math.Round(raw))))

	anomalyClass := "Stable"
	severity := models.SeverityOK
	recommendation := "Maintain current routing and continue scheduled cleaning."

	switch {
	case riskScore >= 80:
		anomalyClass = "Critical surge risk"
		severity = models.SeverityCritical
		recommendation = "Activate emergency reroute, dispatch crew to top-risk drains, and lock high-load valves to safe mode."
	case riskScore >= 60:
		anomalyClass = "Elevated overflow risk"
		severity = models.SeverityWarning
		recommendation = "Pre-position maintenance crew and pre-flush high-sludge corridors."
	case riskScore >= 40:
		anomalyClass = "Moderate turbulence"
		severity = models.SeverityWatch
		recommendation = "Run preventive valve balancing and monitor risk trend."
	}

	mitigationLine := "Mitigation boost active: None"
	if mitigationBoost > 0 {
		mitigationLine = fmt.Sprintf("Mitigation boost active: +%.1f", mitigationBoost)
	}

	topZones := topRiskZones(snapshot.ZoneRisk, 2)
	zoneLine := "Top risk zones: None"
	if len(topZones) > 0 {
		zoneLine = fmt.Sprintf("Top risk zones: %s", strings.Join(topZones, ", "))
	}

	rationale := []string{
		fmt.Sprintf("Rainfall proxy: %d / 100", int(math.Round(rainfallSignal))),
		fmt.Sprintf("Network load: %d%%", int(math.Round(loadSignal))),
		fmt.Sprintf("Critical sensors: %d", criticalSensors),
		fmt.Sprintf("Warning sensors: %d", warningSensors),
		fmt.Sprintf("Avg clog probability: %.1f%%", avgClog*100),
		mitigationLine,
		zoneLine,
	}

	return models.AiSummary{
		RiskScore:      riskScore,
		AnomalyClass:   anomalyClass,
		Recommendation: recommendation,
		Rationale:      rationale,
		Severity:       severity,
	}
}

// topRiskZones ranks zones by mean risk descending, with the zone name as a
// deterministic tie break.
func topRiskZones(zoneRisk map[string]models.ZoneRisk, limit int) []string {
	names := make([]string, 0, len(zoneRisk))
	for name := range zoneRisk {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := zoneRisk[names[i]], zoneRisk[names[j]]
		if a.AvgRisk != b.AvgRisk {
			return a.AvgRisk > b.AvgRisk
		}
		return names[i] < names[j]
	})
	if len(names) > limit {
		names = names[:limit]
	}
	return names
}
