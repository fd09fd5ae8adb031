package sim

import (
	"reflect"
	"strings"
	"testing"

	"github.com/EcoFlow-E2/ecoflow_backend/internal/models"
)

func snapshotWith(sensors []models.Sensor, load float64, zoneRisk map[string]models.ZoneRisk) models.Snapshot {
	return models.Snapshot{
		Tick:        1,
		NetworkLoad: load,
		Sensors:     sensors,
		ZoneRisk:    zoneRisk,
	}
}

func TestEvaluate_Pure(t *testing.T) {
	snapshot := snapshotWith([]models.Sensor{
		{ID: "sensor-1", Status: models.StatusCritical, ClogProbability: 0.6},
		{ID: "sensor-2", Status: models.StatusWarning, ClogProbability: 0.4},
	}, 70, map[string]models.ZoneRisk{"NMIET": {AvgRisk: 80}})

	first := Evaluate(snapshot, 1.5, Scenarios["heavy_rain"])
	second := Evaluate(snapshot, 1.5, Scenarios["heavy_rain"])

	if !reflect.DeepEqual(first, second) {
		t.Error("Expected identical summaries for identical inputs")
	}
}

func TestEvaluate_SeverityTiers(t *testing.T) {
	// No sensors, no load, no rainfall: score 0, ok.
	summary := Evaluate(snapshotWith(nil, 0, nil), 0, Scenario{})
	if summary.RiskScore != 0 || summary.Severity != models.SeverityOK {
		t.Errorf("Expected score 0/ok, got %d/%s", summary.RiskScore, summary.Severity)
	}
	if summary.AnomalyClass != "Stable" {
		t.Errorf("Expected Stable, got %s", summary.AnomalyClass)
	}

	// Rainfall 1.0 alone: 100*0.27 = 27, still ok.
	summary = Evaluate(snapshotWith(nil, 0, nil), 0, Scenario{Rainfall: 1})
	if summary.RiskScore != 27 || summary.Severity != models.SeverityOK {
		t.Errorf("Expected score 27/ok, got %d/%s", summary.RiskScore, summary.Severity)
	}

	// Rainfall 1.0 + load 50: 27 + 17.5 = round(44.5) = 45, watch.
	summary = Evaluate(snapshotWith(nil, 50, nil), 0, Scenario{Rainfall: 1})
	if summary.RiskScore != 45 || summary.Severity != models.SeverityWatch {
		t.Errorf("Expected score 45/watch, got %d/%s", summary.RiskScore, summary.Severity)
	}

	// Add 4 critical sensors: 45 + 20 = 65, warning.
	var criticals []models.Sensor
	for i := 0; i < 4; i++ {
		criticals = append(criticals, models.Sensor{Status: models.StatusCritical})
	}
	summary = Evaluate(snapshotWith(criticals, 50, nil), 0, Scenario{Rainfall: 1})
	if summary.Severity != models.SeverityWarning {
		t.Errorf("Expected warning severity, got %s (score %d)", summary.Severity, summary.RiskScore)
	}

	// Load 100: 27 + 35 + 20 = 82, critical.
	summary = Evaluate(snapshotWith(criticals, 100, nil), 0, Scenario{Rainfall: 1})
	if summary.Severity != models.SeverityCritical {
		t.Errorf("Expected critical severity, got %s (score %d)", summary.Severity, summary.RiskScore)
	}
	if summary.AnomalyClass != "Critical surge risk" {
		t.Errorf("Unexpected anomaly class: %s", summary.AnomalyClass)
	}
}

func TestEvaluate_MitigationSuppressesScore(t *testing.T) {
	snapshot := snapshotWith(nil, 80, nil)
	scenario := Scenario{Rainfall: 0.5}

	baseline := Evaluate(snapshot, 0, scenario)
	mitigated := Evaluate(snapshot, 2, scenario)

	if mitigated.RiskScore != baseline.RiskScore-10 {
		t.Errorf("Expected boost of 2 to subtract 10 points, got %d vs %d",
			mitigated.RiskScore, baseline.RiskScore)
	}
}

func TestEvaluate_RationaleLines(t *testing.T) {
	snapshot := snapshotWith([]models.Sensor{
		{ID: "sensor-1", Status: models.StatusCritical, ClogProbability: 0.5},
	}, 60, map[string]models.ZoneRisk{
		"NMIET":         {AvgRisk: 70},
		"Shahu Colony":  {AvgRisk: 90},
		"Latis Society": {AvgRisk: 30},
	})

	summary := Evaluate(snapshot, 1.5, Scenario{Rainfall: 0.9})

	want := []string{
		"Rainfall proxy: 90 / 100",
		"Network load: 60%",
		"Critical sensors: 1",
		"Warning sensors: 0",
		"Avg clog probability: 50.0%",
		"Mitigation boost active: +1.5",
		"Top risk zones: Shahu Colony, NMIET",
	}
	if !reflect.DeepEqual(summary.Rationale, want) {
		t.Errorf("Unexpected rationale:\n got  %v\n want %v", summary.Rationale, want)
	}
}

func TestEvaluate_NoMitigationLine(t *testing.T) {
	summary := Evaluate(snapshotWith(nil, 0, nil), 0, Scenario{})

	foundMitigation, foundZones := false, false
	for _, line := range summary.Rationale {
		if line == "Mitigation boost active: None" {
			foundMitigation = true
		}
		if line == "Top risk zones: None" {
			foundZones = true
		}
	}
	if !foundMitigation {
		t.Errorf("Expected 'Mitigation boost active: None' line, got %v", summary.Rationale)
	}
	if !foundZones {
		t.Errorf("Expected 'Top risk zones: None' line, got %v", summary.Rationale)
	}
}

func TestTopRiskZones_TieBreakByName(t *testing.T) {
	zoneRisk := map[string]models.ZoneRisk{
		"Vaibhav Apartment": {AvgRisk: 50},
		"NMIET":             {AvgRisk: 50},
		"Latis Society":     {AvgRisk: 50},
		"Shahu Colony":      {AvgRisk: 10},
	}

	// Equal risk resolves alphabetically, so repeated calls are stable.
	for i := 0; i < 20; i++ {
		zones := topRiskZones(zoneRisk, 2)
		if strings.Join(zones, ",") != "Latis Society,NMIET" {
			t.Fatalf("Expected deterministic tie break, got %v", zones)
		}
	}
}
