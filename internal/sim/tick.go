package sim

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/EcoFlow-E2/ecoflow_backend/internal/models"
	"github.com/EcoFlow-E2/ecoflow_backend/internal/store"
)

// MaintenanceRiskThreshold is the minimum risk for a sensor to enter the
// maintenance queue
const MaintenanceRiskThreshold = 58.0

// MaxMaintenanceTasks caps the maintenance queue per tick
const MaxMaintenanceTasks = 12

const (
	incidentExpiryTicks = 24
	alertExpiryTicks    = 28
	alertCooldownTicks  = 3
	mitigationDecay     = 0.35
)

var maintenanceCrews = []string{"Crew-A", "Crew-B", "Crew-C", "Crew-D"}

func clamp(value, min, max float64) float64 {
	return math.Max(min, math.Min(max, value))
}

func round1(value float64) float64 {
	return math.Round(value*10) / 10
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}

// aggregateZoneRisk groups sensors by zone, computing count, mean risk and
// per-status counts. Every known zone appears even when empty this tick.
func aggregateZoneRisk(sensors []models.Sensor, zones []string) map[string]models.ZoneRisk {
	zoneRisk := make(map[string]models.ZoneRisk, len(zones))
	for _, zone := range zones {
		zoneRisk[zone] = models.ZoneRisk{}
	}

	sums := make(map[string]float64)
	for _, sensor := range sensors {
		bucket := zoneRisk[sensor.Zone]
		bucket.Count++
		sums[sensor.Zone] += sensor.Risk
		switch sensor.Status {
		case models.StatusCritical:
			bucket.Critical++
		case models.StatusWarning:
			bucket.Warning++
		default:
			bucket.Normal++
		}
		zoneRisk[sensor.Zone] = bucket
	}

	for zone, bucket := range zoneRisk {
		if bucket.Count == 0 {
			continue
		}
		bucket.AvgRisk = round1(sums[zone] / float64(bucket.Count))
		zoneRisk[zone] = bucket
	}

	return zoneRisk
}

// BuildMaintenanceQueue derives the per-tick maintenance queue: sensors at
// or above the risk threshold, ranked by risk descending, capped, with crews
// assigned round-robin and an ETA from risk and rank.
func BuildMaintenanceQueue(sensors []models.Sensor, tick int) []models.MaintenanceTask {
	candidates := make([]models.Sensor, 0, len(sensors))
	for _, sensor := range sensors {
		if sensor.Risk >= MaintenanceRiskThreshold {
			candidates = append(candidates, sensor)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Risk > candidates[j].Risk
	})

	if len(candidates) > MaxMaintenanceTasks {
		candidates = candidates[:MaxMaintenanceTasks]
	}

	tasks := make([]models.MaintenanceTask, 0, len(candidates))
	for index, sensor := range candidates {
		eta := int(math.Max(8, math.Round(40-sensor.Risk/3+float64(index)*4)))
		status := "Scheduled"
		impact := "Medium"
		if sensor.Risk >= 78 {
			status = "Urgent"
			impact = "High"
		}
		tasks = append(tasks, models.MaintenanceTask{
			ID:              fmt.Sprintf("%s-task-%d", sensor.ID, tick),
			SensorID:        sensor.ID,
			Location:        sensor.Name,
			Zone:            sensor.Zone,
			Risk:            sensor.Risk,
			ETAMinutes:      eta,
			Crew:            maintenanceCrews[index%len(maintenanceCrews)],
			Status:          status,
			PredictedImpact: impact,
		})
	}

	return tasks
}

// computeTick advances the network by one tick: per-sensor physical state,
// zone aggregates, incidents, alerts, maintenance queue, aggregate health,
// the snapshot, and the AI summary. All of it is returned as one TickApplied
// action so it lands in the store atomically.
func computeTick(current store.AppState, scenario Scenario, tick int, rng *RNG, now time.Time) store.TickApplied {
	mitigationBoost := current.Sim.MitigationBoost

	// Open valves relieve their zone; this is the only cross-entity coupling
	// in the physical model and must reflect the valve state at tick time.
	openValvesByZone := make(map[string]int)
	for _, valve := range current.Network.Valves {
		if valve.State == models.ValveOn {
			openValvesByZone[valve.Zone]++
		}
	}

	sensors := make([]models.Sensor, 0, len(current.Network.Sensors))
	for index, prev := range current.Network.Sensors {
		openValveCount := float64(openValvesByZone[prev.Zone])
		valveRelief := openValveCount * 4
		valveDrain := openValveCount * 1.6

		flow := clamp(
			prev.Flow+
				math.Sin(float64(tick+index)/6)*5.2+
				scenario.FlowBias+
				scenario.Rainfall*21+
				rng.Range(-4.5, 4.5)-
				valveRelief,
			5, 180)

		cleaningBonus := 0.0
		if tick-prev.CleanedAtTick < 6 {
			cleaningBonus = 2.1
		}
		sludge := clamp(
			prev.Sludge+
				scenario.SludgeGrowth+
				rng.Range(-2.2, 2.4)-
				valveDrain-
				cleaningBonus,
			3, 150)

		risk := clamp(
			flow*0.42+
				sludge*0.53+
				scenario.RiskBias+
				rng.Range(-6, 6)-
				valveRelief-
				mitigationBoost*2,
			0, 100)

		next := prev
		next.Flow = round1(flow)
		next.Sludge = round1(sludge)
		next.Risk = round1(risk)
		next.Status = models.StatusFromRisk(risk)
		next.ClogProbability = round2(clamp(sludge/150*0.58+risk/100*0.42, 0.05, 0.99))
		sensors = append(sensors, next)
	}

	zoneRisk := aggregateZoneRisk(sensors, Zones)

	var criticalSensors, warningSensors []models.Sensor
	for _, sensor := range sensors {
		switch sensor.Status {
		case models.StatusCritical:
			criticalSensors = append(criticalSensors, sensor)
		case models.StatusWarning:
			warningSensors = append(warningSensors, sensor)
		}
	}

	incidents := nextIncidents(current.Network.Incidents, criticalSensors, tick)
	alerts, lastAlertTick := nextAlerts(current.Network.Alerts, current.Sim.LastAlertTick,
		criticalSensors, warningSensors, tick)
	maintenanceTasks := BuildMaintenanceQueue(sensors, tick)

	var riskSum, flowSum float64
	for _, sensor := range sensors {
		riskSum += sensor.Risk
		flowSum += sensor.Flow
	}
	averageRisk, averageFlow := 0.0, 0.0
	if len(sensors) > 0 {
		averageRisk = riskSum / float64(len(sensors))
		averageFlow = flowSum / float64(len(sensors))
	}

	affectedZones := 0
	for _, bucket := range zoneRisk {
		if bucket.AvgRisk >= 60 {
			affectedZones++
		}
	}

	networkLoad := clamp(averageFlow*0.95, 0, 100)

	prevUptime := current.Sim.Health.PumpUptime
	if prevUptime == 0 {
		prevUptime = 99.4
	}
	pumpUptime := clamp(
		prevUptime-scenario.PumpStress+rng.Range(-0.08, 0.05)+mitigationBoost*0.03,
		84, 99.9)

	healthScore := clamp(
		100-averageRisk*0.55-float64(len(criticalSensors))*3.8+mitigationBoost*2.8,
		8, 99)

	urgent, scheduled := 0, 0
	for _, task := range maintenanceTasks {
		if task.Status == "Urgent" {
			urgent++
		} else {
			scheduled++
		}
	}

	snapshot := models.Snapshot{
		Tick:        tick,
		Timestamp:   now,
		NetworkLoad: round1(networkLoad),
		ZoneRisk:    zoneRisk,
		Sensors:     sensors,
		MaintenanceStats: models.MaintenanceStats{
			Urgent:    urgent,
			Scheduled: scheduled,
			Healthy:   len(sensors) - len(maintenanceTasks),
		},
	}

	history := make([]models.Snapshot, 0, len(current.Sim.History)+1)
	history = append(history, current.Sim.History...)
	history = append(history, snapshot)
	if len(history) > store.MaxHistory {
		history = history[len(history)-store.MaxHistory:]
	}

	aiSummary := Evaluate(snapshot, mitigationBoost, scenario)

	return store.TickApplied{
		Tick:             tick,
		Sensors:          sensors,
		Incidents:        incidents,
		Alerts:           alerts,
		MaintenanceTasks: maintenanceTasks,
		History:          history,
		AiSummary:        aiSummary,
		Snapshot:         snapshot,
		LastAlertTick:    lastAlertTick,
		MitigationBoost:  round2(math.Max(0, mitigationBoost-mitigationDecay)),
		Health: models.Health{
			Score:         round1(healthScore),
			ActiveAlerts:  len(alerts),
			AffectedZones: affectedZones,
			PumpUptime:    round2(pumpUptime),
			NetworkLoad:   round1(networkLoad),
		},
	}
}

// nextIncidents prunes resolved and expired incidents, then raises one
// incident for each of the top critical sensors that has no open incident
// yet. Newest first, capped.
func nextIncidents(previous []models.Incident, criticalSensors []models.Sensor, tick int) []models.Incident {
	incidents := make([]models.Incident, 0, store.MaxIncidents)
	for _, incident := range previous {
		if incident.Resolved || tick-incident.Tick > incidentExpiryTicks {
			continue
		}
		incidents = append(incidents, incident)
		if len(incidents) == store.MaxIncidents {
			break
		}
	}

	top := criticalSensors
	if len(top) > 4 {
		top = top[:4]
	}
	for _, sensor := range top {
		exists := false
		for _, incident := range incidents {
			if incident.SensorID == sensor.ID {
				exists = true
				break
			}
		}
		if exists {
			continue
		}
		incidents = append([]models.Incident{{
			ID:       fmt.Sprintf("incident-%s-%d", sensor.ID, tick),
			Tick:     tick,
			SensorID: sensor.ID,
			Zone:     sensor.Zone,
			Severity: "Critical",
			Message:  fmt.Sprintf("Overflow risk rising near %s.", sensor.Name),
		}}, incidents...)
	}

	if len(incidents) > store.MaxIncidents {
		incidents = incidents[:store.MaxIncidents]
	}
	return incidents
}

// nextAlerts prunes expired alerts and raises at most one new alert per
// tick, gated by the cooldown window.
func nextAlerts(previous []models.Alert, lastAlertTick int, criticalSensors, warningSensors []models.Sensor, tick int) ([]models.Alert, int) {
	alerts := make([]models.Alert, 0, store.MaxAlerts)
	for _, alert := range previous {
		if tick-alert.Tick > alertExpiryTicks {
			continue
		}
		alerts = append(alerts, alert)
		if len(alerts) == store.MaxAlerts {
			break
		}
	}

	shouldAlert := len(criticalSensors) > 0 || len(warningSensors) > 10
	if shouldAlert && tick-lastAlertTick >= alertCooldownTicks {
		var leading models.Sensor
		level := "warning"
		message := "Elevated load"
		if len(criticalSensors) > 0 {
			leading = criticalSensors[0]
			level = "critical"
			message = "Critical surge"
		} else {
			leading = warningSensors[0]
		}

		alerts = append([]models.Alert{{
			ID:      fmt.Sprintf("alert-%d-%s", tick, leading.ID),
			Tick:    tick,
			Level:   level,
			Zone:    leading.Zone,
			Message: fmt.Sprintf("%s in %s", message, leading.Zone),
		}}, alerts...)
		lastAlertTick = tick
	}

	if len(alerts) > store.MaxAlerts {
		alerts = alerts[:store.MaxAlerts]
	}
	return alerts, lastAlertTick
}
