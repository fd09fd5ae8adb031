package sim

import (
	"fmt"
	"math"

	"github.com/EcoFlow-E2/ecoflow_backend/internal/models"
)

// DrainagePoint is one fixed physical drainage location of the network
type DrainagePoint struct {
	Name string
	Zone string
	Lat  float64
	Lng  float64
}

// Zones lists every known zone. Zone aggregates always report these zones,
// with zero counts when no sensor lands in them on a tick.
var Zones = []string{"NMIET", "Latis Society", "Shahu Colony", "Vaibhav Apartment"}

// DrainagePoints is the fixed sensor placement of the simulated network,
// three drains per zone around the Talegaon corridor.
var DrainagePoints = []DrainagePoint{
	{Name: "NMIET Gate Culvert", Zone: "NMIET", Lat: 18.7301, Lng: 73.6758},
	{Name: "NMIET Hostel Drain", Zone: "NMIET", Lat: 18.7312, Lng: 73.6771},
	{Name: "NMIET Sports Field Outlet", Zone: "NMIET", Lat: 18.7294, Lng: 73.6783},
	{Name: "Latis Main Gate Drain", Zone: "Latis Society", Lat: 18.7276, Lng: 73.6722},
	{Name: "Latis Tower B Sump", Zone: "Latis Society", Lat: 18.7268, Lng: 73.6709},
	{Name: "Latis Garden Channel", Zone: "Latis Society", Lat: 18.7259, Lng: 73.6731},
	{Name: "Shahu Market Gutter", Zone: "Shahu Colony", Lat: 18.7334, Lng: 73.6687},
	{Name: "Shahu School Crossing", Zone: "Shahu Colony", Lat: 18.7341, Lng: 73.6701},
	{Name: "Shahu Link Road Drain", Zone: "Shahu Colony", Lat: 18.7352, Lng: 73.6678},
	{Name: "Vaibhav Parking Outlet", Zone: "Vaibhav Apartment", Lat: 18.7248, Lng: 73.6794},
	{Name: "Vaibhav Ring Main", Zone: "Vaibhav Apartment", Lat: 18.7239, Lng: 73.6806},
	{Name: "Vaibhav South Culvert", Zone: "Vaibhav Apartment", Lat: 18.7231, Lng: 73.6788},
}

func directionForZone(zone string) string {
	switch zone {
	case "Latis Society":
		return "East"
	case "Vaibhav Apartment":
		return "West"
	default:
		return "South"
	}
}

// InitializeSensors produces one sensor per drainage point with randomized
// initial readings. It runs once per scenario activation and replaces the
// entire sensor list. The RNG draw order per sensor is flow, sludge, risk,
// clog probability, cleaned-at tick.
func InitializeSensors(points []DrainagePoint, rng *RNG) []models.Sensor {
	sensors := make([]models.Sensor, 0, len(points))
	for index, point := range points {
		sensors = append(sensors, models.Sensor{
			ID:              fmt.Sprintf("sensor-%d", index+1),
			Name:            point.Name,
			Zone:            point.Zone,
			Lat:             point.Lat,
			Lng:             point.Lng,
			Flow:            math.Round(20 + rng.Range(5, 28)),
			Sludge:          math.Round(24 + rng.Range(8, 32)),
			Risk:            math.Round(18 + rng.Range(8, 22)),
			Status:          models.StatusNormal,
			Direction:       directionForZone(point.Zone),
			ClogProbability: rng.Range(0.18, 0.32),
			CleanedAtTick:   int(math.Round(rng.Range(-25, -4))),
		})
	}
	return sensors
}
