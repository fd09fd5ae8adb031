package sim

import "sort"

// Scenario is an immutable named parameter set shaping how fast flow, sludge
// and risk evolve, and how unreliable valves and pumps are under it.
type Scenario struct {
	Name             string  `json:"name"`
	Description      string  `json:"description"`
	Rainfall         float64 `json:"rainfall"`
	FlowBias         float64 `json:"flowBias"`
	RiskBias         float64 `json:"riskBias"`
	SludgeGrowth     float64 `json:"sludgeGrowth"`
	ValveFailureRate float64 `json:"valveFailureRate"`
	PumpStress       float64 `json:"pumpStress"`
}

// DefaultScenario is the scenario active on a freshly constructed state
const DefaultScenario = "normal_ops"

// Scenarios is the static registry of selectable weather/fault profiles
var Scenarios = map[string]Scenario{
	"normal_ops": {
		Name:             "Normal Ops",
		Description:      "Standard drainage operations with mild rainfall and regular maintenance conditions.",
		Rainfall:         0.2,
		FlowBias:         0,
		RiskBias:         8,
		SludgeGrowth:     0.7,
		ValveFailureRate: 0.06,
		PumpStress:       0.04,
	},
	"heavy_rain": {
		Name:             "Heavy Rain",
		Description:      "Intense downpour causing high flow rates, rapid sludge buildup, and elevated risk across all zones.",
		Rainfall:         0.9,
		FlowBias:         14,
		RiskBias:         18,
		SludgeGrowth:     1.3,
		ValveFailureRate: 0.11,
		PumpStress:       0.16,
	},
	"blockage_cascade": {
		Name:             "Blockage Cascade",
		Description:      "Multiple blockages propagating through the network, causing severe sludge accumulation and valve stress.",
		Rainfall:         0.45,
		FlowBias:         9,
		RiskBias:         23,
		SludgeGrowth:     1.8,
		ValveFailureRate: 0.14,
		PumpStress:       0.19,
	},
	"pump_failure": {
		Name:             "Pump Failure",
		Description:      "Primary pump station failure leading to reduced throughput, increased valve failures, and pump stress.",
		Rainfall:         0.35,
		FlowBias:         11,
		RiskBias:         20,
		SludgeGrowth:     1.1,
		ValveFailureRate: 0.18,
		PumpStress:       0.28,
	},
}

// ScenarioNames returns the registered scenario keys in sorted order
func ScenarioNames() []string {
	names := make([]string, 0, len(Scenarios))
	for name := range Scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ScenarioByName looks up a scenario; the second return value reports
// whether the name is registered
func ScenarioByName(name string) (Scenario, bool) {
	scenario, ok := Scenarios[name]
	return scenario, ok
}

// ActiveScenario returns the scenario for the given name, falling back to
// normal operations for unknown names.
func ActiveScenario(name string) Scenario {
	if scenario, ok := Scenarios[name]; ok {
		return scenario
	}
	return Scenarios[DefaultScenario]
}
