package sim

// RNG is a deterministic mulberry32 generator. The same seed and call
// sequence always produces the same stream, which the scenario-seed
// derivation and the simulation tests rely on. An RNG instance is not safe
// for concurrent use; the engine serializes access to its instance.
type RNG struct {
	state uint32
}

// NewRNG seeds a fresh generator
func NewRNG(seed uint32) *RNG {
	return &RNG{state: seed}
}

// Float64 returns the next value in [0, 1)
func (r *RNG) Float64() float64 {
	r.state += 0x6D2B79F5
	t := r.state
	z := (t ^ (t >> 15)) * (t | 1)
	z ^= z + (z^(z>>7))*(z|61)
	z ^= z >> 14
	return float64(z) / 4294967296.0
}

// Range returns the next value in [min, max)
func (r *RNG) Range(min, max float64) float64 {
	return min + (max-min)*r.Float64()
}

// ScenarioSeed derives a reproducible per-scenario seed from the base seed
// and the scenario name, so switching to the same scenario twice from the
// same base seed reinitializes sensors identically.
func ScenarioSeed(baseSeed int64, scenarioName string) uint32 {
	var hash int32
	for _, ch := range scenarioName {
		hash = (hash << 5) - hash + int32(ch)
	}
	seed := baseSeed + int64(hash)
	if seed < 0 {
		seed = -seed
	}
	return uint32(seed)
}
