package sim

import (
	"testing"
)

func TestRNG_Reproducibility(t *testing.T) {
	a := NewRNG(240219)
	b := NewRNG(240219)

	for i := 0; i < 1000; i++ {
		va, vb := a.Float64(), b.Float64()
		if va != vb {
			t.Fatalf("Streams diverged at draw %d: %v vs %v", i, va, vb)
		}
	}
}

func TestRNG_DifferentSeedsDiverge(t *testing.T) {
	a := NewRNG(1)
	b := NewRNG(2)

	same := true
	for i := 0; i < 10; i++ {
		if a.Float64() != b.Float64() {
			same = false
			break
		}
	}
	if same {
		t.Error("Expected different seeds to produce different streams")
	}
}

func TestRNG_Float64Bounds(t *testing.T) {
	rng := NewRNG(42)
	for i := 0; i < 10000; i++ {
		v := rng.Float64()
		if v < 0 || v >= 1 {
			t.Fatalf("Float64 out of [0, 1) at draw %d: %v", i, v)
		}
	}
}

func TestRNG_RangeBounds(t *testing.T) {
	rng := NewRNG(7)
	for i := 0; i < 10000; i++ {
		v := rng.Range(-4.5, 4.5)
		if v < -4.5 || v >= 4.5 {
			t.Fatalf("Range out of bounds at draw %d: %v", i, v)
		}
	}
}

func TestScenarioSeed_Deterministic(t *testing.T) {
	s1 := ScenarioSeed(240219, "heavy_rain")
	s2 := ScenarioSeed(240219, "heavy_rain")
	if s1 != s2 {
		t.Errorf("Expected identical seeds for same inputs, got %d and %d", s1, s2)
	}
}

func TestScenarioSeed_VariesByScenario(t *testing.T) {
	seen := map[uint32]string{}
	for name := range Scenarios {
		seed := ScenarioSeed(240219, name)
		if prev, ok := seen[seed]; ok {
			t.Errorf("Scenarios %q and %q derived the same seed %d", prev, name, seed)
		}
		seen[seed] = name
	}
}

func TestScenarioSeed_NegativeSumIsFolded(t *testing.T) {
	// A large negative base forces the sum negative; the derived seed must
	// still be a valid uint32 from the absolute value.
	s1 := ScenarioSeed(-1000000000, "heavy_rain")
	s2 := ScenarioSeed(-1000000000, "heavy_rain")
	if s1 != s2 {
		t.Errorf("Expected identical folded seeds, got %d and %d", s1, s2)
	}
}
