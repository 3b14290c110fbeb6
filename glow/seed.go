package glow

import "math/rand/v2"

// Randomizer is the source of the one-time startup draws. *rand.Rand
// satisfies it.
type Randomizer interface {
	IntN(n int) int
}

// SeedParams are drawn once at startup and never change afterwards.
type SeedParams struct {
	// Per channel speed multipliers (red, green, blue) in [1.0, 3.0).
	Speeds [3]float64
	Offset float64
}

// NewSeedParams consumes r exactly four times: three speed multipliers
// followed by the phase offset.
func NewSeedParams(r Randomizer) SeedParams {
	var p SeedParams
	for c := range p.Speeds {
		p.Speeds[c] = 1 + float64(r.IntN(200))/100
	}
	p.Offset = float64(r.IntN(10000)) / 100
	return p
}

// NewRandomizer returns a PCG generator seeded from a noise reading.
func NewRandomizer(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
