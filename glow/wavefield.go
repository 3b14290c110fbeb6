package glow

import (
	"math"
	"time"
)

const (
	red = iota
	green
	blue
)

// Spots are the positions of the red, green and blue glow centres on the
// normalized strip. They are not limited to [0, 1].
type Spots [3]float64

// Time warp perturbation. Amplitudes and periods were tuned by eye and
// are not derived from any input.
const (
	warpAmplitudeSlow = 42.5
	warpPeriodSlow    = 552
	warpAmplitudeFast = 6.5
	warpPeriodFast    = 142
)

var (
	spotBase      = [3]float64{0.15, 0.50, 0.85}
	spotAmplitude = [3]float64{0.55, 0.65, 0.75}
)

// WaveField moves the three spots, each channel at its own speed multiplier.
type WaveField struct {
	speeds [3]float64
}

// NewWaveField creates a WaveField from the per-channel speed multipliers.
func NewWaveField(speeds [3]float64) *WaveField {
	return &WaveField{speeds: speeds}
}

// Spots computes where the three spots sit after elapsed time.
func (w *WaveField) Spots(elapsed time.Duration, st *AnimationState) Spots {
	precondition(st.Speed > 0, "speed must be positive, got %v", st.Speed)
	ms := float64(elapsed) / float64(time.Millisecond)
	m := st.Offset + ms/st.Speed
	m = m - warpAmplitudeSlow*math.Cos(m/warpPeriodSlow) - warpAmplitudeFast*math.Cos(m/warpPeriodFast)

	var s Spots
	for c := range s {
		s[c] = spotBase[c] + spotAmplitude[c]*math.Sin(m*w.speeds[c])
	}
	return s
}
