package glow

import "fmt"

type Mode int

const (
	Calm Mode = iota
	Transitional
	Alert
)

func (m Mode) String() string {
	switch m {
	case Calm:
		return "Calm"
	case Transitional:
		return "Transitional"
	case Alert:
		return "Alert"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// AnimationState holds the parameters shared by the wave field and the
// compositor. Only the ModeSelector changes it, and always as a whole
// value.
type AnimationState struct {
	Mode  Mode
	Focus float64
	// Time scale divisor, larger is slower. Always > 0.
	Speed float64
	LiveR bool
	LiveG bool
	LiveB bool
	// Phase offset, fixed at startup.
	Offset float64
}

// Mode parameters of the lamp.
const (
	calmFocus  = 80
	calmSpeed  = 12000
	alertFocus = 40
	alertSpeed = 600

	transitionalFocus = 80
	// Speed at reading 0, falls linearly to 0 at the top of the sensor range.
	transitionalSpeedSpan = 8000
)

// NewAnimationState returns the Calm state with the given phase offset.
func NewAnimationState(offset float64) AnimationState {
	return AnimationState{
		Mode:   Calm,
		Focus:  calmFocus,
		Speed:  calmSpeed,
		LiveR:  false,
		LiveG:  true,
		LiveB:  true,
		Offset: offset,
	}
}
