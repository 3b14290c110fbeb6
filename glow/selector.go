package glow

import (
	"log/slog"

	c "lautenbacher.net/piezoleds/config"
	u "lautenbacher.net/piezoleds/util"
)

// ModeSelector maps a sensor reading onto one of the three modes. Both
// thresholds are inclusive: readings <= Passive are Calm, readings >=
// Panic are Alert.
type ModeSelector struct {
	Passive int
	Panic   int
}

func NewModeSelector(conf c.GlowConfig) ModeSelector {
	precondition(conf.Passive >= 0 && conf.Passive < conf.Panic && conf.Panic <= c.SensorMax,
		"thresholds out of order: passive %d, panic %d", conf.Passive, conf.Panic)
	return ModeSelector{Passive: conf.Passive, Panic: conf.Panic}
}

// Classify returns the mode a reading falls into.
func (s ModeSelector) Classify(reading int) Mode {
	switch {
	case reading <= s.Passive:
		return Calm
	case reading >= s.Panic:
		return Alert
	default:
		return Transitional
	}
}

// Next returns the state that follows st for the given reading. Offset is
// carried over. Transitional keeps the channel enables of st.
func (s ModeSelector) Next(reading int, st AnimationState) AnimationState {
	reading = u.Clamp(reading, 0, c.SensorMax)
	switch s.Classify(reading) {
	case Calm:
		return NewAnimationState(st.Offset)
	case Alert:
		return AnimationState{
			Mode:   Alert,
			Focus:  alertFocus,
			Speed:  alertSpeed,
			LiveR:  true,
			LiveG:  true,
			LiveB:  true,
			Offset: st.Offset,
		}
	default:
		st.Mode = Transitional
		st.Focus = transitionalFocus
		st.Speed = TransitionalSpeed(reading)
		return st
	}
}

// Update replaces *st with the state for reading in a single assignment.
// It returns true if the mode changed.
func (s ModeSelector) Update(reading int, st *AnimationState) bool {
	next := s.Next(reading, *st)
	precondition(next.Speed > 0, "mode %s produced speed %v for reading %d", next.Mode, next.Speed, reading)
	changed := next.Mode != st.Mode
	if changed {
		slog.Info("Mode change", "from", st.Mode, "to", next.Mode, "reading", reading, "speed", next.Speed)
	}
	*st = next
	return changed
}

// TransitionalSpeed interpolates linearly from 8000 at reading 0 down to
// 0 at the top of the sensor range.
func TransitionalSpeed(reading int) float64 {
	return transitionalSpeedSpan - float64(reading)*transitionalSpeedSpan/c.SensorMax
}
