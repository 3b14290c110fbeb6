package glow

import (
	"math"

	u "lautenbacher.net/piezoleds/util"
)

// Compositor turns spot positions into a frame of pixels, each channel a
// bell shaped glow around its spot.
type Compositor struct {
	LedsTotal  int
	Brightness int
	Wrap       bool
}

// WrapDistance maps d onto the shortest signed distance on a circle of
// circumference 1. The result lies in [-0.5, 0.5).
func WrapDistance(d float64) float64 {
	return d - math.Floor(d+0.5)
}

// Render fills every pixel of frame. Channel values are within
// [0, Brightness] and disabled channels are exactly 0.
func (c *Compositor) Render(frame []Led, spots Spots, st *AnimationState) {
	precondition(len(frame) == c.LedsTotal, "frame has %d pixels, want %d", len(frame), c.LedsTotal)
	precondition(st.Focus >= 0, "negative focus %v", st.Focus)

	n := float64(len(frame))
	bright := float64(c.Brightness)
	live := [3]bool{st.LiveR, st.LiveG, st.LiveB}

	for i := range frame {
		ppos := float64(i) / n
		var rgb [3]byte
		for ch, spot := range spots {
			if !live[ch] {
				continue
			}
			d := ppos - spot
			if c.Wrap {
				d = WrapDistance(d)
			}
			v := bright * ApproxExp(-st.Focus*d*d)
			rgb[ch] = byte(u.Clamp(v, 0, bright))
		}
		frame[i] = Led{Red: rgb[red], Green: rgb[green], Blue: rgb[blue]}
	}
}
