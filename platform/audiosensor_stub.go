//go:build !cgo

package platform

import (
	"errors"

	c "lautenbacher.net/piezoleds/config"
)

// audioSensor is a stub for builds without CGO.
type audioSensor struct{}

func newAudioSensor(c.AudioConfig, func(int) int) *audioSensor {
	return &audioSensor{}
}

func (a *audioSensor) start() error {
	return errors.New("audio sensor input is disabled in this build (requires CGO)")
}

func (a *audioSensor) stop() {}
