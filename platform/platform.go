package platform

import (
	"lautenbacher.net/piezoleds/glow"
	u "lautenbacher.net/piezoleds/util"
)

// Platform abstracts the real hardware from the TUI simulation. Every
// platform is the sensor, the noise source and the pixel sink of the
// glow engine.
type Platform interface {
	// Start initializes the platform (e.g., opens GPIO/SPI, or starts the TUI).
	Start() error

	// Stop cleans up all platform resources.
	Stop()

	// Ready is closed once the platform can take frames.
	Ready() <-chan bool

	ReadSensor() int
	ReadNoise() uint64
	SetPixel(index int, led glow.Led)
	Show() error

	// WatchStatus hands the engine's status mailbox to the platform.
	WatchStatus(status *u.AtomicEvent[glow.Status])
}

var (
	_ glow.SensorSource = Platform(nil)
	_ glow.PixelSink    = Platform(nil)
	_ glow.NoiseSource  = Platform(nil)
)
