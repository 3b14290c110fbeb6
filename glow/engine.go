package glow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	c "lautenbacher.net/piezoleds/config"
	u "lautenbacher.net/piezoleds/util"
)

// SensorSource supplies a reading in [0, 1023] on demand. Values outside
// that range are clamped.
type SensorSource interface {
	ReadSensor() int
}

// PixelSink receives every pixel of a frame through SetPixel, followed by
// exactly one Show.
type PixelSink interface {
	SetPixel(index int, led Led)
	Show() error
}

// NoiseSource delivers the entropy the startup randomness is seeded from.
type NoiseSource interface {
	ReadNoise() uint64
}

// Status is a snapshot of the engine for displays.
type Status struct {
	Mode       Mode
	Reading    int
	Speed      float64
	FPS        int
	Frames     uint64
	SinkErrors uint64
}

const sinkErrorLogInterval = time.Second

type Engine struct {
	conf       c.GlowConfig
	sensor     SensorSource
	sink       PixelSink
	clock      u.Clock
	debouncer  *Debouncer
	selector   ModeSelector
	wave       *WaveField
	compositor Compositor
	state      AnimationState
	frame      []Led
	start      time.Time
	status     *u.AtomicEvent[Status]

	reading     int
	frames      uint64
	frameCount  int
	fps         int
	nextFPS     time.Time
	sinkErrors  uint64
	lastSinkLog time.Time
}

func NewEngine(conf c.GlowConfig, sensor SensorSource, sink PixelSink, seed SeedParams, clock u.Clock) *Engine {
	now := clock.Now()
	e := &Engine{
		conf:      conf,
		sensor:    sensor,
		sink:      sink,
		clock:     clock,
		debouncer: NewDebouncer(conf.ChangeDelay, now),
		selector:  NewModeSelector(conf),
		wave:      NewWaveField(seed.Speeds),
		compositor: Compositor{
			LedsTotal:  conf.LedsTotal,
			Brightness: conf.Brightness,
			Wrap:       conf.Wrap,
		},
		state:   NewAnimationState(seed.Offset),
		frame:   make([]Led, conf.LedsTotal),
		start:   now,
		status:  u.NewAtomicEvent[Status](),
		nextFPS: now.Add(time.Second),
	}
	slog.Info("Glow engine created", "leds", conf.LedsTotal, "brightness", conf.Brightness,
		"wrap", conf.Wrap, "speeds", seed.Speeds, "offset", seed.Offset)
	return e
}

// Status gives access to the latest published engine status.
func (e *Engine) Status() *u.AtomicEvent[Status] {
	return e.status
}

func (e *Engine) State() AnimationState {
	return e.state
}

// Frame returns a copy of the last computed frame.
func (e *Engine) Frame() []Led {
	out := make([]Led, len(e.frame))
	copy(out, e.frame)
	return out
}

// Step runs one iteration: a mode update when the debounce interval has
// passed, then a full frame which is handed to the sink only after it is
// complete.
func (e *Engine) Step() error {
	now := e.clock.Now()

	changed := false
	if e.debouncer.Due(now) {
		e.reading = u.Clamp(e.sensor.ReadSensor(), 0, c.SensorMax)
		changed = e.selector.Update(e.reading, &e.state)
	}

	spots := e.wave.Spots(now.Sub(e.start), &e.state)
	e.compositor.Render(e.frame, spots, &e.state)

	fpsUpdated := e.trackFPS(now)
	if e.conf.ShowFPS && e.fps < len(e.frame) {
		e.frame[e.fps] = Gray(byte(e.conf.Brightness))
	}

	for i, led := range e.frame {
		e.sink.SetPixel(i, led)
	}
	err := e.sink.Show()
	e.frames++
	if err != nil {
		e.sinkErrors++
		err = fmt.Errorf("showing frame %d: %w", e.frames, err)
	}

	if changed || fpsUpdated {
		e.publish()
	}
	return err
}

// Run calls Step until ctx is done. Sink errors are logged at most once
// per second and never stop the loop.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("Glow engine running", "changeDelay", e.conf.ChangeDelay, "frameDelay", e.conf.FrameDelay)
	e.publish()
	for {
		select {
		case <-ctx.Done():
			slog.Info("Glow engine stopped", "frames", e.frames, "sinkErrors", e.sinkErrors)
			return nil
		default:
		}

		if err := e.Step(); err != nil {
			if now := e.clock.Now(); now.Sub(e.lastSinkLog) >= sinkErrorLogInterval {
				slog.Error("Error presenting frame", "error", err, "errorsSoFar", e.sinkErrors)
				e.lastSinkLog = now
			}
		}
		if e.conf.FrameDelay > 0 {
			e.clock.Sleep(e.conf.FrameDelay)
		}
	}
}

// trackFPS counts frames per second of clock time. It returns true when a
// new rate was taken.
func (e *Engine) trackFPS(now time.Time) bool {
	e.frameCount++
	if !now.After(e.nextFPS) {
		return false
	}
	e.nextFPS = now.Add(time.Second)
	e.fps = e.frameCount
	e.frameCount = 0
	slog.Debug("Frame rate", "fps", e.fps)
	return true
}

func (e *Engine) publish() {
	e.status.Send(Status{
		Mode:       e.state.Mode,
		Reading:    e.reading,
		Speed:      e.state.Speed,
		FPS:        e.fps,
		Frames:     e.frames,
		SinkErrors: e.sinkErrors,
	})
}
