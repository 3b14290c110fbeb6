package glow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	u "lautenbacher.net/piezoleds/util"
)

type scriptedSensor struct {
	readings []int
	reads    int
}

func (s *scriptedSensor) ReadSensor() int {
	idx := min(s.reads, len(s.readings)-1)
	s.reads++
	return s.readings[idx]
}

type recordingSink struct {
	pixels         []Led
	order          []int
	setsBeforeShow []int
	pending        int
	shows          int
	err            error
	onShow         func()
}

func newRecordingSink(n int) *recordingSink {
	return &recordingSink{pixels: make([]Led, n)}
}

func (s *recordingSink) SetPixel(index int, led Led) {
	s.pixels[index] = led
	s.order = append(s.order, index)
	s.pending++
}

func (s *recordingSink) Show() error {
	s.shows++
	s.setsBeforeShow = append(s.setsBeforeShow, s.pending)
	s.pending = 0
	if s.onShow != nil {
		s.onShow()
	}
	return s.err
}

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestEngine(readings ...int) (*Engine, *scriptedSensor, *recordingSink, *u.MockClock) {
	conf := testGlowConfig()
	sensor := &scriptedSensor{readings: readings}
	sink := newRecordingSink(conf.LedsTotal)
	clock := u.NewMockClock(t0)
	seed := SeedParams{Speeds: [3]float64{1.3, 2.1, 2.7}, Offset: 42.17}
	return NewEngine(conf, sensor, sink, seed, clock), sensor, sink, clock
}

func TestEngine_StepPresentsWholeFrame(t *testing.T) {
	e, sensor, sink, _ := newTestEngine(0)

	require.NoError(t, e.Step())

	assert.Equal(t, 0, sensor.reads, "no sensor sample before the debounce interval passed")
	assert.Equal(t, 1, sink.shows)
	assert.Equal(t, []int{31}, sink.setsBeforeShow)
	for i, idx := range sink.order {
		assert.Equal(t, i, idx)
	}
	assert.Equal(t, e.Frame(), sink.pixels)
	assert.Equal(t, Calm, e.State().Mode)
}

func TestEngine_ModeSequence(t *testing.T) {
	e, sensor, sink, clock := newTestEngine(50, 900, 400)

	var modes []Mode
	for range 3 {
		clock.Advance(1001 * time.Millisecond)
		require.NoError(t, e.Step())
		modes = append(modes, e.State().Mode)
	}

	assert.Equal(t, []Mode{Calm, Alert, Transitional}, modes)
	assert.Equal(t, 3, sensor.reads)
	assert.InDelta(t, 4871.9, e.State().Speed, 0.1)
	assert.Equal(t, 3, sink.shows)
	assert.Equal(t, 400, e.Status().Value().Reading)
}

func TestEngine_DebounceCadence(t *testing.T) {
	e, sensor, _, clock := newTestEngine(900)

	// 10 seconds of frames every 20ms
	for range 500 {
		clock.Advance(20 * time.Millisecond)
		require.NoError(t, e.Step())
	}
	// a sample every 1020ms: strictly more than one interval must pass
	assert.Equal(t, 9, sensor.reads)
	assert.Equal(t, Alert, e.State().Mode)
}

func TestEngine_RenderIsIdempotent(t *testing.T) {
	e, _, sink, clock := newTestEngine(400)
	clock.Advance(1500 * time.Millisecond)

	require.NoError(t, e.Step())
	first := e.Frame()
	firstSink := append([]Led(nil), sink.pixels...)

	require.NoError(t, e.Step())
	assert.Equal(t, first, e.Frame())
	assert.Equal(t, firstSink, sink.pixels)
}

func TestEngine_BrightnessAndGate(t *testing.T) {
	e, _, _, clock := newTestEngine(10)

	for range 200 {
		clock.Advance(37 * time.Millisecond)
		require.NoError(t, e.Step())
		for i, led := range e.Frame() {
			assert.Equal(t, byte(0), led.Red, "red is off in Calm, pixel %d", i)
			assert.LessOrEqual(t, int(led.Green), 60)
			assert.LessOrEqual(t, int(led.Blue), 60)
		}
	}
}

func TestEngine_FPSOverlay(t *testing.T) {
	e, _, sink, clock := newTestEngine(0)
	e.conf.ShowFPS = true

	for range 5 {
		require.NoError(t, e.Step())
	}
	clock.Advance(1001 * time.Millisecond)
	require.NoError(t, e.Step())

	assert.Equal(t, Gray(60), sink.pixels[6], "pixel at the frame rate index is painted white")
	assert.Equal(t, Gray(60), e.Frame()[6])
	status := e.Status().Value()
	assert.Equal(t, 6, status.FPS)
	assert.Equal(t, uint64(6), status.Frames)
	assert.Equal(t, Calm, status.Mode)
}

func TestEngine_SinkError(t *testing.T) {
	e, _, sink, _ := newTestEngine(0)
	boom := errors.New("spi gone")
	sink.err = boom

	err := e.Step()
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, uint64(1), e.sinkErrors)
}

func TestEngine_Run(t *testing.T) {
	e, _, sink, clock := newTestEngine(0)
	e.conf.FrameDelay = 10 * time.Millisecond
	sink.err = errors.New("flaky strip")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sink.onShow = func() {
		if sink.shows == 3 {
			cancel()
		}
	}

	assert.NoError(t, e.Run(ctx), "loop keeps going on sink errors and ends cleanly on cancel")
	assert.Equal(t, 3, sink.shows)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 10 * time.Millisecond, 10 * time.Millisecond}, clock.Sleeps())
	assert.Equal(t, Calm, e.Status().Value().Mode)
}
