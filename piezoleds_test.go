package main

import (
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	c "lautenbacher.net/piezoleds/config"
	"lautenbacher.net/piezoleds/glow"
	pl "lautenbacher.net/piezoleds/platform"
	u "lautenbacher.net/piezoleds/util"
)

type MockPlatform struct {
	mu        sync.Mutex
	reading   int
	pixels    []glow.Led
	frames    [][]glow.Led
	started   bool
	stopped   bool
	noiseRead int
	status    *u.AtomicEvent[glow.Status]
	startErr  error
	readyChan chan bool
}

func NewMockPlatform(leds int) *MockPlatform {
	ready := make(chan bool)
	close(ready)
	return &MockPlatform{pixels: make([]glow.Led, leds), readyChan: ready}
}

func (m *MockPlatform) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = true
	return m.startErr
}

func (m *MockPlatform) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
}

func (m *MockPlatform) Ready() <-chan bool {
	return m.readyChan
}

func (m *MockPlatform) ReadSensor() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reading
}

func (m *MockPlatform) ReadNoise() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.noiseRead++
	return 1234
}

func (m *MockPlatform) SetPixel(index int, led glow.Led) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pixels[index] = led
}

func (m *MockPlatform) Show() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	frame := make([]glow.Led, len(m.pixels))
	copy(frame, m.pixels)
	m.frames = append(m.frames, frame)
	return nil
}

func (m *MockPlatform) WatchStatus(status *u.AtomicEvent[glow.Status]) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = status
}

func (m *MockPlatform) frameCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.frames)
}

var _ pl.Platform = (*MockPlatform)(nil)

func testConfig() *c.Config {
	conf := c.Default()
	conf.RealHW = true
	conf.Glow.FrameDelay = time.Millisecond
	return conf
}

func TestApp_RunUntilSignal(t *testing.T) {
	conf := testConfig()
	ossignal := make(chan os.Signal, 1)
	app := NewApp(conf, ossignal)
	mock := NewMockPlatform(conf.Glow.LedsTotal)
	app.platform = mock

	done := make(chan error)
	go func() { done <- app.run() }()

	assert.Eventually(t, func() bool { return mock.frameCount() >= 5 }, 2*time.Second, 5*time.Millisecond)
	ossignal <- os.Interrupt

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("app did not shut down")
	}

	assert.True(t, mock.started)
	assert.True(t, mock.stopped)
	assert.Equal(t, 1, mock.noiseRead, "startup randomness is drawn exactly once")
	require.NotNil(t, mock.status)
	assert.Equal(t, glow.Calm, mock.status.Value().Mode)

	frames := mock.frames
	for _, frame := range frames {
		require.Len(t, frame, conf.Glow.LedsTotal)
		for _, led := range frame {
			assert.Equal(t, byte(0), led.Red, "red is off while calm")
			assert.LessOrEqual(t, int(led.Green), conf.Glow.Brightness)
		}
	}
}

func TestApp_PlatformStartFailure(t *testing.T) {
	conf := testConfig()
	app := NewApp(conf, make(chan os.Signal, 1))
	mock := NewMockPlatform(conf.Glow.LedsTotal)
	mock.startErr = errors.New("no spi")
	app.platform = mock

	err := app.run()
	assert.ErrorContains(t, err, "no spi")
	assert.True(t, mock.stopped)
	assert.Nil(t, app.engine)
}

func TestApp_InterruptBeforeReady(t *testing.T) {
	conf := testConfig()
	ossignal := make(chan os.Signal, 1)
	app := NewApp(conf, ossignal)
	mock := NewMockPlatform(conf.Glow.LedsTotal)
	// a platform that fails before it ever gets ready, like a TUI
	// without a terminal
	mock.readyChan = make(chan bool)
	app.platform = mock

	ossignal <- os.Interrupt
	done := make(chan error)
	go func() { done <- app.run() }()

	select {
	case err := <-done:
		assert.ErrorContains(t, err, "did not become ready")
	case <-time.After(2 * time.Second):
		t.Fatal("app hung waiting for the platform")
	}
	assert.True(t, mock.stopped)
	assert.Equal(t, 0, mock.noiseRead)
	assert.Nil(t, app.engine)
}

func TestApp_NewPlatform(t *testing.T) {
	conf := testConfig()
	app := NewApp(conf, make(chan os.Signal, 1))

	p, err := app.newPlatform()
	require.NoError(t, err)
	assert.IsType(t, &pl.RaspberryPiPlatform{}, p)

	conf.Hardware.Platform = "bridge"
	p, err = app.newPlatform()
	require.NoError(t, err)
	assert.IsType(t, &pl.BridgePlatform{}, p)

	conf.RealHW = false
	p, err = app.newPlatform()
	require.NoError(t, err)
	assert.IsType(t, &pl.TUIPlatform{}, p)

	conf.RealHW = true
	conf.Hardware.Platform = "arduino"
	_, err = app.newPlatform()
	assert.Error(t, err)
}
