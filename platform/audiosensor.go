//go:build cgo

package platform

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/gordonklaus/portaudio"
	c "lautenbacher.net/piezoleds/config"
)

// audioSensor feeds the loudness of an audio input device into the
// simulation in place of the piezo.
type audioSensor struct {
	cfg      c.AudioConfig
	record   func(int) int
	stopChan chan struct{}
	wg       sync.WaitGroup
}

func newAudioSensor(cfg c.AudioConfig, record func(int) int) *audioSensor {
	return &audioSensor{
		cfg:      cfg,
		record:   record,
		stopChan: make(chan struct{}),
	}
}

func (a *audioSensor) start() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	inDevice, err := a.findDevice()
	if err != nil {
		portaudio.Terminate()
		return err
	}
	slog.Info("Audio sensor", "device", inDevice.Name, "sampleRate", a.cfg.SampleRate, "framesPerBuffer", a.cfg.FramesPerBuffer)

	buffer := make([]float32, a.cfg.FramesPerBuffer*inDevice.MaxInputChannels)
	streamParams := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   inDevice,
			Channels: inDevice.MaxInputChannels,
			Latency:  inDevice.DefaultLowInputLatency,
		},
		SampleRate:      float64(a.cfg.SampleRate),
		FramesPerBuffer: a.cfg.FramesPerBuffer,
	}

	stream, err := portaudio.OpenStream(streamParams, buffer)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("failed to open audio stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("failed to start audio stream: %w", err)
	}

	a.wg.Add(1)
	go a.runner(stream, buffer, inDevice.MaxInputChannels)
	return nil
}

func (a *audioSensor) runner(stream *portaudio.Stream, buffer []float32, channels int) {
	defer a.wg.Done()
	defer func() {
		stream.Stop()
		stream.Close()
		if err := portaudio.Terminate(); err != nil {
			slog.Error("Failed to terminate portaudio", "error", err)
		}
	}()

	for {
		select {
		case <-a.stopChan:
			slog.Info("Ending audio sensor go-routine")
			return
		default:
		}
		// Blocks until the buffer is full. Overflows are expected when
		// the machine is busy and only cost a buffer.
		if err := stream.Read(); err != nil {
			slog.Debug("Audio read", "error", err)
		}
		a.record(audioLevel(buffer, channels, a.cfg.MinDB, a.cfg.MaxDB))
	}
}

func (a *audioSensor) stop() {
	close(a.stopChan)
	a.wg.Wait()
}

func (a *audioSensor) findDevice() (*portaudio.DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("could not list audio devices: %w", err)
	}
	if a.cfg.Device == "" || a.cfg.Device == "default" {
		return portaudio.DefaultInputDevice()
	}
	for _, device := range devices {
		if device.MaxInputChannels > 0 && strings.Contains(strings.ToLower(device.Name), strings.ToLower(a.cfg.Device)) {
			return device, nil
		}
	}
	return nil, fmt.Errorf("no audio input device matching %q found", a.cfg.Device)
}
