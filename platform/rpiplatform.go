package platform

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/stianeikeland/go-rpio/v4"
	c "lautenbacher.net/piezoleds/config"
	"lautenbacher.net/piezoleds/glow"
)

const (
	statsLogInterval = 30 * time.Second
	noiseSamples     = 8
)

// spiBus is a full duplex SPI transfer, the received bytes replace data.
type spiBus interface {
	Exchange(data []byte)
}

type gpioPin interface {
	High()
	Low()
}

type rpioBus struct{}

func (rpioBus) Exchange(data []byte) {
	rpio.SpiExchange(data)
}

// RaspberryPiPlatform reads the piezo through an MCP3008 style ADC and
// drives the strip, both on SPI0. GPIO pins select which device sees the
// bus.
type RaspberryPiPlatform struct {
	*AbstractPlatform
	bus             spiBus
	spiMutex        sync.Mutex
	spimultiplexcfg map[string]gpiocfg
	ledDriver       ledDriver
	sensor          *sensor
	frame           []glow.Led
	opened          bool
}

type gpiocfg struct {
	low  []gpioPin
	high []gpioPin
}

func NewRaspberryPiPlatform(conf *c.Config) *RaspberryPiPlatform {
	return &RaspberryPiPlatform{
		AbstractPlatform: newAbstractPlatform(conf),
	}
}

func (s *RaspberryPiPlatform) Start() error {
	slog.Info("Initialise GPIO and Spi...")
	if err := rpio.Open(); err != nil {
		return fmt.Errorf("failed to open rpio: %w", err)
	}
	if err := rpio.SpiBegin(rpio.Spi0); err != nil {
		rpio.Close()
		return fmt.Errorf("failed to begin spi: %w", err)
	}
	rpio.SpiSpeed(s.config.Hardware.SPIFrequency)
	s.opened = true

	if err := s.setup(rpioBus{}, func(pin int) gpioPin {
		rpiopin := rpio.Pin(pin)
		rpiopin.Output()
		return rpiopin
	}); err != nil {
		return err
	}

	// prime the smoothing window before the engine takes its first sample
	s.sampleSensor()

	s.wg.Add(1)
	go s.sensorDriver()

	close(s.readyChan) // For RPi, we are ready immediately.
	return nil
}

// setup wires everything that does not touch the hardware directly.
func (s *RaspberryPiPlatform) setup(bus spiBus, pinFactory func(int) gpioPin) error {
	hw := s.config.Hardware
	s.bus = bus

	s.spimultiplexcfg = make(map[string]gpiocfg, len(hw.SpiMultiplexGPIO))
	for key, cfg := range hw.SpiMultiplexGPIO {
		low := make([]gpioPin, 0, len(cfg.Low))
		high := make([]gpioPin, 0, len(cfg.High))
		for _, pin := range cfg.Low {
			low = append(low, pinFactory(pin))
		}
		for _, pin := range cfg.High {
			high = append(high, pinFactory(pin))
		}
		s.spimultiplexcfg[key] = gpiocfg{
			low:  low,
			high: high,
		}
	}

	var err error
	s.ledDriver, err = newLedDriver(hw, s.config.Glow.LedsTotal)
	if err != nil {
		return err
	}
	s.frame = make([]glow.Led, s.config.Glow.LedsTotal)
	s.sensor = newSensor(hw.Sensors.AdcMultiplex, hw.Sensors.AdcChannel, hw.Sensors.SmoothingSize)
	slog.Info("Raspberry Pi platform configured", "ledType", hw.LEDType, "leds", len(s.frame),
		"adcChannel", hw.Sensors.AdcChannel, "smoothing", hw.Sensors.SmoothingSize)
	return nil
}

func (s *RaspberryPiPlatform) Stop() {
	s.stopWorkers()

	if s.opened {
		// leave the strip dark
		clear(s.frame)
		if err := s.writeFrame(); err != nil {
			slog.Error("Error blanking LED strip", "error", err)
		}
		rpio.SpiEnd(rpio.Spi0)
		if err := rpio.Close(); err != nil {
			slog.Error("Error closing rpio", "error", err)
		}
		s.opened = false
	}
}

func (s *RaspberryPiPlatform) SetPixel(index int, led glow.Led) {
	if index >= 0 && index < len(s.frame) {
		s.frame[index] = led
	}
}

func (s *RaspberryPiPlatform) Show() error {
	if s.inShutdown() {
		return nil
	}
	return s.writeFrame()
}

func (s *RaspberryPiPlatform) writeFrame() error {
	return s.ledDriver.write(s.frame, s.config.Hardware.LedMultiplex, s.spiExchangeMultiplex)
}

// ReadNoise collects the low bits of a floating ADC input.
func (s *RaspberryPiPlatform) ReadNoise() uint64 {
	var seed uint64
	for range noiseSamples {
		seed = seed<<8 | uint64(s.readAdc(s.config.Hardware.Sensors.AdcMultiplex, s.config.Hardware.Sensors.NoiseChannel)&0xFF)
	}
	slog.Debug("Noise seed", "seed", seed)
	return seed
}

func (s *RaspberryPiPlatform) spiExchangeMultiplex(index string, data []byte) []byte {
	s.spiMutex.Lock()
	defer s.spiMutex.Unlock()

	// The existence of the key is guaranteed by the config validation at startup.
	cfg := s.spimultiplexcfg[index]
	for _, pin := range cfg.low {
		pin.Low()
	}
	for _, pin := range cfg.high {
		pin.High()
	}

	s.bus.Exchange(data)
	return data
}

func (s *RaspberryPiPlatform) sensorDriver() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.config.Hardware.Sensors.LoopDelay)
	defer ticker.Stop()

	statsTicker := time.NewTicker(statsLogInterval)
	defer statsTicker.Stop()

	for {
		select {
		case <-s.stopChan:
			slog.Info("Ending SensorDriver go-routine (RPi)")
			return
		case <-statsTicker.C:
			slog.Debug("Sensor statistics", "history", s.history.stats())
		case <-ticker.C:
			s.sampleSensor()
		}
	}
}

func (s *RaspberryPiPlatform) sampleSensor() int {
	return s.recordReading(s.sensor.smoothedValue(s.readAdc(s.sensor.spimultiplex, s.sensor.adcChannel)))
}

func (s *RaspberryPiPlatform) readAdc(multiplex string, channel byte) int {
	write := []byte{1, (8 + channel) << 4, 0}
	read := s.spiExchangeMultiplex(multiplex, write)
	return ((int(read[1]) & 3) << 8) + int(read[2])
}
