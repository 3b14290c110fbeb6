package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const CONFILE = "config.yml"

// Highest value the 10-bit sensor ADC can deliver.
const SensorMax = 1023

type Config struct {
	RealHW     bool             `yaml:"-"`
	Configfile string           `yaml:"-"`
	Glow       GlowConfig       `yaml:"Glow"`
	Hardware   HardwareConfig   `yaml:"Hardware"`
	Simulation SimulationConfig `yaml:"Simulation"`
	Logging    LoggingConfig    `yaml:"Logging"`
}

// GlowConfig holds everything the light field engine needs. All values
// are fixed for the lifetime of the process.
type GlowConfig struct {
	LedsTotal   int           `yaml:"LedsTotal"`
	Brightness  int           `yaml:"Brightness"`
	Wrap        bool          `yaml:"Wrap"`
	ChangeDelay time.Duration `yaml:"ChangeDelay"`
	Passive     int           `yaml:"Passive"`
	Panic       int           `yaml:"Panic"`
	FrameDelay  time.Duration `yaml:"FrameDelay"`
	ShowFPS     bool          `yaml:"ShowFPS"`
}

type HardwareConfig struct {
	Platform          string        `yaml:"Platform"`
	LEDType           string        `yaml:"LEDType"`
	SPIFrequency      int           `yaml:"SPIFrequency"`
	ColorCorrection   []float64     `yaml:"ColorCorrection,flow"`
	APA102_Brightness int           `yaml:"APA102_Brightness"`
	LedMultiplex      string        `yaml:"LedMultiplex"`
	SpiMultiplexGPIO  map[string]struct {
		Low  []int `yaml:"Low,flow"`
		High []int `yaml:"High,flow"`
	} `yaml:"SpiMultiplexGPIO"`
	Sensors SensorsConfig `yaml:"Sensors"`
	Bridge  BridgeConfig  `yaml:"Bridge"`
}

type SensorsConfig struct {
	AdcMultiplex  string        `yaml:"AdcMultiplex"`
	AdcChannel    byte          `yaml:"AdcChannel"`
	NoiseChannel  byte          `yaml:"NoiseChannel"`
	SmoothingSize int           `yaml:"SmoothingSize"`
	LoopDelay     time.Duration `yaml:"LoopDelay"`
}

// BridgeConfig describes the setup where a small microcontroller reads
// the piezo and streams the values over a serial line while the strip is
// driven by an OPC (Fadecandy) server.
type BridgeConfig struct {
	SerialPort string `yaml:"SerialPort"`
	BaudRate   int    `yaml:"BaudRate"`
	OPCServer  string `yaml:"OPCServer"`
	OPCChannel uint8  `yaml:"OPCChannel"`
}

type SimulationConfig struct {
	SensorInput string      `yaml:"SensorInput"`
	KeyStep     int         `yaml:"KeyStep"`
	Audio       AudioConfig `yaml:"Audio"`
}

type AudioConfig struct {
	Device          string  `yaml:"Device"`
	SampleRate      int     `yaml:"SampleRate"`
	FramesPerBuffer int     `yaml:"FramesPerBuffer"`
	MinDB           float64 `yaml:"MinDB"`
	MaxDB           float64 `yaml:"MaxDB"`
}

type LoggingConfig struct {
	TUI LogConfig `yaml:"TUI"`
	HW  LogConfig `yaml:"HW"`
}

type LogConfig struct {
	Level  string `yaml:"Level"`
	Format string `yaml:"Format"`
	File   string `yaml:"File"`
}

// Default returns the configuration of the single-strip piezo lamp: 31
// pixels, brightness cap 60, wrap on, mode changes at most once per
// second, thresholds 60 and 800.
func Default() *Config {
	conf := &Config{
		Glow: GlowConfig{
			LedsTotal:   31,
			Brightness:  60,
			Wrap:        true,
			ChangeDelay: 1000 * time.Millisecond,
			Passive:     60,
			Panic:       800,
		},
		Hardware: HardwareConfig{
			Platform:          "rpi",
			LEDType:           "WS2812",
			SPIFrequency:      2400000,
			ColorCorrection:   []float64{1, 1, 1},
			APA102_Brightness: 31,
			LedMultiplex:      "LED",
			Sensors: SensorsConfig{
				AdcMultiplex:  "ADC",
				AdcChannel:    0,
				NoiseChannel:  1,
				SmoothingSize: 1,
				LoopDelay:     5 * time.Millisecond,
			},
			Bridge: BridgeConfig{
				BaudRate:  115200,
				OPCServer: "localhost:7890",
			},
		},
		Simulation: SimulationConfig{
			SensorInput: "keys",
			KeyStep:     25,
			Audio: AudioConfig{
				Device:          "default",
				SampleRate:      44100,
				FramesPerBuffer: 1024,
				MinDB:           -60,
				MaxDB:           -10,
			},
		},
		Logging: LoggingConfig{
			TUI: LogConfig{Level: "INFO", Format: "text"},
			HW:  LogConfig{Level: "INFO", Format: "text"},
		},
	}
	return conf
}

// ReadConfig decodes cfile on top of the defaults and validates the
// result.
func ReadConfig(cfile string) (*Config, error) {
	f, err := os.Open(cfile)
	if err != nil {
		return nil, fmt.Errorf("can't open config file %s: %w", cfile, err)
	}
	defer f.Close()

	conf := Default()
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(conf); err != nil {
		return nil, fmt.Errorf("can't decode config file %s: %w", cfile, err)
	}
	conf.Configfile = cfile

	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", cfile, err)
	}
	return conf, nil
}

// Validate checks the invariants the engine relies on. In particular
// 0 <= Passive < Panic <= 1023 guarantees that the speed computed for
// the transitional mode is always positive.
func (c *Config) Validate() error {
	var errs []error

	g := c.Glow
	if g.LedsTotal <= 0 {
		errs = append(errs, fmt.Errorf("Glow.LedsTotal (%d) must be greater than 0", g.LedsTotal))
	}
	if g.Brightness < 1 || g.Brightness > 255 {
		errs = append(errs, fmt.Errorf("Glow.Brightness (%d) must be between 1 and 255", g.Brightness))
	}
	if g.ChangeDelay <= 0 {
		errs = append(errs, fmt.Errorf("Glow.ChangeDelay (%v) must be positive", g.ChangeDelay))
	}
	if g.FrameDelay < 0 {
		errs = append(errs, fmt.Errorf("Glow.FrameDelay (%v) must be non-negative", g.FrameDelay))
	}
	if g.Passive < 0 || g.Passive > SensorMax {
		errs = append(errs, fmt.Errorf("Glow.Passive (%d) must be between 0 and %d", g.Passive, SensorMax))
	}
	if g.Panic < 0 || g.Panic > SensorMax {
		errs = append(errs, fmt.Errorf("Glow.Panic (%d) must be between 0 and %d", g.Panic, SensorMax))
	}
	if g.Passive >= g.Panic {
		errs = append(errs, fmt.Errorf("Glow.Passive (%d) must be less than Glow.Panic (%d)", g.Passive, g.Panic))
	}

	hw := c.Hardware
	switch strings.ToLower(hw.Platform) {
	case "rpi":
		switch strings.ToUpper(hw.LEDType) {
		case "WS2801", "APA102", "WS2812":
		default:
			errs = append(errs, fmt.Errorf("Hardware.LEDType %q is unknown, use WS2801, APA102 or WS2812", hw.LEDType))
		}
		if len(hw.ColorCorrection) != 3 {
			errs = append(errs, fmt.Errorf("Hardware.ColorCorrection must have exactly 3 values, got %d", len(hw.ColorCorrection)))
		}
		if hw.SPIFrequency <= 0 {
			errs = append(errs, fmt.Errorf("Hardware.SPIFrequency (%d) must be positive", hw.SPIFrequency))
		}
		if hw.APA102_Brightness < 0 || hw.APA102_Brightness > 31 {
			errs = append(errs, fmt.Errorf("Hardware.APA102_Brightness (%d) must be between 0 and 31", hw.APA102_Brightness))
		}
		for _, name := range []string{hw.LedMultiplex, hw.Sensors.AdcMultiplex} {
			if _, found := hw.SpiMultiplexGPIO[name]; !found {
				errs = append(errs, fmt.Errorf("Hardware.SpiMultiplexGPIO has no entry %q", name))
			}
		}
		if hw.Sensors.AdcChannel > 7 || hw.Sensors.NoiseChannel > 7 {
			errs = append(errs, fmt.Errorf("Hardware.Sensors ADC channels must be between 0 and 7"))
		}
		if hw.Sensors.SmoothingSize < 1 {
			errs = append(errs, fmt.Errorf("Hardware.Sensors.SmoothingSize (%d) must be at least 1", hw.Sensors.SmoothingSize))
		}
		if hw.Sensors.LoopDelay <= 0 {
			errs = append(errs, fmt.Errorf("Hardware.Sensors.LoopDelay (%v) must be positive", hw.Sensors.LoopDelay))
		}
	case "bridge":
		if hw.Bridge.SerialPort == "" {
			errs = append(errs, errors.New("Hardware.Bridge.SerialPort must be set"))
		}
		if hw.Bridge.BaudRate <= 0 {
			errs = append(errs, fmt.Errorf("Hardware.Bridge.BaudRate (%d) must be positive", hw.Bridge.BaudRate))
		}
		if hw.Bridge.OPCServer == "" {
			errs = append(errs, errors.New("Hardware.Bridge.OPCServer must be set"))
		}
	default:
		errs = append(errs, fmt.Errorf("Hardware.Platform %q is unknown, use rpi or bridge", hw.Platform))
	}

	sim := c.Simulation
	switch strings.ToLower(sim.SensorInput) {
	case "keys":
		if sim.KeyStep < 1 || sim.KeyStep > SensorMax {
			errs = append(errs, fmt.Errorf("Simulation.KeyStep (%d) must be between 1 and %d", sim.KeyStep, SensorMax))
		}
	case "audio":
		if sim.Audio.MinDB >= sim.Audio.MaxDB {
			errs = append(errs, fmt.Errorf("Simulation.Audio.MinDB (%.1f) must be less than MaxDB (%.1f)", sim.Audio.MinDB, sim.Audio.MaxDB))
		}
		if sim.Audio.SampleRate <= 0 || sim.Audio.FramesPerBuffer <= 0 {
			errs = append(errs, errors.New("Simulation.Audio.SampleRate and FramesPerBuffer must be positive"))
		}
	default:
		errs = append(errs, fmt.Errorf("Simulation.SensorInput %q is unknown, use keys or audio", sim.SensorInput))
	}

	return errors.Join(errs...)
}
