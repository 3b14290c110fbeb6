package platform

import (
	"fmt"
	"math"
	"strings"

	c "lautenbacher.net/piezoleds/config"
	"lautenbacher.net/piezoleds/glow"
)

// ledDriver turns a frame into the byte stream of one LED chip family and
// hands it to exchangeFunc together with the SPI multiplex name.
type ledDriver interface {
	write(leds []glow.Led, multiplex string, exchangeFunc func(string, []byte) []byte) error
}

func newLedDriver(hw c.HardwareConfig, ledsTotal int) (ledDriver, error) {
	switch strings.ToUpper(hw.LEDType) {
	case "APA102":
		return newApa102Driver(hw, ledsTotal), nil
	case "WS2801":
		return newWs2801Driver(hw, ledsTotal), nil
	case "WS2812":
		return newWs2812Driver(hw, ledsTotal), nil
	default:
		return nil, fmt.Errorf("unknown LED type: %s", hw.LEDType)
	}
}

// colorCorrection scales a channel value, saturating at 255.
type colorCorrection []float64

func (cc colorCorrection) apply(led glow.Led) (red, green, blue byte) {
	red = byte(math.Min(float64(led.Red)*cc[0], 255))
	green = byte(math.Min(float64(led.Green)*cc[1], 255))
	blue = byte(math.Min(float64(led.Blue)*cc[2], 255))
	return
}

type ws2801Driver struct {
	correction colorCorrection
	buffer     []byte
}

func newWs2801Driver(hw c.HardwareConfig, ledsTotal int) *ws2801Driver {
	return &ws2801Driver{
		correction: hw.ColorCorrection,
		buffer:     make([]byte, 3*ledsTotal),
	}
}

func (d *ws2801Driver) write(leds []glow.Led, multiplex string, exchangeFunc func(string, []byte) []byte) error {
	display := d.buffer[:3*len(leds)]
	for idx, led := range leds {
		display[3*idx], display[3*idx+1], display[3*idx+2] = d.correction.apply(led)
	}
	exchangeFunc(multiplex, display)
	return nil
}

type apa102Driver struct {
	correction colorCorrection
	brightness byte
	buffer     []byte
}

func newApa102Driver(hw c.HardwareConfig, ledsTotal int) *apa102Driver {
	frameEndLength := (ledsTotal / 16) + 1
	return &apa102Driver{
		correction: hw.ColorCorrection,
		brightness: byte(hw.APA102_Brightness) | 0xE0,
		buffer:     make([]byte, 4+(4*ledsTotal)+frameEndLength),
	}
}

func (d *apa102Driver) write(leds []glow.Led, multiplex string, exchangeFunc func(string, []byte) []byte) error {
	frameEndLength := (len(leds) / 16) + 1
	requiredSize := 4 + (4 * len(leds)) + frameEndLength
	display := d.buffer[:requiredSize]

	// Frame start: 4 zero bytes
	copy(display[0:4], []byte{0x00, 0x00, 0x00, 0x00})

	offset := 4
	for _, led := range leds {
		red, green, blue := d.correction.apply(led)
		// protocol: brightness byte, blue, green, red
		display[offset] = d.brightness
		display[offset+1] = blue
		display[offset+2] = green
		display[offset+3] = red
		offset += 4
	}

	// Frame end: at least len/2 bits of 0xFF
	for i := offset; i < requiredSize; i++ {
		display[i] = 0xFF
	}

	exchangeFunc(multiplex, display)
	return nil
}

// WS2812 (NeoPixel) has no clock line. At an SPI clock of 2.4MHz every
// data bit becomes three SPI bits, 110 for a one and 100 for a zero.
// Chips take the colors in GRB order and latch after >50us of low line.
const ws2812ResetBytes = 30

type ws2812Driver struct {
	correction colorCorrection
	buffer     []byte
}

func newWs2812Driver(hw c.HardwareConfig, ledsTotal int) *ws2812Driver {
	return &ws2812Driver{
		correction: hw.ColorCorrection,
		buffer:     make([]byte, 9*ledsTotal+ws2812ResetBytes),
	}
}

func (d *ws2812Driver) write(leds []glow.Led, multiplex string, exchangeFunc func(string, []byte) []byte) error {
	display := d.buffer[:9*len(leds)+ws2812ResetBytes]
	for idx, led := range leds {
		red, green, blue := d.correction.apply(led)
		ws2812Encode(display[9*idx:], green)
		ws2812Encode(display[9*idx+3:], red)
		ws2812Encode(display[9*idx+6:], blue)
	}
	clear(display[9*len(leds):])
	exchangeFunc(multiplex, display)
	return nil
}

// ws2812Encode writes the 24 bit line code of b into dst[0:3].
func ws2812Encode(dst []byte, b byte) {
	var bits uint32
	for i := 7; i >= 0; i-- {
		bits <<= 3
		if b&(1<<i) != 0 {
			bits |= 0b110
		} else {
			bits |= 0b100
		}
	}
	dst[0] = byte(bits >> 16)
	dst[1] = byte(bits >> 8)
	dst[2] = byte(bits)
}
