package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	c "lautenbacher.net/piezoleds/config"
	"lautenbacher.net/piezoleds/glow"
)

type fakePin struct {
	id  int
	log *[]string
}

func (p fakePin) High() { *p.log = append(*p.log, "H", string(rune('0'+p.id))) }
func (p fakePin) Low()  { *p.log = append(*p.log, "L", string(rune('0'+p.id))) }

type fakeBus struct {
	pinLog    *[]string
	transfers [][]byte
	// pins state when each transfer happened
	selected []string
	respond  func(data []byte)
}

func (b *fakeBus) Exchange(data []byte) {
	b.transfers = append(b.transfers, append([]byte(nil), data...))
	b.selected = append(b.selected, concat(*b.pinLog))
	*b.pinLog = (*b.pinLog)[:0]
	if b.respond != nil {
		b.respond(data)
	}
}

func concat(parts []string) string {
	var out string
	for _, p := range parts {
		out += p
	}
	return out
}

func testHardwareConfig() *c.Config {
	conf := c.Default()
	conf.Glow.LedsTotal = 2
	conf.Hardware.LEDType = "WS2801"
	conf.Hardware.SpiMultiplexGPIO = map[string]struct {
		Low  []int `yaml:"Low,flow"`
		High []int `yaml:"High,flow"`
	}{
		"LED": {Low: []int{1}, High: []int{2}},
		"ADC": {Low: []int{2}, High: []int{1}},
	}
	conf.Hardware.Sensors.SmoothingSize = 1
	return conf
}

func newTestRpiPlatform(t *testing.T, conf *c.Config) (*RaspberryPiPlatform, *fakeBus) {
	pinLog := []string{}
	bus := &fakeBus{pinLog: &pinLog}
	s := NewRaspberryPiPlatform(conf)
	err := s.setup(bus, func(pin int) gpioPin { return fakePin{id: pin, log: &pinLog} })
	require.NoError(t, err)
	return s, bus
}

func adcResponse(value int) func([]byte) {
	return func(data []byte) {
		data[0] = 0
		data[1] = byte(value>>8) & 3
		data[2] = byte(value)
	}
}

func TestRaspberryPi_ReadAdc(t *testing.T) {
	s, bus := newTestRpiPlatform(t, testHardwareConfig())
	bus.respond = adcResponse(777)

	assert.Equal(t, 777, s.readAdc("ADC", 3))
	require.Len(t, bus.transfers, 1)
	assert.Equal(t, []byte{1, (8 + 3) << 4, 0}, bus.transfers[0])
	assert.Equal(t, "L2H1", bus.selected[0], "ADC multiplex pins are set before the transfer")
}

func TestRaspberryPi_SampleSensorSmoothsAndClamps(t *testing.T) {
	conf := testHardwareConfig()
	conf.Hardware.Sensors.SmoothingSize = 2
	s, bus := newTestRpiPlatform(t, conf)

	bus.respond = adcResponse(400)
	assert.Equal(t, 200, s.sampleSensor())
	assert.Equal(t, 200, s.ReadSensor())

	bus.respond = adcResponse(1023)
	assert.Equal(t, 712, s.sampleSensor())
	assert.Equal(t, 712, s.ReadSensor())
	assert.Equal(t, 2, s.history.len())
}

func TestRaspberryPi_ShowWritesFrame(t *testing.T) {
	s, bus := newTestRpiPlatform(t, testHardwareConfig())

	s.SetPixel(0, glow.Led{Red: 60, Green: 1, Blue: 2})
	s.SetPixel(1, glow.Led{Red: 3, Green: 4, Blue: 5})
	s.SetPixel(2, glow.Led{Red: 9, Green: 9, Blue: 9}) // out of range, ignored
	require.NoError(t, s.Show())

	require.Len(t, bus.transfers, 1)
	assert.Equal(t, []byte{60, 1, 2, 3, 4, 5}, bus.transfers[0])
	assert.Equal(t, "L1H2", bus.selected[0])
}

func TestRaspberryPi_ShowAfterShutdown(t *testing.T) {
	s, bus := newTestRpiPlatform(t, testHardwareConfig())
	s.setInShutdown()

	require.NoError(t, s.Show())
	assert.Empty(t, bus.transfers)
}

func TestRaspberryPi_ReadNoise(t *testing.T) {
	s, bus := newTestRpiPlatform(t, testHardwareConfig())
	next := 0
	bus.respond = func(data []byte) {
		next++
		adcResponse(0x300 + next)(data)
	}

	seed := s.ReadNoise()
	assert.Equal(t, uint64(0x0102030405060708), seed)
	require.Len(t, bus.transfers, noiseSamples)
	assert.Equal(t, byte((8+1)<<4), bus.transfers[0][1], "noise comes from the configured channel")
}

func TestRaspberryPi_UnknownLedType(t *testing.T) {
	conf := testHardwareConfig()
	conf.Hardware.LEDType = "LPD8806"
	s := NewRaspberryPiPlatform(conf)
	err := s.setup(&fakeBus{pinLog: &[]string{}}, func(pin int) gpioPin { return fakePin{} })
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown LED type")
}

func TestSensor_smoothValue(t *testing.T) {
	s := newSensor("ADC", 0, 5)

	// Initial values are all 0
	assert.Equal(t, 2, s.smoothedValue(10))  // [0, 0, 0, 0, 10] -> sum=10, avg=2
	assert.Equal(t, 6, s.smoothedValue(20))  // [0, 0, 0, 10, 20] -> sum=30, avg=6
	assert.Equal(t, 12, s.smoothedValue(30)) // sum=60
	assert.Equal(t, 20, s.smoothedValue(40)) // sum=100
	assert.Equal(t, 30, s.smoothedValue(50)) // [10, 20, 30, 40, 50] -> avg=30
	assert.Equal(t, 28, s.smoothedValue(0))  // [20, 30, 40, 50, 0] -> avg=28
}

func TestSensor_NoSmoothing(t *testing.T) {
	s := newSensor("ADC", 0, 0)
	assert.Equal(t, 1, s.capacity)
	assert.Equal(t, 512, s.smoothedValue(512))
	assert.Equal(t, 3, s.smoothedValue(3))
}
