package platform

import (
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	c "lautenbacher.net/piezoleds/config"
	"lautenbacher.net/piezoleds/glow"
	u "lautenbacher.net/piezoleds/util"
)

const maxSensorHistory = 500

type AbstractPlatform struct {
	config         *c.Config
	reading        atomic.Int64
	history        *readingHistory
	readyChan      chan bool
	stopChan       chan struct{}
	wg             sync.WaitGroup
	shutdownMutex  sync.RWMutex
	isShuttingDown bool
}

func newAbstractPlatform(conf *c.Config) *AbstractPlatform {
	return &AbstractPlatform{
		config:    conf,
		history:   newReadingHistory(maxSensorHistory),
		readyChan: make(chan bool),
		stopChan:  make(chan struct{}),
	}
}

func (s *AbstractPlatform) Ready() <-chan bool {
	return s.readyChan
}

// ReadSensor returns the latest reading delivered by the platform's
// sensor goroutine or input handler.
func (s *AbstractPlatform) ReadSensor() int {
	return int(s.reading.Load())
}

// ReadNoise falls back to the clock where no floating analog input exists.
func (s *AbstractPlatform) ReadNoise() uint64 {
	return uint64(time.Now().UnixNano())
}

func (s *AbstractPlatform) WatchStatus(*u.AtomicEvent[glow.Status]) {}

func (s *AbstractPlatform) recordReading(value int) int {
	value = u.Clamp(value, 0, c.SensorMax)
	s.reading.Store(int64(value))
	s.history.push(value)
	return value
}

func (s *AbstractPlatform) setInShutdown() {
	s.shutdownMutex.Lock()
	s.isShuttingDown = true
	s.shutdownMutex.Unlock()
}

func (s *AbstractPlatform) inShutdown() bool {
	s.shutdownMutex.RLock()
	defer s.shutdownMutex.RUnlock()
	return s.isShuttingDown
}

// stopWorkers signals all platform goroutines and waits for them.
func (s *AbstractPlatform) stopWorkers() {
	s.setInShutdown()
	close(s.stopChan)
	s.wg.Wait()
	slog.Info("Platform workers stopped", "history", s.history.stats())
}

// sensor is an ADC input with an optional moving average over the last
// capacity samples.
type sensor struct {
	spimultiplex string
	adcChannel   byte
	values       []int
	index        int
	sum          int
	capacity     int
}

func newSensor(spimultiplex string, adcChannel byte, smoothing int) *sensor {
	smoothing = max(smoothing, 1)
	return &sensor{
		spimultiplex: spimultiplex,
		adcChannel:   adcChannel,
		values:       make([]int, smoothing),
		capacity:     smoothing,
	}
}

func (s *sensor) smoothedValue(value int) int {
	oldValue := s.values[s.index]
	s.sum = s.sum - oldValue + value
	s.values[s.index] = value
	s.index = (s.index + 1) % s.capacity
	return int(math.Round(float64(s.sum) / float64(s.capacity)))
}
