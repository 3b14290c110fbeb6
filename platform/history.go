package platform

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"

	"github.com/gammazero/deque"
)

// readingHistory keeps the most recent sensor readings for statistics.
type readingHistory struct {
	mu       sync.Mutex
	values   deque.Deque[int]
	capacity int
}

type sensorStats struct {
	count  int
	min    int
	max    int
	mean   float64
	median float64
	stdDev float64
}

func newReadingHistory(capacity int) *readingHistory {
	h := &readingHistory{capacity: capacity}
	h.values.Grow(capacity)
	return h
}

func (h *readingHistory) push(value int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.values.Len() == h.capacity {
		h.values.PopFront()
	}
	h.values.PushBack(value)
}

func (h *readingHistory) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.values.Len()
}

func (h *readingHistory) stats() sensorStats {
	h.mu.Lock()
	data := make([]int, h.values.Len())
	for i := range h.values.Len() {
		data[i] = h.values.At(i)
	}
	h.mu.Unlock()
	return calculateStats(data)
}

func (st sensorStats) String() string {
	return fmt.Sprintf("[%4d|%4.0f|%4d] sd %5.1f n=%d", st.min, math.Round(st.mean), st.max, st.stdDev, st.count)
}

func (st sensorStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("n", st.count),
		slog.Int("min", st.min),
		slog.Int("max", st.max),
		slog.Float64("mean", st.mean),
		slog.Float64("median", st.median),
		slog.Float64("stdDev", st.stdDev),
	)
}

// calculateStats sorts data in place.
func calculateStats(data []int) sensorStats {
	if len(data) == 0 {
		return sensorStats{}
	}

	var sum int
	min, max := data[0], data[0]
	for _, v := range data {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
		sum += v
	}

	mean := float64(sum) / float64(len(data))

	sort.Ints(data)
	var median float64
	mid := len(data) / 2
	if len(data)%2 == 0 {
		median = float64(data[mid-1]+data[mid]) / 2.0
	} else {
		median = float64(data[mid])
	}

	var sumOfSquares float64
	for _, v := range data {
		sumOfSquares += (float64(v) - mean) * (float64(v) - mean)
	}
	stdDev := math.Sqrt(sumOfSquares / float64(len(data)))

	return sensorStats{
		count:  len(data),
		min:    min,
		max:    max,
		mean:   mean,
		median: median,
		stdDev: stdDev,
	}
}
