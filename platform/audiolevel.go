package platform

import (
	"math"

	c "lautenbacher.net/piezoleds/config"
)

// deInterleave splits interleaved stereo samples. Mono input is returned
// for both sides.
func deInterleave(in []float32, channels int) ([]float32, []float32) {
	if channels == 1 {
		return in, in
	}
	numSamples := len(in) / channels
	outL := make([]float32, numSamples)
	outR := make([]float32, numSamples)
	for i := range numSamples {
		outL[i] = in[channels*i]
		outR[i] = in[channels*i+1]
	}
	return outL, outR
}

// calculateRMS calculates the Root Mean Square of a slice of audio samples.
func calculateRMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sumSquare float64
	for _, sample := range samples {
		sumSquare += float64(sample * sample)
	}
	meanSquare := sumSquare / float64(len(samples))
	return math.Sqrt(meanSquare)
}

// rmsToDB converts an RMS value (0.0-1.0) to a decibel scale.
func rmsToDB(rms float64) float64 {
	rms = max(0.0001, rms) // Avoid log(0)
	return 20 * math.Log10(rms)
}

// dbToReading maps [minDB, maxDB] linearly onto the sensor range.
func dbToReading(db, minDB, maxDB float64) int {
	db = min(db, maxDB)
	db = max(db, minDB)
	level := (db - minDB) / (maxDB - minDB)
	return int(math.Round(level * c.SensorMax))
}

// audioLevel turns one buffer of interleaved samples into a reading,
// the louder of both channels wins.
func audioLevel(buffer []float32, channels int, minDB, maxDB float64) int {
	left, right := deInterleave(buffer, channels)
	rms := max(calculateRMS(left), calculateRMS(right))
	return dbToReading(rmsToDB(rms), minDB, maxDB)
}
