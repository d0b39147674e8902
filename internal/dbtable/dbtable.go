// Package dbtable provides fast decibel/linear-level conversion for the mix
// engine's hot path. The conversions are plain math but are centralised here
// so every component (limiter, normalizer, peak filter, telemetry) agrees on
// the same rounding and clamping rules.
package dbtable

import "math"

// MinDB is the dB floor reported for a zero or negative level.
const MinDB = -127

// Level2DB converts a linear amplitude (0..~1+) to decibels. A level of 1.0
// is 0 dB. Non-positive levels clamp to MinDB rather than returning -Inf.
func Level2DB(level float64) float64 {
	if level <= 0 {
		return MinDB
	}
	db := 20 * math.Log10(level)
	if db < MinDB {
		return MinDB
	}
	return db
}

// DB2Level converts decibels back to a linear amplitude.
func DB2Level(db float64) float64 {
	return math.Pow(10, db/20)
}

// PeakToLog mirrors the engine's integer telemetry rounding for peak
// readings: -127 for silence, 0 once the signal reaches or exceeds unity,
// otherwise the truncated dB value.
func PeakToLog(peak float64) int {
	switch {
	case peak <= 0:
		return MinDB
	case peak >= 1.0:
		return 0
	default:
		return int(Level2DB(peak))
	}
}
