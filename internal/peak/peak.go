// Package peak implements the one-pole decaying peak tracker used for
// per-output telemetry. Each output bus owns an independent Filter.
package peak

// decayMicros is the decay time constant, matching the engine's legacy
// 115 microsecond tracker.
const decayMicros = 115.0

// Filter tracks the maximum absolute sample value seen, decaying toward
// zero between updates so a reader sampling periodically still sees a
// recently-elevated peak rather than an instantaneous one.
type Filter struct {
	decay float64 // per-sample multiplicative decay, derived from sample rate
	level float64
}

// New returns a Filter tuned to sr (samples per second).
func New(sr int) *Filter {
	f := &Filter{}
	f.SetSampleRate(sr)
	return f
}

// SetSampleRate recomputes the decay coefficient for a new sample rate.
func (f *Filter) SetSampleRate(sr int) {
	if sr <= 0 {
		sr = 44100
	}
	tau := decayMicros * 1e-6 * float64(sr)
	f.decay = 1.0 - 1.0/tau
}

// Process feeds one sample through the tracker and returns the current peak.
func (f *Filter) Process(sample float64) float64 {
	if sample < 0 {
		sample = -sample
	}
	f.level *= f.decay
	if sample > f.level {
		f.level = sample
	}
	return f.level
}

// Peak returns the current tracked peak without advancing the decay.
func (f *Filter) Peak() float64 {
	return f.level
}

// Read returns the current peak and applies one decay step, mirroring the
// dispatcher's read-then-decay telemetry consumption.
func (f *Filter) Read() float64 {
	v := f.level
	f.level *= f.decay
	return v
}

// Reset zeroes the tracked peak.
func (f *Filter) Reset() {
	f.level = 0
}
