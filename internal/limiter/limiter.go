// Package limiter implements the feed-forward brickwall limiter applied to
// the stream, monitor and VOIP-send buses. Each site owns an independent
// instance; there is no shared state between them.
package limiter

import "mixengine/internal/dbtable"

// DefaultCeilingDB is the default brickwall ceiling, just under unity so the
// limiter engages slightly before a true 0 dBFS peak.
const DefaultCeilingDB = -0.05

// releasePerSample is the per-sample gain recovery step (~90 ms at 44.1 kHz).
const releasePerSample = 1.0 / 4000.0

// Limiter is a sample-by-sample hard-knee gain reducer: attack is
// instantaneous (one sample), release creeps the applied gain back toward
// unity at releasePerSample per sample.
type Limiter struct {
	ceiling float64 // linear
	gain    float64 // currently applied gain, <= 1.0
}

// New returns a Limiter with the given ceiling in dB.
func New(ceilingDB float64) *Limiter {
	return &Limiter{
		ceiling: dbtable.DB2Level(ceilingDB),
		gain:    1.0,
	}
}

// Process applies the limiter to one stereo sample pair in place and returns
// the limited pair.
func (lm *Limiter) Process(l, r float64) (float64, float64) {
	peak := abs(l)
	if ar := abs(r); ar > peak {
		peak = ar
	}

	lm.gain += releasePerSample
	if lm.gain > 1.0 {
		lm.gain = 1.0
	}
	if peak > 0 && peak*lm.gain > lm.ceiling {
		lm.gain = lm.ceiling / peak
	}

	return l * lm.gain, r * lm.gain
}

// Gain returns the currently applied gain reduction (1.0 = no reduction).
func (lm *Limiter) Gain() float64 {
	return lm.gain
}

// Reset returns the limiter to unity gain.
func (lm *Limiter) Reset() {
	lm.gain = 1.0
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
