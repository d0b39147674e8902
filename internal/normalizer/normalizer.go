// Package normalizer implements the stream bus's slow automatic gain
// control: a long-time-constant follower that boosts quiet programme
// material toward a target average level without ever letting the boost
// itself exceed a configured ceiling.
package normalizer

import (
	"mixengine/internal/dbtable"
	"mixengine/internal/peak"
)

// Stats is the externally settable configuration of a Normalizer. It
// intentionally excludes the running gain (Level): an update must preserve
// whatever boost is currently in effect.
type Stats struct {
	MaxLevel float64 // target average level, dB
	Rise     float64 // seconds to move the boost by 1 dB when falling short
	Fall     float64 // seconds to move the boost by 1 dB when pulling back
	Ceiling  float64 // maximum boost allowed, dB
	Active   bool
}

// Normalizer tracks a slowly-moving gain boost in dB, increasing it while
// the programme envelope sits below MaxLevel and decreasing it whenever the
// boosted envelope would exceed MaxLevel.
type Normalizer struct {
	sr int

	active   bool
	level    float64 // current boost, dB, in [0, ceiling]
	maxLevel float64
	ceiling  float64
	riseInc  float64 // per-sample dB increment
	fallInc  float64

	env *peak.Filter
}

// New returns a Normalizer for the given sample rate with sensible
// legacy-matching defaults (maxLevel -12 dB, rise ~2.7s, fall ~2.0s, ceiling
// 12 dB of boost).
func New(sr int) *Normalizer {
	n := &Normalizer{sr: sr, env: peak.New(sr)}
	n.SetStats(Stats{
		MaxLevel: -12,
		Rise:     120000.0 / 44100.0,
		Fall:     90000.0 / 44100.0,
		Ceiling:  12.0,
		Active:   false,
	})
	return n
}

// SetStats applies new configuration without disturbing the running level.
func (n *Normalizer) SetStats(s Stats) {
	n.maxLevel = s.MaxLevel
	n.ceiling = s.Ceiling
	n.active = s.Active
	sr := float64(n.sr)
	if sr <= 0 {
		sr = 44100
	}
	if s.Rise > 0 {
		n.riseInc = 1.0 / (s.Rise * sr)
	}
	if s.Fall > 0 {
		n.fallInc = 1.0 / (s.Fall * sr)
	}
}

// Stats returns the current configuration (not including the running level).
func (n *Normalizer) Stats() Stats {
	sr := float64(n.sr)
	if sr <= 0 {
		sr = 44100
	}
	var rise, fall float64
	if n.riseInc > 0 {
		rise = 1.0 / (n.riseInc * sr)
	}
	if n.fallInc > 0 {
		fall = 1.0 / (n.fallInc * sr)
	}
	return Stats{MaxLevel: n.maxLevel, Rise: rise, Fall: fall, Ceiling: n.ceiling, Active: n.active}
}

// SetSampleRate rescales the internal envelope follower and the per-sample
// rise/fall increments for a new sample rate, preserving the configured
// rise/fall times in seconds.
func (n *Normalizer) SetSampleRate(sr int) {
	s := n.Stats()
	n.sr = sr
	n.env.SetSampleRate(sr)
	n.SetStats(s)
}

// Process steers l, r through the current boost and updates the boost
// toward the configured target. When inactive, samples pass through
// unmodified but the envelope follower keeps running so re-activation does
// not start from a stale reading.
func (n *Normalizer) Process(l, r float64) (float64, float64) {
	peakAbs := abs(l)
	if ar := abs(r); ar > peakAbs {
		peakAbs = ar
	}
	envDB := dbtable.Level2DB(n.env.Process(peakAbs))

	if envDB+n.level > n.maxLevel {
		n.level -= n.fallInc
	} else {
		n.level += n.riseInc
	}
	if n.level < 0 {
		n.level = 0
	}
	if n.level > n.ceiling {
		n.level = n.ceiling
	}

	if !n.active {
		return l, r
	}
	gain := dbtable.DB2Level(n.level)
	return l * gain, r * gain
}

// Level returns the current applied boost in dB.
func (n *Normalizer) Level() float64 {
	return n.level
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
