// Package fade implements the per-player crossfade envelope generator used
// to tail out the previous track's fade buffer while a new track starts,
// giving gapless playback without an audible seam.
package fade

import "math"

// Mode selects how quickly an armed fade-out decays to silence.
type Mode int

const (
	// Off disables fading: the envelope holds at 1.0 regardless of the
	// fadeout flag.
	Off Mode = iota
	// Fast decays over roughly 0.25 s — used for manual track skips.
	Fast
	// Slow decays over roughly 4 s — used for natural end-of-track overlap.
	Slow
)

// timeConstant returns the mode's decay time constant in seconds.
func (m Mode) timeConstant() float64 {
	switch m {
	case Fast:
		return 0.25
	case Slow:
		return 4.0
	default:
		return 0
	}
}

// Generator produces a decaying gain envelope for one player's fade buffer.
// It is driven one sample at a time from the mix kernel's hot loop and must
// not allocate.
type Generator struct {
	sr    int
	mode  Mode
	decay float64 // per-sample multiplicative decay for the active mode
	gain  float64
}

// New returns a Generator at unity gain for the given sample rate.
func New(sr int) *Generator {
	g := &Generator{sr: sr, gain: 1.0}
	g.SetMode(Off)
	return g
}

// SetSampleRate recomputes the decay coefficient for the current mode.
func (g *Generator) SetSampleRate(sr int) {
	g.sr = sr
	g.SetMode(g.mode)
}

// SetMode selects the decay curve used the next time the envelope is armed.
func (g *Generator) SetMode(mode Mode) {
	g.mode = mode
	tc := mode.timeConstant()
	sr := g.sr
	if sr <= 0 {
		sr = 44100
	}
	if tc <= 0 {
		g.decay = 1.0
		return
	}
	// Exponential decay to ~1/1000 over the time constant.
	g.decay = math.Exp(-6.9077552789821 / (tc * float64(sr)))
}

// Arm resets the envelope to full volume, ready to decay from the next Tick
// once fadeout is asserted.
func (g *Generator) Arm() {
	g.gain = 1.0
}

// Tick advances the envelope by one sample when fadeout is true (decaying
// toward zero) and returns the current gain. When fadeout is false (or the
// mode is Off) the envelope holds its current gain: unity right after Arm,
// otherwise wherever the last decay step left it.
func (g *Generator) Tick(fadeout bool) float64 {
	if !fadeout || g.mode == Off {
		return g.gain
	}
	g.gain *= g.decay
	if g.gain < 1e-5 {
		g.gain = 0
	}
	return g.gain
}

// Gain returns the current envelope value without advancing it.
func (g *Generator) Gain() float64 {
	return g.gain
}

// Done reports whether the envelope has fully decayed.
func (g *Generator) Done() bool {
	return g.gain == 0
}
