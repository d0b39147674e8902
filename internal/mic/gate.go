package mic

import "math"

// NoiseGate zeroes frames below an RMS threshold and reports openness for
// ducking, adapted from client/internal/noisegate's hold-timer gate (same
// threshold+hold shape; renamed Open/Process to fit this package's Gate
// interface instead of a standalone VOIP noise gate).
type NoiseGate struct {
	threshold float32
	hold      int
	remaining int
	open      bool
}

// NewNoiseGate returns a Gate with a -36 dBFS threshold and a hold of 150
// Process calls. The mix kernel calls Process once per mic per callback
// block, so the hold time in seconds depends on the JACK block size.
func NewNoiseGate() *NoiseGate {
	return &NoiseGate{
		threshold: 0.0158, // ~ -36 dBFS
		hold:      150,
	}
}

// SetThresholdDB sets the gate threshold in dB relative to full scale.
func (g *NoiseGate) SetThresholdDB(db float64) {
	g.threshold = float32(dbToLinear(db))
}

func dbToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}

// Process zeroes frame in place when its RMS falls below threshold for
// longer than the hold period.
func (g *NoiseGate) Process(frame []float32) {
	if len(frame) == 0 {
		return
	}
	level := rms(frame)
	if level >= float64(g.threshold) {
		g.open = true
		g.remaining = g.hold
	} else if g.remaining > 0 {
		g.remaining--
		g.open = true
	} else {
		g.open = false
	}

	if !g.open {
		for i := range frame {
			frame[i] = 0
		}
	}
}

// Open reports whether the gate passed its most recently processed frame.
func (g *NoiseGate) Open() bool { return g.open }
