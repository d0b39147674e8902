// Package alarm generates and plays the end-of-track alarm waveform mixed
// into the monitor bus when a player's track runs out. The table is a one
// second (rounded) wavetable: a 900 Hz fundamental plus a quieter second
// harmonic at 1800 Hz, offset in phase so the composite waveform doesn't
// start at a hard zero-crossing discontinuity on every wrap.
package alarm

import "math"

const (
	fundamentalHz  = 900.0
	fundamentalAmp = 0.83
	harmonicHz     = 1800.0
	harmonicAmp    = 0.024
	harmonicPhase  = math.Pi / 4
)

// Table is the read-only-after-init wavetable, sized to a multiple of 900
// samples (see New).
type Table struct {
	samples []float32
}

// New builds the wavetable for sample rate sr. Size is floor(sr/900)*900
// (900 when sr < 900). The table holds a whole number of fundamental cycles,
// and so loops without a click, only when sr is itself a multiple of 900
// (44100 is; 48000 is not).
func New(sr int) *Table {
	size := (sr / int(fundamentalHz)) * int(fundamentalHz)
	if size <= 0 {
		size = int(fundamentalHz)
	}
	samples := make([]float32, size)
	for i := range samples {
		t := float64(i) / float64(sr)
		v := fundamentalAmp*math.Sin(2*math.Pi*fundamentalHz*t) +
			harmonicAmp*math.Sin(2*math.Pi*harmonicHz*t+harmonicPhase)
		samples[i] = float32(v)
	}
	return &Table{samples: samples}
}

// Size returns the number of samples in the table.
func (t *Table) Size() int {
	return len(t.samples)
}

// At returns the sample at index i, which must be in [0, Size()).
func (t *Table) At(i int) float32 {
	return t.samples[i]
}

// Player walks a shared Table, looping once and then disarming itself. One
// Player exists per output bus (or per player channel) that can trigger the
// alarm; the Table itself is shared and never mutated after New.
type Player struct {
	table *Table
	index int
	armed bool
}

// NewPlayer returns a disarmed Player over table.
func NewPlayer(table *Table) *Player {
	return &Player{table: table}
}

// Arm restarts the alarm from the beginning of the table.
func (p *Player) Arm() {
	p.index = 0
	p.armed = true
}

// Disarm silences the alarm immediately.
func (p *Player) Disarm() {
	p.armed = false
}

// Armed reports whether the alarm is currently sounding.
func (p *Player) Armed() bool {
	return p.armed
}

// Next returns the next alarm sample (0 if disarmed) and advances the
// table index, disarming automatically after one full pass.
func (p *Player) Next() float32 {
	if !p.armed {
		return 0
	}
	v := p.table.At(p.index)
	p.index++
	if p.index >= p.table.Size() {
		p.index = 0
		p.armed = false
	}
	return v
}
