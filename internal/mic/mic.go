// Package mic implements the microphone bank: per-mic level and gate
// processing plus the per-block mix contributions and ducking factor the
// mix kernel's four modes consume. Concrete DSP (AGC curve, noise gate) is
// adapted from the teacher's client/internal/agc and client/internal/noisegate
// packages into this engine's domain — conditioning a broadcast mic, not a
// VOIP capture frame — but the interfaces below are what the mix kernel
// and dispatcher actually depend on, matching spec.md §1's "microphone DSP
// internals... consumed through interfaces."
package mic

// Processor adjusts a mono frame in place (an automatic level control, a
// compressor, or any other single-channel conditioning stage).
type Processor interface {
	Process(frame []float32)
}

// Gate reports whether a frame counts as "mic open" for ducking purposes
// after conditioning it in place.
type Gate interface {
	Process(frame []float32)
	Open() bool
}

// Role selects which output buses a mic's signal is routed to.
type Role int

const (
	// RoleMain routes the mic to the main-buses contribution (mlcm/mrcm)
	// consumed by every mixer mode that sums mic into the stream.
	RoleMain Role = iota
	// RoleAux routes the mic to the auxiliary contribution (alcm/arcm),
	// summed into the stream but not subject to ducking.
	RoleAux
	// RoleMonitorOnly contributes to the DJ monitor path only (munpm /
	// munpmdj), never to the stream or VOIP send.
	RoleMonitorOnly
)

// Mic is one microphone channel: a pan position, routing role, and the
// processing chain applied before its contribution is panned and summed.
type Mic struct {
	Name string
	Role Role
	Pan  float64 // -1 (left) .. +1 (right), 0 center

	// DuckSend is this mic's contribution to the engine-wide ducking
	// amount while its Gate reports Open — spec.md §4.2's "mic_process_all
	// returns a per-block duck amount" is the max DuckSend across mics
	// with an open gate, so one hot mic doesn't get drowned out by a
	// quiet one.
	DuckSend float64

	level Processor
	gate  Gate

	open bool // latched software mute, set by the dispatcher's mic_control
}

// NewMic returns a Mic using the default level/gate chain (adapted
// AGC + noise gate), centered, routed to the main buses, with full duck
// send.
func NewMic(name string) *Mic {
	return &Mic{
		Name:     name,
		Role:     RoleMain,
		Pan:      0,
		DuckSend: 1.0,
		level:    NewLevelControl(),
		gate:     NewNoiseGate(),
		open:     true,
	}
}

// SetProcessors overrides the level/gate chain, e.g. in tests.
func (m *Mic) SetProcessors(level Processor, gate Gate) {
	m.level = level
	m.gate = gate
}

// SetOpen toggles the mic's software mute. A closed mic contributes
// silence and never ducks.
func (m *Mic) SetOpen(open bool) { m.open = open }

// SetGateThresholdDB forwards a new gate threshold to the installed Gate,
// when it is the default *NoiseGate (a custom Gate installed via
// SetProcessors is left alone).
func (m *Mic) SetGateThresholdDB(db float64) {
	if g, ok := m.gate.(*NoiseGate); ok {
		g.SetThresholdDB(db)
	}
}

// SetLevelTargetDB forwards a new level-control target to the installed
// Processor, when it is the default *LevelControl.
func (m *Mic) SetLevelTargetDB(db float64) {
	if l, ok := m.level.(*LevelControl); ok {
		l.SetTarget(db)
	}
}

// Open reports the mic's software-mute state.
func (m *Mic) Open() bool { return m.open }

// process runs the level control and gate over frame in place, returning
// whether the gate considers this block "open" (speech/signal present).
func (m *Mic) process(frame []float32) bool {
	if !m.open {
		for i := range frame {
			frame[i] = 0
		}
		return false
	}
	if m.level != nil {
		m.level.Process(frame)
	}
	if m.gate != nil {
		m.gate.Process(frame)
		return m.gate.Open()
	}
	return true
}

// Contributions are the per-sample mix buffers the mix kernel's four modes
// read directly, matching spec.md §3's mlcm/mrcm/alcm/arcm/munpm/munpmdj
// naming.
type Contributions struct {
	MainL, MainR           []float32 // mlcm/mrcm: panned, post-level main-bus sum
	AuxL, AuxR             []float32 // alcm/arcm
	MonitorUnpanned        []float32 // munpm: unpanned sum for the non-DJ monitor path
	MonitorUnpannedDJ      []float32 // munpmdj: unpanned sum for the DJ's own monitor
}

// NewContributions allocates zeroed buffers sized for nframes. Called once
// per sample-rate/block-size change by the owning mixer, never inside the
// hot loop.
func NewContributions(nframes int) *Contributions {
	return &Contributions{
		MainL:             make([]float32, nframes),
		MainR:             make([]float32, nframes),
		AuxL:              make([]float32, nframes),
		AuxR:              make([]float32, nframes),
		MonitorUnpanned:   make([]float32, nframes),
		MonitorUnpannedDJ: make([]float32, nframes),
	}
}

func (c *Contributions) zero() {
	for i := range c.MainL {
		c.MainL[i] = 0
		c.MainR[i] = 0
		c.AuxL[i] = 0
		c.AuxR[i] = 0
		c.MonitorUnpanned[i] = 0
		c.MonitorUnpannedDJ[i] = 0
	}
}

// Bank owns the full microphone array (spec.md §3: "N read at startup from
// environment").
type Bank struct {
	mics []*Mic
	buf  []float32 // scratch processing frame, reused across mics
}

// NewBank returns a Bank of n default mics named "mic0".."micN-1". Callers
// replace processors or roles via Mic() before the engine starts.
func NewBank(n int, blockSize int) *Bank {
	b := &Bank{mics: make([]*Mic, n)}
	for i := range b.mics {
		b.mics[i] = NewMic(micName(i))
	}
	b.buf = make([]float32, blockSize)
	return b
}

func micName(i int) string {
	const letters = "0123456789"
	if i < 10 {
		return "mic" + string(letters[i])
	}
	return "mic" + itoa(i)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	pos := len(buf)
	for n > 0 {
		pos--
		buf[pos] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[pos:])
}

// Count returns the number of mics in the bank.
func (b *Bank) Count() int { return len(b.mics) }

// Mic returns the i'th mic for configuration.
func (b *Bank) Mic(i int) *Mic { return b.mics[i] }

// AnyOpen reports whether any mic is currently un-muted (spec.md §4.2
// "when any mic is open" — the headroom gate, independent of gate/VAD
// activity).
func (b *Bank) AnyOpen() bool {
	for _, m := range b.mics {
		if m.open {
			return true
		}
	}
	return false
}

// ProcessBlock runs every mic's level/gate chain over its captured frame
// in inputs (mono, length nframes each, indexed the same as Mic()), sums
// panned/unpanned contributions into out, and returns the ducking amount:
// the largest DuckSend among mics whose gate reports the block active.
// Mono mics with no captured frame this block (len(inputs[i])==0) are
// skipped: they contribute nothing to out or to the ducking amount, and
// their gate and level state do not advance.
func (b *Bank) ProcessBlock(inputs [][]float32, out *Contributions) (duckAmount float64) {
	out.zero()
	for i, m := range b.mics {
		if i >= len(inputs) || len(inputs[i]) == 0 {
			continue
		}
		frame := inputs[i]
		gateOpen := m.process(frame)
		if gateOpen && m.DuckSend > duckAmount {
			duckAmount = m.DuckSend
		}

		l, r := panGains(m.Pan)
		switch m.Role {
		case RoleAux:
			for j, s := range frame {
				out.AuxL[j] += s * float32(l)
				out.AuxR[j] += s * float32(r)
			}
		case RoleMonitorOnly:
			for j, s := range frame {
				out.MonitorUnpanned[j] += s
				out.MonitorUnpannedDJ[j] += s
			}
		default: // RoleMain
			for j, s := range frame {
				out.MainL[j] += s * float32(l)
				out.MainR[j] += s * float32(r)
				out.MonitorUnpanned[j] += s
				out.MonitorUnpannedDJ[j] += s
			}
		}
	}
	return duckAmount
}

// panGains converts a -1..1 pan position to linear left/right gains, unity
// on both sides at centre.
func panGains(pan float64) (l, r float64) {
	if pan < -1 {
		pan = -1
	}
	if pan > 1 {
		pan = 1
	}
	// 0 -> (1,1) center (spec's mics sum directly into L/R, not constant
	// power center-attenuated, so center is unity both sides).
	l = 1.0
	r = 1.0
	if pan > 0 {
		l = 1.0 - pan
	} else if pan < 0 {
		r = 1.0 + pan
	}
	return l, r
}
