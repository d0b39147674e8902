package mix

import (
	"math"
	"testing"

	"mixengine/internal/control"
	"mixengine/internal/player"
)

const testSR = 44100

func newTestKernel(t *testing.T) *Kernel {
	t.Helper()
	return New(testSR, 2, player.NewSilenceFactory())
}

func newBuses(n int) *Buses {
	mk := func() []float32 { return make([]float32, n) }
	return &Buses{
		StreamL: mk(), StreamR: mk(),
		MonitorL: mk(), MonitorR: mk(),
		VoipOutL: mk(), VoipOutR: mk(),
		DSPOutL: mk(), DSPOutR: mk(),
	}
}

func zeros(n int) []float32 { return make([]float32, n) }

// TestSilentStartupProducesSilence mirrors spec.md §8 scenario S1: with
// nothing playing and default targets, the stream bus stays at zero.
func TestSilentStartupProducesSilence(t *testing.T) {
	k := newTestKernel(t)
	n := 256
	out := newBuses(n)
	micIn := [][]float32{zeros(n), zeros(n)}

	k.Process(n, zeros(n), zeros(n), zeros(n), zeros(n), micIn, out)

	for i := 0; i < n; i++ {
		if out.StreamL[i] != 0 || out.StreamR[i] != 0 {
			t.Fatalf("sample %d: stream = (%f,%f), want silence", i, out.StreamL[i], out.StreamR[i])
		}
	}
}

// TestSimpleMixerGatesOnLeftSwitches exercises spec.md §4.4's passthrough
// mode: stream/monitor copy the left player only when their respective
// switch is set, and VOIP/DSP are left untouched.
func TestSimpleMixerGatesOnLeftSwitches(t *testing.T) {
	k := newTestKernel(t)
	k.Targets().SetSimpleMixer(true)
	k.Targets().SetLeftStream(true)
	k.Targets().SetLeftAudio(false)

	n := 64
	out := newBuses(n)
	// Seed a nonzero DSP/VOIP output so we can prove simpleMixer left it
	// alone.
	out.VoipOutL[0] = 0.42
	out.DSPOutL[0] = 0.99

	if _, err := k.Left().Play("tone", 0); err != nil {
		t.Fatalf("Play: %v", err)
	}

	micIn := [][]float32{zeros(n), zeros(n)}
	k.Process(n, zeros(n), zeros(n), zeros(n), zeros(n), micIn, out)

	if out.MonitorL[0] != 0 || out.MonitorR[0] != 0 {
		t.Fatalf("monitor should be silent when left_audio is false, got (%f,%f)", out.MonitorL[0], out.MonitorR[0])
	}
	if out.VoipOutL[0] != 0.42 {
		t.Fatalf("simple mixer must leave VOIP untouched, got %f", out.VoipOutL[0])
	}
	if out.DSPOutL[0] != 0.99 {
		t.Fatalf("simple mixer must leave DSP untouched, got %f", out.DSPOutL[0])
	}
}

// TestAllocationDisciplineNoRealloc mirrors spec.md §8 invariant 9: calling
// Process twice with the same nframes must not resize the internal
// per-player buffers (observable here via pointer identity of the slot
// backing arrays).
func TestAllocationDisciplineNoRealloc(t *testing.T) {
	k := newTestKernel(t)
	n := 128
	out := newBuses(n)
	micIn := [][]float32{zeros(n), zeros(n)}

	k.Process(n, zeros(n), zeros(n), zeros(n), zeros(n), micIn, out)
	firstPtr := &k.left.outL[0]

	k.Process(n, zeros(n), zeros(n), zeros(n), zeros(n), micIn, out)
	secondPtr := &k.left.outL[0]

	if firstPtr != secondPtr {
		t.Fatal("per-player read buffers were reallocated for an unchanged nframes")
	}
}

// TestLivenessShutdownAfterTimeout exercises spec.md §4.1 step 1: without a
// RequestLevels poll, the engine requests shutdown once it exceeds the
// liveness timeout.
func TestLivenessShutdownAfterTimeout(t *testing.T) {
	k := newTestKernel(t)
	n := 32
	out := newBuses(n)
	micIn := [][]float32{zeros(n), zeros(n)}

	for i := 0; i < livenessTimeout+1; i++ {
		k.Process(n, zeros(n), zeros(n), zeros(n), zeros(n), micIn, out)
	}
	if !k.ShouldShutdown() {
		t.Fatal("expected shutdown to be requested after exceeding the liveness timeout")
	}
}

// TestRequestLevelsResetsLivenessAndTally checks that polling telemetry
// resets both the liveness counter and the RMS tally (spec.md §3, §4.1).
func TestRequestLevelsResetsLivenessAndTally(t *testing.T) {
	k := newTestKernel(t)
	n := 32
	out := newBuses(n)
	micIn := [][]float32{zeros(n), zeros(n)}

	for i := 0; i < 10; i++ {
		k.Process(n, zeros(n), zeros(n), zeros(n), zeros(n), micIn, out)
	}
	l, r := k.RequestLevels()
	if l != 0 || r != 0 {
		t.Fatalf("expected zero mean-square from silence, got (%f,%f)", l, r)
	}
	if k.liveness != 0 {
		t.Fatalf("liveness = %d, want 0 after RequestLevels", k.liveness)
	}
}

// TestMixerModeConstantsRoundTrip checks the mode selector stores and
// reports the value written, guarding against an accidental int/enum
// truncation bug in Targets.
func TestMixerModeConstantsRoundTrip(t *testing.T) {
	tg := control.NewTargets()
	for _, m := range []control.MixerMode{control.NoPhone, control.PhonePublic, control.PhonePrivate} {
		tg.SetMixerMode(m)
		if got := tg.MixerMode(); got != m {
			t.Fatalf("MixerMode() = %v, want %v", got, m)
		}
	}
}

// TestEffectiveDuckClampedByHeadroom checks spec.md §4.2's df = min(df,
// 10^(headroom/20)) clamp.
func TestEffectiveDuckClampedByHeadroom(t *testing.T) {
	k := newTestKernel(t)
	k.gains.DFMod = 2.0
	k.gains.HeadroomClampGain = 0.25
	if got := k.effectiveDuck(1.0); got > 0.25+1e-9 {
		t.Fatalf("effectiveDuck = %f, want clamped to <= 0.25", got)
	}
	k.gains.HeadroomClampGain = 10.0
	if got, want := k.effectiveDuck(0.5), 1.0; math.Abs(got-want) > 1e-9 {
		t.Fatalf("effectiveDuck = %f, want %f", got, want)
	}
}
