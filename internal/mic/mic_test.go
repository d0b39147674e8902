package mic

import "testing"

func tone(n int, amp float32) []float32 {
	f := make([]float32, n)
	for i := range f {
		if i%2 == 0 {
			f[i] = amp
		} else {
			f[i] = -amp
		}
	}
	return f
}

func TestBankProcessBlockMainRole(t *testing.T) {
	b := NewBank(1, 256)
	b.Mic(0).SetProcessors(nil, nil) // bypass DSP for a deterministic sum
	in := [][]float32{tone(256, 0.5)}
	out := NewContributions(256)
	b.ProcessBlock(in, out)
	for i := 0; i < 256; i++ {
		if out.MainL[i] != in[0][i] || out.MainR[i] != in[0][i] {
			t.Fatalf("sample %d: center-panned main mic should pass through unpanned", i)
		}
	}
}

func TestBankClosedMicIsSilent(t *testing.T) {
	b := NewBank(1, 64)
	b.Mic(0).SetProcessors(nil, nil)
	b.Mic(0).SetOpen(false)
	in := [][]float32{tone(64, 0.9)}
	out := NewContributions(64)
	b.ProcessBlock(in, out)
	for i := 0; i < 64; i++ {
		if out.MainL[i] != 0 {
			t.Fatalf("closed mic contributed sample %d = %f, want 0", i, out.MainL[i])
		}
	}
}

func TestBankRoleRouting(t *testing.T) {
	b := NewBank(2, 32)
	b.Mic(0).SetProcessors(nil, nil)
	b.Mic(1).SetProcessors(nil, nil)
	b.Mic(1).Role = RoleAux
	in := [][]float32{tone(32, 0.2), tone(32, 0.3)}
	out := NewContributions(32)
	b.ProcessBlock(in, out)
	if out.MainL[0] == 0 {
		t.Fatalf("main mic should contribute to MainL")
	}
	if out.AuxL[0] == 0 {
		t.Fatalf("aux mic should contribute to AuxL")
	}
	if out.AuxL[0] == out.MainL[0] {
		t.Fatalf("aux and main contributions should come from different mics")
	}
}

func TestBankDuckAmountFollowsOpenGate(t *testing.T) {
	b := NewBank(1, 64)
	b.Mic(0).DuckSend = 0.8
	loud := tone(64, 0.9)
	out := NewContributions(64)
	duck := b.ProcessBlock([][]float32{loud}, out)
	if duck != 0.8 {
		t.Fatalf("duck = %f, want 0.8 when gate is open", duck)
	}

	silence := make([]float32, 64)
	for i := 0; i < 200; i++ { // exhaust the hold period
		duck = b.ProcessBlock([][]float32{silence}, out)
	}
	if duck != 0 {
		t.Fatalf("duck = %f, want 0 once the gate closes", duck)
	}
}

func TestPanGainsCenterIsUnity(t *testing.T) {
	l, r := panGains(0)
	if l != 1 || r != 1 {
		t.Fatalf("center pan = (%f,%f), want (1,1)", l, r)
	}
}

func TestPanGainsHardLeftSilencesRight(t *testing.T) {
	l, r := panGains(-1)
	if l != 1 || r != 0 {
		t.Fatalf("hard-left pan = (%f,%f), want (1,0)", l, r)
	}
}

func TestLevelControlConvergesTowardTarget(t *testing.T) {
	lc := NewLevelControl()
	lc.SetTarget(-18)
	frame := tone(4410, 0.02) // quiet signal, should be boosted over time
	for i := 0; i < 50; i++ {
		f := make([]float32, len(frame))
		copy(f, frame)
		lc.Process(f)
	}
	if lc.Gain() <= 1.0 {
		t.Fatalf("gain = %f, want > 1.0 after boosting a quiet signal", lc.Gain())
	}
}

func TestAnyOpenReflectsMutes(t *testing.T) {
	b := NewBank(2, 16)
	b.Mic(0).SetOpen(false)
	b.Mic(1).SetOpen(false)
	if b.AnyOpen() {
		t.Fatalf("AnyOpen true with every mic closed")
	}
	b.Mic(1).SetOpen(true)
	if !b.AnyOpen() {
		t.Fatalf("AnyOpen false with one mic open")
	}
}
