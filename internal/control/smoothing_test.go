package control

import "testing"

func TestStepIsMonotoneAndConverges(t *testing.T) {
	cur := int32(0)
	target := int32(37)
	ticks := 0
	for cur != target && ticks < 1000 {
		next := step(cur, target)
		if next < cur {
			t.Fatalf("step decreased while approaching a higher target: %d -> %d", cur, next)
		}
		cur = next
		ticks++
	}
	if cur != target {
		t.Fatalf("did not converge to target within bound: got %d", cur)
	}
	if ticks > 37 {
		t.Errorf("took more than |T-C| ticks: %d", ticks)
	}
	// Further ticks must hold at target.
	if got := step(cur, target); got != target {
		t.Errorf("stepped past target: %d", got)
	}
}

func TestMuteButtonAttackReachesUnity(t *testing.T) {
	g := 0.0
	sr := 44100.0
	reachedOne := false
	for i := 0; i < int(sr*2); i++ {
		muteButton(&g, true, sr)
		if g < 0 || g > 1 {
			t.Fatalf("mute gain left [0,1]: %f at sample %d", g, i)
		}
		if g == 1.0 {
			reachedOne = true
			break
		}
	}
	if !reachedOne {
		t.Fatal("attack never reached 1.0 within a sample-rate-independent bound")
	}
}

func TestMuteButtonReleaseReachesZero(t *testing.T) {
	g := 1.0
	sr := 44100.0
	reachedZero := false
	for i := 0; i < int(sr*2); i++ {
		muteButton(&g, false, sr)
		if g < 0 || g > 1 {
			t.Fatalf("mute gain left [0,1]: %f at sample %d", g, i)
		}
		if g == 0.0 {
			reachedZero = true
			break
		}
	}
	if !reachedZero {
		t.Fatal("release never reached 0.0 within bound")
	}
}

func TestCrossfadePlateauIdentity(t *testing.T) {
	for v := int32(45); v <= 55; v++ {
		l, r := crossfadePlateau(v)
		if l != 1.0 || r != 1.0 {
			t.Errorf("plateau(%d) = (%f, %f), want (1,1)", v, l, r)
		}
	}
}

func TestCrossfadeExponentialEndpoints(t *testing.T) {
	l, r := crossfadeExponential(0)
	if l != 1 || r != 0 {
		t.Errorf("exponential(0) = (%f, %f), want (1,0)", l, r)
	}
	l, r = crossfadeExponential(100)
	if l != 0 || r != 1 {
		t.Errorf("exponential(100) = (%f, %f), want (0,1)", l, r)
	}
}

func TestCrossfadeBiasedLinearSymmetricAt50(t *testing.T) {
	l, r := crossfadeBiasedLinear(50)
	diff := l - r
	if diff < 0 {
		diff = -diff
	}
	if diff > 1e-9 {
		t.Errorf("biased linear at 50 not symmetric: L=%f R=%f", l, r)
	}
}

func TestSurfaceGainsStayFiniteAndNonNegative(t *testing.T) {
	s := NewSurface(44100)
	targets := NewTargets()
	targets.SetVolume(64)
	targets.SetVolume2(64)
	targets.SetCrossfade(50)
	targets.SetLeftStream(true)
	targets.SetRightAudio(true)
	for i := 0; i < 5000; i++ {
		g := s.Tick(targets, true, false, true)
		for _, v := range []float64{g.LeftStream, g.RightStream, g.LeftAudio, g.RightAudio, g.JinglesStream, g.InterludeStream, g.HeadroomClampGain} {
			if v < 0 {
				t.Fatalf("negative gain at tick %d: %f", i, v)
			}
		}
	}
}
