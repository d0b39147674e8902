package fade

import "testing"

func TestOffModeHoldsUnity(t *testing.T) {
	g := New(44100)
	for i := 0; i < 1000; i++ {
		if got := g.Tick(true); got != 1.0 {
			t.Fatalf("Off mode gain drifted: %f", got)
		}
	}
}

func TestFastModeDecaysToZero(t *testing.T) {
	g := New(44100)
	g.SetMode(Fast)
	g.Arm()
	for i := 0; i < 44100; i++ {
		g.Tick(true)
	}
	if !g.Done() {
		t.Errorf("Fast envelope did not reach zero after 1s: %f", g.Gain())
	}
}

func TestNotFadingHoldsGain(t *testing.T) {
	g := New(44100)
	g.SetMode(Slow)
	g.Arm()
	for i := 0; i < 1000; i++ {
		g.Tick(false)
	}
	if g.Gain() != 1.0 {
		t.Errorf("gain moved while fadeout flag was false: %f", g.Gain())
	}
}

func TestSlowDecaysSlowerThanFast(t *testing.T) {
	slow := New(44100)
	slow.SetMode(Slow)
	slow.Arm()
	fast := New(44100)
	fast.SetMode(Fast)
	fast.Arm()
	for i := 0; i < 4410; i++ {
		slow.Tick(true)
		fast.Tick(true)
	}
	if slow.Gain() <= fast.Gain() {
		t.Errorf("slow envelope decayed faster than fast: slow=%f fast=%f", slow.Gain(), fast.Gain())
	}
}
