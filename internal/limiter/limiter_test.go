package limiter

import (
	"math"
	"testing"

	"mixengine/internal/dbtable"
)

func TestProcessNeverExceedsCeiling(t *testing.T) {
	lm := New(DefaultCeilingDB)
	ceiling := dbtable.DB2Level(DefaultCeilingDB)
	for i := 0; i < 10; i++ {
		l, r := lm.Process(2.0, -2.0)
		if math.Abs(l) > ceiling+1e-9 || math.Abs(r) > ceiling+1e-9 {
			t.Fatalf("sample %d exceeded ceiling: l=%f r=%f ceiling=%f", i, l, r, ceiling)
		}
	}
}

func TestConvergesWithinBound(t *testing.T) {
	lm := New(DefaultCeilingDB)
	ceiling := dbtable.DB2Level(DefaultCeilingDB)
	var l float64
	for i := 0; i < 4000; i++ {
		l, _ = lm.Process(1.5, 1.5)
	}
	if math.Abs(math.Abs(l)-ceiling) > ceiling*0.01+1e-6 {
		t.Errorf("peak after convergence = %f, want near ceiling %f", l, ceiling)
	}
}

func TestReleaseDoesNotOvershoot(t *testing.T) {
	lm := New(DefaultCeilingDB)
	for i := 0; i < 4000; i++ {
		lm.Process(1.5, 1.5)
	}
	for i := 0; i < 10000; i++ {
		lm.Process(0, 0)
	}
	if lm.Gain() > 1.0 {
		t.Errorf("gain overshot unity on release: %f", lm.Gain())
	}
}

func TestResetRestoresUnity(t *testing.T) {
	lm := New(DefaultCeilingDB)
	lm.Process(5, 5)
	lm.Reset()
	if lm.Gain() != 1.0 {
		t.Errorf("Gain after Reset = %f, want 1.0", lm.Gain())
	}
}
