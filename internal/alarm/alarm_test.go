package alarm

import (
	"math"
	"testing"
)

func TestTableSizeIsMultipleOf900(t *testing.T) {
	tbl := New(44100)
	if tbl.Size()%900 != 0 {
		t.Errorf("table size %d not a multiple of 900", tbl.Size())
	}
	if tbl.Size() > 44100 {
		t.Errorf("table size %d exceeds sample rate", tbl.Size())
	}
}

func TestTableFirstSample(t *testing.T) {
	tbl := New(44100)
	want := float32(harmonicAmp * math.Sin(harmonicPhase))
	if math.Abs(float64(tbl.At(0)-want)) > 1e-6 {
		t.Errorf("table[0] = %f, want %f", tbl.At(0), want)
	}
}

func TestPlayerDisarmsAfterOnePass(t *testing.T) {
	tbl := New(4500) // small table for a fast test
	p := NewPlayer(tbl)
	p.Arm()
	for i := 0; i < tbl.Size(); i++ {
		if !p.Armed() {
			t.Fatalf("disarmed early at sample %d", i)
		}
		p.Next()
	}
	if p.Armed() {
		t.Errorf("still armed after a full pass")
	}
	if got := p.Next(); got != 0 {
		t.Errorf("disarmed player produced nonzero sample: %f", got)
	}
}

func TestPlayerSilentUntilArmed(t *testing.T) {
	tbl := New(44100)
	p := NewPlayer(tbl)
	if got := p.Next(); got != 0 {
		t.Errorf("unarmed player produced nonzero sample: %f", got)
	}
}
