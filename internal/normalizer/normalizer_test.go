package normalizer

import "testing"

func TestInactivePassesThrough(t *testing.T) {
	n := New(44100)
	l, r := n.Process(0.1, -0.1)
	if l != 0.1 || r != -0.1 {
		t.Errorf("inactive normalizer modified signal: got %f %f", l, r)
	}
}

func TestBoostStaysWithinCeiling(t *testing.T) {
	n := New(44100)
	n.SetStats(Stats{MaxLevel: -12, Rise: 0.01, Fall: 2.0, Ceiling: 12, Active: true})
	for i := 0; i < 100000; i++ {
		n.Process(0.001, 0.001)
	}
	if n.Level() > 12.0+1e-9 {
		t.Errorf("level exceeded ceiling: %f", n.Level())
	}
}

func TestLoudSignalPullsLevelDown(t *testing.T) {
	n := New(44100)
	n.SetStats(Stats{MaxLevel: -12, Rise: 0.01, Fall: 0.01, Ceiling: 12, Active: true})
	for i := 0; i < 50000; i++ {
		n.Process(0.001, 0.001)
	}
	boosted := n.Level()
	for i := 0; i < 50000; i++ {
		n.Process(0.9, 0.9)
	}
	if n.Level() >= boosted {
		t.Errorf("level did not fall back for a loud signal: before=%f after=%f", boosted, n.Level())
	}
}

func TestSetStatsPreservesLevel(t *testing.T) {
	n := New(44100)
	n.SetStats(Stats{MaxLevel: -12, Rise: 0.01, Fall: 2.0, Ceiling: 12, Active: true})
	for i := 0; i < 1000; i++ {
		n.Process(0.001, 0.001)
	}
	before := n.Level()
	n.SetStats(Stats{MaxLevel: -6, Rise: 1, Fall: 1, Ceiling: 12, Active: true})
	if n.Level() != before {
		t.Errorf("SetStats disturbed running level: before=%f after=%f", before, n.Level())
	}
}
