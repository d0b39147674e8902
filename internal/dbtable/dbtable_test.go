package dbtable

import (
	"math"
	"testing"
)

func TestLevel2DBRoundTrip(t *testing.T) {
	for _, db := range []float64{-60, -20, -6, -0.05, 0} {
		level := DB2Level(db)
		got := Level2DB(level)
		if math.Abs(got-db) > 1e-6 {
			t.Errorf("round trip db=%f: got %f", db, got)
		}
	}
}

func TestLevel2DBFloor(t *testing.T) {
	if got := Level2DB(0); got != MinDB {
		t.Errorf("Level2DB(0) = %f, want %f", got, float64(MinDB))
	}
	if got := Level2DB(-1); got != MinDB {
		t.Errorf("Level2DB(-1) = %f, want %f", got, float64(MinDB))
	}
}

func TestPeakToLog(t *testing.T) {
	if got := PeakToLog(0); got != -127 {
		t.Errorf("PeakToLog(0) = %d, want -127", got)
	}
	if got := PeakToLog(1.0); got != 0 {
		t.Errorf("PeakToLog(1.0) = %d, want 0", got)
	}
	if got := PeakToLog(2.0); got != 0 {
		t.Errorf("PeakToLog(2.0) = %d, want 0", got)
	}
	half := PeakToLog(0.5)
	if half >= 0 || half < -127 {
		t.Errorf("PeakToLog(0.5) = %d, want in [-127, 0)", half)
	}
}
