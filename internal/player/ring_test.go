package player

import "testing"

func TestWriteReadRoundTrip(t *testing.T) {
	rb := NewRing(8)
	l := []float32{1, 2, 3}
	r := []float32{-1, -2, -3}
	if n := rb.Write(l, r); n != 3 {
		t.Fatalf("Write = %d, want 3", n)
	}
	outL := make([]float32, 3)
	outR := make([]float32, 3)
	if n := rb.Read(outL, outR); n != 3 {
		t.Fatalf("Read = %d, want 3", n)
	}
	for i := range l {
		if outL[i] != l[i] || outR[i] != r[i] {
			t.Errorf("sample %d: got (%f,%f) want (%f,%f)", i, outL[i], outR[i], l[i], r[i])
		}
	}
}

func TestWriteStopsAtCapacity(t *testing.T) {
	rb := NewRing(4)
	l := make([]float32, 10)
	r := make([]float32, 10)
	if n := rb.Write(l, r); n != 4 {
		t.Errorf("Write over capacity = %d, want 4", n)
	}
}

func TestReadStopsAtAvail(t *testing.T) {
	rb := NewRing(8)
	rb.Write([]float32{1, 2}, []float32{1, 2})
	out := make([]float32, 5)
	outR := make([]float32, 5)
	if n := rb.Read(out, outR); n != 2 {
		t.Errorf("Read beyond avail = %d, want 2", n)
	}
}

func TestResetEmptiesRing(t *testing.T) {
	rb := NewRing(8)
	rb.Write([]float32{1, 2, 3}, []float32{1, 2, 3})
	rb.Reset()
	if rb.Avail() != 0 {
		t.Errorf("Avail after Reset = %d, want 0", rb.Avail())
	}
	if rb.Free() != 8 {
		t.Errorf("Free after Reset = %d, want 8", rb.Free())
	}
}
