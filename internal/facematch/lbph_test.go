package facematch

import (
	"math"
	"testing"
)

func TestDescribe_CellsAreNormalized(t *testing.T) {
	h := Describe(sampleOf(t, noise(t, 100, 3)))

	if len(h) != lbphGridX*lbphGridY*lbphBins {
		t.Fatalf("unexpected histogram length %d", len(h))
	}
	for cell := range lbphGridX * lbphGridY {
		var sum float64
		for _, v := range h[cell*lbphBins : (cell+1)*lbphBins] {
			sum += v
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Fatalf("cell %d sums to %f, expected 1", cell, sum)
		}
	}
}

func TestDescribe_TooSmallSample(t *testing.T) {
	h := Describe(NewSample(5, 5))
	for _, v := range h {
		if v != 0 {
			t.Fatal("expected empty histogram for a sample smaller than the grid")
		}
	}
}

func TestChiSquare(t *testing.T) {
	stripes := Describe(sampleOf(t, horizontalStripes(t, 100)))
	other := Describe(sampleOf(t, verticalStripes(t, 100)))
	random := Describe(sampleOf(t, noise(t, 100, 7)))

	if d := ChiSquare(stripes, stripes); d != 0 {
		t.Errorf("expected self distance 0, got %f", d)
	}
	if d1, d2 := ChiSquare(stripes, other), ChiSquare(other, stripes); d1 != d2 {
		t.Errorf("expected symmetric distance, got %f and %f", d1, d2)
	}
	if d := ChiSquare(stripes, other); d <= 0 {
		t.Errorf("expected positive distance between different patterns, got %f", d)
	}
	if d := ChiSquare(stripes, random); d < 100 {
		t.Errorf("expected stripes and noise to be at least 100 apart, got %f", d)
	}
}

func TestChiSquare32_MatchesFloat64(t *testing.T) {
	a := Describe(sampleOf(t, noise(t, 100, 11)))
	b := Describe(sampleOf(t, horizontalStripes(t, 100)))

	want := ChiSquare(a, b)
	got := float64(chiSquare32(a.float32s(), b.float32s()))
	if math.Abs(want-got) > 1e-2 {
		t.Errorf("expected %f, got %f", want, got)
	}
}
