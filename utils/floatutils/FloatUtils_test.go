package floatutils

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r1"
)

func TestClip(t *testing.T) {
	tests := []struct {
		value, min, max, expected float64
	}{
		{0.5, 0.0, 1.0, 0.5},
		{-0.5, 0.0, 1.0, 0.0},
		{1.5, 0.0, 1.0, 1.0},
		{0.0, 0.0, 1.0, 0.0},
		{1.0, 0.0, 1.0, 1.0},
		{-12.0, -2.4, 2.4, -2.4},
	}

	for _, test := range tests {
		got := Clip(test.value, test.min, test.max)
		if got != test.expected {
			t.Errorf("clip(%v, %v, %v) = %v, expected %v", test.value,
				test.min, test.max, got, test.expected)
		}
	}
}

func TestClipInterval(t *testing.T) {
	interval := r1.Interval{Min: -0.07, Max: 0.07}
	if got := ClipInterval(0.1, interval); got != 0.07 {
		t.Errorf("clipInterval(0.1) = %v, expected 0.07", got)
	}
	if got := ClipInterval(-1.0, interval); got != -0.07 {
		t.Errorf("clipInterval(-1.0) = %v, expected -0.07", got)
	}
	if got := ClipInterval(0.03, interval); got != 0.03 {
		t.Errorf("clipInterval(0.03) = %v, expected 0.03", got)
	}
}

func TestArgMax(t *testing.T) {
	indices := ArgMax(1.0, 3.0, 2.0)
	if len(indices) != 1 || indices[0] != 1 {
		t.Errorf("argMax(1, 3, 2) = %v, expected [1]", indices)
	}

	// Ties return every maximizing index
	indices = ArgMax(3.0, 1.0, 3.0)
	if len(indices) != 2 || indices[0] != 0 || indices[1] != 2 {
		t.Errorf("argMax(3, 1, 3) = %v, expected [0 2]", indices)
	}
}

func TestMinMax(t *testing.T) {
	if got := Min(3.0, -1.0, 2.0); got != -1.0 {
		t.Errorf("min = %v, expected -1", got)
	}
	if got := Max(3.0, -1.0, 2.0); got != 3.0 {
		t.Errorf("max = %v, expected 3", got)
	}
}
