package similarity

import (
	"math"
	"testing"
)

const eps = 1e-6

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, -2}, []float32{-1, 2}, -1},
		{"scaled", []float32{1, 1}, []float32{5, 5}, 1},
		{"length mismatch", []float32{1, 0}, []float32{1, 0, 0}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
		{"both empty", nil, nil, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Cosine(tc.a, tc.b)
			if math.Abs(got-tc.want) > eps {
				t.Errorf("Cosine(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

func TestCosine_ExactZeroFallbacks(t *testing.T) {
	if got := Cosine([]float32{1}, []float32{1, 2}); got != 0.0 {
		t.Errorf("expected exactly 0 for mismatch, got %v", got)
	}
	if got := Cosine([]float32{0, 0, 0}, []float32{0, 0, 0}); got != 0.0 {
		t.Errorf("expected exactly 0 for zero vectors, got %v", got)
	}
}

func TestCosine_Deterministic(t *testing.T) {
	a := []float32{0.3, -0.7, 0.11}
	b := []float32{0.9, 0.2, -0.4}
	first := Cosine(a, b)
	for range 10 {
		if got := Cosine(a, b); got != first {
			t.Fatalf("non-deterministic result: %v vs %v", got, first)
		}
	}
}
