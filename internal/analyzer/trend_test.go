package analyzer

import (
	"errors"
	"math"
	"testing"
)

func TestSlope(t *testing.T) {
	tests := []struct {
		name string
		ys   []float64
		want float64
	}{
		{"rising", []float64{10, 20, 30}, 10},
		{"falling", []float64{5, 4, 3}, -1},
		{"flat", []float64{7, 7, 7}, 0},
		{"two points", []float64{1, 4}, 3},
		{"noisy", []float64{1, 3, 2}, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Slope(tt.ys)
			if err != nil {
				t.Fatalf("Slope(%v) failed: %v", tt.ys, err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Slope(%v) = %v, want %v", tt.ys, got, tt.want)
			}
		})
	}
}

func TestSlope_Errors(t *testing.T) {
	if _, err := Slope([]float64{1}); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
	if _, err := Slope(nil); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData for nil series, got %v", err)
	}
	if _, err := Slope([]float64{1, math.Inf(1), 3}); err == nil {
		t.Error("expected error for non-finite value")
	}
}
