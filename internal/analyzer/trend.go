package analyzer

import (
	"errors"
	"math"
)

// ErrInsufficientData is returned by Slope for series too short to fit.
var ErrInsufficientData = errors.New("at least two points are required")

// Slope returns the least-squares slope of ys against their positions
// 0, 1, ..., len(ys)-1.
func Slope(ys []float64) (float64, error) {
	n := len(ys)
	if n < 2 {
		return 0, ErrInsufficientData
	}

	var sumY float64
	for _, y := range ys {
		if math.IsNaN(y) || math.IsInf(y, 0) {
			return 0, errors.New("series contains a non-finite value")
		}
		sumY += y
	}

	meanX := float64(n-1) / 2
	meanY := sumY / float64(n)

	var num, den float64
	for i, y := range ys {
		dx := float64(i) - meanX
		num += dx * (y - meanY)
		den += dx * dx
	}

	slope := num / den
	if math.IsNaN(slope) || math.IsInf(slope, 0) {
		return 0, errors.New("fit did not converge")
	}
	return slope, nil
}
