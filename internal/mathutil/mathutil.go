// Package mathutil collects the handful of scalar helpers the projection
// kernels lean on repeatedly enough to name.
package mathutil

import "math"

// Square returns n*n.
func Square(n float64) float64 {
	return n * n
}

// SinCos returns sin(theta) and cos(theta) together. Go's math.Sincos
// already computes both from one argument reduction, so there is no
// separate fast path to hand-roll here.
func SinCos(theta float64) (sin, cos float64) {
	return math.Sincos(theta)
}
