package graphicsstate

import "math"

// Matrix is a PDF transformation matrix [a b c d e f], which maps
// (x, y) to (a*x + c*y + e, b*x + d*y + f).
type Matrix [6]float64

// Identity returns the identity matrix.
func Identity() Matrix {
	return Matrix{1, 0, 0, 1, 0, 0}
}

// Translation returns a matrix that moves points by (tx, ty).
func Translation(tx, ty float64) Matrix {
	return Matrix{1, 0, 0, 1, tx, ty}
}

// Multiply returns m × n: the transform that applies m first, then n.
func (m Matrix) Multiply(n Matrix) Matrix {
	return Matrix{
		m[0]*n[0] + m[1]*n[2],
		m[0]*n[1] + m[1]*n[3],
		m[2]*n[0] + m[3]*n[2],
		m[2]*n[1] + m[3]*n[3],
		m[4]*n[0] + m[5]*n[2] + n[4],
		m[4]*n[1] + m[5]*n[3] + n[5],
	}
}

// Apply maps a point through m.
func (m Matrix) Apply(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

// ScaleY is the length of the transformed unit vector (0, 1). For a text
// rendering matrix it is the rendered font size.
func (m Matrix) ScaleY() float64 {
	return math.Hypot(m[2], m[3])
}

// ScaleX is the length of the transformed unit vector (1, 0).
func (m Matrix) ScaleX() float64 {
	return math.Hypot(m[0], m[1])
}
