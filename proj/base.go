// Package proj implements the two map-projection kernels this system
// supports — Transverse Mercator and Double Stereographic — plus the
// identity (Null) projection, behind a common Projection contract.
package proj

import "math"

// Class distinguishes the kinds of error a projection operation can
// report, mirroring the narrow error taxonomy a projection kernel needs:
// success, coordinate out of range, invalid spheroid, invalid parameter,
// non-convergent calculation, and calls made out of sequence.
type Class int

const (
	ClassNone Class = iota
	ClassCoordRange
	ClassSpheroid
	ClassParameter
	ClassCalculation
	ClassSequence
)

// Error is the error type every projection operation returns.
type Error struct {
	Class Class
	Msg   string
}

func (e *Error) Error() string { return e.Msg }

func errSpheroid(msg string) *Error    { return &Error{Class: ClassSpheroid, Msg: msg} }
func errParameter(msg string) *Error   { return &Error{Class: ClassParameter, Msg: msg} }
func errCalculation(msg string) *Error { return &Error{Class: ClassCalculation, Msg: msg} }

// DefaultEpsilon is the Newton-iteration convergence tolerance at
// default precision; HighPrecisionDivisor scales it down for the
// high-precision mode shared by every iterative solve in this package.
const (
	DefaultEpsilon       = 2.0e-12
	HighPrecisionDivisor = 1.0e5

	DefaultMaxIter = 100
	HighMaxIter     = 1000
)

// Projection is the common contract every projection kernel satisfies.
// FromLatLong and ToLatLong transform pairs of (lon, lat) degrees
// in place; buf holds len(buf)/2 such pairs.
type Projection interface {
	SetSpheroid(a, f float64) error
	SetScaleFactor(k0 float64) error
	SetFalseOffsets(x0, y0 float64) error
	FromLatLong(buf []float64) error
	ToLatLong(buf []float64) error
}

// Base holds the spheroid/scale/offset state shared by every
// projection kernel, plus the derived eccentricity values every
// forward/inverse formula consumes.
type Base struct {
	a, f   float64
	e2, e  float64
	k0     float64
	x0, y0 float64

	// HighPrecision toggles the tighter convergence tolerance and
	// higher iteration cap on every iterative solve in this package.
	// It mirrors a single process-wide flag in the source material,
	// but here it is plain per-projection state, set by the session
	// that owns this projection (see the root package's Session).
	HighPrecision bool
}

// NewBase returns a Base with the default scale factor of 1.
func NewBase() Base {
	return Base{k0: 1}
}

func (b *Base) A() float64         { return b.a }
func (b *Base) F() float64         { return b.f }
func (b *Base) E2() float64        { return b.e2 }
func (b *Base) E() float64         { return b.e }
func (b *Base) K0() float64        { return b.k0 }
func (b *Base) FalseOffsets() (x0, y0 float64) { return b.x0, b.y0 }

// setSpheroid validates and stores a/f, returning whether the value
// actually changed (callers use this to decide whether to recompute
// their cached coefficients).
func (b *Base) setSpheroid(a, f float64) (changed bool, err error) {
	if a <= 0 || f <= 0 {
		return false, errSpheroid("proj: spheroid axis and flattening must be positive")
	}
	if a == b.a && f == b.f {
		return false, nil
	}
	b.a = a
	b.f = f
	minor := a * (1 - f)
	b.e2 = (a*a - minor*minor) / (a * a)
	b.e = math.Sqrt(b.e2)
	return true, nil
}

func (b *Base) setScaleFactor(k0 float64) error {
	if k0 <= 0.0001 || k0 > 10000 {
		return errParameter("proj: scale factor out of range")
	}
	b.k0 = k0
	return nil
}

func (b *Base) setFalseOffsets(x0, y0 float64) {
	b.x0 = x0
	b.y0 = y0
}

// SetHighPrecision toggles the tighter tolerance and higher iteration
// cap used by every iterative solve in this package.
func (b *Base) SetHighPrecision(v bool) { b.HighPrecision = v }

// epsilon returns the convergence tolerance for the current precision mode.
func (b *Base) epsilon() float64 {
	if b.HighPrecision {
		return DefaultEpsilon / HighPrecisionDivisor
	}
	return DefaultEpsilon
}

func (b *Base) maxIter() int {
	if b.HighPrecision {
		return HighMaxIter
	}
	return DefaultMaxIter
}
