package proj

// Null is the identity projection, used for the "geo" CRS: coordinates
// already are geographic, so both directions are no-ops.
//
// A spheroid may still be attached to a Null projection for bookkeeping
// (the datum machinery above it expects every CRS to carry one), but it
// never participates in a calculation, so storing it never fails here —
// unlike a real kernel, Null has no cached coefficients that a bad
// spheroid could leave inconsistent.
type Null struct {
	Base
}

// NewNull returns a Null projection with default scale (1) and offsets (0,0).
func NewNull() *Null {
	return &Null{Base: NewBase()}
}

func (n *Null) SetSpheroid(a, f float64) error {
	_, _ = n.setSpheroid(a, f)
	return nil
}

// SetScaleFactor rejects any non-default scale: Null has no scale to apply.
func (n *Null) SetScaleFactor(k0 float64) error {
	if k0 != 1 {
		return errParameter("proj: null projection rejects a scale-factor override")
	}
	return n.setScaleFactor(k0)
}

// SetFalseOffsets rejects any non-zero offset for the same reason.
func (n *Null) SetFalseOffsets(x0, y0 float64) error {
	if x0 != 0 || y0 != 0 {
		return errParameter("proj: null projection rejects a false-offset override")
	}
	n.setFalseOffsets(x0, y0)
	return nil
}

func (n *Null) FromLatLong(buf []float64) error { return nil }
func (n *Null) ToLatLong(buf []float64) error   { return nil }
