package proj

import (
	"math"

	"github.com/bdodson/shptrans/internal/mathutil"
)

// DoubleStereographic is the ellipsoid → conformal-sphere → stereographic
// kernel used for the New Brunswick and PEI CRSes. "Double" refers to the
// two conformal mappings composed: ellipsoid to sphere, then sphere to
// plane.
type DoubleStereographic struct {
	Base

	lon0, lat0 float64 // radians

	// Recomputed by recompute() whenever the spheroid or origin changes.
	r, c1, c2            float64
	slon0, slat0         float64
	sinSlat0, cosSlat0   float64
}

// NewDoubleStereographic returns a kernel with the given origin, in degrees.
func NewDoubleStereographic(lon0Deg, lat0Deg float64) *DoubleStereographic {
	d := &DoubleStereographic{Base: NewBase()}
	d.lon0 = lon0Deg * math.Pi / 180
	d.lat0 = lat0Deg * math.Pi / 180
	return d
}

// NewBrunswickOrigin and PEIOrigin construct kernels at the two standard
// origins used by this system's CRS catalogue.
func NewBrunswickOrigin() *DoubleStereographic { return NewDoubleStereographic(-66.5, 46.5) }
func PEIOrigin() *DoubleStereographic          { return NewDoubleStereographic(-63.0, 47.25) }

func (d *DoubleStereographic) SetSpheroid(a, f float64) error {
	changed, err := d.setSpheroid(a, f)
	if err != nil {
		return err
	}
	if changed {
		d.recompute()
	}
	return nil
}

func (d *DoubleStereographic) SetScaleFactor(k0 float64) error {
	return d.setScaleFactor(k0)
}

func (d *DoubleStereographic) SetFalseOffsets(x0, y0 float64) error {
	d.setFalseOffsets(x0, y0)
	return nil
}

// SetOrigin changes lon0/lat0 (degrees) and forces a recompute, since the
// conformal-sphere parameters depend on the origin as well as the spheroid.
func (d *DoubleStereographic) SetOrigin(lon0Deg, lat0Deg float64) error {
	if lat0Deg <= -90 || lat0Deg >= 90 {
		return errParameter("proj: double stereographic origin latitude out of range")
	}
	d.lon0 = lon0Deg * math.Pi / 180
	d.lat0 = lat0Deg * math.Pi / 180
	if d.F() != 0 {
		d.recompute()
	}
	return nil
}

func (d *DoubleStereographic) recompute() {
	e2 := d.E2()
	e := d.E()
	a := d.A()

	sinLat0, cosLat0 := mathutil.SinCos(d.lat0)

	d.r = math.Sqrt(1-e2) * a / (1 - e2*mathutil.Square(sinLat0))
	d.c1 = math.Sqrt(1 + e2*mathutil.Square(cosLat0)*mathutil.Square(cosLat0)/(1-e2))
	d.slon0 = d.c1 * d.lon0
	d.sinSlat0 = sinLat0 / d.c1
	d.slat0 = math.Asin(d.sinSlat0)
	d.sinSlat0, d.cosSlat0 = mathutil.SinCos(d.slat0)

	num := math.Tan(math.Pi/4 + d.slat0/2)
	ratio := (1 - e*sinLat0) / (1 + e*sinLat0)
	den := math.Pow(math.Tan(math.Pi/4+d.lat0/2)*math.Pow(ratio, e/2), d.c1)
	d.c2 = num / den
}

// FromLatLong projects (lon, lat) degree pairs to (x, y) in place.
func (d *DoubleStereographic) FromLatLong(buf []float64) error {
	k0 := d.K0()
	x0, y0 := d.FalseOffsets()

	for i := 0; i+1 < len(buf); i += 2 {
		lon := buf[i] * math.Pi / 180
		lat := buf[i+1] * math.Pi / 180

		slat, slon := d.conformalLatLon(lat, lon)
		sinSlat, cosSlat := mathutil.SinCos(slat)
		dlon := slon - d.slon0
		sinDlon, cosDlon := mathutil.SinCos(dlon)

		denom := 1 + sinSlat*d.sinSlat0 + cosSlat*d.cosSlat0*cosDlon
		k := 2 * k0 * d.r / denom

		x := x0 + k*cosSlat*sinDlon
		y := y0 + k*(d.cosSlat0*sinSlat-d.sinSlat0*cosSlat*cosDlon)

		buf[i], buf[i+1] = x, y
	}
	return nil
}

// conformalLatLon maps an ellipsoidal (lat, lon) in radians onto the
// conformal sphere, returning (slat, slon) in radians.
func (d *DoubleStereographic) conformalLatLon(lat, lon float64) (slat, slon float64) {
	e := d.E()
	sinLat := math.Sin(lat)
	ratio := (1 - e*sinLat) / (1 + e*sinLat)
	w := d.c2 * math.Pow(math.Tan(math.Pi/4+lat/2)*math.Pow(ratio, e/2), d.c1)
	slat = 2*math.Atan(w) - math.Pi/2
	slon = d.c1 * lon
	return slat, slon
}

// ToLatLong inverts (x, y) pairs back to (lon, lat) degrees in place.
func (d *DoubleStereographic) ToLatLong(buf []float64) error {
	k0 := d.K0()
	x0, y0 := d.FalseOffsets()
	eps := d.epsilon()
	maxIter := d.maxIter()
	e2 := d.E2()
	e := d.E()

	for i := 0; i+1 < len(buf); i += 2 {
		dx := (buf[i] - x0) / k0
		dy := (buf[i+1] - y0) / k0

		s := math.Hypot(dx, dy)
		if s <= eps {
			buf[i] = d.lon0 * 180 / math.Pi
			buf[i+1] = d.lat0 * 180 / math.Pi
			continue
		}

		c := 2 * math.Atan2(s, 2*d.r)
		sinC, cosC := mathutil.SinCos(c)

		slat := math.Asin(cosC*d.sinSlat0 + dy*sinC*d.cosSlat0/s)
		slon := d.slon0 + math.Atan2(dx*sinC, s*d.cosSlat0*cosC-dy*d.sinSlat0*sinC)

		lon := slon / d.c1

		// Newton-iterate the ellipsoidal latitude via the isometric
		// latitude psi(phi) = ln(tan(pi/4+phi/2)) - e*atanh(e*sin(phi)),
		// whose derivative has the closed form (1-e^2)/(cos(phi)*(1-e^2 sin^2 phi)).
		targetPsi := (math.Log(math.Tan(math.Pi/4+slat/2)) - math.Log(d.c2)) / d.c1
		phi := slat
		for iter := 0; iter < maxIter; iter++ {
			sinPhi := math.Sin(phi)
			cosPhi := math.Cos(phi)
			psi := math.Log(math.Tan(math.Pi/4+phi/2)) - e*math.Atanh(e*sinPhi)
			dpsi := (1 - e2) / (cosPhi * (1 - e2*sinPhi*sinPhi))
			delta := (psi - targetPsi) / dpsi
			phi -= delta
			if math.Abs(delta) < eps {
				break
			}
		}

		buf[i] = lon * 180 / math.Pi
		buf[i+1] = phi * 180 / math.Pi
	}
	return nil
}
