package proj

import (
	"math"

	"github.com/bdodson/shptrans/internal/mathutil"
)

// TransverseMercator is the Transverse Mercator kernel (UTM and MTM are
// both parameterisations of it). Origin latitude is always zero; only
// the central meridian lon0 and the inherited scale/offset state vary.
type TransverseMercator struct {
	Base

	lon0 float64 // radians

	// Coefficients recomputed by recompute() whenever the spheroid changes.
	a0, a2, a4, a6, a8 float64
	e1, e1sq           float64
}

// NewTransverseMercator returns a kernel centred on the given central
// meridian, in degrees.
func NewTransverseMercator(lon0Deg float64) *TransverseMercator {
	t := &TransverseMercator{Base: NewBase()}
	t.lon0 = lon0Deg * math.Pi / 180
	return t
}

func (t *TransverseMercator) SetSpheroid(a, f float64) error {
	changed, err := t.setSpheroid(a, f)
	if err != nil {
		return err
	}
	if changed {
		t.recompute()
	}
	return nil
}

func (t *TransverseMercator) SetScaleFactor(k0 float64) error {
	return t.setScaleFactor(k0)
}

func (t *TransverseMercator) SetFalseOffsets(x0, y0 float64) error {
	t.setFalseOffsets(x0, y0)
	return nil
}

// recompute derives the truncated meridional-arc series coefficients
// (through the 8th power of eccentricity) and the footpoint-latitude
// series parameters e1/e1sq, following the USGS Bulletin 1532 series as
// popularised by Chuck Gantz's UTM converter.
func (t *TransverseMercator) recompute() {
	e2 := t.E2()
	e4 := e2 * e2
	e6 := e4 * e2
	e8 := e4 * e4

	t.a0 = 1 - e2/4 - 3*e4/64 - 5*e6/256 - 175*e8/16384
	t.a2 = (3.0 / 8) * (e2 + e4/4 + 15*e6/128 - 455*e8/4096)
	t.a4 = (15.0 / 256) * (e4 + 3*e6/4 - 77*e8/128)
	t.a6 = (35.0 / 3072) * (e6 - 41*e8/32)
	t.a8 = (315.0 / 131072) * e8

	sqrt1e2 := math.Sqrt(1 - e2)
	t.e1 = (1 - sqrt1e2) / (1 + sqrt1e2)
	t.e1sq = e2 / (1 - e2)
}

// meridianArc returns a*M(phi), the meridional distance from the
// equator to phi, for the current spheroid.
func (t *TransverseMercator) meridianArc(phi float64) float64 {
	return t.A() * (t.a0*phi - t.a2*math.Sin(2*phi) + t.a4*math.Sin(4*phi) -
		t.a6*math.Sin(6*phi) + t.a8*math.Sin(8*phi))
}

// FromLatLong projects (lon, lat) degree pairs to (x, y) in place.
func (t *TransverseMercator) FromLatLong(buf []float64) error {
	e2 := t.E2()
	a := t.A()
	k0 := t.K0()
	x0, y0 := t.FalseOffsets()

	for i := 0; i+1 < len(buf); i += 2 {
		lon := buf[i] * math.Pi / 180
		lat := buf[i+1] * math.Pi / 180

		sinLat, cosLat := mathutil.SinCos(lat)
		tanLat := sinLat / cosLat

		nu := a / math.Sqrt(1-e2*mathutil.Square(sinLat))
		tt := mathutil.Square(tanLat)
		cc := t.e1sq * mathutil.Square(cosLat)
		aa := cosLat * (lon - t.lon0)
		m := t.meridianArc(lat)

		aa2 := aa * aa
		aa3 := aa2 * aa
		aa4 := aa3 * aa
		aa5 := aa4 * aa
		aa6 := aa5 * aa

		x := k0*nu*(aa+(1-tt+cc)*aa3/6+
			(5-18*tt+tt*tt+72*cc-58*t.e1sq)*aa5/120) + x0
		y := k0*(m+nu*tanLat*(aa2/2+(5-tt+9*cc+4*cc*cc)*aa4/24+
			(61-58*tt+tt*tt+600*cc-330*t.e1sq)*aa6/720)) + y0

		buf[i], buf[i+1] = x, y
	}
	return nil
}

// ToLatLong inverts (x, y) pairs back to (lon, lat) degrees in place.
func (t *TransverseMercator) ToLatLong(buf []float64) error {
	e2 := t.E2()
	a := t.A()
	k0 := t.K0()
	x0, y0 := t.FalseOffsets()
	eps := t.epsilon()
	maxIter := t.maxIter()

	for i := 0; i+1 < len(buf); i += 2 {
		x := buf[i] - x0
		y := buf[i+1] - y0

		mu := y / (k0 * a * t.a0)

		// Chuck-Gantz footpoint-latitude seed.
		phi := mu +
			(3*t.e1/2-27*mathutil.Square(t.e1)*t.e1/32)*math.Sin(2*mu) +
			(21*mathutil.Square(t.e1)/16-55*mathutil.Square(t.e1)*mathutil.Square(t.e1)/32)*math.Sin(4*mu) +
			(151*mathutil.Square(t.e1)*t.e1/96)*math.Sin(6*mu) +
			(1097*mathutil.Square(t.e1)*mathutil.Square(t.e1)/512)*math.Sin(8*mu)

		target := y / k0
		for iter := 0; iter < maxIter; iter++ {
			fe := t.a0*phi - t.a2*math.Sin(2*phi) + t.a4*math.Sin(4*phi) -
				t.a6*math.Sin(6*phi) + t.a8*math.Sin(8*phi) - target/a
			fpe := t.a0 - 2*t.a2*math.Cos(2*phi) + 4*t.a4*math.Cos(4*phi) -
				6*t.a6*math.Cos(6*phi) + 8*t.a8*math.Cos(8*phi)
			delta := fe / fpe
			phi -= delta
			if math.Abs(delta) < eps {
				break
			}
		}

		sinPhi, cosPhi := mathutil.SinCos(phi)
		tanPhi := sinPhi / cosPhi

		nu1 := a / math.Sqrt(1-e2*mathutil.Square(sinPhi))
		t1 := mathutil.Square(tanPhi)
		c1 := t.e1sq * mathutil.Square(cosPhi)
		r1 := a * (1 - e2) / math.Pow(1-e2*mathutil.Square(sinPhi), 1.5)
		d := x / (nu1 * k0)

		d2 := d * d
		d3 := d2 * d
		d4 := d3 * d
		d5 := d4 * d
		d6 := d5 * d

		lat := phi - (nu1*tanPhi/r1)*(d2/2-
			(5+3*t1+10*c1-4*c1*c1-9*t.e1sq)*d4/24+
			(61+90*t1+298*c1+45*t1*t1-252*t.e1sq-3*c1*c1)*d6/720)
		lon := t.lon0 + (d-(1+2*t1+c1)*d3/6+
			(5-2*c1+28*t1-3*c1*c1+8*t.e1sq+24*t1*t1)*d5/120)/cosPhi

		buf[i] = lon * 180 / math.Pi
		buf[i+1] = lat * 180 / math.Pi
	}
	return nil
}

// PrepareUTM configures this kernel as the standard UTM projection for
// the given zone (1..60), northern or southern hemisphere.
func (t *TransverseMercator) PrepareUTM(zone int, northern bool) error {
	if zone < 1 || zone > 60 {
		return errParameter("proj: UTM zone out of range [1,60]")
	}
	t.lon0 = (float64((zone-1)*6-180+3)) * math.Pi / 180
	if err := t.setScaleFactor(0.9996); err != nil {
		return err
	}
	y0 := 0.0
	if !northern {
		y0 = 10000000
	}
	t.setFalseOffsets(500000, y0)
	return nil
}

// PrepareMTM configures this kernel as the Modified Transverse Mercator
// projection for the given zone (1..25). atlantic selects the Maritimes
// false-easting convention (500000 + 1000000*zone) instead of the
// generic 304800 (1,000,000 feet) offset.
func (t *TransverseMercator) PrepareMTM(zone int, atlantic bool) error {
	if zone < 1 || zone > 25 {
		return errParameter("proj: MTM zone out of range [1,25]")
	}
	t.lon0 = -(float64(zone)*3 + 49.5) * math.Pi / 180
	if err := t.setScaleFactor(0.9999); err != nil {
		return err
	}
	x0 := 304800.0
	if atlantic {
		x0 = 500000 + 1000000*float64(zone)
	}
	t.setFalseOffsets(x0, 0)
	return nil
}
