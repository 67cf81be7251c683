package shptrans

import (
	"strconv"
	"strings"

	"github.com/bdodson/shptrans/datum"
	"github.com/bdodson/shptrans/ntv2"
	"github.com/bdodson/shptrans/proj"
	"github.com/bdodson/shptrans/units"
)

// CRSSpec is one side's CRS, as parsed from the "projection,datum[,units]"
// command-line form.
type CRSSpec struct {
	Projection string
	Datum      string
	Units      string // defaults to units.Default if empty

	// Overrides, zero value meaning "not set".
	OffsetX, OffsetY   float64
	HasOffset          bool
	Scale              float64
	HasScale           bool
}

// ParseCRSSpec parses "projection,datum" or "projection,datum,units".
func ParseCRSSpec(s string) (CRSSpec, error) {
	parts := strings.Split(s, ",")
	if len(parts) < 2 || len(parts) > 3 {
		return CRSSpec{}, newError(KindParameter, nil, "malformed CRS spec %q", s)
	}
	spec := CRSSpec{Projection: parts[0], Datum: parts[1]}
	if len(parts) == 3 {
		spec.Units = parts[2]
	}
	return spec, nil
}

// Route pairs a built projection with the datum and spheroid it was built
// for; the datum decides which grid shifts are needed to reach the common
// pivot (see OpenGridShifters).
type Route struct {
	Projection proj.Projection
	Datum      string
	Spheroid   datum.Spheroid
}

// BuildRoute constructs the projection object named by spec, configures
// its spheroid/scale/offsets/units, and returns it paired with the
// datum it was built for.
func BuildRoute(spec CRSSpec) (*Route, error) {
	sph, err := datum.Lookup(spec.Datum)
	if err != nil {
		return nil, newError(KindParameter, err, "resolving datum for CRS spec")
	}

	unitName := spec.Units
	if unitName == "" {
		unitName = units.Default
	}
	unitFactor, err := units.Lookup(unitName)
	if err != nil {
		return nil, newError(KindParameter, err, "resolving units for CRS spec")
	}

	p, defaultX0, defaultY0, defaultK0, isNull, err := newProjection(spec.Projection)
	if err != nil {
		return nil, err
	}

	if isNull {
		if spec.HasOffset || spec.HasScale || unitName != units.Default {
			return nil, newError(KindParameter, nil, "geo projection rejects unit/offset/scale overrides")
		}
	}

	if err := p.SetSpheroid(sph.A, sph.F); err != nil {
		return nil, newError(KindParameter, err, "setting spheroid for %q", spec.Projection)
	}

	k0 := defaultK0
	if spec.HasScale {
		k0 = spec.Scale
	}
	if unitFactor != 1 {
		k0 /= unitFactor
	}
	if err := p.SetScaleFactor(k0); err != nil {
		return nil, newError(KindParameter, err, "setting scale factor for %q", spec.Projection)
	}

	x0, y0 := defaultX0, defaultY0
	if spec.HasOffset {
		x0, y0 = spec.OffsetX, spec.OffsetY
	} else if unitFactor != 1 {
		x0 /= unitFactor
		y0 /= unitFactor
	}
	if err := p.SetFalseOffsets(x0, y0); err != nil {
		return nil, newError(KindParameter, err, "setting false offsets for %q", spec.Projection)
	}

	return &Route{Projection: p, Datum: spec.Datum, Spheroid: sph}, nil
}

// newProjection builds the projection object named by name (one of
// utm<zone>[s], mtm<zone>[q], tm<central_lon>, nbds, peids, geo) and its
// system-specific default false offsets and scale factor, before any
// user override is applied.
func newProjection(name string) (p proj.Projection, x0, y0, k0 float64, isNull bool, err error) {
	switch {
	case name == "geo":
		return proj.NewNull(), 0, 0, 1, true, nil

	case name == "nbds":
		return proj.NewBrunswickOrigin(), 2500000, 7500000, 0.999912, false, nil

	case name == "peids":
		return proj.PEIOrigin(), 2500000, 7500000, 0.999912, false, nil

	case strings.HasPrefix(name, "utm"):
		rest := strings.TrimPrefix(name, "utm")
		northern := true
		if strings.HasSuffix(rest, "s") {
			northern = false
			rest = strings.TrimSuffix(rest, "s")
		}
		zone, perr := strconv.Atoi(rest)
		if perr != nil || zone < 1 || zone > 60 {
			return nil, 0, 0, 0, false, newError(KindParameter, perr, "invalid UTM zone in %q", name)
		}
		t := proj.NewTransverseMercator(0)
		if perr := t.PrepareUTM(zone, northern); perr != nil {
			return nil, 0, 0, 0, false, newError(KindParameter, perr, "preparing UTM zone %d", zone)
		}
		y0 := 0.0
		if !northern {
			y0 = 10000000
		}
		return t, 500000, y0, 0.9996, false, nil

	case strings.HasPrefix(name, "mtm"):
		rest := strings.TrimPrefix(name, "mtm")
		atlantic := true
		if strings.HasSuffix(rest, "q") {
			atlantic = false
			rest = strings.TrimSuffix(rest, "q")
		}
		zone, perr := strconv.Atoi(rest)
		if perr != nil || zone < 1 || zone > 25 {
			return nil, 0, 0, 0, false, newError(KindParameter, perr, "invalid MTM zone in %q", name)
		}
		t := proj.NewTransverseMercator(0)
		if perr := t.PrepareMTM(zone, atlantic); perr != nil {
			return nil, 0, 0, 0, false, newError(KindParameter, perr, "preparing MTM zone %d", zone)
		}
		x0 := 304800.0
		if atlantic {
			x0 = 500000 + 1000000*float64(zone)
		}
		return t, x0, 0, 0.9999, false, nil

	case strings.HasPrefix(name, "tm"):
		lon0, perr := strconv.ParseFloat(strings.TrimPrefix(name, "tm"), 64)
		if perr != nil {
			return nil, 0, 0, 0, false, newError(KindParameter, perr, "invalid central meridian in %q", name)
		}
		return proj.NewTransverseMercator(lon0), 0, 0, 0.9999, false, nil

	default:
		return nil, 0, 0, 0, false, newError(KindParameter, nil, "unrecognized projection %q", name)
	}
}

// GridShifterSet opens the chain of NTv2 grid files needed to shift
// between two datums, per datum.Route. An empty chain (same datum on
// both sides) yields a nil shifter and no error.
type GridShifterSet struct {
	steps []*ntv2.GridShifter
	rev   []bool
}

// OpenGridShifters resolves the datum.Route between from and to and
// opens each hop's grid file, located via locate (typically an
// environment-variable-then-install-directory lookup supplied by the
// CLI collaborator).
func OpenGridShifters(from, to string, locate func(envVar string) (string, error)) (*GridShifterSet, error) {
	route, err := datum.Route(from, to)
	if err != nil {
		return nil, newError(KindGridFile, err, "resolving datum route %s -> %s", from, to)
	}
	if len(route) == 0 {
		return nil, nil
	}

	set := &GridShifterSet{}
	for _, step := range route {
		path, lerr := locate(step.EnvVar)
		if lerr != nil {
			set.Close()
			return nil, newError(KindGridFile, lerr, "locating grid file for %s", step.EnvVar)
		}
		// Grid files declare their datums in upper case (e.g. "NAD27").
		shifter, oerr := ntv2.OpenGridShifter(path, strings.ToUpper(step.From), strings.ToUpper(step.To))
		if oerr != nil {
			set.Close()
			return nil, newError(KindGridFile, oerr, "opening grid file %s", path)
		}
		set.steps = append(set.steps, shifter)
		set.rev = append(set.rev, step.Reverse)
	}
	return set, nil
}

// Forward applies every hop of the chain, in order, from-datum to to-datum.
func (s *GridShifterSet) Forward(buf []float64) ([]int, error) {
	if s == nil {
		return nil, nil
	}
	var allMisses []int
	for i, shifter := range s.steps {
		var misses []int
		var err error
		if s.rev[i] {
			err = shifter.Reverse(buf)
		} else {
			misses, err = shifter.Forward(buf)
		}
		if err != nil {
			return allMisses, err
		}
		allMisses = append(allMisses, misses...)
	}
	return allMisses, nil
}

// Reverse undoes Forward by walking the chain back to front with each
// hop's direction flipped.
func (s *GridShifterSet) Reverse(buf []float64) error {
	if s == nil {
		return nil
	}
	for i := len(s.steps) - 1; i >= 0; i-- {
		shifter := s.steps[i]
		var err error
		if s.rev[i] {
			_, err = shifter.Forward(buf)
		} else {
			err = shifter.Reverse(buf)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Close releases every hop's grid file.
func (s *GridShifterSet) Close() error {
	if s == nil {
		return nil
	}
	var first error
	for _, shifter := range s.steps {
		if err := shifter.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
