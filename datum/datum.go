// Package datum holds the spheroid constants for the supported geodetic
// datums and the NTv2 grid-file pairing needed to shift between them.
package datum

import "fmt"

// Spheroid is a reference ellipsoid: semi-major axis in meters and
// flattening.
type Spheroid struct {
	A float64
	F float64
}

// Datum names recognized on the command line.
const (
	NAD27 = "nad27"
	NAD83 = "nad83"
	ATS77 = "ats77"
)

// Spheroids maps each datum to its reference ellipsoid.
var Spheroids = map[string]Spheroid{
	NAD27: {A: 6378206.4, F: 1 / 294.978698199567},
	NAD83: {A: 6378137.0, F: 1 / 298.257222099653},
	ATS77: {A: 6378135.0, F: 1 / 298.257},
}

// Lookup returns the spheroid for a datum name, or an error if unrecognized.
func Lookup(name string) (Spheroid, error) {
	sph, ok := Spheroids[name]
	if !ok {
		return Spheroid{}, fmt.Errorf("datum: unrecognized datum %q", name)
	}
	return sph, nil
}

// Link describes one NTv2-shiftable pair of datums and which
// environment variable locates its grid file.
type Link struct {
	From, To string
	EnvVar   string
}

// Pivot is the datum every cross-datum shift not already direct routes
// through.
const Pivot = NAD83

// links enumerates the directly-shiftable datum pairs. ats77<->nad27
// has no direct grid file and is composed via Pivot.
var links = []Link{
	{From: NAD27, To: NAD83, EnvVar: "GRIDSHIFT_NTV2"},
	{From: ATS77, To: NAD83, EnvVar: "GRIDSHIFT_7783"},
}

// RouteStep is one hop of a datum route: a direct link, and whether the
// shift must be applied in the grid file's reverse direction.
type RouteStep struct {
	Link
	Reverse bool
}

// Route returns the chain of direct links needed to shift from one
// datum to another, in order. A same-datum request returns an empty
// chain. Each returned step's Reverse field reports whether the shift
// must be applied in the grid file's reverse direction.
func Route(from, to string) ([]RouteStep, error) {
	if from == to {
		return nil, nil
	}
	if step, ok := directStep(from, to); ok {
		return []RouteStep{step}, nil
	}
	if from == Pivot || to == Pivot {
		return nil, fmt.Errorf("datum: no NTv2 link between %q and %q", from, to)
	}
	first, ok := directStep(from, Pivot)
	if !ok {
		return nil, fmt.Errorf("datum: no NTv2 link between %q and %q", from, Pivot)
	}
	second, ok := directStep(Pivot, to)
	if !ok {
		return nil, fmt.Errorf("datum: no NTv2 link between %q and %q", Pivot, to)
	}
	return []RouteStep{first, second}, nil
}

func directStep(from, to string) (RouteStep, bool) {
	for _, l := range links {
		if l.From == from && l.To == to {
			return RouteStep{Link: l, Reverse: false}, true
		}
		if l.From == to && l.To == from {
			return RouteStep{Link: l, Reverse: true}, true
		}
	}
	return RouteStep{}, false
}
