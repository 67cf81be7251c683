// Package units holds the meters-per-unit table used to fold a
// non-default linear unit into a projection's scale factor and false
// offsets.
package units

import "fmt"

// PerMeter maps a recognized unit name to the number of meters in one
// unit. Dividing a meters-based scale factor by this value rescales a
// projection into the chosen unit.
var PerMeter = map[string]float64{
	"meters": 1.0, "metres": 1.0, "m": 1.0,
	"centimeters": 0.01, "centimetres": 0.01, "cm": 0.01,
	"kilometers": 1000.0, "kilometres": 1000.0, "km": 1000.0,
	"feet": 0.3048, "ft": 0.3048,
	"yards": 0.9144, "yd": 0.9144,
	"miles": 1609.344, "mi": 1609.344,
	"inches": 0.0254, "in": 0.0254,
	"us_survey_feet": 1200.0 / 3937.0, "us_ft": 1200.0 / 3937.0,
	"fathoms": 1.8288,
}

// Lookup returns the meters-per-unit factor for name, or an error if
// unrecognized.
func Lookup(name string) (float64, error) {
	factor, ok := PerMeter[name]
	if !ok {
		return 0, fmt.Errorf("units: unrecognized unit %q", name)
	}
	return factor, nil
}

// Default is the unit assumed when a CRS spec doesn't name one.
const Default = "meters"
