package ntv2

// defaultReverseIters and highPrecisionReverseIters bound the fixed-point
// iteration Reverse uses to invert the forward grid shift, which has no
// closed-form inverse.
const (
	defaultReverseIters      = 4
	highPrecisionReverseIters = 12
)

// GridShifter applies a forward or reverse NTv2 datum shift to batches of
// (lon, lat) points given in degrees, longitude positive east. It tracks
// a locator hint across calls within a batch to exploit the spatial
// locality of most shapefile geometry.
type GridShifter struct {
	file          *File
	hint          int
	HighPrecision bool
}

// OpenGridShifter opens the grid file at path and validates its declared
// from/to datum names, if non-empty.
func OpenGridShifter(path, fromDatum, toDatum string) (*GridShifter, error) {
	f, err := Open(path, fromDatum, toDatum)
	if err != nil {
		return nil, err
	}
	return &GridShifter{file: f, hint: NoHint}, nil
}

// Close releases the underlying grid file.
func (g *GridShifter) Close() error {
	return g.file.Close()
}

// FromDatum and ToDatum report the grid file's declared datum names.
func (g *GridShifter) FromDatum() string { return g.file.FromDatum }
func (g *GridShifter) ToDatum() string   { return g.file.ToDatum }

func toArcSec(lon, lat float64) (lonAS, latAS float64) {
	return -lon * 3600, lat * 3600
}

func fromArcSec(lonAS, latAS float64) (lon, lat float64) {
	return -lonAS / 3600, latAS / 3600
}

// Forward shifts buf's (lon, lat) degree pairs in place from the grid's
// from-datum to its to-datum. A point that falls outside every sub-grid
// is left unchanged and its index is reported in the returned slice; the
// hint is reset to NoHint so the next point starts a fresh search.
func (g *GridShifter) Forward(buf []float64) (misses []int, err error) {
	for i := 0; i+1 < len(buf); i += 2 {
		lonAS, latAS := toArcSec(buf[i], buf[i+1])
		sgIdx, diflat, diflon, ferr := g.file.Eval(lonAS, latAS, g.hint)
		if ferr != nil {
			misses = append(misses, i/2)
			g.hint = NoHint
			continue
		}
		g.hint = sgIdx
		lon, lat := fromArcSec(lonAS+diflon, latAS+diflat)
		buf[i], buf[i+1] = lon, lat
	}
	return misses, nil
}

// Reverse un-shifts buf's (lon, lat) degree pairs in place from the
// grid's to-datum back to its from-datum by fixed-point iteration on the
// forward shift, since the shift has no closed-form inverse. Unlike
// Forward, a lookup failure at any iteration aborts the whole batch: a
// partially-converged reverse shift is not a useful coordinate.
func (g *GridShifter) Reverse(buf []float64) error {
	n := defaultReverseIters
	if g.HighPrecision {
		n = highPrecisionReverseIters
	}

	for i := 0; i+1 < len(buf); i += 2 {
		targetLonAS, targetLatAS := toArcSec(buf[i], buf[i+1])
		guessLonAS, guessLatAS := targetLonAS, targetLatAS

		var sgIdx int
		for iter := 0; iter < n; iter++ {
			var diflat, diflon float64
			var err error
			sgIdx, diflat, diflon, err = g.file.Eval(guessLonAS, guessLatAS, g.hint)
			if err != nil {
				g.hint = NoHint
				return err
			}
			guessLonAS = targetLonAS - diflon
			guessLatAS = targetLatAS - diflat
		}
		g.hint = sgIdx

		outLon, outLat := fromArcSec(guessLonAS, guessLatAS)
		buf[i], buf[i+1] = outLon, outLat
	}
	return nil
}
