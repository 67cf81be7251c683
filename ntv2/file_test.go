package ntv2_test

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bdodson/shptrans/ntv2"
)

func label8(s string) [8]byte {
	var b [8]byte
	copy(b[:], s)
	for i := len(s); i < 8; i++ {
		b[i] = ' '
	}
	return b
}

func intValue(v int32) [8]byte {
	var b [8]byte
	binary.LittleEndian.PutUint32(b[0:4], uint32(v))
	return b
}

func stringValue(s string) [8]byte {
	var b [8]byte
	copy(b[:], s)
	for i := len(s); i < 8; i++ {
		b[i] = ' '
	}
	return b
}

func doubleValue(v float64) [8]byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
	return b
}

func writeRecord(buf *bytes.Buffer, label string, value [8]byte) {
	lbl := label8(label)
	buf.Write(lbl[:])
	buf.Write(value[:])
}

// buildSingleSubGridFile constructs a minimal, well-formed NTv2 file with
// one sub-grid covering [0,3600] arc-seconds in both lat and lon, 2x2
// cells, and the four corner shifts (south-west, south-east, north-west,
// north-east, in that file order) given in buf.
func buildSingleSubGridFile(t *testing.T, sw, se, nw, ne [2]float32) string {
	t.Helper()

	var buf bytes.Buffer

	writeRecord(&buf, "NUM_OREC", intValue(11))
	writeRecord(&buf, "NUM_SREC", intValue(11))
	writeRecord(&buf, "NUM_FILE", intValue(1))
	writeRecord(&buf, "GS_TYPE", stringValue("SECONDS"))
	writeRecord(&buf, "VERSION", stringValue("NTv2.0"))
	writeRecord(&buf, "SYSTEM_F", stringValue("NAD27"))
	writeRecord(&buf, "SYSTEM_T", stringValue("NAD83"))
	writeRecord(&buf, "MAJOR_F", doubleValue(6378206.4))
	writeRecord(&buf, "MINOR_F", doubleValue(6356583.8))
	writeRecord(&buf, "MAJOR_T", doubleValue(6378137.0))
	writeRecord(&buf, "MINOR_T", doubleValue(6356752.314245))

	writeRecord(&buf, "SUB_NAME", stringValue("TEST"))
	writeRecord(&buf, "PARENT", stringValue("NONE"))
	writeRecord(&buf, "CREATED", stringValue("01012020"))
	writeRecord(&buf, "UPDATED", stringValue("01012020"))
	writeRecord(&buf, "S_LAT", doubleValue(0))
	writeRecord(&buf, "N_LAT", doubleValue(3600))
	writeRecord(&buf, "E_LONG", doubleValue(0))
	writeRecord(&buf, "W_LONG", doubleValue(3600))
	writeRecord(&buf, "LAT_INC", doubleValue(3600))
	writeRecord(&buf, "LONG_INC", doubleValue(3600))
	writeRecord(&buf, "GS_COUNT", intValue(4))

	writeDataRecord := func(lat, lon float32) {
		var rec [16]byte
		binary.LittleEndian.PutUint32(rec[0:4], math.Float32bits(lat))
		binary.LittleEndian.PutUint32(rec[4:8], math.Float32bits(lon))
		buf.Write(rec[:])
	}
	writeDataRecord(sw[0], sw[1])
	writeDataRecord(se[0], se[1])
	writeDataRecord(nw[0], nw[1])
	writeDataRecord(ne[0], ne[1])

	f, err := os.CreateTemp(t.TempDir(), "fixture-*.gsb")
	require.NoError(t, err)
	defer f.Close()
	_, err = f.Write(buf.Bytes())
	require.NoError(t, err)
	return f.Name()
}

func TestOpenParsesOverviewAndSubGrid(t *testing.T) {
	path := buildSingleSubGridFile(t,
		[2]float32{1, 2}, [2]float32{3, 4}, [2]float32{5, 6}, [2]float32{7, 8})

	f, err := ntv2.Open(path, "NAD27", "NAD83")
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, "NAD27", f.FromDatum)
	assert.Equal(t, "NAD83", f.ToDatum)
	require.Len(t, f.SubGrids, 1)
	assert.Equal(t, 2, f.SubGrids[0].NRows)
	assert.Equal(t, 2, f.SubGrids[0].NCols)
}

func TestOpenRejectsDatumMismatch(t *testing.T) {
	path := buildSingleSubGridFile(t,
		[2]float32{1, 2}, [2]float32{3, 4}, [2]float32{5, 6}, [2]float32{7, 8})

	_, err := ntv2.Open(path, "ats77", "nad83")
	assert.Error(t, err)
}

func TestEvalBilinearInterpolation(t *testing.T) {
	path := buildSingleSubGridFile(t,
		[2]float32{1, 2}, [2]float32{3, 4}, [2]float32{5, 6}, [2]float32{7, 8})

	f, err := ntv2.Open(path, "", "")
	require.NoError(t, err)
	defer f.Close()

	_, diflat, diflon, err := f.Eval(900, 900, ntv2.NoHint)
	require.NoError(t, err)
	assert.InDelta(t, 2.5, diflat, 1e-4)
	assert.InDelta(t, 3.5, diflon, 1e-4)
}

func TestEvalRejectsPointOutsideGrid(t *testing.T) {
	path := buildSingleSubGridFile(t,
		[2]float32{1, 2}, [2]float32{3, 4}, [2]float32{5, 6}, [2]float32{7, 8})

	f, err := ntv2.Open(path, "", "")
	require.NoError(t, err)
	defer f.Close()

	_, _, _, err = f.Eval(-100, -100, ntv2.NoHint)
	assert.Error(t, err)
}

func TestGridShifterForwardAndReverseRoundTrip(t *testing.T) {
	path := buildSingleSubGridFile(t,
		[2]float32{1, 2}, [2]float32{3, 4}, [2]float32{5, 6}, [2]float32{7, 8})

	fwd, err := ntv2.OpenGridShifter(path, "NAD27", "NAD83")
	require.NoError(t, err)
	defer fwd.Close()

	// (lon, lat) in degrees, positive east; the fixture's arc-second
	// bounds [0,3600] correspond to [0,1] degree, with longitude sign
	// flipped to positive west internally.
	buf := []float64{-0.25, 0.25}
	misses, err := fwd.Forward(buf)
	require.NoError(t, err)
	assert.Empty(t, misses)
	assert.NotEqual(t, -0.25, buf[0])
	assert.NotEqual(t, 0.25, buf[1])

	rev, err := ntv2.OpenGridShifter(path, "NAD27", "NAD83")
	require.NoError(t, err)
	defer rev.Close()

	require.NoError(t, rev.Reverse(buf))
	assert.InDelta(t, -0.25, buf[0], 1e-6)
	assert.InDelta(t, 0.25, buf[1], 1e-6)
}
