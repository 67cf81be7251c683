package proj_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bdodson/shptrans/datum"
	"github.com/bdodson/shptrans/proj"
)

func TestDoubleStereographicOriginMapsToFalseOffsets(t *testing.T) {
	sph := datum.Spheroids[datum.NAD83]
	ds := proj.NewBrunswickOrigin()
	require.NoError(t, ds.SetSpheroid(sph.A, sph.F))
	require.NoError(t, ds.SetScaleFactor(0.999912))
	require.NoError(t, ds.SetFalseOffsets(2500000, 7500000))

	pt := []float64{-66.5, 46.5}
	require.NoError(t, ds.FromLatLong(pt))

	assert.InDelta(t, 2500000.0, pt[0], 1e-6)
	assert.InDelta(t, 7500000.0, pt[1], 1e-6)
}

func TestDoubleStereographicRoundTrip(t *testing.T) {
	sph := datum.Spheroids[datum.NAD83]
	ds := proj.NewBrunswickOrigin()
	require.NoError(t, ds.SetSpheroid(sph.A, sph.F))
	require.NoError(t, ds.SetScaleFactor(0.999912))
	require.NoError(t, ds.SetFalseOffsets(2500000, 7500000))

	pt := []float64{-65.0, 47.0}
	orig := append([]float64(nil), pt...)

	require.NoError(t, ds.FromLatLong(pt))
	require.NoError(t, ds.ToLatLong(pt))

	assert.InDelta(t, orig[0], pt[0], 1e-9)
	assert.InDelta(t, orig[1], pt[1], 1e-9)
}

func TestDoubleStereographicOriginInverseIsIdentity(t *testing.T) {
	sph := datum.Spheroids[datum.NAD83]
	ds := proj.PEIOrigin()
	require.NoError(t, ds.SetSpheroid(sph.A, sph.F))
	require.NoError(t, ds.SetScaleFactor(0.999912))
	require.NoError(t, ds.SetFalseOffsets(2500000, 7500000))

	pt := []float64{2500000, 7500000}
	require.NoError(t, ds.ToLatLong(pt))

	assert.InDelta(t, -63.0, pt[0], 1e-9)
	assert.InDelta(t, 47.25, pt[1], 1e-9)
}

func TestDoubleStereographicRejectsOriginAtPole(t *testing.T) {
	ds := proj.NewDoubleStereographic(0, 0)
	assert.Error(t, ds.SetOrigin(0, 90))
	assert.Error(t, ds.SetOrigin(0, -90))
}
