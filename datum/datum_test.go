package datum_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bdodson/shptrans/datum"
)

func TestLookupKnownDatums(t *testing.T) {
	sph, err := datum.Lookup(datum.NAD83)
	require.NoError(t, err)
	assert.Equal(t, 6378137.0, sph.A)

	_, err = datum.Lookup(datum.NAD27)
	require.NoError(t, err)
	_, err = datum.Lookup(datum.ATS77)
	require.NoError(t, err)
}

func TestLookupUnrecognizedDatum(t *testing.T) {
	_, err := datum.Lookup("wgs84")
	assert.Error(t, err)
}

func TestRouteSameDatumIsEmpty(t *testing.T) {
	steps, err := datum.Route(datum.NAD83, datum.NAD83)
	require.NoError(t, err)
	assert.Empty(t, steps)
}

func TestRouteDirectLinkForward(t *testing.T) {
	steps, err := datum.Route(datum.NAD27, datum.NAD83)
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, datum.NAD27, steps[0].From)
	assert.Equal(t, datum.NAD83, steps[0].To)
	assert.False(t, steps[0].Reverse)
}

func TestRouteDirectLinkReversed(t *testing.T) {
	steps, err := datum.Route(datum.NAD83, datum.NAD27)
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, datum.NAD27, steps[0].From)
	assert.Equal(t, datum.NAD83, steps[0].To)
	assert.True(t, steps[0].Reverse)
}

func TestRouteATS77DirectLink(t *testing.T) {
	steps, err := datum.Route(datum.ATS77, datum.NAD83)
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.False(t, steps[0].Reverse)
}

func TestRouteComposedThroughPivot(t *testing.T) {
	steps, err := datum.Route(datum.ATS77, datum.NAD27)
	require.NoError(t, err)
	require.Len(t, steps, 2)

	assert.Equal(t, datum.ATS77, steps[0].From)
	assert.Equal(t, datum.NAD83, steps[0].To)
	assert.False(t, steps[0].Reverse)

	assert.Equal(t, datum.NAD27, steps[1].From)
	assert.Equal(t, datum.NAD83, steps[1].To)
	assert.True(t, steps[1].Reverse)
}

func TestRouteNoLinkFromPivot(t *testing.T) {
	_, err := datum.Route(datum.NAD83, "bogus")
	assert.Error(t, err)
}
