package shptrans_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	shptrans "github.com/bdodson/shptrans"
	"github.com/bdodson/shptrans/datum"
)

func TestNewSessionDefaults(t *testing.T) {
	s := shptrans.NewSession()
	assert.False(t, s.HighPrecision())
	assert.False(t, s.Verbose())
	assert.False(t, s.Cancelled())
}

func TestSessionOptions(t *testing.T) {
	s := shptrans.NewSession(shptrans.WithHighPrecision(), shptrans.WithVerbose())
	assert.True(t, s.HighPrecision())
	assert.True(t, s.Verbose())
}

func TestSessionCancelDirect(t *testing.T) {
	s := shptrans.NewSession()
	require.False(t, s.Cancelled())
	s.Cancel()
	assert.True(t, s.Cancelled())
}

func TestSessionCancelViaContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := shptrans.NewSession(shptrans.WithContext(ctx))
	require.False(t, s.Cancelled())

	cancel()

	require.Eventually(t, s.Cancelled, time.Second, time.Millisecond)
}

func TestApplyPrecisionPropagatesToProjection(t *testing.T) {
	route, err := shptrans.BuildRoute(shptrans.CRSSpec{Projection: "utm17", Datum: datum.NAD83})
	require.NoError(t, err)

	s := shptrans.NewSession(shptrans.WithHighPrecision())
	s.ApplyPrecision(route, nil)

	pt := []float64{-80.5, 43.0}
	orig := append([]float64(nil), pt...)
	require.NoError(t, route.Projection.FromLatLong(pt))
	require.NoError(t, route.Projection.ToLatLong(pt))
	assert.InDelta(t, orig[0], pt[0], 1e-9)
	assert.InDelta(t, orig[1], pt[1], 1e-9)
}
