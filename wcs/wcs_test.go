// Copyright 2026 The sospex Authors. All rights reserved.
// Use of this source code is governed by a MIT license that can be found in the LICENSE file.

package wcs

import (
	"testing"

	"github.com/SOFIAObservatory/sospex/fits"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cubeHeader() fits.Header {
	return fits.Header{
		"NAXIS":  3,
		"CTYPE1": "RA---TAN",
		"CTYPE2": "DEC--TAN",
		"CTYPE3": "WAVE",
		"CRPIX1": 8.0,
		"CRPIX2": 6.0,
		"CRPIX3": 1.0,
		"CRVAL1": 148.968,
		"CRVAL2": 69.6797,
		"CRVAL3": 157.7,
		"CDELT1": -0.001,
		"CDELT2": 0.001,
		"CDELT3": 0.002,
		"CUNIT3": "um",
	}
}

func TestCelestial(t *testing.T) {
	w, err := New(cubeHeader())
	require.NoError(t, err)
	assert.Equal(t, 3, w.Naxis())

	cel, err := w.Celestial()
	require.NoError(t, err)
	assert.Equal(t, 2, cel.Naxis())
	assert.Equal(t, []string{"RA---TAN", "DEC--TAN"}, cel.CTYPE)
	assert.Equal(t, []float64{148.968, 69.6797}, cel.CRVAL)
	assert.Equal(t, "TAN", cel.Projection())

	scales := cel.PixelScales()
	require.Len(t, scales, 2)
	assert.InDelta(t, 0.001, scales[0], 1e-15)
	assert.InDelta(t, 0.001, scales[1], 1e-15)
}

func TestCelestialSwappedAxes(t *testing.T) {
	h := fits.Header{
		"NAXIS":  3,
		"CTYPE1": "WAVE",
		"CTYPE2": "GLAT-CAR",
		"CTYPE3": "GLON-CAR",
		"CDELT2": 0.5,
		"CDELT3": 0.25,
	}
	w, err := New(h)
	require.NoError(t, err)
	cel, err := w.Celestial()
	require.NoError(t, err)
	assert.Equal(t, []string{"GLON-CAR", "GLAT-CAR"}, cel.CTYPE)
	assert.Equal(t, []float64{0.25, 0.5}, cel.PixelScales())
}

func TestCelestialMissing(t *testing.T) {
	w, err := New(fits.Header{"NAXIS": 1, "CTYPE1": "FREQ"})
	require.NoError(t, err)
	_, err = w.Celestial()
	assert.ErrorIs(t, err, ErrNoCelestial)

	_, err = New(fits.Header{"NAXIS": 0})
	assert.Error(t, err)
}

func TestAxisCountFromKeywords(t *testing.T) {
	// a header built around a 2D image can still declare a third axis
	h := cubeHeader()
	h["NAXIS"] = 2
	w, err := New(h)
	require.NoError(t, err)
	assert.Equal(t, 3, w.Naxis())

	h["WCSAXES"] = 2
	w, err = New(h)
	require.NoError(t, err)
	assert.Equal(t, 2, w.Naxis())
}

func TestCDMatrix(t *testing.T) {
	h := fits.Header{
		"NAXIS":  2,
		"CTYPE1": "RA---TAN",
		"CTYPE2": "DEC--TAN",
		"CD1_1":  -0.0003,
		"CD1_2":  0.0004,
		"CD2_1":  0.0004,
		"CD2_2":  0.0003,
		"CDELT1": 7.0, // ignored in presence of CD
	}
	w, err := New(h)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1}, w.CDELT)
	scales := w.PixelScales()
	assert.InDelta(t, 0.0005, scales[0], 1e-15)
	assert.InDelta(t, 0.0005, scales[1], 1e-15)
}

func TestPixelToWorld(t *testing.T) {
	w, err := New(fits.Header{
		"NAXIS":  2,
		"CTYPE1": "RA---TAN",
		"CTYPE2": "DEC--TAN",
		"CRPIX1": 5.0,
		"CRPIX2": 5.0,
		"CRVAL1": 10.0,
		"CRVAL2": 0.0,
		"CDELT1": -0.001,
		"CDELT2": 0.001,
	})
	require.NoError(t, err)

	// the reference pixel (1-based 5,5) maps onto CRVAL
	lon, lat, err := w.PixelToWorld(4, 4)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, lon, 1e-12)
	assert.InDelta(t, 0.0, lat, 1e-12)

	lon, lat, err = w.PixelToWorld(4, 5)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, lon, 1e-12)
	assert.InDelta(t, 0.001, lat, 1e-9)

	lon, lat, err = w.PixelToWorld(5, 4)
	require.NoError(t, err)
	assert.InDelta(t, 9.999, lon, 1e-9)
	assert.InDelta(t, 0.0, lat, 1e-9)
}

func TestPixelToWorldProjection(t *testing.T) {
	w, err := New(fits.Header{"NAXIS": 2, "CTYPE1": "RA---GLS", "CTYPE2": "DEC--GLS"})
	require.NoError(t, err)
	_, _, err = w.PixelToWorld(0, 0)
	assert.ErrorIs(t, err, ErrProjection)
}
