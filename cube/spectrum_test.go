// Copyright 2026 The sospex Authors. All rights reserved.
// Use of this source code is governed by a MIT license that can be found in the LICENSE file.

package cube

import (
	"math"
	"testing"

	"github.com/astrogo/fitsio"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSpectrum(t *testing.T) {
	wave := []float64{1, 2, 3}
	s := NewSpectrum(wave, []float64{4, 5, 6})

	assert.Nil(t, s.EFlux)
	assert.Nil(t, s.UFlux)
	assert.Nil(t, s.Exposure)
	assert.Nil(t, s.Atran)
	assert.Nil(t, s.Instrument)
	assert.Nil(t, s.Baryshift)
	assert.Nil(t, s.Redshift)
	assert.Nil(t, s.L0)
	assert.Nil(t, s.Area)
	require.Len(t, s.Continuum, len(wave))
	for _, v := range s.Continuum {
		assert.True(t, math.IsNaN(v))
	}
}

func TestNewSpectrumOptions(t *testing.T) {
	s := NewSpectrum([]float64{1, 2}, []float64{3, 4},
		WithError([]float64{0.1, 0.2}),
		WithUncorrected([]float64{5, 6}),
		WithExposure([]float64{10, 10}),
		WithTransmission([]float64{0.9, 0.8}),
		WithInstrument(GREAT),
		WithBaryshift(1e-5),
		WithRedshift(0.002),
		WithRefWavelength(1.5),
		WithArea(4),
	)

	f := func(v float64) *float64 { return &v }
	inst := GREAT
	want := &Spectrum{
		Wave:       []float64{1, 2},
		Flux:       []float64{3, 4},
		EFlux:      []float64{0.1, 0.2},
		UFlux:      []float64{5, 6},
		Exposure:   []float64{10, 10},
		Atran:      []float64{0.9, 0.8},
		Instrument: &inst,
		Baryshift:  f(1e-5),
		Redshift:   f(0.002),
		L0:         f(1.5),
		Area:       f(4),
		Continuum:  []float64{math.NaN(), math.NaN()},
	}
	if diff := cmp.Diff(want, s, cmpopts.EquateNaNs()); diff != "" {
		t.Errorf("spectrum mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadExtSpectrum(t *testing.T) {
	closed := trackClose(t)
	path := writeFITS(t,
		block{cards: []fitsio.Card{card("REDSHIFT", 0.0025)}, axes: []int{1}, data: []float64{0}},
		block{name: "FLUX", axes: []int{4}, data: []float64{1, 2, 3, 4}},
		block{name: "WAVELENGTH", axes: []int{4}, data: []float64{50, 51, 52, 53}},
	)

	s, err := LoadExtSpectrum(path)
	require.NoError(t, err)
	assert.True(t, *closed)
	assert.Equal(t, []float64{1, 2, 3, 4}, s.Flux)
	assert.Equal(t, []float64{50, 51, 52, 53}, s.Wave)
	assert.InDelta(t, 0.0025, s.Redshift, 1e-15)
}

func TestLoadExtSpectrumWithoutRedshift(t *testing.T) {
	path := writeFITS(t,
		block{axes: []int{1}, data: []float64{0}},
		block{name: "WAVELENGTH", axes: []int{2}, data: []float64{50, 51}},
		block{name: "FLUX", axes: []int{2}, data: []float64{1, 2}},
	)
	s, err := LoadExtSpectrum(path)
	require.NoError(t, err)
	assert.Equal(t, 0.0, s.Redshift)

	_, err = LoadExtSpectrum(writeFITS(t, block{axes: []int{1}, data: []float64{0}}))
	assert.Error(t, err)
}

// extractionCube is a 2x2 cube of three planes with a few undefined pixels
func extractionCube() *SpectralCube {
	nan := math.NaN()
	baryshift := 1e-5
	c := &SpectralCube{
		Instrument: FIFILS,
		Wave:       []float64{10, 11, 12},
		L0:         11,
		PixScale:   2,
		Redshift:   0.001,
		Baryshift:  &baryshift,
		Atran:      []float64{0.9, 0.8, 0.7},
		Flux: &Grid{Nz: 3, Ny: 2, Nx: 2, Values: []float64{
			1, 2, 3, 4,
			nan, 6, 7, 8,
			nan, nan, 11, 12,
		}},
		EFlux:    &Grid{Nz: 3, Ny: 2, Nx: 2, Values: filled(12, 3)},
		Exposure: &Grid{Nz: 3, Ny: 2, Nx: 2, Values: filled(12, 5)},
	}
	if err := c.finish(); err != nil {
		panic(err)
	}
	return c
}

func TestPixelSpectrum(t *testing.T) {
	c := extractionCube()
	s, err := c.PixelSpectrum(1, 0)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 6}, s.Flux[:2])
	assert.True(t, math.IsNaN(s.Flux[2]))
	assert.Equal(t, []float64{3, 3, 3}, s.EFlux)
	assert.Equal(t, []float64{5, 5, 5}, s.Exposure)
	assert.Nil(t, s.UFlux)
	assert.Equal(t, c.Wave, s.Wave)
	assert.Equal(t, c.Atran, s.Atran)
	require.NotNil(t, s.Area)
	assert.Equal(t, 4.0, *s.Area)
	require.NotNil(t, s.Instrument)
	assert.Equal(t, FIFILS, *s.Instrument)
	assert.Equal(t, 0.001, *s.Redshift)
	assert.Equal(t, 11.0, *s.L0)
	assert.Equal(t, 1e-5, *s.Baryshift)

	// the spectrum does not alias the cube
	s.Wave[0] = -1
	s.Flux[0] = -1
	assert.Equal(t, 10.0, c.Wave[0])
	assert.Equal(t, 2.0, c.Flux.At(0, 0, 1))

	_, err = c.PixelSpectrum(2, 0)
	assert.ErrorIs(t, err, ErrOutside)
}

func TestApertureSpectrum(t *testing.T) {
	c := extractionCube()
	s, err := c.ApertureSpectrum([]Point{{X: 0, Y: 0}, {X: 1, Y: 0}})
	require.NoError(t, err)

	assert.Equal(t, 3.0, s.Flux[0])
	assert.Equal(t, 6.0, s.Flux[1])
	assert.True(t, math.IsNaN(s.Flux[2]))
	assert.InDeltaSlice(t, []float64{math.Sqrt(18), math.Sqrt(18), math.Sqrt(18)}, s.EFlux, 1e-12)
	assert.Equal(t, []float64{10, 10, 10}, s.Exposure)
	require.NotNil(t, s.Area)
	assert.Equal(t, 8.0, *s.Area)

	_, err = c.ApertureSpectrum(nil)
	assert.ErrorIs(t, err, ErrOutside)
	_, err = c.ApertureSpectrum([]Point{{X: 0, Y: 0}, {X: 0, Y: 5}})
	assert.ErrorIs(t, err, ErrOutside)
}
