// Copyright 2026 The sospex Authors. All rights reserved.
// Use of this source code is governed by a MIT license that can be found in the LICENSE file.

package cube

import (
	"errors"
	"fmt"
	"math"
)

// ErrOutside is returned when an extraction pixel falls outside the cube
var ErrOutside = errors.New("cube: pixel outside the cube")

// metadata returns the options shared by every spectrum extracted from c
func (c *SpectralCube) metadata() []SpectrumOption {
	opts := []SpectrumOption{
		WithInstrument(c.Instrument),
		WithRedshift(c.Redshift),
		WithRefWavelength(c.L0),
	}
	if c.Baryshift != nil {
		opts = append(opts, WithBaryshift(*c.Baryshift))
	}
	if c.Atran != nil {
		opts = append(opts, WithTransmission(append([]float64(nil), c.Atran...)))
	}
	return opts
}

// PixelSpectrum returns the spectrum of the spatial pixel (x, y)
func (c *SpectralCube) PixelSpectrum(x, y int) (*Spectrum, error) {
	if !c.Flux.contains(x, y) {
		return nil, fmt.Errorf("%w: (%d, %d)", ErrOutside, x, y)
	}
	opts := append(c.metadata(), WithArea(c.PixScale*c.PixScale))
	if c.EFlux != nil {
		opts = append(opts, WithError(c.EFlux.Spaxel(y, x)))
	}
	if c.UFlux != nil {
		opts = append(opts, WithUncorrected(c.UFlux.Spaxel(y, x)))
	}
	if c.Exposure != nil {
		opts = append(opts, WithExposure(c.Exposure.Spaxel(y, x)))
	}
	wave := append([]float64(nil), c.Wave...)
	return NewSpectrum(wave, c.Flux.Spaxel(y, x), opts...), nil
}

// ApertureSpectrum sums the spectra of the given pixels
// NaN values are skipped; a plane without any defined pixel gives NaN.
// Uncertainties add in quadrature and the area is the number of pixels times the pixel area.
func (c *SpectralCube) ApertureSpectrum(points []Point) (*Spectrum, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: empty aperture", ErrOutside)
	}
	for _, p := range points {
		if !c.Flux.contains(p.X, p.Y) {
			return nil, fmt.Errorf("%w: (%d, %d)", ErrOutside, p.X, p.Y)
		}
	}

	area := float64(len(points)) * c.PixScale * c.PixScale
	opts := append(c.metadata(), WithArea(area))
	if c.EFlux != nil {
		opts = append(opts, WithError(quadratureSum(c.EFlux, points)))
	}
	if c.UFlux != nil {
		opts = append(opts, WithUncorrected(nanSum(c.UFlux, points)))
	}
	if c.Exposure != nil {
		opts = append(opts, WithExposure(nanSum(c.Exposure, points)))
	}
	wave := append([]float64(nil), c.Wave...)
	return NewSpectrum(wave, nanSum(c.Flux, points), opts...), nil
}

// nanSum adds the spectra of points, ignoring NaN
func nanSum(g *Grid, points []Point) []float64 {
	out := make([]float64, g.Nz)
	for z := range out {
		sum, n := 0.0, 0
		for _, p := range points {
			if v := g.At(z, p.Y, p.X); !math.IsNaN(v) {
				sum += v
				n++
			}
		}
		if n == 0 {
			sum = math.NaN()
		}
		out[z] = sum
	}
	return out
}

// quadratureSum combines the uncertainties of points, ignoring NaN
func quadratureSum(g *Grid, points []Point) []float64 {
	out := make([]float64, g.Nz)
	for z := range out {
		sum, n := 0.0, 0
		for _, p := range points {
			if v := g.At(z, p.Y, p.X); !math.IsNaN(v) {
				sum += v * v
				n++
			}
		}
		if n == 0 {
			out[z] = math.NaN()
			continue
		}
		out[z] = math.Sqrt(sum)
	}
	return out
}
