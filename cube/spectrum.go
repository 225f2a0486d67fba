// Copyright 2026 The sospex Authors. All rights reserved.
// Use of this source code is governed by a MIT license that can be found in the LICENSE file.

package cube

import (
	"math"
)

// ExtSpectrum is a spectrum read back from an external file with FLUX and WAVELENGTH extensions
type ExtSpectrum struct {
	Wave     []float64 // micron
	Flux     []float64 // Jy
	Redshift float64
}

// LoadExtSpectrum reads the spectrum stored in the named file
// A missing REDSHIFT card means a redshift of zero. The file is closed before returning.
func LoadExtSpectrum(path string) (*ExtSpectrum, error) {
	f, err := openFITS(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	e := newExtractor(f)
	s := &ExtSpectrum{
		Flux:     e.vector("FLUX"),
		Wave:     e.vector("WAVELENGTH"),
		Redshift: e.floatOr("REDSHIFT", 0),
	}
	if e.err != nil {
		return nil, e.err
	}
	return s, nil
}

// Spectrum is a spectrum extracted from a cube or supplied by the caller
// Optional arrays are nil and optional scalars are nil pointers when not provided.
// Continuum starts as NaN everywhere and is filled by the continuum fitting code.
type Spectrum struct {
	Wave     []float64
	Flux     []float64
	EFlux    []float64
	UFlux    []float64
	Exposure []float64
	Atran    []float64

	Instrument *Instrument
	Baryshift  *float64
	Redshift   *float64
	L0         *float64
	Area       *float64 // arcsec^2

	Continuum []float64
}

// SpectrumOption sets an optional field of a Spectrum
type SpectrumOption func(*Spectrum)

// WithError sets the flux uncertainty
func WithError(e []float64) SpectrumOption {
	return func(s *Spectrum) { s.EFlux = e }
}

// WithUncorrected sets the flux not corrected for atmospheric transmission
func WithUncorrected(u []float64) SpectrumOption {
	return func(s *Spectrum) { s.UFlux = u }
}

// WithExposure sets the exposure
func WithExposure(x []float64) SpectrumOption {
	return func(s *Spectrum) { s.Exposure = x }
}

// WithTransmission sets the atmospheric transmission
func WithTransmission(t []float64) SpectrumOption {
	return func(s *Spectrum) { s.Atran = t }
}

// WithInstrument sets the instrument the spectrum was observed with
func WithInstrument(i Instrument) SpectrumOption {
	return func(s *Spectrum) { s.Instrument = &i }
}

// WithBaryshift sets the barycentric shift
func WithBaryshift(v float64) SpectrumOption {
	return func(s *Spectrum) { s.Baryshift = &v }
}

// WithRedshift sets the redshift of the source
func WithRedshift(z float64) SpectrumOption {
	return func(s *Spectrum) { s.Redshift = &z }
}

// WithRefWavelength sets the reference wavelength
func WithRefWavelength(l0 float64) SpectrumOption {
	return func(s *Spectrum) { s.L0 = &l0 }
}

// WithArea sets the area of the extraction aperture
func WithArea(a float64) SpectrumOption {
	return func(s *Spectrum) { s.Area = &a }
}

// NewSpectrum builds a spectrum from wave and flux and the given optional fields
func NewSpectrum(wave, flux []float64, opts ...SpectrumOption) *Spectrum {
	s := &Spectrum{Wave: wave, Flux: flux}
	for _, opt := range opts {
		opt(s)
	}
	s.Continuum = make([]float64, len(wave))
	for i := range s.Continuum {
		s.Continuum[i] = math.NaN()
	}
	return s
}
