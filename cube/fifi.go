// Copyright 2026 The sospex Authors. All rights reserved.
// Use of this source code is governed by a MIT license that can be found in the LICENSE file.

package cube

import (
	"fmt"
	"log"

	"github.com/SOFIAObservatory/sospex/fits"
)

// readFIFI reads a FIFI-LS cube: every array lives in its own named extension
func readFIFI(f *fits.File, c *SpectralCube, logger *log.Logger) error {
	e := newExtractor(f)

	c.WCS = e.celestial(e.hdr)
	e.spectralAxis(c)
	c.ObjName = e.str("OBJ_NAME")

	group := "Unknown"
	if v, err := e.hdr.Get("FILEGPID"); err == nil {
		group = fmt.Sprint(v)
	}
	c.FileGroupID = &group

	baryshift := e.float("BARYSHFT")
	resolution := e.float("RESOLUN")
	c.Baryshift = &baryshift
	c.Resolution = &resolution
	c.PixScale = e.float("PIXSCAL")
	c.ZA = &Range{Start: e.float("ZA_START"), End: e.float("ZA_END")}
	c.Altitude = &Range{Start: e.float("ALTI_STA"), End: e.float("ALTI_END")}
	c.Redshift = e.floatOr("REDSHIFT", 0)

	c.Flux = e.grid("FLUX")
	c.EFlux = e.grid("ERROR")
	c.UFlux = e.grid("UNCORRECTED_FLUX")
	c.EUFlux = e.grid("UNCORRECTED_ERROR")
	c.Wave = e.vector("WAVELENGTH")
	c.X = e.vector("X")
	c.Y = e.vector("Y")
	c.Response = e.vector("RESPONSE")
	c.Exposure = e.exposure("EXPOSURE_MAP", c.Flux)
	if e.err != nil {
		return e.err
	}
	c.L0 = nanMedian(c.Wave)

	atran, err := unsmoothedTransmission(f, c.Wave)
	if err != nil {
		logger.Printf("the unsmoothed transmission is not available: %v", err)
		atran = e.vector("TRANSMISSION")
	}
	c.Atran = atran
	return e.err
}

// unsmoothedTransmission resamples the UNSMOOTHED_TRANSMISSION curve onto wave
// The block has two rows: wavelengths, then transmission.
func unsmoothedTransmission(f *fits.File, wave []float64) ([]float64, error) {
	u, err := f.Unit("UNSMOOTHED_TRANSMISSION")
	if err != nil {
		return nil, err
	}
	values, err := u.Floats()
	if err != nil {
		return nil, err
	}
	shape := u.Shape()
	if len(shape) != 2 || shape[0] < 2 {
		return nil, fmt.Errorf("%w: transmission table of shape %v", ErrShape, shape)
	}
	m := shape[1]
	return resample(wave, values[:m], values[m:2*m])
}

// exposure reads an exposure block, broadcasting a 2D map over the wavelength planes of flux
func (e *extractor) exposure(name string, flux *Grid) *Grid {
	values, shape := e.image(name)
	if e.err != nil {
		return nil
	}
	if len(shape) == 2 && flux != nil {
		g, err := broadcast(values, flux.Nz, shape[0], shape[1])
		e.fail(err)
		return g
	}
	g, err := gridOf(values, shape)
	if err != nil {
		e.fail(fmt.Errorf("%s: %w", name, err))
	}
	return g
}
