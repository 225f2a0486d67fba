// Copyright 2026 The sospex Authors. All rights reserved.
// Use of this source code is governed by a MIT license that can be found in the LICENSE file.

package cube

import (
	"log"

	"github.com/SOFIAObservatory/sospex/fits"
)

// celestialKeys are copied from the IMAGE header of PACS cubes to rebuild their astrometry
var celestialKeys = []string{"CRPIX1", "CRPIX2", "CDELT1", "CDELT2", "CRVAL1", "CRVAL2", "CTYPE1", "CTYPE2"}

// readPACS reads a PACS cube exported by HIPE
// The wavelength grid, possibly irregular, lives in the wavelen column of the wcs-tab table.
func readPACS(f *fits.File, c *SpectralCube, logger *log.Logger) error {
	e := newExtractor(f)

	c.ObjName = e.str("OBJECT")
	c.Redshift = e.floatOr("REDSHFTV", 0) * 1000 / SpeedOfLight // km/s
	logger.Printf("object is %s", c.ObjName)

	c.Flux = e.grid("image")
	c.Exposure = e.grid("coverage")
	if e.err != nil {
		return e.err
	}

	tab, err := f.Unit("wcs-tab")
	if err != nil {
		return err
	}
	rows, dims, err := tab.FloatColumn("wavelen")
	if err != nil {
		return err
	}
	c.Wave = flattenWavelengths(rows, dims)
	c.L0 = nanMedian(c.Wave)

	// the IMAGE header astrometry is only usable once moved into a plain cube header
	img, err := f.Unit("IMAGE")
	if err != nil {
		return err
	}
	hdr := fits.Header{
		"NAXIS":  3,
		"NAXIS1": c.Flux.Nx,
		"NAXIS2": c.Flux.Ny,
		"NAXIS3": c.Flux.Nz,
	}
	for _, key := range celestialKeys {
		v, err := img.Keys.Get(key)
		if err != nil {
			return err
		}
		hdr[key] = v
	}
	c.WCS = e.celestial(hdr)
	c.PixScale = pixelScale(c.WCS)

	// irregular grids are approximated by a linear axis
	c.Crpix3 = 1
	if len(c.Wave) > 0 {
		c.Crval3 = c.Wave[0]
	}
	c.Cdelt3 = medianStep(c.Wave)
	return e.err
}

// flattenWavelengths turns the wavelen column into a single axis
// Cells with two or more dimensions hold the whole grid in the first row; otherwise rows are concatenated.
// The grid is assumed identical for every spatial position.
func flattenWavelengths(rows [][]float64, dims []int) []float64 {
	if len(rows) == 0 {
		return nil
	}
	if len(dims) >= 2 {
		return append([]float64(nil), rows[0]...)
	}
	var wave []float64
	for _, r := range rows {
		wave = append(wave, r...)
	}
	return wave
}
