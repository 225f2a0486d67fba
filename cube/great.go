// Copyright 2026 The sospex Authors. All rights reserved.
// Use of this source code is governed by a MIT license that can be found in the LICENSE file.

package cube

import (
	"fmt"
	"log"

	"github.com/SOFIAObservatory/sospex/fits"
	"gonum.org/v1/gonum/floats"
)

// readGREAT reads a GREAT cube written by GILDAS
// The primary HDU holds the main beam temperature cube over a velocity axis, possibly with a
// leading degenerate Stokes axis. Wavelengths are derived from the rest frequency.
func readGREAT(f *fits.File, c *SpectralCube, logger *log.Logger) error {
	e := newExtractor(f)

	c.WCS = e.celestial(e.hdr)
	e.spectralAxis(c)
	c.ObjName = e.str("OBJECT")
	c.Redshift = e.floatOr("VELO-LSR", 0) / SpeedOfLight // m/s
	c.PixScale = pixelScale(c.WCS)
	n := e.integer("NAXIS3")
	nu0 := e.float("RESTFREQ") // MHz
	values, shape := e.image("PRIMARY")
	if e.err != nil {
		return e.err
	}

	if len(shape) == 4 {
		shape = shape[1:]
		values = values[:shape[0]*shape[1]*shape[2]]
	}
	flux, err := gridOf(values, shape)
	if err != nil {
		return fmt.Errorf("primary: %w", err)
	}
	floats.Scale(TbToJy, flux.Values) // from temperature to S_nu [Jy]
	c.Flux = flux

	// c/nu0 gives microns for a frequency in MHz
	c.L0 = SpeedOfLight / nu0
	vel := linearAxis(n, c.Crpix3, c.Crval3, c.Cdelt3)
	c.Wave = make([]float64, n)
	for i, v := range vel {
		c.Wave[i] = c.L0 + c.L0*v/SpeedOfLight
	}

	// GILDAS cubes carry no exposure, blanked pixels are the only coverage information
	c.ComputeExposureFromNaN()
	return nil
}
