// Copyright 2026 The sospex Authors. All rights reserved.
// Use of this source code is governed by a MIT license that can be found in the LICENSE file.

package cube

import (
	"fmt"
	"log"
	"math"

	"github.com/SOFIAObservatory/sospex/fits"
)

// readFORCAST reads a FORCAST cube: flux and variance cubes plus a 2D exposure map in units of EXPTIME
func readFORCAST(f *fits.File, c *SpectralCube, logger *log.Logger) error {
	e := newExtractor(f)

	c.WCS = e.celestial(e.hdr)
	e.spectralAxis(c)
	c.ObjName = e.str("OBJECT")
	c.Redshift = 0
	c.PixScale = pixelScale(c.WCS)
	n := e.integer("NAXIS3")
	exptime := e.float("EXPTIME")

	c.Flux = e.grid("FLUX")
	c.EFlux = e.grid("VARIANCE")
	expmap, shape := e.image("EXPOSURE")
	if e.err != nil {
		return e.err
	}
	c.EFlux.Map(math.Sqrt)

	if len(shape) != 2 {
		return fmt.Errorf("%w: exposure map of shape %v", ErrShape, shape)
	}
	plane := make([]float64, len(expmap))
	for i, v := range expmap {
		plane[i] = v * exptime
	}
	exposure, err := broadcast(plane, c.Flux.Nz, shape[0], shape[1])
	if err != nil {
		return err
	}
	c.Exposure = exposure

	c.Wave = linearAxis(n, c.Crpix3, c.Crval3, c.Cdelt3)
	c.L0 = nanMedian(c.Wave)
	return nil
}
