// Copyright 2026 The sospex Authors. All rights reserved.
// Use of this source code is governed by a MIT license that can be found in the LICENSE file.
//
// cubeinfo is a test application for the fits and cube packages.
// It accepts one input in command line, which can be a file name or a URL pointing to a spectral cube.
// cubeinfo lists every HDU with its shape, data range or table columns, then loads the cube and prints
// its instrument, object, wavelength range and the spectrum of the central pixel.
package main

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/SOFIAObservatory/sospex/cube"
	"github.com/SOFIAObservatory/sospex/fits"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Println("usage: cubeinfo filename|url")
		os.Exit(1)
	}

	name, buf, err := fetch(os.Args[1])
	if err != nil {
		log.Fatal(err)
	}

	f, err := fits.NewFile(bytes.NewReader(buf))
	if err != nil {
		log.Fatal(err)
	}
	for i, h := range f.Units {
		describe(i, h)
	}

	c, err := cube.Read(bytes.NewReader(buf), cube.WithLogger(log.New(os.Stderr, "cubeinfo: ", 0)))
	if err != nil {
		log.Fatal(err)
	}
	c.Filename = name
	summarize(c)
}

// fetch returns the base name and the content of a local file or an http(s) URL
// Remote files are downloaded whole before being parsed.
func fetch(arg string) (string, []byte, error) {
	if !strings.HasPrefix(arg, "http://") && !strings.HasPrefix(arg, "https://") {
		buf, err := os.ReadFile(arg)
		return path.Base(arg), buf, err
	}
	u, err := url.Parse(arg)
	if err != nil {
		return "", nil, err
	}
	res, err := http.Get(arg)
	if err != nil {
		return "", nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("downloading %s: %s", arg, res.Status)
	}
	buf, err := io.ReadAll(res.Body)
	return path.Base(u.Path), buf, err
}

// describe prints the header size and the content summary of one HDU
func describe(i int, h *fits.Unit) {
	fmt.Printf("******************** HDU %d %s ********************\n", i, h.Name())
	fmt.Printf("%d header keys\n", len(h.Keys))

	switch {
	case h.HasImage():
		min, max := h.Stats()
		fmt.Printf("image %v, bitpix %d, range [%g, %g]\n", h.Shape(), h.Bitpix(), min, max)
	case h.HasTable():
		fmt.Printf("table with %d rows\n", h.Rows())
		for col, ttype := range h.Columns() {
			first := ""
			if h.Rows() > 0 {
				first = strings.TrimSpace(h.Format(col, 0))
			}
			fmt.Printf("  %-12s dim %v first %s\n", ttype, h.Dim(col), first)
		}
	default:
		fmt.Println("no data")
	}
}

// summarize prints the cube metadata and the central spectrum around the reference wavelength
func summarize(c *cube.SpectralCube) {
	fmt.Println("******************** cube ********************")
	fmt.Printf("%s cube of %s observed %s\n", c.Instrument, c.ObjName, c.ObsDate)
	fmt.Printf("%d x %d pixels of %.3g arcsec, %d planes\n", c.Nx, c.Ny, c.PixScale, c.N)
	fmt.Printf("wavelength %.6g to %.6g um, reference %.6g um at plane %d\n", c.Wave[0], c.Wave[c.N-1], c.L0, c.N0)
	fmt.Printf("redshift %.6g\n", c.Redshift)
	if lon, lat, err := c.WCS.PixelToWorld(float64(c.Nx-1)/2, float64(c.Ny-1)/2); err == nil {
		fmt.Printf("center at %.6f %.6f deg\n", lon, lat)
	}

	s, err := c.PixelSpectrum(c.Nx/2, c.Ny/2)
	if err != nil {
		log.Fatal(err)
	}
	for i := max(0, c.N0-3); i < min(c.N, c.N0+4); i++ {
		fmt.Printf("  %10.6f um  %12.5g Jy  exposure %g\n", s.Wave[i], s.Flux[i], s.Exposure[i])
	}
}
