// Copyright 2026 The sospex Authors. All rights reserved.
// Use of this source code is governed by a MIT license that can be found in the LICENSE file.

package cube

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/SOFIAObservatory/sospex/fits"
	"github.com/astrogo/fitsio"
	"github.com/stretchr/testify/require"
)

// quiet discards the loading diagnostics
var quiet = WithLogger(log.New(io.Discard, "", 0))

// block is an image HDU of a fixture file
type block struct {
	name  string // EXTNAME, none when empty
	cards []fitsio.Card
	axes  []int // NAXIS1 first
	data  []float64
}

// writeFITS writes blocks as float64 images, the first one being the primary HDU
func writeFITS(t *testing.T, blocks ...block) string {
	t.Helper()
	return writeFile(t, func(f *fitsio.File) {
		for _, b := range blocks {
			writeImage(t, f, b)
		}
	})
}

// writeFile creates a fixture file whose HDUs are written by fill
func writeFile(t *testing.T, fill func(f *fitsio.File)) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cube.fits")
	w, err := os.Create(path)
	require.NoError(t, err)
	defer w.Close()

	f, err := fitsio.Create(w)
	require.NoError(t, err)
	fill(f)
	require.NoError(t, f.Close())
	return path
}

func writeImage(t *testing.T, f *fitsio.File, b block) {
	t.Helper()
	img := fitsio.NewImage(-64, b.axes)
	cards := b.cards
	if b.name != "" {
		cards = append([]fitsio.Card{{Name: "EXTNAME", Value: b.name}}, cards...)
	}
	if len(cards) > 0 {
		require.NoError(t, img.Header().Append(cards...))
	}
	require.NoError(t, img.Write(b.data))
	require.NoError(t, f.Write(img))
	require.NoError(t, img.Close())
}

// ramp returns n values start, start+step, ...
func ramp(n int, start, step float64) []float64 {
	x := make([]float64, n)
	for i := range x {
		x[i] = start + float64(i)*step
	}
	return x
}

// filled returns n copies of v
func filled(n int, v float64) []float64 {
	x := make([]float64, n)
	for i := range x {
		x[i] = v
	}
	return x
}

// card is a shorthand for a header card
func card(name string, value interface{}) fitsio.Card {
	return fitsio.Card{Name: name, Value: value}
}

// without drops the named cards
func without(cards []fitsio.Card, names ...string) []fitsio.Card {
	var out []fitsio.Card
	for _, c := range cards {
		keep := true
		for _, n := range names {
			if c.Name == n {
				keep = false
			}
		}
		if keep {
			out = append(out, c)
		}
	}
	return out
}

type trackingFile struct {
	*os.File
	closed *bool
}

func (t trackingFile) Close() error {
	*t.closed = true
	return t.File.Close()
}

// trackClose makes Load and LoadExtSpectrum record when their file is closed
func trackClose(t *testing.T) *bool {
	closed := new(bool)
	orig := openFITS
	openFITS = func(name string) (*fits.File, error) {
		r, err := os.Open(name)
		if err != nil {
			return nil, err
		}
		return fits.Own(trackingFile{File: r, closed: closed})
	}
	t.Cleanup(func() { openFITS = orig })
	return closed
}

const (
	nx = 3
	ny = 2
	nz = 5
)

var cubeAxes = []int{nx, ny, nz}

func celestialCards(cdelt float64) []fitsio.Card {
	return []fitsio.Card{
		card("CTYPE1", "RA---TAN"),
		card("CTYPE2", "DEC--TAN"),
		card("CRPIX1", 2.0),
		card("CRPIX2", 1.5),
		card("CRVAL1", 148.968),
		card("CRVAL2", 69.68),
		card("CDELT1", -cdelt),
		card("CDELT2", cdelt),
	}
}

func fifiPrimary() []fitsio.Card {
	return append([]fitsio.Card{
		card("INSTRUME", "FIFI-LS"),
		card("DATE-OBS", "2019-02-14T05:12:33"),
		card("OBJ_NAME", "M82"),
		card("BARYSHFT", 2.5e-5),
		card("PIXSCAL", 6.0),
		card("RESOLUN", 1200.0),
		card("ZA_START", 41.5),
		card("ZA_END", 44.25),
		card("ALTI_STA", 39000.0),
		card("ALTI_END", 41000.0),
		card("CTYPE3", "WAVE"),
		card("CRPIX3", 1.0),
		card("CRVAL3", 157.0),
		card("CDELT3", 0.01),
	}, celestialCards(6.0/3600)...)
}

// fifiBlocks returns a FIFI-LS cube, with or without the unsmoothed transmission
func fifiBlocks(primary []fitsio.Card, unsmoothed bool) []block {
	n := nx * ny * nz
	blocks := []block{
		{cards: primary, axes: []int{1}, data: []float64{0}},
		{name: "FLUX", axes: cubeAxes, data: ramp(n, 1, 1)},
		{name: "ERROR", axes: cubeAxes, data: filled(n, 0.5)},
		{name: "UNCORRECTED_FLUX", axes: cubeAxes, data: ramp(n, 2, 1)},
		{name: "UNCORRECTED_ERROR", axes: cubeAxes, data: filled(n, 0.25)},
		{name: "WAVELENGTH", axes: []int{nz}, data: ramp(nz, 157, 0.01)},
		{name: "X", axes: []int{nx}, data: ramp(nx, -6, 6)},
		{name: "Y", axes: []int{ny}, data: ramp(ny, -3, 6)},
		{name: "TRANSMISSION", axes: []int{nz}, data: ramp(nz, 0.9, -0.1)},
		{name: "RESPONSE", axes: []int{nz}, data: filled(nz, 3)},
		{name: "EXPOSURE_MAP", axes: cubeAxes, data: filled(n, 12)},
	}
	if unsmoothed {
		// transmission rises linearly by 10 per micron from 156.99 um
		blocks = append(blocks, block{
			name: "UNSMOOTHED_TRANSMISSION",
			axes: []int{3, 2},
			data: []float64{156.99, 157.03, 157.07, 0, 0.4, 0.8},
		})
	}
	return blocks
}

func greatPrimary() []fitsio.Card {
	return []fitsio.Card{
		card("ORIGIN", "GILDAS Consortium"),
		card("DATE-OBS", "2016-05-20T08:41:00"),
		card("OBJECT", "NGC6334I"),
		card("CTYPE1", "RA---GLS"),
		card("CTYPE2", "DEC--GLS"),
		card("CTYPE3", "VELO-LSR"),
		card("CRPIX1", 2.0),
		card("CRPIX2", 1.0),
		card("CRVAL1", 260.22),
		card("CRVAL2", -35.78),
		card("CDELT1", -0.002),
		card("CDELT2", 0.002),
		card("CRPIX3", 1.0),
		card("CRVAL3", 0.0),
		card("CDELT3", 1000.0),
		card("VELO-LSR", -7500.0),
		card("RESTFREQ", 1900536.9),
	}
}

func forcastPrimary() []fitsio.Card {
	return append([]fitsio.Card{
		card("INSTRUME", "FORCAST"),
		card("DATE-OBS", "2018-09-27T03:01:12"),
		card("OBJECT", "Orion BN/KL"),
		card("EXPTIME", 2.5),
		card("CTYPE3", "WAVE"),
		card("CRPIX3", 1.0),
		card("CRVAL3", 5.0),
		card("CDELT3", 0.01),
	}, celestialCards(0.768/3600)...)
}

func forcastBlocks() []block {
	n := nx * ny * nz
	return []block{
		{name: "FLUX", cards: forcastPrimary(), axes: cubeAxes, data: ramp(n, 10, 1)},
		{name: "VARIANCE", axes: cubeAxes, data: filled(n, 4)},
		{name: "EXPOSURE", axes: []int{nx, ny}, data: ramp(nx*ny, 1, 1)},
	}
}

// pacsWave is an irregular PACS wavelength grid
var pacsWave = []float64{60.0, 60.1, 60.25, 60.3, 60.5}

type pacsNestedRow struct {
	Wavelen [5]float64 `fits:"wavelen"`
}

type pacsFlatRow struct {
	Wavelen float64 `fits:"wavelen"`
}

// writePACS writes a PACS cube; nested selects the single-row TDIM encoding of the wavelengths,
// otherwise every wavelength sits in its own row
func writePACS(t *testing.T, primary []fitsio.Card, nested bool) string {
	t.Helper()
	n := nx * ny * nz
	return writeFile(t, func(f *fitsio.File) {
		writeImage(t, f, block{cards: primary, axes: []int{1}, data: []float64{0}})
		writeImage(t, f, block{name: "image", cards: celestialCards(9.4/3600), axes: cubeAxes, data: ramp(n, 0, 0.5)})
		writeImage(t, f, block{name: "coverage", axes: cubeAxes, data: filled(n, 7)})

		var tbl *fitsio.Table
		var err error
		if nested {
			tbl, err = fitsio.NewTable("wcs-tab", []fitsio.Column{{Name: "wavelen", Format: "5D"}}, fitsio.BINARY_TBL)
			require.NoError(t, err)
			require.NoError(t, tbl.Header().Append(card("TDIM1", "(1,5)")))
			var row pacsNestedRow
			copy(row.Wavelen[:], pacsWave)
			require.NoError(t, tbl.Write(&row))
		} else {
			tbl, err = fitsio.NewTable("wcs-tab", []fitsio.Column{{Name: "wavelen", Format: "D"}}, fitsio.BINARY_TBL)
			require.NoError(t, err)
			for _, w := range pacsWave {
				row := pacsFlatRow{Wavelen: w}
				require.NoError(t, tbl.Write(&row))
			}
		}
		require.NoError(t, f.Write(tbl))
		require.NoError(t, tbl.Close())
	})
}

func pacsPrimary() []fitsio.Card {
	return []fitsio.Card{
		card("INSTRUME", "PACS"),
		card("DATE-OBS", "2011-06-01T11:22:33"),
		card("OBJECT", "NGC 1068"),
		card("REDSHFTV", 1137.0),
	}
}
