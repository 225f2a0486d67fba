// Copyright 2026 The sospex Authors. All rights reserved.
// Use of this source code is governed by a MIT license that can be found in the LICENSE file.
//
// Package cube loads spectral cubes of FIFI-LS, GREAT, PACS and FORCAST into a common representation.
//
// Every instrument stores its cube differently: FIFI-LS and FORCAST use named image extensions,
// GREAT keeps a brightness temperature cube in the primary HDU with a velocity axis,
// and PACS keeps an irregular wavelength grid in a binary table.
// Load hides these layouts behind SpectralCube: flux [wavelength, y, x], optional uncertainties,
// exposure, wavelength axis, celestial WCS and scalar metadata.
//
//	c, err := cube.Load("M82_FIFI.fits")
//	if err != nil {
//		return err
//	}
//	s, err := c.PixelSpectrum(10, 12)
package cube

import (
	"fmt"
	"io"
	"log"
	"math"
	"time"

	"github.com/SOFIAObservatory/sospex/fits"
	"github.com/SOFIAObservatory/sospex/wcs"
)

// Point is a spatial pixel of a cube
type Point struct {
	X, Y int
}

// Range is a pair of start/end header values, such as zenith angles
type Range struct {
	Start, End float64
}

// SpectralCube is a spectral cube normalized across instruments
//
// Flux, Exposure and the optional EFlux, UFlux and EUFlux share the shape [N, Ny, Nx], with N == len(Wave).
// Optional metadata is nil when the instrument does not provide it.
type SpectralCube struct {
	Filename   string
	Header     fits.Header // primary header, for PACS too; the PACS WCS comes from the IMAGE header
	Instrument Instrument
	ObjName    string
	ObsDate    string

	Flux     *Grid
	EFlux    *Grid // uncertainty of Flux
	UFlux    *Grid // flux not corrected for atmospheric transmission
	EUFlux   *Grid // uncertainty of UFlux
	Exposure *Grid // seconds, or coverage for PACS

	Wave   []float64 // micron
	N      int
	L0     float64 // reference wavelength
	N0     int     // index of Wave nearest to L0
	Nx, Ny int

	WCS                    *wcs.WCS // celestial axes only
	Crpix3, Crval3, Cdelt3 float64
	PixScale               float64 // arcsec
	Redshift               float64
	Points                 []Point

	// FIFI-LS only
	FileGroupID *string
	Baryshift   *float64
	Resolution  *float64
	ZA          *Range
	Altitude    *Range
	Atran       []float64 // atmospheric transmission on Wave
	Response    []float64
	X, Y        []float64
}

// Option configures Load and Read
type Option func(*options)

type options struct {
	logger *log.Logger
}

// WithLogger sends the loading diagnostics to l
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// openFITS is replaced in tests to observe the file handle
var openFITS = fits.OpenFile

// Load reads the spectral cube stored in the named file
// The file is closed before Load returns, whatever the outcome.
func Load(path string, opts ...Option) (*SpectralCube, error) {
	f, err := openFITS(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return build(f, path, opts)
}

// Read reads a spectral cube from r
func Read(r io.Reader, opts ...Option) (*SpectralCube, error) {
	f, err := fits.NewFile(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return build(f, "", opts)
}

type readFunc func(f *fits.File, c *SpectralCube, logger *log.Logger) error

var readers = map[Instrument]readFunc{
	FIFILS:  readFIFI,
	GREAT:   readGREAT,
	PACS:    readPACS,
	FORCAST: readFORCAST,
}

func build(f *fits.File, name string, opts []Option) (*SpectralCube, error) {
	o := options{logger: log.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	start := time.Now()

	header := f.Primary().Keys
	inst, err := DetectInstrument(header)
	if err != nil {
		o.logger.Printf("%s: this is not a supported spectral cube", name)
		return nil, err
	}
	o.logger.Printf("this is a %s spectral cube", inst)

	c := &SpectralCube{Filename: name, Header: header, Instrument: inst}
	if c.ObsDate, err = header.String("DATE-OBS"); err != nil {
		if c.ObsDate, err = header.String("DATE"); err != nil {
			return nil, fmt.Errorf("cube: observation date: %w", err)
		}
	}

	if err := readers[inst](f, c, o.logger); err != nil {
		return nil, fmt.Errorf("cube: reading %s cube %s: %w", inst, name, err)
	}
	if err := c.finish(); err != nil {
		return nil, err
	}

	o.logger.Printf("ref wavelength at n: %d", c.N0)
	o.logger.Printf("reading of cube completed in %v", time.Since(start))
	return c, nil
}

// finish checks the shapes filled by a reader and derives N, N0 and Points
func (c *SpectralCube) finish() error {
	if c.Flux == nil {
		return fmt.Errorf("%w: no flux", ErrShape)
	}
	c.N = len(c.Wave)
	if c.N == 0 || c.Flux.Nz != c.N {
		return fmt.Errorf("%w: %d flux planes for %d wavelengths", ErrShape, c.Flux.Nz, c.N)
	}
	for name, g := range map[string]*Grid{"error": c.EFlux, "uncorrected flux": c.UFlux, "uncorrected error": c.EUFlux, "exposure": c.Exposure} {
		if g != nil && !g.SameShape(c.Flux) {
			return fmt.Errorf("%w: %s is %dx%dx%d, flux is %dx%dx%d", ErrShape, name, g.Nz, g.Ny, g.Nx, c.Flux.Nz, c.Flux.Ny, c.Flux.Nx)
		}
	}

	c.N0 = nearest(c.Wave, c.L0)
	c.Ny, c.Nx = c.Flux.Ny, c.Flux.Nx
	c.Points = make([]Point, 0, c.Nx*c.Ny)
	for y := 0; y < c.Ny; y++ {
		for x := 0; x < c.Nx; x++ {
			c.Points = append(c.Points, Point{X: x, Y: y})
		}
	}
	return nil
}

// ComputeExposureFromNaN replaces the exposure with 1 where the flux is defined and 0 where it is NaN
func (c *SpectralCube) ComputeExposureFromNaN() {
	c.Exposure = &Grid{Nz: c.Flux.Nz, Ny: c.Flux.Ny, Nx: c.Flux.Nx, Values: make([]float64, len(c.Flux.Values))}
	copy(c.Exposure.Values, c.Flux.Values)
	c.Exposure.Map(finiteMask)
}

// extractor reads header keys and data blocks, remembering the first failure
type extractor struct {
	file *fits.File
	hdr  fits.Header
	err  error
}

func newExtractor(f *fits.File) *extractor {
	return &extractor{file: f, hdr: f.Primary().Keys}
}

func (e *extractor) fail(err error) {
	if e.err == nil {
		e.err = err
	}
}

func (e *extractor) float(key string) float64 {
	v, err := e.hdr.Float(key)
	if err != nil {
		e.fail(err)
		return math.NaN()
	}
	return v
}

// floatOr returns the value of an optional key
func (e *extractor) floatOr(key string, def float64) float64 {
	if v, err := e.hdr.Float(key); err == nil {
		return v
	}
	return def
}

func (e *extractor) integer(key string) int {
	v, err := e.hdr.Int(key)
	e.fail(err)
	return v
}

func (e *extractor) str(key string) string {
	v, err := e.hdr.String(key)
	e.fail(err)
	return v
}

// image returns the named image block as float64 with its row-major shape
func (e *extractor) image(name string) ([]float64, []int) {
	if e.err != nil {
		return nil, nil
	}
	u, err := e.file.Unit(name)
	if err != nil {
		e.fail(err)
		return nil, nil
	}
	values, err := u.Floats()
	if err != nil {
		e.fail(err)
		return nil, nil
	}
	return values, u.Shape()
}

// grid returns the named 3D image block
func (e *extractor) grid(name string) *Grid {
	values, shape := e.image(name)
	if e.err != nil {
		return nil
	}
	g, err := gridOf(values, shape)
	if err != nil {
		e.fail(fmt.Errorf("%s: %w", name, err))
		return nil
	}
	return g
}

// vector returns the named image block flattened
func (e *extractor) vector(name string) []float64 {
	values, _ := e.image(name)
	return values
}

// celestial builds the WCS of h and keeps its celestial axes
func (e *extractor) celestial(h fits.Header) *wcs.WCS {
	if e.err != nil {
		return nil
	}
	full, err := wcs.New(h)
	if err != nil {
		e.fail(err)
		return nil
	}
	cel, err := full.Celestial()
	if err != nil {
		e.fail(err)
		return nil
	}
	return cel
}

// spectralAxis reads the CRPIX3/CRVAL3/CDELT3 triplet into c
func (e *extractor) spectralAxis(c *SpectralCube) {
	c.Crpix3 = e.float("CRPIX3")
	c.Crval3 = e.float("CRVAL3")
	c.Cdelt3 = e.float("CDELT3")
}

// pixelScale returns the pixel size of a celestial WCS along its first axis, in arcsec
func pixelScale(w *wcs.WCS) float64 {
	if w == nil {
		return math.NaN()
	}
	return w.PixelScales()[0] * ArcsecPerDegree
}
