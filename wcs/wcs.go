// Copyright 2026 The sospex Authors. All rights reserved.
// Use of this source code is governed by a MIT license that can be found in the LICENSE file.
//
// Package wcs builds the linear World Coordinate System of a FITS header and extracts its celestial part.
// It follows Greisen & Calabretta, Representations of world coordinates in FITS, A&A 395, 1061 (2002)
// and Calabretta & Greisen, Representations of celestial coordinates in FITS, A&A 395, 1077 (2002).
//
// Only the pieces needed by spectral-cube readers are provided: the celestial sub-system,
// the projection-plane pixel scales, and the pixel to sky transform of the gnomonic (TAN) projection.
package wcs

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/SOFIAObservatory/sospex/fits"
)

var (
	// ErrNoCelestial is returned when a header does not describe exactly one longitude and one latitude axis
	ErrNoCelestial = errors.New("wcs: no celestial axes")
	// ErrProjection is returned by PixelToWorld for projections other than TAN
	ErrProjection = errors.New("wcs: unsupported projection")
)

// maxAxes is the largest axis number allowed in indexed WCS keywords
const maxAxes = 9

// WCS is the linear part of a world coordinate system
// Slices are indexed by 0-based axis number; PC[i][j] is the PCi_j matrix element.
// When the header carries CDi_j cards they are stored in PC and CDELT is set to 1.
type WCS struct {
	CRPIX []float64
	CRVAL []float64
	CDELT []float64
	CTYPE []string
	CUNIT []string
	PC    [][]float64
}

// Naxis returns the number of world axes
func (w *WCS) Naxis() int {
	return len(w.CRPIX)
}

// axisCount finds the number of WCS axes of h
// WCSAXES wins; otherwise NAXIS, raised to the highest axis number used by an indexed keyword.
func axisCount(h fits.Header) int {
	if n, err := h.Int("WCSAXES"); err == nil {
		return n
	}
	n, _ := h.Int("NAXIS")
	for i := maxAxes; i > n; i-- {
		for _, key := range []string{"CTYPE", "CRPIX", "CRVAL", "CDELT"} {
			if h.Has(fits.Nth(key, i)) {
				return i
			}
		}
	}
	return n
}

// New builds the WCS described by h
// Missing keywords take their standard defaults: CRPIX 0, CRVAL 0, CDELT 1, PC identity.
func New(h fits.Header) (*WCS, error) {
	n := axisCount(h)
	if n == 0 {
		return nil, fmt.Errorf("wcs: header has no axes")
	}
	w := &WCS{
		CRPIX: make([]float64, n),
		CRVAL: make([]float64, n),
		CDELT: make([]float64, n),
		CTYPE: make([]string, n),
		CUNIT: make([]string, n),
		PC:    make([][]float64, n),
	}

	hasCD := false
	for i := 1; i <= n && !hasCD; i++ {
		for j := 1; j <= n; j++ {
			if h.Has(fmt.Sprintf("CD%d_%d", i, j)) {
				hasCD = true
				break
			}
		}
	}

	for i := 0; i < n; i++ {
		k := i + 1
		w.CRPIX[i] = floatOr(h, fits.Nth("CRPIX", k), 0)
		w.CRVAL[i] = floatOr(h, fits.Nth("CRVAL", k), 0)
		w.CDELT[i] = floatOr(h, fits.Nth("CDELT", k), 1)
		w.CTYPE[i], _ = h.String(fits.Nth("CTYPE", k))
		w.CUNIT[i], _ = h.String(fits.Nth("CUNIT", k))
		w.CTYPE[i] = strings.ToUpper(strings.TrimSpace(w.CTYPE[i]))

		w.PC[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			identity := 0.0
			if i == j {
				identity = 1
			}
			if hasCD {
				// CDi_j defaults to zero, diagonal included
				w.PC[i][j] = floatOr(h, fmt.Sprintf("CD%d_%d", k, j+1), 0)
			} else {
				w.PC[i][j] = floatOr(h, fmt.Sprintf("PC%d_%d", k, j+1), identity)
			}
		}
		if hasCD {
			w.CDELT[i] = 1
		}
	}
	return w, nil
}

func floatOr(h fits.Header, key string, def float64) float64 {
	if x, err := h.Float(key); err == nil {
		return x
	}
	return def
}

// axisKind returns "lon", "lat" or "" for a CTYPE value
func axisKind(ctype string) string {
	name := ctype
	if len(name) > 4 {
		name = name[:4]
	}
	name = strings.TrimRight(name, "-")
	switch {
	case name == "RA":
		return "lon"
	case name == "DEC":
		return "lat"
	case len(name) == 4 && strings.HasSuffix(name, "LON"):
		return "lon"
	case len(name) == 4 && strings.HasSuffix(name, "LAT"):
		return "lat"
	}
	return ""
}

// Sub returns the WCS restricted to the given 0-based axes, in that order
func (w *WCS) Sub(axes ...int) *WCS {
	s := &WCS{PC: make([][]float64, len(axes))}
	for k, i := range axes {
		s.CRPIX = append(s.CRPIX, w.CRPIX[i])
		s.CRVAL = append(s.CRVAL, w.CRVAL[i])
		s.CDELT = append(s.CDELT, w.CDELT[i])
		s.CTYPE = append(s.CTYPE, w.CTYPE[i])
		s.CUNIT = append(s.CUNIT, w.CUNIT[i])
		s.PC[k] = make([]float64, len(axes))
		for l, j := range axes {
			s.PC[k][l] = w.PC[i][j]
		}
	}
	return s
}

// Celestial returns the two-axis celestial sub-system, longitude axis first
func (w *WCS) Celestial() (*WCS, error) {
	lon, lat := -1, -1
	for i, ctype := range w.CTYPE {
		switch axisKind(ctype) {
		case "lon":
			if lon != -1 {
				return nil, fmt.Errorf("%w: two longitude axes", ErrNoCelestial)
			}
			lon = i
		case "lat":
			if lat != -1 {
				return nil, fmt.Errorf("%w: two latitude axes", ErrNoCelestial)
			}
			lat = i
		}
	}
	if lon == -1 || lat == -1 {
		return nil, fmt.Errorf("%w: CTYPE %v", ErrNoCelestial, w.CTYPE)
	}
	return w.Sub(lon, lat), nil
}

// PixelScales returns the size of a pixel along each pixel axis, in world units (degrees for celestial axes)
// It is the norm of each column of the CDELT-scaled PC matrix.
func (w *WCS) PixelScales() []float64 {
	n := w.Naxis()
	scales := make([]float64, n)
	for j := 0; j < n; j++ {
		var sum float64
		for i := 0; i < n; i++ {
			m := w.CDELT[i] * w.PC[i][j]
			sum += m * m
		}
		scales[j] = math.Sqrt(sum)
	}
	return scales
}

// Projection returns the three-letter projection code of a celestial WCS, e.g. "TAN"
func (w *WCS) Projection() string {
	for _, ctype := range w.CTYPE {
		if axisKind(ctype) != "" && len(ctype) >= 8 {
			return strings.TrimSpace(ctype[5:8])
		}
	}
	return ""
}

// PixelToWorld converts 0-based pixel coordinates of a celestial WCS into (longitude, latitude) in degrees
// Only the gnomonic projection is handled; the native pole sits at the default LONPOLE of 180 degrees.
func (w *WCS) PixelToWorld(x, y float64) (lon, lat float64, err error) {
	if w.Naxis() != 2 || axisKind(w.CTYPE[0]) != "lon" || axisKind(w.CTYPE[1]) != "lat" {
		return 0, 0, fmt.Errorf("%w: CTYPE %v", ErrNoCelestial, w.CTYPE)
	}
	if p := w.Projection(); p != "TAN" {
		return 0, 0, fmt.Errorf("%w: %q", ErrProjection, p)
	}

	// FITS pixel numbers are 1-based
	dx := x + 1 - w.CRPIX[0]
	dy := y + 1 - w.CRPIX[1]
	px := w.CDELT[0] * (w.PC[0][0]*dx + w.PC[0][1]*dy)
	py := w.CDELT[1] * (w.PC[1][0]*dx + w.PC[1][1]*dy)

	const deg = math.Pi / 180
	r := math.Hypot(px, py)
	phi := math.Atan2(px, -py)
	theta := math.Pi / 2
	if r != 0 {
		theta = math.Atan2(1/deg, r)
	}

	alphaP := w.CRVAL[0] * deg
	deltaP := w.CRVAL[1] * deg
	dphi := phi - math.Pi

	sinT, cosT := math.Sincos(theta)
	sinD, cosD := math.Sincos(deltaP)
	sinP, cosP := math.Sincos(dphi)

	alpha := alphaP + math.Atan2(-cosT*sinP, sinT*cosD-cosT*sinD*cosP)
	delta := math.Asin(math.Max(-1, math.Min(1, sinT*sinD+cosT*cosD*cosP)))

	lon = math.Mod(alpha/deg, 360)
	if lon < 0 {
		lon += 360
	}
	return lon, delta / deg, nil
}
