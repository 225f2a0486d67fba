// Copyright 2014 Shahriar Iravanian (siravan@svtsim.com).  All rights reserved.
// Use of this source code is governed by a MIT license that can be found in the LICENSE file.
//
// Package fits reads and processes FITS files. It is written in pure golang and is not a wrapper around another library.
// It serves as the container layer of sospex: spectral cubes are located by the EXTNAME of their HDUs and
// their header cards are looked up with typed accessors that signal missing keys.
//
// This package is based on version 3.0 of the FITS standard:
//  Pence W.D., Chiappetti L., Page C. G., Shaw R. A., Stobie E. Definition of the Flexible Image Transport System (FITS), version 3.0. A&A 524, A42 (2010)
//  http://www.aanda.org/articles/aa/abs/2010/16/aa15362-10/aa15362-10.html
//
// The following features are supported:
//      1. Images with all six different data format (byte, int16, int32, int64, float32, and float64)
//      2. Automatic application of BSCALE/BZERO and BLANK when images are materialized with Unit.Floats
//      3. Text and binary tables with atomic and fixed-size array elements, including TDIMn cell shapes
//
// Random groups are not supported. Variable length arrays (P and Q) and packed bits (X) are skipped:
// their HDU loads, but reading such a column returns ErrUnsupportedColumn.
// The package provides only read capability.
//
// The usual entry point is OpenFile, which returns a File owning the underlying handle:
//
//      f, err := fits.OpenFile("cube.fits")
//      if err != nil {
//          return err
//      }
//      defer f.Close()
//      flux, err := f.Unit("FLUX")
//
// Unit.Keys holds the header of each HDU. The typed lookups (String, Float, Int, Bool) wrap ErrKeyNotFound
// when a key is missing, so optional keys are handled with errors.Is.
// Unit.Naxis[k] is equal to NAXIS{k+1} in the header, while Unit.Shape returns the same axes slowest first,
// which is the order of the flat Data slice.
//
// For table data, Field returns an accessor for a column (by 0-based index or TTYPE name) and Format renders a cell
// according to its TDISP. FloatColumn converts a numeric column to float64 rows.
package fits

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var (
	// ErrNoUnit is returned by File.Unit when no HDU has the requested name
	ErrNoUnit = errors.New("fits: no such HDU")
	// ErrUnsupportedColumn is returned when reading a table column of type P, Q or X
	ErrUnsupportedColumn = errors.New("fits: unsupported column type")
)

// FieldFunc are the type of accessor functions returned by Unit.Field()
// FieldFunc is used to access the value of cells in a text or binary table (XTENSION=TABLE or XTENSION=BINTABLE)
type FieldFunc func(row int) interface{}

// Unit stores the header and data of a single HDU (Header Data Unit) as defined by FITS standard
// Data points to a flat array holding the HDU data
// Its type is []byte for tables and is determined by BITPIX for images:
//
//      BITPIX  Data
//      8       []byte
//      16      []int16
//      32      []int32
//      64      []int64
//      -32     []float32
//      -64     []float64
//
type Unit struct {
	Keys  Header
	Naxis []int // len(Naxis) is equal to the value of NAXIS in the header
	// Naxis[k] is equal to NAXIS{k+1} in the header
	Data        interface{}
	list        []FieldFunc    // A slice to help with access to FieldFunc based on index
	columns     map[string]int // upper-cased TTYPE => 0-based column index
	dims        [][]int        // cell shape of each column, from TDIMn or the repeat count
	unsupported map[int]error  // columns that are skipped over but not decoded
	class       string         // class holds the type of the Header (SIMPLE, IMAGE, TABLE and BINTABLE)
	At          func(a ...int) interface{} // Accessor function that returns the value of a pixel based on its coordinates
	// a... represents NAXIS integers corresponding to NAXIS1, NAXIS2,...
	IntAt   func(a ...int) int64   // A helper accessor function that returns the pixel value as int64
	FloatAt func(a ...int) float64 // A helper accessor function that returns the pixel value as float64
	Blank   func(a ...int) bool    // returns true if the pixel pointed by a... is undefined (BLANK or NaN)
}

// Name returns the upper-cased EXTNAME of h
// The primary HDU is called PRIMARY unless it carries its own EXTNAME.
func (h *Unit) Name() string {
	if s, err := h.Keys.String("EXTNAME"); err == nil {
		return strings.ToUpper(strings.TrimSpace(s))
	}
	if h.class == "SIMPLE" {
		return "PRIMARY"
	}
	return ""
}

// HasImage returns true is the Unit is either SIMPLE or IMAGE and has the data for an actual image
func (h *Unit) HasImage() bool {
	return (h.class == "SIMPLE" || h.class == "IMAGE") && len(h.Naxis) > 0 && h.Naxis[0] > 0
}

// HasTable returns true is the Unit is either TABLE or BINTABLE
func (h *Unit) HasTable() bool {
	return h.class == "TABLE" || h.class == "BINTABLE"
}

// Bitpix is a helper function the simply returns BITPIX value in the header
func (h *Unit) Bitpix() int {
	n, _ := h.Keys.Int("BITPIX")
	return n
}

// Open processes a FITS file provided as an io.Reader and returns a list of HDUs in the FITS file
// Reading stops silently at the end of the stream or at an unrecognized header.
func Open(reader io.Reader) (units []*Unit, err error) {
	b := NewReader(reader)
	units = make([]*Unit, 0, 5)
	for !b.IsEOF() {
		h, err := b.NewHeader()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return units, err
		}

		if _, ok := h.Keys["SIMPLE"]; ok && len(units) == 0 {
			if err := h.verifyPrimary(); err != nil {
				return units, err
			}
			h.class = "SIMPLE"
			units = append(units, h)
			if len(h.Naxis) > 0 && h.Naxis[0] == 0 { // Random Group Headers are not supported and are not processed further
				break
			}
			if err := h.loadData(b); err != nil {
				return units, err
			}
		} else if xten, ok := h.Keys["XTENSION"].(string); ok && len(units) > 0 {
			if err := h.verifyExtension(); err != nil {
				return units, err
			}
			h.class = xten
			units = append(units, h)
			switch xten {
			case "IMAGE":
				err = h.loadData(b)
			case "TABLE":
				err = h.loadTable(b, false)
			case "BINTABLE":
				err = h.loadTable(b, true)
			default:
				err = h.skipData(b)
			}
			if err != nil {
				return units, err
			}
		} else {
			// unknown header
			break
		}
	}
	return units, nil
}

// File is an opened FITS file with all of its HDUs
type File struct {
	Units  []*Unit
	closer io.Closer
}

// NewFile reads every HDU of r
// r is not closed by File.Close; the caller keeps its ownership.
func NewFile(r io.Reader) (*File, error) {
	units, err := Open(r)
	if err != nil {
		return nil, err
	}
	if len(units) == 0 {
		return nil, fmt.Errorf("fits: no primary header")
	}
	return &File{Units: units}, nil
}

// Own reads every HDU of rc and takes ownership of it: File.Close closes rc
// rc is closed before returning an error.
func Own(rc io.ReadCloser) (*File, error) {
	f, err := NewFile(rc)
	if err != nil {
		rc.Close()
		return nil, err
	}
	f.closer = rc
	return f, nil
}

// OpenFile opens the named file and reads its HDUs
// The handle stays open until Close is called.
func OpenFile(name string) (*File, error) {
	r, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	f, err := Own(r)
	if err != nil {
		return nil, fmt.Errorf("fits: reading %s: %w", name, err)
	}
	return f, nil
}

// Close releases the file handle, if f owns one
func (f *File) Close() error {
	if f.closer == nil {
		return nil
	}
	err := f.closer.Close()
	f.closer = nil
	return err
}

// Primary returns the first HDU
func (f *File) Primary() *Unit {
	return f.Units[0]
}

// Unit returns the first HDU whose EXTNAME matches name, ignoring case
// "PRIMARY" always selects the first HDU.
func (f *File) Unit(name string) (*Unit, error) {
	name = strings.ToUpper(name)
	if name == "PRIMARY" {
		return f.Units[0], nil
	}
	for _, h := range f.Units {
		if h.Name() == name {
			return h, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoUnit, name)
}

// skipData jumps over the data section of an unsupported extension
func (h *Unit) skipData(b *Reader) error {
	bitpix := h.Bitpix()
	if bitpix < 0 {
		bitpix = -bitpix
	}
	size := 0
	if len(h.Naxis) > 0 {
		size = 1
		for _, x := range h.Naxis {
			size *= x
		}
	}
	pcount, _ := h.Keys.Int("PCOUNT")
	gcount, _ := h.Keys.Int("GCOUNT")
	if gcount == 0 {
		gcount = 1
	}
	return b.Skip(bitpix / 8 * gcount * (pcount + size))
}

func validBitpix(n int) bool {
	return n == 8 || n == 16 || n == 32 || n == 64 || n == -32 || n == -64
}

// verifyPrimary verifies a primary (SIMPLE) header for correctness and the presence of mandatory keys
func (h *Unit) verifyPrimary() error {
	if _, ok := h.Keys["SIMPLE"]; !ok {
		return fmt.Errorf("fits: no SIMPLE in the primary header")
	}
	n, err := h.Keys.Int("BITPIX")
	if err != nil {
		return fmt.Errorf("fits: no BITPIX in the primary header")
	}
	if !validBitpix(n) {
		return fmt.Errorf("fits: invalid BITPIX value %d", n)
	}
	n, err = h.Keys.Int("NAXIS")
	if err != nil {
		return fmt.Errorf("fits: no NAXIS in the primary header")
	}
	for i := 1; i <= n; i++ {
		s := Nth("NAXIS", i)
		if _, err := h.Keys.Int(s); err != nil {
			return fmt.Errorf("fits: no %v in the primary header", s)
		}
	}
	return nil
}

// verifyExtension verifies a secondary (XTENSION) header for correctness and the presence of mandatory keys
func (h *Unit) verifyExtension() error {
	xten, err := h.Keys.String("XTENSION")
	if err != nil {
		return fmt.Errorf("fits: no XTENSION in the extended header")
	}
	n, err := h.Keys.Int("BITPIX")
	if err != nil {
		return fmt.Errorf("fits: no BITPIX in the extended header")
	}
	if !validBitpix(n) {
		return fmt.Errorf("fits: invalid BITPIX value %d", n)
	}
	naxis, err := h.Keys.Int("NAXIS")
	if err != nil {
		return fmt.Errorf("fits: no NAXIS in the extended header")
	}
	for i := 1; i <= naxis; i++ {
		s := Nth("NAXIS", i)
		if _, err := h.Keys.Int(s); err != nil {
			return fmt.Errorf("fits: no %v in the extended header", s)
		}
	}
	// some writers leave out PCOUNT and GCOUNT when they hold their defaults of 0 and 1
	pcount, err := h.Keys.Int("PCOUNT")
	if errors.Is(err, ErrKeyNotFound) {
		pcount = 0
		h.Keys["PCOUNT"] = pcount
	} else if err != nil {
		return fmt.Errorf("fits: invalid PCOUNT in the extended header: %w", err)
	}
	if _, err := h.Keys.Int("GCOUNT"); errors.Is(err, ErrKeyNotFound) {
		h.Keys["GCOUNT"] = 1
	} else if err != nil {
		return fmt.Errorf("fits: invalid GCOUNT in the extended header: %w", err)
	}
	switch xten {
	case "IMAGE":
		if pcount != 0 {
			return fmt.Errorf("fits: PCOUNT should be 0 in IMAGE header")
		}
	case "TABLE", "BINTABLE":
		if n != 8 {
			return fmt.Errorf("fits: BITPIX should be 8 in TABLE/BINTABLE headers")
		}
		if naxis != 2 {
			return fmt.Errorf("fits: NAXIS should be 2 in TABLE/BINTABLE headers")
		}
	}
	return nil
}
