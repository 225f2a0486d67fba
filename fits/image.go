// Copyright 2014 Shahriar Iravanian (siravan@svtsim.com).  All rights reserved.
// Use of this source code is governed by a MIT license that can be found in the LICENSE file.

package fits

import (
	"encoding/binary"
	"fmt"
	"math"
)

// number is the set of pixel types allowed by BITPIX
type number interface {
	~uint8 | ~int16 | ~int32 | ~int64 | ~float32 | ~float64
}

// index is a helper function the returns the index of the pixel pointed by a... in a flat Data array
func (h *Unit) index(a ...int) int {
	var index int
	for i := len(h.Naxis) - 1; i >= 0; i-- {
		index = index*h.Naxis[i] + a[i]
	}
	return index
}

// size returns the number of pixels of an image HDU
func (h *Unit) size() int {
	if len(h.Naxis) == 0 {
		return 0
	}
	prod := 1
	for _, x := range h.Naxis {
		prod *= x
	}
	return prod
}

// Shape returns the image axes slowest first (NAXISn, ..., NAXIS1), the row-major shape of Data
func (h *Unit) Shape() []int {
	shape := make([]int, len(h.Naxis))
	for i, x := range h.Naxis {
		shape[len(h.Naxis)-1-i] = x
	}
	return shape
}

// decode converts big-endian raw bytes into a typed pixel slice and installs the accessor functions
func decode[T number](h *Unit, raw []byte, width int, conv func([]byte) T) []T {
	data := make([]T, len(raw)/width)
	for i := range data {
		data[i] = conv(raw[i*width : (i+1)*width])
	}
	h.Data = data
	h.At = func(a ...int) interface{} {
		return data[h.index(a...)]
	}
	h.IntAt = func(a ...int) int64 {
		return int64(data[h.index(a...)])
	}
	h.FloatAt = func(a ...int) float64 {
		return float64(data[h.index(a...)])
	}
	return data
}

// loadData processes the image type data sections
// It allocates Data, populates it, and sets the appropriate pixel accessor functions
func (h *Unit) loadData(b *Reader) error {
	prod := h.size()
	if prod == 0 {
		h.Data = []byte{}
		h.At = func(a ...int) interface{} {
			return nil
		}
		h.IntAt = func(a ...int) int64 {
			return 0
		}
		h.FloatAt = func(a ...int) float64 {
			return 0
		}
		h.Blank = func(a ...int) bool {
			return true
		}
		return nil
	}

	bitpix := h.Bitpix()
	width := bitpix / 8
	if width < 0 {
		width = -width
	}
	raw := make([]byte, prod*width)
	if _, err := b.Read(raw); err != nil {
		return fmt.Errorf("fits: reading %s data: %w", h.Name(), err)
	}

	switch bitpix { // Data type is determined based on bitpix
	case 8:
		decode(h, raw, 1, func(p []byte) uint8 { return p[0] })
	case 16:
		decode(h, raw, 2, func(p []byte) int16 { return int16(binary.BigEndian.Uint16(p)) })
	case 32:
		decode(h, raw, 4, func(p []byte) int32 { return int32(binary.BigEndian.Uint32(p)) })
	case 64:
		decode(h, raw, 8, func(p []byte) int64 { return int64(binary.BigEndian.Uint64(p)) })
	case -32:
		decode(h, raw, 4, func(p []byte) float32 { return math.Float32frombits(binary.BigEndian.Uint32(p)) })
	case -64:
		decode(h, raw, 8, func(p []byte) float64 { return math.Float64frombits(binary.BigEndian.Uint64(p)) })
	}

	blank, err := h.Keys.Int("BLANK")
	switch {
	case err == nil && bitpix > 0: // Integer pixel type with defined BLANK
		h.Blank = func(a ...int) bool {
			return h.IntAt(a...) == int64(blank)
		}
	case bitpix < 0: // Float pixel type
		h.Blank = func(a ...int) bool {
			return math.IsNaN(h.FloatAt(a...))
		}
	default: // Integer pixel type with undefined BLANK
		h.Blank = func(a ...int) bool {
			return false
		}
	}

	return nil
}

// scaled applies BSCALE/BZERO to data; integer pixels equal to blank become NaN
func scaled[T number](data []T, blank *int64, scale, zero float64) []float64 {
	out := make([]float64, len(data))
	for i, v := range data {
		if blank != nil && int64(v) == *blank {
			out[i] = math.NaN()
			continue
		}
		out[i] = float64(v)*scale + zero
	}
	return out
}

// Floats returns the image data as float64 in physical units
// BSCALE and BZERO are applied; integer BLANK pixels map to NaN.
// The result is a fresh slice in the order of Data (NAXIS1 fastest).
func (h *Unit) Floats() ([]float64, error) {
	if !h.HasImage() {
		return nil, fmt.Errorf("fits: HDU %s has no image data", h.Name())
	}
	scale, err := h.Keys.Float("BSCALE")
	if err != nil {
		scale = 1
	}
	zero, err := h.Keys.Float("BZERO")
	if err != nil {
		zero = 0
	}
	var blank *int64
	if n, err := h.Keys.Int("BLANK"); err == nil {
		v := int64(n)
		blank = &v
	}

	switch data := h.Data.(type) {
	case []uint8:
		return scaled(data, blank, scale, zero), nil
	case []int16:
		return scaled(data, blank, scale, zero), nil
	case []int32:
		return scaled(data, blank, scale, zero), nil
	case []int64:
		return scaled(data, blank, scale, zero), nil
	case []float32:
		return scaled(data, nil, scale, zero), nil
	case []float64:
		return scaled(data, nil, scale, zero), nil
	}
	return nil, fmt.Errorf("fits: HDU %s has unsupported data type %T", h.Name(), h.Data)
}

// extrema returns the minimum and maximum of the pixels of data that pass keep
func extrema[T number](data []T, keep func(T) bool) (min float64, max float64) {
	min = math.MaxFloat64
	max = -math.MaxFloat64
	for _, v := range data {
		if !keep(v) {
			continue
		}
		x := float64(v)
		if x < min {
			min = x
		}
		if x > max {
			max = x
		}
	}
	return
}

// Stats returns the minimum and maximum values in the image data
// Blank pixels are ignored.
func (h *Unit) Stats() (min float64, max float64) {
	if h.size() <= 1 {
		return
	}

	blank, err := h.Keys.Int("BLANK")
	hasBlank := err == nil

	switch data := h.Data.(type) {
	case []uint8:
		return extrema(data, func(v uint8) bool { return !hasBlank || int(v) != blank })
	case []int16:
		return extrema(data, func(v int16) bool { return !hasBlank || int(v) != blank })
	case []int32:
		return extrema(data, func(v int32) bool { return !hasBlank || int(v) != blank })
	case []int64:
		return extrema(data, func(v int64) bool { return !hasBlank || v != int64(blank) })
	case []float32:
		return extrema(data, func(v float32) bool { return !math.IsNaN(float64(v)) })
	case []float64:
		return extrema(data, func(v float64) bool { return !math.IsNaN(v) })
	}
	return
}
