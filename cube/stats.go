// Copyright 2026 The sospex Authors. All rights reserved.
// Use of this source code is governed by a MIT license that can be found in the LICENSE file.

package cube

import (
	"errors"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/interp"
)

// nanMedian returns the median of the non-NaN values of x, or NaN if there are none
func nanMedian(x []float64) float64 {
	s := make([]float64, 0, len(x))
	for _, v := range x {
		if !math.IsNaN(v) {
			s = append(s, v)
		}
	}
	if len(s) == 0 {
		return math.NaN()
	}
	slices.Sort(s)
	m := len(s) / 2
	if len(s)%2 == 1 {
		return s[m]
	}
	return (s[m-1] + s[m]) / 2
}

// linearAxis samples a linear FITS axis: cdelt*(i - crpix + 1) + crval for i in [0, n)
func linearAxis(n int, crpix, crval, cdelt float64) []float64 {
	axis := make([]float64, n)
	for i := range axis {
		axis[i] = cdelt*(float64(i)-crpix+1) + crval
	}
	return axis
}

// nearest returns the index of the sample of x closest to x0
func nearest(x []float64, x0 float64) int {
	d := make([]float64, len(x))
	copy(d, x)
	floats.AddConst(-x0, d)
	for i, v := range d {
		d[i] = math.Abs(v)
	}
	return floats.MinIdx(d)
}

// medianStep returns the median of the successive differences of x
func medianStep(x []float64) float64 {
	if len(x) < 2 {
		return math.NaN()
	}
	d := make([]float64, len(x)-1)
	floats.SubTo(d, x[1:], x[:len(x)-1])
	return nanMedian(d)
}

// resample interpolates the curve (xs, ys) linearly at every point of x
// Points outside the curve take the value of its nearest end. xs must be strictly increasing.
func resample(x, xs, ys []float64) ([]float64, error) {
	if len(xs) != len(ys) {
		return nil, errors.New("abscissae and ordinates differ in length")
	}
	if len(xs) < 2 {
		return nil, errors.New("fewer than two points")
	}
	for i := 1; i < len(xs); i++ {
		if !(xs[i] > xs[i-1]) {
			return nil, errors.New("abscissae are not strictly increasing")
		}
	}

	var pl interp.PiecewiseLinear
	if err := pl.Fit(xs, ys); err != nil {
		return nil, err
	}
	out := make([]float64, len(x))
	for i, v := range x {
		if math.IsNaN(v) {
			out[i] = math.NaN()
			continue
		}
		out[i] = pl.Predict(v)
	}
	return out, nil
}
