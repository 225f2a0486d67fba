// Copyright 2026 The sospex Authors. All rights reserved.
// Use of this source code is governed by a MIT license that can be found in the LICENSE file.

package cube

import (
	"errors"
	"fmt"
	"math"
)

// ErrShape is returned when arrays of a cube do not have consistent shapes
var ErrShape = errors.New("cube: inconsistent shape")

// Grid is a 3D array indexed [wavelength, y, x], stored x fastest
type Grid struct {
	Nz, Ny, Nx int
	Values     []float64
}

// NewGrid allocates a zero-filled grid
func NewGrid(nz, ny, nx int) *Grid {
	return &Grid{Nz: nz, Ny: ny, Nx: nx, Values: make([]float64, nz*ny*nx)}
}

// gridOf wraps values of the given row-major shape [nz, ny, nx]
func gridOf(values []float64, shape []int) (*Grid, error) {
	if len(shape) != 3 {
		return nil, fmt.Errorf("%w: want 3 axes, got %v", ErrShape, shape)
	}
	if shape[0]*shape[1]*shape[2] != len(values) {
		return nil, fmt.Errorf("%w: %d values for shape %v", ErrShape, len(values), shape)
	}
	return &Grid{Nz: shape[0], Ny: shape[1], Nx: shape[2], Values: values}, nil
}

// broadcast replicates a [ny, nx] map over nz wavelength planes
func broadcast(plane []float64, nz, ny, nx int) (*Grid, error) {
	if len(plane) != ny*nx {
		return nil, fmt.Errorf("%w: %d values for a %dx%d map", ErrShape, len(plane), ny, nx)
	}
	g := NewGrid(nz, ny, nx)
	for z := 0; z < nz; z++ {
		copy(g.Values[z*ny*nx:(z+1)*ny*nx], plane)
	}
	return g, nil
}

func (g *Grid) index(z, y, x int) int {
	return (z*g.Ny+y)*g.Nx + x
}

// At returns the value at (z, y, x)
func (g *Grid) At(z, y, x int) float64 {
	return g.Values[g.index(z, y, x)]
}

// Set stores v at (z, y, x)
func (g *Grid) Set(z, y, x int, v float64) {
	g.Values[g.index(z, y, x)] = v
}

// Plane returns the [ny, nx] image at wavelength index z, sharing storage with g
func (g *Grid) Plane(z int) []float64 {
	n := g.Ny * g.Nx
	return g.Values[z*n : (z+1)*n]
}

// Spaxel returns a copy of the spectrum at spatial pixel (y, x)
func (g *Grid) Spaxel(y, x int) []float64 {
	s := make([]float64, g.Nz)
	for z := range s {
		s[z] = g.At(z, y, x)
	}
	return s
}

// SameShape reports whether g and o have identical dimensions
func (g *Grid) SameShape(o *Grid) bool {
	return g.Nz == o.Nz && g.Ny == o.Ny && g.Nx == o.Nx
}

// Map applies fn to every value in place
func (g *Grid) Map(fn func(float64) float64) {
	for i, v := range g.Values {
		g.Values[i] = fn(v)
	}
}

// contains reports whether (x, y) is a spatial pixel of g
func (g *Grid) contains(x, y int) bool {
	return x >= 0 && x < g.Nx && y >= 0 && y < g.Ny
}

// finiteMask returns 1 where v is a number and 0 where it is NaN
func finiteMask(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return 1
}
