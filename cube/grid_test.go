// Copyright 2026 The sospex Authors. All rights reserved.
// Use of this source code is governed by a MIT license that can be found in the LICENSE file.

package cube

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGridOf(t *testing.T) {
	g, err := gridOf(ramp(12, 0, 1), []int{2, 3, 2})
	require.NoError(t, err)
	assert.Equal(t, 7.0, g.At(1, 0, 1))
	assert.Equal(t, []float64{6, 7, 8, 9, 10, 11}, g.Plane(1))
	assert.Equal(t, []float64{3, 9}, g.Spaxel(1, 1))

	_, err = gridOf(ramp(12, 0, 1), []int{12})
	assert.ErrorIs(t, err, ErrShape)
	_, err = gridOf(ramp(11, 0, 1), []int{2, 3, 2})
	assert.ErrorIs(t, err, ErrShape)
}

func TestGridSet(t *testing.T) {
	g := NewGrid(2, 2, 2)
	g.Set(1, 1, 0, 5)
	assert.Equal(t, 5.0, g.Values[6])
	assert.Equal(t, []float64{0, 5}, g.Spaxel(1, 0))

	// Plane shares storage, Spaxel does not
	g.Plane(0)[0] = 3
	s := g.Spaxel(0, 0)
	s[0] = 9
	assert.Equal(t, 3.0, g.At(0, 0, 0))
}

func TestBroadcast(t *testing.T) {
	g, err := broadcast([]float64{1, 2, 3, 4}, 3, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, g.Nz)
	for z := 0; z < g.Nz; z++ {
		assert.Equal(t, []float64{1, 2, 3, 4}, g.Plane(z))
	}

	_, err = broadcast([]float64{1, 2, 3}, 3, 2, 2)
	assert.ErrorIs(t, err, ErrShape)
}

func TestGridContains(t *testing.T) {
	g := NewGrid(1, 2, 3)
	assert.True(t, g.contains(2, 1))
	assert.False(t, g.contains(3, 0))
	assert.False(t, g.contains(0, 2))
	assert.False(t, g.contains(-1, 0))
	assert.True(t, g.SameShape(NewGrid(1, 2, 3)))
	assert.False(t, g.SameShape(NewGrid(1, 3, 2)))
}
