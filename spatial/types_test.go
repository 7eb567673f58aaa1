// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package spatial

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointValid(t *testing.T) {
	tests := []struct {
		name  string
		point Point
		want  bool
	}{
		{"sao paulo", Point{Lat: -23.55, Lng: -46.63}, true},
		{"north pole", Point{Lat: 90, Lng: 0}, true},
		{"latitude too high", Point{Lat: 91, Lng: 0}, false},
		{"longitude too low", Point{Lat: 0, Lng: -181}, false},
		{"nan", Point{Lat: math.NaN(), Lng: 0}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.point.Valid())
		})
	}
}

func TestPointCell(t *testing.T) {
	p := Point{Lat: -23.5505, Lng: -46.6333}

	a, err := p.Cell(10)
	require.NoError(t, err)

	// a few meters away stays in the same cell
	b, err := Point{Lat: -23.55051, Lng: -46.63331}.Cell(10)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	_, err = Point{Lat: 100, Lng: 0}.Cell(10)
	assert.Error(t, err)
}

func TestHaversineDistance(t *testing.T) {
	se := &Point{Lat: -23.5505, Lng: -46.6333}
	paulista := &Point{Lat: -23.5614, Lng: -46.6559}

	d := se.HaversineDistance(paulista)
	assert.InDelta(t, 2600, d, 150)
	assert.InDelta(t, 0, se.HaversineDistance(se), 1e-9)
}
