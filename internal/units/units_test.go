package units

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Cups", "cup"},
		{" tablespoons ", "tbsp"},
		{"LBS", "lb"},
		{"oz.", "oz"},
		{"pieces", "each"},
		{"#10 can", "#10 can"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestConverter_SharedBaseUnit(t *testing.T) {
	c := NewConverter()

	tests := []struct {
		name string
		qty  float64
		from string
		to   string
		want float64
	}{
		{"same unit", 3, "cup", "cups", 3},
		{"kg to g", 2.5, "kg", "g", 2500},
		{"lb to oz", 1, "lb", "oz", 16},
		{"tbsp to tsp", 1, "tbsp", "tsp", 3},
		{"cups to tbsp", 1, "cup", "tbsp", 16},
		{"gallon to quarts", 1, "gal", "qt", 4},
		{"dozen to each", 2, "dozen", "each", 24},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Convert(tt.qty, tt.from, tt.to)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestConverter_DirectTableWins(t *testing.T) {
	c := NewConverter()
	// A kitchen's working approximation beats the exact built-in ratio.
	require.NoError(t, c.Register("lb", "g", 450))

	got, err := c.Convert(2, "lb", "g")
	require.NoError(t, err)
	assert.InDelta(t, 900, got, 1e-9)

	back, err := c.Convert(900, "g", "lb")
	require.NoError(t, err)
	assert.InDelta(t, 2, back, 1e-9)
}

func TestConverter_PathThroughEdges(t *testing.T) {
	c := NewConverter()
	require.NoError(t, c.Register("#10 can", "qt", 3))
	require.NoError(t, c.Register("egg", "g", 50))

	cups, err := c.Convert(1, "#10 can", "cup")
	require.NoError(t, err)
	assert.InDelta(t, 12, cups, 1e-9)

	lbs, err := c.Convert(10, "egg", "lb")
	require.NoError(t, err)
	assert.InDelta(t, 500/453.59237, lbs, 1e-9)

	cans, err := c.Convert(6, "qt", "#10 can")
	require.NoError(t, err)
	assert.InDelta(t, 2, cans, 1e-9)
}

func TestConverter_Unconvertible(t *testing.T) {
	c := NewConverter()

	_, err := c.Convert(1, "cup", "g")
	require.ErrorIs(t, err, ErrUnconvertibleUnits)

	_, err = c.Convert(1, "bunch", "each")
	require.ErrorIs(t, err, ErrUnconvertibleUnits)

	assert.False(t, c.CanConvert("kg", "l"))
	assert.True(t, c.CanConvert("kg", "lb"))
}

func TestConverter_RegisterRejectsNonPositive(t *testing.T) {
	c := NewConverter()
	assert.Error(t, c.Register("egg", "g", 0))
	assert.Error(t, c.Register("egg", "g", -1))
}

func TestDimensionOf(t *testing.T) {
	d, ok := DimensionOf("Tablespoons")
	require.True(t, ok)
	assert.Equal(t, Volume, d)

	_, ok = DimensionOf("bunch")
	assert.False(t, ok)
}
