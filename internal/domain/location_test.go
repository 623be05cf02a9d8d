package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocationFromCode(t *testing.T) {
	loc, err := LocationFromCode("A1-03-2-01")
	require.NoError(t, err)
	assert.Equal(t, "A1", loc.Aisle)
	assert.Equal(t, "03", loc.Bay)
	assert.Equal(t, "2", loc.Level)
	assert.Equal(t, "01", loc.Position)
	assert.Equal(t, "A1-03-2-01", loc.Code())

	loc, err = LocationFromCode("B4-12-1")
	require.NoError(t, err)
	assert.Empty(t, loc.Position)
	assert.Equal(t, "B4-12-1", loc.Code())

	_, err = LocationFromCode("A1-03")
	assert.Error(t, err)
}

func TestLocationDistance(t *testing.T) {
	tests := []struct {
		name string
		a    Location
		b    Location
		want float64
	}{
		{
			name: "same location",
			a:    NewLocation("A1", "03", "2", "01"),
			b:    NewLocation("A1", "03", "2", "01"),
			want: 0,
		},
		{
			name: "aisle dominates",
			a:    NewLocation("A1", "03", "2", "01"),
			b:    NewLocation("A3", "03", "2", "01"),
			want: 200,
		},
		{
			name: "bays count tens",
			a:    NewLocation("A1", "03", "2", "01"),
			b:    NewLocation("A1", "07", "2", "01"),
			want: 40,
		},
		{
			name: "levels count ones",
			a:    NewLocation("A1", "03", "2", "01"),
			b:    NewLocation("A1", "03", "4", "01"),
			want: 2,
		},
		{
			name: "combined",
			a:    NewLocation("A1", "01", "1", "01"),
			b:    NewLocation("A2", "03", "3", "01"),
			want: 122,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.a.Distance(tt.b)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestLocationDistanceNonNumeric(t *testing.T) {
	a := NewLocation("A1", "XX", "2", "01")
	b := NewLocation("A1", "03", "2", "01")

	_, err := a.Distance(b)
	assert.Error(t, err)

	// Non-numeric aisles fall back to lexicographic comparison and still work
	c := NewLocation("MEZZ", "03", "2", "01")
	d := NewLocation("DOCK", "03", "2", "01")
	got, err := c.Distance(d)
	require.NoError(t, err)
	assert.InDelta(t, 100, got, 1e-9)
}
