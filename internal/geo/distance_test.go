package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineIdenticalPoints(t *testing.T) {
	assert.Equal(t, 0.0, Haversine(45.5017, -73.5673, 45.5017, -73.5673))
}

func TestHaversineSymmetry(t *testing.T) {
	a := Haversine(45.5227, -73.5816, 45.4833, -73.5978)
	b := Haversine(45.4833, -73.5978, 45.5227, -73.5816)
	assert.Equal(t, a, b)
}

func TestHaversineKnownDistance(t *testing.T) {
	// Plateau-Mont-Royal to downtown Montreal, roughly 2.6 km.
	d := Haversine(45.5227, -73.5816, 45.5017, -73.5673)
	assert.InDelta(t, 2590, d, 60)
}

func TestOffsetByPolarRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		distance float64
		angle    float64
	}{
		{"east 1km", 1000, 0},
		{"north 1km", 1000, 1.5707963},
		{"southwest 500m", 500, 3.9269908},
		{"short hop", 25, 2.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lat, lon := OffsetByPolar(45.5017, -73.5673, tt.distance, tt.angle)
			back := Haversine(45.5017, -73.5673, lat, lon)
			// The equirectangular conversion is approximate; at city
			// scale the error stays well under one percent.
			assert.InDelta(t, tt.distance, back, tt.distance*0.01+0.5)
		})
	}
}
