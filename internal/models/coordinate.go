package models

import "time"

// Coordinate is a WGS84-style latitude/longitude pair in decimal degrees.
// It is treated as spherical for distance math only; no geodetic precision
// beyond a city-scale approximation is implied.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Position is a coordinate sourced from a live device, carrying the
// reported accuracy and the time the fix was recorded.
type Position struct {
	Coordinate
	AccuracyMeters float64   `json:"accuracy_meters,omitempty"`
	RecordedAt     time.Time `json:"recorded_at"`
}

// FuzzyLocation is a deliberately imprecise stand-in for a true coordinate.
// The true point lies within RadiusMeters of the fuzzy point. It is derived,
// ephemeral data and is never persisted as ground truth.
type FuzzyLocation struct {
	Coordinate
	RadiusMeters float64   `json:"radius_meters"`
	GeneratedAt  time.Time `json:"generated_at"`
}

// FuzzRequest is the request body for generating a fuzzy location.
type FuzzRequest struct {
	Latitude     float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude    float64 `json:"longitude" validate:"min=-180,max=180"`
	RadiusMeters float64 `json:"radius_meters"`
}
