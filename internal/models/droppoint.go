package models

import "time"

// DropPointType categorizes a fixed point of interest.
type DropPointType string

const (
	DropPointHistoric     DropPointType = "historic"
	DropPointEvent        DropPointType = "event"
	DropPointSeasonal     DropPointType = "seasonal"
	DropPointNeighborhood DropPointType = "neighborhood"
)

// DropPoint is an administered fixed point of interest that a user can
// "visit" to trigger an achievement. Read-only to this service.
type DropPoint struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Type         DropPointType `json:"type"`
	Latitude     float64       `json:"latitude"`
	Longitude    float64       `json:"longitude"`
	BonusStampID *string       `json:"bonus_stamp_id,omitempty"`
	Geohash      string        `json:"-"`
	CreatedAt    time.Time     `json:"created_at"`
}

// NearbyDropPoint is a drop point paired with its computed distance from
// the querying device, rounded to whole meters for display.
type NearbyDropPoint struct {
	DropPoint
	DistanceMeters int `json:"distance_meters"`
}
