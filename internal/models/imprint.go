package models

import "time"

// ImprintAction is the kind of location-linked action an imprint records.
type ImprintAction string

const (
	ImprintJob         ImprintAction = "job"
	ImprintVisit       ImprintAction = "visit"
	ImprintEvent       ImprintAction = "event"
	ImprintRebook      ImprintAction = "rebook"
	ImprintStampUnlock ImprintAction = "stamp_unlock"
)

// Imprint is an append-only record of a user's location-linked action.
// Imprints are created exactly once per logging call and never mutated;
// identical calls produce distinct records.
type Imprint struct {
	ID          string        `json:"id"`
	UserID      string        `json:"user_id"`
	Latitude    float64       `json:"latitude"`
	Longitude   float64       `json:"longitude"`
	Action      ImprintAction `json:"action"`
	Note        string        `json:"note,omitempty"`
	ServiceType *string       `json:"service_type,omitempty"`
	DropPointID *string       `json:"drop_point_id,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

// LogImprintRequest is the request body for recording an imprint. When the
// coordinate is omitted the engine substitutes the device's current
// position. The write itself is not distance-gated; proximity policy is
// the caller's decision, checked separately via the nearby query.
type LogImprintRequest struct {
	Action      ImprintAction `json:"action" validate:"required,oneof=job visit event rebook stamp_unlock"`
	Latitude    *float64      `json:"latitude,omitempty" validate:"omitempty,min=-90,max=90"`
	Longitude   *float64      `json:"longitude,omitempty" validate:"omitempty,min=-180,max=180"`
	Note        string        `json:"note,omitempty" validate:"max=500"`
	ServiceType *string       `json:"service_type,omitempty"`
	DropPointID *string       `json:"drop_point_id,omitempty"`
}
