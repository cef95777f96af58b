package models

// DemandTier classifies how contested bookings are inside a zone.
type DemandTier string

const (
	DemandLow    DemandTier = "low"
	DemandMedium DemandTier = "medium"
	DemandHigh   DemandTier = "high"
)

// ZoneCodeUnknown is returned by zone resolution when no zones are loaded
// and the fallback set is unavailable. Resolution never fails outright.
const ZoneCodeUnknown = "UNKNOWN"

// Zone is a named circular service area. Zones are administered externally
// and read-only to this service. The radius is informational (pricing and
// display); zone resolution assigns by nearest center, not containment.
type Zone struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Code            string     `json:"code"`
	Classification  string     `json:"classification"` // residential, commercial, premium
	Center          Coordinate `json:"center"`
	RadiusMeters    float64    `json:"radius_meters"`
	DemandTier      DemandTier `json:"demand_tier"`
	PriceMultiplier float64    `json:"price_multiplier"`
}

// ZoneResolution is the result of resolving a coordinate to its nearest zone.
// Degraded is set when the directory load failed and the hardcoded fallback
// set was used instead.
type ZoneResolution struct {
	Code           string  `json:"code"`
	ZoneName       string  `json:"zone_name,omitempty"`
	DistanceMeters float64 `json:"distance_meters"`
	Degraded       bool    `json:"degraded"`
}

// ZoneListResponse wraps the zone directory with its degraded flag so
// callers that care can tell a fallback directory from a live one.
type ZoneListResponse struct {
	Zones    []Zone `json:"zones"`
	Degraded bool   `json:"degraded"`
}
