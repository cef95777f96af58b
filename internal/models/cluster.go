package models

import "time"

// Cluster is a group booking spanning many physical units at one site,
// requiring a shared visiting schedule.
type Cluster struct {
	ID             string    `json:"id"`
	SiteName       string    `json:"site_name"`
	Address        string    `json:"address"`
	OrganizerID    string    `json:"organizer_id"`
	OrganizerEmail string    `json:"-"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

// ClusterParticipant is a signed-up member of a cluster. UnitID stays nil
// until the participant confirms which physical unit is theirs; only
// confirmed participants are scheduled.
type ClusterParticipant struct {
	ClusterID       string   `json:"cluster_id"`
	UserID          string   `json:"user_id"`
	DisplayName     string   `json:"display_name"`
	UnitID          *string  `json:"unit_id,omitempty"`
	PreferredBlocks []string `json:"preferred_blocks"`
}

// TimeBlock is a named wall-clock interval participants vote on for the
// cluster's shared service window. Times carry no date component and use
// the "15:04" layout.
type TimeBlock struct {
	ID        string `json:"id"`
	ClusterID string `json:"cluster_id"`
	Name      string `json:"name"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// ConfidenceTier grades how strongly participants agreed on the chosen block.
type ConfidenceTier string

const (
	ConfidenceHigh   ConfidenceTier = "high"
	ConfidenceMedium ConfidenceTier = "medium"
	ConfidenceLow    ConfidenceTier = "low"
)

// RouteStop is one unit's slot in the laid-out visiting schedule.
type RouteStop struct {
	UnitID string `json:"unit_id"`
	Start  string `json:"start"`
	End    string `json:"end"`
}

// OptimizationResult is the optimizer's output for one cluster: the chosen
// block, a confidence tier, the ordered non-overlapping visiting route and
// a human-readable summary. It is written whole or not at all, and a new
// run overwrites any prior result for the cluster.
type OptimizationResult struct {
	ClusterID   string         `json:"cluster_id"`
	BlockID     string         `json:"block_id"`
	BlockName   string         `json:"block_name"`
	Confidence  ConfidenceTier `json:"confidence"`
	Route       []RouteStop    `json:"route"`
	Summary     string         `json:"summary"`
	GeneratedAt time.Time      `json:"generated_at"`
}
