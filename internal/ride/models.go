package ride

import (
	"time"

	"backend-voltride/internal/analytics"
	"backend-voltride/internal/track"
)

// Ride is one persisted finished ride. Points holds the compressed polyline.
type Ride struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	GroupID         string    `json:"group_id,omitempty"`
	StartedAt       time.Time `json:"started_at"`
	EndedAt         time.Time `json:"ended_at"`
	DistanceM       float64   `json:"distance_m"`
	DurationSec     float64   `json:"duration_sec"`
	AvgSpeedKmh     float64   `json:"avg_speed_kmh"`
	MaxSpeedKmh     float64   `json:"max_speed_kmh"`
	EcoScore        int       `json:"eco_score"`
	EcoGrade        string    `json:"eco_grade"`
	CO2SavedKg      float64   `json:"co2_saved_kg"`
	OriginalCount   int       `json:"original_count"`
	CompressedCount int       `json:"compressed_count"`
	CreatedAt       time.Time `json:"created_at"`
}

// Summary is the live progress of a ride that is still recording.
type Summary struct {
	PointCount        int     `json:"point_count"`
	DistanceM         float64 `json:"distance_m"`
	DurationSec       float64 `json:"duration_sec"`
	AvgSpeedKmh       float64 `json:"avg_speed_kmh"`
	MaxSpeedKmh       float64 `json:"max_speed_kmh"`
	Zone              string  `json:"zone"`
	BatterySavingsPct float64 `json:"battery_savings_pct"`
}

// Result is the finalized artifact of one ride: the compressed polyline plus
// everything derived from the raw fixes.
type Result struct {
	Points   []track.GpsPoint   `json:"points"`
	Stats    track.Stats        `json:"compression"`
	Analysis analytics.Analysis `json:"analysis"`
	Eco      analytics.EcoScore `json:"eco"`
	Summary  Summary            `json:"summary"`
}
