package ride

import (
	"time"

	"backend-voltride/internal/analytics"
	"backend-voltride/internal/track"
)

// Finalize runs the post-ride pipeline over raw points: analytics, one
// compression pass and the eco score. It is the path for rides uploaded or
// loaded as plain point arrays; an active Recorder runs the same pipeline off
// its own track. battery may be nil.
func Finalize(points []track.GpsPoint, battery *float64) (Result, error) {
	analysis, err := analytics.Analyze(points)
	if err != nil {
		return Result{}, err
	}

	compressed, stats := track.Compress(points, track.Options{})
	summary := rawSummary(points, analysis.DistanceM)

	eco := analytics.ScoreRide(analytics.RideStats{
		DistanceM:        analysis.DistanceM,
		DurationSec:      summary.DurationSec,
		AvgSpeedKmh:      summary.AvgSpeedKmh,
		MaxSpeedKmh:      summary.MaxSpeedKmh,
		StopCount:        analysis.StopCount,
		SuddenAccelCount: analysis.SuddenAccelCount,
		SuddenBrakeCount: analysis.SuddenBrakeCount,
		BatteryWhPerKm:   battery,
	})

	return Result{
		Points:   compressed,
		Stats:    stats,
		Analysis: analysis,
		Eco:      eco,
		Summary:  summary,
	}, nil
}

func rawSummary(points []track.GpsPoint, distanceM float64) Summary {
	s := Summary{PointCount: len(points), DistanceM: distanceM}
	if len(points) < 2 {
		return s
	}
	s.DurationSec = float64(points[len(points)-1].Timestamp-points[0].Timestamp) / 1000
	if s.DurationSec > 0 {
		s.AvgSpeedKmh = distanceM / s.DurationSec * 3.6
	}
	for _, p := range points {
		if kmh, ok := p.SpeedKmh(); ok && kmh > s.MaxSpeedKmh {
			s.MaxSpeedKmh = kmh
		}
	}
	return s
}

// RideFromResult maps a finalized result onto the persisted row.
func RideFromResult(userID, groupID string, res Result) Ride {
	r := Ride{
		UserID:          userID,
		GroupID:         groupID,
		DistanceM:       res.Analysis.DistanceM,
		DurationSec:     res.Summary.DurationSec,
		AvgSpeedKmh:     res.Summary.AvgSpeedKmh,
		MaxSpeedKmh:     res.Summary.MaxSpeedKmh,
		EcoScore:        res.Eco.Total,
		EcoGrade:        res.Eco.Grade,
		CO2SavedKg:      res.Eco.CO2SavedKg,
		OriginalCount:   res.Stats.OriginalCount,
		CompressedCount: res.Stats.CompressedCount,
	}
	if n := len(res.Points); n > 0 {
		r.StartedAt = time.UnixMilli(res.Points[0].Timestamp)
		r.EndedAt = time.UnixMilli(res.Points[n-1].Timestamp)
	}
	return r
}
