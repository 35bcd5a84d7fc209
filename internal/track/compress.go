package track

import (
	"time"

	"backend-voltride/internal/shared/geo"
)

// DefaultMinInterval is the time-downsample floor applied by Compress when the
// caller does not override it. It matches the fastest sampling cadence, so the
// downsample pass only strips bursts above the normal fix rate.
const DefaultMinInterval = time.Second

// Options control a Compress run. Zero values select the defaults: the
// recommended epsilon for the track's length and DefaultMinInterval.
type Options struct {
	EpsilonM    float64
	MinInterval time.Duration
}

// Stats describes what a compression pass did.
type Stats struct {
	OriginalCount   int     `json:"original_count"`
	CompressedCount int     `json:"compressed_count"`
	Ratio           float64 `json:"ratio"`
	EpsilonM        float64 `json:"epsilon_m"`
}

// DownsampleByTime keeps points at least minInterval apart. The first and the
// last point always survive; order is preserved in a single pass.
func DownsampleByTime(points []GpsPoint, minInterval time.Duration) []GpsPoint {
	if len(points) <= 2 || minInterval <= 0 {
		return points
	}
	minMs := minInterval.Milliseconds()
	out := make([]GpsPoint, 0, len(points))
	out = append(out, points[0])
	lastTS := points[0].Timestamp
	for _, p := range points[1 : len(points)-1] {
		if p.Timestamp-lastTS >= minMs {
			out = append(out, p)
			lastTS = p.Timestamp
		}
	}
	return append(out, points[len(points)-1])
}

// CompressRDP simplifies the polyline with Ramer-Douglas-Peucker. Inputs of
// two points or fewer come back unchanged. epsilonM is the maximum tolerated
// perpendicular deviation in meters.
func CompressRDP(points []GpsPoint, epsilonM float64) []GpsPoint {
	if len(points) <= 2 {
		return points
	}

	first := points[0].LatLng()
	last := points[len(points)-1].LatLng()
	maxDist := 0.0
	maxIdx := 0
	for i := 1; i < len(points)-1; i++ {
		d := geo.PerpendicularDistanceM(points[i].LatLng(), first, last)
		if d > maxDist {
			maxDist = d
			maxIdx = i
		}
	}

	if maxDist > epsilonM {
		left := CompressRDP(points[:maxIdx+1], epsilonM)
		right := CompressRDP(points[maxIdx:], epsilonM)
		// maxIdx is the last point of left and the first of right.
		merged := make([]GpsPoint, 0, len(left)+len(right)-1)
		merged = append(merged, left...)
		return append(merged, right[1:]...)
	}
	return []GpsPoint{points[0], points[len(points)-1]}
}

// RecommendEpsilon maps a ride's total distance to the epsilon tier used when
// the caller does not pick one. Short rides keep more detail.
func RecommendEpsilon(distanceM float64) (float64, string) {
	switch {
	case distanceM < 1000:
		return 2, "high"
	case distanceM < 5000:
		return 5, "medium"
	case distanceM < 20000:
		return 10, "low"
	default:
		return 20, "minimal"
	}
}

// Compress runs the full pipeline: time downsample first, then RDP. It always
// reports Stats, even when the input is too small to shrink.
func Compress(points []GpsPoint, opts Options) ([]GpsPoint, Stats) {
	minInterval := opts.MinInterval
	if minInterval <= 0 {
		minInterval = DefaultMinInterval
	}
	eps := opts.EpsilonM
	if eps <= 0 {
		eps, _ = RecommendEpsilon(TotalDistanceM(points))
	}

	out := DownsampleByTime(points, minInterval)
	out = CompressRDP(out, eps)

	stats := Stats{
		OriginalCount:   len(points),
		CompressedCount: len(out),
		Ratio:           1,
		EpsilonM:        eps,
	}
	if len(points) > 0 {
		stats.Ratio = float64(len(out)) / float64(len(points))
	}
	return out, stats
}
