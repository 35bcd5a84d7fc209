package analytics

import (
	"errors"
	"math"

	"backend-voltride/internal/shared/geo"
	"backend-voltride/internal/track"
)

// Pair-pass thresholds. Speeds compare in km/h, accelerations in m/s².
const (
	maxPairGapSec     = 10.0
	noiseAccelMs2     = 15.0
	suddenAccelMs2    = 3.0
	movingSpeedKmh    = 3.0
	stoppedSpeedKmh   = 1.0
	minElevationStepM = 1.0
)

// ErrInsufficientData marks a ride too short to analyze.
var ErrInsufficientData = errors.New("analytics: need at least two points")

// Analysis is the outcome of one pass over a ride's points.
type Analysis struct {
	SuddenAccelCount int     `json:"sudden_accel_count"`
	SuddenBrakeCount int     `json:"sudden_brake_count"`
	AvgAccelMs2      float64 `json:"avg_accel_ms2"`
	MaxAccelMs2      float64 `json:"max_accel_ms2"`
	MinAccelMs2      float64 `json:"min_accel_ms2"`
	StopCount        int     `json:"stop_count"`
	ElevationGainM   float64 `json:"elevation_gain_m"`
	ElevationLossM   float64 `json:"elevation_loss_m"`
	MinElevationM    float64 `json:"min_elevation_m"`
	MaxElevationM    float64 `json:"max_elevation_m"`
	AvgGradientPct   float64 `json:"avg_gradient_pct"`
	DistanceM        float64 `json:"distance_m"`
}

// Analyze walks the points once, pair by pair. Pairs whose time delta is
// non-positive or larger than maxPairGapSec are GPS gaps and produce no
// derived events; the pass keeps going. Acceleration needs a reported speed
// on both ends of a pair, stop detection a reported speed on the current
// point. Fewer than two points is ErrInsufficientData.
func Analyze(points []track.GpsPoint) (Analysis, error) {
	if len(points) < 2 {
		return Analysis{}, ErrInsufficientData
	}

	var a Analysis
	var accelSum float64
	accelCount := 0
	moving := false
	var elevGate *float64
	haveAlt := false

	if kmh, ok := points[0].SpeedKmh(); ok && kmh > movingSpeedKmh {
		moving = true
	}
	if alt := points[0].Altitude; alt != nil {
		v := *alt
		elevGate = &v
		a.MinElevationM, a.MaxElevationM = v, v
		haveAlt = true
	}

	for i := 1; i < len(points); i++ {
		prev, cur := points[i-1], points[i]

		a.DistanceM += geo.HaversineM(prev.LatLng(), cur.LatLng())

		if alt := cur.Altitude; alt != nil {
			if !haveAlt {
				a.MinElevationM, a.MaxElevationM = *alt, *alt
				haveAlt = true
			} else {
				a.MinElevationM = math.Min(a.MinElevationM, *alt)
				a.MaxElevationM = math.Max(a.MaxElevationM, *alt)
			}
		}

		dt := float64(cur.Timestamp-prev.Timestamp) / 1000
		if dt <= 0 || dt > maxPairGapSec {
			continue
		}

		if prev.Speed != nil && cur.Speed != nil {
			accel := (*cur.Speed - *prev.Speed) / dt
			if math.Abs(accel) < noiseAccelMs2 {
				accelCount++
				accelSum += math.Abs(accel)
				if accelCount == 1 {
					a.MaxAccelMs2, a.MinAccelMs2 = accel, accel
				} else {
					a.MaxAccelMs2 = math.Max(a.MaxAccelMs2, accel)
					a.MinAccelMs2 = math.Min(a.MinAccelMs2, accel)
				}
				if accel >= suddenAccelMs2 {
					a.SuddenAccelCount++
				} else if accel <= -suddenAccelMs2 {
					a.SuddenBrakeCount++
				}
			}
		}

		if kmh, ok := cur.SpeedKmh(); ok {
			// The 1-3 km/h band is a dead zone so speed jitter near
			// walking pace cannot mint phantom stops.
			if kmh > movingSpeedKmh {
				moving = true
			} else if kmh < stoppedSpeedKmh && moving {
				a.StopCount++
				moving = false
			}
		}

		if alt := cur.Altitude; alt != nil {
			if elevGate == nil {
				v := *alt
				elevGate = &v
			} else if delta := *alt - *elevGate; math.Abs(delta) >= minElevationStepM {
				if delta > 0 {
					a.ElevationGainM += delta
				} else {
					a.ElevationLossM -= delta
				}
				v := *alt
				elevGate = &v
			}
		}
	}

	if accelCount > 0 {
		a.AvgAccelMs2 = accelSum / float64(accelCount)
	}
	if a.DistanceM > 0 {
		a.AvgGradientPct = (a.ElevationGainM + a.ElevationLossM) / a.DistanceM * 100
	}
	return a, nil
}
