package analytics

import "math"

// Sub-score weights, summing to 1.
const (
	weightStability      = 0.25
	weightOptimalSpeed   = 0.20
	weightStopEfficiency = 0.15
	weightBattery        = 0.25
	weightDistance       = 0.15
)

const (
	optimalSpeedMinKmh  = 15.0
	optimalSpeedMaxKmh  = 25.0
	overSpeedPenalty    = 6.67
	stabilityPenalty    = 33.3
	stopPenaltyPerKm    = 20.0
	batteryBaseWhPerKm  = 10.0
	batteryPenaltyPerWh = 5.0
	neutralBatteryScore = 50.0
	distanceBonusPerKm  = 20.0
	tipThreshold        = 70.0
	maxTips             = 3

	// kg CO2 per km: small car vs e-scooter.
	co2CarKgPerKm     = 0.12
	co2ScooterKgPerKm = 0.005
)

// RideStats bundles the ride aggregates the eco score reads.
type RideStats struct {
	DistanceM        float64  `json:"distance_m"`
	DurationSec      float64  `json:"duration_sec"`
	AvgSpeedKmh      float64  `json:"avg_speed_kmh"`
	MaxSpeedKmh      float64  `json:"max_speed_kmh"`
	StopCount        int      `json:"stop_count"`
	SuddenAccelCount int      `json:"sudden_accel_count"`
	SuddenBrakeCount int      `json:"sudden_brake_count"`
	BatteryWhPerKm   *float64 `json:"battery_wh_per_km,omitempty"`
}

// EcoScore grades how efficiently a ride was driven.
type EcoScore struct {
	Total      int                `json:"total"`
	Grade      string             `json:"grade"`
	Breakdown  map[string]float64 `json:"breakdown"`
	Tips       []string           `json:"tips"`
	CO2SavedKg float64            `json:"co2_saved_kg"`
}

var ecoTips = []struct {
	key string
	msg string
}{
	{"speed_stability", "Smooth out acceleration and braking to save energy."},
	{"optimal_speed", "Cruising between 15 and 25 km/h uses the battery best."},
	{"stop_efficiency", "Plan ahead to roll through fewer full stops."},
	{"battery_efficiency", "Consumption per km is high; ease off full throttle."},
	{"distance_bonus", "Longer rides replace more car trips."},
}

const ecoPositiveTip = "Great ride! Keep riding green."

// ScoreRide computes the weighted eco score for one finished ride.
func ScoreRide(stats RideStats) EcoScore {
	breakdown := map[string]float64{
		"speed_stability":    scoreStability(stats),
		"optimal_speed":      scoreOptimalSpeed(stats.AvgSpeedKmh),
		"stop_efficiency":    scoreStopEfficiency(stats),
		"battery_efficiency": scoreBattery(stats.BatteryWhPerKm),
		"distance_bonus":     scoreDistanceBonus(stats.DistanceM),
	}

	total := breakdown["speed_stability"]*weightStability +
		breakdown["optimal_speed"]*weightOptimalSpeed +
		breakdown["stop_efficiency"]*weightStopEfficiency +
		breakdown["battery_efficiency"]*weightBattery +
		breakdown["distance_bonus"]*weightDistance
	rounded := int(math.Round(total))

	return EcoScore{
		Total:      rounded,
		Grade:      gradeFor(rounded),
		Breakdown:  breakdown,
		Tips:       tipsFor(breakdown),
		CO2SavedKg: stats.DistanceM / 1000 * (co2CarKgPerKm - co2ScooterKgPerKm),
	}
}

func scoreStability(stats RideStats) float64 {
	minutes := stats.DurationSec / 60
	if minutes <= 0 {
		return 100
	}
	perMinute := float64(stats.SuddenAccelCount+stats.SuddenBrakeCount) / minutes
	return clampScore(100 - stabilityPenalty*perMinute)
}

func scoreOptimalSpeed(avgKmh float64) float64 {
	switch {
	case avgKmh <= 0:
		return 0
	case avgKmh < optimalSpeedMinKmh:
		return clampScore(avgKmh / optimalSpeedMinKmh * 100)
	case avgKmh <= optimalSpeedMaxKmh:
		return 100
	default:
		return clampScore(100 - overSpeedPenalty*(avgKmh-optimalSpeedMaxKmh))
	}
}

func scoreStopEfficiency(stats RideStats) float64 {
	km := stats.DistanceM / 1000
	if stats.StopCount == 0 || km <= 0 {
		return 100
	}
	return clampScore(100 - stopPenaltyPerKm*float64(stats.StopCount)/km)
}

func scoreBattery(whPerKm *float64) float64 {
	if whPerKm == nil {
		return neutralBatteryScore
	}
	excess := *whPerKm - batteryBaseWhPerKm
	if excess < 0 {
		excess = 0
	}
	return clampScore(100 - batteryPenaltyPerWh*excess)
}

func scoreDistanceBonus(distanceM float64) float64 {
	return clampScore(distanceM / 1000 * distanceBonusPerKm)
}

func gradeFor(total int) string {
	switch {
	case total >= 90:
		return "S"
	case total >= 75:
		return "A"
	case total >= 60:
		return "B"
	case total >= 40:
		return "C"
	default:
		return "D"
	}
}

// tipsFor picks up to maxTips coaching tips for sub-scores under the
// threshold, always in the ecoTips order, or a single positive message when
// everything is healthy.
func tipsFor(breakdown map[string]float64) []string {
	var tips []string
	for _, tip := range ecoTips {
		if len(tips) == maxTips {
			break
		}
		if breakdown[tip.key] < tipThreshold {
			tips = append(tips, tip.msg)
		}
	}
	if len(tips) == 0 {
		tips = append(tips, ecoPositiveTip)
	}
	return tips
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
