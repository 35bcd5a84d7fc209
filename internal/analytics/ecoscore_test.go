package analytics

import (
	"math"
	"testing"

	"pgregory.net/rapid"
)

func TestScoreRideSteadyRide(t *testing.T) {
	score := ScoreRide(RideStats{
		DistanceM:   5000,
		DurationSec: 900,
		AvgSpeedKmh: 20,
		MaxSpeedKmh: 25,
	})

	if score.Breakdown["optimal_speed"] != 100 {
		t.Errorf("optimal speed: got %v", score.Breakdown["optimal_speed"])
	}
	if score.Grade != "S" && score.Grade != "A" {
		t.Errorf("steady ride should grade S or A, got %s (total %d)", score.Grade, score.Total)
	}
	if score.Total < 85 || score.Total > 90 {
		t.Errorf("total: got %d", score.Total)
	}
}

func TestScoreRideSlowStopAndGo(t *testing.T) {
	score := ScoreRide(RideStats{
		DistanceM:        1000,
		DurationSec:      600,
		AvgSpeedKmh:      5,
		MaxSpeedKmh:      10,
		StopCount:        6,
		SuddenAccelCount: 2,
		SuddenBrakeCount: 2,
	})

	if score.Total >= 50 {
		t.Fatalf("slow stop-and-go ride should score under 50, got %d", score.Total)
	}
	if score.Breakdown["stop_efficiency"] != 0 {
		t.Errorf("six stops on one km should floor the stop score: %v", score.Breakdown["stop_efficiency"])
	}
}

func TestScoreRidePerfect(t *testing.T) {
	score := ScoreRide(RideStats{
		DistanceM:      6000,
		DurationSec:    1200,
		AvgSpeedKmh:    18,
		MaxSpeedKmh:    24,
		BatteryWhPerKm: floatPtr(9),
	})

	if score.Total != 100 || score.Grade != "S" {
		t.Fatalf("got total %d grade %s", score.Total, score.Grade)
	}
	if len(score.Tips) != 1 || score.Tips[0] != ecoPositiveTip {
		t.Fatalf("healthy ride should get the positive tip, got %v", score.Tips)
	}
}

func TestScoreRideWorst(t *testing.T) {
	score := ScoreRide(RideStats{
		DistanceM:        500,
		DurationSec:      60,
		AvgSpeedKmh:      45,
		MaxSpeedKmh:      60,
		StopCount:        20,
		SuddenAccelCount: 15,
		SuddenBrakeCount: 15,
		BatteryWhPerKm:   floatPtr(40),
	})

	if score.Grade != "D" {
		t.Fatalf("got grade %s (total %d)", score.Grade, score.Total)
	}
	if score.Total > 5 {
		t.Fatalf("total: got %d", score.Total)
	}
}

func TestScoreRideBattery(t *testing.T) {
	base := RideStats{DistanceM: 3000, DurationSec: 600, AvgSpeedKmh: 18}

	cases := []struct {
		name string
		wh   *float64
		want float64
	}{
		{"unknown", nil, 50},
		{"at base", floatPtr(10), 100},
		{"below base clamps", floatPtr(5), 100},
		{"over base", floatPtr(20), 50},
		{"way over", floatPtr(40), 0},
	}
	for _, tc := range cases {
		stats := base
		stats.BatteryWhPerKm = tc.wh
		got := ScoreRide(stats).Breakdown["battery_efficiency"]
		if got != tc.want {
			t.Errorf("%s: got %v want %v", tc.name, got, tc.want)
		}
	}
}

func TestScoreRideOverSpeedPenalty(t *testing.T) {
	score := ScoreRide(RideStats{DistanceM: 5000, DurationSec: 600, AvgSpeedKmh: 30})
	// 5 km/h over the band: 100 - 6.67*5.
	if got := score.Breakdown["optimal_speed"]; math.Abs(got-66.65) > 0.01 {
		t.Fatalf("got %v", got)
	}
}

func TestScoreRideTipsOrderAndCap(t *testing.T) {
	score := ScoreRide(RideStats{
		DistanceM:        1000,
		DurationSec:      600,
		AvgSpeedKmh:      8,
		MaxSpeedKmh:      12,
		StopCount:        3,
		SuddenAccelCount: 5,
		SuddenBrakeCount: 5,
	})

	// All five sub-scores are under threshold here; only the first three
	// tips may surface, in declaration order.
	if len(score.Tips) != maxTips {
		t.Fatalf("tips: got %d", len(score.Tips))
	}
	for i, tip := range score.Tips {
		if tip != ecoTips[i].msg {
			t.Fatalf("tip %d out of order: %q", i, tip)
		}
	}
}

func TestScoreRideCO2(t *testing.T) {
	score := ScoreRide(RideStats{DistanceM: 10000, DurationSec: 1800, AvgSpeedKmh: 20})
	if math.Abs(score.CO2SavedKg-1.15) > 0.0001 {
		t.Fatalf("co2: got %v", score.CO2SavedKg)
	}
}

func TestScoreRideRanges(t *testing.T) {
	grades := map[string]bool{"S": true, "A": true, "B": true, "C": true, "D": true}

	rapid.Check(t, func(rt *rapid.T) {
		stats := RideStats{
			DistanceM:        rapid.Float64Range(0, 100000).Draw(rt, "distance"),
			DurationSec:      rapid.Float64Range(0, 7200).Draw(rt, "duration"),
			AvgSpeedKmh:      rapid.Float64Range(0, 60).Draw(rt, "avg"),
			MaxSpeedKmh:      rapid.Float64Range(0, 80).Draw(rt, "max"),
			StopCount:        rapid.IntRange(0, 50).Draw(rt, "stops"),
			SuddenAccelCount: rapid.IntRange(0, 50).Draw(rt, "accels"),
			SuddenBrakeCount: rapid.IntRange(0, 50).Draw(rt, "brakes"),
		}
		if rapid.Bool().Draw(rt, "hasBattery") {
			stats.BatteryWhPerKm = floatPtr(rapid.Float64Range(0, 100).Draw(rt, "wh"))
		}

		score := ScoreRide(stats)
		if score.Total < 0 || score.Total > 100 {
			rt.Fatalf("total out of range: %d", score.Total)
		}
		if !grades[score.Grade] {
			rt.Fatalf("unknown grade %q", score.Grade)
		}
		if len(score.Breakdown) != 5 {
			rt.Fatalf("breakdown keys: %d", len(score.Breakdown))
		}
		for key, v := range score.Breakdown {
			if v < 0 || v > 100 {
				rt.Fatalf("%s out of range: %v", key, v)
			}
		}
		if len(score.Tips) < 1 || len(score.Tips) > maxTips {
			rt.Fatalf("tips count: %d", len(score.Tips))
		}
	})
}
