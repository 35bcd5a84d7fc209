package track

import "backend-voltride/internal/shared/geo"

// GpsPoint is a single GPS fix. Altitude, Speed and Accuracy are nil when the
// device did not report them. Timestamp is unix milliseconds.
type GpsPoint struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Altitude  *float64 `json:"altitude,omitempty"`
	Timestamp int64    `json:"timestamp"`
	Speed     *float64 `json:"speed,omitempty"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
}

func (p GpsPoint) LatLng() geo.Point {
	return geo.Point{Lat: p.Latitude, Lng: p.Longitude}
}

// SpeedKmh converts the reported speed from m/s. ok is false when the fix
// carries no speed.
func (p GpsPoint) SpeedKmh() (float64, bool) {
	if p.Speed == nil {
		return 0, false
	}
	return *p.Speed * 3.6, true
}

// Track accumulates the ordered fixes of one active ride together with its
// running aggregates. It is not safe for concurrent use; the recording
// component is the single writer.
type Track struct {
	points      []GpsPoint
	distanceM   float64
	maxSpeedKmh float64
	finalized   bool
}

func NewTrack() *Track {
	return &Track{}
}

// Append adds a fix. Fixes whose timestamp does not advance past the last
// accepted one are dropped, as is anything after Finalize.
func (t *Track) Append(p GpsPoint) bool {
	if t.finalized {
		return false
	}
	if n := len(t.points); n > 0 {
		last := t.points[n-1]
		if p.Timestamp <= last.Timestamp {
			return false
		}
		t.distanceM += geo.HaversineM(last.LatLng(), p.LatLng())
	}
	if kmh, ok := p.SpeedKmh(); ok && kmh > t.maxSpeedKmh {
		t.maxSpeedKmh = kmh
	}
	t.points = append(t.points, p)
	return true
}

func (t *Track) Len() int {
	return len(t.points)
}

// Points returns a copy of the accepted fixes in arrival order.
func (t *Track) Points() []GpsPoint {
	out := make([]GpsPoint, len(t.points))
	copy(out, t.points)
	return out
}

func (t *Track) DistanceM() float64 {
	return t.distanceM
}

func (t *Track) DurationSec() float64 {
	if len(t.points) < 2 {
		return 0
	}
	first := t.points[0].Timestamp
	last := t.points[len(t.points)-1].Timestamp
	return float64(last-first) / 1000
}

func (t *Track) MaxSpeedKmh() float64 {
	return t.maxSpeedKmh
}

func (t *Track) AvgSpeedKmh() float64 {
	dur := t.DurationSec()
	if dur <= 0 {
		return 0
	}
	return t.distanceM / dur * 3.6
}

func (t *Track) StartedAt() int64 {
	if len(t.points) == 0 {
		return 0
	}
	return t.points[0].Timestamp
}

func (t *Track) EndedAt() int64 {
	if len(t.points) == 0 {
		return 0
	}
	return t.points[len(t.points)-1].Timestamp
}

func (t *Track) Finalized() bool {
	return t.finalized
}

// Finalize freezes the track and returns its points. Compression runs on the
// returned slice, never on a track that is still accumulating.
func (t *Track) Finalize() []GpsPoint {
	t.finalized = true
	return t.Points()
}

// TotalDistanceM sums the haversine distance over consecutive points.
func TotalDistanceM(points []GpsPoint) float64 {
	total := 0.0
	for i := 1; i < len(points); i++ {
		total += geo.HaversineM(points[i-1].LatLng(), points[i].LatLng())
	}
	return total
}
