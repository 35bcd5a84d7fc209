package ride

import (
	"errors"
	"sync"

	"backend-voltride/internal/analytics"
	"backend-voltride/internal/livesync"
	"backend-voltride/internal/sampling"
	"backend-voltride/internal/track"
)

// ErrFinished marks a recorder whose ride has already been finalized.
var ErrFinished = errors.New("ride: already finished")

// Recorder owns one active ride: the track, the sampling controller and an
// optional live session. All device callbacks funnel through its mutex, so the
// track and controller keep their single-writer contract.
type Recorder struct {
	mu       sync.Mutex
	track    *track.Track
	sampler  *sampling.Controller
	live     *livesync.Client
	battery  *float64
	finished bool
}

func NewRecorder() *Recorder {
	return &Recorder{
		track:   track.NewTrack(),
		sampler: sampling.NewController(),
	}
}

// AttachLive forwards subsequent fixes to a group session. The recorder does
// not own the connection lifecycle until Finish, which closes it.
func (r *Recorder) AttachLive(client *livesync.Client) {
	r.mu.Lock()
	r.live = client
	r.mu.Unlock()
}

// SetBatteryWhPerKm records the consumption reported by the scooter, used by
// the eco score at Finish. Unreported consumption scores neutral.
func (r *Recorder) SetBatteryWhPerKm(whPerKm float64) {
	r.mu.Lock()
	v := whPerKm
	r.battery = &v
	r.mu.Unlock()
}

// HandleFix feeds one GPS fix. It returns the sampling config to apply and
// whether it just changed. Stale fixes are dropped by the track but still
// leave the current config valid. When a live session is attached, the fix is
// forwarded; the client's own throttle decides whether it goes on the wire.
func (r *Recorder) HandleFix(p track.GpsPoint) (sampling.Config, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finished {
		return r.sampler.Config(), false
	}
	accepted := r.track.Append(p)

	kmh, _ := p.SpeedKmh()
	cfg, changed := r.sampler.UpdateSpeed(kmh)

	if accepted && r.live != nil {
		r.live.SendLocation(livesync.LocationUpdate{
			Latitude:    p.Latitude,
			Longitude:   p.Longitude,
			SpeedKmh:    kmh,
			DistanceM:   r.track.DistanceM(),
			DurationSec: int64(r.track.DurationSec()),
			IsRiding:    true,
			Timestamp:   p.Timestamp,
		})
	}
	return cfg, changed
}

// Snapshot reports the ride so far.
func (r *Recorder) Snapshot() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.summaryLocked()
}

func (r *Recorder) summaryLocked() Summary {
	return Summary{
		PointCount:        r.track.Len(),
		DistanceM:         r.track.DistanceM(),
		DurationSec:       r.track.DurationSec(),
		AvgSpeedKmh:       r.track.AvgSpeedKmh(),
		MaxSpeedKmh:       r.track.MaxSpeedKmh(),
		Zone:              r.sampler.Zone().String(),
		BatterySavingsPct: r.sampler.BatterySavingsPct(),
	}
}

// Finish freezes the track, runs one compression pass, the analytics pass and
// the eco score, and closes the live session if one is attached. A second call
// returns ErrFinished. Rides too short to analyze return the analytics error;
// the recorder still ends.
func (r *Recorder) Finish() (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finished {
		return Result{}, ErrFinished
	}
	r.finished = true
	if r.live != nil {
		r.live.Close()
		r.live = nil
	}

	raw := r.track.Finalize()
	summary := r.summaryLocked()

	analysis, err := analytics.Analyze(raw)
	if err != nil {
		return Result{Summary: summary}, err
	}

	compressed, stats := track.Compress(raw, track.Options{})

	eco := analytics.ScoreRide(analytics.RideStats{
		DistanceM:        analysis.DistanceM,
		DurationSec:      summary.DurationSec,
		AvgSpeedKmh:      summary.AvgSpeedKmh,
		MaxSpeedKmh:      summary.MaxSpeedKmh,
		StopCount:        analysis.StopCount,
		SuddenAccelCount: analysis.SuddenAccelCount,
		SuddenBrakeCount: analysis.SuddenBrakeCount,
		BatteryWhPerKm:   r.battery,
	})

	return Result{
		Points:   compressed,
		Stats:    stats,
		Analysis: analysis,
		Eco:      eco,
		Summary:  summary,
	}, nil
}
