package sampling

import "time"

// Zone buckets the rider's current speed.
type Zone int

const (
	ZoneStationary Zone = iota
	ZoneSlow
	ZoneMedium
	ZoneFast
)

func (z Zone) String() string {
	switch z {
	case ZoneStationary:
		return "stationary"
	case ZoneSlow:
		return "slow"
	case ZoneMedium:
		return "medium"
	case ZoneFast:
		return "fast"
	default:
		return "unknown"
	}
}

// Zone boundaries in km/h.
const (
	slowZoneKmh   = 3.0
	mediumZoneKmh = 15.0
	fastZoneKmh   = 30.0
)

// minZoneDwell is the hysteresis window: once a zone change committed,
// further changes are suppressed until it has passed.
const minZoneDwell = 5 * time.Second

// Accuracy names the platform location accuracy tier to request.
type Accuracy string

const (
	AccuracyLow      Accuracy = "low"
	AccuracyBalanced Accuracy = "balanced"
	AccuracyHigh     Accuracy = "high"
	AccuracyHighest  Accuracy = "highest"
)

// Config is one zone's sampling request: how often to ask for fixes, the
// distance filter and the accuracy tier.
type Config struct {
	Interval     time.Duration
	MinDistanceM float64
	Accuracy     Accuracy
}

// Canonical per-zone configs. They are selected, never mutated.
var zoneConfigs = [...]Config{
	ZoneStationary: {Interval: 5 * time.Second, MinDistanceM: 10, Accuracy: AccuracyLow},
	ZoneSlow:       {Interval: 3 * time.Second, MinDistanceM: 5, Accuracy: AccuracyBalanced},
	ZoneMedium:     {Interval: 2 * time.Second, MinDistanceM: 3, Accuracy: AccuracyHigh},
	ZoneFast:       {Interval: time.Second, MinDistanceM: 1, Accuracy: AccuracyHighest},
}

// Relative battery draw of each zone's config against the fast profile.
var consumptionWeight = [...]float64{0.3, 0.5, 0.7, 1.0}

// ZoneForSpeed maps a speed to its zone.
func ZoneForSpeed(kmh float64) Zone {
	switch {
	case kmh < slowZoneKmh:
		return ZoneStationary
	case kmh < mediumZoneKmh:
		return ZoneSlow
	case kmh < fastZoneKmh:
		return ZoneMedium
	default:
		return ZoneFast
	}
}

// ConfigForZone returns the canonical config of a zone.
func ConfigForZone(z Zone) Config {
	if z < ZoneStationary || z > ZoneFast {
		return zoneConfigs[ZoneStationary]
	}
	return zoneConfigs[z]
}

// Controller owns the sampling state of one active ride: the current zone,
// the hysteresis window and the per-zone update counters behind the battery
// savings estimate. It is not safe for concurrent use; the fix callback is
// the single writer.
type Controller struct {
	zone      Zone
	changedAt time.Time
	counts    [len(zoneConfigs)]int64
	now       func() time.Time
}

func NewController() *Controller {
	return &Controller{now: time.Now}
}

// UpdateSpeed feeds the latest speed and returns the active config plus
// whether the zone just changed. A change is committed only when the dwell
// window since the previous committed change has passed; suppressed updates
// still count against the current zone.
func (c *Controller) UpdateSpeed(speedKmh float64) (Config, bool) {
	target := ZoneForSpeed(speedKmh)
	changed := false
	if target != c.zone {
		now := c.now()
		if c.changedAt.IsZero() || now.Sub(c.changedAt) >= minZoneDwell {
			c.zone = target
			c.changedAt = now
			changed = true
		}
	}
	c.counts[c.zone]++
	return zoneConfigs[c.zone], changed
}

func (c *Controller) Zone() Zone {
	return c.zone
}

func (c *Controller) Config() Config {
	return zoneConfigs[c.zone]
}

// Counts returns the per-zone update counters, indexed by Zone.
func (c *Controller) Counts() [len(zoneConfigs)]int64 {
	return c.counts
}

// BatterySavingsPct estimates how much battery the adaptive cadence saved
// compared to sampling every update at the fast profile. 0 before any update.
func (c *Controller) BatterySavingsPct() float64 {
	var total int64
	weighted := 0.0
	for z, n := range c.counts {
		total += n
		weighted += float64(n) * consumptionWeight[z]
	}
	if total == 0 {
		return 0
	}
	baseline := float64(total) * consumptionWeight[ZoneFast]
	return (1 - weighted/baseline) * 100
}

// Reset clears counters and re-arms the controller for a new ride.
func (c *Controller) Reset() {
	c.zone = ZoneStationary
	c.changedAt = time.Time{}
	c.counts = [len(zoneConfigs)]int64{}
}
