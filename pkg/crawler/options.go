package crawler

import "time"

// Options configures a Crawler's pacing and lease-expiration behavior.
// Zero-value Options is usable: DefaultOptions() fills in the same
// defaults spec.md §4.6 specifies.
type Options struct {
	// SlowStart delays the crawler's very first cycle after process
	// startup, so a freshly restarted node doesn't immediately compete
	// with client traffic for disk I/O.
	SlowStart time.Duration

	// MinimumCycleTime is the floor on how often a full cycle (all 1024
	// prefixes) may run; a cycle that finishes early sleeps out the
	// remainder.
	MinimumCycleTime time.Duration

	// AllowedCPUPercentage caps the fraction of wall-clock time the
	// crawler spends working while scanning; after each prefix it sleeps
	// long enough that the wall-clock time spent on that prefix stays
	// within this fraction. CPU time itself is not measured. 0, or any
	// value of 1 or more, disables the check (uncapped).
	AllowedCPUPercentage float64

	// StatePath is where cycle state (last-cycle-finished timestamp and
	// resume cursor) is persisted between restarts.
	StatePath string

	// LeaseExpirationEnabled opts the crawler into deleting shares whose
	// leases have all expired (spec.md §4.6's set_lease_expiration).
	// Disabled by default: an operator must explicitly enable expiration
	// because it is destructive.
	LeaseExpirationEnabled bool

	// LeaseExpirationCutoff, when LeaseExpirationEnabled, returns the
	// time before which a lease's expiration_time counts as expired.
	// Defaults to time.Now if nil.
	LeaseExpirationCutoff func() time.Time
}

// DefaultOptions returns spec.md §4.6's defaults: a 7 minute slow start,
// a 12 hour minimum cycle time, no CPU cap, and lease expiration disabled.
func DefaultOptions() Options {
	return Options{
		SlowStart:        7 * time.Minute,
		MinimumCycleTime: 12 * time.Hour,
	}
}

func (o Options) cutoff() time.Time {
	if o.LeaseExpirationCutoff != nil {
		return o.LeaseExpirationCutoff()
	}
	return time.Now()
}
