package crawler

import "time"

// SetLeaseExpiration toggles lease-expiration enforcement and, when
// enabling it, the fixed cutoff time future reconciliation passes use
// (spec.md §4.6's set_lease_expiration). It takes effect on the next
// prefix this Crawler reconciles; "sharenodectl crawler force-cycle
// --expire-leases" calls it on the Crawler that command builds for its
// one cycle. RunCycle reads these same fields through
// leaseExpirationSettings under c.mu, so toggling concurrently with a
// running cycle is safe.
func (c *Crawler) SetLeaseExpiration(enabled bool, cutoff time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.options.LeaseExpirationEnabled = enabled
	if enabled {
		c.options.LeaseExpirationCutoff = func() time.Time { return cutoff }
	} else {
		c.options.LeaseExpirationCutoff = nil
	}
}

// leaseExpirationSettings returns the current lease-expiration policy
// under c.mu, so readers never race with a concurrent SetLeaseExpiration.
func (c *Crawler) leaseExpirationSettings() (enabled bool, cutoff time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.options.LeaseExpirationEnabled, c.options.cutoff()
}
