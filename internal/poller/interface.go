package poller

import "codeberg.org/veloq/bikectl/internal/telemetry"

// Health is the poller's view of device reachability.
type Health string

const (
	// HealthOnline means the last poll succeeded.
	HealthOnline Health = "online"
	// HealthStale means at least one poll has failed since the last
	// accepted snapshot; the previous snapshot is still the best view.
	HealthStale Health = "stale"
	// HealthOffline means the failure threshold has been crossed.
	HealthOffline Health = "offline"
)

// String implements the Stringer interface
func (h Health) String() string {
	return string(h)
}

// Sink consumes poller output. Sinks are invoked sequentially on the poll
// goroutine and must not block.
type Sink interface {
	// OnSnapshot delivers an accepted snapshot. Snapshots arrive with
	// non-decreasing timestamps.
	OnSnapshot(s *telemetry.Snapshot)

	// OnFetchError signals a failed poll. The last accepted snapshot
	// remains valid.
	OnFetchError(err error)

	// OnHealthChange signals a device health transition.
	OnHealthChange(h Health)
}
