package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// PollsTotal counts status polls that resolved, successfully or not.
	PollsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bikectl_polls_total",
			Help: "Total number of resolved status polls against the device controller.",
		},
	)

	// PollFailuresTotal counts polls that ended in a transport error.
	PollFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bikectl_poll_failures_total",
			Help: "Total number of status polls that failed at the transport boundary.",
		},
	)

	// SnapshotsDroppedTotal counts snapshots discarded by the staleness filter.
	SnapshotsDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bikectl_snapshots_dropped_stale_total",
			Help: "Total number of snapshots dropped for carrying an older timestamp than the last accepted one.",
		},
	)

	// TicksSkippedTotal counts poll ticks skipped while a fetch was outstanding.
	TicksSkippedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bikectl_ticks_skipped_total",
			Help: "Total number of poll ticks skipped because the previous fetch had not resolved.",
		},
	)

	// DeviceOnline mirrors the device health state (1=online, 0=stale or offline).
	DeviceOnline = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bikectl_device_online",
			Help: "Whether the device controller is considered reachable (1=online, 0=stale/offline).",
		},
	)

	// CommandsTotal counts dispatched commands by action and result.
	CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bikectl_commands_total",
			Help: "Total number of control commands dispatched, by action and result.",
		},
		[]string{"action", "result"},
	)

	// CommandLatency observes round-trip time of accepted commands.
	CommandLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bikectl_command_latency_seconds",
			Help:    "Latency of commands accepted by the device controller.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"action"},
	)
)

func init() {
	prometheus.MustRegister(
		PollsTotal,
		PollFailuresTotal,
		SnapshotsDroppedTotal,
		TicksSkippedTotal,
		DeviceOnline,
		CommandsTotal,
		CommandLatency,
	)
	DeviceOnline.Set(1)
}
