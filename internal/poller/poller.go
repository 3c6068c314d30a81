package poller

import (
	"context"
	"time"

	"codeberg.org/veloq/bikectl/internal/device"
	"codeberg.org/veloq/bikectl/internal/errors"
	"codeberg.org/veloq/bikectl/internal/logger"
	"codeberg.org/veloq/bikectl/internal/metrics"
	"codeberg.org/veloq/bikectl/internal/telemetry"
)

// Config is the immutable runtime configuration of a Poller.
type Config struct {
	// Interval between poll ticks.
	Interval time.Duration
	// OfflineThreshold is the number of consecutive failed polls after
	// which the device counts as offline.
	OfflineThreshold int
}

// Poller keeps a fresh view of device telemetry by fetching snapshots on a
// fixed period and publishing them to its sinks. A failed poll never stops
// the loop.
type Poller struct {
	cfg    Config
	client device.Client
	sinks  []Sink
	health *healthTracker

	// Loop-owned state, touched only on the Run goroutine.
	last     *telemetry.Snapshot
	failures int
}

// New creates a poller with immutable config.
func New(cfg Config, client device.Client, sinks ...Sink) (*Poller, error) {
	errFactory := errors.New()

	if client == nil {
		return nil, errFactory.New(ErrMissingClient)
	}
	if cfg.Interval <= 0 {
		return nil, errFactory.WithData(ErrInvalidPollInterval, cfg.Interval)
	}
	if cfg.OfflineThreshold < 1 {
		return nil, errFactory.WithData(ErrInvalidThreshold, cfg.OfflineThreshold)
	}

	p := &Poller{
		cfg:    cfg,
		client: client,
		sinks:  sinks,
	}
	p.health = newHealthTracker(p.publishHealth)

	return p, nil
}

type fetchResult struct {
	snapshot *telemetry.Snapshot
	err      error
}

// Run drives the poll loop until ctx is cancelled. At most one fetch is
// outstanding at a time; ticks that fire during a slow fetch are skipped,
// not queued. Cancelling ctx stops the timer, and the result of any fetch
// still in flight is discarded.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	results := make(chan fetchResult, 1)
	inFlight := false

	logger.Info().Dur("interval", p.cfg.Interval).Msg("telemetry polling started")

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("telemetry polling stopped")
			return
		case <-ticker.C:
			if inFlight {
				metrics.TicksSkippedTotal.Inc()
				logger.Debug().Msg("previous fetch still outstanding, skipping tick")
				continue
			}
			inFlight = true
			go func() {
				s, err := p.client.FetchSnapshot(ctx)
				results <- fetchResult{snapshot: s, err: err}
			}()
		case r := <-results:
			inFlight = false
			if ctx.Err() != nil {
				// Stopped while the fetch was in flight; discard the result.
				logger.Info().Msg("telemetry polling stopped")
				return
			}
			p.handle(ctx, r)
		}
	}
}

func (p *Poller) handle(ctx context.Context, r fetchResult) {
	metrics.PollsTotal.Inc()

	if r.err != nil {
		p.failures++
		metrics.PollFailuresTotal.Inc()
		logger.Warn().
			Err(r.err).
			Int("consecutive_failures", p.failures).
			Msg("telemetry fetch failed")
		p.publishError(r.err)
		p.health.observeFailure(ctx, p.failures, p.cfg.OfflineThreshold)
		return
	}

	p.failures = 0
	p.health.observeSuccess(ctx)

	if p.last != nil && r.snapshot.Timestamp < p.last.Timestamp {
		metrics.SnapshotsDroppedTotal.Inc()
		logger.Debug().
			Int64("timestamp", r.snapshot.Timestamp).
			Int64("last_accepted", p.last.Timestamp).
			Msg("dropping out-of-order snapshot")
		return
	}

	p.last = r.snapshot
	p.publishSnapshot(r.snapshot)
}

func (p *Poller) publishSnapshot(s *telemetry.Snapshot) {
	for _, sink := range p.sinks {
		sink.OnSnapshot(s)
	}
}

func (p *Poller) publishError(err error) {
	for _, sink := range p.sinks {
		sink.OnFetchError(err)
	}
}

func (p *Poller) publishHealth(h Health) {
	logger.Info().Str("health", h.String()).Msg("device health changed")
	for _, sink := range p.sinks {
		sink.OnHealthChange(h)
	}
}
