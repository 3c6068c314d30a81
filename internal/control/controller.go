package control

import (
	"context"
	"sync"
	"time"

	"codeberg.org/veloq/bikectl/internal/device"
	"codeberg.org/veloq/bikectl/internal/errors"
	"codeberg.org/veloq/bikectl/internal/logger"
	"codeberg.org/veloq/bikectl/internal/metrics"
	"codeberg.org/veloq/bikectl/internal/poller"
	"codeberg.org/veloq/bikectl/internal/telemetry"
)

// Controller serializes user-issued immobilization commands against device
// state and reconciles the optimistic prediction with confirmed snapshots.
// The device, not the dashboard, is authoritative: an optimistic value only
// survives until ground truth catches up or durably contradicts it.
type Controller struct {
	mu     sync.RWMutex
	client device.Client

	last       *telemetry.Snapshot
	pending    bool
	optimistic *bool
	// disagreed is set when a snapshot accepted after the command settled
	// still contradicts the optimistic value. A second contradiction drops
	// the override.
	disagreed bool

	health       poller.Health
	lastCmdError string
	lastFetchErr string
}

var _ poller.Sink = (*Controller)(nil)

// NewController creates a controller dispatching through client.
func NewController(client device.Client) *Controller {
	return &Controller{
		client: client,
		health: poller.HealthOnline,
	}
}

// View is what presentation consumers render.
type View struct {
	// Snapshot is the last accepted snapshot, nil before the first poll.
	Snapshot *telemetry.Snapshot
	// Immobilized is the displayed immobilization value: the optimistic
	// override when present, the confirmed value otherwise.
	Immobilized bool
	// ImmobilizedKnown is false until either a snapshot or an optimistic
	// override provides a value.
	ImmobilizedKnown bool
	// Pending is true while a command is in flight.
	Pending bool
	// Health is the poller's device reachability state.
	Health poller.Health
	// LastCommandError is the failure message of the most recent command,
	// empty after a success.
	LastCommandError string
	// LastFetchError is the most recent poll failure, cleared by the next
	// accepted snapshot.
	LastFetchError string
}

// RequestImmobilize asks the device to cut the engine.
func (c *Controller) RequestImmobilize(ctx context.Context) error {
	return c.request(ctx, device.ActionImmobilize)
}

// RequestResume asks the device to release the engine kill switch.
func (c *Controller) RequestResume(ctx context.Context) error {
	return c.request(ctx, device.ActionResume)
}

func (c *Controller) request(ctx context.Context, action device.Action) error {
	errFactory := errors.New()
	target := action.Target()

	c.mu.Lock()
	if c.pending {
		c.mu.Unlock()
		return errFactory.New(ErrCommandInFlight)
	}
	if known, value := c.displayedLocked(); known && value == target {
		c.mu.Unlock()
		return errFactory.WithData(ErrAlreadyInState, action)
	}

	c.pending = true
	optimistic := target
	c.optimistic = &optimistic
	c.disagreed = false
	c.mu.Unlock()

	logger.Info().Str("action", action.String()).Msg("dispatching command")

	start := time.Now()
	outcome, err := c.client.SendCommand(ctx, action)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = false

	if err != nil {
		// The command never reached the controller: revert immediately.
		c.optimistic = nil
		c.lastCmdError = err.Error()
		metrics.CommandsTotal.WithLabelValues(action.String(), "transport_error").Inc()
		return errFactory.Wrap(ErrCommandFailed, err)
	}

	if !outcome.OK() {
		// Delivered but rejected: revert and surface the message.
		c.optimistic = nil
		c.lastCmdError = outcome.Message
		metrics.CommandsTotal.WithLabelValues(action.String(), "rejected").Inc()
		return errFactory.WithMessage(ErrCommandRejected, outcome.Message)
	}

	// Accepted. The optimistic value stays displayed until a snapshot
	// confirms it.
	c.lastCmdError = ""
	metrics.CommandsTotal.WithLabelValues(action.String(), "success").Inc()
	metrics.CommandLatency.WithLabelValues(action.String()).Observe(time.Since(start).Seconds())

	return nil
}

// OnSnapshot reconciles the optimistic state with a confirmed snapshot.
func (c *Controller) OnSnapshot(s *telemetry.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.last = s
	c.lastFetchErr = ""

	if c.optimistic == nil {
		return
	}

	if s.Immobilized == *c.optimistic {
		// Ground truth caught up.
		c.optimistic = nil
		c.disagreed = false
		return
	}

	if c.pending {
		// The command has not settled; its outcome, not this snapshot,
		// decides the override.
		return
	}

	if c.disagreed {
		logger.Warn().
			Bool("optimistic", *c.optimistic).
			Bool("confirmed", s.Immobilized).
			Msg("device contradicts optimistic state, trusting device")
		c.optimistic = nil
		c.disagreed = false
		return
	}

	c.disagreed = true
}

// OnFetchError records a failed poll for the view.
func (c *Controller) OnFetchError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastFetchErr = err.Error()
}

// OnHealthChange records the poller's device health.
func (c *Controller) OnHealthChange(h poller.Health) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.health = h
}

// View returns the current consumer-facing state.
func (c *Controller) View() View {
	c.mu.RLock()
	defer c.mu.RUnlock()

	known, value := c.displayedLocked()

	return View{
		Snapshot:         c.last,
		Immobilized:      value,
		ImmobilizedKnown: known,
		Pending:          c.pending,
		Health:           c.health,
		LastCommandError: c.lastCmdError,
		LastFetchError:   c.lastFetchErr,
	}
}

func (c *Controller) displayedLocked() (known, value bool) {
	if c.optimistic != nil {
		return true, *c.optimistic
	}
	if c.last != nil {
		return true, c.last.Immobilized
	}

	return false, false
}
