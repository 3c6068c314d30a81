package control_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/veloq/bikectl/internal/control"
	"codeberg.org/veloq/bikectl/internal/device"
	"codeberg.org/veloq/bikectl/internal/errors"
	"codeberg.org/veloq/bikectl/internal/poller"
	"codeberg.org/veloq/bikectl/internal/telemetry"
)

// fakeClient answers SendCommand with a configured outcome. When gate is
// set, each send blocks until the gate closes.
type fakeClient struct {
	mu         sync.Mutex
	outcome    device.Outcome
	err        error
	gate       chan struct{}
	calls      int
	lastAction device.Action
}

func (f *fakeClient) FetchSnapshot(context.Context) (*telemetry.Snapshot, error) {
	return nil, nil
}

func (f *fakeClient) SendCommand(_ context.Context, action device.Action) (device.Outcome, error) {
	f.mu.Lock()
	f.calls++
	f.lastAction = action
	gate := f.gate
	outcome, err := f.outcome, f.err
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	return outcome, err
}

func (f *fakeClient) sendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls
}

func snapshot(immobilized bool, ts int64) *telemetry.Snapshot {
	return &telemetry.Snapshot{Immobilized: immobilized, Timestamp: ts}
}

func TestNoopTransitionRejectedWithoutNetworkCall(t *testing.T) {
	client := &fakeClient{outcome: device.Outcome{Status: device.OutcomeSuccess}}
	c := control.NewController(client)

	c.OnSnapshot(snapshot(false, 100))

	err := c.RequestResume(context.Background())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, control.ErrAlreadyInState))
	assert.Zero(t, client.sendCount(), "a no-op transition must not hit the network")

	c.OnSnapshot(snapshot(true, 105))

	err = c.RequestImmobilize(context.Background())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, control.ErrAlreadyInState))
	assert.Zero(t, client.sendCount())
}

func TestSecondCommandRejectedWhilePending(t *testing.T) {
	gate := make(chan struct{})
	client := &fakeClient{
		outcome: device.Outcome{Status: device.OutcomeSuccess},
		gate:    gate,
	}
	c := control.NewController(client)
	c.OnSnapshot(snapshot(false, 100))

	result := make(chan error, 1)
	go func() {
		result <- c.RequestImmobilize(context.Background())
	}()

	require.Eventually(t, func() bool {
		return c.View().Pending
	}, 2*time.Second, time.Millisecond)

	err := c.RequestImmobilize(context.Background())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, control.ErrCommandInFlight))
	assert.Equal(t, 1, client.sendCount(), "the pending guard must block a second dispatch")

	close(gate)
	require.NoError(t, <-result)
	assert.False(t, c.View().Pending)
}

func TestRevertOnRejectedCommand(t *testing.T) {
	client := &fakeClient{
		outcome: device.Outcome{Status: device.OutcomeError, Message: "Safety override or failure"},
	}
	c := control.NewController(client)
	c.OnSnapshot(snapshot(false, 100))

	err := c.RequestImmobilize(context.Background())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, control.ErrCommandRejected))

	view := c.View()
	assert.False(t, view.Immobilized, "rejected command must revert to the confirmed value")
	assert.False(t, view.Pending)
	assert.Equal(t, "Safety override or failure", view.LastCommandError)
}

func TestRevertOnTransportError(t *testing.T) {
	client := &fakeClient{err: assert.AnError}
	c := control.NewController(client)
	c.OnSnapshot(snapshot(false, 100))

	err := c.RequestImmobilize(context.Background())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, control.ErrCommandFailed))

	view := c.View()
	assert.False(t, view.Immobilized)
	assert.False(t, view.Pending)
	assert.NotEmpty(t, view.LastCommandError)
}

func TestOptimisticLifecycle(t *testing.T) {
	gate := make(chan struct{})
	client := &fakeClient{
		outcome: device.Outcome{Status: device.OutcomeSuccess, Message: "Bike immobilized"},
		gate:    gate,
	}
	c := control.NewController(client)

	c.OnSnapshot(snapshot(false, 100))
	require.False(t, c.View().Immobilized)

	result := make(chan error, 1)
	go func() {
		result <- c.RequestImmobilize(context.Background())
	}()

	// While in flight: optimistic value displayed, pending set.
	require.Eventually(t, func() bool {
		v := c.View()
		return v.Pending && v.Immobilized
	}, 2*time.Second, time.Millisecond)

	close(gate)
	require.NoError(t, <-result)

	// Confirmed success: pending cleared, optimistic value still shown.
	view := c.View()
	assert.False(t, view.Pending)
	assert.True(t, view.Immobilized)
	assert.Empty(t, view.LastCommandError)

	// Ground truth catches up and clears the override.
	c.OnSnapshot(snapshot(true, 105))
	assert.True(t, c.View().Immobilized)

	// With the override gone the device value rules again.
	c.OnSnapshot(snapshot(false, 110))
	assert.False(t, c.View().Immobilized)
}

func TestDisagreementDropsOverrideAfterSecondSnapshot(t *testing.T) {
	client := &fakeClient{outcome: device.Outcome{Status: device.OutcomeSuccess}}
	c := control.NewController(client)
	c.OnSnapshot(snapshot(false, 100))

	require.NoError(t, c.RequestImmobilize(context.Background()))
	require.True(t, c.View().Immobilized)

	// First post-settlement disagreement: the override is retained.
	c.OnSnapshot(snapshot(false, 105))
	assert.True(t, c.View().Immobilized, "one disagreeing snapshot does not drop the override")

	// A second disagreement means the device is authoritative.
	c.OnSnapshot(snapshot(false, 110))
	assert.False(t, c.View().Immobilized)
}

func TestDisagreementWhilePendingDoesNotCount(t *testing.T) {
	gate := make(chan struct{})
	client := &fakeClient{
		outcome: device.Outcome{Status: device.OutcomeSuccess},
		gate:    gate,
	}
	c := control.NewController(client)
	c.OnSnapshot(snapshot(false, 100))

	result := make(chan error, 1)
	go func() {
		result <- c.RequestImmobilize(context.Background())
	}()
	require.Eventually(t, func() bool {
		return c.View().Pending
	}, 2*time.Second, time.Millisecond)

	// A reconciliation while pending must not clear pending or the override.
	c.OnSnapshot(snapshot(false, 102))
	view := c.View()
	assert.True(t, view.Pending)
	assert.True(t, view.Immobilized)

	close(gate)
	require.NoError(t, <-result)

	// The in-flight disagreement did not count: the override survives one
	// more disagreeing snapshot before being dropped.
	c.OnSnapshot(snapshot(false, 105))
	assert.True(t, c.View().Immobilized)
	c.OnSnapshot(snapshot(false, 110))
	assert.False(t, c.View().Immobilized)
}

func TestCommandAllowedBeforeFirstSnapshot(t *testing.T) {
	client := &fakeClient{outcome: device.Outcome{Status: device.OutcomeSuccess}}
	c := control.NewController(client)

	require.False(t, c.View().ImmobilizedKnown)

	require.NoError(t, c.RequestImmobilize(context.Background()))

	view := c.View()
	assert.True(t, view.ImmobilizedKnown)
	assert.True(t, view.Immobilized)
}

func TestViewTracksHealthAndFetchErrors(t *testing.T) {
	client := &fakeClient{}
	c := control.NewController(client)

	assert.Equal(t, poller.HealthOnline, c.View().Health)

	c.OnFetchError(assert.AnError)
	c.OnHealthChange(poller.HealthStale)

	view := c.View()
	assert.Equal(t, poller.HealthStale, view.Health)
	assert.NotEmpty(t, view.LastFetchError)

	// The next accepted snapshot clears the stale error.
	c.OnSnapshot(snapshot(false, 100))
	c.OnHealthChange(poller.HealthOnline)

	view = c.View()
	assert.Equal(t, poller.HealthOnline, view.Health)
	assert.Empty(t, view.LastFetchError)
}
