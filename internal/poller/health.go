package poller

import (
	"context"

	"github.com/looplab/fsm"

	"codeberg.org/veloq/bikectl/internal/logger"
	"codeberg.org/veloq/bikectl/internal/metrics"
)

const (
	eventFetchFailed = "fetch_failed"
	eventUnreachable = "unreachable"
	eventRecovered   = "recovered"
)

// healthTracker drives the online -> stale -> offline machine from poll
// results. Transitions are reported through notify.
type healthTracker struct {
	machine *fsm.FSM
	notify  func(Health)
}

func newHealthTracker(notify func(Health)) *healthTracker {
	t := &healthTracker{notify: notify}

	t.machine = fsm.NewFSM(
		HealthOnline.String(),
		fsm.Events{
			{Name: eventFetchFailed, Src: []string{HealthOnline.String()}, Dst: HealthStale.String()},
			{Name: eventUnreachable, Src: []string{HealthStale.String()}, Dst: HealthOffline.String()},
			{Name: eventRecovered, Src: []string{HealthStale.String(), HealthOffline.String()}, Dst: HealthOnline.String()},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				h := Health(e.Dst)
				if h == HealthOnline {
					metrics.DeviceOnline.Set(1)
				} else {
					metrics.DeviceOnline.Set(0)
				}
				t.notify(h)
			},
		},
	)

	return t
}

// observeFailure records one failed poll. The first failure marks the view
// stale; reaching the threshold marks the device offline.
func (t *healthTracker) observeFailure(ctx context.Context, consecutive, threshold int) {
	if t.machine.Can(eventFetchFailed) {
		t.fire(ctx, eventFetchFailed)
	}
	if consecutive >= threshold && t.machine.Can(eventUnreachable) {
		t.fire(ctx, eventUnreachable)
	}
}

// observeSuccess records one successful poll.
func (t *healthTracker) observeSuccess(ctx context.Context) {
	if t.machine.Can(eventRecovered) {
		t.fire(ctx, eventRecovered)
	}
}

func (t *healthTracker) fire(ctx context.Context, event string) {
	if err := t.machine.Event(ctx, event); err != nil {
		logger.Debug().Err(err).Str("event", event).Msg("health transition not taken")
	}
}
