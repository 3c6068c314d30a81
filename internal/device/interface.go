package device

import (
	"context"

	"codeberg.org/veloq/bikectl/internal/telemetry"
)

// Action is a control command accepted by the device controller.
type Action string

const (
	ActionImmobilize Action = "immobilize"
	ActionResume     Action = "resume"
)

// IsValid returns whether the action is one the controller understands.
func (a Action) IsValid() bool {
	return a == ActionImmobilize || a == ActionResume
}

// String implements the Stringer interface
func (a Action) String() string {
	return string(a)
}

// Target returns the immobilization state the action requests.
func (a Action) Target() bool {
	return a == ActionImmobilize
}

// OutcomeStatus distinguishes an accepted command from a rejected one.
type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "success"
	OutcomeError   OutcomeStatus = "error"
)

// Outcome is the controller's answer to a command that reached it. A
// rejected command is an Outcome with OutcomeError, not a transport error.
type Outcome struct {
	Status  OutcomeStatus
	Message string
}

// OK reports whether the command was accepted.
func (o Outcome) OK() bool {
	return o.Status == OutcomeSuccess
}

// Client is the transport boundary to the device controller. Every
// transport failure is returned as a domain error; nothing panics across
// this boundary. Neither operation retries internally.
type Client interface {
	// FetchSnapshot reads the controller's status endpoint.
	FetchSnapshot(ctx context.Context) (*telemetry.Snapshot, error)

	// SendCommand posts an action to the controller's command endpoint.
	SendCommand(ctx context.Context, action Action) (Outcome, error)
}
