package control

import "codeberg.org/veloq/bikectl/internal/errors"

const (
	// Guard rejections: no network call was made
	ErrCommandInFlight = errors.ErrorCode("control_command_in_flight")
	ErrAlreadyInState  = errors.ErrorCode("control_noop_transition")

	// Dispatch failures
	ErrCommandRejected = errors.ErrorCode("control_command_rejected")
	ErrCommandFailed   = errors.ErrorCode("control_command_send_failed")
)
