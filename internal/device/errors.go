package device

import "codeberg.org/veloq/bikectl/internal/errors"

const (
	// Configuration errors
	ErrInvalidBaseURL = errors.ErrorCode("device_invalid_base_url")
	ErrInvalidTimeout = errors.ErrorCode("device_invalid_timeout")

	// Transport errors: the request never reached, or was not understood
	// by, the controller
	ErrUnreachable      = errors.ErrorCode("device_unreachable")
	ErrRequestFailed    = errors.ErrorCode("device_request_failed")
	ErrBadStatus        = errors.ErrorCode("device_bad_response_status")
	ErrMalformedPayload = errors.ErrorCode("device_malformed_payload")

	// Command errors
	ErrInvalidAction = errors.ErrorCode("device_invalid_action")
)
