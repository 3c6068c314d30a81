package telemetry

import "codeberg.org/veloq/bikectl/internal/errors"

const (
	ErrDecodeFailed = errors.ErrorCode("telemetry_decode_failed")
	ErrPartialFix   = errors.ErrorCode("telemetry_partial_gps_fix")
	ErrEmptyPayload = errors.ErrorCode("telemetry_empty_payload")
)
