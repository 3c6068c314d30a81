package poller

import "codeberg.org/veloq/bikectl/internal/errors"

const (
	ErrInvalidPollInterval = errors.ErrorCode("poller_invalid_interval")
	ErrInvalidThreshold    = errors.ErrorCode("poller_invalid_threshold")
	ErrMissingClient       = errors.ErrorCode("poller_missing_client")
)
