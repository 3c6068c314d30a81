package device

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"codeberg.org/veloq/bikectl/internal/errors"
	"codeberg.org/veloq/bikectl/internal/logger"
	"codeberg.org/veloq/bikectl/internal/telemetry"
)

const (
	statusPath  = "/status"
	commandPath = "/command"

	maxResponseBytes = 1 << 20
)

// ClientConfig holds the transport settings for an HTTP client.
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
}

// HTTPClient talks to the device controller's REST surface.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a client for the controller at cfg.BaseURL. The
// timeout bounds every request end to end.
func NewHTTPClient(cfg ClientConfig) (*HTTPClient, error) {
	errFactory := errors.New()

	base := strings.TrimRight(cfg.BaseURL, "/")
	parsed, err := url.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, errFactory.WithData(ErrInvalidBaseURL, cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		return nil, errFactory.WithData(ErrInvalidTimeout, cfg.Timeout)
	}

	return &HTTPClient{
		baseURL: base,
		http:    &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// FetchSnapshot reads the status endpoint and decodes one telemetry
// snapshot. Connectivity failures, non-success response codes and
// malformed payloads all come back as domain errors.
func (c *HTTPClient) FetchSnapshot(ctx context.Context) (*telemetry.Snapshot, error) {
	errFactory := errors.New()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+statusPath, nil)
	if err != nil {
		return nil, errFactory.Wrap(ErrRequestFailed, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errFactory.Wrap(ErrUnreachable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, errFactory.Wrap(ErrUnreachable, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, errFactory.WithMessage(ErrBadStatus,
			fmt.Sprintf("status endpoint answered %s", resp.Status))
	}

	snapshot, err := telemetry.Decode(body)
	if err != nil {
		return nil, errFactory.Wrap(ErrMalformedPayload, err)
	}

	return snapshot, nil
}

// commandResponse is the controller's answer on the command endpoint. The
// original firmware answers "success" where newer builds answer "ok";
// both count as accepted.
type commandResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (r commandResponse) accepted() bool {
	return r.Status == "ok" || r.Status == "success"
}

// SendCommand posts the action to the command endpoint. A response that
// reached the controller but was rejected maps to an error Outcome; only
// failures to deliver or to understand the response are returned as
// errors.
func (c *HTTPClient) SendCommand(ctx context.Context, action Action) (Outcome, error) {
	errFactory := errors.New()

	if !action.IsValid() {
		return Outcome{}, errFactory.WithData(ErrInvalidAction, action)
	}

	payload, err := json.Marshal(struct {
		Action string `json:"action"`
	}{Action: action.String()})
	if err != nil {
		return Outcome{}, errFactory.Wrap(ErrRequestFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+commandPath, bytes.NewReader(payload))
	if err != nil {
		return Outcome{}, errFactory.Wrap(ErrRequestFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Outcome{}, errFactory.Wrap(ErrUnreachable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Outcome{}, errFactory.Wrap(ErrUnreachable, err)
	}

	var decoded commandResponse
	if decodeErr := json.Unmarshal(body, &decoded); decodeErr != nil {
		if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
			return Outcome{}, errFactory.Wrap(ErrMalformedPayload, decodeErr)
		}
		// Rejected without a readable body. Still an outcome: the request
		// was delivered.
		return Outcome{
			Status:  OutcomeError,
			Message: fmt.Sprintf("command endpoint answered %s", resp.Status),
		}, nil
	}

	if resp.StatusCode >= http.StatusBadRequest || !decoded.accepted() {
		logger.Debug().
			Str("action", action.String()).
			Int("http_status", resp.StatusCode).
			Str("message", decoded.Message).
			Msg("command rejected by controller")

		message := decoded.Message
		if message == "" {
			message = fmt.Sprintf("command endpoint answered %s", resp.Status)
		}

		return Outcome{Status: OutcomeError, Message: message}, nil
	}

	return Outcome{Status: OutcomeSuccess, Message: decoded.Message}, nil
}
