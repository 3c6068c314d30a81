package telemetry

import (
	"encoding/json"
	"time"

	"codeberg.org/veloq/bikectl/internal/errors"
)

// Snapshot is one immutable reading of device telemetry. It is superseded
// by newer readings, never mutated in place.
type Snapshot struct {
	EngineTempC     float64  `json:"engine_temp_c"`
	BatteryVoltage  float64  `json:"battery_voltage"`
	TirePressureKpa float64  `json:"tire_pressure_kpa"`
	Moving          bool     `json:"moving"`
	GPSLat          *float64 `json:"gps_lat"`
	GPSLon          *float64 `json:"gps_lon"`
	Immobilized     bool     `json:"immobilization_status"`
	Timestamp       int64    `json:"timestamp"`
}

// statusEnvelope is the wrapped form the device controller serves on its
// status endpoint: {"status": "success", "data": {...}}.
type statusEnvelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
}

// Time returns the device-reported reading time.
func (s *Snapshot) Time() time.Time {
	return time.Unix(s.Timestamp, 0)
}

// HasFix reports whether the snapshot carries a GPS position.
func (s *Snapshot) HasFix() bool {
	return s.GPSLat != nil && s.GPSLon != nil
}

// Validate checks the snapshot invariants. Latitude and longitude must be
// both present or both absent.
func (s *Snapshot) Validate() error {
	if (s.GPSLat == nil) != (s.GPSLon == nil) {
		return errors.New().New(ErrPartialFix)
	}

	return nil
}

// Decode parses a status payload into a Snapshot. Both the bare snapshot
// object and the controller's {"status", "data"} envelope are accepted.
func Decode(body []byte) (*Snapshot, error) {
	errFactory := errors.New()

	if len(body) == 0 {
		return nil, errFactory.New(ErrEmptyPayload)
	}

	payload := body
	var envelope statusEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, errFactory.Wrap(ErrDecodeFailed, err)
	}
	if len(envelope.Data) > 0 {
		payload = envelope.Data
	} else if envelope.Status != "" {
		return nil, errFactory.WithMessage(ErrDecodeFailed, "status envelope without data: "+envelope.Status)
	}

	snapshot := &Snapshot{}
	if err := json.Unmarshal(payload, snapshot); err != nil {
		return nil, errFactory.Wrap(ErrDecodeFailed, err)
	}

	if err := snapshot.Validate(); err != nil {
		return nil, err
	}

	return snapshot, nil
}
