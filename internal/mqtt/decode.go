package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fireguard/internal/models"
)

var ErrInvalidPayload = errors.New("invalid sensor payload")

type sensorPayload struct {
	Temperature *float64 `json:"temperature"`
	Gas         *float64 `json:"gas"`
}

// DecodeReading parses a sensor/response payload. Both fields must be
// present and numeric.
func DecodeReading(payload []byte, receivedAt time.Time) (models.Measurement, error) {
	var p sensorPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return models.Measurement{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if p.Temperature == nil {
		return models.Measurement{}, fmt.Errorf("%w: missing temperature", ErrInvalidPayload)
	}
	if p.Gas == nil {
		return models.Measurement{}, fmt.Errorf("%w: missing gas", ErrInvalidPayload)
	}
	return models.Measurement{
		Temperature: *p.Temperature,
		Gas:         *p.Gas,
		ReceivedAt:  receivedAt,
	}, nil
}
