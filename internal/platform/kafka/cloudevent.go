// Package kafka wraps segmentio/kafka-go with the CloudEvents envelope the
// tour service publishes and consumes.
package kafka

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SpecVersion is the CloudEvents version written into every envelope.
const SpecVersion = "1.0"

// CloudEvent is a structured-mode CloudEvents envelope with a JSON payload.
type CloudEvent struct {
	SpecVersion     string          `json:"specversion"`
	ID              string          `json:"id"`
	Source          string          `json:"source"`
	Type            string          `json:"type"`
	Subject         string          `json:"subject,omitempty"`
	Time            time.Time       `json:"time"`
	DataContentType string          `json:"datacontenttype"`
	Data            json.RawMessage `json:"data"`
}

// NewCloudEvent marshals data into a new envelope.
func NewCloudEvent(source, eventType string, data any) (CloudEvent, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return CloudEvent{}, fmt.Errorf("marshal %s data: %w", eventType, err)
	}
	return CloudEvent{
		SpecVersion:     SpecVersion,
		ID:              uuid.New().String(),
		Source:          source,
		Type:            eventType,
		Time:            time.Now().UTC(),
		DataContentType: "application/json",
		Data:            raw,
	}, nil
}

// ParseCloudEvent decodes an envelope and checks its required attributes.
func ParseCloudEvent(b []byte) (CloudEvent, error) {
	var evt CloudEvent
	if err := json.Unmarshal(b, &evt); err != nil {
		return CloudEvent{}, err
	}
	if evt.Type == "" || evt.ID == "" {
		return CloudEvent{}, errors.New("cloud event missing id or type")
	}
	return evt, nil
}

// ParseData decodes the payload into v.
func (e CloudEvent) ParseData(v any) error {
	if len(e.Data) == 0 {
		return errors.New("cloud event has no data")
	}
	return json.Unmarshal(e.Data, v)
}
