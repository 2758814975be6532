// File: internal/events/models/cloudevent.go
package models

import (
	"encoding/json"
	"time"
)

// CloudEventSpecVersion is the CloudEvents spec version.
const CloudEventSpecVersion = "1.0"

// CloudEventSource is the source attribute of the CloudEvents produced by
// this service.
const CloudEventSource = "/session-service"

// CloudEventDataContentType is the content type of the data attribute.
const CloudEventDataContentType = "application/json"

// CloudEvent represents a CloudEvents v1.0 compliant event structure. Data is
// kept raw so consumers unmarshal only the payloads they handle.
type CloudEvent struct {
	SpecVersion     string                 `json:"specversion"`
	ID              string                 `json:"id"`
	Source          string                 `json:"source"`
	Type            string                 `json:"type"`
	DataContentType string                 `json:"datacontenttype,omitempty"`
	Subject         string                 `json:"subject,omitempty"`
	Time            time.Time              `json:"time"`
	Data            json.RawMessage        `json:"data,omitempty"`
	Extensions      map[string]interface{} `json:"extensions,omitempty"`
}
