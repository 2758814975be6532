// File: internal/service/events.go
package service

import (
	"context"

	eventModels "github.com/gameplatform/session-service/internal/events/models"
)

// EventPublisher publishes lifecycle events. Services tolerate a nil
// publisher; eventing is optional and never on the critical path.
type EventPublisher interface {
	Publish(ctx context.Context, eventType eventModels.EventType, subject string, payload interface{}) error
}
