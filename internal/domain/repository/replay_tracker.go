// File: internal/domain/repository/replay_tracker.go
package repository

import (
	"context"

	"github.com/google/uuid"
)

// ReplayTracker counts rotated-token reuse incidents per session inside a
// rolling window. Advisory signal only; the rotation engine revokes the
// session regardless of what the tracker reports.
type ReplayTracker interface {
	// RecordReuse increments the session's reuse counter and returns the
	// total observed inside the current window.
	RecordReuse(ctx context.Context, sessionID uuid.UUID) (int64, error)

	// ReuseCount returns the session's current reuse count without
	// incrementing it.
	ReuseCount(ctx context.Context, sessionID uuid.UUID) (int64, error)
}
