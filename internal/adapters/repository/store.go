// Package repository defines the measurement store capability and an
// in-memory implementation. The engine treats the store as a passive
// record keeper: it owns id uniqueness, referential integrity, and
// user-cascade deletes, and performs no derived computation.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Fai/poc-fitness-assistant-ai/internal/domain/model"
)

// Store provides append and query access to the measurement log.
type Store interface {
	// Append persists a measurement. A reused id fails with
	// ErrDuplicateID, making retried writes idempotent.
	Append(ctx context.Context, m model.Measurement) error

	// ByID returns a user's measurement by id, or ErrNotFound.
	ByID(ctx context.Context, userID, id uuid.UUID) (model.Measurement, error)

	// QueryRange returns a user's measurements for one modality with
	// RecordedAt in [from, to), ordered ascending by RecordedAt. The
	// result is a consistent snapshot of committed rows.
	QueryRange(ctx context.Context, userID uuid.UUID, modality model.Modality, from, to time.Time) ([]model.Measurement, error)

	// MarkAnomaly flips the post-hoc anomaly flag on a stored row.
	MarkAnomaly(ctx context.Context, userID, id uuid.UUID, anomaly bool) error

	// Delete removes a single measurement. Used by the engine to unwind
	// an append whose derived update failed.
	Delete(ctx context.Context, userID, id uuid.UUID) error

	// DeleteUser cascades: every row owned by the user is removed.
	DeleteUser(ctx context.Context, userID uuid.UUID) error

	// Count returns the number of stored measurements.
	Count(ctx context.Context) int
}
