package storage

import (
	"context"

	"github.com/gokaycavdar/go-vpnsense/pkg/models"
)

// HistoryStore keeps the diagnostic records of past detection runs for operators.
// Implementations can use any backend: in-memory, Redis, etc.
//
// The detector only ever writes to it. A verdict is never derived from history.
//
// Records are already safe to persist: public addresses appear only as masked
// /24 or /64 prefixes.
type HistoryStore interface {
	// Save persists a finished verdict.
	Save(ctx context.Context, v *models.Verdict) error

	// Recent returns up to n verdicts, newest first.
	Recent(ctx context.Context, n int) ([]models.Verdict, error)
}
