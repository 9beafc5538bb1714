// Package store defines the persistence boundary for submission records:
// a key-value capability keyed by (student, exam), injected into the session
// engine so the backing medium can be swapped without touching it.
package store

import (
	"context"

	"github.com/acadion/examgate-backend/internal/model"
	"github.com/google/uuid"
)

// SubmissionStore holds at most one SubmissionRecord per (student, exam)
// pair. Put overwrites any prior record for the key (last-write-wins).
// Get returns (nil, nil) when no record exists; implementations must also
// report corrupted stored data as absent rather than failing the read.
// A non-nil error means the backend itself failed.
type SubmissionStore interface {
	Get(ctx context.Context, studentID int, examID uuid.UUID) (*model.SubmissionRecord, error)
	Put(ctx context.Context, studentID int, examID uuid.UUID, rec *model.SubmissionRecord) error
}
