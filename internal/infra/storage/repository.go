package storage

import (
	"context"

	"github.com/applyflow/applyflow/internal/core/domain"
)

// ApplicantRepository handles applicant storage operations
type ApplicantRepository interface {
	// Insert persists a new applicant together with the communication that
	// introduced them, in one transaction. Returns 0 when the applicant's
	// email address already exists.
	Insert(ctx context.Context, applicant *domain.Applicant, initial *domain.Communication) (int64, error)

	// GetActiveThreads lists thread references for applicants not in a
	// terminal status
	GetActiveThreads(ctx context.Context) ([]domain.ActiveThread, error)

	// UpdateThreadID rewrites an applicant's thread reference; nil clears it
	UpdateThreadID(ctx context.Context, applicantID int64, threadID *string) error

	// UpdateStatus moves an applicant to a new pipeline status
	UpdateStatus(ctx context.Context, applicantID int64, status domain.ApplicantStatus) error

	// UpdateFeedback stores reviewer feedback text
	UpdateFeedback(ctx context.Context, applicantID int64, feedback string) error

	// BulkUpdateStatus moves several applicants at once
	BulkUpdateStatus(ctx context.Context, applicantIDs []int64, status domain.ApplicantStatus) error

	// Stats returns applicant counts per status and domain
	Stats(ctx context.Context) (*domain.StorageStats, error)
}

// CommunicationRepository handles per-applicant message history
type CommunicationRepository interface {
	// Insert records a message. Returns 0 when the provider message ID was
	// already recorded.
	Insert(ctx context.Context, comm *domain.Communication) (int64, error)

	// KnownMessageIDs lists provider message IDs already stored for an
	// applicant
	KnownMessageIDs(ctx context.Context, applicantID int64) (map[string]struct{}, error)
}
