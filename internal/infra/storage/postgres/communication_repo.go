package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/applyflow/applyflow/internal/core/domain"
)

// CommunicationRepo implements storage.CommunicationRepository using PostgreSQL.
type CommunicationRepo struct {
	db *DB
}

// NewCommunicationRepo creates a new PostgreSQL communication repository.
func NewCommunicationRepo(db *DB) *CommunicationRepo {
	return &CommunicationRepo{db: db}
}

// Insert records a message. A message id already on file leaves the database
// untouched and returns 0.
func (r *CommunicationRepo) Insert(ctx context.Context, comm *domain.Communication) (int64, error) {
	query := `
		INSERT INTO communications (applicant_id, message_id, thread_id, sender, subject, body, direction)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (message_id) DO NOTHING
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		comm.ApplicantID,
		comm.MessageID,
		comm.ThreadID,
		comm.Sender,
		comm.Subject,
		comm.Body,
		string(comm.Direction),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil // Already recorded
	}
	if err != nil {
		return 0, fmt.Errorf("failed to insert communication: %w", err)
	}
	return id, nil
}

// KnownMessageIDs lists message ids already stored for an applicant.
func (r *CommunicationRepo) KnownMessageIDs(
	ctx context.Context,
	applicantID int64,
) (map[string]struct{}, error) {
	query := `SELECT message_id FROM communications WHERE applicant_id = $1`

	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, applicantID); err != nil {
		return nil, fmt.Errorf("failed to list message ids: %w", err)
	}

	known := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		known[id] = struct{}{}
	}
	return known, nil
}
