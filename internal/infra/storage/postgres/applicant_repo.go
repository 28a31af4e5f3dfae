package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/applyflow/applyflow/internal/core/domain"
)

// ApplicantRepo implements storage.ApplicantRepository using PostgreSQL.
type ApplicantRepo struct {
	db *DB
}

// NewApplicantRepo creates a new PostgreSQL applicant repository.
func NewApplicantRepo(db *DB) *ApplicantRepo {
	return &ApplicantRepo{db: db}
}

// Insert persists an applicant and their first communication in one
// transaction. A duplicate email leaves the database untouched and returns 0.
func (r *ApplicantRepo) Insert(
	ctx context.Context,
	applicant *domain.Applicant,
	initial *domain.Communication,
) (int64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO applicants (name, email, phone, education, job_history, domain, resume_url, status, thread_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (email) DO NOTHING
		RETURNING id
	`

	var id int64
	err = tx.QueryRowContext(ctx, query,
		applicant.Name,
		applicant.Email,
		applicant.Phone,
		applicant.Education,
		applicant.JobHistory,
		applicant.Domain,
		applicant.ResumeURL,
		string(applicant.Status),
		applicant.ThreadID,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil // Duplicate email
	}
	if err != nil {
		return 0, fmt.Errorf("failed to insert applicant: %w", err)
	}

	if initial != nil {
		commQuery := `
			INSERT INTO communications (applicant_id, message_id, thread_id, sender, subject, body, direction)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (message_id) DO NOTHING
		`
		_, err = tx.ExecContext(ctx, commQuery,
			id,
			initial.MessageID,
			initial.ThreadID,
			initial.Sender,
			initial.Subject,
			initial.Body,
			string(initial.Direction),
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert initial communication: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

type activeThreadRow struct {
	ApplicantID int64  `db:"id"`
	ThreadID    string `db:"thread_id"`
}

// GetActiveThreads lists threads for applicants still in play.
func (r *ApplicantRepo) GetActiveThreads(ctx context.Context) ([]domain.ActiveThread, error) {
	query := `
		SELECT id, thread_id
		FROM applicants
		WHERE thread_id IS NOT NULL AND status NOT IN ($1, $2)
		ORDER BY id
	`

	var rows []activeThreadRow
	err := r.db.SelectContext(ctx, &rows, query,
		string(domain.StatusRejected),
		string(domain.StatusHired),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get active threads: %w", err)
	}

	threads := make([]domain.ActiveThread, 0, len(rows))
	for _, row := range rows {
		threads = append(threads, domain.ActiveThread{
			ApplicantID: row.ApplicantID,
			ThreadID:    row.ThreadID,
		})
	}
	return threads, nil
}

// UpdateThreadID rewrites the thread reference; a nil threadID clears it so
// the reply tracker stops polling a deleted thread.
func (r *ApplicantRepo) UpdateThreadID(
	ctx context.Context,
	applicantID int64,
	threadID *string,
) error {
	query := `UPDATE applicants SET thread_id = $1, updated_at = $2 WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, threadID, time.Now().UTC(), applicantID)
	if err != nil {
		return fmt.Errorf("failed to update thread id: %w", err)
	}
	return nil
}

// UpdateStatus moves an applicant to a new pipeline status.
func (r *ApplicantRepo) UpdateStatus(
	ctx context.Context,
	applicantID int64,
	status domain.ApplicantStatus,
) error {
	query := `UPDATE applicants SET status = $1, updated_at = $2 WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, string(status), time.Now().UTC(), applicantID)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	return nil
}

// UpdateFeedback stores reviewer feedback.
func (r *ApplicantRepo) UpdateFeedback(
	ctx context.Context,
	applicantID int64,
	feedback string,
) error {
	query := `UPDATE applicants SET feedback = $1, updated_at = $2 WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, feedback, time.Now().UTC(), applicantID)
	if err != nil {
		return fmt.Errorf("failed to update feedback: %w", err)
	}
	return nil
}

// BulkUpdateStatus moves several applicants in one statement.
func (r *ApplicantRepo) BulkUpdateStatus(
	ctx context.Context,
	applicantIDs []int64,
	status domain.ApplicantStatus,
) error {
	if len(applicantIDs) == 0 {
		return nil
	}

	query, args, err := sqlx.In(
		`UPDATE applicants SET status = ?, updated_at = ? WHERE id IN (?)`,
		string(status), time.Now().UTC(), applicantIDs,
	)
	if err != nil {
		return fmt.Errorf("failed to build bulk update: %w", err)
	}

	query = r.db.Rebind(query)
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to bulk update status: %w", err)
	}
	return nil
}

// Stats returns aggregate applicant counts for monitoring.
func (r *ApplicantRepo) Stats(ctx context.Context) (*domain.StorageStats, error) {
	stats := &domain.StorageStats{
		StatusDistribution: make(map[string]int),
	}

	err := r.db.GetContext(ctx, &stats.TotalApplicants,
		`SELECT COUNT(*) FROM applicants`)
	if err != nil {
		return nil, fmt.Errorf("failed to count applicants: %w", err)
	}

	err = r.db.GetContext(ctx, &stats.TotalCommunications,
		`SELECT COUNT(*) FROM communications`)
	if err != nil {
		return nil, fmt.Errorf("failed to count communications: %w", err)
	}

	err = r.db.GetContext(ctx, &stats.ActiveThreads,
		`SELECT COUNT(*) FROM applicants WHERE thread_id IS NOT NULL AND status NOT IN ($1, $2)`,
		string(domain.StatusRejected), string(domain.StatusHired))
	if err != nil {
		return nil, fmt.Errorf("failed to count active threads: %w", err)
	}

	rows, err := r.db.QueryxContext(ctx,
		`SELECT status, COUNT(*) AS count FROM applicants GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to get status distribution: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row struct {
			Status string `db:"status"`
			Count  int    `db:"count"`
		}
		if err := rows.StructScan(&row); err != nil {
			return nil, err
		}
		stats.StatusDistribution[row.Status] = row.Count
	}
	return stats, rows.Err()
}
