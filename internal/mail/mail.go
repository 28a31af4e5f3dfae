package mail

import (
	"context"

	"github.com/applyflow/applyflow/internal/core/domain"
)

// Source is the mailbox the pipeline ingests from. Implementations return
// domain.ErrThreadNotFound when a thread was deleted upstream.
type Source interface {
	// SelfAddress is the account's own address; replies sent from it are
	// ignored by the reply tracker.
	SelfAddress() string

	// FetchUnreadApplications lists unread messages that look like job
	// applications with a résumé attached, in source order.
	FetchUnreadApplications(ctx context.Context) ([]domain.MessageRef, error)

	// FetchThreadMessages lists every message in a conversation thread.
	FetchThreadMessages(ctx context.Context, threadID string) ([]domain.MessageRef, error)

	// FetchContent retrieves subject, sender and plain-text body.
	FetchContent(ctx context.Context, messageID string) (*domain.EmailMessage, error)

	// SaveAttachment stores the first PDF/DOCX attachment to a temp file
	// and returns its path, or "" when the message has none.
	SaveAttachment(ctx context.Context, messageID string) (string, error)

	// MarkConsumed marks a message as handled (read) so it is not
	// returned by FetchUnreadApplications again.
	MarkConsumed(ctx context.Context, messageID string) error
}
