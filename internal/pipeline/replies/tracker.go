package replies

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/applyflow/applyflow/internal/core/domain"
	"github.com/applyflow/applyflow/internal/infra/storage"
	"github.com/applyflow/applyflow/internal/mail"
	"github.com/applyflow/applyflow/internal/pipeline"
	"github.com/applyflow/applyflow/internal/pipeline/metrics"
)

// Tracker walks the open conversation threads of active applicants and
// records replies that arrived since the last run. Threads deleted on the
// provider side are detached so they are not polled again.
type Tracker struct {
	mail       mail.Source
	applicants storage.ApplicantRepository
	comms      storage.CommunicationRepository
	log        *slog.Logger
}

func NewTracker(
	source mail.Source,
	applicants storage.ApplicantRepository,
	comms storage.CommunicationRepository,
	log *slog.Logger,
) *Tracker {
	return &Tracker{
		mail:       source,
		applicants: applicants,
		comms:      comms,
		log:        log,
	}
}

// CheckAll scans every active thread and returns the number of new replies
// persisted. Per-thread failures are logged and skipped; one broken thread
// must not stall the rest.
func (t *Tracker) CheckAll(ctx context.Context, seen *pipeline.SeenSet) (int, error) {
	threads, err := t.applicants.GetActiveThreads(ctx)
	if err != nil {
		return 0, err
	}
	t.log.Info("reply pass started", "active_threads", len(threads))

	var saved int
	for _, thread := range threads {
		if ctx.Err() != nil {
			return saved, ctx.Err()
		}

		n, err := t.checkThread(ctx, thread, seen)
		if err != nil {
			t.log.Error("failed to check thread",
				"applicant_id", thread.ApplicantID,
				"thread_id", thread.ThreadID,
				"error", err,
			)
			continue
		}
		saved += n
	}

	t.log.Info("reply pass finished", "new_replies", saved)
	return saved, nil
}

func (t *Tracker) checkThread(ctx context.Context, thread domain.ActiveThread, seen *pipeline.SeenSet) (int, error) {
	refs, err := t.mail.FetchThreadMessages(ctx, thread.ThreadID)
	if errors.Is(err, domain.ErrThreadNotFound) {
		// Thread deleted upstream; detach so it is not polled again
		t.log.Warn("thread gone, detaching",
			"applicant_id", thread.ApplicantID,
			"thread_id", thread.ThreadID,
		)
		if err := t.applicants.UpdateThreadID(ctx, thread.ApplicantID, nil); err != nil {
			return 0, err
		}
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	known, err := t.comms.KnownMessageIDs(ctx, thread.ApplicantID)
	if err != nil {
		return 0, err
	}

	var saved int
	for _, ref := range refs {
		if _, ok := known[ref.ID]; ok {
			continue
		}
		if seen.Has(ref.ID) {
			continue
		}

		msg, err := t.mail.FetchContent(ctx, ref.ID)
		if err != nil {
			t.log.Warn("failed to fetch thread message", "message_id", ref.ID, "error", err)
			continue
		}

		if strings.EqualFold(msg.Sender, t.mail.SelfAddress()) {
			seen.Add(ref.ID)
			continue
		}

		id, err := t.comms.Insert(ctx, &domain.Communication{
			ApplicantID: thread.ApplicantID,
			MessageID:   msg.ID,
			ThreadID:    msg.ThreadID,
			Sender:      msg.Sender,
			Subject:     msg.Subject,
			Body:        msg.Body,
			Direction:   domain.DirectionIncoming,
		})
		if err != nil {
			t.log.Warn("failed to save reply", "message_id", ref.ID, "error", err)
			continue
		}
		seen.Add(ref.ID)
		if id == 0 {
			continue // Raced with another writer, already on file
		}

		metrics.RepliesSaved.Inc()
		saved++
	}
	return saved, nil
}
