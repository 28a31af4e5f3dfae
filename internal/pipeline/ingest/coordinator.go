package ingest

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/applyflow/applyflow/internal/core/domain"
	"github.com/applyflow/applyflow/internal/extract"
	"github.com/applyflow/applyflow/internal/infra/storage"
	"github.com/applyflow/applyflow/internal/mail"
	"github.com/applyflow/applyflow/internal/objectstore"
	"github.com/applyflow/applyflow/internal/pipeline"
	"github.com/applyflow/applyflow/internal/pipeline/metrics"
)

// Classifier turns an application email into structured applicant fields.
type Classifier interface {
	Extract(ctx context.Context, req domain.ExtractionRequest) (*domain.ExtractionResult, error)
}

// FailureTracker remembers messages whose classification failed so they can
// be retried and inspected across runs.
type FailureTracker interface {
	Record(ctx context.Context, messageID, reason string) error
	Resolve(ctx context.Context, messageID string) error
}

// NopTracker satisfies FailureTracker when no tracking backend is configured.
type NopTracker struct{}

func (NopTracker) Record(context.Context, string, string) error { return nil }
func (NopTracker) Resolve(context.Context, string) error        { return nil }

// Summary reports the outcome of one ingest pass.
type Summary struct {
	Processed  int
	Ingested   int
	Duplicates int
	Failed     int
	Skipped    int
}

// Coordinator drives the ingest pass: list unread applications, classify
// each one, archive the résumé and persist the applicant. A message is only
// marked read once its outcome is final; messages that failed classification
// stay unread so the next run retries them.
type Coordinator struct {
	mail       mail.Source
	extractor  extract.TextExtractor
	classifier Classifier
	store      objectstore.Store
	applicants storage.ApplicantRepository
	failures   FailureTracker
	roles      []string
	log        *slog.Logger
}

func NewCoordinator(
	source mail.Source,
	extractor extract.TextExtractor,
	classifier Classifier,
	store objectstore.Store,
	applicants storage.ApplicantRepository,
	failures FailureTracker,
	roles []string,
	log *slog.Logger,
) *Coordinator {
	if failures == nil {
		failures = NopTracker{}
	}
	return &Coordinator{
		mail:       source,
		extractor:  extractor,
		classifier: classifier,
		store:      store,
		applicants: applicants,
		failures:   failures,
		roles:      roles,
		log:        log,
	}
}

// ProcessAll ingests every unread application in listing order.
func (c *Coordinator) ProcessAll(ctx context.Context, seen *pipeline.SeenSet) (Summary, error) {
	var summary Summary

	refs, err := c.mail.FetchUnreadApplications(ctx)
	if err != nil {
		return summary, err
	}
	c.log.Info("ingest pass started", "unread", len(refs))

	for _, ref := range refs {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		summary.Processed++

		outcome := c.processOne(ctx, ref, seen)
		metrics.MessagesProcessed.WithLabelValues(outcome).Inc()

		switch outcome {
		case outcomeIngested:
			summary.Ingested++
		case outcomeDuplicate:
			summary.Duplicates++
		case outcomeSkipped:
			summary.Skipped++
		default:
			summary.Failed++
		}
	}

	c.log.Info("ingest pass finished",
		"processed", summary.Processed,
		"ingested", summary.Ingested,
		"duplicates", summary.Duplicates,
		"failed", summary.Failed,
	)
	return summary, nil
}

const (
	outcomeIngested       = "ingested"
	outcomeDuplicate      = "duplicate"
	outcomeSkipped        = "skipped"
	outcomeNoAttachment   = "no_attachment"
	outcomeFetchError     = "fetch_error"
	outcomeClassifyFailed = "classification_failed"
	outcomeStorageError   = "storage_error"
)

func (c *Coordinator) processOne(ctx context.Context, ref domain.MessageRef, seen *pipeline.SeenSet) string {
	if seen.Has(ref.ID) {
		return outcomeSkipped
	}

	msg, err := c.mail.FetchContent(ctx, ref.ID)
	if err != nil {
		c.log.Error("failed to fetch message", "message_id", ref.ID, "error", err)
		return outcomeFetchError
	}

	resumePath, err := c.mail.SaveAttachment(ctx, ref.ID)
	if err != nil {
		c.log.Error("failed to save attachment", "message_id", ref.ID, "error", err)
		return outcomeFetchError
	}
	if resumePath == "" {
		// No résumé, nothing to classify; consume so it stops reappearing
		c.log.Warn("message has no resume attachment", "message_id", ref.ID, "sender", msg.Sender)
		c.markConsumed(ctx, ref.ID)
		seen.Add(ref.ID)
		return outcomeNoAttachment
	}
	defer os.Remove(resumePath)

	resumeText, err := c.extractor.Extract(resumePath)
	if err != nil {
		// Classification can still succeed on subject and body alone
		c.log.Warn("failed to extract resume text", "message_id", ref.ID, "error", err)
		resumeText = ""
	}

	result, err := c.classifier.Extract(ctx, domain.ExtractionRequest{
		Subject:    msg.Subject,
		Body:       msg.Body,
		ResumeText: resumeText,
		Roles:      c.roles,
	})
	if err != nil || strings.TrimSpace(result.Name) == "" {
		// Leave unread so the next run retries with fresh quota
		reason := "empty applicant name"
		if err != nil {
			reason = err.Error()
		}
		c.log.Error("classification failed", "message_id", ref.ID, "sender", msg.Sender, "reason", reason)
		if trackErr := c.failures.Record(ctx, ref.ID, reason); trackErr != nil {
			c.log.Warn("failed to track failed message", "message_id", ref.ID, "error", trackErr)
		}
		seen.Add(ref.ID)
		return outcomeClassifyFailed
	}

	if result.Email == "" {
		result.Email = msg.Sender
	}

	resumeURL := c.archiveResume(ctx, result.Name, resumePath)

	applicant := &domain.Applicant{
		Name:       result.Name,
		Email:      result.Email,
		Phone:      result.Phone,
		Education:  result.Education,
		JobHistory: result.JobHistory,
		Domain:     result.Domain,
		ResumeURL:  resumeURL,
		Status:     domain.StatusNew,
		ThreadID:   &msg.ThreadID,
	}
	initial := &domain.Communication{
		MessageID: msg.ID,
		ThreadID:  msg.ThreadID,
		Sender:    msg.Sender,
		Subject:   msg.Subject,
		Body:      msg.Body,
		Direction: domain.DirectionIncoming,
	}

	id, err := c.applicants.Insert(ctx, applicant, initial)
	if err != nil {
		c.log.Error("failed to persist applicant", "email", applicant.Email, "error", err)
		return outcomeStorageError
	}
	if id == 0 {
		// Known applicant re-applying; consume without inserting
		c.log.Info("duplicate application", "email", applicant.Email, "message_id", ref.ID)
		c.markConsumed(ctx, ref.ID)
		seen.Add(ref.ID)
		return outcomeDuplicate
	}

	c.markConsumed(ctx, ref.ID)
	if err := c.failures.Resolve(ctx, ref.ID); err != nil {
		c.log.Warn("failed to resolve tracked message", "message_id", ref.ID, "error", err)
	}
	seen.Add(ref.ID)

	c.log.Info("applicant ingested",
		"applicant_id", id,
		"name", applicant.Name,
		"domain", applicant.Domain,
	)
	return outcomeIngested
}

// archiveResume uploads the résumé; failures only cost the stored URL.
func (c *Coordinator) archiveResume(ctx context.Context, applicantName, resumePath string) string {
	if c.store == nil {
		return ""
	}
	objectName := objectstore.ResumeObjectName(applicantName, resumePath)
	url, err := c.store.Upload(ctx, resumePath, objectName)
	if err != nil {
		c.log.Warn("failed to archive resume", "object", objectName, "error", err)
		return ""
	}
	return url
}

func (c *Coordinator) markConsumed(ctx context.Context, messageID string) {
	if err := c.mail.MarkConsumed(ctx, messageID); err != nil {
		c.log.Warn("failed to mark message read", "message_id", messageID, "error", err)
	}
}
