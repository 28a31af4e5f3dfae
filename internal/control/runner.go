package control

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/applyflow/applyflow/internal/inference"
	"github.com/applyflow/applyflow/internal/pipeline"
	"github.com/applyflow/applyflow/internal/pipeline/ingest"
	"github.com/applyflow/applyflow/internal/pipeline/metrics"
)

// Ingestor runs the unread-application pass.
type Ingestor interface {
	ProcessAll(ctx context.Context, seen *pipeline.SeenSet) (ingest.Summary, error)
}

// ReplyChecker runs the reply-tracking pass.
type ReplyChecker interface {
	CheckAll(ctx context.Context, seen *pipeline.SeenSet) (int, error)
}

// RunResult is the outcome of the most recent pipeline run.
type RunResult struct {
	RunID                 string    `json:"run_id"`
	StartedAt             time.Time `json:"started_at"`
	FinishedAt            time.Time `json:"finished_at"`
	Processed             int       `json:"processed"`
	NewApplications       int       `json:"new_applications"`
	Duplicates            int       `json:"duplicates"`
	FailedClassifications int       `json:"failed_classifications"`
	NewReplies            int       `json:"new_replies"`
	Error                 string    `json:"error,omitempty"`
}

// Runner schedules pipeline runs: one at startup, one per interval, plus
// on-demand runs via TriggerSync. Runs never overlap; triggers arriving
// mid-run collapse into a single follow-up run.
type Runner struct {
	ingestor Ingestor
	replies  ReplyChecker
	pool     *inference.Pool
	interval time.Duration
	log      *slog.Logger

	trigger       chan struct{}
	notifications chan string

	mu   sync.Mutex
	last *RunResult
}

func NewRunner(
	ingestor Ingestor,
	replies ReplyChecker,
	pool *inference.Pool,
	interval time.Duration,
	log *slog.Logger,
) *Runner {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Runner{
		ingestor: ingestor,
		replies:  replies,
		pool:     pool,
		interval: interval,
		log:      log,
		trigger:  make(chan struct{}, 1),
		// Bounded; old unread notifications are dropped, never block a run
		notifications: make(chan string, 16),
	}
}

// Start blocks running the schedule loop until ctx is cancelled.
func (r *Runner) Start(ctx context.Context) error {
	r.RunOnce(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.RunOnce(ctx)
		case <-r.trigger:
			r.RunOnce(ctx)
		}
	}
}

// TriggerSync requests an immediate run. Safe to call from any goroutine;
// extra triggers while one is pending are dropped.
func (r *Runner) TriggerSync() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// LastRun returns a copy of the most recent run result, or nil before the
// first run completes.
func (r *Runner) LastRun() *RunResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		return nil
	}
	result := *r.last
	return &result
}

// Notifications drains and returns pending run summaries, oldest first.
func (r *Runner) Notifications() []string {
	var msgs []string
	for {
		select {
		case msg := <-r.notifications:
			msgs = append(msgs, msg)
		default:
			return msgs
		}
	}
}

func (r *Runner) notify(msg string) {
	for {
		select {
		case r.notifications <- msg:
			return
		default:
			// Full: discard the oldest and retry
			select {
			case <-r.notifications:
			default:
			}
		}
	}
}

// RunOnce executes one full pipeline run: ingest pass then reply pass,
// sharing a per-run seen set so no message is handled twice.
func (r *Runner) RunOnce(ctx context.Context) {
	result := RunResult{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}
	seen := pipeline.NewSeenSet()

	summary, err := r.ingestor.ProcessAll(ctx, seen)
	result.Processed = summary.Processed
	result.NewApplications = summary.Ingested
	result.Duplicates = summary.Duplicates
	result.FailedClassifications = summary.Failed
	if err != nil {
		result.Error = err.Error()
		r.log.Error("ingest pass aborted", "error", err)
	}

	// The reply pass still runs when ingest failed; the passes share no
	// state beyond the seen set.
	saved, err := r.replies.CheckAll(ctx, seen)
	result.NewReplies = saved
	if err != nil && result.Error == "" {
		result.Error = err.Error()
		r.log.Error("reply pass aborted", "error", err)
	}

	result.FinishedAt = time.Now().UTC()
	metrics.RunDuration.Observe(result.FinishedAt.Sub(result.StartedAt).Seconds())
	r.updatePoolMetrics()

	r.mu.Lock()
	r.last = &result
	r.mu.Unlock()

	if result.NewApplications > 0 || result.NewReplies > 0 {
		r.notify(fmt.Sprintf("Processed %d new application(s), %d new reply(ies)",
			result.NewApplications, result.NewReplies))
	}
	if result.FailedClassifications > 0 {
		r.notify(fmt.Sprintf("%d message(s) failed classification and remain unread",
			result.FailedClassifications))
	}

	r.log.Info("pipeline run finished",
		"run_id", result.RunID,
		"new_applications", result.NewApplications,
		"duplicates", result.Duplicates,
		"failed_classifications", result.FailedClassifications,
		"new_replies", result.NewReplies,
		"duration", result.FinishedAt.Sub(result.StartedAt),
	)
}

func (r *Runner) updatePoolMetrics() {
	if r.pool == nil {
		return
	}
	stats := r.pool.Stats()
	metrics.CredentialsByState.WithLabelValues("available").Set(float64(stats.Available))
	metrics.CredentialsByState.WithLabelValues("rate_limited").Set(float64(stats.RateLimited))
	metrics.CredentialsByState.WithLabelValues("failed").Set(float64(stats.Failed))
}
