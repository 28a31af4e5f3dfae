package control

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/applyflow/applyflow/internal/pipeline"
	"github.com/applyflow/applyflow/internal/pipeline/ingest"
)

type fakeIngestor struct {
	mu      sync.Mutex
	calls   int
	summary ingest.Summary
	err     error
	seen    *pipeline.SeenSet
}

func (f *fakeIngestor) ProcessAll(_ context.Context, seen *pipeline.SeenSet) (ingest.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.seen = seen
	seen.Add("from-ingest")
	return f.summary, f.err
}

type fakeReplies struct {
	mu    sync.Mutex
	calls int
	saved int
	seen  *pipeline.SeenSet
}

func (f *fakeReplies) CheckAll(_ context.Context, seen *pipeline.SeenSet) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.seen = seen
	return f.saved, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunner_RunOnceRecordsResult(t *testing.T) {
	ing := &fakeIngestor{summary: ingest.Summary{Processed: 3, Ingested: 2, Failed: 1}}
	rep := &fakeReplies{saved: 4}
	r := NewRunner(ing, rep, nil, time.Minute, testLogger())

	r.RunOnce(context.Background())

	last := r.LastRun()
	if last == nil {
		t.Fatal("LastRun is nil after a run")
	}
	if last.NewApplications != 2 || last.FailedClassifications != 1 || last.NewReplies != 4 {
		t.Errorf("Unexpected result: %+v", last)
	}
	if last.Error != "" {
		t.Errorf("Unexpected error: %q", last.Error)
	}
	if last.FinishedAt.Before(last.StartedAt) {
		t.Error("FinishedAt precedes StartedAt")
	}
}

func TestRunner_PassesShareSeenSet(t *testing.T) {
	ing := &fakeIngestor{}
	rep := &fakeReplies{}
	r := NewRunner(ing, rep, nil, time.Minute, testLogger())

	r.RunOnce(context.Background())

	if ing.seen != rep.seen {
		t.Error("Ingest and reply passes received different seen sets")
	}
	if !rep.seen.Has("from-ingest") {
		t.Error("Reply pass cannot see ingest pass additions")
	}
}

func TestRunner_IngestErrorStillRunsReplyPass(t *testing.T) {
	ing := &fakeIngestor{err: fmt.Errorf("mailbox unavailable")}
	rep := &fakeReplies{saved: 1}
	r := NewRunner(ing, rep, nil, time.Minute, testLogger())

	r.RunOnce(context.Background())

	if rep.calls != 1 {
		t.Error("Reply pass skipped after ingest failure")
	}
	last := r.LastRun()
	if last.Error != "mailbox unavailable" {
		t.Errorf("Error = %q, want ingest failure", last.Error)
	}
	if last.NewReplies != 1 {
		t.Errorf("NewReplies = %d, want 1", last.NewReplies)
	}
}

func TestRunner_NotificationsDrainOnce(t *testing.T) {
	ing := &fakeIngestor{summary: ingest.Summary{Processed: 2, Ingested: 2}}
	r := NewRunner(ing, &fakeReplies{saved: 1}, nil, time.Minute, testLogger())

	r.RunOnce(context.Background())

	msgs := r.Notifications()
	if len(msgs) != 1 {
		t.Fatalf("Expected 1 notification, got %d: %v", len(msgs), msgs)
	}
	if msgs[0] != "Processed 2 new application(s), 1 new reply(ies)" {
		t.Errorf("Unexpected notification: %q", msgs[0])
	}
	if again := r.Notifications(); len(again) != 0 {
		t.Errorf("Notifications not drained: %v", again)
	}
}

func TestRunner_QuietRunEmitsNoNotification(t *testing.T) {
	r := NewRunner(&fakeIngestor{}, &fakeReplies{}, nil, time.Minute, testLogger())

	r.RunOnce(context.Background())

	if msgs := r.Notifications(); len(msgs) != 0 {
		t.Errorf("Expected no notifications for an empty run, got %v", msgs)
	}
}

func TestRunner_TriggerSyncCoalesces(t *testing.T) {
	r := NewRunner(&fakeIngestor{}, &fakeReplies{}, nil, time.Minute, testLogger())

	// Channel holds one pending trigger at most
	r.TriggerSync()
	r.TriggerSync()
	r.TriggerSync()

	if len(r.trigger) != 1 {
		t.Errorf("Pending triggers = %d, want 1", len(r.trigger))
	}
}

func TestRunner_StartRunsImmediatelyAndOnTrigger(t *testing.T) {
	ing := &fakeIngestor{}
	rep := &fakeReplies{}
	r := NewRunner(ing, rep, nil, time.Hour, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Start(ctx)
		close(done)
	}()

	waitFor(t, func() bool {
		ing.mu.Lock()
		defer ing.mu.Unlock()
		return ing.calls == 1
	})

	r.TriggerSync()
	waitFor(t, func() bool {
		ing.mu.Lock()
		defer ing.mu.Unlock()
		return ing.calls == 2
	})

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancellation")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
