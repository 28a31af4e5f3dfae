package replies

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/applyflow/applyflow/internal/core/domain"
	"github.com/applyflow/applyflow/internal/pipeline"
)

type fakeMail struct {
	threads   map[string][]domain.MessageRef
	threadErr map[string]error
	contents  map[string]*domain.EmailMessage
}

func (f *fakeMail) SelfAddress() string { return "hr@example.com" }

func (f *fakeMail) FetchUnreadApplications(context.Context) ([]domain.MessageRef, error) {
	return nil, nil
}

func (f *fakeMail) FetchThreadMessages(_ context.Context, threadID string) ([]domain.MessageRef, error) {
	if err, ok := f.threadErr[threadID]; ok {
		return nil, err
	}
	return f.threads[threadID], nil
}

func (f *fakeMail) FetchContent(_ context.Context, id string) (*domain.EmailMessage, error) {
	msg, ok := f.contents[id]
	if !ok {
		return nil, fmt.Errorf("unknown message %s", id)
	}
	return msg, nil
}

func (f *fakeMail) SaveAttachment(context.Context, string) (string, error) { return "", nil }
func (f *fakeMail) MarkConsumed(context.Context, string) error            { return nil }

type fakeApplicants struct {
	threads  []domain.ActiveThread
	detached map[int64]bool
}

func (f *fakeApplicants) Insert(context.Context, *domain.Applicant, *domain.Communication) (int64, error) {
	return 0, nil
}

func (f *fakeApplicants) GetActiveThreads(context.Context) ([]domain.ActiveThread, error) {
	return f.threads, nil
}

func (f *fakeApplicants) UpdateThreadID(_ context.Context, id int64, threadID *string) error {
	if threadID == nil {
		f.detached[id] = true
	}
	return nil
}

func (f *fakeApplicants) UpdateStatus(context.Context, int64, domain.ApplicantStatus) error {
	return nil
}
func (f *fakeApplicants) UpdateFeedback(context.Context, int64, string) error { return nil }
func (f *fakeApplicants) BulkUpdateStatus(context.Context, []int64, domain.ApplicantStatus) error {
	return nil
}
func (f *fakeApplicants) Stats(context.Context) (*domain.StorageStats, error) { return nil, nil }

type fakeComms struct {
	known    map[int64]map[string]struct{}
	inserted []*domain.Communication
	insertID int64
}

func (f *fakeComms) Insert(_ context.Context, comm *domain.Communication) (int64, error) {
	f.inserted = append(f.inserted, comm)
	return f.insertID, nil
}

func (f *fakeComms) KnownMessageIDs(_ context.Context, applicantID int64) (map[string]struct{}, error) {
	if ids, ok := f.known[applicantID]; ok {
		return ids, nil
	}
	return map[string]struct{}{}, nil
}

func newTestTracker(m *fakeMail, apps *fakeApplicants, comms *fakeComms) *Tracker {
	return NewTracker(m, apps, comms, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestTracker_SavesNewReply(t *testing.T) {
	m := &fakeMail{
		threads: map[string][]domain.MessageRef{
			"thr-1": {{ID: "msg-old", ThreadID: "thr-1"}, {ID: "msg-new", ThreadID: "thr-1"}},
		},
		contents: map[string]*domain.EmailMessage{
			"msg-new": {ID: "msg-new", ThreadID: "thr-1", Sender: "jane@example.com", Body: "Thanks!"},
		},
	}
	apps := &fakeApplicants{
		threads:  []domain.ActiveThread{{ApplicantID: 7, ThreadID: "thr-1"}},
		detached: make(map[int64]bool),
	}
	comms := &fakeComms{
		known:    map[int64]map[string]struct{}{7: {"msg-old": {}}},
		insertID: 3,
	}

	saved, err := newTestTracker(m, apps, comms).CheckAll(context.Background(), pipeline.NewSeenSet())
	if err != nil {
		t.Fatalf("CheckAll failed: %v", err)
	}
	if saved != 1 {
		t.Errorf("saved = %d, want 1", saved)
	}
	if len(comms.inserted) != 1 {
		t.Fatalf("Expected 1 insert, got %d", len(comms.inserted))
	}
	got := comms.inserted[0]
	if got.ApplicantID != 7 || got.MessageID != "msg-new" || got.Direction != domain.DirectionIncoming {
		t.Errorf("Unexpected communication: %+v", got)
	}
}

func TestTracker_SkipsOwnMessages(t *testing.T) {
	m := &fakeMail{
		threads: map[string][]domain.MessageRef{
			"thr-1": {{ID: "msg-self", ThreadID: "thr-1"}},
		},
		contents: map[string]*domain.EmailMessage{
			"msg-self": {ID: "msg-self", Sender: "HR@example.com"},
		},
	}
	apps := &fakeApplicants{
		threads:  []domain.ActiveThread{{ApplicantID: 7, ThreadID: "thr-1"}},
		detached: make(map[int64]bool),
	}
	comms := &fakeComms{insertID: 1}

	seen := pipeline.NewSeenSet()
	saved, err := newTestTracker(m, apps, comms).CheckAll(context.Background(), seen)
	if err != nil {
		t.Fatalf("CheckAll failed: %v", err)
	}
	if saved != 0 || len(comms.inserted) != 0 {
		t.Error("Own outgoing message must not be recorded as a reply")
	}
	if !seen.Has("msg-self") {
		t.Error("Own message should still land in the seen set")
	}
}

func TestTracker_DetachesDeletedThread(t *testing.T) {
	m := &fakeMail{
		threadErr: map[string]error{"thr-gone": domain.ErrThreadNotFound},
		contents:  map[string]*domain.EmailMessage{},
	}
	apps := &fakeApplicants{
		threads:  []domain.ActiveThread{{ApplicantID: 9, ThreadID: "thr-gone"}},
		detached: make(map[int64]bool),
	}

	saved, err := newTestTracker(m, apps, &fakeComms{}).CheckAll(context.Background(), pipeline.NewSeenSet())
	if err != nil {
		t.Fatalf("CheckAll failed: %v", err)
	}
	if saved != 0 {
		t.Errorf("saved = %d, want 0", saved)
	}
	if !apps.detached[9] {
		t.Error("Deleted thread was not detached from the applicant")
	}
}

func TestTracker_DuplicateInsertNotCounted(t *testing.T) {
	m := &fakeMail{
		threads: map[string][]domain.MessageRef{
			"thr-1": {{ID: "msg-new", ThreadID: "thr-1"}},
		},
		contents: map[string]*domain.EmailMessage{
			"msg-new": {ID: "msg-new", Sender: "jane@example.com"},
		},
	}
	apps := &fakeApplicants{
		threads:  []domain.ActiveThread{{ApplicantID: 7, ThreadID: "thr-1"}},
		detached: make(map[int64]bool),
	}
	comms := &fakeComms{insertID: 0} // Already on file

	saved, err := newTestTracker(m, apps, comms).CheckAll(context.Background(), pipeline.NewSeenSet())
	if err != nil {
		t.Fatalf("CheckAll failed: %v", err)
	}
	if saved != 0 {
		t.Errorf("saved = %d, want 0", saved)
	}
}

func TestTracker_SeenMessagesSkipped(t *testing.T) {
	m := &fakeMail{
		threads: map[string][]domain.MessageRef{
			"thr-1": {{ID: "msg-ingested", ThreadID: "thr-1"}},
		},
		contents: map[string]*domain.EmailMessage{},
	}
	apps := &fakeApplicants{
		threads:  []domain.ActiveThread{{ApplicantID: 7, ThreadID: "thr-1"}},
		detached: make(map[int64]bool),
	}
	comms := &fakeComms{insertID: 1}

	seen := pipeline.NewSeenSet()
	seen.Add("msg-ingested")

	saved, err := newTestTracker(m, apps, comms).CheckAll(context.Background(), seen)
	if err != nil {
		t.Fatalf("CheckAll failed: %v", err)
	}
	if saved != 0 || len(comms.inserted) != 0 {
		t.Error("Message handled by the ingest pass must not be double-recorded")
	}
}
