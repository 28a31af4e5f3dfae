package control

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/applyflow/applyflow/internal/core/domain"
)

type fakeApplicants struct {
	stats    *domain.StorageStats
	statsErr error
}

func (f *fakeApplicants) Insert(context.Context, *domain.Applicant, *domain.Communication) (int64, error) {
	return 0, nil
}
func (f *fakeApplicants) GetActiveThreads(context.Context) ([]domain.ActiveThread, error) {
	return nil, nil
}
func (f *fakeApplicants) UpdateThreadID(context.Context, int64, *string) error { return nil }
func (f *fakeApplicants) UpdateStatus(context.Context, int64, domain.ApplicantStatus) error {
	return nil
}
func (f *fakeApplicants) UpdateFeedback(context.Context, int64, string) error { return nil }
func (f *fakeApplicants) BulkUpdateStatus(context.Context, []int64, domain.ApplicantStatus) error {
	return nil
}
func (f *fakeApplicants) Stats(context.Context) (*domain.StorageStats, error) {
	return f.stats, f.statsErr
}

type fakeHealth struct{ err error }

func (f *fakeHealth) Health(context.Context) error { return f.err }

func newTestServer(t *testing.T, health error) (*Server, *httptest.Server, *Runner) {
	t.Helper()
	runner := NewRunner(&fakeIngestor{}, &fakeReplies{}, nil, time.Minute, testLogger())
	apps := &fakeApplicants{stats: &domain.StorageStats{
		TotalApplicants:    5,
		StatusDistribution: map[string]int{"New": 5},
	}}
	s := NewServer(runner, apps, &fakeHealth{err: health}, 0, testLogger())
	ts := httptest.NewServer(s.server.Handler)
	t.Cleanup(ts.Close)
	return s, ts, runner
}

func TestServer_Healthz(t *testing.T) {
	_, ts, _ := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestServer_HealthzUnhealthy(t *testing.T) {
	_, ts, _ := newTestServer(t, fmt.Errorf("connection refused"))

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
}

func TestServer_StatusIncludesLastRunAndStorage(t *testing.T) {
	_, ts, runner := newTestServer(t, nil)
	runner.RunOnce(context.Background())

	resp, err := http.Get(ts.URL + "/status")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var body statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.LastRun == nil {
		t.Error("last_run missing from status")
	}
	if body.Storage == nil || body.Storage.TotalApplicants != 5 {
		t.Errorf("Unexpected storage stats: %+v", body.Storage)
	}
}

func TestServer_SyncSchedulesRun(t *testing.T) {
	_, ts, runner := newTestServer(t, nil)

	resp, err := http.Post(ts.URL+"/sync", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("status = %d, want 202", resp.StatusCode)
	}
	if len(runner.trigger) != 1 {
		t.Error("Sync request did not queue a trigger")
	}
}

func TestServer_SyncRejectsGet(t *testing.T) {
	_, ts, _ := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/sync")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
}
