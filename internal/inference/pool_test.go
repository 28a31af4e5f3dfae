package inference

import (
	"testing"
	"time"
)

func newTestPool(t *testing.T, secrets []string) *Pool {
	t.Helper()
	p, err := NewPool(secrets)
	if err != nil {
		t.Fatalf("NewPool failed: %v", err)
	}
	return p
}

func TestNewPool_Empty(t *testing.T) {
	if _, err := NewPool(nil); err == nil {
		t.Fatal("Expected error for empty credential list, got nil")
	}
}

func TestPool_RoundRobinFairness(t *testing.T) {
	secrets := []string{"key-aaaaaaaa", "key-bbbbbbbb", "key-cccccccc"}
	p := newTestPool(t, secrets)

	seen := make(map[string]int)
	for i := 0; i < len(secrets); i++ {
		cred := p.GetNext()
		if cred == nil {
			t.Fatalf("GetNext returned nil on cycle %d", i)
		}
		seen[cred.Secret()]++
		p.MarkUsed(cred)
	}

	if len(seen) != len(secrets) {
		t.Fatalf("Expected %d distinct credentials in one cycle, got %d", len(secrets), len(seen))
	}
	for secret, count := range seen {
		if count != 1 {
			t.Errorf("Credential %s visited %d times in one cycle, want 1", secret, count)
		}
	}
}

func TestPool_GetNextStableWithoutMarkUsed(t *testing.T) {
	p := newTestPool(t, []string{"key-aaaaaaaa", "key-bbbbbbbb"})

	first := p.GetNext()
	second := p.GetNext()
	if first != second {
		t.Error("GetNext advanced without MarkUsed")
	}
}

func TestPool_CooldownExpiry(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := base
	p := newTestPool(t, []string{"key-aaaaaaaa"})
	p.now = func() time.Time { return now }

	cred := p.GetNext()
	p.MarkRateLimited(cred, 30*time.Minute)

	if got := p.GetNext(); got != nil {
		t.Fatalf("Expected nil during cooldown, got %s", got.Label())
	}

	now = base.Add(29 * time.Minute)
	if got := p.GetNext(); got != nil {
		t.Fatal("Credential eligible before cooldown elapsed")
	}

	now = base.Add(30 * time.Minute)
	if got := p.GetNext(); got == nil {
		t.Fatal("Credential not recovered after cooldown elapsed")
	}
}

func TestPool_DefaultCooldown(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := base
	p := newTestPool(t, []string{"key-aaaaaaaa"})
	p.now = func() time.Time { return now }

	cred := p.GetNext()
	p.MarkRateLimited(cred, 0)

	now = base.Add(DefaultCooldown - time.Second)
	if p.GetNext() != nil {
		t.Fatal("Credential eligible before default cooldown elapsed")
	}

	now = base.Add(DefaultCooldown)
	if p.GetNext() == nil {
		t.Fatal("Credential not recovered after default cooldown")
	}
}

func TestPool_PermanentExclusion(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := base
	p := newTestPool(t, []string{"key-aaaaaaaa"})
	p.now = func() time.Time { return now }

	cred := p.GetNext()
	p.MarkFailed(cred)

	now = base.Add(1000 * time.Hour)
	if p.GetNext() != nil {
		t.Fatal("Failed credential returned by GetNext")
	}
}

func TestPool_FailedNotDemotedToRateLimited(t *testing.T) {
	p := newTestPool(t, []string{"key-aaaaaaaa"})

	cred := p.GetNext()
	p.MarkFailed(cred)
	p.MarkRateLimited(cred, time.Second)

	stats := p.Stats()
	if stats.Failed != 1 {
		t.Errorf("Expected 1 failed credential, got %d", stats.Failed)
	}
}

func TestPool_SkipsUnusableCredentials(t *testing.T) {
	p := newTestPool(t, []string{"key-aaaaaaaa", "key-bbbbbbbb", "key-cccccccc"})

	first := p.GetNext()
	p.MarkFailed(first)

	second := p.GetNext()
	if second == nil || second == first {
		t.Fatal("GetNext did not skip the failed credential")
	}
	p.MarkRateLimited(second, time.Hour)

	third := p.GetNext()
	if third == nil || third == first || third == second {
		t.Fatal("GetNext did not skip the rate-limited credential")
	}
}

func TestPool_Stats(t *testing.T) {
	p := newTestPool(t, []string{"key-aaaaaaaa", "key-bbbbbbbb", "key-cccccccc"})

	a := p.GetNext()
	p.MarkUsed(a)
	p.MarkUsed(a)
	b := p.GetNext()
	p.MarkRateLimited(b, time.Hour)
	c := p.GetNext()
	p.MarkFailed(c)

	stats := p.Stats()
	if stats.Total != 3 {
		t.Errorf("Total = %d, want 3", stats.Total)
	}
	if stats.Available != 1 {
		t.Errorf("Available = %d, want 1", stats.Available)
	}
	if stats.RateLimited != 1 {
		t.Errorf("RateLimited = %d, want 1", stats.RateLimited)
	}
	if stats.Failed != 1 {
		t.Errorf("Failed = %d, want 1", stats.Failed)
	}
	if stats.Uses[a.Label()] != 2 {
		t.Errorf("Uses[%s] = %d, want 2", a.Label(), stats.Uses[a.Label()])
	}
}
