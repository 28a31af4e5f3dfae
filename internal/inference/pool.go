package inference

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// DefaultCooldown is applied when a rate-limit error carries no usable
// retry-after hint.
const DefaultCooldown = time.Hour

// Credential is an opaque secret granting access to the inference provider.
type Credential struct {
	secret string
}

// Secret returns the raw credential value.
func (c *Credential) Secret() string { return c.secret }

// Label returns a redacted identifier safe for logging.
func (c *Credential) Label() string {
	if len(c.secret) <= 8 {
		return c.secret
	}
	return c.secret[:8] + "..."
}

type credentialStatus string

const (
	statusAvailable   credentialStatus = "Available"
	statusRateLimited credentialStatus = "RateLimited"
	statusFailed      credentialStatus = "Failed"
)

type credentialEntry struct {
	cred         *Credential
	status       credentialStatus
	limitedUntil time.Time
	uses         int
}

// Pool manages a set of interchangeable inference credentials with
// rotation, cooldowns and permanent exclusion. All methods are safe for
// concurrent use; runs sharing one pool need no external locking.
type Pool struct {
	mu      sync.Mutex
	entries []*credentialEntry
	index   map[*Credential]int
	cursor  int
	now     func() time.Time
}

// PoolStats reports per-state counts and per-credential usage.
type PoolStats struct {
	Total       int            `json:"total"`
	Available   int            `json:"available"`
	RateLimited int            `json:"rate_limited"`
	Failed      int            `json:"failed"`
	Uses        map[string]int `json:"uses"`
}

// NewPool creates a pool from a non-empty credential list. Iteration order
// is shuffled once so independent pool instances spread load evenly.
func NewPool(secrets []string) (*Pool, error) {
	if len(secrets) == 0 {
		return nil, fmt.Errorf("credential pool requires at least one credential")
	}

	shuffled := make([]string, len(secrets))
	copy(shuffled, secrets)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	p := &Pool{
		entries: make([]*credentialEntry, 0, len(shuffled)),
		index:   make(map[*Credential]int, len(shuffled)),
		now:     time.Now,
	}
	for i, s := range shuffled {
		e := &credentialEntry{
			cred:   &Credential{secret: s},
			status: statusAvailable,
		}
		p.entries = append(p.entries, e)
		p.index[e.cred] = i
	}
	return p, nil
}

// GetNext returns the next usable credential, or nil when a full cycle
// finds none. Expired cooldowns are lifted lazily on the way; no
// background timer is involved. The cursor does not advance here, so
// repeated calls without MarkUsed return the same credential.
func (p *Pool) GetNext() *Credential {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	for i := 0; i < len(p.entries); i++ {
		idx := (p.cursor + i) % len(p.entries)
		e := p.entries[idx]

		if e.status == statusRateLimited && !now.Before(e.limitedUntil) {
			e.status = statusAvailable
		}
		if e.status != statusAvailable {
			continue
		}

		p.cursor = idx
		return e.cred
	}
	return nil
}

// MarkUsed records a successful use and advances the cursor by one
// position, enforcing round-robin fairness.
func (p *Pool) MarkUsed(c *Credential) {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx, ok := p.index[c]
	if !ok {
		return
	}
	p.entries[idx].uses++
	p.cursor = (idx + 1) % len(p.entries)
}

// MarkRateLimited cools a credential down for the given duration
// (DefaultCooldown when non-positive). It auto-recovers on a later GetNext
// once the cooldown elapses.
func (p *Pool) MarkRateLimited(c *Credential, cooldown time.Duration) {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	idx, ok := p.index[c]
	if !ok {
		return
	}
	e := p.entries[idx]
	if e.status == statusFailed {
		return
	}
	e.status = statusRateLimited
	e.limitedUntil = p.now().Add(cooldown)
}

// MarkFailed excludes a credential for the process lifetime. Only
// auth/invalid-input class errors warrant this.
func (p *Pool) MarkFailed(c *Credential) {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx, ok := p.index[c]
	if !ok {
		return
	}
	p.entries[idx].status = statusFailed
}

// Stats returns current per-state counts and usage counters.
func (p *Pool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	stats := PoolStats{
		Total: len(p.entries),
		Uses:  make(map[string]int, len(p.entries)),
	}
	for _, e := range p.entries {
		switch {
		case e.status == statusFailed:
			stats.Failed++
		case e.status == statusRateLimited && now.Before(e.limitedUntil):
			stats.RateLimited++
		default:
			stats.Available++
		}
		stats.Uses[e.cred.Label()] = e.uses
	}
	return stats
}
