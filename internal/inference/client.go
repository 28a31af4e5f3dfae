package inference

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"time"

	"github.com/applyflow/applyflow/internal/core/domain"
	"github.com/applyflow/applyflow/internal/pipeline/metrics"
)

// ClientConfig controls the retry behavior of extraction calls.
type ClientConfig struct {
	MaxAttempts int
	MaxDelay    time.Duration
}

// DefaultClientConfig provides sensible defaults.
var DefaultClientConfig = ClientConfig{
	MaxAttempts: 3,
	MaxDelay:    30 * time.Second,
}

// retryState is one step of the extraction state machine. Keeping the
// transitions explicit makes each one testable without network I/O.
type retryState int

const (
	stateAcquire retryState = iota
	stateInvoke
	stateClassify
	stateBackoff
	stateExhausted
)

// Client drives classification calls against a credential pool: acquire,
// invoke, classify the outcome, back off, repeat until success or the
// attempt budget runs out.
type Client struct {
	pool     *Pool
	provider Provider
	cfg      ClientConfig
	log      *slog.Logger

	// replaced in tests
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient creates an extraction client over the given pool and provider.
func NewClient(pool *Pool, provider Provider, cfg ClientConfig) *Client {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultClientConfig.MaxAttempts
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultClientConfig.MaxDelay
	}
	return &Client{
		pool:     pool,
		provider: provider,
		cfg:      cfg,
		log:      slog.Default(),
		sleep:    sleepCtx,
	}
}

// Extract runs the retry state machine for one request. It returns
// ErrNoCredentials when the pool is exhausted at call time and
// ErrExtractionFailed when all attempts are consumed; both leave the input
// eligible for retry on a future run.
func (c *Client) Extract(ctx context.Context, req domain.ExtractionRequest) (*domain.ExtractionResult, error) {
	prompt := BuildPrompt(&req)
	if req.Truncated {
		c.log.Warn("Combined text exceeded cap, truncated", "limit", MaxCombinedText)
	}

	var (
		cred    *Credential
		raw     string
		callErr error
		attempt int
	)

	state := stateAcquire
	for {
		switch state {
		case stateAcquire:
			cred = c.pool.GetNext()
			if cred == nil {
				c.log.Error("No available credentials remaining")
				return nil, ErrNoCredentials
			}
			state = stateInvoke

		case stateInvoke:
			start := time.Now()
			raw, callErr = c.provider.Generate(ctx, prompt, cred.Secret())
			metrics.InferenceLatency.Observe(time.Since(start).Seconds())
			state = stateClassify

		case stateClassify:
			if callErr == nil {
				if res := ParseResult(raw); res != nil {
					res.Domain = NormalizeDomain(res.Domain)
					c.pool.MarkUsed(cred)
					metrics.InferenceAttempts.WithLabelValues("success").Inc()
					c.log.Info("Extraction succeeded", "credential", cred.Label())
					return res, nil
				}
				// Malformed output consumes the attempt but the
				// credential itself did no wrong: state unchanged,
				// usage not recorded.
				metrics.InferenceAttempts.WithLabelValues("parse_failure").Inc()
				c.log.Warn("No JSON object in model response", "credential", cred.Label())
			} else {
				c.classifyError(cred, callErr)
			}

			attempt++
			if attempt >= c.cfg.MaxAttempts {
				state = stateExhausted
			} else {
				state = stateBackoff
			}

		case stateBackoff:
			delay := c.backoffDelay()
			c.log.Info("Attempt failed, backing off", "attempt", attempt, "delay", delay)
			if err := c.sleep(ctx, delay); err != nil {
				return nil, err
			}
			state = stateAcquire

		case stateExhausted:
			c.log.Error("All retry attempts exhausted", "attempts", c.cfg.MaxAttempts)
			return nil, ErrExtractionFailed
		}
	}
}

// classifyError updates pool state according to the error class. Quota
// errors cool the credential down, auth/input errors exclude it
// permanently, anything else leaves it untouched.
func (c *Client) classifyError(cred *Credential, err error) {
	var (
		quotaErr *QuotaError
		authErr  *AuthError
		inputErr *InvalidInputError
	)
	switch {
	case errors.As(err, &quotaErr):
		cooldown := ParseRetryAfter(quotaErr.Message)
		c.pool.MarkRateLimited(cred, cooldown)
		metrics.InferenceAttempts.WithLabelValues("quota").Inc()
		c.log.Warn("Credential exceeded quota",
			"credential", cred.Label(), "cooldown", cooldown)
	case errors.As(err, &authErr):
		c.pool.MarkFailed(cred)
		metrics.InferenceAttempts.WithLabelValues("auth_failure").Inc()
		c.log.Error("Credential rejected, excluding permanently",
			"credential", cred.Label(), "error", err)
	case errors.As(err, &inputErr):
		c.pool.MarkFailed(cred)
		metrics.InferenceAttempts.WithLabelValues("invalid_input").Inc()
		c.log.Error("Invalid input, excluding credential",
			"credential", cred.Label(), "error", err)
	default:
		metrics.InferenceAttempts.WithLabelValues("transient").Inc()
		c.log.Warn("Transient inference error",
			"credential", cred.Label(), "error", err)
	}
}

// backoffDelay is min(60s, MaxDelay) plus up to 10% jitter so concurrent
// callers desynchronize.
func (c *Client) backoffDelay() time.Duration {
	delay := c.cfg.MaxDelay
	if delay > 60*time.Second {
		delay = 60 * time.Second
	}
	jitter := time.Duration(rand.Float64() * 0.1 * float64(delay))
	return delay + jitter
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
