package control

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/applyflow/applyflow/internal/core/config"
	"github.com/applyflow/applyflow/internal/extract"
	"github.com/applyflow/applyflow/internal/inference"
	redisclient "github.com/applyflow/applyflow/internal/infra/redis"
	"github.com/applyflow/applyflow/internal/infra/storage/postgres"
	"github.com/applyflow/applyflow/internal/mail"
	"github.com/applyflow/applyflow/internal/objectstore"
	"github.com/applyflow/applyflow/internal/pipeline/ingest"
	"github.com/applyflow/applyflow/internal/pipeline/replies"
)

// App owns the full pipeline: storage, mail, inference, the run scheduler
// and the status server.
type App struct {
	runner      *Runner
	server      *Server
	db          *postgres.DB
	redisClient *redisclient.Client
	log         *slog.Logger
}

// New wires every component from configuration. Redis and the object store
// are optional; the pipeline degrades to no failure tracking and no résumé
// archival when they are absent.
func New(ctx context.Context, cfg *config.AppConfig) (*App, error) {
	log := slog.Default()

	// Storage
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to init db: %w", err)
	}
	if err := db.Migrate("migrations"); err != nil {
		return nil, err
	}
	applicantRepo := postgres.NewApplicantRepo(db)
	commRepo := postgres.NewCommunicationRepo(db)

	// Failed-message tracking (optional)
	var redisClient *redisclient.Client
	var tracker ingest.FailureTracker
	if cfg.Redis.URL != "" {
		redisClient, err = redisclient.NewClient(cfg.Redis)
		if err != nil {
			log.Warn("Failed to connect to Redis, failure tracking disabled", "error", err)
		} else {
			tracker = redisclient.NewFailedMessageRepo(redisClient)
		}
	}

	// Mail
	source, err := mail.NewGmailSource(ctx, mail.Config{
		Address:      cfg.Mail.Address,
		ClientID:     cfg.Mail.ClientID,
		ClientSecret: cfg.Mail.ClientSecret,
		RefreshToken: cfg.Mail.RefreshToken,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init mail source: %w", err)
	}

	// Résumé archival (optional)
	var store objectstore.Store
	if cfg.ObjectStore.Bucket != "" {
		s3Store, err := objectstore.NewS3Store(ctx, objectstore.S3Config{
			Bucket: cfg.ObjectStore.Bucket,
			Region: cfg.ObjectStore.Region,
			Prefix: cfg.ObjectStore.Prefix,
		})
		if err != nil {
			log.Warn("Failed to init object store, resume archival disabled", "error", err)
		} else {
			store = s3Store
		}
	}

	// Inference
	pool, err := inference.NewPool(cfg.Inference.Credentials)
	if err != nil {
		return nil, err
	}
	provider := inference.NewGeminiProvider(cfg.Inference.Model, cfg.Inference.RequestTimeout)
	classifier := inference.NewClient(pool, provider, inference.ClientConfig{
		MaxAttempts: cfg.Inference.MaxAttempts,
		MaxDelay:    cfg.Inference.MaxDelay,
	})

	// Pipeline
	roles := cfg.Pipeline.Roles
	if len(roles) == 0 {
		roles = config.DefaultRoles
	}
	coordinator := ingest.NewCoordinator(
		source,
		extract.NewDocExtractor(),
		classifier,
		store,
		applicantRepo,
		tracker,
		roles,
		log,
	)
	replyTracker := replies.NewTracker(source, applicantRepo, commRepo, log)

	runner := NewRunner(coordinator, replyTracker, pool, cfg.Pipeline.SyncInterval, log)
	server := NewServer(runner, applicantRepo, db, cfg.Server.Port, log)

	return &App{
		runner:      runner,
		server:      server,
		db:          db,
		redisClient: redisClient,
		log:         log,
	}, nil
}

// Start launches the status server and the run scheduler. It returns once
// both are running; the scheduler stops when ctx is cancelled.
func (a *App) Start(ctx context.Context) error {
	go func() {
		if err := a.server.Start(); err != nil {
			a.log.Error("Status server failed", "error", err)
		}
	}()

	a.db.StartMetricsCollector(ctx)

	go func() {
		if err := a.runner.Start(ctx); err != nil && ctx.Err() == nil {
			a.log.Error("Runner stopped", "error", err)
		}
	}()

	return nil
}

// RunOnce performs a single pipeline run, for one-shot invocations.
func (a *App) RunOnce(ctx context.Context) {
	a.runner.RunOnce(ctx)
}

// Stop shuts everything down.
func (a *App) Stop(ctx context.Context) error {
	a.log.Info("Stopping...")

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Warn("Failed to close Redis", "error", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("Failed to close database", "error", err)
		}
	}
	return a.server.Stop(ctx)
}
