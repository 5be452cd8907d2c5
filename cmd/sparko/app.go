package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/PoYaSharonLin/Sparko-api/internal/config"
	"github.com/PoYaSharonLin/Sparko-api/internal/db/gormdb"
	dbRedis "github.com/PoYaSharonLin/Sparko-api/internal/db/redis"
	"github.com/PoYaSharonLin/Sparko-api/internal/domain"
	logpkg "github.com/PoYaSharonLin/Sparko-api/internal/logger"
	"github.com/PoYaSharonLin/Sparko-api/internal/metrics"
	"github.com/PoYaSharonLin/Sparko-api/internal/queue"
	"github.com/PoYaSharonLin/Sparko-api/internal/queue/memory"
	"github.com/PoYaSharonLin/Sparko-api/internal/queue/redisstream"
	"github.com/PoYaSharonLin/Sparko-api/internal/repository/embcache"
	jobrepo "github.com/PoYaSharonLin/Sparko-api/internal/repository/job"
	"github.com/PoYaSharonLin/Sparko-api/internal/repository/jobsql"
	paperrepo "github.com/PoYaSharonLin/Sparko-api/internal/repository/paper"
	"github.com/PoYaSharonLin/Sparko-api/internal/transport/embedsvc"
	openaiEmb "github.com/PoYaSharonLin/Sparko-api/internal/transport/openai"
	"github.com/PoYaSharonLin/Sparko-api/internal/version"
	embeddinguc "github.com/PoYaSharonLin/Sparko-api/internal/usecase/embedding"
	healthuc "github.com/PoYaSharonLin/Sparko-api/internal/usecase/health"
	interestuc "github.com/PoYaSharonLin/Sparko-api/internal/usecase/interest"
	papersuc "github.com/PoYaSharonLin/Sparko-api/internal/usecase/papers"
)

// jobQueue is what both the API (publish) and the worker (consume) need.
type jobQueue interface {
	queue.Publisher
	queue.Consumer
}

// embeddingProvider is a base provider: it embeds and answers health probes.
type embeddingProvider interface {
	domain.Embedder
	domain.HealthChecker
}

// app is the composition root shared by every subcommand.
type app struct {
	env    string
	cfg    config.Config
	logger *zap.Logger

	store  *dbRedis.Store
	gdb    *gorm.DB
	papers *paperrepo.Repo
	jobs   interestuc.Repository
	queue  jobQueue

	provider embeddingProvider
	embedder domain.Embedder

	interests *interestuc.Service
	listing   *papersuc.Service
	health    *healthuc.Service
}

// newApp loads configuration and connects every backend the config selects.
// Callers must call close.
func newApp(ctx context.Context, component string) (*app, error) {
	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level, component)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	a := &app{env: env, cfg: cfg, logger: logger}
	if err := a.connect(ctx); err != nil {
		a.close()
		return nil, err
	}
	a.wire()
	return a, nil
}

func (a *app) connect(ctx context.Context) error {
	cfg := a.cfg
	a.logger.Info("Starting sparko",
		zap.String("build", version.String()),
		zap.String("env", a.env),
		zap.String("papers_driver", cfg.Papers.Driver),
		zap.String("job_store", cfg.Jobs.Store),
		zap.String("queue_driver", cfg.Queue.Driver),
		zap.String("embedding_provider", cfg.Embedding.Provider),
	)

	if a.needsRedis() {
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Username: cfg.Database.Username,
			Password: cfg.Database.Password,
			DB:       cfg.Database.DB,
		})
		if err != nil {
			return fmt.Errorf("create %s store: %w", cfg.Database.Driver, err)
		}
		a.store = store

		timeout := time.Duration(cfg.Database.ReadinessTimeout) * time.Second
		if err := store.WaitForReady(ctx, timeout); err != nil {
			return fmt.Errorf("%s not ready: %w", cfg.Database.Driver, err)
		}
		a.logger.Info("Connected to key-value store", zap.Strings("addrs", cfg.Database.Addrs))
	}

	gdb, err := gormdb.Open(gormdb.Config{
		Driver:       cfg.Papers.Driver,
		DSN:          cfg.Papers.DSN,
		MaxOpenConns: cfg.Papers.MaxOpenConns,
		MaxIdleConns: cfg.Papers.MaxIdleConns,
	}, a.logger)
	if err != nil {
		return fmt.Errorf("open papers database: %w", err)
	}
	a.gdb = gdb
	a.papers = paperrepo.New(gdb, a.logger)

	switch cfg.Jobs.Store {
	case "sql":
		a.jobs = jobsql.New(gdb, a.logger)
	default:
		a.jobs = jobrepo.New(a.store, a.logger)
	}

	if cfg.Papers.AutoMigrate {
		if err := a.migrate(ctx); err != nil {
			return err
		}
	}

	switch cfg.Queue.Driver {
	case "memory":
		a.queue = memory.New(cfg.Queue.Size)
	default:
		q := redisstream.New(a.store, redisstream.Config{
			Stream:   cfg.Queue.Stream,
			Group:    cfg.Queue.Group,
			Consumer: cfg.Queue.Consumer,
			Block:    time.Duration(cfg.Queue.BlockMs) * time.Millisecond,
			Batch:    int64(cfg.Queue.Batch),
		}, a.logger)
		if err := q.Setup(ctx); err != nil {
			return fmt.Errorf("setup job stream: %w", err)
		}
		a.queue = q
	}
	return nil
}

func (a *app) needsRedis() bool {
	c := a.cfg
	return c.Jobs.Store == "redis" || c.Queue.Driver == "redis" || c.Embedding.Cache.Enabled
}

// migrate creates the papers table and, for the sql job store, the jobs table.
func (a *app) migrate(ctx context.Context) error {
	if err := a.papers.Migrate(ctx); err != nil {
		return err
	}
	if sqlJobs, ok := a.jobs.(*jobsql.Repo); ok {
		if err := sqlJobs.Migrate(ctx); err != nil {
			return err
		}
	}
	a.logger.Info("Database schema up to date", zap.String("driver", a.cfg.Papers.Driver))
	return nil
}

// wire builds the embedder chain and the use case services.
func (a *app) wire() {
	metrics.RegisterHTTPMetrics()
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterJobMetrics()

	a.provider, a.embedder = buildEmbedder(a.cfg.Embedding, a.store, a.logger)

	a.interests = interestuc.New(a.jobs, a.queue, a.logger)
	a.listing = papersuc.New(a.papers, a.interests, a.logger)

	stores := map[string]healthuc.StorePinger{"papers_db": gormdb.NewPinger(a.gdb)}
	if a.store != nil {
		stores[a.cfg.Database.Driver] = a.store
	}
	a.health = healthuc.New(stores, a.provider)
}

func (a *app) close() {
	if a.gdb != nil {
		if sqlDB, err := a.gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if a.store != nil {
		a.store.Close()
	}
	_ = a.logger.Sync()
}

// buildEmbedder assembles the decorator chain: provider -> cached -> instrumented.
// The bare provider is returned too for health probes.
func buildEmbedder(
	cfg config.EmbeddingConfig, store *dbRedis.Store, logger *zap.Logger,
) (embeddingProvider, domain.Embedder) {
	var (
		base  embeddingProvider
		model string
	)
	switch cfg.Provider {
	case "openai":
		model = cfg.OpenAI.Model
		base = openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:         cfg.OpenAI.APIKey,
			BaseURL:        cfg.OpenAI.BaseURL,
			Model:          cfg.OpenAI.Model,
			Dimensions:     cfg.OpenAI.Dimensions,
			Provider:       cfg.Provider,
			ProjectionAxes: cfg.OpenAI.ProjectionAxes,
			Logger:         logger,
		})
	default:
		model = cfg.Model
		if model == "" {
			model = "default"
		}
		base = embedsvc.New(cfg.URL, logger,
			embedsvc.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.TimeoutSec) * time.Second}),
			embedsvc.WithRateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
			embedsvc.WithModel(model),
		)
	}

	var embedder domain.Embedder = base
	if cfg.Cache.Enabled && store != nil {
		ttl := time.Duration(cfg.Cache.TTLSec) * time.Second
		embedder = embcache.New(embedder, store, ttl, metrics.EmbeddingCacheTotal, logger)
	}

	logger.Info("Embedder created",
		zap.String("provider", cfg.Provider),
		zap.String("model", model),
		zap.Bool("cache", cfg.Cache.Enabled),
	)
	return base, embeddinguc.NewInstrumentedEmbedder(embedder, cfg.Provider, model, logger)
}
