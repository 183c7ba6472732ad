package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/bookrec/internal/catalog"
	"github.com/kailas-cloud/bookrec/internal/config"
	"github.com/kailas-cloud/bookrec/internal/db"
	dbredis "github.com/kailas-cloud/bookrec/internal/db/redis"
	"github.com/kailas-cloud/bookrec/internal/domain"
	logpkg "github.com/kailas-cloud/bookrec/internal/logger"
	"github.com/kailas-cloud/bookrec/internal/metrics"
	"github.com/kailas-cloud/bookrec/internal/repository/vectors"
	recommenduc "github.com/kailas-cloud/bookrec/internal/usecase/recommend"
	"github.com/kailas-cloud/bookrec/internal/usecase/semantic"
	"github.com/kailas-cloud/bookrec/internal/vector/memory"
	"github.com/kailas-cloud/bookrec/internal/vector/qdrant"
)

// app is the composition root shared by every subcommand.
type app struct {
	cfg       config.Config
	logger    *zap.Logger
	store     *dbredis.Store
	catalog   *catalog.Store
	provider  domain.Embedder
	index     *semantic.Index
	recommend *recommenduc.Service
	closers   []func()
}

func loadConfig(env string) (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(env)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("create logger: %w", err)
	}
	return cfg, logger, nil
}

func newApp(ctx context.Context, env string) (_ *app, err error) {
	cfg, logger, err := loadConfig(env)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterRetrievalMetrics()
	metrics.RegisterHTTPMetrics()

	if cfg.NeedsStore() {
		if err := a.connectStore(ctx); err != nil {
			return nil, err
		}
	}

	src, err := a.catalogSource()
	if err != nil {
		return nil, err
	}
	a.catalog = catalog.New(src)

	embedders, err := a.buildEmbedders()
	if err != nil {
		return nil, err
	}
	a.provider = embedders.provider

	backend, err := a.buildBackend()
	if err != nil {
		return nil, err
	}

	a.index = semantic.New(embedders.query, backend, a.payloadSource(), cfg.Embedding.Dimensions).
		WithDocumentEmbedder(embedders.document).
		WithBatchSize(cfg.Index.BatchSize).
		WithWorkers(cfg.Index.Workers).
		WithLogger(logger.Named("index"))

	a.recommend = recommenduc.New(a.catalog, a.index).WithMaxTopK(cfg.Retrieval.MaxTopK)

	logger.Info("Components wired",
		zap.String("catalog_source", cfg.Catalog.Source),
		zap.String("index_backend", cfg.Index.Backend),
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.String("embedding_model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.String("embedding_cache", cfg.Embedding.Cache.Backend),
	)
	return a, nil
}

// Close releases resources in reverse acquisition order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
	_ = a.logger.Sync()
}

func (a *app) onClose(f func()) {
	a.closers = append(a.closers, f)
}

func (a *app) connectStore(ctx context.Context) error {
	store, err := dbredis.NewStore(dbredis.Config{
		Addrs:    a.cfg.Database.Addrs,
		Username: a.cfg.Database.Username,
		Password: a.cfg.Database.Password,
		DB:       a.cfg.Database.DB,
	})
	if err != nil {
		return fmt.Errorf("create database store: %w", err)
	}
	a.onClose(store.Close)

	timeout := time.Duration(a.cfg.Database.ReadinessTimeout) * time.Second
	if err := store.WaitForReady(ctx, timeout); err != nil {
		return fmt.Errorf("database not ready: %w", err)
	}
	a.store = store
	a.logger.Info("Connected to database", zap.Strings("addrs", a.cfg.Database.Addrs))
	return nil
}

func (a *app) catalogSource() (catalog.Source, error) {
	switch a.cfg.Catalog.Source {
	case config.CatalogSQLite:
		sqlite, err := catalog.OpenSQLite(a.cfg.Catalog.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open catalog: %w", err)
		}
		a.onClose(func() { _ = sqlite.Close() })
		return sqlite, nil
	default:
		return catalog.NewCSVSource(a.cfg.Catalog.CSVPath), nil
	}
}

func (a *app) payloadSource() semantic.PayloadSource {
	if a.cfg.Catalog.TaggedPath != "" {
		return catalog.TaggedFile{Path: a.cfg.Catalog.TaggedPath}
	}
	return catalog.TaggedRecords{Store: a.catalog}
}

func (a *app) buildBackend() (semantic.Backend, error) {
	switch a.cfg.Index.Backend {
	case config.BackendQdrant:
		repo, err := qdrant.New(a.cfg.Qdrant.Host, a.cfg.Qdrant.Port, a.cfg.Qdrant.Collection)
		if err != nil {
			return nil, fmt.Errorf("create qdrant backend: %w", err)
		}
		a.onClose(func() { _ = repo.Close() })
		return repo, nil
	case config.BackendMemory:
		return memory.New(), nil
	default:
		return vectors.New(a.store, a.cfg.Index.Name).WithHNSW(db.HNSW{
			M:              a.cfg.Index.HNSWM,
			EFConstruction: a.cfg.Index.HNSWEFConstruct,
		}), nil
	}
}
