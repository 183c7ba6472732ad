package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/bookrec/internal/catalog"
	chiTransport "github.com/kailas-cloud/bookrec/internal/transport/chi"
	healthuc "github.com/kailas-cloud/bookrec/internal/usecase/health"
	"github.com/kailas-cloud/bookrec/internal/version"
)

func runServe(ctx context.Context, env string) error {
	a, err := newApp(ctx, env)
	if err != nil {
		return err
	}
	defer a.Close()
	cfg := a.cfg
	logger := a.logger

	logger.Info("Starting bookrec API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
	)

	if err := a.catalog.Load(ctx); err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	logger.Info("Catalog loaded", zap.Int("books", a.catalog.Len()))

	// Pass nil interface (not typed nil pointer) when no store is configured.
	var pinger healthuc.DBPinger
	if a.store != nil {
		pinger = a.store
	}
	healthSvc := healthuc.New(pinger, newEmbeddingHealthChecker(a.provider)).
		WithReadiness("catalog", a.catalog)

	if cfg.Index.Lazy {
		logger.Info("Vector index bootstrap deferred to first query")
	} else {
		if err := a.index.Init(ctx); err != nil {
			return fmt.Errorf("init vector index: %w", err)
		}
		healthSvc.WithReadiness("index", a.index)
	}

	server := chiTransport.NewServer(a.recommend, healthSvc, logger)
	handler := chiTransport.NewRouter(server, chiTransport.RouterConfig{
		APIKeys:            cfg.Auth.APIKeys,
		CORSAllowedOrigins: cfg.CORS.AllowedOrigins,
		RateLimitRequests:  cfg.RateLimit.Requests,
		RateLimitWindow:    cfg.RateLimit.Window(),
	}, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("Server stopped gracefully")
	return nil
}

func runIndex(ctx context.Context, env string, rebuild bool) error {
	a, err := newApp(ctx, env)
	if err != nil {
		return err
	}
	defer a.Close()

	start := time.Now()
	if rebuild {
		err = a.index.Rebuild(ctx)
	} else {
		err = a.index.Init(ctx)
	}
	if err != nil {
		return fmt.Errorf("index: %w", err)
	}
	a.logger.Info("Vector index ready",
		zap.Bool("rebuild", rebuild),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

func runImport(ctx context.Context, env, csvPath, sqlitePath string) error {
	cfg, logger, err := loadConfig(env)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if csvPath == "" {
		csvPath = cfg.Catalog.CSVPath
	}
	if sqlitePath == "" {
		sqlitePath = cfg.Catalog.SQLitePath
	}
	if csvPath == "" || sqlitePath == "" {
		return errors.New("both --csv and --sqlite are required when the config does not set them")
	}

	// Loading through the store rejects duplicate ids before anything is written.
	src := catalog.New(catalog.NewCSVSource(csvPath))
	if err := src.Load(ctx); err != nil {
		return fmt.Errorf("read csv: %w", err)
	}

	db, err := catalog.OpenSQLite(sqlitePath)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	n, err := db.Import(ctx, src.Records())
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}
	logger.Info("Catalog imported",
		zap.String("csv", csvPath),
		zap.String("sqlite", sqlitePath),
		zap.Int("books", n),
	)
	return nil
}

type recommendOptions struct {
	query       string
	category    string
	tone        string
	initialTopK int
	finalTopK   int
}

func runRecommend(ctx context.Context, env string, opts recommendOptions, out io.Writer) error {
	a, err := newApp(ctx, env)
	if err != nil {
		return err
	}
	defer a.Close()

	q, err := a.recommend.NewQuery(ctx, opts.query, opts.category, opts.tone, opts.initialTopK, opts.finalTopK)
	if err != nil {
		return err
	}
	recs, err := a.recommend.Recommend(ctx, q)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(chiTransport.NewRecommendResponse(recs)); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	return nil
}
