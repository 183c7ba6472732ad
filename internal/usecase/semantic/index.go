// Package semantic maps query text to the nearest catalog payloads.
package semantic

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/bookrec/internal/domain"
	"github.com/kailas-cloud/bookrec/internal/domain/book"
)

const (
	defaultBatchSize = 64
	defaultWorkers   = 4
)

// Index is the vector index used by the retrieval pipeline.
// Init is guarded so concurrent first callers build the index exactly once.
type Index struct {
	embed    domain.Embedder
	docEmbed domain.Embedder
	backend  Backend
	source   PayloadSource
	dim      int

	batchSize int
	workers   int
	logger    *zap.Logger

	initMu   sync.Mutex
	initDone bool
	initErr  error
	ready    atomic.Bool
	buildMu  sync.Mutex
}

// New creates an index over backend. source may be nil when the backend is populated out of band.
func New(embed domain.Embedder, backend Backend, source PayloadSource, dim int) *Index {
	return &Index{
		embed:     embed,
		docEmbed:  embed,
		backend:   backend,
		source:    source,
		dim:       dim,
		batchSize: defaultBatchSize,
		workers:   defaultWorkers,
		logger:    zap.NewNop(),
	}
}

// WithDocumentEmbedder embeds indexed descriptions with e instead of the query embedder.
func (x *Index) WithDocumentEmbedder(e domain.Embedder) *Index {
	if e != nil {
		x.docEmbed = e
	}
	return x
}

// WithBatchSize sets how many payloads are embedded per provider call.
func (x *Index) WithBatchSize(n int) *Index {
	if n > 0 {
		x.batchSize = n
	}
	return x
}

// WithWorkers sets the bootstrap worker pool size.
func (x *Index) WithWorkers(n int) *Index {
	if n > 0 {
		x.workers = n
	}
	return x
}

// WithLogger sets the logger used for bootstrap progress.
func (x *Index) WithLogger(l *zap.Logger) *Index {
	if l != nil {
		x.logger = l
	}
	return x
}

// Init ensures the backend collection exists and bootstraps it when empty.
// Concurrent callers block until the first one finishes. The outcome, including
// failure, is cached for the life of the Index, except when the caller's context
// was cancelled or timed out: the next caller then starts over.
func (x *Index) Init(ctx context.Context) error {
	x.initMu.Lock()
	defer x.initMu.Unlock()

	if x.initDone {
		return x.initErr
	}
	err := x.init(ctx)
	if err != nil && ctx.Err() != nil {
		return err
	}
	x.initDone = true
	x.initErr = err
	if err == nil {
		x.ready.Store(true)
	}
	return err
}

// Ready reports ErrNotReady until Init has completed successfully.
func (x *Index) Ready() error {
	if x.ready.Load() {
		return nil
	}
	return domain.ErrNotReady
}

func (x *Index) init(ctx context.Context) error {
	if err := x.backend.Ensure(ctx, x.dim); err != nil {
		return fmt.Errorf("%w: ensure: %w", domain.ErrIndexUnavailable, err)
	}
	n, err := x.backend.Count(ctx)
	if err != nil {
		return fmt.Errorf("%w: count: %w", domain.ErrIndexUnavailable, err)
	}
	if n > 0 {
		x.logger.Info("vector index ready", zap.Int("documents", n))
		return nil
	}
	return x.populate(ctx)
}

// Search embeds text and returns up to k nearest hits, closest first.
// Any failure, including lazy initialization, wraps ErrIndexUnavailable.
func (x *Index) Search(ctx context.Context, text string, k int) ([]domain.Hit, error) {
	if err := x.Init(ctx); err != nil {
		if errors.Is(err, domain.ErrIndexUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, err)
	}

	emb, err := x.embed.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %w", domain.ErrIndexUnavailable, err)
	}

	hits, err := x.backend.Search(ctx, emb.Embedding, k)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, err)
	}
	return hits, nil
}

// Rebuild drops the backend collection and repopulates it from the payload source.
func (x *Index) Rebuild(ctx context.Context) error {
	x.ready.Store(false)
	if err := x.backend.Drop(ctx); err != nil {
		return fmt.Errorf("drop index: %w", err)
	}
	if err := x.backend.Ensure(ctx, x.dim); err != nil {
		return fmt.Errorf("ensure index: %w", err)
	}
	if err := x.populate(ctx); err != nil {
		return err
	}
	x.ready.Store(true)
	return nil
}

// populate embeds every payload in batches on a worker pool and upserts them.
func (x *Index) populate(ctx context.Context) error {
	x.buildMu.Lock()
	defer x.buildMu.Unlock()

	if x.source == nil {
		return fmt.Errorf("%w: index is empty and no payload source is configured", domain.ErrIndexUnavailable)
	}
	payloads, err := x.source.Payloads(ctx)
	if err != nil {
		return fmt.Errorf("%w: load payloads: %w", domain.ErrIndexUnavailable, err)
	}
	if len(payloads) == 0 {
		return fmt.Errorf("%w: no payloads to index", domain.ErrIndexUnavailable)
	}

	pool, err := ants.NewPool(x.workers)
	if err != nil {
		return fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	start := time.Now()
	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
		indexed  atomic.Int64
	)
	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for lo := 0; lo < len(payloads); lo += x.batchSize {
		hi := min(lo+x.batchSize, len(payloads))
		batch := payloads[lo:hi]
		offset := lo

		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			if err := ctx.Err(); err != nil {
				fail(err)
				return
			}
			if err := x.indexBatch(ctx, offset, batch); err != nil {
				fail(err)
				return
			}
			indexed.Add(int64(len(batch)))
		})
		if submitErr != nil {
			wg.Done()
			fail(fmt.Errorf("submit batch: %w", submitErr))
			break
		}
	}
	wg.Wait()

	if firstErr == nil {
		firstErr = ctx.Err()
	}
	if firstErr != nil {
		x.discardPartial(ctx, indexed.Load())
		return fmt.Errorf("%w: populate: %w", domain.ErrIndexUnavailable, firstErr)
	}
	x.logger.Info("vector index populated",
		zap.Int64("documents", indexed.Load()),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

// discardPartial drops what an interrupted populate wrote, so a later Init
// does not mistake a partial index for a complete one.
func (x *Index) discardPartial(ctx context.Context, indexed int64) {
	if err := x.backend.Drop(context.WithoutCancel(ctx)); err != nil {
		x.logger.Error("drop partial vector index",
			zap.Int64("documents", indexed),
			zap.Error(err),
		)
		return
	}
	x.logger.Warn("partial vector index dropped", zap.Int64("documents", indexed))
}

func (x *Index) indexBatch(ctx context.Context, offset int, payloads []string) error {
	res, err := domain.EmbedAll(ctx, x.docEmbed, payloads)
	if err != nil {
		return fmt.Errorf("embed batch at %d: %w", offset, err)
	}

	docs := make([]domain.IndexDocument, len(payloads))
	for i, p := range payloads {
		docs[i] = domain.IndexDocument{Key: documentKey(p), Payload: p, Vector: res.Embeddings[i]}
	}
	if err := x.backend.Upsert(ctx, docs); err != nil {
		return fmt.Errorf("upsert batch at %d: %w", offset, err)
	}
	return nil
}

// documentKey keys a payload by its catalog id, or by content hash when the id is malformed.
func documentKey(payload string) string {
	if id, ok := book.ParsePayloadID(payload); ok {
		return strconv.FormatInt(id, 10)
	}
	sum := sha256.Sum256([]byte(payload))
	return "x" + hex.EncodeToString(sum[:8])
}
