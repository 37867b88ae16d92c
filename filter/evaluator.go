package filter

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// EvaluatorOption configures an evaluator
type EvaluatorOption func(*ConcurrentEvaluator)

// WithWorkers sets the number of worker goroutines
func WithWorkers(workers int) EvaluatorOption {
	return func(e *ConcurrentEvaluator) {
		if workers > 0 {
			e.workerCount = workers
		}
	}
}

// WithBatchSize sets the batch size for chunked processing
func WithBatchSize(size int) EvaluatorOption {
	return func(e *ConcurrentEvaluator) {
		if size > 0 {
			e.batchSize = size
		}
	}
}

// ConcurrentEvaluator implements both Evaluator and BatchEvaluator
type ConcurrentEvaluator struct {
	workerCount int
	batchSize   int
}

// NewConcurrentEvaluator creates a new concurrent evaluator
func NewConcurrentEvaluator(opts ...EvaluatorOption) *ConcurrentEvaluator {
	e := &ConcurrentEvaluator{
		workerCount: runtime.GOMAXPROCS(0),
		batchSize:   100,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Evaluate evaluates a single filter against all manga
func (e *ConcurrentEvaluator) Evaluate(ctx context.Context, filter CompiledFilter, manga []MangaInfo) ([]MangaInfo, error) {
	if len(manga) == 0 {
		return []MangaInfo{}, nil
	}

	// Small lists are not worth the goroutines
	if len(manga) < e.batchSize {
		return evaluateSequential(filter, manga), nil
	}

	return e.evaluateConcurrent(ctx, filter, manga)
}

// EvaluateBatch evaluates multiple filters against manga concurrently.
// Filters that fail are left out of the result.
func (e *ConcurrentEvaluator) EvaluateBatch(ctx context.Context, filters map[string]CompiledFilter, manga []MangaInfo) (map[string][]MangaInfo, error) {
	results := make(map[string][]MangaInfo, len(filters))
	if len(filters) == 0 || len(manga) == 0 {
		return results, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workerCount)

	for name, filter := range filters {
		g.Go(func() error {
			matches, err := e.Evaluate(gctx, filter, manga)
			if err != nil {
				return nil
			}
			mu.Lock()
			results[name] = matches
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func evaluateSequential(filter CompiledFilter, manga []MangaInfo) []MangaInfo {
	matches := make([]MangaInfo, 0, len(manga)/10)
	for _, m := range manga {
		if filter.Evaluate(m) {
			matches = append(matches, m)
		}
	}
	return matches
}

// evaluateConcurrent splits manga into chunks and joins the matches in the
// original order
func (e *ConcurrentEvaluator) evaluateConcurrent(ctx context.Context, filter CompiledFilter, manga []MangaInfo) ([]MangaInfo, error) {
	chunkSize := max(len(manga)/e.workerCount, e.batchSize)
	chunks := make([][]MangaInfo, (len(manga)+chunkSize-1)/chunkSize)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workerCount)

	for i := range chunks {
		start := i * chunkSize
		chunk := manga[start:min(start+chunkSize, len(manga))]

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			chunks[i] = evaluateSequential(filter, chunk)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	all := make([]MangaInfo, 0, total)
	for _, c := range chunks {
		all = append(all, c...)
	}
	return all, nil
}
