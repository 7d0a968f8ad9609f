package semantic

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds in-flight annotator calls.
const DefaultConcurrency = 4

// Result pairs a request with what the annotator returned for it.
type Result struct {
	Request    Request
	Annotation *Annotation
}

// ProgressFunc is told how many items are done, out of how many, after each
// annotator call.
type ProgressFunc func(done, total int, current string)

// Enricher fans requests out to an Annotator.
type Enricher struct {
	Annotator   Annotator
	Concurrency int
	Logger      *slog.Logger
	Progress    ProgressFunc
}

// Run annotates every request. A failing item is logged and skipped; only
// context cancellation aborts the run. Results come back in request order
// and only for items that produced a non-empty annotation.
func (e *Enricher) Run(ctx context.Context, reqs []Request) ([]Result, error) {
	if IsNoop(e.Annotator) || len(reqs) == 0 {
		return nil, ctx.Err()
	}
	logger := e.Logger
	if logger == nil {
		logger = slog.Default()
	}
	limit := e.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	annotations := make([]*Annotation, len(reqs))
	var (
		done     atomic.Int64
		failures atomic.Int64
		progress sync.Mutex
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := range reqs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ann, err := e.Annotator.Annotate(gctx, reqs[i])
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				failures.Add(1)
				logger.Warn("Annotation failed", "target", reqs[i].Target, "id", reqs[i].ID, "error", err.Error())
			} else if !ann.Empty() {
				annotations[i] = ann
			}

			n := int(done.Add(1))
			if e.Progress != nil {
				progress.Lock()
				e.Progress(n, len(reqs), reqs[i].ID)
				progress.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(reqs))
	for i, ann := range annotations {
		if ann != nil {
			results = append(results, Result{Request: reqs[i], Annotation: ann})
		}
	}
	if n := failures.Load(); n > 0 {
		logger.Info("Enrichment finished with failures", "annotated", len(results), "failed", n, "total", len(reqs))
	}
	return results, nil
}
