package commons

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"archivist/internal/batch"
	"archivist/internal/fetch"
	"archivist/internal/logging"
	"archivist/internal/outcome"
)

// Sink receives per-title results. Methods may be called concurrently.
// Aliased receives a title whose file was already passed to Resolved for
// another title.
type Sink interface {
	Resolved(fetch.Descriptor)
	Aliased(fetch.Descriptor)
	ResolutionFailed(outcome.ResolutionFailure)
}

// Resolver splits titles into batches and queries them concurrently.
type Resolver struct {
	client    *Client
	batchSize int
	logger    *slog.Logger
}

// NewResolver returns a resolver issuing batches of batchSize titles,
// clamped to 1..MaxBatchSize.
func NewResolver(client *Client, batchSize int, logger *slog.Logger) *Resolver {
	if batchSize <= 0 || batchSize > MaxBatchSize {
		batchSize = MaxBatchSize
	}
	return &Resolver{
		client:    client,
		batchSize: batchSize,
		logger:    logging.NewComponentLogger(logger, "resolver"),
	}
}

// Resolve reports every title to sink exactly once, as a descriptor or a
// failure. A failed batch fails each of its titles with a transport or
// malformed reason and does not affect other batches. Titles resolving to a
// file already reported go to Aliased. Resolve returns when all batches have
// finished.
func (r *Resolver) Resolve(ctx context.Context, titles []string, sink Sink) {
	logger := logging.WithContext(ctx, r.logger)
	logger.Info("resolving files",
		logging.Int("titles", len(titles)),
		logging.Int("batches", batch.Count(len(titles), r.batchSize)),
	)

	var (
		mu   sync.Mutex
		seen = make(map[string]struct{}, len(titles))
		wg   sync.WaitGroup
	)
	for group := range batch.Batches(titles, r.batchSize) {
		wg.Go(func() {
			res, err := r.client.Query(ctx, group)
			for _, f := range res.Failures {
				sink.ResolutionFailed(f)
			}
			if err != nil {
				r.failBatch(logger, group, res, err, sink)
				return
			}
			for _, d := range res.Descriptors {
				mu.Lock()
				_, dup := seen[d.Filename]
				seen[d.Filename] = struct{}{}
				mu.Unlock()
				if dup {
					logger.Debug("title shares an already resolved file",
						logging.Identifier(d.Identifier),
						logging.Filename(d.Filename),
					)
					sink.Aliased(d)
					continue
				}
				sink.Resolved(d)
			}
		})
	}
	wg.Wait()
}

func (r *Resolver) failBatch(logger *slog.Logger, group []string, res Resolution, err error, sink Sink) {
	reason := outcome.ReasonTransport
	if errors.Is(err, ErrMalformed) {
		reason = outcome.ReasonMalformed
	}
	reported := make(map[string]struct{}, len(res.Failures))
	for _, f := range res.Failures {
		reported[f.Identifier] = struct{}{}
	}
	logger.Warn("commons batch query failed",
		logging.Int("titles", len(group)),
		logging.String("reason", string(reason)),
		logging.Error(err),
		logging.Event("query_batch_failed"),
		logging.Hint("check network connectivity or the configured api_url"),
	)
	for _, title := range group {
		if _, ok := reported[title]; ok {
			continue
		}
		sink.ResolutionFailed(outcome.ResolutionFailure{Identifier: title, Reason: reason, Err: err})
	}
}
