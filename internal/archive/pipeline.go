package archive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"archivist/internal/batch"
	"archivist/internal/commons"
	"archivist/internal/config"
	"archivist/internal/fetch"
	"archivist/internal/index"
	"archivist/internal/journal"
	"archivist/internal/logging"
	"archivist/internal/notifications"
	"archivist/internal/outcome"
	"archivist/internal/preflight"
)

// SourceCommons names the Wikimedia Commons source in logs and the journal.
const SourceCommons = "wikimedia-commons"

// Pipeline stage names used in log context.
const (
	StageResolve = "resolve"
	StageFetch   = "fetch"
	StageIndex   = "index"
)

// ErrNoIdentifiers is returned when a request has nothing to archive.
var ErrNoIdentifiers = errors.New("archive: no identifiers given")

// Request describes one archive run.
type Request struct {
	Identifiers []string
	DestDir     string
	// IndexPath is the Markdown index to update. Empty skips indexing.
	IndexPath string
}

// Dependencies are the collaborators a Pipeline uses besides its config.
type Dependencies struct {
	Logger *slog.Logger
	// Journal records each run when non-nil.
	Journal *journal.Store
	// Notifier receives a summary of each run when non-nil.
	Notifier   notifications.Service
	HTTPClient *http.Client
	Version    string
}

// Pipeline archives Commons files according to a config.
type Pipeline struct {
	cfg    *config.Config
	deps   Dependencies
	logger *slog.Logger
	retry  fetch.RetryPolicy
	now    func() time.Time
}

// New returns a pipeline for cfg.
func New(cfg *config.Config, deps Dependencies) (*Pipeline, error) {
	if cfg == nil {
		return nil, errors.New("archive: config is nil")
	}
	return &Pipeline{
		cfg:    cfg,
		deps:   deps,
		logger: logging.NewComponentLogger(deps.Logger, "archive"),
		retry:  fetch.RetryPolicy{MaxRetries: cfg.Fetch.MaxRetries},
		now:    time.Now,
	}, nil
}

// Run executes the pipeline. Per-item failures and index failures are
// reported in the returned Report; the error is non-nil only when the run
// could not start.
func (p *Pipeline) Run(ctx context.Context, req Request) (outcome.Report, error) {
	started := p.now()
	ids := batch.Normalize(req.Identifiers)
	if len(ids) == 0 {
		return outcome.Report{}, ErrNoIdentifiers
	}
	if err := p.preflight(req); err != nil {
		return outcome.Report{}, err
	}

	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, p.logger)
	logger.Info("archive run started",
		logging.String("source", SourceCommons),
		logging.Int("identifiers", len(ids)),
		logging.String("dest_dir", req.DestDir),
		logging.String("index_path", req.IndexPath),
	)

	resolver, fetcher, err := p.build(req)
	if err != nil {
		return outcome.Report{}, err
	}

	collector := outcome.NewCollector(len(ids))
	fetchCtx := logging.WithStage(ctx, StageFetch)
	resolveCtx := logging.WithStage(ctx, StageResolve)
	sink := newFetchingSink(fetchCtx, fetcher, collector,
		logging.WithContext(fetchCtx, p.logger),
		logging.WithContext(resolveCtx, p.logger),
	)
	resolver.Resolve(resolveCtx, ids, sink)
	sink.wait()

	cancelled := ctx.Err() != nil
	if cancelled {
		collector.Cancelled()
		logger.Warn("archive run interrupted",
			logging.Int("archived", len(collector.Successes())),
			logging.Event("run_cancelled"),
		)
	}

	p.merge(ctx, req.IndexPath, cancelled, collector)

	report := collector.Finalize()
	p.record(ctx, runID, started, req, report)
	p.notify(ctx, runID, started, report)

	logger.Info("archive run finished",
		logging.String("status", report.Status().String()),
		logging.String("summary", report.Summary()),
		logging.Duration("elapsed", p.now().Sub(started)),
	)
	return report, nil
}

func (p *Pipeline) preflight(req Request) error {
	checkCfg := *p.cfg
	checkCfg.Paths.DestDir = req.DestDir
	checkCfg.Paths.IndexPath = req.IndexPath
	if err := preflight.Err(preflight.RunAll(&checkCfg)); err != nil {
		return fmt.Errorf("preflight: %w", err)
	}
	return nil
}

func (p *Pipeline) build(req Request) (*commons.Resolver, *fetch.Fetcher, error) {
	gate := fetch.NewGate(p.cfg.Fetch.MaxConcurrentRequests, p.cfg.Fetch.MaxConcurrentPerHost)
	userAgent := commons.UserAgent(p.deps.Version, p.cfg.Commons.Contact)

	limit := rate.Inf
	if qps := p.cfg.Commons.QueryRatePerSecond; qps > 0 {
		limit = rate.Limit(qps)
	}
	client, err := commons.New(commons.Config{
		APIURL:     p.cfg.Commons.APIURL,
		UserAgent:  userAgent,
		Timeout:    p.cfg.QueryTimeout(),
		Retry:      p.retry,
		Gate:       gate,
		Limiter:    rate.NewLimiter(limit, 1),
		HTTPClient: p.deps.HTTPClient,
		Logger:     p.deps.Logger,
	})
	if err != nil {
		return nil, nil, err
	}
	fetcher, err := fetch.New(fetch.Options{
		DestDir:    req.DestDir,
		UserAgent:  userAgent,
		Timeout:    p.cfg.FetchTimeout(),
		Retry:      p.retry,
		Gate:       gate,
		HTTPClient: p.deps.HTTPClient,
		Logger:     p.deps.Logger,
	})
	if err != nil {
		return nil, nil, err
	}
	return commons.NewResolver(client, p.cfg.Commons.BatchSize, p.deps.Logger), fetcher, nil
}

// merge writes the archived entries into the index. An interrupted run only
// merges when configured to, using a context detached from the cancellation.
func (p *Pipeline) merge(ctx context.Context, indexPath string, cancelled bool, collector *outcome.Collector) {
	ctx = logging.WithStage(ctx, StageIndex)
	logger := logging.WithContext(ctx, p.logger)
	if indexPath == "" {
		logger.Info("indexing skipped", logging.String("reason", "no index path"))
		return
	}
	if cancelled {
		if !p.cfg.Index.MergeOnCancel {
			logger.Info("indexing skipped", logging.String("reason", "run interrupted"))
			return
		}
		ctx = context.WithoutCancel(ctx)
	}

	successes := collector.Successes()
	entries := make([]index.Entry, 0, len(successes))
	for _, s := range successes {
		entries = append(entries, index.Entry{Filename: s.Filename, Credit: s.Credit})
	}
	logger.Info("indexing files", logging.Int("entries", len(entries)), logging.String("index_path", indexPath))
	if err := index.MergeFile(ctx, indexPath, entries); err != nil {
		logger.Error("index merge failed",
			logging.Error(err),
			logging.Event("index_failed"),
			logging.Hint("fix the entry block of the index file and rerun"),
		)
		collector.IndexFailed(err)
	}
}

func (p *Pipeline) record(ctx context.Context, runID string, started time.Time, req Request, report outcome.Report) {
	if p.deps.Journal == nil {
		return
	}
	run := journal.RunFromReport(runID, SourceCommons, started, p.now(), req.DestDir, req.IndexPath, report)
	if err := p.deps.Journal.RecordRun(context.WithoutCancel(ctx), run, journal.ItemsFromReport(report)); err != nil {
		logging.WithContext(ctx, p.logger).Warn("failed to record run in journal",
			logging.Error(err),
			logging.Event("journal_write_failed"),
		)
	}
}

func (p *Pipeline) notify(ctx context.Context, runID string, started time.Time, report outcome.Report) {
	if p.deps.Notifier == nil {
		return
	}
	summary := notifications.RunSummary{
		RunID:     runID,
		Source:    SourceCommons,
		Status:    report.Status(),
		Requested: report.Requested,
		Archived:  len(report.Successes),
		Failed:    len(report.ResolutionFailures) + len(report.FetchFailures),
		Duration:  p.now().Sub(started),
		Cancelled: report.Cancelled,
	}
	if report.IndexErr != nil {
		summary.IndexErr = report.IndexErr.Error()
	}
	if err := p.deps.Notifier.NotifyRunCompleted(context.WithoutCancel(ctx), summary); err != nil {
		logging.WithContext(ctx, p.logger).Warn("run notification failed",
			logging.Error(err),
			logging.Event("notification_failed"),
			logging.Hint("check notifications.ntfy_topic"),
		)
	}
}

// fetchingSink streams each resolved descriptor into the fetcher and
// records every result in the collector.
type fetchingSink struct {
	descs         chan fetch.Descriptor
	done          chan struct{}
	collector     *outcome.Collector
	logger        *slog.Logger
	resolveLogger *slog.Logger
}

func newFetchingSink(ctx context.Context, fetcher *fetch.Fetcher, collector *outcome.Collector, logger, resolveLogger *slog.Logger) *fetchingSink {
	s := &fetchingSink{
		descs:         make(chan fetch.Descriptor),
		done:          make(chan struct{}),
		collector:     collector,
		logger:        logger,
		resolveLogger: resolveLogger,
	}
	go func() {
		defer close(s.done)
		fetcher.FetchAll(ctx, s.descs, s.fetched)
	}()
	return s
}

func (s *fetchingSink) Resolved(d fetch.Descriptor) {
	s.descs <- d
}

func (s *fetchingSink) Aliased(d fetch.Descriptor) {
	s.resolveLogger.Info("identifier shares an archived file",
		logging.Identifier(d.Identifier),
		logging.Filename(d.Filename),
	)
	s.collector.Aliased(d.Filename, d.Identifier)
}

func (s *fetchingSink) ResolutionFailed(f outcome.ResolutionFailure) {
	s.resolveLogger.Warn("identifier not resolved",
		logging.Identifier(f.Identifier),
		logging.String("reason", string(f.Reason)),
		logging.Error(f.Err),
		logging.Event("resolution_failed"),
	)
	s.collector.ResolutionFailed(f)
}

func (s *fetchingSink) fetched(result fetch.Result) {
	d := result.Descriptor
	if result.Err != nil {
		s.logger.Warn("fetch failed",
			logging.Identifier(d.Identifier),
			logging.Filename(d.Filename),
			logging.Error(result.Err),
			logging.Event("fetch_failed"),
		)
		s.collector.FetchFailed(outcome.FetchFailure{
			Identifier: d.Identifier,
			Filename:   d.Filename,
			URL:        d.URL,
			Err:        result.Err,
		})
		return
	}
	s.collector.Succeeded(outcome.Success{
		Identifier: d.Identifier,
		Filename:   d.Filename,
		Credit:     d.Credit,
	})
}

// wait closes the descriptor stream and blocks until every fetch finished.
// It must be called once, after the resolver returned.
func (s *fetchingSink) wait() {
	close(s.descs)
	<-s.done
}
