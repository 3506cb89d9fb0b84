package availability

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultParallelism = 4

// Source fetches raw availability for one pipeline.
type Source interface {
	Kind() Kind
	// Open fetches identifier metadata and returns an empty record for it.
	Open(ctx context.Context, id string) (*Record, error)
	// FetchMonth merges the calendar month starting at month into rec.
	FetchMonth(ctx context.Context, rec *Record, month civil.Date) error
	Close() error
}

type Fetcher struct {
	source      Source
	parallelism int
	logger      *zap.Logger
	now         func() time.Time
}

type fetchResult struct {
	record *Record
	err    error
}

func NewFetcher(source Source, parallelism int, logger *zap.Logger) *Fetcher {
	if parallelism <= 0 {
		parallelism = defaultParallelism
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		source:      source,
		parallelism: parallelism,
		logger:      logger,
		now:         time.Now,
	}
}

func (f *Fetcher) Kind() Kind {
	return f.source.Kind()
}

// Run fetches and aggregates every identifier. Per-identifier failures are
// carried on the matching Summary and never abort the run.
func (f *Fetcher) Run(ctx context.Context, ids []string, window DateWindow, c Constraints) Report {
	ids = dedupeIdentifiers(ids)
	results := f.fetchConcurrent(ctx, ids, window)

	report := Report{
		Kind:      f.source.Kind(),
		Window:    window,
		Summaries: make([]Summary, 0, len(ids)),
		FetchedAt: f.now().UTC(),
	}
	for i, id := range ids {
		result := results[i]
		if result.err != nil {
			f.logger.Warn("fetch failed",
				zap.String("kind", string(f.source.Kind())),
				zap.String("id", id),
				zap.Error(result.err))
			report.Summaries = append(report.Summaries, Summary{
				ID:    id,
				Kind:  f.source.Kind(),
				Error: result.err.Error(),
			})
			continue
		}
		summary := Aggregate(result.record, window, c)
		f.logger.Debug("aggregated",
			zap.String("id", id),
			zap.Int("available", summary.AvailableSubUnits),
			zap.Int("total", summary.TotalSubUnits))
		report.Summaries = append(report.Summaries, summary)
	}
	return report
}

func (f *Fetcher) fetchConcurrent(ctx context.Context, ids []string, window DateWindow) []fetchResult {
	results := make([]fetchResult, len(ids))
	if len(ids) == 0 {
		return results
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.parallelism)
	for i, id := range ids {
		g.Go(func() error {
			rec, err := f.fetchRecord(gctx, id, window)
			results[i] = fetchResult{record: rec, err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (f *Fetcher) fetchRecord(ctx context.Context, id string, window DateWindow) (*Record, error) {
	rec, err := f.source.Open(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, month := range window.Months() {
		f.logger.Debug("fetching month",
			zap.String("id", id),
			zap.String("month", month.String()))
		if err := f.source.FetchMonth(ctx, rec, month); err != nil {
			return nil, fmt.Errorf("month %04d-%02d: %w", month.Year, int(month.Month), err)
		}
	}
	return rec, nil
}

func (f *Fetcher) Close() error {
	if f.source == nil {
		return nil
	}
	return f.source.Close()
}

func dedupeIdentifiers(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := map[string]struct{}{}
	for _, id := range ids {
		trimmed := strings.TrimSpace(id)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}
