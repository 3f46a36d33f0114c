// Package ingest orchestrates the export ingestion pipeline: resolve the
// document stream, extract and classify observations, fold them into daily
// aggregates, and merge the result into persisted state.
package ingest

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"example.com/healthstats/internal/aggregate"
	"example.com/healthstats/internal/analytics"
	"example.com/healthstats/internal/domain"
	"example.com/healthstats/internal/export"
	"example.com/healthstats/internal/observability"
)

// Summary reports what one ingestion run produced.
type Summary struct {
	RunID           string
	SleepDays       int
	ActivityDays    int
	VitalsDays      int
	SleepAdded      int
	ActivityAdded   int
	VitalsAdded     int
	MetricsComputed int
	Dropped         int
	Duration        time.Duration
}

// Option configures optional behaviour for the Pipeline.
type Option func(*Pipeline)

// WithLogger overrides the logger used to report run progress.
func WithLogger(logger *log.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// Pipeline runs the single-pass ingestion flow. Runs are serialized by an
// internal mutex: accumulator state is single-writer and concurrent merges for
// overlapping dates must not interleave.
type Pipeline struct {
	repo      domain.Repository
	analytics *analytics.Analytics
	logger    *log.Logger
	mu        sync.Mutex
}

// NewPipeline constructs a Pipeline over the given repository.
func NewPipeline(repo domain.Repository, metrics *analytics.Analytics, opts ...Option) *Pipeline {
	p := &Pipeline{
		repo:      repo,
		analytics: metrics,
		logger:    log.New(log.Writer(), "[ingest] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run ingests the export file at path and merges its daily aggregates into the
// persisted records. Fatal errors (missing document, malformed timestamp,
// unreadable stream) abort the run with no partial output.
func (p *Pipeline) Run(ctx context.Context, path string) (*Summary, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	started := time.Now()
	runID := uuid.NewString()
	observability.RecordRunStarted()
	p.logger.Printf("run %s: ingesting %s", runID, path)

	result, dropped, err := p.scan(ctx, path)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		RunID:        runID,
		SleepDays:    len(result.Sleep),
		ActivityDays: len(result.Activity),
		VitalsDays:   len(result.Vitals),
		Dropped:      dropped,
	}

	if err := p.merge(ctx, result, summary); err != nil {
		observability.RecordRunFailed("merge")
		return nil, fmt.Errorf("merge: %w", err)
	}

	if err := p.computeDerived(ctx, result, summary); err != nil {
		observability.RecordRunFailed("metrics")
		return nil, fmt.Errorf("derived metrics: %w", err)
	}

	summary.Duration = time.Since(started)
	observability.RecordRunCompleted(summary.Duration, time.Now())
	p.logger.Printf("run %s: %d sleep, %d activity, %d vitals days in %s",
		runID, summary.SleepDays, summary.ActivityDays, summary.VitalsDays, summary.Duration)
	return summary, nil
}

// scan performs the forward pass over the document and returns the finalized
// aggregates. No accumulator is considered complete before the whole document
// has been read; later observations may still belong to an already-seen date.
func (p *Pipeline) scan(ctx context.Context, path string) (aggregate.Result, int, error) {
	stream, err := export.Open(path)
	if err != nil {
		observability.RecordRunFailed("resolve")
		return aggregate.Result{}, 0, err
	}
	defer stream.Close()

	agg := aggregate.New()
	extractor := export.NewExtractor(stream)
	dropped := 0

	for extractor.Next() {
		if err := ctx.Err(); err != nil {
			observability.RecordRunFailed("extract")
			return aggregate.Result{}, 0, err
		}
		obs := extractor.Observation()
		if agg.Add(obs) {
			observability.RecordObservation(domainLabel(obs))
		} else {
			observability.RecordDropped()
			dropped++
		}
	}
	if err := extractor.Err(); err != nil {
		observability.RecordRunFailed("extract")
		return aggregate.Result{}, 0, fmt.Errorf("%s: %w", path, err)
	}

	return agg.Finalize(), dropped, nil
}

// merge applies insert-or-replace semantics per date per domain: a fresh
// aggregate fully overwrites an existing row for the same date.
func (p *Pipeline) merge(ctx context.Context, result aggregate.Result, summary *Summary) error {
	for date, record := range result.Sleep {
		existing, err := p.repo.FindSleepByDate(ctx, date)
		if err != nil {
			return err
		}
		if existing == nil {
			summary.SleepAdded++
		}
		if err := p.repo.UpsertSleep(ctx, record); err != nil {
			return err
		}
	}

	for date, record := range result.Activity {
		existing, err := p.repo.FindActivityByDate(ctx, date)
		if err != nil {
			return err
		}
		if existing == nil {
			summary.ActivityAdded++
		}
		if err := p.repo.UpsertActivity(ctx, record); err != nil {
			return err
		}
	}

	for date, record := range result.Vitals {
		existing, err := p.repo.FindVitalsByDate(ctx, date)
		if err != nil {
			return err
		}
		if existing == nil {
			summary.VitalsAdded++
		}
		if err := p.repo.UpsertVitals(ctx, record); err != nil {
			return err
		}
	}
	return nil
}

// computeDerived refreshes derived sleep metrics for every date the run
// touched, reading back the persisted records the merge just wrote.
func (p *Pipeline) computeDerived(ctx context.Context, result aggregate.Result, summary *Summary) error {
	for date := range result.Sleep {
		metrics, err := p.analytics.ComputeDerivedMetrics(ctx, date)
		if err != nil {
			return err
		}
		if metrics == nil {
			continue
		}
		if err := p.repo.UpsertDerivedMetrics(ctx, *metrics); err != nil {
			return err
		}
		summary.MetricsComputed++
	}
	return nil
}

func domainLabel(obs export.Observation) string {
	switch export.ClassifyKind(obs.Type) {
	case export.KindSleepAnalysis:
		return "sleep"
	case export.KindStepCount, export.KindActiveEnergy, export.KindStandHour:
		return "activity"
	case export.KindHeartRate, export.KindRespiratoryRate:
		return "vitals"
	default:
		return "unknown"
	}
}
