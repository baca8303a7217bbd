package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/happytummy/demand-signal/internal/advisory"
	"github.com/happytummy/demand-signal/internal/engine"
	"github.com/happytummy/demand-signal/internal/metrics"
	"github.com/happytummy/demand-signal/internal/models"
	"github.com/happytummy/demand-signal/internal/summary"
	"github.com/happytummy/demand-signal/internal/utils"
)

// DefaultMaxHorizonDays bounds forecast horizons when Options leaves it unset.
const DefaultMaxHorizonDays = 365

// ErrNoCategories is returned when a request selects no product category.
var ErrNoCategories = errors.New("at least one category must be selected")

// EventStore supplies the event tables the service works on.
type EventStore interface {
	Events(ctx context.Context, origin models.Origin) ([]models.OrderEvent, error)
	All(ctx context.Context) ([]models.OrderEvent, error)
	Purge(ctx context.Context) error
}

// Forecaster runs the forecast pipeline for one series.
type Forecaster interface {
	Forecast(ctx context.Context, series models.DailySeries, horizonDays int) (models.ForecastResult, error)
}

// Options tunes DemandService.
type Options struct {
	DefaultHorizonDays int
	MaxHorizonDays     int
	Parallelism        int
	ForecastTimeout    time.Duration
	SummaryTopN        int
}

// DemandService answers forecast, adequacy and summary requests over the
// loaded event tables.
type DemandService struct {
	logger     *slog.Logger
	events     EventStore
	forecaster Forecaster
	advisories *advisory.Book
	opts       Options
	latencies  *utils.LatencyTracker
}

// NewDemandService constructs the service facade.
func NewDemandService(logger *slog.Logger, events EventStore, forecaster Forecaster, advisories *advisory.Book, opts Options) *DemandService {
	if logger == nil {
		logger = slog.Default()
	}
	if advisories == nil {
		advisories = advisory.Default()
	}
	if opts.DefaultHorizonDays < 1 {
		opts.DefaultHorizonDays = 1
	}
	if opts.MaxHorizonDays < 1 {
		opts.MaxHorizonDays = DefaultMaxHorizonDays
	}
	if opts.Parallelism < 1 {
		opts.Parallelism = 1
	}
	if opts.SummaryTopN < 1 {
		opts.SummaryTopN = 5
	}
	return &DemandService{
		logger:     logger,
		events:     events,
		forecaster: forecaster,
		advisories: advisories,
		opts:       opts,
		latencies:  utils.NewLatencyTracker(1024),
	}
}

// DefaultHorizonDays is applied by callers when a request names no horizon.
func (s *DemandService) DefaultHorizonDays() int {
	return s.opts.DefaultHorizonDays
}

// Forecast predicts requester demand for each category, in selection order.
// A horizon outside [1, MaxHorizonDays] fails the whole request; every other
// failure is reported per category.
func (s *DemandService) Forecast(ctx context.Context, categories []string, horizonDays int) ([]models.ForecastResult, []*utils.AppError, error) {
	if horizonDays < 1 || horizonDays > s.opts.MaxHorizonDays {
		return nil, nil, &engine.InvalidHorizonError{HorizonDays: horizonDays, MaxHorizonDays: s.opts.MaxHorizonDays}
	}
	categories = normaliseCategories(categories)
	if len(categories) == 0 {
		return nil, nil, ErrNoCategories
	}
	if s.events == nil || s.forecaster == nil {
		return nil, nil, fmt.Errorf("forecast service not configured")
	}

	events, err := s.events.Events(ctx, models.OriginRequester)
	if err != nil {
		return nil, nil, fmt.Errorf("load requester events: %w", err)
	}

	results := make([]*models.ForecastResult, len(categories))
	failures := make([]*utils.AppError, len(categories))

	run := func(i int) {
		result, err := s.forecastOne(ctx, events, categories[i], horizonDays)
		if err != nil {
			failures[i] = utils.NewCategoryError("forecast", categories[i], "forecast failed", err)
			return
		}
		results[i] = &result
	}

	if s.opts.Parallelism == 1 || len(categories) == 1 {
		for i := range categories {
			run(i)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(s.opts.Parallelism)
		for i := range categories {
			g.Go(func() error {
				run(i)
				return nil
			})
		}
		_ = g.Wait()
	}

	return compactResults(results), compactErrors(failures), nil
}

func (s *DemandService) forecastOne(ctx context.Context, events []models.OrderEvent, category string, horizonDays int) (models.ForecastResult, error) {
	start := time.Now()

	series, err := engine.Aggregate(events, category)
	if err != nil {
		metrics.ObserveForecast(time.Since(start), forecastOutcome(err))
		return models.ForecastResult{}, err
	}

	if s.opts.ForecastTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.ForecastTimeout)
		defer cancel()
	}

	result, err := s.forecaster.Forecast(ctx, series, horizonDays)
	duration := s.latencies.Since(start)
	metrics.ObserveForecast(duration, forecastOutcome(err))
	if err != nil {
		s.logger.Warn("forecast failed", slog.String("category", category), slog.Any("error", err))
		return models.ForecastResult{}, err
	}

	if count := s.latencies.Count(); count >= 20 && count%20 == 0 {
		lat := s.latencies.Summary()
		s.logger.Info("forecast latency", slog.Duration("p50", lat.P50), slog.Duration("p95", lat.P95), slog.Int("samples", lat.Count))
	}
	return result, nil
}

// Assess classifies supply adequacy for each category, in selection order.
func (s *DemandService) Assess(ctx context.Context, categories []string) ([]models.Assessment, []*utils.AppError, error) {
	categories = normaliseCategories(categories)
	if len(categories) == 0 {
		return nil, nil, ErrNoCategories
	}
	if s.events == nil {
		return nil, nil, fmt.Errorf("event store not configured")
	}

	events, err := s.events.All(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load events: %w", err)
	}

	var (
		assessments []models.Assessment
		failures    []*utils.AppError
	)
	for _, category := range categories {
		assessment, err := s.assessOne(events, category)
		if err != nil {
			s.logger.Debug("assessment failed", slog.String("category", category), slog.Any("error", err))
			failures = append(failures, utils.NewCategoryError("assess", category, "classification failed", err))
			continue
		}
		assessments = append(assessments, assessment)
	}
	return assessments, failures, nil
}

func (s *DemandService) assessOne(events []models.OrderEvent, category string) (models.Assessment, error) {
	counts, err := engine.CountByCategoryAndOrigin(events, category)
	if err != nil {
		return models.Assessment{}, err
	}
	label, err := engine.ClassifyCounts(category, counts)
	if err != nil {
		return models.Assessment{}, err
	}
	ratio, _ := engine.Ratio(counts.Requester, counts.Supplier)
	metrics.ObserveClassification(string(label))

	return models.Assessment{
		Category: category,
		Counts:   counts,
		Ratio:    ratio,
		Label:    label,
		Advisory: s.advisories.Advise(label, category),
		Monthly:  engine.MonthlyRows(engine.MonthlyBreakdown(events, category)),
	}, nil
}

// Summarize reports each population's top categories and food-group mix.
// topN <= 0 uses the configured default.
func (s *DemandService) Summarize(ctx context.Context, topN int) ([]models.PopulationSummary, error) {
	if s.events == nil {
		return nil, fmt.Errorf("event store not configured")
	}
	if topN <= 0 {
		topN = s.opts.SummaryTopN
	}
	events, err := s.events.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	return summary.Summarize(events, topN), nil
}

// InvalidateSources drops every cached event table so the next request
// reloads from the sources.
func (s *DemandService) InvalidateSources(ctx context.Context) error {
	if s.events == nil {
		return fmt.Errorf("event store not configured")
	}
	if err := s.events.Purge(ctx); err != nil {
		return err
	}
	s.logger.Info("event tables invalidated")
	return nil
}

// LatencyP95 returns the current p95 per-category forecast latency.
func (s *DemandService) LatencyP95() time.Duration {
	return s.latencies.Percentile(95)
}

func forecastOutcome(err error) string {
	if err == nil {
		return metrics.OutcomeSuccess
	}
	var (
		empty        *engine.EmptyCategoryError
		insufficient *engine.InsufficientHistoryError
		horizon      *engine.InvalidHorizonError
	)
	if errors.As(err, &empty) || errors.As(err, &insufficient) || errors.As(err, &horizon) {
		return metrics.OutcomeRejected
	}
	return metrics.OutcomeError
}

// normaliseCategories trims blanks and drops repeats, keeping first-seen order.
// Matching stays case-sensitive.
func normaliseCategories(categories []string) []string {
	seen := make(map[string]struct{}, len(categories))
	out := make([]string, 0, len(categories))
	for _, c := range categories {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

func compactResults(results []*models.ForecastResult) []models.ForecastResult {
	out := make([]models.ForecastResult, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}

func compactErrors(errs []*utils.AppError) []*utils.AppError {
	var out []*utils.AppError
	for _, e := range errs {
		if e != nil {
			out = append(out, e)
		}
	}
	return out
}
