package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/happytummy/demand-signal/internal/models"
)

// MinHistoryDates is the fewest distinct dates a series needs before the
// oracle is asked to fit a trend.
const MinHistoryDates = 2

var errEmptyForecast = errors.New("oracle returned no rows")

// Oracle fits a forecasting procedure to a daily series.
type Oracle interface {
	Name() string
	Fit(ctx context.Context, series models.DailySeries) (Model, error)
}

// Model is a fitted oracle. Predict returns one row per observed date plus
// horizonDays consecutive days after the last observed date.
type Model interface {
	Predict(ctx context.Context, horizonDays int) ([]models.ForecastRow, error)
}

// Pipeline validates a series, runs the oracle and shapes its output.
type Pipeline struct {
	logger *slog.Logger
	oracle Oracle
	now    func() time.Time
	newID  func() string
}

// NewPipeline constructs a forecast pipeline around oracle.
func NewPipeline(logger *slog.Logger, oracle Oracle) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		logger: logger,
		oracle: oracle,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// OracleName reports the configured procedure.
func (p *Pipeline) OracleName() string {
	if p.oracle == nil {
		return ""
	}
	return p.oracle.Name()
}

// Forecast predicts horizonDays beyond the last observed date of series.
func (p *Pipeline) Forecast(ctx context.Context, series models.DailySeries, horizonDays int) (models.ForecastResult, error) {
	if horizonDays < 1 {
		return models.ForecastResult{}, &InvalidHorizonError{Category: series.Category, HorizonDays: horizonDays}
	}
	if series.Len() < MinHistoryDates {
		return models.ForecastResult{}, &InsufficientHistoryError{Category: series.Category, Dates: series.Len()}
	}
	if p.oracle == nil {
		return models.ForecastResult{}, fmt.Errorf("forecast oracle not configured")
	}

	logger := p.logger.With(slog.String("category", series.Category), slog.String("oracle", p.oracle.Name()))
	logger.Debug("fitting forecast", slog.Int("dates", series.Len()), slog.Int("horizon_days", horizonDays))

	model, err := p.oracle.Fit(ctx, series)
	if err != nil {
		return models.ForecastResult{}, &ForecastOracleError{Category: series.Category, Stage: "fit", Err: err}
	}
	rows, err := model.Predict(ctx, horizonDays)
	if err != nil {
		return models.ForecastResult{}, &ForecastOracleError{Category: series.Category, Stage: "predict", Err: err}
	}
	if len(rows) == 0 {
		return models.ForecastResult{}, &ForecastOracleError{Category: series.Category, Stage: "predict", Err: errEmptyForecast}
	}

	result := models.ForecastResult{
		ID:            p.newID(),
		Category:      series.Category,
		HorizonDays:   horizonDays,
		Table:         presentationTable(series.Category, rows),
		Decomposition: rows,
		LastObserved:  series.Last(),
		CreatedAt:     p.now().UTC(),
	}
	logger.Debug("forecast complete", slog.Int("rows", len(rows)), slog.String("id", result.ID))
	return result, nil
}

// presentationTable keeps date and point prediction, most recent first.
func presentationTable(category string, rows []models.ForecastRow) []models.DemandPoint {
	table := make([]models.DemandPoint, 0, len(rows))
	for _, row := range rows {
		table = append(table, models.DemandPoint{
			Datetime:    row.Date,
			OrderVolume: row.Predicted,
			Item:        category,
		})
	}
	sort.SliceStable(table, func(i, j int) bool { return table[i].Datetime.After(table[j].Datetime) })
	return table
}
