package oracle

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/happytummy/demand-signal/internal/config"
	"github.com/happytummy/demand-signal/internal/engine"
	"github.com/happytummy/demand-signal/internal/models"
	"github.com/happytummy/demand-signal/internal/utils"
)

// Procedure names accepted by New.
const (
	KindAdditive = "additive"
	KindHolt     = "holt"
	KindRemote   = "remote"
)

// Component keys shared by the local procedures.
const (
	ComponentLower = "yhat_lower"
	ComponentUpper = "yhat_upper"
)

// New builds the oracle selected by cfg.Oracle.
func New(cfg config.ForecastConfig, logger *slog.Logger) (engine.Oracle, error) {
	logger = utils.Component(logger, "oracle")
	switch strings.ToLower(strings.TrimSpace(cfg.Oracle)) {
	case "", KindAdditive:
		return NewAdditive(cfg.Additive.SeasonalityMinDays, cfg.IntervalWidth), nil
	case KindHolt:
		return NewHolt(cfg.Holt.Alpha, cfg.Holt.Beta, cfg.IntervalWidth)
	case KindRemote:
		return NewRemote(cfg.Remote.BaseURL, cfg.Remote.Path, cfg.Remote.Timeout, logger)
	default:
		return nil, fmt.Errorf("unknown forecast oracle %q", cfg.Oracle)
	}
}

// outputDates lists the observed dates followed by horizonDays consecutive
// days after the last one.
func outputDates(series models.DailySeries, horizonDays int) []time.Time {
	dates := make([]time.Time, 0, series.Len()+horizonDays)
	for _, p := range series.Points {
		dates = append(dates, p.Date)
	}
	last := series.Last()
	for i := 1; i <= horizonDays; i++ {
		dates = append(dates, utils.AddDays(last, i))
	}
	return dates
}

// zScore converts a central interval width (e.g. 0.8) to a normal quantile.
func zScore(width float64) float64 {
	if width <= 0 || width >= 1 {
		width = 0.8
	}
	return math.Sqrt2 * math.Erfinv(width)
}

func checkRows(rows []models.ForecastRow) error {
	for _, row := range rows {
		if math.IsNaN(row.Predicted) || math.IsInf(row.Predicted, 0) {
			return fmt.Errorf("non-finite prediction at %s", row.Date.Format(time.DateOnly))
		}
	}
	return nil
}

func validateFitInput(series models.DailySeries) error {
	if series.Len() < engine.MinHistoryDates {
		return fmt.Errorf("need at least %d dates, got %d", engine.MinHistoryDates, series.Len())
	}
	return nil
}

func validateHorizon(horizonDays int) error {
	if horizonDays < 1 {
		return fmt.Errorf("horizon must be at least 1 day, got %d", horizonDays)
	}
	return nil
}
