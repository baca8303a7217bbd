package oracle

import (
	"context"
	"fmt"
	"time"

	forecaster "github.com/aouyang1/go-forecaster"
	"github.com/aouyang1/go-forecaster/feature"
	"github.com/aouyang1/go-forecaster/forecast/options"

	"github.com/happytummy/demand-signal/internal/engine"
	"github.com/happytummy/demand-signal/internal/models"
)

const (
	// weeklyOrders is a full Fourier basis for a seven day period.
	weeklyOrders = 3

	// minResidualDates is the shortest history whose residuals size the
	// interval. Shorter histories get a band proportional to the forecast.
	minResidualDates = 8
)

// Additive fits a linear trend and, on long enough histories, an additive
// weekly seasonality using go-forecaster.
type Additive struct {
	seasonalityMinDays int
	intervalWidth      float64
}

// NewAdditive constructs the additive procedure. Weekly seasonality is fitted
// once a series holds seasonalityMinDays distinct dates (default 14).
func NewAdditive(seasonalityMinDays int, intervalWidth float64) *Additive {
	if seasonalityMinDays <= 0 {
		seasonalityMinDays = 14
	}
	if intervalWidth <= 0 || intervalWidth >= 1 {
		intervalWidth = 0.8
	}
	return &Additive{seasonalityMinDays: seasonalityMinDays, intervalWidth: intervalWidth}
}

// Name implements engine.Oracle.
func (a *Additive) Name() string { return KindAdditive }

type additiveModel struct {
	series models.DailySeries
	fc     *forecaster.Forecaster
}

// Fit implements engine.Oracle.
func (a *Additive) Fit(ctx context.Context, series models.DailySeries) (model engine.Model, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateFitInput(series); err != nil {
		return nil, err
	}

	fc, err := forecaster.New(a.options(series))
	if err != nil {
		return nil, fmt.Errorf("init forecaster: %w", err)
	}

	t := make([]time.Time, 0, series.Len())
	y := make([]float64, 0, series.Len())
	for _, p := range series.Points {
		t = append(t, p.Date)
		y = append(y, float64(p.Count))
	}

	// numeric library panics surface as fit errors
	defer func() {
		if r := recover(); r != nil {
			model, err = nil, fmt.Errorf("additive fit: %v", r)
		}
	}()
	if err := fc.Fit(t, y); err != nil {
		return nil, fmt.Errorf("additive fit: %w", err)
	}
	return &additiveModel{series: series, fc: fc}, nil
}

func (a *Additive) options(series models.DailySeries) *forecaster.Options {
	opt := forecaster.NewDefaultOptions()
	opt.SetMinValue(0)

	// demand spikes are signal, not outliers
	opt.SeriesOptions.OutlierOptions = nil

	seriesOpt := opt.SeriesOptions.ForecastOptions
	seriesOpt.GrowthType = feature.GrowthLinear
	seriesOpt.SeasonalityOptions.SeasonalityConfigs = nil
	if series.Len() >= a.seasonalityMinDays {
		seriesOpt.SeasonalityOptions.SeasonalityConfigs = []options.SeasonalityConfig{
			options.NewWeeklySeasonalityConfig(weeklyOrders),
		}
	}

	// daily points make sub-daily seasonality degenerate
	opt.UncertaintyOptions.ForecastOptions.SeasonalityOptions.SeasonalityConfigs = nil
	opt.UncertaintyOptions.ResidualZscore = zScore(a.intervalWidth)
	if series.Len() < minResidualDates {
		opt.UncertaintyOptions.Percentage = 1 - a.intervalWidth
	}
	return opt
}

// Predict implements engine.Model.
func (m *additiveModel) Predict(ctx context.Context, horizonDays int) (rows []models.ForecastRow, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateHorizon(horizonDays); err != nil {
		return nil, err
	}

	dates := outputDates(m.series, horizonDays)

	defer func() {
		if r := recover(); r != nil {
			rows, err = nil, fmt.Errorf("additive predict: %v", r)
		}
	}()
	res, err := m.fc.Predict(dates)
	if err != nil {
		return nil, fmt.Errorf("additive predict: %w", err)
	}
	if len(res.Forecast) != len(dates) {
		return nil, fmt.Errorf("additive predict: expected %d values, got %d", len(dates), len(res.Forecast))
	}

	rows = make([]models.ForecastRow, 0, len(dates))
	for i, d := range dates {
		trend := valueAt(res.SeriesComponents.Trend, i)
		rows = append(rows, models.ForecastRow{
			Date:      d,
			Predicted: res.Forecast[i],
			Trend:     trend,
			Components: map[string]float64{
				"trend":        trend,
				"weekly":       valueAt(res.SeriesComponents.Seasonality, i),
				ComponentLower: valueAt(res.Lower, i),
				ComponentUpper: valueAt(res.Upper, i),
			},
		})
	}
	if err := checkRows(rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func valueAt(values []float64, i int) float64 {
	if i < len(values) {
		return values[i]
	}
	return 0
}
