package oracle

import (
	"context"
	"fmt"
	"math"

	"github.com/happytummy/demand-signal/internal/engine"
	"github.com/happytummy/demand-signal/internal/models"
	"github.com/happytummy/demand-signal/internal/utils"
)

// Holt applies linear exponential smoothing over a calendar-filled series;
// days without orders count as zero.
type Holt struct {
	alpha         float64
	beta          float64
	intervalWidth float64
}

// NewHolt validates the smoothing factors, both of which must be in (0, 1].
func NewHolt(alpha, beta, intervalWidth float64) (*Holt, error) {
	if alpha <= 0 || alpha > 1 {
		return nil, fmt.Errorf("holt alpha must be in (0, 1], got %v", alpha)
	}
	if beta <= 0 || beta > 1 {
		return nil, fmt.Errorf("holt beta must be in (0, 1], got %v", beta)
	}
	return &Holt{alpha: alpha, beta: beta, intervalWidth: intervalWidth}, nil
}

// Name implements engine.Oracle.
func (h *Holt) Name() string { return KindHolt }

type holtModel struct {
	series models.DailySeries
	fitted []float64
	levels []float64
	slopes []float64
	sigma  float64
	z      float64
}

// Fit implements engine.Oracle.
func (h *Holt) Fit(ctx context.Context, series models.DailySeries) (engine.Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateFitInput(series); err != nil {
		return nil, err
	}

	span := utils.DaysBetween(series.First(), series.Last()) + 1
	if span < 2 {
		return nil, fmt.Errorf("history covers a single calendar day")
	}
	y := make([]float64, span)
	for _, p := range series.Points {
		y[utils.DaysBetween(series.First(), p.Date)] += float64(p.Count)
	}

	m := &holtModel{
		series: series,
		fitted: make([]float64, span),
		levels: make([]float64, span),
		slopes: make([]float64, span),
		z:      zScore(h.intervalWidth),
	}

	level, slope := y[0], y[1]-y[0]
	m.fitted[0], m.levels[0], m.slopes[0] = y[0], level, slope

	var sse float64
	for t := 1; t < span; t++ {
		forecast := level + slope
		m.fitted[t] = forecast
		r := y[t] - forecast
		sse += r * r

		next := h.alpha*y[t] + (1-h.alpha)*(level+slope)
		slope = h.beta*(next-level) + (1-h.beta)*slope
		level = next
		m.levels[t], m.slopes[t] = level, slope
	}
	m.sigma = math.Sqrt(sse / float64(span-1))

	return m, nil
}

// Predict implements engine.Model.
func (m *holtModel) Predict(ctx context.Context, horizonDays int) ([]models.ForecastRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateHorizon(horizonDays); err != nil {
		return nil, err
	}

	lastIdx := len(m.levels) - 1
	rows := make([]models.ForecastRow, 0, m.series.Len()+horizonDays)
	for _, d := range outputDates(m.series, horizonDays) {
		idx := utils.DaysBetween(m.series.First(), d)
		var yhat, level, slope, half float64
		if idx <= lastIdx {
			yhat, level, slope = m.fitted[idx], m.levels[idx], m.slopes[idx]
			half = m.z * m.sigma
		} else {
			steps := float64(idx - lastIdx)
			level, slope = m.levels[lastIdx], m.slopes[lastIdx]
			yhat = level + steps*slope
			half = m.z * m.sigma * math.Sqrt(steps)
		}
		rows = append(rows, models.ForecastRow{
			Date:      d,
			Predicted: yhat,
			Trend:     level,
			Components: map[string]float64{
				"level":        level,
				"slope":        slope,
				ComponentLower: yhat - half,
				ComponentUpper: yhat + half,
			},
		})
	}
	if err := checkRows(rows); err != nil {
		return nil, err
	}
	return rows, nil
}
