package oracle

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/happytummy/demand-signal/internal/config"
	"github.com/happytummy/demand-signal/internal/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func linearSeries(start time.Time, days int, f func(i int, d time.Time) int) models.DailySeries {
	s := models.DailySeries{Category: "Rice"}
	for i := 0; i < days; i++ {
		d := start.AddDate(0, 0, i)
		s.Points = append(s.Points, models.DailyCount{Date: d, Count: f(i, d)})
	}
	return s
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func near(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestAdditiveLinearTrend(t *testing.T) {
	series := linearSeries(day(2021, time.January, 1), 10, func(i int, _ time.Time) int { return 2 + i })
	model, err := NewAdditive(14, 0.8).Fit(context.Background(), series)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	rows, err := model.Predict(context.Background(), 3)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if len(rows) != 13 {
		t.Fatalf("expected 13 rows, got %d", len(rows))
	}
	last := rows[len(rows)-1]
	if !last.Date.Equal(day(2021, time.January, 13)) {
		t.Fatalf("unexpected last date %v", last.Date)
	}
	if !near(last.Predicted, 14, 0.1) {
		t.Fatalf("expected extrapolated 14, got %v", last.Predicted)
	}
	if !near(last.Trend, last.Predicted, 0.1) {
		t.Fatalf("trend should carry the whole forecast without seasonality, got %+v", last)
	}
	if last.Components["weekly"] != 0 {
		t.Fatalf("weekly component should be disabled on short history")
	}
	if last.Components[ComponentLower] > last.Predicted || last.Components[ComponentUpper] < last.Predicted {
		t.Fatalf("interval should bracket the forecast, got %+v", last.Components)
	}
}

func TestAdditiveWeeklySeasonality(t *testing.T) {
	series := linearSeries(day(2021, time.February, 1), 28, func(_ int, d time.Time) int {
		if d.Weekday() == time.Saturday {
			return 15
		}
		return 10
	})
	model, err := NewAdditive(14, 0.8).Fit(context.Background(), series)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	rows, err := model.Predict(context.Background(), 7)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	var saturday, monday float64
	for _, row := range rows[len(rows)-7:] {
		switch row.Date.Weekday() {
		case time.Saturday:
			saturday = row.Predicted
		case time.Monday:
			monday = row.Predicted
		}
	}
	if saturday-monday < 4 {
		t.Fatalf("expected saturday uplift, saturday=%v monday=%v", saturday, monday)
	}
}

func TestAdditiveShortHistoryBand(t *testing.T) {
	series := models.DailySeries{Category: "Pasta", Points: []models.DailyCount{
		{Date: day(2021, time.April, 1), Count: 5},
		{Date: day(2021, time.April, 3), Count: 5},
	}}
	model, err := NewAdditive(14, 0.8).Fit(context.Background(), series)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	rows, err := model.Predict(context.Background(), 2)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(rows))
	}
	for _, row := range rows {
		if !near(row.Predicted, 5, 0.1) {
			t.Fatalf("expected flat forecast 5, got %v at %v", row.Predicted, row.Date)
		}
		if !near(row.Components[ComponentUpper]-row.Predicted, 0.2*row.Predicted, 0.05) {
			t.Fatalf("expected a 20%% band, got %+v", row.Components)
		}
	}
}

func TestAdditiveRejectsShortHistory(t *testing.T) {
	series := linearSeries(day(2021, time.January, 1), 1, func(int, time.Time) int { return 1 })
	if _, err := NewAdditive(0, 0).Fit(context.Background(), series); err == nil {
		t.Fatalf("expected error for single date")
	}
}

func TestHoltConstantSeries(t *testing.T) {
	holt, err := NewHolt(0.5, 0.3, 0.8)
	if err != nil {
		t.Fatalf("new holt: %v", err)
	}
	series := linearSeries(day(2021, time.March, 1), 10, func(int, time.Time) int { return 5 })
	model, err := holt.Fit(context.Background(), series)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	rows, err := model.Predict(context.Background(), 4)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if len(rows) != 14 {
		t.Fatalf("expected 14 rows, got %d", len(rows))
	}
	for _, row := range rows {
		if !approx(row.Predicted, 5) {
			t.Fatalf("expected flat forecast 5, got %v at %v", row.Predicted, row.Date)
		}
		if row.Components["slope"] != 0 {
			t.Fatalf("expected zero slope, got %v", row.Components["slope"])
		}
	}
}

func TestHoltOnlyEmitsObservedDates(t *testing.T) {
	holt, _ := NewHolt(0.5, 0.5, 0.8)
	series := models.DailySeries{Category: "Milk", Points: []models.DailyCount{
		{Date: day(2021, time.May, 1), Count: 4},
		{Date: day(2021, time.May, 3), Count: 4},
	}}
	model, err := holt.Fit(context.Background(), series)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	rows, err := model.Predict(context.Background(), 1)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	want := []time.Time{day(2021, time.May, 1), day(2021, time.May, 3), day(2021, time.May, 4)}
	if len(rows) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(rows))
	}
	for i, d := range want {
		if !rows[i].Date.Equal(d) {
			t.Fatalf("row %d: expected %v, got %v", i, d, rows[i].Date)
		}
	}
}

func TestHoltSingleCalendarDay(t *testing.T) {
	holt, _ := NewHolt(0.5, 0.5, 0.8)
	base := day(2021, time.May, 1)
	series := models.DailySeries{Category: "Milk", Points: []models.DailyCount{
		{Date: base, Count: 1},
		{Date: base.Add(3 * time.Hour), Count: 2},
	}}
	if _, err := holt.Fit(context.Background(), series); err == nil {
		t.Fatalf("expected error for history within one day")
	}
}

func TestNewHoltValidatesFactors(t *testing.T) {
	if _, err := NewHolt(0, 0.5, 0.8); err == nil {
		t.Fatalf("expected alpha validation error")
	}
	if _, err := NewHolt(0.5, 1.5, 0.8); err == nil {
		t.Fatalf("expected beta validation error")
	}
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	series := linearSeries(day(2021, time.January, 1), 5, func(i int, _ time.Time) int { return i })
	if _, err := NewAdditive(0, 0).Fit(ctx, series); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestNewSelectsProcedure(t *testing.T) {
	cfg := config.ForecastConfig{
		Oracle:        "holt",
		IntervalWidth: 0.8,
		Holt:          config.HoltConfig{Alpha: 0.4, Beta: 0.2},
	}
	o, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("new oracle: %v", err)
	}
	if o.Name() != KindHolt {
		t.Fatalf("expected holt, got %s", o.Name())
	}

	cfg.Oracle = ""
	if o, err = New(cfg, nil); err != nil || o.Name() != KindAdditive {
		t.Fatalf("expected additive default, got %v %v", o, err)
	}

	cfg.Oracle = "prophet"
	if _, err := New(cfg, nil); err == nil {
		t.Fatalf("expected error for unknown oracle")
	}

	cfg.Oracle = "remote"
	if _, err := New(cfg, nil); err == nil {
		t.Fatalf("expected error for remote without URL")
	}
}

func TestZScore(t *testing.T) {
	if z := zScore(0.8); math.Abs(z-1.2816) > 1e-3 {
		t.Fatalf("unexpected z for 80%%: %v", z)
	}
	if z := zScore(0.95); math.Abs(z-1.96) > 1e-2 {
		t.Fatalf("unexpected z for 95%%: %v", z)
	}
}
