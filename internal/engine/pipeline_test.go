package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/happytummy/demand-signal/internal/models"
)

type fakeOracle struct {
	fitCalls int
	fitErr   error
	predErr  error
	empty    bool
}

type fakeModel struct {
	oracle *fakeOracle
	series models.DailySeries
}

func (f *fakeOracle) Name() string { return "fake" }

func (f *fakeOracle) Fit(ctx context.Context, series models.DailySeries) (Model, error) {
	f.fitCalls++
	if f.fitErr != nil {
		return nil, f.fitErr
	}
	return &fakeModel{oracle: f, series: series}, nil
}

func (m *fakeModel) Predict(ctx context.Context, horizonDays int) ([]models.ForecastRow, error) {
	if m.oracle.predErr != nil {
		return nil, m.oracle.predErr
	}
	if m.oracle.empty {
		return nil, nil
	}
	rows := make([]models.ForecastRow, 0, m.series.Len()+horizonDays)
	for _, p := range m.series.Points {
		rows = append(rows, models.ForecastRow{
			Date:       p.Date,
			Predicted:  float64(p.Count),
			Trend:      float64(p.Count),
			Components: map[string]float64{"trend": float64(p.Count)},
		})
	}
	last := m.series.Last()
	for i := 1; i <= horizonDays; i++ {
		rows = append(rows, models.ForecastRow{
			Date:       last.AddDate(0, 0, i),
			Predicted:  float64(i),
			Trend:      float64(i),
			Components: map[string]float64{"trend": float64(i)},
		})
	}
	return rows, nil
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func seriesOf(category string, dates ...time.Time) models.DailySeries {
	s := models.DailySeries{Category: category}
	for i, d := range dates {
		s.Points = append(s.Points, models.DailyCount{Date: d, Count: i + 1})
	}
	return s
}

func TestPipelineForecastHorizonRange(t *testing.T) {
	oracle := &fakeOracle{}
	pipeline := NewPipeline(nil, oracle)
	pipeline.newID = func() string { return "run-1" }

	observed := []time.Time{day(2021, time.January, 3), day(2021, time.January, 5), day(2021, time.January, 9)}
	series := seriesOf("Rice", observed...)

	result, err := pipeline.Forecast(context.Background(), series, 7)
	if err != nil {
		t.Fatalf("Forecast returned error: %v", err)
	}
	if result.ID != "run-1" || result.Category != "Rice" || result.HorizonDays != 7 {
		t.Fatalf("unexpected result header %+v", result)
	}

	if len(result.Table) != len(observed)+7 {
		t.Fatalf("expected %d rows, got %d", len(observed)+7, len(result.Table))
	}
	want := day(2021, time.January, 16)
	if !result.Table[0].Datetime.Equal(want) {
		t.Fatalf("expected first row %v, got %v", want, result.Table[0].Datetime)
	}
	if !result.Table[len(result.Table)-1].Datetime.Equal(observed[0]) {
		t.Fatalf("expected last row at first observed date, got %v", result.Table[len(result.Table)-1].Datetime)
	}
	for i := 1; i < len(result.Table); i++ {
		if !result.Table[i].Datetime.Before(result.Table[i-1].Datetime) {
			t.Fatalf("table not descending at %d", i)
		}
	}
	for _, row := range result.Table {
		if row.Item != "Rice" {
			t.Fatalf("expected item Rice, got %q", row.Item)
		}
	}

	// Historical predictions line up one-to-one with observed dates.
	historical := map[time.Time]bool{}
	for _, row := range result.Decomposition {
		if !row.Date.After(series.Last()) {
			historical[row.Date] = true
		}
	}
	if len(historical) != len(observed) {
		t.Fatalf("expected %d historical rows, got %d", len(observed), len(historical))
	}
	for _, d := range observed {
		if !historical[d] {
			t.Fatalf("missing historical prediction for %v", d)
		}
	}

	if result.Decomposition[0].Components["trend"] != 1 {
		t.Fatalf("decomposition should pass through unmodified, got %+v", result.Decomposition[0])
	}
	if !result.LastObserved.Equal(observed[2]) {
		t.Fatalf("unexpected last observed %v", result.LastObserved)
	}
}

func TestPipelineInsufficientHistorySkipsOracle(t *testing.T) {
	oracle := &fakeOracle{}
	pipeline := NewPipeline(nil, oracle)

	_, err := pipeline.Forecast(context.Background(), seriesOf("Milk", day(2021, time.March, 1)), 3)
	var insufficient *InsufficientHistoryError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientHistoryError, got %v", err)
	}
	if insufficient.Category != "Milk" || insufficient.Dates != 1 {
		t.Fatalf("unexpected error context %+v", insufficient)
	}
	if oracle.fitCalls != 0 {
		t.Fatalf("oracle should not be invoked, got %d calls", oracle.fitCalls)
	}
}

func TestPipelineInvalidHorizonCheckedFirst(t *testing.T) {
	oracle := &fakeOracle{}
	pipeline := NewPipeline(nil, oracle)

	for _, horizon := range []int{0, -3} {
		_, err := pipeline.Forecast(context.Background(), seriesOf("Milk"), horizon)
		var invalid *InvalidHorizonError
		if !errors.As(err, &invalid) {
			t.Fatalf("horizon %d: expected InvalidHorizonError, got %v", horizon, err)
		}
		if invalid.HorizonDays != horizon {
			t.Fatalf("expected offending value %d, got %d", horizon, invalid.HorizonDays)
		}
	}
	if oracle.fitCalls != 0 {
		t.Fatalf("oracle should not be invoked")
	}
}

func TestPipelineWrapsOracleFailures(t *testing.T) {
	cause := errors.New("did not converge")
	series := seriesOf("Eggs", day(2021, time.April, 1), day(2021, time.April, 2))

	cases := []struct {
		name   string
		oracle *fakeOracle
		stage  string
		cause  error
	}{
		{name: "fit", oracle: &fakeOracle{fitErr: cause}, stage: "fit", cause: cause},
		{name: "predict", oracle: &fakeOracle{predErr: cause}, stage: "predict", cause: cause},
		{name: "empty", oracle: &fakeOracle{empty: true}, stage: "predict", cause: errEmptyForecast},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewPipeline(nil, tc.oracle).Forecast(context.Background(), series, 2)
			var oracleErr *ForecastOracleError
			if !errors.As(err, &oracleErr) {
				t.Fatalf("expected ForecastOracleError, got %v", err)
			}
			if oracleErr.Stage != tc.stage || oracleErr.Category != "Eggs" {
				t.Fatalf("unexpected error context %+v", oracleErr)
			}
			if !errors.Is(err, tc.cause) {
				t.Fatalf("expected wrapped cause %v", tc.cause)
			}
		})
	}
}

func TestPipelineRequiresOracle(t *testing.T) {
	series := seriesOf("Eggs", day(2021, time.April, 1), day(2021, time.April, 2))
	if _, err := NewPipeline(nil, nil).Forecast(context.Background(), series, 1); err == nil {
		t.Fatalf("expected error without oracle")
	}
}

func TestPipelineUsableAfterFailure(t *testing.T) {
	oracle := &fakeOracle{}
	pipeline := NewPipeline(nil, oracle)
	if _, err := pipeline.Forecast(context.Background(), seriesOf("Milk"), 1); err == nil {
		t.Fatalf("expected failure for empty series")
	}
	series := seriesOf("Milk", day(2021, time.May, 1), day(2021, time.May, 2))
	if _, err := pipeline.Forecast(context.Background(), series, 1); err != nil {
		t.Fatalf("expected pipeline to recover, got %v", err)
	}
}

func TestPipelineOracleName(t *testing.T) {
	if got := NewPipeline(nil, &fakeOracle{}).OracleName(); got != "fake" {
		t.Fatalf("expected fake, got %q", got)
	}
	if got := NewPipeline(nil, nil).OracleName(); got != "" {
		t.Fatalf("expected empty name without oracle, got %q", got)
	}
}

func TestInvalidHorizonErrorMessage(t *testing.T) {
	low := &InvalidHorizonError{Category: "Milk", HorizonDays: 0, MaxHorizonDays: 365}
	if !strings.Contains(low.Error(), "at least 1 day") {
		t.Fatalf("unexpected message %q", low.Error())
	}
	high := &InvalidHorizonError{HorizonDays: 400, MaxHorizonDays: 365}
	if !strings.Contains(high.Error(), "at most 365 days") {
		t.Fatalf("unexpected message %q", high.Error())
	}
}
