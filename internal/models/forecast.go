package models

import "time"

// ForecastRow is one oracle output row. Only Date and Predicted are relied
// upon by the pipeline; Trend and Components are passed through as produced.
type ForecastRow struct {
	Date       time.Time
	Predicted  float64
	Trend      float64
	Components map[string]float64
}

// DemandPoint is the presentation form of a forecast row.
type DemandPoint struct {
	Datetime    time.Time
	OrderVolume float64
	Item        string
}

// ForecastResult bundles the presentation table with the raw oracle output.
type ForecastResult struct {
	ID          string
	Category    string
	HorizonDays int
	// Table is ordered most recent first.
	Table []DemandPoint
	// Decomposition is the oracle output, unmodified.
	Decomposition []ForecastRow
	LastObserved  time.Time
	CreatedAt     time.Time
}
