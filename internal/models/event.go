package models

import "time"

// Origin identifies which population submitted an order.
type Origin string

const (
	OriginRequester Origin = "requester"
	OriginSupplier  Origin = "supplier"
)

// Valid reports whether the origin is one of the known populations.
func (o Origin) Valid() bool {
	return o == OriginRequester || o == OriginSupplier
}

// OrderEvent is a single order record as supplied by the loader.
// Timestamp is expected to be truncated to a calendar day already.
type OrderEvent struct {
	Category  string    `json:"category"`
	Timestamp time.Time `json:"timestamp"`
	Origin    Origin    `json:"origin"`
	FoodGroup string    `json:"food_group,omitempty"`
}

// DailyCount is one entry of a DailySeries.
type DailyCount struct {
	Date  time.Time
	Count int
}

// DailySeries holds per-date event counts for one category, ascending by date.
type DailySeries struct {
	Category string
	Points   []DailyCount
}

// Len returns the number of distinct dates in the series.
func (s DailySeries) Len() int {
	return len(s.Points)
}

// First returns the earliest date, or the zero time for an empty series.
func (s DailySeries) First() time.Time {
	if len(s.Points) == 0 {
		return time.Time{}
	}
	return s.Points[0].Date
}

// Last returns the latest date, or the zero time for an empty series.
func (s DailySeries) Last() time.Time {
	if len(s.Points) == 0 {
		return time.Time{}
	}
	return s.Points[len(s.Points)-1].Date
}

// Total sums all counts.
func (s DailySeries) Total() int {
	total := 0
	for _, p := range s.Points {
		total += p.Count
	}
	return total
}
