package engine

import "fmt"

// EmptyCategoryError is returned when no event matches the requested category.
type EmptyCategoryError struct {
	Category string
}

func (e *EmptyCategoryError) Error() string {
	return fmt.Sprintf("no order events for category %q", e.Category)
}

// InvalidHorizonError is returned for a forecast horizon below one day, or
// above MaxHorizonDays when a limit applies.
type InvalidHorizonError struct {
	Category       string
	HorizonDays    int
	MaxHorizonDays int
}

func (e *InvalidHorizonError) Error() string {
	if e.MaxHorizonDays > 0 && e.HorizonDays > e.MaxHorizonDays {
		return fmt.Sprintf("invalid forecast horizon %d: must be at most %d days", e.HorizonDays, e.MaxHorizonDays)
	}
	return fmt.Sprintf("invalid forecast horizon %d for category %q: must be at least 1 day", e.HorizonDays, e.Category)
}

// InsufficientHistoryError is returned when a series has fewer than
// MinHistoryDates distinct dates.
type InsufficientHistoryError struct {
	Category string
	Dates    int
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("category %q has %d distinct dates, need at least %d to forecast", e.Category, e.Dates, MinHistoryDates)
}

// ZeroDemandError is returned when classifying with no requester orders.
type ZeroDemandError struct {
	Category       string
	RequesterCount int
	SupplierCount  int
}

func (e *ZeroDemandError) Error() string {
	if e.Category == "" {
		return fmt.Sprintf("requester count %d: adequacy ratio undefined", e.RequesterCount)
	}
	return fmt.Sprintf("category %q has requester count %d: adequacy ratio undefined", e.Category, e.RequesterCount)
}

// CategoryNotFoundError is returned when one origin has no events for a category.
type CategoryNotFoundError struct {
	Category string
	Origin   string
}

func (e *CategoryNotFoundError) Error() string {
	return fmt.Sprintf("category %q has no %s orders", e.Category, e.Origin)
}

// ForecastOracleError wraps a failure raised by the forecasting procedure.
type ForecastOracleError struct {
	Category string
	Stage    string
	Err      error
}

func (e *ForecastOracleError) Error() string {
	return fmt.Sprintf("forecast oracle %s failed for category %q: %v", e.Stage, e.Category, e.Err)
}

func (e *ForecastOracleError) Unwrap() error {
	return e.Err
}
