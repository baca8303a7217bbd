package utils

import "fmt"

// AppError tags a failure with the operation and, when known, the product
// category it concerns.
type AppError struct {
	Op       string
	Category string
	Msg      string
	Err      error
}

func (e *AppError) Error() string {
	prefix := e.Op
	if e.Category != "" {
		prefix = fmt.Sprintf("%s[%s]", e.Op, e.Category)
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", prefix, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %v", prefix, e.Msg, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewCategoryError constructs an AppError scoped to a category.
func NewCategoryError(op, category, msg string, err error) *AppError {
	return &AppError{Op: op, Category: category, Msg: msg, Err: err}
}
