package planner

import "errors"

// Validation errors are returned before the store is touched.
var (
	ErrEmptyTitle      = errors.New("title is required")
	ErrInvalidPriority = errors.New("priority must be low, medium or high")
	ErrInvalidStatus   = errors.New("status must be pending or completed")
	ErrInvalidWeekday  = errors.New("repeat days must be within 0-6")
	ErrTaskNotFound    = errors.New("task not found")
)
