package services

import "errors"

var (
	// ErrEmptyInput is returned for a blank quick-entry line.
	ErrEmptyInput = errors.New("empty input")
	// ErrNoAmount is returned when a quick-entry line has no recognizable amount.
	ErrNoAmount = errors.New("no amount recognized")
	ErrCategoryNotFound = errors.New("category not found")
)
