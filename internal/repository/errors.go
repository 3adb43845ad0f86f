package repository

import "errors"

// Common repository errors
var (
	ErrEmptyQuery = errors.New("row query is empty")
)
