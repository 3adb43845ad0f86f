package repository

import (
	"context"

	"dataset-publisher/internal/model"
)

// RowRepository defines the interface for reading rows to append
type RowRepository interface {
	// FetchRows runs a read-only query and returns one row per result record
	FetchRows(ctx context.Context, query string, args ...interface{}) ([]model.Row, error)
}
