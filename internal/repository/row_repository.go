package repository

import (
	"context"
	"fmt"
	"strings"

	"dataset-publisher/internal/model"

	"gorm.io/gorm"
)

type rowRepository struct {
	db *gorm.DB
}

// NewRowRepository creates a new instance of RowRepository
func NewRowRepository(db *gorm.DB) RowRepository {
	return &rowRepository{db: db}
}

// FetchRows runs the query and maps every record to a row keyed by column name
func (r *rowRepository) FetchRows(ctx context.Context, query string, args ...interface{}) ([]model.Row, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	var records []map[string]interface{}
	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch rows: %w", err)
	}

	rows := make([]model.Row, len(records))
	for i, record := range records {
		rows[i] = normalizeRecord(record)
	}
	return rows, nil
}

// normalizeRecord converts driver byte slices to strings so they serialize as text
func normalizeRecord(record map[string]interface{}) model.Row {
	row := make(model.Row, len(record))
	for column, value := range record {
		if b, ok := value.([]byte); ok {
			row[column] = string(b)
			continue
		}
		row[column] = value
	}
	return row
}
