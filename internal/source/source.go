package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"dataset-publisher/internal/config"
	"dataset-publisher/internal/model"
	"dataset-publisher/internal/utils"
)

// Source supplies the rows appended to a dataset table
type Source interface {
	// Name identifies the source kind in logs and errors
	Name() string
	// Read returns all rows of the source
	Read(ctx context.Context) ([]model.Row, error)
}

// New returns the row source selected by cfg.Rows.Source
func New(ctx context.Context, cfg *config.Config) (Source, error) {
	rows := cfg.Rows
	switch rows.Source {
	case config.SourceInline:
		return NewInlineSource(rows.Inline), nil
	case config.SourceFile:
		return NewFileSource(rows.Path), nil
	case config.SourceMySQL:
		return NewMySQLSource(cfg), nil
	case config.SourceS3:
		return NewS3Source(ctx, rows.S3)
	}
	return nil, utils.NewConfigurationError(fmt.Errorf("unsupported row source: %s", rows.Source))
}

// decodeRows parses either a JSON array of objects or newline-delimited objects.
// Numbers are kept as json.Number so integers survive unchanged.
func decodeRows(data []byte) ([]model.Row, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return []model.Row{}, nil
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	if trimmed[0] == '[' {
		var rows []model.Row
		if err := decoder.Decode(&rows); err != nil {
			return nil, fmt.Errorf("invalid JSON rows: %w", err)
		}
		if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
			return nil, errors.New("invalid JSON rows: unexpected trailing data")
		}
		for i, row := range rows {
			if row == nil {
				return nil, fmt.Errorf("invalid JSON row %d: null", i+1)
			}
		}
		if rows == nil {
			rows = []model.Row{}
		}
		return rows, nil
	}

	rows := []model.Row{}
	for {
		var row model.Row
		err := decoder.Decode(&row)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid JSON row %d: %w", len(rows)+1, err)
		}
		if row == nil {
			return nil, fmt.Errorf("invalid JSON row %d: null", len(rows)+1)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
