package source

import (
	"context"

	"dataset-publisher/internal/config"
	"dataset-publisher/internal/model"
	"dataset-publisher/internal/utils"
)

// InlineSource reads rows embedded in the configuration
type InlineSource struct {
	raw string
}

func NewInlineSource(raw string) *InlineSource {
	return &InlineSource{raw: raw}
}

func (s *InlineSource) Name() string { return config.SourceInline }

func (s *InlineSource) Read(ctx context.Context) ([]model.Row, error) {
	rows, err := decodeRows([]byte(s.raw))
	if err != nil {
		return nil, utils.NewRowSourceError(err, s.Name())
	}
	return rows, nil
}
