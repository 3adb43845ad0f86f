package source

import (
	"context"
	"fmt"
	"os"

	"dataset-publisher/internal/config"
	"dataset-publisher/internal/model"
	"dataset-publisher/internal/utils"
)

// FileSource reads rows from a local JSON or JSON lines file
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Name() string { return config.SourceFile }

func (s *FileSource) Read(ctx context.Context) ([]model.Row, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, utils.NewRowSourceError(fmt.Errorf("failed to read %s: %w", s.path, err), s.Name())
	}

	rows, err := decodeRows(data)
	if err != nil {
		return nil, utils.NewRowSourceError(fmt.Errorf("%s: %w", s.path, err), s.Name())
	}
	return rows, nil
}
