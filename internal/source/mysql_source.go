package source

import (
	"context"
	"log"

	"dataset-publisher/internal/config"
	"dataset-publisher/internal/model"
	"dataset-publisher/internal/repository"
	"dataset-publisher/internal/utils"

	"gorm.io/gorm"
)

// MySQLSource runs the configured query against a MySQL database
type MySQLSource struct {
	cfg   *config.Config
	query string
	open  func(*config.Config) (*gorm.DB, error)
}

func NewMySQLSource(cfg *config.Config) *MySQLSource {
	return &MySQLSource{
		cfg:   cfg,
		query: cfg.Rows.Query,
		open:  config.InitRowDatabase,
	}
}

func (s *MySQLSource) Name() string { return config.SourceMySQL }

func (s *MySQLSource) Read(ctx context.Context) ([]model.Row, error) {
	db, err := s.open(s.cfg)
	if err != nil {
		return nil, utils.NewRowSourceError(err, s.Name())
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}()

	rows, err := repository.NewRowRepository(db).FetchRows(ctx, s.query)
	if err != nil {
		return nil, utils.NewRowSourceError(err, s.Name())
	}

	log.Printf("Read %d rows from MySQL", len(rows))
	return rows, nil
}
