package config

import (
	"fmt"
	"log"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitRowDatabase opens the MySQL database used as a row source
func InitRowDatabase(cfg *Config) (*gorm.DB, error) {
	db := cfg.Rows.MySQL
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		db.Username,
		db.Password,
		db.Host,
		db.Port,
		db.Database,
	)

	return openDatabase(mysql.Open(dsn), cfg.Logging.Level)
}

func openDatabase(dialector gorm.Dialector, level string) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormLogger(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test the connection
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Row source database connection established")
	return db, nil
}

func gormLogger(level string) logger.Interface {
	switch level {
	case "debug":
		return logger.Default.LogMode(logger.Info)
	case "info":
		return logger.Default.LogMode(logger.Warn)
	case "warn":
		return logger.Default.LogMode(logger.Error)
	case "error":
		return logger.Default.LogMode(logger.Silent)
	default:
		return logger.Default.LogMode(logger.Warn)
	}
}
