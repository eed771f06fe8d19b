package db

import (
	"fmt"
	"time"

	"github.com/mindbloom/mindbloom-backend/internal/logger"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

// Connect opens the shared connection pool and assigns it to DB.
func Connect(dsn string) error {
	if dsn == "" {
		return fmt.Errorf("DATABASE_URL is empty")
	}

	d, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Gorm(),
	})
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}

	sqlDB, err := d.DB()
	if err != nil {
		return fmt.Errorf("get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(20)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	DB = d
	logrus.Info("Connected to database")
	return nil
}
