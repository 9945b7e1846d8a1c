package db

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"cataid-backend/internal/config"
)

var (
	instance *gorm.DB
	mu       sync.RWMutex
)

// InitDBFromConfig opens the postgres connection described by cfg and makes
// it the shared handle returned by GetDB.
func InitDBFromConfig(cfg *config.APIConfig) (*gorm.DB, error) {
	logLevel := logger.Warn
	if cfg.RequestDump {
		logLevel = logger.Info
	}

	conn, err := gorm.Open(postgres.Open(cfg.DB.DSN()), &gorm.Config{
		Logger:  logger.Default.LogMode(logLevel),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to access connection pool")
	}
	pool := cfg.DB.Pool
	if pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(pool.ConnMaxLifetime) * time.Minute)
	}

	SetDB(conn)
	return conn, nil
}

// SetDB replaces the shared handle.
func SetDB(conn *gorm.DB) {
	mu.Lock()
	instance = conn
	mu.Unlock()
}

// GetDB returns the shared handle, or nil before InitDBFromConfig.
func GetDB() *gorm.DB {
	mu.RLock()
	defer mu.RUnlock()
	return instance
}
