// Package storage persists file imports and their cost tuples through gorm.
// SQLite is the default; MySQL is selected by configuration.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"costlens/internal/models"
	"costlens/pkg/config"
	"costlens/pkg/logger"
)

const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"

	insertBatchSize = 500
)

// Store wraps the gorm handle
type Store struct {
	db *gorm.DB
}

// zapWriter forwards gorm's log lines to the zap sugar logger
type zapWriter struct{}

func (zapWriter) Printf(format string, args ...interface{}) {
	logger.Sugar.Debugf(format, args...)
}

// Open connects according to cfg and migrates the schema when asked
func Open(cfg *config.StorageConfig) (*Store, error) {
	if cfg == nil {
		cfg = config.NewStorageConfig()
	}

	level := gormlogger.Warn
	if cfg.Debug {
		level = gormlogger.Info
	}
	gcfg := &gorm.Config{
		Logger: gormlogger.New(zapWriter{}, gormlogger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
	}

	var dialector gorm.Dialector
	switch strings.ToLower(cfg.Driver) {
	case DriverSQLite, "":
		if err := ensureDir(cfg.DSN); err != nil {
			return nil, err
		}
		dialector = sqlite.Open(cfg.DSN)
	case DriverMySQL:
		dialector = mysql.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDriver, cfg.Driver)
	}

	db, err := gorm.Open(dialector, gcfg)
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", cfg.Driver, err)
	}
	s := &Store{db: db}
	if cfg.AutoMigrate {
		if err := s.Migrate(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// NewStore wraps an existing handle
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates or updates every table
func (s *Store) Migrate() error {
	if err := s.db.AutoMigrate(&models.FileImport{}, &models.CostRow{}, &models.JobRun{}); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// DB exposes the gorm handle
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Close releases the underlying connection pool
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ensureDir creates the parent directory of a file based SQLite DSN
func ensureDir(dsn string) error {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create storage directory %s: %w", dir, err)
	}
	return nil
}
