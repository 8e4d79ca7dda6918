package db

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mafianight/bot/internal/models"
)

// DefaultDSN is used when DATABASE_URL is empty: a local SQLite file in the working dir.
const DefaultDSN = "mafia.db?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"

// Open connects to Postgres when dsn is a postgres URL and to SQLite otherwise,
// then migrates the schema.
func Open(dsn string, log *zap.Logger) (*gorm.DB, error) {
	if dsn == "" {
		dsn = DefaultDSN
	}

	cfg := &gorm.Config{Logger: newGormLogger(log)}

	var (
		conn   *gorm.DB
		err    error
		driver string
	)
	if isPostgres(dsn) {
		driver = "postgres"
		conn, err = gorm.Open(postgres.Open(dsn), cfg)
	} else {
		driver = "sqlite"
		conn, err = gorm.Open(sqlite.Open(strings.TrimPrefix(dsn, "sqlite://")), cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	if driver == "sqlite" {
		// SQLite works best with a single writer; cap the pool accordingly.
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(0)
	} else {
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetMaxIdleConns(10)
	}

	if err := Migrate(conn); err != nil {
		return nil, err
	}

	log.Info("database ready", zap.String("driver", driver))
	return conn, nil
}

// Migrate creates the four tables with their foreign keys and indexes.
func Migrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(
		&models.User{},
		&models.Group{},
		&models.Game{},
		&models.Participation{},
	); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}

	// Composite index that GORM doesn't auto-create from struct tags.
	if err := conn.Exec("CREATE INDEX IF NOT EXISTS idx_games_group_active ON games(group_id, active)").Error; err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func Close(conn *gorm.DB) error {
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// newGormLogger writes GORM's output into log, at a verbosity that follows
// log's level. Misses are part of normal flow and are not logged.
func newGormLogger(log *zap.Logger) logger.Interface {
	level, at := gormLevel(log.Core())
	std, err := zap.NewStdLogAt(log.Named("gorm"), at)
	if err != nil {
		std = zap.NewStdLog(log.Named("gorm"))
	}
	return logger.New(std, logger.Config{
		SlowThreshold:             time.Second,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

// gormLevel picks the GORM level for the most verbose zap level enabled,
// and the zap level GORM's lines are written at.
func gormLevel(core zapcore.Core) (logger.LogLevel, zapcore.Level) {
	switch {
	case core.Enabled(zapcore.DebugLevel):
		return logger.Info, zapcore.DebugLevel
	case core.Enabled(zapcore.WarnLevel):
		return logger.Warn, zapcore.WarnLevel
	case core.Enabled(zapcore.ErrorLevel):
		return logger.Error, zapcore.ErrorLevel
	default:
		return logger.Silent, zapcore.ErrorLevel
	}
}

func isPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}
