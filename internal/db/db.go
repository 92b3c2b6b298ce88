package db

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/BruksfildServices01/barbershop-booking/internal/config"
	"github.com/BruksfildServices01/barbershop-booking/internal/logging"
	"github.com/BruksfildServices01/barbershop-booking/internal/models"
)

// Open connects to postgres for postgres:// DSNs and to sqlite otherwise
// (a file path, or file::memory: for throwaway databases).
func Open(dsn string) (*gorm.DB, error) {
	cfg := &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	}

	if isPostgres(dsn) {
		cfg.PrepareStmt = true
		return gorm.Open(postgres.Open(dsn), cfg)
	}

	return gorm.Open(sqlite.Open(dsn), cfg)
}

func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&models.User{},
		&models.Barber{},
		&models.Service{},
		&models.Client{},
		&models.Booking{},
		&models.StaffBreak{},
		&models.ReminderTemplate{},
		&models.ReminderLog{},
		&models.AuditLog{},
	)
}

func NewDB(cfg *config.Config) *gorm.DB {
	gdb, err := Open(cfg.DBUrl)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to connect database")
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to get sql.DB")
	}

	if isPostgres(cfg.DBUrl) {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
		sqlDB.SetConnMaxIdleTime(10 * time.Minute)
	} else {
		// sqlite allows a single writer.
		sqlDB.SetMaxOpenConns(1)
	}

	if err := Migrate(gdb); err != nil {
		logging.Fatal().Err(err).Msg("failed to migrate")
	}

	logging.Info().Str("dialect", gdb.Dialector.Name()).Msg("database ready")
	return gdb
}

func isPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") ||
		strings.Contains(dsn, "host=")
}

// OpenTest returns a migrated, isolated in-memory sqlite database.
func OpenTest(name string) (*gorm.DB, error) {
	gdb, err := Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		return nil, err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := Migrate(gdb); err != nil {
		return nil, err
	}
	return gdb, nil
}
