package database

import (
	"context"
	"embed"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"support-agent/model"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Models lists every table the service owns, in creation order.
var Models = []any{
	&model.Business{},
	&model.Session{},
	&model.FAQ{},
	&model.Product{},
	&model.Service{},
	&model.Policy{},
	&model.Escalation{},
	&model.QueueEntry{},
	&model.AgentPresence{},
	&model.ChatMessage{},
	&model.EscalationActivity{},
}

// Open connects with gorm. Unique violations are translated to gorm.ErrDuplicatedKey.
func Open(ctx context.Context, driver, dsn string, maxConns int, log zerolog.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("gorm sql db: %w", err)
	}
	if driver == "sqlite" {
		sqlDB.SetMaxOpenConns(1)
	} else if maxConns > 0 {
		sqlDB.SetMaxOpenConns(maxConns)
		sqlDB.SetMaxIdleConns(maxConns / 2)
	}
	sqlDB.SetConnMaxIdleTime(15 * time.Minute)
	sqlDB.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	log.Info().Str("component", "database").Str("driver", driver).Msg("connected")
	return db, nil
}

// MigrateUp applies the embedded goose migrations. It is meant for postgres.
func MigrateUp(ctx context.Context, db *gorm.DB, log zerolog.Logger) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("gorm sql db: %w", err)
	}
	goose.SetBaseFS(migrationFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, sqlDB, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	log.Info().Str("component", "database").Msg("migrations applied")
	return nil
}

// AutoMigrate creates the schema from the gorm models. sqlite runs use it instead of goose.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models...)
}

// Prepare brings the schema up to date for the given driver.
func Prepare(ctx context.Context, driver string, db *gorm.DB, log zerolog.Logger) error {
	if driver == "postgres" {
		return MigrateUp(ctx, db, log)
	}
	return AutoMigrate(db)
}
