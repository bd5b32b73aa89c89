// Package migrations хранит SQL-миграции обоих SQL-бэкендов внутри бинарника
// и применяет их через golang-migrate.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"taskPlanner/internal/logger"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed postgres/*.sql
var postgresFS embed.FS

//go:embed sqlite/*.sql
var sqliteFS embed.FS

// Migrator применяет миграции к уже открытому соединению. Для SQLite
// соединение общее с хранилищем, поэтому Close его не закрывает.
type Migrator struct {
	m       *migrate.Migrate
	backend string
	ownsDB  bool
}

// Postgres принимает обёртку над пулом (stdlib.OpenDBFromPool); Close
// освобождает её соединение, сам пул остаётся открытым.
func Postgres(db *sql.DB) (*Migrator, error) {
	source, err := iofs.New(postgresFS, "postgres")
	if err != nil {
		return nil, fmt.Errorf("источник миграций: %w", err)
	}
	driver, err := migratepgx.WithInstance(db, &migratepgx.Config{})
	if err != nil {
		return nil, fmt.Errorf("драйвер миграций: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "pgx5", driver)
	if err != nil {
		return nil, fmt.Errorf("создание мигратора: %w", err)
	}
	return &Migrator{m: m, backend: "postgres", ownsDB: true}, nil
}

func SQLite(db *sql.DB) (*Migrator, error) {
	source, err := iofs.New(sqliteFS, "sqlite")
	if err != nil {
		return nil, fmt.Errorf("источник миграций: %w", err)
	}
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("драйвер миграций: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("создание мигратора: %w", err)
	}
	return &Migrator{m: m, backend: "sqlite"}, nil
}

func (mg *Migrator) Up() error {
	logger.Info("Repository: Применение миграций", zap.String("backend", mg.backend))
	if err := mg.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Error("Repository: Ошибка применения миграций", err)
		return fmt.Errorf("применение миграций: %w", err)
	}
	mg.logVersion()
	return nil
}

func (mg *Migrator) Down() error {
	logger.Info("Repository: Откат миграций", zap.String("backend", mg.backend))
	if err := mg.m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Error("Repository: Ошибка отката миграций", err)
		return fmt.Errorf("откат миграций: %w", err)
	}
	logger.Info("Repository: Миграции откачены")
	return nil
}

func (mg *Migrator) logVersion() {
	version, dirty, err := mg.m.Version()
	if err != nil {
		return
	}
	logger.Info("Repository: Схема актуальна",
		zap.Uint("version", version),
		zap.Bool("dirty", dirty))
}

func (mg *Migrator) Close() {
	if !mg.ownsDB {
		return
	}
	if sourceErr, dbErr := mg.m.Close(); sourceErr != nil || dbErr != nil {
		logger.Warn("Repository: Ошибка закрытия мигратора",
			zap.NamedError("source", sourceErr),
			zap.NamedError("database", dbErr))
	}
}
