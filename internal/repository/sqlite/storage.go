package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"taskPlanner/internal/logger"
	repo "taskPlanner/internal/repository"
	"taskPlanner/internal/repository/migrations"

	"go.uber.org/zap"
	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// querier - общее подмножество *sql.DB и *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type queries struct {
	q   querier
	now func() time.Time
}

type Storage struct {
	*queries
	db *sql.DB
}

// dsn включает внешние ключи (на каждом соединении), ожидание блокировки
// и BEGIN IMMEDIATE для транзакций; время пишется в формате, который
// сортируется как строка
func dsn(path string) string {
	params := url.Values{}
	params.Add("_pragma", "foreign_keys(1)")
	params.Add("_pragma", "busy_timeout(5000)")
	params.Add("_pragma", "journal_mode(WAL)")
	params.Set("_txlock", "immediate")
	params.Set("_time_format", "sqlite")
	return "file:" + path + "?" + params.Encode()
}

func New(ctx context.Context, path string) (*Storage, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Error("Repository: Не удалось создать каталог БД", err)
			return nil, fmt.Errorf("создание каталога: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		logger.Error("Repository: Не удалось открыть SQLite", err)
		return nil, fmt.Errorf("открытие базы: %w", err)
	}
	// один писатель: запросы не конкурируют за файловую блокировку
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		logger.Error("Repository: Неудачная проверка ping", err)
		return nil, fmt.Errorf("проверка соединения ping: %w", err)
	}

	logger.Info("Repository: Успешное подключение к SQLite", zap.String("path", path))
	return &Storage{
		queries: &queries{q: db, now: utcNow},
		db:      db,
	}, nil
}

func utcNow() time.Time {
	return time.Now().UTC()
}

func (s *Storage) Close() {
	if err := s.db.Close(); err != nil {
		logger.Warn("Repository: Ошибка закрытия SQLite", zap.Error(err))
		return
	}
	logger.Info("Repository: Соединение с SQLite закрыто")
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		logger.Error("Repository: Неудачная проверка ping", err)
		return fmt.Errorf("проверка соединения ping: %w", err)
	}
	logger.Info("Repository: Соединение стабильно")
	return nil
}

func (s *Storage) WithTx(ctx context.Context, fn func(tx repo.Repository) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("Repository: Не удалось начать транзакцию", err)
		return fmt.Errorf("начало транзакции: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			logger.Warn("Repository: Ошибка отката транзакции", zap.Error(err))
		}
	}()

	if err := fn(&queries{q: tx, now: s.now}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		logger.Error("Repository: Не удалось зафиксировать транзакцию", err)
		return fmt.Errorf("фиксация транзакции: %w", err)
	}
	return nil
}

func (s *Storage) Migrate(ctx context.Context) error {
	m, err := migrations.SQLite(s.db)
	if err != nil {
		logger.Error("Repository: Не удалось подготовить миграции", err)
		return err
	}
	return m.Up()
}

func (s *Storage) Down(ctx context.Context) error {
	m, err := migrations.SQLite(s.db)
	if err != nil {
		logger.Error("Repository: Не удалось подготовить миграции", err)
		return err
	}
	return m.Down()
}

func hasCode(err error, code int) bool {
	var sqliteErr *moderncsqlite.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code() == code
}

func isUniqueViolation(err error) bool {
	return hasCode(err, sqlite3.SQLITE_CONSTRAINT_UNIQUE)
}

func isForeignKeyViolation(err error) bool {
	return hasCode(err, sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY)
}

func warnIfSlow(op string, start time.Time, limit time.Duration) {
	if elapsed := time.Since(start); elapsed > limit {
		logger.Warn("Repository: Медленный запрос",
			zap.String("op", op),
			zap.Duration("ms", elapsed))
	}
}

var _ repo.Storage = (*Storage)(nil)
var _ repo.Repository = (*queries)(nil)
