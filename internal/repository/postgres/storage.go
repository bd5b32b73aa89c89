package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskPlanner/internal/config"
	"taskPlanner/internal/logger"
	repo "taskPlanner/internal/repository"
	"taskPlanner/internal/repository/migrations"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

const uniqueViolation = "23505"

// querier - общее подмножество pgxpool.Pool и pgx.Tx
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// queries реализует repository.Repository поверх пула или транзакции
type queries struct {
	q   querier
	now func() time.Time
}

type Storage struct {
	*queries
	pool *pgxpool.Pool
}

func New(ctx context.Context, connString string, dbCfg config.DatabaseConfig) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		logger.Error("Repository: Ошибка загрузки конфига", err)
		return nil, fmt.Errorf("загрузка конфига: %w", err)
	}

	cfg.MaxConns = 10
	cfg.MinConns = 2
	cfg.MaxConnIdleTime = time.Minute * 5
	if dbCfg.MaxConnections > 0 {
		cfg.MaxConns = int32(dbCfg.MaxConnections)
	}
	if dbCfg.MinConnections > 0 && dbCfg.MinConnections <= dbCfg.MaxConnections {
		cfg.MinConns = int32(dbCfg.MinConnections)
	}
	if dbCfg.IdleTimeout > 0 {
		cfg.MaxConnIdleTime = dbCfg.IdleTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		logger.Error("Repository: Ошибка создания пула", err)
		return nil, fmt.Errorf("создание пула: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		logger.Error("Repository: Неудачная проверка ping", err)
		return nil, fmt.Errorf("проверка соединения ping: %w", err)
	}

	logger.Info("Repository: Успешное создание подключения к PostgreSQL")
	return &Storage{
		queries: &queries{q: pool, now: time.Now},
		pool:    pool,
	}, nil
}

func (s *Storage) Close() {
	s.pool.Close()
	logger.Info("Repository: Закрытие всех соединений PostgreSQL")
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		logger.Error("Repository: Неудачная проверка ping", err)
		return fmt.Errorf("проверка соединения ping: %w", err)
	}
	logger.Info("Repository: Соединение стабильно")
	return nil
}

// WithTx выполняет fn в транзакции READ COMMITTED; ошибка fn откатывает её
func (s *Storage) WithTx(ctx context.Context, fn func(tx repo.Repository) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		logger.Error("Repository: Не удалось начать транзакцию", err)
		return fmt.Errorf("начало транзакции: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			logger.Warn("Repository: Ошибка отката транзакции", zap.Error(err))
		}
	}()

	if err := fn(&queries{q: tx, now: s.now}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		logger.Error("Repository: Не удалось зафиксировать транзакцию", err)
		return fmt.Errorf("фиксация транзакции: %w", err)
	}
	return nil
}

func (s *Storage) migrator() (*migrations.Migrator, error) {
	return migrations.Postgres(stdlib.OpenDBFromPool(s.pool))
}

func (s *Storage) Migrate(ctx context.Context) error {
	m, err := s.migrator()
	if err != nil {
		logger.Error("Repository: Не удалось подготовить миграции", err)
		return err
	}
	defer m.Close()
	return m.Up()
}

func (s *Storage) Down(ctx context.Context) error {
	m, err := s.migrator()
	if err != nil {
		logger.Error("Repository: Не удалось подготовить миграции", err)
		return err
	}
	defer m.Close()
	return m.Down()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
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
