package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/yourorg/strategy-config/internal/config"

	"github.com/cenkalti/backoff/v4"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// DB owns the connection pool and hands out serializable transactions.
// Callers thread the *sqlx.Tx explicitly through every store call.
type DB struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewDB wraps an existing pool
func NewDB(db *sqlx.DB, logger *zap.Logger) *DB {
	return &DB{
		db:     db,
		logger: logger,
	}
}

// Connect opens the pool, retrying with exponential backoff while the database comes up
func Connect(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.DBName,
		cfg.SSLMode,
	)

	var db *sqlx.DB
	connect := func() error {
		var err error
		db, err = sqlx.ConnectContext(ctx, "pgx", dsn)
		if err != nil {
			logger.Warn("Database not reachable yet", zap.String("host", cfg.Host), zap.Error(err))
			return err
		}
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = cfg.ConnectTimeout
	if err := backoff.Retry(connect, backoff.WithContext(policy, ctx)); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	logger.Info("Connected to database", zap.String("host", cfg.Host), zap.String("db", cfg.DBName))
	return NewDB(db, logger), nil
}

// Conn returns the pool for reads outside a batch
func (d *DB) Conn() sqlx.ExtContext {
	return d.db
}

// InTx runs fn inside one SERIALIZABLE transaction. The transaction commits only
// when fn returns nil; any error rolls back every statement fn issued.
func (d *DB) InTx(ctx context.Context, fn func(tx sqlx.ExtContext) error) error {
	start := time.Now()

	tx, err := d.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		d.logger.Error("Failed to begin transaction", zap.Error(err))
		return classify(err)
	}
	defer tx.Rollback() // no-op once committed

	if err := fn(tx); err != nil {
		return classify(err)
	}

	if err := tx.Commit(); err != nil {
		err = classify(err)
		d.logger.Warn("Failed to commit transaction", zap.Error(err))
		return err
	}

	d.logger.Debug("Transaction committed", zap.Duration("elapsed", time.Since(start)))
	return nil
}

// Ping checks if the database connection is alive
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Close closes the pool
func (d *DB) Close() error {
	return d.db.Close()
}
