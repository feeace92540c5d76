// Package memory is an in-process backend with the same contract as the
// Postgres store. Transactions are serialized behind one lock and roll back by
// restoring a snapshot of every registered table. Calls made outside a
// transaction behave like autocommit statements: reads share the lock and
// writes take it exclusively, so nothing a running batch wrote is visible
// until it commits.
package memory

import (
	"context"
	"sync"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type snapshotter interface {
	snapshot() func()
}

// txConn marks calls made from inside InTx. Tables never run SQL, so the
// embedded executor stays nil.
type txConn struct {
	sqlx.ExtContext
	db *DB
}

// DB groups tables and junctions into one transactional unit
type DB struct {
	mu     sync.RWMutex
	parts  []snapshotter
	logger *zap.Logger
}

// NewDB creates an empty in-memory database
func NewDB(logger *zap.Logger) *DB {
	return &DB{logger: logger}
}

func (d *DB) register(part snapshotter) {
	d.parts = append(d.parts, part)
}

// Conn returns the executor for autocommit calls
func (d *DB) Conn() sqlx.ExtContext {
	return nil
}

// InTx runs fn with exclusive access to the database. Any error restores every
// table to its state before fn ran.
func (d *DB) InTx(ctx context.Context, fn func(tx sqlx.ExtContext) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	restores := make([]func(), len(d.parts))
	for i, part := range d.parts {
		restores[i] = part.snapshot()
	}

	if err := fn(&txConn{db: d}); err != nil {
		for _, restore := range restores {
			restore()
		}
		d.logger.Debug("Transaction rolled back", zap.Error(err))
		return err
	}
	return nil
}

func (d *DB) owns(q sqlx.ExtContext) bool {
	tx, ok := q.(*txConn)
	return ok && tx.db == d
}

// read locks d for a statement issued through q and returns the unlock
func (d *DB) read(q sqlx.ExtContext) func() {
	if d.owns(q) {
		return func() {}
	}
	d.mu.RLock()
	return d.mu.RUnlock
}

// write is read with exclusive access, for statements that change rows
func (d *DB) write(q sqlx.ExtContext) func() {
	if d.owns(q) {
		return func() {}
	}
	d.mu.Lock()
	return d.mu.Unlock
}

// Ping always succeeds
func (d *DB) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op
func (d *DB) Close() error {
	return nil
}
