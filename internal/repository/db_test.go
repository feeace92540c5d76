package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/yourorg/strategy-config/internal/apperr"
	"github.com/yourorg/strategy-config/internal/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// isolationLog records the isolation level of every transaction begun through it
type isolationLog struct {
	mu     sync.Mutex
	levels []sql.IsolationLevel
}

func (l *isolationLog) all() []sql.IsolationLevel {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]sql.IsolationLevel(nil), l.levels...)
}

type recordingConn struct {
	driver.Conn
	log *isolationLog
}

func (c recordingConn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	c.log.mu.Lock()
	c.log.levels = append(c.log.levels, sql.IsolationLevel(opts.Isolation))
	c.log.mu.Unlock()
	return c.Conn.(driver.ConnBeginTx).BeginTx(ctx, opts)
}

func (c recordingConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	return c.Conn.(driver.ExecerContext).ExecContext(ctx, query, args)
}

func (c recordingConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	return c.Conn.(driver.QueryerContext).QueryContext(ctx, query, args)
}

type recordingConnector struct {
	dsn string
	drv driver.Driver
	log *isolationLog
}

func (c recordingConnector) Connect(ctx context.Context) (driver.Conn, error) {
	conn, err := c.drv.Open(c.dsn)
	if err != nil {
		return nil, err
	}
	return recordingConn{Conn: conn, log: c.log}, nil
}

func (c recordingConnector) Driver() driver.Driver {
	return c.drv
}

// newMockDB returns a DB over sqlmock speaking the pgx placeholder dialect
func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock, *isolationLog) {
	t.Helper()

	dsn := t.Name()
	mockDB, mock, err := sqlmock.NewWithDSN(dsn)
	require.NoError(t, err)

	log := &isolationLog{}
	pool := sql.OpenDB(recordingConnector{dsn: dsn, drv: mockDB.Driver(), log: log})
	pool.SetMaxOpenConns(1)

	t.Cleanup(func() {
		pool.Close()
		mockDB.Close()
	})

	return NewDB(sqlx.NewDb(pool, "pgx"), zap.NewNop()), mock, log
}

var strategyColumns = []string{"id", "title", "status", "strategy_template_name", "created_at"}

func exact(query string) string {
	return "^" + regexp.QuoteMeta(query) + "$"
}

func TestInTxRunsSerializableAndCommits(t *testing.T) {
	db, mock, log := newMockDB(t)
	strategies := NewStrategyRepository(zap.NewNop())

	mock.ExpectBegin()
	mock.ExpectExec(exact("DELETE FROM strategies WHERE id = $1")).
		WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := db.InTx(context.Background(), func(tx sqlx.ExtContext) error {
		return strategies.Delete(context.Background(), tx, 7)
	})
	require.NoError(t, err)

	assert.Equal(t, []sql.IsolationLevel{sql.LevelSerializable}, log.all())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInTxRollsBackWhenBatchFails(t *testing.T) {
	db, mock, _ := newMockDB(t)
	strategies := NewStrategyRepository(zap.NewNop())
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(exact("INSERT INTO strategies (status, strategy_template_name, title) VALUES ($1, $2, $3) RETURNING *")).
		WithArgs("active", "NoOp", "first").
		WillReturnRows(sqlmock.NewRows(strategyColumns).AddRow(1, "first", "active", "NoOp", time.Now()))
	mock.ExpectRollback()

	boom := errors.New("second item failed")
	err := db.InTx(ctx, func(tx sqlx.ExtContext) error {
		if _, err := strategies.Insert(ctx, tx, model.StrategyCreate{
			Title:                "first",
			Status:               model.StatusActive,
			StrategyTemplateName: model.TemplateNoOp,
		}.Changes().Columns); err != nil {
			return err
		}
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInTxClassifiesFailures(t *testing.T) {
	tests := []struct {
		name   string
		expect func(mock sqlmock.Sqlmock)
		check  func(t *testing.T, err error)
	}{
		{
			name: "serialization failure on commit",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectCommit().WillReturnError(&pgconn.PgError{Code: codeSerializationFailure})
			},
			check: func(t *testing.T, err error) {
				var serialization *apperr.SerializationError
				assert.ErrorAs(t, err, &serialization)
			},
		},
		{
			name: "begin fails",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin().WillReturnError(errors.New("connection refused"))
			},
			check: func(t *testing.T, err error) {
				assert.ErrorContains(t, err, "connection refused")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, _ := newMockDB(t)
			tt.expect(mock)

			err := db.InTx(context.Background(), func(tx sqlx.ExtContext) error { return nil })
			require.Error(t, err)
			tt.check(t, err)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestTableFind(t *testing.T) {
	db, mock, _ := newMockDB(t)
	strategies := NewStrategyRepository(zap.NewNop())
	ctx := context.Background()

	mock.ExpectQuery(exact("SELECT * FROM strategies WHERE id = $1")).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(strategyColumns).AddRow(1, "Momentum", "active", "NoOp", time.Now()))
	mock.ExpectQuery(exact("SELECT * FROM strategies WHERE id = $1")).
		WithArgs(9).
		WillReturnRows(sqlmock.NewRows(strategyColumns))

	found, err := strategies.Find(ctx, db.Conn(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Momentum", found.Title)
	assert.Equal(t, model.StatusActive, found.Status)

	_, err = strategies.Find(ctx, db.Conn(), 9)
	var notFound *apperr.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "Strategy", notFound.Entity)
	assert.Equal(t, int64(9), notFound.ID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTablePatchMissingRow(t *testing.T) {
	db, mock, _ := newMockDB(t)
	strategies := NewStrategyRepository(zap.NewNop())

	mock.ExpectQuery(exact("UPDATE strategies SET status = $1 WHERE id = $2 RETURNING *")).
		WithArgs("inactive", 9).
		WillReturnRows(sqlmock.NewRows(strategyColumns))

	_, err := strategies.Patch(context.Background(), db.Conn(), 9, map[string]interface{}{"status": "inactive"})
	assert.True(t, apperr.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTableDeleteMissingRow(t *testing.T) {
	db, mock, _ := newMockDB(t)
	strategies := NewStrategyRepository(zap.NewNop())

	mock.ExpectExec(exact("DELETE FROM strategies WHERE id = $1")).
		WithArgs(9).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := strategies.Delete(context.Background(), db.Conn(), 9)
	assert.True(t, apperr.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTableInsertClassifiesUniqueViolation(t *testing.T) {
	db, mock, _ := newMockDB(t)
	symbols := NewSymbolRepository(zap.NewNop())

	mock.ExpectQuery(exact("INSERT INTO symbols (name) VALUES ($1) RETURNING *")).
		WithArgs("AAPL").
		WillReturnError(&pgconn.PgError{Code: codeUniqueViolation, ConstraintName: "symbols_name_key"})

	_, err := symbols.Insert(context.Background(), db.Conn(), map[string]interface{}{"name": "AAPL"})

	var conflict *apperr.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "symbols_name_key", conflict.Constraint)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeactivateSiblingsTargetsOtherActiveSchemes(t *testing.T) {
	db, mock, _ := newMockDB(t)
	schemes := NewSchemeRepository(zap.NewNop())

	mock.ExpectExec(`UPDATE sea_dog_discount_schemes\s+SET status = \$1\s+WHERE strategy_id = \$2 AND id <> \$3 AND status = \$4`).
		WithArgs("inactive", 3, 5, "active").
		WillReturnResult(sqlmock.NewResult(0, 2))

	changed, err := schemes.DeactivateSiblings(context.Background(), db.Conn(), 3, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(2), changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJunctionReplaceDeletesThenInserts(t *testing.T) {
	tests := []struct {
		name     string
		junction *Junction
		ids      []int64
		expect   func(mock sqlmock.Sqlmock)
	}{
		{
			name:     "ordered keeps first occurrence and position",
			junction: NewStrategySymbols(zap.NewNop()),
			ids:      []int64{9, 2, 9},
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(exact("DELETE FROM strategy_symbols WHERE strategy_id = $1")).
					WithArgs(4).
					WillReturnResult(sqlmock.NewResult(0, 3))
				mock.ExpectExec(exact("INSERT INTO strategy_symbols (strategy_id, symbol_id, position) VALUES ($1, $2, $3), ($4, $5, $6)")).
					WithArgs(4, 9, 0, 4, 2, 1).
					WillReturnResult(sqlmock.NewResult(0, 2))
			},
		},
		{
			name:     "unordered",
			junction: NewSchemeSymbols(zap.NewNop()),
			ids:      []int64{5},
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(exact("DELETE FROM sea_dog_discount_scheme_symbols WHERE scheme_id = $1")).
					WithArgs(4).
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectExec(exact("INSERT INTO sea_dog_discount_scheme_symbols (scheme_id, symbol_id) VALUES ($1, $2)")).
					WithArgs(4, 5).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name:     "empty list only clears",
			junction: NewStrategySymbols(zap.NewNop()),
			ids:      []int64{},
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(exact("DELETE FROM strategy_symbols WHERE strategy_id = $1")).
					WithArgs(4).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, _ := newMockDB(t)
			tt.expect(mock)

			require.NoError(t, tt.junction.Replace(context.Background(), db.Conn(), 4, tt.ids))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestJunctionReplaceClassifiesMissingSymbol(t *testing.T) {
	db, mock, _ := newMockDB(t)
	junction := NewStrategySymbols(zap.NewNop())

	mock.ExpectExec(exact("DELETE FROM strategy_symbols WHERE strategy_id = $1")).
		WithArgs(4).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(exact("INSERT INTO strategy_symbols (strategy_id, symbol_id, position) VALUES ($1, $2, $3)")).
		WithArgs(4, 404, 0).
		WillReturnError(&pgconn.PgError{Code: codeForeignKeyViolation, ConstraintName: "strategy_symbols_symbol_id_fkey"})

	err := junction.Replace(context.Background(), db.Conn(), 4, []int64{404})

	var conflict *apperr.ConflictError
	assert.ErrorAs(t, err, &conflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}
