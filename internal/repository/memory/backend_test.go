package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yourorg/strategy-config/internal/apperr"
	"github.com/yourorg/strategy-config/internal/model"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newStrategy(t *testing.T, b *Backend, title string) *model.Strategy {
	t.Helper()
	row, err := b.Strategies.Insert(context.Background(), nil, map[string]interface{}{
		"title":                  title,
		"status":                 "active",
		"strategy_template_name": "NoOp",
	})
	require.NoError(t, err)
	return row
}

func newSymbol(t *testing.T, b *Backend, name string) *model.Symbol {
	t.Helper()
	row, err := b.Symbols.Insert(context.Background(), nil, map[string]interface{}{"name": name})
	require.NoError(t, err)
	return row
}

func TestTableInsertAssignsIncreasingIDs(t *testing.T) {
	b := NewBackend(zap.NewNop())

	first := newStrategy(t, b, "a")
	second := newStrategy(t, b, "b")

	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, int64(2), second.ID)
	assert.Equal(t, model.StatusActive, second.Status)
}

func TestTableUniqueConstraint(t *testing.T) {
	b := NewBackend(zap.NewNop())
	newSymbol(t, b, "AAPL")

	_, err := b.Symbols.Insert(context.Background(), nil, map[string]interface{}{"name": "AAPL"})

	var conflict *apperr.ConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestTableForeignKey(t *testing.T) {
	b := NewBackend(zap.NewNop())

	_, err := b.StrategyLogs.Insert(context.Background(), nil, map[string]interface{}{
		"strategy_id": int64(42),
		"level":       "info",
		"message":     "orphan",
		"timestamp":   int64(1),
	})

	var conflict *apperr.ConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestTablePatchKeepsUntouchedColumns(t *testing.T) {
	b := NewBackend(zap.NewNop())
	row := newStrategy(t, b, "Momentum")

	patched, err := b.Strategies.Patch(context.Background(), nil, row.ID, map[string]interface{}{"status": "inactive"})
	require.NoError(t, err)
	assert.Equal(t, "Momentum", patched.Title)
	assert.Equal(t, model.StatusInactive, patched.Status)

	_, err = b.Strategies.Patch(context.Background(), nil, 99, map[string]interface{}{"status": "inactive"})
	assert.True(t, apperr.IsNotFound(err))
}

func TestTableFindManyPaginatesNewestFirst(t *testing.T) {
	b := NewBackend(zap.NewNop())
	for i := 0; i < 25; i++ {
		newStrategy(t, b, "s")
	}

	page, err := b.Strategies.FindMany(context.Background(), nil, model.Filter{PageNumber: 2, PageSize: 10})
	require.NoError(t, err)

	assert.Len(t, page.Items, 10)
	assert.Equal(t, int64(15), page.Items[0].ID)
	assert.Equal(t, 25, page.TotalResults)
	assert.Equal(t, 3, page.TotalPages)
}

func TestDeleteStrategyCascades(t *testing.T) {
	ctx := context.Background()
	b := NewBackend(zap.NewNop())
	strategy := newStrategy(t, b, "s")
	symbol := newSymbol(t, b, "MSFT")

	require.NoError(t, b.StrategySymbols.Replace(ctx, nil, strategy.ID, []int64{symbol.ID}))
	_, err := b.StrategyValues.Insert(ctx, nil, map[string]interface{}{
		"strategy_id": strategy.ID,
		"value_cents": int64(100),
		"timestamp":   int64(1),
	})
	require.NoError(t, err)

	require.NoError(t, b.Strategies.Delete(ctx, nil, strategy.ID))

	values, err := b.StrategyValues.FindMany(ctx, nil, model.Filter{})
	require.NoError(t, err)
	assert.Empty(t, values.Items)
	assert.False(t, b.StrategySymbols.references(ownerColumn, strategy.ID))

	_, err = b.Symbols.Find(ctx, nil, symbol.ID)
	assert.NoError(t, err)
}

func TestDeleteSymbolRestrictedByOrders(t *testing.T) {
	ctx := context.Background()
	b := NewBackend(zap.NewNop())
	strategy := newStrategy(t, b, "s")
	symbol := newSymbol(t, b, "TSLA")

	_, err := b.Orders.Insert(ctx, nil, map[string]interface{}{
		"strategy_id":       strategy.ID,
		"symbol_id":         symbol.ID,
		"side":              "buy",
		"quantity":          decimal.NewFromInt(1),
		"limit_price_cents": int64(1000),
		"status":            "open",
	})
	require.NoError(t, err)

	err = b.Symbols.Delete(ctx, nil, symbol.ID)
	var conflict *apperr.ConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestJunctionKeepsOrderAndDropsRepeats(t *testing.T) {
	ctx := context.Background()
	b := NewBackend(zap.NewNop())
	strategy := newStrategy(t, b, "s")
	a := newSymbol(t, b, "A")
	c := newSymbol(t, b, "C")

	require.NoError(t, b.StrategySymbols.Replace(ctx, nil, strategy.ID, []int64{c.ID, a.ID, c.ID}))

	related, err := b.StrategySymbols.Symbols(ctx, nil, []int64{strategy.ID, 99})
	require.NoError(t, err)
	assert.Equal(t, []int64{c.ID, a.ID}, model.SymbolIDs(related[strategy.ID]))
	assert.NotNil(t, related[99])
	assert.Empty(t, related[99])
}

func TestJunctionRejectsUnknownSymbol(t *testing.T) {
	b := NewBackend(zap.NewNop())
	strategy := newStrategy(t, b, "s")

	err := b.StrategySymbols.Replace(context.Background(), nil, strategy.ID, []int64{404})

	var conflict *apperr.ConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestInTxRollsBackEveryTable(t *testing.T) {
	ctx := context.Background()
	b := NewBackend(zap.NewNop())
	symbol := newSymbol(t, b, "NVDA")

	boom := errors.New("boom")
	err := b.DB.InTx(ctx, func(tx sqlx.ExtContext) error {
		strategy, err := b.Strategies.Insert(ctx, tx, map[string]interface{}{
			"title":                  "rolled back",
			"status":                 "active",
			"strategy_template_name": "NoOp",
		})
		if err != nil {
			return err
		}
		if err := b.StrategySymbols.Replace(ctx, tx, strategy.ID, []int64{symbol.ID}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	page, err := b.Strategies.FindMany(ctx, nil, model.Filter{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.False(t, b.StrategySymbols.references(symbolColumn, symbol.ID))
}

func TestDeactivateSiblings(t *testing.T) {
	ctx := context.Background()
	b := NewBackend(zap.NewNop())
	strategy := newStrategy(t, b, "s")

	var ids []int64
	for i := 0; i < 3; i++ {
		row, err := b.Schemes.Insert(ctx, nil, map[string]interface{}{
			"strategy_id":        strategy.ID,
			"status":             "active",
			"buy_at_percentile":  decimal.NewFromInt(10),
			"sell_at_percentile": decimal.NewFromInt(90),
			"timeframe_in_days":  30,
		})
		require.NoError(t, err)
		ids = append(ids, row.ID)
	}

	changed, err := b.Schemes.DeactivateSiblings(ctx, nil, strategy.ID, ids[1])
	require.NoError(t, err)
	assert.Equal(t, int64(2), changed)

	kept, err := b.Schemes.Find(ctx, nil, ids[1])
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, kept.Status)
}

func TestDeleteBefore(t *testing.T) {
	ctx := context.Background()
	b := NewBackend(zap.NewNop())
	strategy := newStrategy(t, b, "s")

	for _, ts := range []int64{10, 20, 30} {
		_, err := b.StrategyLogs.Insert(ctx, nil, map[string]interface{}{
			"strategy_id": strategy.ID,
			"level":       "info",
			"message":     "tick",
			"timestamp":   ts,
		})
		require.NoError(t, err)
	}

	removed, err := b.StrategyLogs.DeleteBefore(ctx, nil, 25)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	_, err = b.Strategies.DeleteBefore(ctx, nil, 25)
	assert.Error(t, err)
}

func TestCheckConstraint(t *testing.T) {
	b := NewBackend(zap.NewNop())
	strategy := newStrategy(t, b, "s")

	_, err := b.Schemes.Insert(context.Background(), nil, map[string]interface{}{
		"strategy_id":        strategy.ID,
		"status":             "inactive",
		"buy_at_percentile":  decimal.NewFromInt(80),
		"sell_at_percentile": decimal.NewFromInt(20),
		"timeframe_in_days":  30,
	})

	var conflict *apperr.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "sea_dog_discount_schemes_percentile_order", conflict.Constraint)
}

func TestReadsWaitForOpenTransaction(t *testing.T) {
	ctx := context.Background()
	b := NewBackend(zap.NewNop())

	inserted := make(chan struct{})
	release := make(chan struct{})
	txDone := make(chan error, 1)
	go func() {
		txDone <- b.DB.InTx(ctx, func(tx sqlx.ExtContext) error {
			if _, err := b.Strategies.Insert(ctx, tx, map[string]interface{}{
				"title":                  "uncommitted",
				"status":                 "active",
				"strategy_template_name": "NoOp",
			}); err != nil {
				return err
			}
			close(inserted)
			<-release
			return errors.New("abort")
		})
	}()
	<-inserted

	type result struct {
		row  *model.Strategy
		page model.Page[model.Strategy]
		err  error
	}
	read := make(chan result, 1)
	go func() {
		row, err := b.Strategies.Find(ctx, b.DB.Conn(), 1)
		page, _ := b.Strategies.FindMany(ctx, b.DB.Conn(), model.Filter{})
		read <- result{row: row, page: page, err: err}
	}()

	select {
	case r := <-read:
		t.Fatalf("read returned while the batch was open: %+v", r)
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	require.Error(t, <-txDone)

	r := <-read
	assert.True(t, apperr.IsNotFound(r.err))
	assert.Nil(t, r.row)
	assert.Empty(t, r.page.Items)
}

func TestDeleteBeforeWaitsForOpenTransaction(t *testing.T) {
	ctx := context.Background()
	b := NewBackend(zap.NewNop())
	strategy := newStrategy(t, b, "s")
	_, err := b.StrategyLogs.Insert(ctx, nil, map[string]interface{}{
		"strategy_id": strategy.ID,
		"level":       "info",
		"message":     "old",
		"timestamp":   int64(1),
	})
	require.NoError(t, err)

	started := make(chan struct{})
	release := make(chan struct{})
	txDone := make(chan error, 1)
	go func() {
		txDone <- b.DB.InTx(ctx, func(tx sqlx.ExtContext) error {
			close(started)
			<-release
			return errors.New("abort")
		})
	}()
	<-started

	pruned := make(chan int64, 1)
	go func() {
		removed, _ := b.StrategyLogs.DeleteBefore(ctx, b.DB.Conn(), 10)
		pruned <- removed
	}()

	select {
	case <-pruned:
		t.Fatal("prune ran inside an open batch")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	require.Error(t, <-txDone)
	assert.Equal(t, int64(1), <-pruned)

	page, err := b.StrategyLogs.FindMany(ctx, nil, model.Filter{})
	require.NoError(t, err)
	assert.Empty(t, page.Items, "the prune is not undone by the rollback")
}
