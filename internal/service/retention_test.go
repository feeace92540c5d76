package service

import (
	"context"
	"testing"
	"time"

	"github.com/yourorg/strategy-config/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRetentionPrunesOldLogs(t *testing.T) {
	h := newHarness(t, nil)
	strategy := h.strategy(t, "s", nil)

	for _, age := range []time.Duration{48 * time.Hour, 2 * time.Hour} {
		h.processor.now = func() time.Time { return fixedNow.Add(-age) }
		_, err := h.resources.StrategyLogs.Execute(context.Background(), []BatchItem{{
			Op:      OpCreate,
			Changes: model.StrategyLogCreate{StrategyID: strategy.ID, Level: model.LevelInfo, Message: "tick"}.Changes(),
		}})
		require.NoError(t, err)
	}

	retention := NewRetention(h.backend.DB, h.backend.StrategyLogs, 24*time.Hour, time.Second, zap.NewNop())
	retention.now = func() time.Time { return fixedNow }

	removed, err := retention.Prune(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	page, err := h.resources.StrategyLogs.List(context.Background(), model.Filter{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, fixedNow.Add(-2*time.Hour).UnixMilli(), page.Items[0].Timestamp)
}

func TestRetentionScheduleRejectsBadSpec(t *testing.T) {
	h := newHarness(t, nil)
	retention := NewRetention(h.backend.DB, h.backend.StrategyLogs, time.Hour, time.Second, zap.NewNop())

	assert.Error(t, retention.Schedule("not a cron spec"))
	assert.NoError(t, retention.Schedule("0 */10 * * * *"))

	retention.Start()
	retention.Stop()
}

func TestSchemeCredentials(t *testing.T) {
	h := newHarness(t, nil)
	strategy := h.strategy(t, "s", nil)

	created, err := h.resources.Schemes.Execute(context.Background(), []BatchItem{
		createScheme(strategy.ID, model.StatusActive, nil),
	})
	require.NoError(t, err)

	stored, err := h.backend.Schemes.Find(context.Background(), nil, created[0].ID)
	require.NoError(t, err)
	assert.NotEqual(t, "top-secret", stored.BrokerAPISecret, "secret is sealed at rest")

	key, secret, err := h.resources.Credentials.Credentials(context.Background(), created[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "key", key)
	assert.Equal(t, "top-secret", secret)

	rotated := "rotated"
	_, err = h.resources.Schemes.Execute(context.Background(), []BatchItem{
		patch(created[0].ID, model.SeaDogDiscountSchemePatch{BrokerAPISecret: &rotated}),
	})
	require.NoError(t, err)

	_, secret, err = h.resources.Credentials.Credentials(context.Background(), created[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "rotated", secret)
}
