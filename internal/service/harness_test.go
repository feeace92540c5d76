package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/yourorg/strategy-config/internal/events"
	"github.com/yourorg/strategy-config/internal/model"
	"github.com/yourorg/strategy-config/internal/repository/memory"
	"github.com/yourorg/strategy-config/internal/response"
	"github.com/yourorg/strategy-config/internal/secret"
	"github.com/yourorg/strategy-config/internal/validator"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.BatchCommitted
	err    error
}

func (p *recordingPublisher) PublishBatch(ctx context.Context, event events.BatchCommitted) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

type observation struct {
	entity  string
	outcome string
	items   int
}

type recordingRecorder struct {
	mu  sync.Mutex
	obs []observation
}

func (r *recordingRecorder) ObserveBatch(entity, outcome string, items int, elapsed time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.obs = append(r.obs, observation{entity: entity, outcome: outcome, items: items})
}

type harness struct {
	backend   *memory.Backend
	processor *BatchProcessor
	resources *Resources
	publisher *recordingPublisher
	recorder  *recordingRecorder
	box       *secret.Box
}

func defaultStores(b *memory.Backend) Stores {
	return Stores{
		Strategies:      b.Strategies,
		StrategySymbols: b.StrategySymbols,
		Symbols:         b.Symbols,
		Schemes:         b.Schemes,
		SchemeSymbols:   b.SchemeSymbols,
		Orders:          b.Orders,
		Positions:       b.Positions,
		StrategyLogs:    b.StrategyLogs,
		StrategyValues:  b.StrategyValues,
	}
}

// newHarness wires resources over a fresh in-memory backend. edit may swap
// stores or the transactor before wiring.
func newHarness(t *testing.T, edit func(stores *Stores, db *Transactor)) *harness {
	t.Helper()

	backend := memory.NewBackend(zap.NewNop())
	stores := defaultStores(backend)
	var db Transactor = backend.DB
	if edit != nil {
		edit(&stores, &db)
	}

	box, err := secret.NewBox("test passphrase")
	require.NoError(t, err)

	publisher := &recordingPublisher{}
	recorder := &recordingRecorder{}
	processor := NewBatchProcessor(db, publisher, recorder, zap.NewNop())
	processor.now = func() time.Time { return fixedNow }

	assembler := response.NewAssembler(validator.New(), zap.NewNop())

	return &harness{
		backend:   backend,
		processor: processor,
		resources: NewResources(processor, stores, assembler, box, zap.NewNop()),
		publisher: publisher,
		recorder:  recorder,
		box:       box,
	}
}

func (h *harness) symbols(t *testing.T, names ...string) []int64 {
	t.Helper()
	items := make([]BatchItem, len(names))
	for i, name := range names {
		items[i] = BatchItem{Op: OpCreate, Changes: model.SymbolCreate{Name: name}.Changes()}
	}
	bodies, err := h.resources.Symbols.Execute(context.Background(), items)
	require.NoError(t, err)

	ids := make([]int64, len(bodies))
	for i, body := range bodies {
		ids[i] = body.ID
	}
	return ids
}

func (h *harness) strategy(t *testing.T, title string, symbolIDs []int64) response.StrategyBody {
	t.Helper()
	bodies, err := h.resources.Strategies.Execute(context.Background(), []BatchItem{
		createStrategy(title, symbolIDs),
	})
	require.NoError(t, err)
	return bodies[0]
}

func createStrategy(title string, symbolIDs []int64) BatchItem {
	return BatchItem{Op: OpCreate, Changes: model.StrategyCreate{
		Title:                title,
		Status:               model.StatusActive,
		StrategyTemplateName: model.TemplateSeaDogDiscountScheme,
		SymbolIDs:            symbolIDs,
	}.Changes()}
}

func createScheme(strategyID int64, status model.Status, symbolIDs []int64) BatchItem {
	return BatchItem{Op: OpCreate, Changes: model.SeaDogDiscountSchemeCreate{
		StrategyID:         strategyID,
		Status:             status,
		BuyAtPercentile:    decimal.NewFromInt(10),
		SellAtPercentile:   decimal.NewFromInt(90),
		MinimumGainPercent: decimal.NewFromInt(2),
		TimeframeInDays:    30,
		BrokerAPIKey:       "key",
		BrokerAPISecret:    "top-secret",
		SymbolIDs:          symbolIDs,
	}.Changes()}
}

func patch(id int64, payload model.Payload) BatchItem {
	return BatchItem{Op: OpPatch, ID: id, Changes: payload.Changes()}
}

func statusPtr(s model.Status) *model.Status {
	return &s
}
