package service

import (
	"context"
	"fmt"
	"time"

	"github.com/yourorg/strategy-config/internal/model"
	"github.com/yourorg/strategy-config/internal/response"
	"github.com/yourorg/strategy-config/internal/secret"

	"go.uber.org/zap"
)

// SchemeStore is the scheme table plus sibling demotion
type SchemeStore interface {
	Store[model.SeaDogDiscountScheme]
	SiblingDeactivator
}

// Stores is the storage backing every resource
type Stores struct {
	Strategies      Store[model.Strategy]
	StrategySymbols Associations
	Symbols         Store[model.Symbol]
	Schemes         SchemeStore
	SchemeSymbols   Associations
	Orders          Store[model.Order]
	Positions       Store[model.Position]
	StrategyLogs    Store[model.StrategyLog]
	StrategyValues  Store[model.StrategyValue]
}

// Resources is every entity exposed by the service
type Resources struct {
	Strategies     *Resource[model.Strategy, response.StrategyBody]
	Symbols        *Resource[model.Symbol, response.SymbolBody]
	Schemes        *Resource[model.SeaDogDiscountScheme, response.SchemeBody]
	Orders         *Resource[model.Order, response.OrderBody]
	Positions      *Resource[model.Position, response.PositionBody]
	StrategyLogs   *Resource[model.StrategyLog, response.StrategyLogBody]
	StrategyValues *Resource[model.StrategyValue, response.StrategyValueBody]
	Credentials    *SchemeCredentials
}

// NewResources wires every entity to its store, relation, invariant and assembler
func NewResources(p *BatchProcessor, stores Stores, assembler *response.Assembler, box *secret.Box, logger *zap.Logger) *Resources {
	return &Resources{
		Strategies: NewResource(p, ResourceConfig[model.Strategy, response.StrategyBody]{
			Entity:  "Strategy",
			Store:   stores.Strategies,
			Symbols: stores.StrategySymbols,
			Prepare: stampCreatedAt,
			Assemble: func(row model.Strategy, symbols []model.Symbol) (response.StrategyBody, error) {
				return assembler.Strategy(model.StrategyGraph{Strategy: row, Symbols: symbols})
			},
		}),
		Symbols: NewResource(p, ResourceConfig[model.Symbol, response.SymbolBody]{
			Entity:  "Symbol",
			Store:   stores.Symbols,
			Prepare: stampCreatedAt,
			Assemble: func(row model.Symbol, _ []model.Symbol) (response.SymbolBody, error) {
				return assembler.Symbol(row)
			},
		}),
		Schemes: NewResource(p, ResourceConfig[model.SeaDogDiscountScheme, response.SchemeBody]{
			Entity:   "SeaDogDiscountScheme",
			Store:    stores.Schemes,
			Symbols:  stores.SchemeSymbols,
			Enforcer: NewActiveSchemeEnforcer(stores.Schemes, logger),
			Prepare:  sealBrokerSecret(box),
			Assemble: func(row model.SeaDogDiscountScheme, symbols []model.Symbol) (response.SchemeBody, error) {
				return assembler.Scheme(model.SchemeGraph{SeaDogDiscountScheme: row, Symbols: symbols})
			},
		}),
		Orders: NewResource(p, ResourceConfig[model.Order, response.OrderBody]{
			Entity:  "Order",
			Store:   stores.Orders,
			Prepare: stampCreatedAt,
			Assemble: func(row model.Order, _ []model.Symbol) (response.OrderBody, error) {
				return assembler.Order(row)
			},
		}),
		Positions: NewResource(p, ResourceConfig[model.Position, response.PositionBody]{
			Entity:  "Position",
			Store:   stores.Positions,
			Prepare: stampCreatedAt,
			Assemble: func(row model.Position, _ []model.Symbol) (response.PositionBody, error) {
				return assembler.Position(row)
			},
		}),
		StrategyLogs: NewResource(p, ResourceConfig[model.StrategyLog, response.StrategyLogBody]{
			Entity:  "StrategyLog",
			Store:   stores.StrategyLogs,
			Prepare: stampTimestamp,
			Assemble: func(row model.StrategyLog, _ []model.Symbol) (response.StrategyLogBody, error) {
				return assembler.StrategyLog(row)
			},
		}),
		StrategyValues: NewResource(p, ResourceConfig[model.StrategyValue, response.StrategyValueBody]{
			Entity:  "StrategyValue",
			Store:   stores.StrategyValues,
			Prepare: stampTimestamp,
			Assemble: func(row model.StrategyValue, _ []model.Symbol) (response.StrategyValueBody, error) {
				return assembler.StrategyValue(row)
			},
		}),
		Credentials: NewSchemeCredentials(p.db, stores.Schemes, box),
	}
}

// stampCreatedAt sets the creation time of new rows
func stampCreatedAt(op Operation, cols map[string]interface{}, now time.Time) error {
	if op == OpCreate {
		cols["created_at"] = now.UTC()
	}
	return nil
}

// stampTimestamp sets the millisecond timestamp of new time-series rows
func stampTimestamp(op Operation, cols map[string]interface{}, now time.Time) error {
	if op == OpCreate {
		cols["timestamp"] = now.UnixMilli()
	}
	return nil
}

// sealBrokerSecret replaces a plaintext broker secret with its sealed form
func sealBrokerSecret(box *secret.Box) Prepare {
	return func(op Operation, cols map[string]interface{}, now time.Time) error {
		v, ok := cols["broker_api_secret"]
		if !ok {
			return nil
		}
		plain, ok := v.(string)
		if !ok {
			return fmt.Errorf("broker_api_secret must be a string, got %T", v)
		}

		sealed, err := box.Seal(plain)
		if err != nil {
			return err
		}
		cols["broker_api_secret"] = sealed
		return nil
	}
}

// SchemeCredentials hands the broker credentials of a scheme to the strategy runner
type SchemeCredentials struct {
	db    Transactor
	store Store[model.SeaDogDiscountScheme]
	box   *secret.Box
}

// NewSchemeCredentials creates a credentials reader
func NewSchemeCredentials(db Transactor, store Store[model.SeaDogDiscountScheme], box *secret.Box) *SchemeCredentials {
	return &SchemeCredentials{
		db:    db,
		store: store,
		box:   box,
	}
}

// Credentials returns the API key and the opened API secret of a scheme
func (c *SchemeCredentials) Credentials(ctx context.Context, schemeID int64) (string, string, error) {
	scheme, err := c.store.Find(ctx, c.db.Conn(), schemeID)
	if err != nil {
		return "", "", err
	}

	plain, err := c.box.Open(scheme.BrokerAPISecret)
	if err != nil {
		return "", "", fmt.Errorf("failed to open broker secret of scheme %d: %w", schemeID, err)
	}
	return scheme.BrokerAPIKey, plain, nil
}
