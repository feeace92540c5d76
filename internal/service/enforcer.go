package service

import (
	"context"
	"fmt"

	"github.com/yourorg/strategy-config/internal/model"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// SiblingDeactivator demotes the other active schemes of a strategy
type SiblingDeactivator interface {
	DeactivateSiblings(ctx context.Context, q sqlx.ExtContext, strategyID, exceptID int64) (int64, error)
}

// ActiveSchemeEnforcer keeps at most one active SeaDogDiscountScheme per
// strategy. It never rejects a write: activating a scheme demotes the others.
type ActiveSchemeEnforcer struct {
	schemes SiblingDeactivator
	logger  *zap.Logger
}

// NewActiveSchemeEnforcer creates a new enforcer
func NewActiveSchemeEnforcer(schemes SiblingDeactivator, logger *zap.Logger) *ActiveSchemeEnforcer {
	return &ActiveSchemeEnforcer{
		schemes: schemes,
		logger:  logger,
	}
}

// AfterCreate demotes siblings when the new scheme is active
func (e *ActiveSchemeEnforcer) AfterCreate(ctx context.Context, tx sqlx.ExtContext, row *model.SeaDogDiscountScheme) error {
	if row.Status != model.StatusActive {
		return nil
	}
	return e.demote(ctx, tx, row.StrategyID, row.ID)
}

// BeforeUpdate demotes the siblings of the target strategy when the update
// leaves the scheme active and either activates it or moves it to another strategy
func (e *ActiveSchemeEnforcer) BeforeUpdate(ctx context.Context, tx sqlx.ExtContext, current *model.SeaDogDiscountScheme, cols map[string]interface{}) error {
	status := current.Status
	if v, ok := cols["status"]; ok {
		status = model.Status(fmt.Sprint(v))
	}
	if status != model.StatusActive {
		return nil
	}

	strategyID := current.StrategyID
	if v, ok := cols["strategy_id"]; ok {
		id, ok := v.(int64)
		if !ok {
			return fmt.Errorf("strategy_id must be int64, got %T", v)
		}
		strategyID = id
	}

	activating := current.Status != model.StatusActive
	moving := strategyID != current.StrategyID
	if !activating && !moving {
		return nil
	}
	return e.demote(ctx, tx, strategyID, current.ID)
}

func (e *ActiveSchemeEnforcer) demote(ctx context.Context, tx sqlx.ExtContext, strategyID, schemeID int64) error {
	demoted, err := e.schemes.DeactivateSiblings(ctx, tx, strategyID, schemeID)
	if err != nil {
		return err
	}
	if demoted > 0 {
		e.logger.Debug("Demoted sibling schemes",
			zap.Int64("strategy_id", strategyID),
			zap.Int64("active_scheme_id", schemeID),
			zap.Int64("demoted", demoted))
	}
	return nil
}
