package handler

import (
	"github.com/yourorg/strategy-config/internal/model"
	"github.com/yourorg/strategy-config/internal/response"
	"github.com/yourorg/strategy-config/internal/service"
	"github.com/yourorg/strategy-config/internal/validator"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var (
	statusFilter     = QueryFilter{Param: "status", Column: "status"}
	strategyIDFilter = QueryFilter{Param: "strategyId", Column: "strategy_id", Numeric: true}
	symbolIDFilter   = QueryFilter{Param: "symbolId", Column: "symbol_id", Numeric: true}
)

// RegisterRoutes mounts every entity under api. mutate guards every write
// (authentication, cache invalidation).
func RegisterRoutes(api *gin.RouterGroup, resources *service.Resources, v *validator.Validator, logger *zap.Logger, mutate ...gin.HandlerFunc) {
	NewResourceHandler[response.StrategyBody, model.StrategyCreate, model.StrategyPatch](
		"Strategy", resources.Strategies, v,
		[]QueryFilter{statusFilter, {Param: "strategyTemplateName", Column: "strategy_template_name"}},
		logger,
	).RegisterRoutes(api.Group("/strategies"), mutate...)

	NewResourceHandler[response.SymbolBody, model.SymbolCreate, model.SymbolCreate](
		"Symbol", resources.Symbols, v,
		[]QueryFilter{{Param: "name", Column: "name"}},
		logger,
	).RegisterImmutableRoutes(api.Group("/symbols"), mutate...)

	NewResourceHandler[response.SchemeBody, model.SeaDogDiscountSchemeCreate, model.SeaDogDiscountSchemePatch](
		"SeaDogDiscountScheme", resources.Schemes, v,
		[]QueryFilter{strategyIDFilter, statusFilter},
		logger,
	).RegisterRoutes(api.Group("/sea-dog-discount-schemes"), mutate...)

	NewResourceHandler[response.OrderBody, model.OrderCreate, model.OrderPatch](
		"Order", resources.Orders, v,
		[]QueryFilter{strategyIDFilter, symbolIDFilter, {Param: "side", Column: "side"}, statusFilter},
		logger,
	).RegisterRoutes(api.Group("/orders"), mutate...)

	NewResourceHandler[response.PositionBody, model.PositionCreate, model.PositionPatch](
		"Position", resources.Positions, v,
		[]QueryFilter{strategyIDFilter, symbolIDFilter},
		logger,
	).RegisterRoutes(api.Group("/positions"), mutate...)

	NewResourceHandler[response.StrategyLogBody, model.StrategyLogCreate, model.StrategyLogPatch](
		"StrategyLog", resources.StrategyLogs, v,
		[]QueryFilter{strategyIDFilter, {Param: "level", Column: "level"}},
		logger,
	).RegisterRoutes(api.Group("/strategy-logs"), mutate...)

	NewResourceHandler[response.StrategyValueBody, model.StrategyValueCreate, model.StrategyValuePatch](
		"StrategyValue", resources.StrategyValues, v,
		[]QueryFilter{strategyIDFilter},
		logger,
	).RegisterRoutes(api.Group("/strategy-values"), mutate...)
}
