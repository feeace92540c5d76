package handler

import (
	"context"
	"net/http"

	"github.com/yourorg/strategy-config/internal/apperr"
	"github.com/yourorg/strategy-config/internal/model"
	"github.com/yourorg/strategy-config/internal/service"
	"github.com/yourorg/strategy-config/internal/utils"
	"github.com/yourorg/strategy-config/internal/validator"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Resource is the service surface one handler drives
type Resource[R any] interface {
	Get(ctx context.Context, id int64) (R, error)
	List(ctx context.Context, filter model.Filter) (model.Page[R], error)
	Execute(ctx context.Context, items []service.BatchItem) ([]R, error)
}

// ResourceHandler exposes the uniform list/get/create/patch/put/delete surface
// of one entity. C is the full payload used by create and put, P the partial
// payload used by patch.
type ResourceHandler[R any, C model.Payload, P model.Payload] struct {
	entity    string
	resource  Resource[R]
	validator *validator.Validator
	filters   []QueryFilter
	logger    *zap.Logger
}

// NewResourceHandler creates a handler for one entity
func NewResourceHandler[R any, C model.Payload, P model.Payload](
	entity string,
	resource Resource[R],
	v *validator.Validator,
	filters []QueryFilter,
	logger *zap.Logger,
) *ResourceHandler[R, C, P] {
	return &ResourceHandler[R, C, P]{
		entity:    entity,
		resource:  resource,
		validator: v,
		filters:   filters,
		logger:    logger.With(zap.String("entity", entity)),
	}
}

// RegisterRoutes mounts every operation on group; mutate runs before each write
func (h *ResourceHandler[R, C, P]) RegisterRoutes(group *gin.RouterGroup, mutate ...gin.HandlerFunc) {
	h.RegisterImmutableRoutes(group, mutate...)
	group.PATCH("", chain(mutate, h.PatchMany)...)
	group.PATCH("/:id", chain(mutate, h.PatchByID)...)
	group.PUT("", chain(mutate, h.PutMany)...)
	group.PUT("/:id", chain(mutate, h.PutByID)...)
}

// RegisterImmutableRoutes mounts list, get, create and delete only
func (h *ResourceHandler[R, C, P]) RegisterImmutableRoutes(group *gin.RouterGroup, mutate ...gin.HandlerFunc) {
	group.GET("", h.List)
	group.GET("/:id", h.Get)
	group.POST("", chain(mutate, h.CreateMany)...)
	group.DELETE("", chain(mutate, h.DeleteMany)...)
	group.DELETE("/:id", chain(mutate, h.DeleteByID)...)
}

func chain(middleware []gin.HandlerFunc, handler gin.HandlerFunc) []gin.HandlerFunc {
	handlers := make([]gin.HandlerFunc, 0, len(middleware)+1)
	handlers = append(handlers, middleware...)
	return append(handlers, handler)
}

// List handles paginated, filtered listing
// GET /api/v1/{resource}
func (h *ResourceHandler[R, C, P]) List(c *gin.Context) {
	filter, err := parseFilter(c, h.filters)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	page, err := h.resource.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	utils.SendPaginatedResponse(c, http.StatusOK, "OK", page)
}

// Get handles fetching one row with its relations
// GET /api/v1/{resource}/:id
func (h *ResourceHandler[R, C, P]) Get(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	body, err := h.resource.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	utils.SendResponse(c, http.StatusOK, "OK", body)
}

// CreateMany handles creating a JSON array of rows in one transaction
// POST /api/v1/{resource}
func (h *ResourceHandler[R, C, P]) CreateMany(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		respondError(c, h.logger, apperr.NewValidationError("", "body", err.Error()))
		return
	}

	payloads, err := validator.DecodeList[C](h.validator, raw)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	items := make([]service.BatchItem, len(payloads))
	for i, payload := range payloads {
		items[i] = service.BatchItem{Op: service.OpCreate, Changes: payload.Changes()}
	}

	h.executeMany(c, http.StatusCreated, h.entity+" created", items)
}

// PatchMany handles partial updates of an array of {id, ...} objects
// PATCH /api/v1/{resource}
func (h *ResourceHandler[R, C, P]) PatchMany(c *gin.Context) {
	h.updateMany(c, service.OpPatch)
}

// PutMany handles full replacement of an array of {id, ...} objects
// PUT /api/v1/{resource}
func (h *ResourceHandler[R, C, P]) PutMany(c *gin.Context) {
	h.updateMany(c, service.OpPut)
}

func (h *ResourceHandler[R, C, P]) updateMany(c *gin.Context, op service.Operation) {
	raw, err := c.GetRawData()
	if err != nil {
		respondError(c, h.logger, apperr.NewValidationError("", "body", err.Error()))
		return
	}

	var items []service.BatchItem
	if op == service.OpPut {
		items, err = decodeIdentified[C](h.validator, raw, op)
	} else {
		items, err = decodeIdentified[P](h.validator, raw, op)
	}
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.executeMany(c, http.StatusOK, h.entity+" updated", items)
}

func decodeIdentified[T model.Payload](v *validator.Validator, raw []byte, op service.Operation) ([]service.BatchItem, error) {
	payloads, err := validator.DecodeIdentifiedList[T](v, raw)
	if err != nil {
		return nil, err
	}
	items := make([]service.BatchItem, len(payloads))
	for i, p := range payloads {
		items[i] = service.BatchItem{Op: op, ID: p.ID, Changes: p.Payload.Changes()}
	}
	return items, nil
}

// PatchByID handles a partial update of one row
// PATCH /api/v1/{resource}/:id
func (h *ResourceHandler[R, C, P]) PatchByID(c *gin.Context) {
	id, raw, ok := h.readByID(c)
	if !ok {
		return
	}

	payload, err := validator.DecodeOne[P](h.validator, raw)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.executeOne(c, http.StatusOK, h.entity+" updated", service.BatchItem{Op: service.OpPatch, ID: id, Changes: payload.Changes()})
}

// PutByID handles a full replacement of one row
// PUT /api/v1/{resource}/:id
func (h *ResourceHandler[R, C, P]) PutByID(c *gin.Context) {
	id, raw, ok := h.readByID(c)
	if !ok {
		return
	}

	payload, err := validator.DecodeOne[C](h.validator, raw)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.executeOne(c, http.StatusOK, h.entity+" updated", service.BatchItem{Op: service.OpPut, ID: id, Changes: payload.Changes()})
}

// DeleteMany handles deleting the rows named by the ids query parameter
// DELETE /api/v1/{resource}?ids=1,2
func (h *ResourceHandler[R, C, P]) DeleteMany(c *gin.Context) {
	ids, err := parseIDList(c.Query("ids"), "ids")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if len(ids) == 0 {
		respondError(c, h.logger, apperr.NewValidationError("ids", "required", "at least one id is required"))
		return
	}

	items := make([]service.BatchItem, len(ids))
	for i, id := range ids {
		items[i] = service.BatchItem{Op: service.OpDelete, ID: id}
	}

	h.executeMany(c, http.StatusOK, h.entity+" deleted", items)
}

// DeleteByID handles deleting one row
// DELETE /api/v1/{resource}/:id
func (h *ResourceHandler[R, C, P]) DeleteByID(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.executeOne(c, http.StatusOK, h.entity+" deleted", service.BatchItem{Op: service.OpDelete, ID: id})
}

func (h *ResourceHandler[R, C, P]) readByID(c *gin.Context) (int64, []byte, bool) {
	id, err := pathID(c)
	if err != nil {
		respondError(c, h.logger, err)
		return 0, nil, false
	}

	raw, err := c.GetRawData()
	if err != nil {
		respondError(c, h.logger, apperr.NewValidationError("", "body", err.Error()))
		return 0, nil, false
	}
	return id, raw, true
}

func (h *ResourceHandler[R, C, P]) executeMany(c *gin.Context, status int, message string, items []service.BatchItem) {
	bodies, err := h.resource.Execute(c.Request.Context(), items)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	utils.SendResponse(c, status, message, bodies)
}

func (h *ResourceHandler[R, C, P]) executeOne(c *gin.Context, status int, message string, item service.BatchItem) {
	bodies, err := h.resource.Execute(c.Request.Context(), []service.BatchItem{item})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	utils.SendResponse(c, status, message, bodies[0])
}
