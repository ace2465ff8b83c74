package emissions

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"carbonos/carbon-engine-backend/internal/auth"
)

// Handler handles HTTP requests for the emission ledger
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new emissions handler
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers emission ledger routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	records := router.Group("/emissions")
	{
		records.POST("", h.createRecord)
		records.GET("/:id", h.getRecord)
		records.POST("/:id/items", h.addLineItem)
		records.DELETE("/items/:itemId", h.removeLineItem)
		records.POST("/:id/status", h.transitionStatus)
	}
}

// createRecord handles POST /api/v1/emissions
func (h *Handler) createRecord(c *gin.Context) {
	actor, err := auth.ActorFrom(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	var req CreateRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record, err := h.service.CreateRecord(c.Request.Context(), req, actor)
	if err != nil {
		h.respondError(c, err, "Failed to create emission record")
		return
	}

	c.JSON(http.StatusCreated, record)
}

// getRecord handles GET /api/v1/emissions/:id
func (h *Handler) getRecord(c *gin.Context) {
	actor, err := auth.ActorFrom(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid record ID"})
		return
	}

	record, err := h.service.GetRecord(c.Request.Context(), id, actor)
	if err != nil {
		h.respondError(c, err, "Failed to get emission record")
		return
	}

	c.JSON(http.StatusOK, record)
}

// addLineItem handles POST /api/v1/emissions/:id/items
func (h *Handler) addLineItem(c *gin.Context) {
	actor, err := auth.ActorFrom(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid record ID"})
		return
	}

	var req LineItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	totals, err := h.service.AddLineItem(c.Request.Context(), id, req, actor)
	if err != nil {
		h.respondError(c, err, "Failed to add line item")
		return
	}

	c.JSON(http.StatusCreated, totals)
}

// removeLineItem handles DELETE /api/v1/emissions/items/:itemId
func (h *Handler) removeLineItem(c *gin.Context) {
	actor, err := auth.ActorFrom(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	id, err := uuid.Parse(c.Param("itemId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid line item ID"})
		return
	}

	totals, err := h.service.RemoveLineItem(c.Request.Context(), id, actor)
	if err != nil {
		h.respondError(c, err, "Failed to remove line item")
		return
	}

	c.JSON(http.StatusOK, totals)
}

// transitionStatus handles POST /api/v1/emissions/:id/status
func (h *Handler) transitionStatus(c *gin.Context) {
	actor, err := auth.ActorFrom(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid record ID"})
		return
	}

	var req struct {
		Status RecordStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record, err := h.service.TransitionStatus(c.Request.Context(), id, req.Status, actor)
	if err != nil {
		h.respondError(c, err, "Failed to transition emission record")
		return
	}

	c.JSON(http.StatusOK, record)
}

// respondError maps ledger errors onto HTTP statuses.
func (h *Handler) respondError(c *gin.Context, err error, logMsg string) {
	var vErr *ValidationError
	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": vErr.Error(), "field": vErr.Field})
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, ErrRecordImmutable):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, ErrDuplicatePeriod):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.logger.Error(logMsg, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
