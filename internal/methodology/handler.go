package methodology

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"carbonos/carbon-engine-backend/internal/auth"
)

// Handler handles HTTP requests for the methodology engine
type Handler struct {
	engine   *Engine
	registry *Registry
	logger   *zap.Logger
}

// NewHandler creates a new methodology handler
func NewHandler(engine *Engine, registry *Registry, logger *zap.Logger) *Handler {
	return &Handler{
		engine:   engine,
		registry: registry,
		logger:   logger,
	}
}

// RegisterRoutes registers methodology routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	methodology := router.Group("/methodology")
	{
		methodology.GET("/versions", h.listVersions)
		methodology.GET("/versions/:id/:version", h.getVersion)
		methodology.POST("/calculate", h.calculate)
		methodology.GET("/calculations", h.listCalculations)
	}
}

// listVersions handles GET /api/v1/methodology/versions
func (h *Handler) listVersions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"versions": h.registry.List()})
}

// getVersion handles GET /api/v1/methodology/versions/:id/:version
func (h *Handler) getVersion(c *gin.Context) {
	v, err := h.registry.Get(c.Param("id"), c.Param("version"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, v)
}

type calculateRequest struct {
	MethodologyID string           `json:"methodology_id"`
	Version       string           `json:"version"`
	Input         CalculationInput `json:"input"`
}

// calculate handles POST /api/v1/methodology/calculate
func (h *Handler) calculate(c *gin.Context) {
	actor, err := auth.ActorFrom(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	var req calculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.MethodologyID == "" {
		req.MethodologyID = DefaultID
	}
	if req.Version == "" {
		req.Version = DefaultVersionTag
	}

	calc, err := h.engine.CalculateReductions(c.Request.Context(), req.MethodologyID, req.Version, req.Input, actor)
	if err != nil {
		var vErr *ValidationError
		switch {
		case errors.As(err, &vErr):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": vErr.Error(), "field": vErr.Field})
		case errors.Is(err, ErrVersionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		default:
			h.logger.Error("Failed to calculate reductions", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"calculation": calc,
		"breakdown":   calc.Breakdown(),
	})
}

// listCalculations handles GET /api/v1/methodology/calculations
func (h *Handler) listCalculations(c *gin.Context) {
	actor, err := auth.ActorFrom(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	calcs, err := h.engine.ListCalculations(c.Request.Context(), actor)
	if err != nil {
		h.logger.Error("Failed to list calculations", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"calculations": calcs})
}
