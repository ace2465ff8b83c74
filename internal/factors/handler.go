package factors

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for factor resolution
type Handler struct {
	resolver *Resolver
	logger   *zap.Logger
}

// NewHandler creates a new factors handler
func NewHandler(resolver *Resolver, logger *zap.Logger) *Handler {
	return &Handler{
		resolver: resolver,
		logger:   logger,
	}
}

// RegisterRoutes registers factor routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	factors := router.Group("/factors")
	{
		factors.GET("/search", h.search)
		factors.POST("/calculate", h.calculate)
		factors.DELETE("/cache/:activity", h.invalidate)
	}
}

// search handles GET /api/v1/factors/search
func (h *Handler) search(c *gin.Context) {
	query := SearchQuery{
		Activity: c.Query("activity"),
		Category: c.Query("category"),
		Limit:    h.getIntParam(c, "limit", 20),
		Offset:   h.getIntParam(c, "offset", 0),
	}
	if query.Activity == "" && query.Category == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "activity or category is required"})
		return
	}

	factors, err := h.resolver.Search(c.Request.Context(), query)
	if err != nil {
		h.logger.Error("Failed to search factors", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"factors": factors, "count": len(factors)})
}

// calculate handles POST /api/v1/factors/calculate
func (h *Handler) calculate(c *gin.Context) {
	var req struct {
		Activity string  `json:"activity" binding:"required"`
		Quantity float64 `json:"quantity" binding:"required"`
		Unit     string  `json:"unit" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Quantity < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quantity must be non-negative"})
		return
	}

	calc, err := h.resolver.Calculate(c.Request.Context(), req.Activity, req.Quantity, req.Unit)
	if err != nil {
		if errors.Is(err, ErrNoFactor) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Failed to calculate emissions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, calc)
}

// invalidate handles DELETE /api/v1/factors/cache/:activity
func (h *Handler) invalidate(c *gin.Context) {
	h.resolver.InvalidateActivity(c.Param("activity"))
	c.JSON(http.StatusOK, gin.H{"status": "invalidated"})
}

// getIntParam gets an integer query parameter with a default value
func (h *Handler) getIntParam(c *gin.Context, key string, defaultVal int) int {
	if val := c.Query(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
