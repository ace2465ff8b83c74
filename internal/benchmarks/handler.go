package benchmarks

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"carbonos/carbon-engine-backend/internal/auth"
	"carbonos/carbon-engine-backend/internal/companies"
)

// Handler handles HTTP requests for benchmarking
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new benchmarks handler
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers benchmark routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	benchmarks := router.Group("/benchmarks")
	{
		benchmarks.GET("/sector", h.sectorBenchmark)
		benchmarks.GET("/trends", h.emissionTrends)
		benchmarks.GET("/recommendations", h.recommendations)
	}
}

// sectorBenchmark handles GET /api/v1/benchmarks/sector
func (h *Handler) sectorBenchmark(c *gin.Context) {
	actor, err := auth.ActorFrom(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	year := 0
	if raw := c.Query("year"); raw != "" {
		year, err = strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid year"})
			return
		}
	}

	benchmark, err := h.service.SectorBenchmark(c.Request.Context(), actor, year)
	if err != nil {
		h.respondError(c, err, "Failed to compute sector benchmark")
		return
	}

	c.JSON(http.StatusOK, benchmark)
}

// emissionTrends handles GET /api/v1/benchmarks/trends
func (h *Handler) emissionTrends(c *gin.Context) {
	actor, err := auth.ActorFrom(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	trends, err := h.service.EmissionTrends(c.Request.Context(), actor)
	if err != nil {
		h.respondError(c, err, "Failed to compute emission trends")
		return
	}

	c.JSON(http.StatusOK, trends)
}

// recommendations handles GET /api/v1/benchmarks/recommendations
func (h *Handler) recommendations(c *gin.Context) {
	actor, err := auth.ActorFrom(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	report, err := h.service.Recommendations(c.Request.Context(), actor)
	if err != nil {
		h.respondError(c, err, "Failed to derive recommendations")
		return
	}

	c.JSON(http.StatusOK, report)
}

func (h *Handler) respondError(c *gin.Context, err error, logMsg string) {
	switch {
	case errors.Is(err, ErrNoValidatedData), errors.Is(err, companies.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		h.logger.Error(logMsg, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
