package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cocopet/backend/internal/domain"
	"github.com/cocopet/backend/internal/usecase"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	parser *usecase.Parser
	index  *usecase.CatalogIndex
	source domain.CatalogSource
	cache  domain.CacheRepository
	logger *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(parser *usecase.Parser, index *usecase.CatalogIndex, source domain.CatalogSource, cache domain.CacheRepository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		parser: parser,
		index:  index,
		source: source,
		cache:  cache,
		logger: logger,
	}
}

// ParseOrderRequest is the body of a parse request
type ParseOrderRequest struct {
	Message string `json:"message"`
}

// ParseOrderResponse pairs the parsed order with its validation report
type ParseOrderResponse struct {
	RequestID  string                  `json:"requestId"`
	Order      domain.ParsedOrder      `json:"order"`
	Validation domain.ValidationReport `json:"validation"`
}

// ParseOrder converts a raw chat message into a structured order
func (h *Handler) ParseOrder(c *gin.Context) {
	var req ParseOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid request body: expected {\"message\": \"...\"}",
		})
		return
	}
	if req.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "message is required",
		})
		return
	}

	order, validation := h.parser.Parse(c.Request.Context(), req.Message)

	requestID := RequestIDFromContext(c)
	order.Metadata.MessageID = requestID

	c.JSON(http.StatusOK, ParseOrderResponse{
		RequestID:  requestID,
		Order:      order,
		Validation: validation,
	})
}

// RefreshCatalog pulls the active-product list from the catalog source and
// swaps the matching index.
func (h *Handler) RefreshCatalog(c *gin.Context) {
	if h.source == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "no catalog source configured",
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	products, err := h.source.ActiveProducts(ctx)
	if err != nil {
		h.logger.Error("catalog refresh failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{
			"error": "catalog source unavailable",
		})
		return
	}

	h.index.Refresh(products)
	c.JSON(http.StatusOK, gin.H{
		"status":   "refreshed",
		"products": len(products),
	})
}

// sizer is implemented by caches that can report their entry count
type sizer interface {
	Size() int
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	resp := gin.H{
		"status":           "healthy",
		"service":          "cocopet-backend",
		"version":          "1.0.0",
		"catalog_products": h.index.Size(),
	}
	if s, ok := h.cache.(sizer); ok {
		resp["cached_entries"] = s.Size()
	}
	c.JSON(http.StatusOK, resp)
}
