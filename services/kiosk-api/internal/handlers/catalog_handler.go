package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nimeshabuddhika/vending-kiosk/pkg"
	"github.com/nimeshabuddhika/vending-kiosk/services/kiosk-api/internal/services"
	"github.com/nimeshabuddhika/vending-kiosk/services/kiosk-api/internal/views"
	"go.uber.org/zap"
)

type CatalogHandler struct {
	logger  *zap.Logger
	service services.CatalogService
}

func NewCatalogHandler(logger *zap.Logger, svc services.CatalogService) *CatalogHandler {
	return &CatalogHandler{logger: logger, service: svc}
}

// RegisterRoutes registers the public catalog routes.
func (h *CatalogHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/items", h.ListItems)
	r.GET("/items/:id", h.GetItem)
}

// ListItems godoc
// @Summary List the catalog
// @Tags catalog
// @Produce json
// @Success 200 {object} views.ItemListResponse
// @Router /items [get]
func (h *CatalogHandler) ListItems(c *gin.Context) {
	traceID := c.GetString(pkg.TraceId)
	items, err := h.service.ListItems(c.Request.Context(), traceID)
	if err != nil {
		writeError(c, h.logger, traceID, err)
		return
	}
	c.JSON(http.StatusOK, views.ItemListResponse{Items: items})
}

// GetItem godoc
// @Summary Fetch one catalog item
// @Tags catalog
// @Produce json
// @Param id path string true "Item id"
// @Success 200 {object} models.Item
// @Failure 404 {object} pkg.ErrorResponse
// @Router /items/{id} [get]
func (h *CatalogHandler) GetItem(c *gin.Context) {
	traceID := c.GetString(pkg.TraceId)
	item, err := h.service.GetItem(c.Request.Context(), traceID, c.Param("id"))
	if err != nil {
		writeError(c, h.logger, traceID, err)
		return
	}
	c.JSON(http.StatusOK, item)
}
