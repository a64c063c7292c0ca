package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nimeshabuddhika/vending-kiosk/pkg"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type BaseHandler struct {
	logger *zap.Logger
}

func NewBaseHandler(logger *zap.Logger) *BaseHandler {
	return &BaseHandler{logger: logger}
}

func (b *BaseHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", b.GetHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// GetHealth godoc
// @Summary Liveness probe
// @Tags base
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (b *BaseHandler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// writeError renders err in the shared error format.
func writeError(c *gin.Context, logger *zap.Logger, traceID string, err error) {
	resp := pkg.ToErrorResponse(logger, traceID, err)
	c.JSON(resp.Status, resp)
}

// writeBindError reports a malformed body as 400 with the binder's reason.
func writeBindError(c *gin.Context, logger *zap.Logger, traceID string, err error) {
	writeError(c, logger, traceID, pkg.NewAppError(pkg.ErrInvalidInputCode, "invalid request body", err))
}
