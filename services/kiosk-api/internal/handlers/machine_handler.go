package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nimeshabuddhika/vending-kiosk/pkg"
	"github.com/nimeshabuddhika/vending-kiosk/services/kiosk-api/internal/services"
	"github.com/nimeshabuddhika/vending-kiosk/services/kiosk-api/internal/views"
	"go.uber.org/zap"
)

type MachineHandler struct {
	logger  *zap.Logger
	service services.RedemptionService
}

func NewMachineHandler(logger *zap.Logger, svc services.RedemptionService) *MachineHandler {
	return &MachineHandler{logger: logger, service: svc}
}

func (h *MachineHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/redeem", h.Redeem)
}

// Redeem godoc
// @Summary Consume an OTP at a vending machine
// @Tags machine
// @Accept json
// @Produce json
// @Param X-Machine-Key header string true "Machine API key"
// @Param request body views.RedeemRequest true "OTP"
// @Success 200 {object} views.RedeemResponse
// @Failure 400 {object} pkg.ErrorResponse
// @Failure 401 {object} pkg.ErrorResponse
// @Failure 404 {object} pkg.ErrorResponse
// @Failure 409 {object} pkg.ErrorResponse
// @Failure 410 {object} pkg.ErrorResponse
// @Router /machine/redeem [post]
func (h *MachineHandler) Redeem(c *gin.Context) {
	traceID := c.GetString(pkg.TraceId)

	// A broken body must not answer 400 before the credential is checked,
	// so it is treated as an empty code and the service decides.
	var req views.RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		req.Otp = ""
	}

	order, err := h.service.Redeem(c.Request.Context(), traceID, c.GetHeader(pkg.HeaderMachineKey), req.Otp)
	if err != nil {
		writeError(c, h.logger, traceID, err)
		return
	}
	c.JSON(http.StatusOK, views.RedeemResponse{ItemID: order.ItemID, OrderID: order.ID.String()})
}
