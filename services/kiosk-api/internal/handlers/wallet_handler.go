package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nimeshabuddhika/vending-kiosk/pkg"
	"github.com/nimeshabuddhika/vending-kiosk/pkg/utils"
	"github.com/nimeshabuddhika/vending-kiosk/services/kiosk-api/internal/services"
	"github.com/nimeshabuddhika/vending-kiosk/services/kiosk-api/internal/views"
	"go.uber.org/zap"
)

type WalletHandler struct {
	logger  *zap.Logger
	service services.WalletService
}

func NewWalletHandler(logger *zap.Logger, svc services.WalletService) *WalletHandler {
	return &WalletHandler{logger: logger, service: svc}
}

func (h *WalletHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/wallet", h.GetBalance)
	r.POST("/wallet/top-up", h.TopUp)
	r.GET("/wallet/transactions", h.ListTransactions)
}

// GetBalance godoc
// @Summary Current wallet balance
// @Tags wallet
// @Produce json
// @Param X-User-Id header string true "Caller"
// @Success 200 {object} views.BalanceResponse
// @Router /wallet [get]
func (h *WalletHandler) GetBalance(c *gin.Context) {
	traceID := c.GetString(pkg.TraceId)
	userID, err := utils.GetUserID(c)
	if err != nil {
		writeError(c, h.logger, traceID, pkg.NewAppError(pkg.ErrUnauthorizedCode, "authentication required", err))
		return
	}
	wallet, err := h.service.GetBalance(c.Request.Context(), traceID, userID)
	if err != nil {
		writeError(c, h.logger, traceID, err)
		return
	}
	c.JSON(http.StatusOK, views.BalanceResponse{Balance: wallet.Balance.StringFixed(2)})
}

// TopUp godoc
// @Summary Credit the caller's wallet
// @Tags wallet
// @Accept json
// @Produce json
// @Param X-User-Id header string true "Caller"
// @Param request body views.TopUpRequest true "Amount"
// @Success 200 {object} views.TopUpResponse
// @Failure 400 {object} pkg.ErrorResponse
// @Router /wallet/top-up [post]
func (h *WalletHandler) TopUp(c *gin.Context) {
	traceID := c.GetString(pkg.TraceId)
	userID, err := utils.GetUserID(c)
	if err != nil {
		writeError(c, h.logger, traceID, pkg.NewAppError(pkg.ErrUnauthorizedCode, "authentication required", err))
		return
	}
	var req views.TopUpRequest
	if err = c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, traceID, pkg.NewAppError(pkg.ErrInvalidAmountCode, "amount must be a decimal number", err))
		return
	}
	balance, err := h.service.TopUp(c.Request.Context(), traceID, userID, req.Amount)
	if err != nil {
		writeError(c, h.logger, traceID, err)
		return
	}
	c.JSON(http.StatusOK, views.TopUpResponse{NewBalance: balance.StringFixed(2)})
}

// ListTransactions godoc
// @Summary Ledger entries of the caller, newest first
// @Tags wallet
// @Produce json
// @Param X-User-Id header string true "Caller"
// @Success 200 {object} views.TransactionListResponse
// @Router /wallet/transactions [get]
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	traceID := c.GetString(pkg.TraceId)
	userID, err := utils.GetUserID(c)
	if err != nil {
		writeError(c, h.logger, traceID, pkg.NewAppError(pkg.ErrUnauthorizedCode, "authentication required", err))
		return
	}
	txns, err := h.service.ListTransactions(c.Request.Context(), traceID, userID)
	if err != nil {
		writeError(c, h.logger, traceID, err)
		return
	}
	c.JSON(http.StatusOK, views.NewTransactionListResponse(txns))
}
