package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gigboard/gig-backend/internal/dto"
	"github.com/gigboard/gig-backend/internal/http/handlers/common"
	"github.com/gigboard/gig-backend/internal/service"
)

// PaymentHandler предоставляет HTTP слой для кошелька, escrow и леджера.
type PaymentHandler struct {
	escrows *service.EscrowService
	ledger  *service.LedgerService
}

// NewPaymentHandler создаёт хэндлер.
func NewPaymentHandler(escrows *service.EscrowService, ledger *service.LedgerService) *PaymentHandler {
	return &PaymentHandler{escrows: escrows, ledger: ledger}
}

// GetBalance обрабатывает GET /payments/balance.
// Вместе с кошельком возвращается сверочный баланс по леджеру.
func (h *PaymentHandler) GetBalance(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	balance, err := h.escrows.GetBalance(c.Request.Context(), userID)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	ledgerBalance, err := h.ledger.LedgerBalance(c.Request.Context(), userID)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.BalanceResponse{Balance: balance, LedgerBalance: ledgerBalance})
}

// Deposit обрабатывает POST /payments/deposit — заявка на пополнение кошелька.
func (h *PaymentHandler) Deposit(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "сумма должна быть положительной")
		return
	}

	transaction, err := h.ledger.Deposit(c.Request.Context(), userID, req.Amount, req.IdempotencyKey)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, transaction)
}

// FundEscrow обрабатывает POST /gigs/:id/escrow — заморозка бюджета гига.
func (h *PaymentHandler) FundEscrow(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	gigID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.FundEscrowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	escrow, err := h.escrows.FundEscrow(c.Request.Context(), gigID, userID, req.Amount)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, escrow)
}

// GetEscrow обрабатывает GET /gigs/:id/escrow.
func (h *PaymentHandler) GetEscrow(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	gigID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	escrow, err := h.escrows.GetEscrow(c.Request.Context(), gigID, userID)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, escrow)
}

// ListTransactions обрабатывает GET /payments/transactions.
func (h *PaymentHandler) ListTransactions(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)

	transactions, err := h.ledger.ListTransactions(c.Request.Context(), userID, limit, offset)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactions": transactions})
}

// GetTransaction обрабатывает GET /payments/transactions/:id.
func (h *PaymentHandler) GetTransaction(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	transactionID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	transaction, err := h.ledger.GetTransaction(c.Request.Context(), transactionID, userID)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, transaction)
}
