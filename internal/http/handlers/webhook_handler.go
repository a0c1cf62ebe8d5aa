package handlers

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gigboard/gig-backend/internal/dto"
	"github.com/gigboard/gig-backend/internal/http/handlers/common"
	"github.com/gigboard/gig-backend/internal/service"
)

// WebhookHandler принимает подтверждения расчётов от платёжного шлюза.
type WebhookHandler struct {
	ledger        *service.LedgerService
	gatewaySecret string
}

// NewWebhookHandler создаёт хэндлер.
func NewWebhookHandler(ledger *service.LedgerService, gatewaySecret string) *WebhookHandler {
	return &WebhookHandler{ledger: ledger, gatewaySecret: gatewaySecret}
}

// HandlePayment обрабатывает POST /webhooks/payments.
// Запрос аутентифицируется общим секретом в заголовке X-Gateway-Signature.
func (h *WebhookHandler) HandlePayment(c *gin.Context) {
	signature := c.GetHeader("X-Gateway-Signature")
	if h.gatewaySecret == "" ||
		subtle.ConstantTimeCompare([]byte(signature), []byte(h.gatewaySecret)) != 1 {
		common.RespondUnauthorized(c, "неверная подпись запроса")
		return
	}

	var req dto.PaymentWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	transactionID, err := uuid.Parse(req.TransactionID)
	if err != nil {
		common.RespondBadRequest(c, "неверный transaction_id")
		return
	}

	var success bool
	switch req.Status {
	case "succeeded":
		success = true
	case "failed":
		success = false
	default:
		common.RespondBadRequest(c, "статус должен быть succeeded или failed")
		return
	}

	transaction, err := h.ledger.SettleFromGateway(c.Request.Context(), transactionID, success)
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, transaction)
}
