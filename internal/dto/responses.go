package dto

import (
	"github.com/gigboard/gig-backend/internal/models"
)

// AuthResponse represents the result of register/login/refresh
type AuthResponse struct {
	User         *models.User `json:"user,omitempty"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int64        `json:"expires_in"`
}

// GigResponse represents a gig with its attachments
type GigResponse struct {
	*models.Gig
	Attachments []models.GigAttachment `json:"attachments,omitempty"`
}

// ConfirmResponse represents the outcome of a completion confirmation.
// Escrow is present when both parties have confirmed and the payout ran.
type ConfirmResponse struct {
	Gig    *models.Gig    `json:"gig"`
	Escrow *models.Escrow `json:"escrow,omitempty"`
}

// BalanceResponse joins the wallet with the ledger-derived balance
type BalanceResponse struct {
	Balance       *models.UserBalance `json:"balance"`
	LedgerBalance float64             `json:"ledger_balance"`
}

// Pagination represents pagination metadata
type Pagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// SuccessResponse represents a standard success response
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
