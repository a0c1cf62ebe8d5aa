package dto

// RegisterRequest represents the registration payload
type RegisterRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// LoginRequest represents the login payload
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest represents the token refresh payload
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// CreateGigRequest represents the request to post a gig
type CreateGigRequest struct {
	Title       string  `json:"title" binding:"required"`
	Description string  `json:"description" binding:"required"`
	Budget      float64 `json:"budget" binding:"required"`
	Attachments []string `json:"attachment_ids"`
}

// SubmitApplicationRequest represents the request to apply to a gig
type SubmitApplicationRequest struct {
	CoverLetter string `json:"cover_letter" binding:"required"`
}

// FundEscrowRequest represents the request to fund a gig escrow
type FundEscrowRequest struct {
	Amount float64 `json:"amount" binding:"required"`
}

// DepositRequest represents a wallet top-up request
type DepositRequest struct {
	Amount         float64 `json:"amount" binding:"required"`
	IdempotencyKey string  `json:"idempotency_key"`
}

// CreateWithdrawalRequest represents the request to withdraw funds
type CreateWithdrawalRequest struct {
	Amount float64 `json:"amount" binding:"required"`
}

// UpdatePayoutDetailsRequest represents the bank details payload
type UpdatePayoutDetailsRequest struct {
	AccountNumber *string `json:"account_number"`
	IFSCCode      *string `json:"ifsc_code"`
	BankName      *string `json:"bank_name"`
	UPIID         *string `json:"upi_id"`
}

// OpenDisputeRequest represents the request to open a dispute
type OpenDisputeRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// ResolveDisputeRequest represents the operator's dispute resolution
type ResolveDisputeRequest struct {
	InFavorOfWorker bool   `json:"in_favor_of_worker"`
	Resolution      string `json:"resolution" binding:"required"`
}

// PaymentWebhookRequest represents a gateway settlement callback
type PaymentWebhookRequest struct {
	TransactionID string `json:"transaction_id" binding:"required"`
	Status        string `json:"status" binding:"required"`
}
