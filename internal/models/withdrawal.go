package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	WithdrawalStatusPending    = "pending"
	WithdrawalStatusProcessing = "processing"
	WithdrawalStatusCompleted  = "completed"
	WithdrawalStatusRejected   = "rejected"
)

// Withdrawal — заявка на вывод средств на банковские реквизиты пользователя.
type Withdrawal struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	UserID          uuid.UUID  `db:"user_id" json:"user_id"`
	TransactionID   *uuid.UUID `db:"transaction_id" json:"transaction_id,omitempty"`
	Amount          float64    `db:"amount" json:"amount"`
	Status          string     `db:"status" json:"status"`
	AccountNumber   *string    `db:"account_number" json:"account_number,omitempty"`
	IFSCCode        *string    `db:"ifsc_code" json:"ifsc_code,omitempty"`
	BankName        *string    `db:"bank_name" json:"bank_name,omitempty"`
	UPIID           *string    `db:"upi_id" json:"upi_id,omitempty"`
	RejectionReason *string    `db:"rejection_reason" json:"rejection_reason,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	ProcessedAt     *time.Time `db:"processed_at" json:"processed_at,omitempty"`
}
