package models

import (
	"time"

	"github.com/google/uuid"
)

// UserBalance представляет кошелёк пользователя.
// available — свободные средства, frozen — замороженные в escrow.
type UserBalance struct {
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Available float64   `db:"available" json:"available"`
	Frozen    float64   `db:"frozen" json:"frozen"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Transaction представляет запись в леджере.
// Леджер append-only: суммы существующих записей никогда не изменяются,
// внешняя платёжная система лишь переводит статус pending -> completed/failed.
type Transaction struct {
	ID             uuid.UUID         `db:"id" json:"id"`
	UserID         uuid.UUID         `db:"user_id" json:"user_id"`
	GigID          *uuid.UUID        `db:"gig_id" json:"gig_id,omitempty"`
	Type           TransactionType   `db:"type" json:"type"`
	Amount         float64           `db:"amount" json:"amount"`
	Fee            float64           `db:"fee" json:"fee"`
	NetAmount      float64           `db:"net_amount" json:"net_amount"`
	Status         TransactionStatus `db:"status" json:"status"`
	Description    *string           `db:"description" json:"description,omitempty"`
	IdempotencyKey *string           `db:"idempotency_key" json:"idempotency_key,omitempty"`
	CreatedAt      time.Time         `db:"created_at" json:"created_at"`
	CompletedAt    *time.Time        `db:"completed_at" json:"completed_at,omitempty"`
}

// Escrow представляет защищённую сделку по гигу.
// Инвариант: на активный гиг существует ровно один escrow в статусе
// held или released, сумма равна бюджету гига.
type Escrow struct {
	ID         uuid.UUID    `db:"id" json:"id"`
	GigID      uuid.UUID    `db:"gig_id" json:"gig_id"`
	ClientID   uuid.UUID    `db:"client_id" json:"client_id"`
	WorkerID   uuid.UUID    `db:"worker_id" json:"worker_id"`
	Amount     float64      `db:"amount" json:"amount"`
	Status     EscrowStatus `db:"status" json:"status"`
	CreatedAt  time.Time    `db:"created_at" json:"created_at"`
	ReleasedAt *time.Time   `db:"released_at" json:"released_at,omitempty"`
}

// IsParticipant проверяет, что пользователь — сторона сделки.
func (e *Escrow) IsParticipant(userID uuid.UUID) bool {
	return e.ClientID == userID || e.WorkerID == userID
}
