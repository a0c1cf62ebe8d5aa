package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// События, которые рассылает платформа.
const (
	NotificationApplicationReceived = "application.received"
	NotificationApplicationAccepted = "application.accepted"
	NotificationApplicationRejected = "application.rejected"
	NotificationEscrowFunded        = "escrow.funded"
	NotificationGigConfirmed        = "gig.confirmed"
	NotificationEscrowReleased      = "escrow.released"
	NotificationEscrowRefunded      = "escrow.refunded"
	NotificationGigCancelled        = "gig.cancelled"
	NotificationGigDisputed         = "gig.disputed"
)

// Notification описывает событие, отправленное пользователю.
type Notification struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	UserID    uuid.UUID       `db:"user_id" json:"user_id"`
	Event     string          `db:"event" json:"event"`
	Payload   json.RawMessage `db:"payload" json:"payload"`
	IsRead    bool            `db:"is_read" json:"is_read"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}
