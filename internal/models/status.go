package models

import "github.com/gigboard/gig-backend/internal/pkg/apperror"

// GigStatus — замкнутый набор статусов гига.
// Статусы в базе хранятся строками, но по коду ходят только типизированные
// значения: это убирает разбросанные строковые сравнения.
type GigStatus string

const (
	GigStatusOpen       GigStatus = "open"
	GigStatusInProgress GigStatus = "in_progress"
	GigStatusCompleted  GigStatus = "completed"
	GigStatusCancelled  GigStatus = "cancelled"
	GigStatusDisputed   GigStatus = "disputed"
)

func (s GigStatus) IsValid() bool {
	switch s {
	case GigStatusOpen, GigStatusInProgress, GigStatusCompleted, GigStatusCancelled, GigStatusDisputed:
		return true
	}
	return false
}

// IsTerminal сообщает, что дальнейшие автоматические переходы запрещены.
func (s GigStatus) IsTerminal() bool {
	return s == GigStatusCompleted || s == GigStatusCancelled
}

// CanTransitionTo проверяет допустимость перехода статуса гига.
// Переходы монотонны, исключения — выходы в cancelled и disputed.
func (s GigStatus) CanTransitionTo(newStatus GigStatus) bool {
	transitions := map[GigStatus][]GigStatus{
		GigStatusOpen:       {GigStatusInProgress, GigStatusCancelled},
		GigStatusInProgress: {GigStatusCompleted, GigStatusCancelled, GigStatusDisputed},
		GigStatusCompleted:  {},
		GigStatusCancelled:  {},
		// Разрешение спора выполняется вручную оператором.
		GigStatusDisputed: {GigStatusCompleted, GigStatusCancelled},
	}

	allowed, ok := transitions[s]
	if !ok {
		return false
	}

	for _, status := range allowed {
		if status == newStatus {
			return true
		}
	}
	return false
}

// NewGigStatus валидирует строку статуса из внешнего мира.
func NewGigStatus(status string) (GigStatus, error) {
	s := GigStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус гига")
	}
	return s, nil
}

// ApplicationStatus — статус заявки исполнителя на гиг.
type ApplicationStatus string

const (
	ApplicationStatusPending  ApplicationStatus = "pending"
	ApplicationStatusAccepted ApplicationStatus = "accepted"
	ApplicationStatusRejected ApplicationStatus = "rejected"
)

func (s ApplicationStatus) IsValid() bool {
	switch s {
	case ApplicationStatusPending, ApplicationStatusAccepted, ApplicationStatusRejected:
		return true
	}
	return false
}

// IsDecided сообщает, что заявка уже в терминальном статусе.
func (s ApplicationStatus) IsDecided() bool {
	return s == ApplicationStatusAccepted || s == ApplicationStatusRejected
}

func NewApplicationStatus(status string) (ApplicationStatus, error) {
	s := ApplicationStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус заявки")
	}
	return s, nil
}

// EscrowStatus — статус защищённой сделки.
type EscrowStatus string

const (
	EscrowStatusHeld     EscrowStatus = "held"
	EscrowStatusReleased EscrowStatus = "released"
	EscrowStatusRefunded EscrowStatus = "refunded"
)

func (s EscrowStatus) IsValid() bool {
	switch s {
	case EscrowStatusHeld, EscrowStatusReleased, EscrowStatusRefunded:
		return true
	}
	return false
}

// IsTerminal: released и refunded — конечные статусы, из held ровно один выход.
func (s EscrowStatus) IsTerminal() bool {
	return s == EscrowStatusReleased || s == EscrowStatusRefunded
}

// TransactionType — тип записи в леджере.
type TransactionType string

const (
	TransactionTypeDeposit TransactionType = "deposit"
	TransactionTypePayout  TransactionType = "payout"
	TransactionTypeRefund  TransactionType = "refund"
	TransactionTypeFee     TransactionType = "fee"
)

func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeDeposit, TransactionTypePayout, TransactionTypeRefund, TransactionTypeFee:
		return true
	}
	return false
}

// Sign задаёт знаковую конвенцию для подсчёта баланса по леджеру:
// deposit и payout учитываются со знаком плюс, fee и refund — со знаком минус
// с точки зрения плательщика.
func (t TransactionType) Sign() float64 {
	switch t {
	case TransactionTypeDeposit, TransactionTypePayout:
		return 1
	case TransactionTypeFee, TransactionTypeRefund:
		return -1
	}
	return 0
}

// TransactionStatus — статус расчёта по транзакции.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

func (s TransactionStatus) IsValid() bool {
	switch s {
	case TransactionStatusPending, TransactionStatusCompleted, TransactionStatusFailed:
		return true
	}
	return false
}
