package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/gigboard/gig-backend/internal/models"
)

// Ошибки уровня репозитория.
var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrTransactionSettled  = errors.New("transaction already settled")
)

// LedgerRepository отвечает за записи леджера.
// Записи только добавляются: единственное разрешённое изменение — переход
// статуса pending -> completed/failed при подтверждении расчёта.
type LedgerRepository struct {
	db *sqlx.DB
}

// NewLedgerRepository создаёт новый экземпляр.
func NewLedgerRepository(db *sqlx.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

const transactionColumns = `id, user_id, gig_id, type, amount, fee, net_amount, status, description, idempotency_key, created_at, completed_at`

// Create добавляет запись в леджер. При совпадении idempotency_key повторная
// вставка не выполняется и возвращается ранее созданная запись.
func (r *LedgerRepository) Create(ctx context.Context, t *models.Transaction) error {
	query := `
		INSERT INTO transactions (user_id, gig_id, type, amount, fee, net_amount, status, description, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (idempotency_key) DO NOTHING
		RETURNING id, created_at
	`
	err := r.db.QueryRowxContext(
		ctx, query,
		t.UserID, t.GigID, t.Type, t.Amount, t.Fee, t.NetAmount, t.Status, t.Description, t.IdempotencyKey,
	).Scan(&t.ID, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		// Конфликт по ключу идемпотентности: отдаём существующую запись.
		existing, getErr := r.GetByIdempotencyKey(ctx, *t.IdempotencyKey)
		if getErr != nil {
			return getErr
		}
		*t = *existing
		return nil
	}
	if err != nil {
		return fmt.Errorf("ledger repository: create %w", err)
	}
	return nil
}

// GetByID возвращает запись по идентификатору.
func (r *LedgerRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	var t models.Transaction
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	if err := r.db.GetContext(ctx, &t, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("ledger repository: get by id %w", err)
	}
	return &t, nil
}

// GetByIdempotencyKey возвращает запись по ключу идемпотентности.
func (r *LedgerRepository) GetByIdempotencyKey(ctx context.Context, key string) (*models.Transaction, error) {
	var t models.Transaction
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE idempotency_key = $1`
	if err := r.db.GetContext(ctx, &t, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("ledger repository: get by idempotency key %w", err)
	}
	return &t, nil
}

// ListByUser возвращает историю записей пользователя.
func (r *LedgerRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Transaction, error) {
	var transactions []models.Transaction
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	if err := r.db.SelectContext(ctx, &transactions, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("ledger repository: list by user %w", err)
	}
	return transactions, nil
}

// BalanceFor считает знаковую сумму net_amount по завершённым записям
// пользователя: deposit и payout со знаком плюс, fee и refund со знаком минус.
func (r *LedgerRepository) BalanceFor(ctx context.Context, userID uuid.UUID) (float64, error) {
	var balance float64
	query := `
		SELECT COALESCE(SUM(
			CASE WHEN type IN ('deposit', 'payout') THEN net_amount ELSE -net_amount END
		), 0)
		FROM transactions
		WHERE user_id = $1 AND status = 'completed'
	`
	if err := r.db.GetContext(ctx, &balance, query, userID); err != nil {
		return 0, fmt.Errorf("ledger repository: balance for %w", err)
	}
	return balance, nil
}

// Settle переводит pending-запись в completed или failed по подтверждению
// платёжного шлюза и применяет денежный эффект:
//   - успешное пополнение зачисляет средства на свободный остаток;
//   - неуспешный вывод возвращает средства и отклоняет заявку на вывод;
//   - успешный вывод помечает заявку выполненной.
//
// Повторное подтверждение той же записи возвращает ErrTransactionSettled.
func (r *LedgerRepository) Settle(ctx context.Context, transactionID uuid.UUID, success bool) (*models.Transaction, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("ledger repository: begin settle tx %w", err)
	}
	defer tx.Rollback()

	var t models.Transaction
	err = tx.GetContext(ctx, &t,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1 FOR UPDATE`, transactionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("ledger repository: settle lock %w", err)
	}
	if t.Status != models.TransactionStatusPending {
		return nil, ErrTransactionSettled
	}

	newStatus := models.TransactionStatusFailed
	if success {
		newStatus = models.TransactionStatusCompleted
	}

	if err := tx.GetContext(ctx, &t, `
		UPDATE transactions SET status = $2, completed_at = NOW()
		WHERE id = $1
		RETURNING `+transactionColumns, transactionID, newStatus,
	); err != nil {
		return nil, fmt.Errorf("ledger repository: settle update %w", err)
	}

	switch {
	case success && t.Type == models.TransactionTypeDeposit && t.GigID == nil:
		// Подтверждённое пополнение кошелька.
		if err := CreditAvailable(ctx, tx, t.UserID, t.NetAmount); err != nil {
			return nil, err
		}
	case t.Type == models.TransactionTypePayout && t.GigID == nil:
		// Вывод средств: при отказе возвращаем деньги на кошелёк.
		withdrawalStatus := models.WithdrawalStatusCompleted
		if !success {
			withdrawalStatus = models.WithdrawalStatusRejected
			if err := CreditAvailable(ctx, tx, t.UserID, t.Amount); err != nil {
				return nil, err
			}
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE withdrawals SET status = $2, processed_at = NOW()
			WHERE transaction_id = $1
		`, transactionID, withdrawalStatus); err != nil {
			return nil, fmt.Errorf("ledger repository: settle withdrawal %w", err)
		}
	}

	return &t, tx.Commit()
}
