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

var ErrWithdrawalNotFound = errors.New("withdrawal not found")

// WithdrawalRepository отвечает за заявки на вывод средств.
type WithdrawalRepository struct {
	db *sqlx.DB
}

func NewWithdrawalRepository(db *sqlx.DB) *WithdrawalRepository {
	return &WithdrawalRepository{db: db}
}

// Create списывает сумму со свободного остатка и создаёт заявку вместе с
// pending-записью в леджере — одной транзакцией. Запись завершит вебхук
// платёжного шлюза.
func (r *WithdrawalRepository) Create(ctx context.Context, userID uuid.UUID, amount float64, details *models.PayoutDetails) (*models.Withdrawal, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("withdrawal repository: begin tx %w", err)
	}
	defer tx.Rollback()

	var available float64
	err = tx.GetContext(ctx, &available,
		`SELECT available FROM user_balances WHERE user_id = $1 FOR UPDATE`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInsufficientFunds
		}
		return nil, fmt.Errorf("withdrawal repository: balance lock %w", err)
	}
	if available < amount {
		return nil, ErrInsufficientFunds
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE user_balances SET available = available - $2, updated_at = NOW() WHERE user_id = $1`,
		userID, amount,
	); err != nil {
		return nil, fmt.Errorf("withdrawal repository: debit %w", err)
	}

	var transactionID uuid.UUID
	if err := tx.QueryRowxContext(ctx, `
		INSERT INTO transactions (user_id, type, amount, fee, net_amount, status, description)
		VALUES ($1, 'payout', $2, 0, $2, 'pending', 'Вывод средств на банковские реквизиты')
		RETURNING id
	`, userID, amount).Scan(&transactionID); err != nil {
		return nil, fmt.Errorf("withdrawal repository: transaction %w", err)
	}

	var w models.Withdrawal
	if err := tx.GetContext(ctx, &w, `
		INSERT INTO withdrawals (user_id, transaction_id, amount, account_number, ifsc_code, bank_name, upi_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING *
	`, userID, transactionID, amount,
		details.AccountNumber, details.IFSCCode, details.BankName, details.UPIID,
	); err != nil {
		return nil, fmt.Errorf("withdrawal repository: create %w", err)
	}

	return &w, tx.Commit()
}

func (r *WithdrawalRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error) {
	var w models.Withdrawal
	err := r.db.GetContext(ctx, &w, `SELECT * FROM withdrawals WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWithdrawalNotFound
	}
	return &w, err
}

func (r *WithdrawalRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Withdrawal, error) {
	var withdrawals []models.Withdrawal
	err := r.db.SelectContext(ctx, &withdrawals, `
		SELECT * FROM withdrawals WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	return withdrawals, err
}
