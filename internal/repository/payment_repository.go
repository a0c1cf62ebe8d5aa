package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/gigboard/gig-backend/internal/models"
)

// Ошибки уровня репозитория.
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrEscrowNotFound    = errors.New("escrow not found")
	ErrEscrowNotHeld     = errors.New("escrow is not held")
	ErrEscrowExists      = errors.New("escrow already exists for gig")
	ErrAmountMismatch    = errors.New("escrow amount must equal gig budget")
)

// PaymentRepository отвечает за кошельки и защищённые сделки.
// Все денежные операции выполняются в одной транзакции с блокировкой строк:
// частичных записей не бывает, при ошибке состояние не меняется.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository создаёт новый экземпляр.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

const escrowColumns = `id, gig_id, client_id, worker_id, amount, status, created_at, released_at`

// GetBalance возвращает баланс пользователя, создаёт если не существует.
func (r *PaymentRepository) GetBalance(ctx context.Context, userID uuid.UUID) (*models.UserBalance, error) {
	var balance models.UserBalance
	query := `
		INSERT INTO user_balances (user_id, available, frozen)
		VALUES ($1, 0, 0)
		ON CONFLICT (user_id) DO UPDATE SET updated_at = NOW()
		RETURNING user_id, available, frozen, updated_at
	`
	if err := r.db.GetContext(ctx, &balance, query, userID); err != nil {
		return nil, fmt.Errorf("payment repository: get balance %w", err)
	}
	return &balance, nil
}

// CreditAvailable зачисляет средства на свободный остаток пользователя.
func CreditAvailable(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, amount float64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO user_balances (user_id, available, frozen)
		VALUES ($1, $2, 0)
		ON CONFLICT (user_id) DO UPDATE SET available = user_balances.available + $2, updated_at = NOW()
	`, userID, amount)
	if err != nil {
		return fmt.Errorf("payment repository: credit available %w", err)
	}
	return nil
}

// FundEscrow создаёт escrow по гигу и замораживает средства заказчика.
// Предусловия проверяются под блокировкой гига: гиг в in_progress, сумма
// равна бюджету, второго живого escrow нет (частичный уникальный индекс).
// В леджер пишется deposit-запись заказчика.
func (r *PaymentRepository) FundEscrow(ctx context.Context, gigID, clientID uuid.UUID, amount float64) (*models.Escrow, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("payment repository: begin fund tx %w", err)
	}
	defer tx.Rollback()

	var gig models.Gig
	if err := tx.GetContext(ctx, &gig, `SELECT `+gigColumns+` FROM gigs WHERE id = $1 FOR UPDATE`, gigID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGigNotFound
		}
		return nil, fmt.Errorf("payment repository: fund gig lock %w", err)
	}

	if gig.Status != models.GigStatusInProgress || gig.WorkerID == nil {
		return nil, ErrGigNotInProgress
	}
	if amount != gig.Budget {
		return nil, ErrAmountMismatch
	}

	// Проверяем и замораживаем баланс заказчика.
	var balance models.UserBalance
	err = tx.GetContext(ctx, &balance,
		`SELECT user_id, available, frozen, updated_at FROM user_balances WHERE user_id = $1 FOR UPDATE`, clientID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInsufficientFunds
		}
		return nil, fmt.Errorf("payment repository: fund balance lock %w", err)
	}
	if balance.Available < amount {
		return nil, ErrInsufficientFunds
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE user_balances SET available = available - $2, frozen = frozen + $2, updated_at = NOW()
		WHERE user_id = $1
	`, clientID, amount); err != nil {
		return nil, fmt.Errorf("payment repository: fund freeze %w", err)
	}

	var escrow models.Escrow
	err = tx.GetContext(ctx, &escrow, `
		INSERT INTO escrows (gig_id, client_id, worker_id, amount, status)
		VALUES ($1, $2, $3, $4, 'held')
		RETURNING `+escrowColumns,
		gigID, clientID, *gig.WorkerID, amount)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
			return nil, ErrEscrowExists
		}
		return nil, fmt.Errorf("payment repository: fund insert escrow %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (user_id, gig_id, type, amount, fee, net_amount, status, description, completed_at)
		VALUES ($1, $2, 'deposit', $3, 0, $3, 'completed', 'Заморозка средств по гигу', NOW())
	`, clientID, gigID, amount); err != nil {
		return nil, fmt.Errorf("payment repository: fund transaction %w", err)
	}

	return &escrow, tx.Commit()
}

// ReleaseEscrow выплачивает средства исполнителю за вычетом комиссии платформы.
// Переход held -> released выполняется compare-and-set'ом: повторный вызов
// вернёт ErrEscrowNotHeld и не создаст вторую выплату. В той же транзакции
// гиг переводится в completed, в леджер пишутся payout и fee.
func (r *PaymentRepository) ReleaseEscrow(ctx context.Context, escrowID uuid.UUID, feePercent float64, platformAccountID uuid.UUID) (*models.Escrow, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("payment repository: begin release tx %w", err)
	}
	defer tx.Rollback()

	var escrow models.Escrow
	err = tx.GetContext(ctx, &escrow,
		`SELECT `+escrowColumns+` FROM escrows WHERE id = $1 FOR UPDATE`, escrowID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEscrowNotFound
		}
		return nil, fmt.Errorf("payment repository: release lock %w", err)
	}
	if escrow.Status != models.EscrowStatusHeld {
		return nil, ErrEscrowNotHeld
	}

	fee := roundMoney(escrow.Amount * feePercent / 100)
	net := escrow.Amount - fee

	// Снимаем заморозку у заказчика.
	if _, err := tx.ExecContext(ctx, `
		UPDATE user_balances SET frozen = frozen - $2, updated_at = NOW()
		WHERE user_id = $1
	`, escrow.ClientID, escrow.Amount); err != nil {
		return nil, fmt.Errorf("payment repository: release unfreeze %w", err)
	}

	// Начисляем исполнителю и платформе.
	if err := CreditAvailable(ctx, tx, escrow.WorkerID, net); err != nil {
		return nil, err
	}
	if fee > 0 {
		if err := CreditAvailable(ctx, tx, platformAccountID, fee); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	if _, err := tx.ExecContext(ctx,
		`UPDATE escrows SET status = 'released', released_at = $2 WHERE id = $1`, escrow.ID, now,
	); err != nil {
		return nil, fmt.Errorf("payment repository: release escrow update %w", err)
	}
	escrow.Status = models.EscrowStatusReleased
	escrow.ReleasedAt = &now

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (user_id, gig_id, type, amount, fee, net_amount, status, description, completed_at)
		VALUES ($1, $2, 'payout', $3, $4, $5, 'completed', 'Оплата за выполненный гиг', NOW())
	`, escrow.WorkerID, escrow.GigID, escrow.Amount, fee, net); err != nil {
		return nil, fmt.Errorf("payment repository: release payout transaction %w", err)
	}
	if fee > 0 {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO transactions (user_id, gig_id, type, amount, fee, net_amount, status, description, completed_at)
			VALUES ($1, $2, 'fee', $3, 0, $3, 'completed', 'Комиссия платформы', NOW())
		`, platformAccountID, escrow.GigID, fee); err != nil {
			return nil, fmt.Errorf("payment repository: release fee transaction %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE gigs SET status = 'completed', updated_at = NOW()
		WHERE id = $1 AND status IN ('in_progress', 'disputed')
	`, escrow.GigID); err != nil {
		return nil, fmt.Errorf("payment repository: release gig update %w", err)
	}

	return &escrow, tx.Commit()
}

// EnsurePlatformAccount создаёт служебный аккаунт платформы, если его ещё нет.
// Комиссия при release зачисляется на этот аккаунт, и внешние ключи
// user_balances и transactions требуют строку в users до первой выплаты.
// Аккаунт заблокирован для входа: is_active = FALSE и пустой хэш пароля.
func (r *PaymentRepository) EnsurePlatformAccount(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, username, password_hash, role, is_active)
		VALUES ($1, $2, $3, '', 'platform', FALSE)
		ON CONFLICT (id) DO NOTHING
	`, id, "platform+"+id.String()+"@gigboard.internal", "platform_"+id.String())
	if err != nil {
		return fmt.Errorf("payment repository: ensure platform account %w", err)
	}
	return nil
}

// GetEscrowByGigID возвращает последний escrow по гигу.
func (r *PaymentRepository) GetEscrowByGigID(ctx context.Context, gigID uuid.UUID) (*models.Escrow, error) {
	var escrow models.Escrow
	query := `SELECT ` + escrowColumns + ` FROM escrows WHERE gig_id = $1 ORDER BY created_at DESC LIMIT 1`
	if err := r.db.GetContext(ctx, &escrow, query, gigID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEscrowNotFound
		}
		return nil, fmt.Errorf("payment repository: get escrow by gig %w", err)
	}
	return &escrow, nil
}

// GetEscrowByID возвращает escrow по идентификатору.
func (r *PaymentRepository) GetEscrowByID(ctx context.Context, id uuid.UUID) (*models.Escrow, error) {
	var escrow models.Escrow
	if err := r.db.GetContext(ctx, &escrow, `SELECT `+escrowColumns+` FROM escrows WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEscrowNotFound
		}
		return nil, fmt.Errorf("payment repository: get escrow by id %w", err)
	}
	return &escrow, nil
}

// roundMoney округляет сумму до копеек.
func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
