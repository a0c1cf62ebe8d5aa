package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/gigboard/gig-backend/internal/models"
)

// Ошибки уровня репозитория.
var (
	ErrGigNotFound      = errors.New("gig not found")
	ErrGigNotInProgress = errors.New("gig is not in progress")
	ErrGigNotCancelable = errors.New("gig cannot be cancelled in current status")
)

// GigRepository отвечает за работу с гигами.
// Статус гига меняется только методами этого репозитория, каждый переход —
// условный UPDATE с проверкой текущего статуса.
type GigRepository struct {
	db *sqlx.DB
}

// NewGigRepository создаёт новый экземпляр.
func NewGigRepository(db *sqlx.DB) *GigRepository {
	return &GigRepository{db: db}
}

const gigColumns = `id, poster_id, worker_id, title, description, budget, status, owner_confirmed, worker_confirmed, created_at, updated_at`

// Create сохраняет новый гиг в статусе open.
func (r *GigRepository) Create(ctx context.Context, gig *models.Gig) error {
	query := `
		INSERT INTO gigs (poster_id, title, description, budget, status)
		VALUES ($1, $2, $3, $4, 'open')
		RETURNING id, status, owner_confirmed, worker_confirmed, created_at, updated_at
	`
	if err := r.db.QueryRowxContext(
		ctx, query,
		gig.PosterID, gig.Title, gig.Description, gig.Budget,
	).Scan(&gig.ID, &gig.Status, &gig.OwnerConfirmed, &gig.WorkerConfirmed, &gig.CreatedAt, &gig.UpdatedAt); err != nil {
		return fmt.Errorf("gig repository: create %w", err)
	}
	return nil
}

// GetByID возвращает гиг по идентификатору.
func (r *GigRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Gig, error) {
	var gig models.Gig
	query := `SELECT ` + gigColumns + ` FROM gigs WHERE id = $1`
	if err := r.db.GetContext(ctx, &gig, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGigNotFound
		}
		return nil, fmt.Errorf("gig repository: get by id %w", err)
	}
	return &gig, nil
}

// ListOpen возвращает открытые гиги со счётчиком заявок.
func (r *GigRepository) ListOpen(ctx context.Context, limit, offset int) ([]models.Gig, error) {
	var gigs []models.Gig
	query := `
		SELECT g.id, g.poster_id, g.worker_id, g.title, g.description, g.budget, g.status,
		       g.owner_confirmed, g.worker_confirmed, g.created_at, g.updated_at,
		       COUNT(a.id)::int AS applications_count
		FROM gigs g
		LEFT JOIN applications a ON a.gig_id = g.id
		WHERE g.status = 'open'
		GROUP BY g.id
		ORDER BY g.created_at DESC
		LIMIT $1 OFFSET $2
	`
	if err := r.db.SelectContext(ctx, &gigs, query, limit, offset); err != nil {
		return nil, fmt.Errorf("gig repository: list open %w", err)
	}
	return gigs, nil
}

// ListByUser возвращает гиги, где пользователь — заказчик или исполнитель.
func (r *GigRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Gig, error) {
	var gigs []models.Gig
	query := `
		SELECT ` + gigColumns + `
		FROM gigs
		WHERE poster_id = $1 OR worker_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	if err := r.db.SelectContext(ctx, &gigs, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("gig repository: list by user %w", err)
	}
	return gigs, nil
}

// Confirm атомарно выставляет флаг подтверждения одной из сторон.
// Один условный UPDATE: конкурирующие подтверждения владельца и исполнителя
// сериализуются блокировкой строки, и "оба подтвердили" увидит ровно один
// из вызовов. Для гига не в статусе in_progress возвращает ErrGigNotInProgress.
func (r *GigRepository) Confirm(ctx context.Context, gigID uuid.UUID, byOwner bool) (*models.Gig, error) {
	column := "worker_confirmed"
	if byOwner {
		column = "owner_confirmed"
	}

	var gig models.Gig
	query := `
		UPDATE gigs
		SET ` + column + ` = TRUE, updated_at = NOW()
		WHERE id = $1 AND status = 'in_progress'
		RETURNING ` + gigColumns
	if err := r.db.GetContext(ctx, &gig, query, gigID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGigNotInProgress
		}
		return nil, fmt.Errorf("gig repository: confirm %w", err)
	}
	return &gig, nil
}

// Cancel отменяет гиг и, если есть удерживаемый escrow, возвращает средства
// заказчику — всё в одной транзакции. Возвращает гиг и escrow после возврата
// (nil, если escrow не было).
func (r *GigRepository) Cancel(ctx context.Context, gigID uuid.UUID) (*models.Gig, *models.Escrow, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("gig repository: begin cancel tx %w", err)
	}
	defer tx.Rollback()

	var gig models.Gig
	if err := tx.GetContext(ctx, &gig, `SELECT `+gigColumns+` FROM gigs WHERE id = $1 FOR UPDATE`, gigID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, ErrGigNotFound
		}
		return nil, nil, fmt.Errorf("gig repository: cancel lock %w", err)
	}

	if !gig.Status.CanTransitionTo(models.GigStatusCancelled) || gig.BothConfirmed() {
		return nil, nil, ErrGigNotCancelable
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE gigs SET status = 'cancelled', updated_at = NOW() WHERE id = $1`, gigID,
	); err != nil {
		return nil, nil, fmt.Errorf("gig repository: cancel update %w", err)
	}
	gig.Status = models.GigStatusCancelled

	// Удерживаемый escrow возвращается заказчику в этой же транзакции.
	var escrow models.Escrow
	err = tx.GetContext(ctx, &escrow,
		`SELECT id, gig_id, client_id, worker_id, amount, status, created_at, released_at
		 FROM escrows WHERE gig_id = $1 AND status = 'held' FOR UPDATE`, gigID)
	if errors.Is(err, sql.ErrNoRows) {
		return &gig, nil, tx.Commit()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("gig repository: cancel escrow lock %w", err)
	}

	if err := refundEscrowTx(ctx, tx, &escrow); err != nil {
		return nil, nil, err
	}

	return &gig, &escrow, tx.Commit()
}

// MarkDisputed переводит гиг в статус disputed.
func (r *GigRepository) MarkDisputed(ctx context.Context, gigID uuid.UUID) (*models.Gig, error) {
	var gig models.Gig
	query := `
		UPDATE gigs
		SET status = 'disputed', updated_at = NOW()
		WHERE id = $1 AND status = 'in_progress'
		RETURNING ` + gigColumns
	if err := r.db.GetContext(ctx, &gig, query, gigID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGigNotInProgress
		}
		return nil, fmt.Errorf("gig repository: mark disputed %w", err)
	}
	return &gig, nil
}

// refundEscrowTx выполняет механику возврата внутри открытой транзакции:
// размораживает средства заказчика, переводит escrow в refunded и пишет
// запись о возврате в леджер. Вызывающий уже держит блокировку escrow.
func refundEscrowTx(ctx context.Context, tx *sqlx.Tx, escrow *models.Escrow) error {
	if _, err := tx.ExecContext(ctx, `
		UPDATE user_balances SET available = available + $2, frozen = frozen - $2, updated_at = NOW()
		WHERE user_id = $1
	`, escrow.ClientID, escrow.Amount); err != nil {
		return fmt.Errorf("gig repository: refund unfreeze %w", err)
	}

	now := time.Now()
	if _, err := tx.ExecContext(ctx,
		`UPDATE escrows SET status = 'refunded', released_at = $2 WHERE id = $1`, escrow.ID, now,
	); err != nil {
		return fmt.Errorf("gig repository: refund escrow update %w", err)
	}
	escrow.Status = models.EscrowStatusRefunded
	escrow.ReleasedAt = &now

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (user_id, gig_id, type, amount, fee, net_amount, status, description, completed_at)
		VALUES ($1, $2, 'refund', $3, 0, $3, 'completed', 'Возврат средств за отменённый гиг', NOW())
	`, escrow.ClientID, escrow.GigID, escrow.Amount); err != nil {
		return fmt.Errorf("gig repository: refund transaction %w", err)
	}

	return nil
}
