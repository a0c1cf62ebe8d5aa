package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/gigboard/gig-backend/internal/models"
	"github.com/gigboard/gig-backend/internal/repository/common"
)

var ErrDisputeNotFound = errors.New("dispute not found")

// DisputeRepository отвечает за споры по сделкам.
type DisputeRepository struct {
	db *sqlx.DB
}

func NewDisputeRepository(db *sqlx.DB) *DisputeRepository {
	return &DisputeRepository{db: db}
}

func (r *DisputeRepository) Create(ctx context.Context, d *models.Dispute) error {
	return r.db.QueryRowxContext(ctx, `
		INSERT INTO disputes (escrow_id, gig_id, initiator_id, reason, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, d.EscrowID, d.GigID, d.InitiatorID, d.Reason, d.Status).Scan(&d.ID, &d.CreatedAt)
}

func (r *DisputeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	return common.GetByID[models.Dispute](ctx, r.db, "disputes", id, ErrDisputeNotFound)
}

func (r *DisputeRepository) GetByGigID(ctx context.Context, gigID uuid.UUID) (*models.Dispute, error) {
	return common.GetByField[models.Dispute](ctx, r.db, "disputes", "gig_id", gigID, ErrDisputeNotFound)
}

// Resolve фиксирует решение оператора по спору. Денежный эффект (выплата или
// возврат) применяется отдельно репозиторием платежей.
func (r *DisputeRepository) Resolve(ctx context.Context, disputeID, resolvedBy uuid.UUID, status, resolution string) (*models.Dispute, error) {
	var d models.Dispute
	err := r.db.GetContext(ctx, &d, `
		UPDATE disputes
		SET status = $2, resolution = $3, resolved_by = $4, resolved_at = NOW()
		WHERE id = $1 AND status IN ('open', 'under_review')
		RETURNING *
	`, disputeID, status, resolution, resolvedBy)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDisputeNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *DisputeRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Dispute, error) {
	var disputes []models.Dispute
	err := r.db.SelectContext(ctx, &disputes, `
		SELECT d.* FROM disputes d
		JOIN escrows e ON e.id = d.escrow_id
		WHERE e.client_id = $1 OR e.worker_id = $1
		ORDER BY d.created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return disputes, err
}
