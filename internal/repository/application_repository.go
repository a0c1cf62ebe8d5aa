package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/gigboard/gig-backend/internal/models"
)

// Ошибки уровня репозитория.
var (
	ErrApplicationNotFound  = errors.New("application not found")
	ErrDuplicateApplication = errors.New("duplicate application")
	ErrApplicationDecided   = errors.New("application already decided")
)

// Код unique_violation в PostgreSQL.
const pgUniqueViolation = "23505"

// ApplicationRepository отвечает за заявки исполнителей на гиги.
type ApplicationRepository struct {
	db *sqlx.DB
}

// NewApplicationRepository создаёт новый экземпляр.
func NewApplicationRepository(db *sqlx.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

const applicationColumns = `id, gig_id, applicant_id, cover_letter, status, created_at, updated_at`

// Create сохраняет новую заявку. Повторная заявка той же пары
// (gig_id, applicant_id) отсекается уникальным индексом.
func (r *ApplicationRepository) Create(ctx context.Context, app *models.Application) error {
	query := `
		INSERT INTO applications (gig_id, applicant_id, cover_letter, status)
		VALUES ($1, $2, $3, 'pending')
		RETURNING id, status, created_at, updated_at
	`
	err := r.db.QueryRowxContext(
		ctx, query,
		app.GigID, app.ApplicantID, app.CoverLetter,
	).Scan(&app.ID, &app.Status, &app.CreatedAt, &app.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
			return ErrDuplicateApplication
		}
		return fmt.Errorf("application repository: create %w", err)
	}
	return nil
}

// GetByID возвращает заявку по идентификатору.
func (r *ApplicationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	var app models.Application
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1`
	if err := r.db.GetContext(ctx, &app, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrApplicationNotFound
		}
		return nil, fmt.Errorf("application repository: get by id %w", err)
	}
	return &app, nil
}

// ListByGig возвращает заявки на гиг.
func (r *ApplicationRepository) ListByGig(ctx context.Context, gigID uuid.UUID, limit, offset int) ([]models.Application, error) {
	var apps []models.Application
	query := `
		SELECT ` + applicationColumns + `
		FROM applications
		WHERE gig_id = $1
		ORDER BY created_at
		LIMIT $2 OFFSET $3
	`
	if err := r.db.SelectContext(ctx, &apps, query, gigID, limit, offset); err != nil {
		return nil, fmt.Errorf("application repository: list by gig %w", err)
	}
	return apps, nil
}

// ListByApplicant возвращает заявки пользователя.
func (r *ApplicationRepository) ListByApplicant(ctx context.Context, applicantID uuid.UUID, limit, offset int) ([]models.Application, error) {
	var apps []models.Application
	query := `
		SELECT ` + applicationColumns + `
		FROM applications
		WHERE applicant_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	if err := r.db.SelectContext(ctx, &apps, query, applicantID, limit, offset); err != nil {
		return nil, fmt.Errorf("application repository: list by applicant %w", err)
	}
	return apps, nil
}

// Accept принимает заявку и в той же транзакции: отклоняет остальные
// pending-заявки гига, назначает исполнителя и переводит гиг в in_progress.
// Блокировка строки гига гарантирует не более одной принятой заявки даже при
// конкурирующих вызовах. Третьим значением возвращаются заявки, отклонённые
// именно этим вызовом: отклонённые вручную раньше в список не попадают.
func (r *ApplicationRepository) Accept(ctx context.Context, applicationID uuid.UUID) (*models.Application, *models.Gig, []models.Application, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("application repository: begin accept tx %w", err)
	}
	defer tx.Rollback()

	var app models.Application
	if err := tx.GetContext(ctx, &app,
		`SELECT `+applicationColumns+` FROM applications WHERE id = $1 FOR UPDATE`, applicationID,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, nil, ErrApplicationNotFound
		}
		return nil, nil, nil, fmt.Errorf("application repository: accept lock %w", err)
	}

	if app.Status.IsDecided() {
		return nil, nil, nil, ErrApplicationDecided
	}

	var gig models.Gig
	if err := tx.GetContext(ctx, &gig,
		`SELECT `+gigColumns+` FROM gigs WHERE id = $1 FOR UPDATE`, app.GigID,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, nil, ErrGigNotFound
		}
		return nil, nil, nil, fmt.Errorf("application repository: accept gig lock %w", err)
	}

	if gig.Status != models.GigStatusOpen {
		return nil, nil, nil, ErrGigNotInProgress
	}

	if err := tx.GetContext(ctx, &app, `
		UPDATE applications SET status = 'accepted', updated_at = NOW()
		WHERE id = $1
		RETURNING `+applicationColumns, applicationID,
	); err != nil {
		return nil, nil, nil, fmt.Errorf("application repository: accept update %w", err)
	}

	var autoRejected []models.Application
	if err := tx.SelectContext(ctx, &autoRejected, `
		UPDATE applications SET status = 'rejected', updated_at = NOW()
		WHERE gig_id = $1 AND id <> $2 AND status = 'pending'
		RETURNING `+applicationColumns, app.GigID, applicationID,
	); err != nil {
		return nil, nil, nil, fmt.Errorf("application repository: reject others %w", err)
	}

	if err := tx.GetContext(ctx, &gig, `
		UPDATE gigs SET status = 'in_progress', worker_id = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+gigColumns, app.GigID, app.ApplicantID,
	); err != nil {
		return nil, nil, nil, fmt.Errorf("application repository: accept gig update %w", err)
	}

	return &app, &gig, autoRejected, tx.Commit()
}

// Reject отклоняет pending-заявку. Побочных эффектов на гиг нет.
func (r *ApplicationRepository) Reject(ctx context.Context, applicationID uuid.UUID) (*models.Application, error) {
	var app models.Application
	query := `
		UPDATE applications SET status = 'rejected', updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + applicationColumns
	if err := r.db.GetContext(ctx, &app, query, applicationID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Либо заявки нет, либо решение уже принято: различаем чтением.
			if _, getErr := r.GetByID(ctx, applicationID); getErr != nil {
				return nil, getErr
			}
			return nil, ErrApplicationDecided
		}
		return nil, fmt.Errorf("application repository: reject %w", err)
	}
	return &app, nil
}
