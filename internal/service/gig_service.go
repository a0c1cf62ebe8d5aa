package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/gigboard/gig-backend/internal/models"
	"github.com/gigboard/gig-backend/internal/pkg/apperror"
	"github.com/gigboard/gig-backend/internal/repository"
	"github.com/gigboard/gig-backend/internal/validation"
)

// GigRepo описывает зависимости GigService от слоя хранилища.
type GigRepo interface {
	Create(ctx context.Context, gig *models.Gig) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Gig, error)
	ListOpen(ctx context.Context, limit, offset int) ([]models.Gig, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Gig, error)
	Cancel(ctx context.Context, gigID uuid.UUID) (*models.Gig, *models.Escrow, error)
	MarkDisputed(ctx context.Context, gigID uuid.UUID) (*models.Gig, error)
}

// GigService управляет жизненным циклом гигов.
type GigService struct {
	repo     GigRepo
	notifier Notifier
}

// CreateGigInput содержит данные нового гига.
type CreateGigInput struct {
	PosterID    uuid.UUID
	Title       string
	Description string
	Budget      float64
}

// NewGigService создаёт сервис гигов.
func NewGigService(repo GigRepo, notifier Notifier) *GigService {
	return &GigService{repo: repo, notifier: notifier}
}

// CreateGig валидирует данные и размещает гиг в статусе open.
func (s *GigService) CreateGig(ctx context.Context, in CreateGigInput) (*models.Gig, error) {
	if err := validation.ValidateGigTitle(in.Title); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateGigDescription(in.Description); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateBudget(in.Budget); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	gig := &models.Gig{
		PosterID:    in.PosterID,
		Title:       in.Title,
		Description: in.Description,
		Budget:      in.Budget,
	}
	if err := s.repo.Create(ctx, gig); err != nil {
		return nil, err
	}
	return gig, nil
}

// GetGig возвращает гиг по идентификатору.
func (s *GigService) GetGig(ctx context.Context, id uuid.UUID) (*models.Gig, error) {
	gig, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrGigNotFound) {
		return nil, apperror.ErrGigNotFound
	}
	return gig, err
}

// ListOpenGigs возвращает открытые гиги со счётчиком заявок.
func (s *GigService) ListOpenGigs(ctx context.Context, limit, offset int) ([]models.Gig, error) {
	limit, offset = normalizePage(limit, offset)
	return s.repo.ListOpen(ctx, limit, offset)
}

// ListUserGigs возвращает гиги, где пользователь — заказчик или исполнитель.
func (s *GigService) ListUserGigs(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Gig, error) {
	limit, offset = normalizePage(limit, offset)
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

// CancelGig отменяет гиг. Доступно только заказчику; если по гигу удерживался
// escrow, средства возвращаются в той же транзакции, а исполнитель получает
// уведомление об отмене.
func (s *GigService) CancelGig(ctx context.Context, gigID, userID uuid.UUID) (*models.Gig, error) {
	gig, err := s.GetGig(ctx, gigID)
	if err != nil {
		return nil, err
	}
	if !gig.IsOwnedBy(userID) {
		return nil, apperror.ErrForbidden
	}

	cancelled, escrow, err := s.repo.Cancel(ctx, gigID)
	if err != nil {
		if errors.Is(err, repository.ErrGigNotCancelable) {
			return nil, apperror.New(apperror.ErrCodeInvalidState, "гиг нельзя отменить в текущем статусе")
		}
		return nil, err
	}

	if cancelled.WorkerID != nil {
		notify(s.notifier, *cancelled.WorkerID, models.NotificationGigCancelled, cancelled)
	}
	if escrow != nil {
		notify(s.notifier, escrow.ClientID, models.NotificationEscrowRefunded, escrow)
	}

	return cancelled, nil
}

// normalizePage приводит параметры пагинации к безопасным значениям.
func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
