package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/gigboard/gig-backend/internal/logger"
	"github.com/gigboard/gig-backend/internal/models"
	"github.com/gigboard/gig-backend/internal/pkg/apperror"
	"github.com/gigboard/gig-backend/internal/repository"
)

// EscrowRepo описывает зависимости сервиса от слоя хранилища денег.
type EscrowRepo interface {
	GetBalance(ctx context.Context, userID uuid.UUID) (*models.UserBalance, error)
	FundEscrow(ctx context.Context, gigID, clientID uuid.UUID, amount float64) (*models.Escrow, error)
	ReleaseEscrow(ctx context.Context, escrowID uuid.UUID, feePercent float64, platformAccountID uuid.UUID) (*models.Escrow, error)
	GetEscrowByGigID(ctx context.Context, gigID uuid.UUID) (*models.Escrow, error)
	GetEscrowByID(ctx context.Context, id uuid.UUID) (*models.Escrow, error)
	EnsurePlatformAccount(ctx context.Context, id uuid.UUID) error
}

// GigStateRepo — часть репозитория гигов, нужная механике подтверждений.
type GigStateRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Gig, error)
	Confirm(ctx context.Context, gigID uuid.UUID, byOwner bool) (*models.Gig, error)
}

// EscrowService управляет защищёнными сделками: заморозкой бюджета,
// двусторонним подтверждением работы и выплатой.
type EscrowService struct {
	repo              EscrowRepo
	gigs              GigStateRepo
	notifier          Notifier
	feePercent        float64
	platformAccountID uuid.UUID
}

// NewEscrowService создаёт сервис сделок.
func NewEscrowService(repo EscrowRepo, gigs GigStateRepo, notifier Notifier, feePercent float64, platformAccountID uuid.UUID) *EscrowService {
	return &EscrowService{
		repo:              repo,
		gigs:              gigs,
		notifier:          notifier,
		feePercent:        feePercent,
		platformAccountID: platformAccountID,
	}
}

// EnsurePlatformAccount гарантирует существование аккаунта, на который
// зачисляется комиссия платформы. Вызывается при старте приложения: без
// строки в users первая же выплата с комиссией упадёт на внешнем ключе.
func (s *EscrowService) EnsurePlatformAccount(ctx context.Context) error {
	return s.repo.EnsurePlatformAccount(ctx, s.platformAccountID)
}

// FundEscrow замораживает бюджет гига на счёте заказчика.
// Доступно только заказчику гига после принятия исполнителя.
func (s *EscrowService) FundEscrow(ctx context.Context, gigID, userID uuid.UUID, amount float64) (*models.Escrow, error) {
	gig, err := s.gigs.GetByID(ctx, gigID)
	if err != nil {
		if errors.Is(err, repository.ErrGigNotFound) {
			return nil, apperror.ErrGigNotFound
		}
		return nil, err
	}
	if !gig.IsOwnedBy(userID) {
		return nil, apperror.ErrForbidden
	}

	escrow, err := s.repo.FundEscrow(ctx, gigID, userID, amount)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrGigNotInProgress):
			return nil, apperror.New(apperror.ErrCodeInvalidState, "escrow создаётся только для гига в работе")
		case errors.Is(err, repository.ErrAmountMismatch):
			return nil, apperror.New(apperror.ErrCodeValidation, "сумма escrow должна совпадать с бюджетом гига")
		case errors.Is(err, repository.ErrInsufficientFunds):
			return nil, apperror.New(apperror.ErrCodeConflict, "недостаточно средств на счёте")
		case errors.Is(err, repository.ErrEscrowExists):
			return nil, apperror.New(apperror.ErrCodeDuplicate, "по гигу уже есть активный escrow")
		}
		return nil, err
	}

	notify(s.notifier, escrow.WorkerID, models.NotificationEscrowFunded, escrow)

	return escrow, nil
}

// ConfirmCompletion фиксирует подтверждение выполнения работы одной из сторон.
// Когда подтвердили обе стороны, в том же вызове выполняется выплата: средства
// уходят исполнителю за вычетом комиссии платформы, гиг закрывается.
// Конкурирующие подтверждения сторон безопасны: повторную выплату отсекает
// compare-and-set на статусе escrow.
func (s *EscrowService) ConfirmCompletion(ctx context.Context, gigID, userID uuid.UUID) (*models.Gig, *models.Escrow, error) {
	gig, err := s.gigs.GetByID(ctx, gigID)
	if err != nil {
		if errors.Is(err, repository.ErrGigNotFound) {
			return nil, nil, apperror.ErrGigNotFound
		}
		return nil, nil, err
	}

	var byOwner bool
	switch {
	case gig.IsOwnedBy(userID):
		byOwner = true
	case gig.IsWorker(userID):
		byOwner = false
	default:
		return nil, nil, apperror.ErrForbidden
	}

	updated, err := s.gigs.Confirm(ctx, gigID, byOwner)
	if err != nil {
		if errors.Is(err, repository.ErrGigNotInProgress) {
			return nil, nil, apperror.New(apperror.ErrCodeInvalidState, "подтверждение доступно только для гига в работе")
		}
		return nil, nil, err
	}

	// Вторая сторона узнаёт о подтверждении.
	if byOwner {
		if updated.WorkerID != nil {
			notify(s.notifier, *updated.WorkerID, models.NotificationGigConfirmed, updated)
		}
	} else {
		notify(s.notifier, updated.PosterID, models.NotificationGigConfirmed, updated)
	}

	if !updated.BothConfirmed() {
		return updated, nil, nil
	}

	escrow, err := s.repo.GetEscrowByGigID(ctx, gigID)
	if err != nil {
		if errors.Is(err, repository.ErrEscrowNotFound) {
			// Обе стороны подтвердили, но заказчик не финансировал сделку:
			// выплачивать нечего, гиг остаётся в работе до создания escrow.
			return updated, nil, nil
		}
		return nil, nil, err
	}

	released, err := s.repo.ReleaseEscrow(ctx, escrow.ID, s.feePercent, s.platformAccountID)
	if err != nil {
		if errors.Is(err, repository.ErrEscrowNotHeld) {
			// Выплату уже провело конкурирующее подтверждение.
			if logger.Log != nil {
				logger.Log.WithFields(map[string]interface{}{
					"gig_id":    gigID,
					"escrow_id": escrow.ID,
				}).Info("escrow уже выплачен конкурирующим подтверждением")
			}
			return updated, escrow, nil
		}
		return nil, nil, err
	}

	notify(s.notifier, released.WorkerID, models.NotificationEscrowReleased, released)
	notify(s.notifier, released.ClientID, models.NotificationEscrowReleased, released)

	return updated, released, nil
}

// GetEscrow возвращает сделку по гигу. Доступно только её сторонам.
func (s *EscrowService) GetEscrow(ctx context.Context, gigID, userID uuid.UUID) (*models.Escrow, error) {
	escrow, err := s.repo.GetEscrowByGigID(ctx, gigID)
	if err != nil {
		if errors.Is(err, repository.ErrEscrowNotFound) {
			return nil, apperror.ErrEscrowNotFound
		}
		return nil, err
	}
	if !escrow.IsParticipant(userID) {
		return nil, apperror.ErrForbidden
	}
	return escrow, nil
}

// GetBalance возвращает кошелёк пользователя.
func (s *EscrowService) GetBalance(ctx context.Context, userID uuid.UUID) (*models.UserBalance, error) {
	return s.repo.GetBalance(ctx, userID)
}
