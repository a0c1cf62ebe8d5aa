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

// DisputeRepo описывает зависимости сервиса споров от слоя хранилища.
type DisputeRepo interface {
	Create(ctx context.Context, d *models.Dispute) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error)
	GetByGigID(ctx context.Context, gigID uuid.UUID) (*models.Dispute, error)
	Resolve(ctx context.Context, disputeID, resolvedBy uuid.UUID, status, resolution string) (*models.Dispute, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Dispute, error)
}

// DisputeService управляет спорами по сделкам. Открытие спора замораживает
// гиг в статусе disputed; разрешает спор оператор вручную, выбирая между
// выплатой исполнителю и возвратом заказчику.
type DisputeService struct {
	repo              DisputeRepo
	gigs              GigRepo
	escrows           EscrowRepo
	notifier          Notifier
	feePercent        float64
	platformAccountID uuid.UUID
}

// NewDisputeService создаёт сервис споров.
func NewDisputeService(repo DisputeRepo, gigs GigRepo, escrows EscrowRepo, notifier Notifier, feePercent float64, platformAccountID uuid.UUID) *DisputeService {
	return &DisputeService{
		repo:              repo,
		gigs:              gigs,
		escrows:           escrows,
		notifier:          notifier,
		feePercent:        feePercent,
		platformAccountID: platformAccountID,
	}
}

// OpenDispute открывает спор по гигу в работе. Доступно обеим сторонам сделки,
// по гигу может существовать только один спор.
func (s *DisputeService) OpenDispute(ctx context.Context, gigID, userID uuid.UUID, reason string) (*models.Dispute, error) {
	if err := validation.ValidateDisputeReason(reason); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	gig, err := s.gigs.GetByID(ctx, gigID)
	if err != nil {
		if errors.Is(err, repository.ErrGigNotFound) {
			return nil, apperror.ErrGigNotFound
		}
		return nil, err
	}
	if !gig.IsOwnedBy(userID) && !gig.IsWorker(userID) {
		return nil, apperror.ErrForbidden
	}

	escrow, err := s.escrows.GetEscrowByGigID(ctx, gigID)
	if err != nil {
		if errors.Is(err, repository.ErrEscrowNotFound) {
			return nil, apperror.New(apperror.ErrCodeInvalidState, "спор возможен только по финансированной сделке")
		}
		return nil, err
	}
	if escrow.Status != models.EscrowStatusHeld {
		return nil, apperror.ErrEscrowNotHeld
	}

	if _, err := s.repo.GetByGigID(ctx, gigID); err == nil {
		return nil, apperror.New(apperror.ErrCodeDuplicate, "спор по гигу уже открыт")
	} else if !errors.Is(err, repository.ErrDisputeNotFound) {
		return nil, err
	}

	if _, err := s.gigs.MarkDisputed(ctx, gigID); err != nil {
		if errors.Is(err, repository.ErrGigNotInProgress) {
			return nil, apperror.New(apperror.ErrCodeInvalidState, "спор открывается только по гигу в работе")
		}
		return nil, err
	}

	dispute := &models.Dispute{
		EscrowID:    escrow.ID,
		GigID:       gigID,
		InitiatorID: userID,
		Reason:      reason,
		Status:      models.DisputeStatusOpen,
	}
	if err := s.repo.Create(ctx, dispute); err != nil {
		return nil, err
	}

	// Вторая сторона сделки узнаёт о споре.
	other := escrow.ClientID
	if userID == escrow.ClientID {
		other = escrow.WorkerID
	}
	notify(s.notifier, other, models.NotificationGigDisputed, dispute)

	return dispute, nil
}

// GetDispute возвращает спор. Доступен сторонам сделки и оператору.
func (s *DisputeService) GetDispute(ctx context.Context, id, userID uuid.UUID, isOperator bool) (*models.Dispute, error) {
	dispute, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrDisputeNotFound) {
			return nil, apperror.New(apperror.ErrCodeNotFound, "спор не найден")
		}
		return nil, err
	}

	if !isOperator {
		escrow, err := s.escrows.GetEscrowByID(ctx, dispute.EscrowID)
		if err != nil {
			return nil, err
		}
		if !escrow.IsParticipant(userID) {
			return nil, apperror.ErrForbidden
		}
	}

	return dispute, nil
}

// ListMine возвращает споры, где пользователь — сторона сделки.
func (s *DisputeService) ListMine(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Dispute, error) {
	limit, offset = normalizePage(limit, offset)
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

// ResolveDispute закрывает спор решением оператора.
// В пользу исполнителя — выплата с удержанием комиссии, гиг закрывается.
// В пользу заказчика — возврат средств и отмена гига.
func (s *DisputeService) ResolveDispute(ctx context.Context, disputeID, resolvedBy uuid.UUID, inFavorOfWorker bool, resolution string) (*models.Dispute, error) {
	dispute, err := s.repo.GetByID(ctx, disputeID)
	if err != nil {
		if errors.Is(err, repository.ErrDisputeNotFound) {
			return nil, apperror.New(apperror.ErrCodeNotFound, "спор не найден")
		}
		return nil, err
	}
	if dispute.Status != models.DisputeStatusOpen && dispute.Status != models.DisputeStatusUnderReview {
		return nil, apperror.New(apperror.ErrCodeInvalidState, "спор уже разрешён")
	}

	escrow, err := s.escrows.GetEscrowByID(ctx, dispute.EscrowID)
	if err != nil {
		return nil, err
	}

	status := models.DisputeStatusResolvedClient
	if inFavorOfWorker {
		status = models.DisputeStatusResolvedWorker
	}

	event := models.NotificationEscrowRefunded
	if escrow.Status == models.EscrowStatusHeld {
		if inFavorOfWorker {
			// ReleaseEscrow переводит disputed-гиг в completed.
			released, err := s.escrows.ReleaseEscrow(ctx, escrow.ID, s.feePercent, s.platformAccountID)
			if err != nil {
				return nil, err
			}
			escrow = released
			event = models.NotificationEscrowReleased
		} else {
			// Cancel возвращает средства и отменяет гиг одной транзакцией.
			if _, refunded, err := s.gigs.Cancel(ctx, dispute.GigID); err != nil {
				return nil, err
			} else if refunded != nil {
				escrow = refunded
			}
		}
	}

	resolved, err := s.repo.Resolve(ctx, disputeID, resolvedBy, status, resolution)
	if err != nil {
		return nil, err
	}

	notify(s.notifier, escrow.ClientID, event, resolved)
	notify(s.notifier, escrow.WorkerID, event, resolved)

	return resolved, nil
}
