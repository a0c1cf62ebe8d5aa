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

// ApplicationRepo описывает зависимости сервиса заявок от слоя хранилища.
type ApplicationRepo interface {
	Create(ctx context.Context, app *models.Application) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Application, error)
	ListByGig(ctx context.Context, gigID uuid.UUID, limit, offset int) ([]models.Application, error)
	ListByApplicant(ctx context.Context, applicantID uuid.UUID, limit, offset int) ([]models.Application, error)
	Accept(ctx context.Context, applicationID uuid.UUID) (*models.Application, *models.Gig, []models.Application, error)
	Reject(ctx context.Context, applicationID uuid.UUID) (*models.Application, error)
}

// ApplicationService управляет заявками исполнителей на гиги.
type ApplicationService struct {
	repo     ApplicationRepo
	gigs     GigRepo
	notifier Notifier
}

// NewApplicationService создаёт сервис заявок.
func NewApplicationService(repo ApplicationRepo, gigs GigRepo, notifier Notifier) *ApplicationService {
	return &ApplicationService{repo: repo, gigs: gigs, notifier: notifier}
}

// SubmitApplication подаёт заявку на открытый гиг.
// Заказчик не может откликнуться на собственный гиг, повторная заявка того же
// пользователя отклоняется.
func (s *ApplicationService) SubmitApplication(ctx context.Context, gigID, applicantID uuid.UUID, coverLetter string) (*models.Application, error) {
	if err := validation.ValidateCoverLetter(coverLetter); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	gig, err := s.gigs.GetByID(ctx, gigID)
	if err != nil {
		if errors.Is(err, repository.ErrGigNotFound) {
			return nil, apperror.ErrGigNotFound
		}
		return nil, err
	}

	if gig.Status != models.GigStatusOpen {
		return nil, apperror.ErrGigNotOpen
	}
	if gig.IsOwnedBy(applicantID) {
		return nil, apperror.New(apperror.ErrCodeForbidden, "нельзя откликнуться на собственный гиг")
	}

	app := &models.Application{
		GigID:       gigID,
		ApplicantID: applicantID,
		CoverLetter: coverLetter,
	}
	if err := s.repo.Create(ctx, app); err != nil {
		if errors.Is(err, repository.ErrDuplicateApplication) {
			return nil, apperror.ErrDuplicateApplication
		}
		return nil, err
	}

	notify(s.notifier, gig.PosterID, models.NotificationApplicationReceived, app)

	return app, nil
}

// GetApplication возвращает заявку. Доступна её автору и заказчику гига.
func (s *ApplicationService) GetApplication(ctx context.Context, id, userID uuid.UUID) (*models.Application, error) {
	app, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrApplicationNotFound) {
			return nil, apperror.ErrApplicationNotFound
		}
		return nil, err
	}

	if !app.IsOwnedBy(userID) {
		gig, err := s.gigs.GetByID(ctx, app.GigID)
		if err != nil {
			return nil, err
		}
		if !gig.IsOwnedBy(userID) {
			return nil, apperror.ErrForbidden
		}
	}

	return app, nil
}

// ListByGig возвращает заявки на гиг. Доступно только заказчику.
func (s *ApplicationService) ListByGig(ctx context.Context, gigID, userID uuid.UUID, limit, offset int) ([]models.Application, error) {
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

	limit, offset = normalizePage(limit, offset)
	return s.repo.ListByGig(ctx, gigID, limit, offset)
}

// ListMine возвращает заявки пользователя.
func (s *ApplicationService) ListMine(ctx context.Context, applicantID uuid.UUID, limit, offset int) ([]models.Application, error) {
	limit, offset = normalizePage(limit, offset)
	return s.repo.ListByApplicant(ctx, applicantID, limit, offset)
}

// AcceptApplication принимает заявку: гиг уходит в in_progress, остальные
// pending-заявки отклоняются. Доступно только заказчику гига.
func (s *ApplicationService) AcceptApplication(ctx context.Context, applicationID, userID uuid.UUID) (*models.Application, *models.Gig, error) {
	app, err := s.repo.GetByID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, repository.ErrApplicationNotFound) {
			return nil, nil, apperror.ErrApplicationNotFound
		}
		return nil, nil, err
	}

	gig, err := s.gigs.GetByID(ctx, app.GigID)
	if err != nil {
		return nil, nil, err
	}
	if !gig.IsOwnedBy(userID) {
		return nil, nil, apperror.ErrForbidden
	}

	accepted, updatedGig, autoRejected, err := s.repo.Accept(ctx, applicationID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrApplicationDecided):
			return nil, nil, apperror.ErrAlreadyDecided
		case errors.Is(err, repository.ErrGigNotInProgress):
			return nil, nil, apperror.ErrGigNotOpen
		}
		return nil, nil, err
	}

	notify(s.notifier, accepted.ApplicantID, models.NotificationApplicationAccepted, accepted)

	// Уведомляются только заявки, отклонённые этим принятием: авторы
	// отклонённых вручную ранее уже получили своё уведомление.
	for i := range autoRejected {
		notify(s.notifier, autoRejected[i].ApplicantID, models.NotificationApplicationRejected, &autoRejected[i])
	}

	return accepted, updatedGig, nil
}

// RejectApplication отклоняет pending-заявку. Доступно только заказчику гига.
func (s *ApplicationService) RejectApplication(ctx context.Context, applicationID, userID uuid.UUID) (*models.Application, error) {
	app, err := s.repo.GetByID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, repository.ErrApplicationNotFound) {
			return nil, apperror.ErrApplicationNotFound
		}
		return nil, err
	}

	gig, err := s.gigs.GetByID(ctx, app.GigID)
	if err != nil {
		return nil, err
	}
	if !gig.IsOwnedBy(userID) {
		return nil, apperror.ErrForbidden
	}

	rejected, err := s.repo.Reject(ctx, applicationID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrApplicationDecided):
			return nil, apperror.ErrAlreadyDecided
		case errors.Is(err, repository.ErrApplicationNotFound):
			return nil, apperror.ErrApplicationNotFound
		}
		return nil, err
	}

	notify(s.notifier, rejected.ApplicantID, models.NotificationApplicationRejected, rejected)

	return rejected, nil
}
