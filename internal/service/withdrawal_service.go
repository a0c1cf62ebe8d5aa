package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/gigboard/gig-backend/internal/models"
	"github.com/gigboard/gig-backend/internal/pkg/apperror"
	"github.com/gigboard/gig-backend/internal/repository"
)

// WithdrawalRepo описывает зависимости сервиса выводов от слоя хранилища.
type WithdrawalRepo interface {
	Create(ctx context.Context, userID uuid.UUID, amount float64, details *models.PayoutDetails) (*models.Withdrawal, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Withdrawal, error)
}

// PayoutDetailsRepo отдаёт банковские реквизиты пользователя.
type PayoutDetailsRepo interface {
	GetPayoutDetails(ctx context.Context, userID uuid.UUID) (*models.PayoutDetails, error)
}

// WithdrawalService управляет заявками на вывод средств.
type WithdrawalService struct {
	repo          WithdrawalRepo
	details       PayoutDetailsRepo
	minWithdrawal float64
}

// NewWithdrawalService создаёт сервис выводов.
func NewWithdrawalService(repo WithdrawalRepo, details PayoutDetailsRepo, minWithdrawal float64) *WithdrawalService {
	return &WithdrawalService{repo: repo, details: details, minWithdrawal: minWithdrawal}
}

// CreateWithdrawal создаёт заявку на вывод: сумма сразу списывается с кошелька,
// а расчёт завершает вебхук платёжного шлюза.
func (s *WithdrawalService) CreateWithdrawal(ctx context.Context, userID uuid.UUID, amount float64) (*models.Withdrawal, error) {
	if amount < s.minWithdrawal {
		return nil, apperror.New(apperror.ErrCodeValidation,
			fmt.Sprintf("минимальная сумма вывода — %.2f", s.minWithdrawal))
	}

	details, err := s.details.GetPayoutDetails(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.New(apperror.ErrCodeValidation, "сначала заполните банковские реквизиты")
		}
		return nil, err
	}
	if !details.HasDestination() {
		return nil, apperror.New(apperror.ErrCodeValidation, "не указан способ выплаты")
	}

	w, err := s.repo.Create(ctx, userID, amount, details)
	if err != nil {
		if errors.Is(err, repository.ErrInsufficientFunds) {
			return nil, apperror.New(apperror.ErrCodeConflict, "недостаточно средств на счёте")
		}
		return nil, err
	}
	return w, nil
}

// GetWithdrawal возвращает заявку. Доступна только её владельцу.
func (s *WithdrawalService) GetWithdrawal(ctx context.Context, id, userID uuid.UUID) (*models.Withdrawal, error) {
	w, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrWithdrawalNotFound) {
			return nil, apperror.New(apperror.ErrCodeNotFound, "заявка на вывод не найдена")
		}
		return nil, err
	}
	if w.UserID != userID {
		return nil, apperror.ErrForbidden
	}
	return w, nil
}

// ListWithdrawals возвращает заявки пользователя.
func (s *WithdrawalService) ListWithdrawals(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Withdrawal, error) {
	limit, offset = normalizePage(limit, offset)
	return s.repo.ListByUser(ctx, userID, limit, offset)
}
