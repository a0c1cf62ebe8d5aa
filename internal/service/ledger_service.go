package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/gigboard/gig-backend/internal/models"
	"github.com/gigboard/gig-backend/internal/pkg/apperror"
	"github.com/gigboard/gig-backend/internal/repository"
)

// LedgerRepo описывает зависимости сервиса от хранилища леджера.
type LedgerRepo interface {
	Create(ctx context.Context, t *models.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*models.Transaction, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Transaction, error)
	BalanceFor(ctx context.Context, userID uuid.UUID) (float64, error)
	Settle(ctx context.Context, transactionID uuid.UUID, success bool) (*models.Transaction, error)
}

// LedgerService отвечает за историю денежных операций и расчёты с платёжным
// шлюзом. Внутренние движения по сделкам пишут в леджер репозитории платежей,
// здесь же живут операции, видимые пользователю напрямую.
type LedgerService struct {
	repo LedgerRepo
}

// NewLedgerService создаёт сервис леджера.
func NewLedgerService(repo LedgerRepo) *LedgerService {
	return &LedgerService{repo: repo}
}

// Deposit создаёт pending-запись на пополнение кошелька. Деньги зачисляются
// после подтверждения платёжного шлюза через Settle. Повторный запрос с тем же
// idempotencyKey возвращает уже созданную запись.
func (s *LedgerService) Deposit(ctx context.Context, userID uuid.UUID, amount float64, idempotencyKey string) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "сумма пополнения должна быть положительной")
	}

	t := &models.Transaction{
		UserID:    userID,
		Type:      models.TransactionTypeDeposit,
		Amount:    amount,
		Fee:       0,
		NetAmount: amount,
		Status:    models.TransactionStatusPending,
	}
	if idempotencyKey != "" {
		t.IdempotencyKey = &idempotencyKey
	}

	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// GetTransaction возвращает запись леджера. Доступна только её владельцу.
func (s *LedgerService) GetTransaction(ctx context.Context, id, userID uuid.UUID) (*models.Transaction, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrTransactionNotFound) {
			return nil, apperror.New(apperror.ErrCodeNotFound, "транзакция не найдена")
		}
		return nil, err
	}
	if t.UserID != userID {
		return nil, apperror.ErrForbidden
	}
	return t, nil
}

// ListTransactions возвращает историю операций пользователя.
func (s *LedgerService) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Transaction, error) {
	limit, offset = normalizePage(limit, offset)
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

// LedgerBalance считает знаковую сумму завершённых записей пользователя.
// Служит сверкой для кошелька: расхождение с user_balances сигнализирует
// об ошибке в денежной механике.
func (s *LedgerService) LedgerBalance(ctx context.Context, userID uuid.UUID) (float64, error) {
	return s.repo.BalanceFor(ctx, userID)
}

// SettleFromGateway применяет подтверждение платёжного шлюза к pending-записи.
// Повторное подтверждение безопасно: вторая попытка получает ошибку и ничего
// не меняет.
func (s *LedgerService) SettleFromGateway(ctx context.Context, transactionID uuid.UUID, success bool) (*models.Transaction, error) {
	t, err := s.repo.Settle(ctx, transactionID, success)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrTransactionNotFound):
			return nil, apperror.New(apperror.ErrCodeNotFound, "транзакция не найдена")
		case errors.Is(err, repository.ErrTransactionSettled):
			return nil, apperror.New(apperror.ErrCodeInvalidState, "транзакция уже рассчитана")
		}
		return nil, err
	}
	return t, nil
}
