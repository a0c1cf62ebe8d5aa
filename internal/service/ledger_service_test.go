package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/gigboard/gig-backend/internal/models"
	"github.com/gigboard/gig-backend/internal/pkg/apperror"
	"github.com/gigboard/gig-backend/internal/repository"
)

type mockLedgerRepo struct {
	mock.Mock
}

func (m *mockLedgerRepo) Create(ctx context.Context, t *models.Transaction) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *mockLedgerRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (m *mockLedgerRepo) GetByIdempotencyKey(ctx context.Context, key string) (*models.Transaction, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (m *mockLedgerRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Transaction, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Transaction), args.Error(1)
}

func (m *mockLedgerRepo) BalanceFor(ctx context.Context, userID uuid.UUID) (float64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(float64), args.Error(1)
}

func (m *mockLedgerRepo) Settle(ctx context.Context, transactionID uuid.UUID, success bool) (*models.Transaction, error) {
	args := m.Called(ctx, transactionID, success)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func TestLedgerService_Deposit_CreatesPending(t *testing.T) {
	repo := new(mockLedgerRepo)
	svc := NewLedgerService(repo)
	ctx := context.Background()
	userID := uuid.New()

	repo.On("Create", ctx, mock.AnythingOfType("*models.Transaction")).Return(nil)

	tx, err := svc.Deposit(ctx, userID, 1500, "key-1")
	assert.NoError(t, err)
	assert.Equal(t, models.TransactionTypeDeposit, tx.Type)
	assert.Equal(t, models.TransactionStatusPending, tx.Status)
	assert.Equal(t, float64(1500), tx.Amount)
	assert.Equal(t, float64(0), tx.Fee)
	assert.Equal(t, "key-1", *tx.IdempotencyKey)
}

func TestLedgerService_Deposit_InvalidAmount(t *testing.T) {
	repo := new(mockLedgerRepo)
	svc := NewLedgerService(repo)
	ctx := context.Background()

	_, err := svc.Deposit(ctx, uuid.New(), 0, "")
	assert.True(t, apperror.IsValidation(err))

	_, err = svc.Deposit(ctx, uuid.New(), -100, "")
	assert.True(t, apperror.IsValidation(err))
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestLedgerService_GetTransaction_OwnerOnly(t *testing.T) {
	repo := new(mockLedgerRepo)
	svc := NewLedgerService(repo)
	ctx := context.Background()

	owner := uuid.New()
	tx := &models.Transaction{ID: uuid.New(), UserID: owner, Amount: 100}
	repo.On("GetByID", ctx, tx.ID).Return(tx, nil)

	got, err := svc.GetTransaction(ctx, tx.ID, owner)
	assert.NoError(t, err)
	assert.Equal(t, tx, got)

	_, err = svc.GetTransaction(ctx, tx.ID, uuid.New())
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestLedgerService_SettleFromGateway_AlreadySettled(t *testing.T) {
	repo := new(mockLedgerRepo)
	svc := NewLedgerService(repo)
	ctx := context.Background()
	id := uuid.New()

	repo.On("Settle", ctx, id, true).Return(nil, repository.ErrTransactionSettled)

	_, err := svc.SettleFromGateway(ctx, id, true)
	assert.True(t, apperror.IsInvalidState(err))
}

func TestLedgerService_SettleFromGateway_NotFound(t *testing.T) {
	repo := new(mockLedgerRepo)
	svc := NewLedgerService(repo)
	ctx := context.Background()
	id := uuid.New()

	repo.On("Settle", ctx, id, false).Return(nil, repository.ErrTransactionNotFound)

	_, err := svc.SettleFromGateway(ctx, id, false)
	assert.True(t, apperror.IsNotFound(err))
}

func TestLedgerService_SettleFromGateway_Success(t *testing.T) {
	repo := new(mockLedgerRepo)
	svc := NewLedgerService(repo)
	ctx := context.Background()

	settled := &models.Transaction{ID: uuid.New(), Status: models.TransactionStatusCompleted}
	repo.On("Settle", ctx, settled.ID, true).Return(settled, nil)

	got, err := svc.SettleFromGateway(ctx, settled.ID, true)
	assert.NoError(t, err)
	assert.Equal(t, models.TransactionStatusCompleted, got.Status)
}
