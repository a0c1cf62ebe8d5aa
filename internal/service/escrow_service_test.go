package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/gigboard/gig-backend/internal/models"
	"github.com/gigboard/gig-backend/internal/pkg/apperror"
	"github.com/gigboard/gig-backend/internal/repository"
)

type mockEscrowRepo struct {
	mock.Mock
}

func (m *mockEscrowRepo) GetBalance(ctx context.Context, userID uuid.UUID) (*models.UserBalance, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserBalance), args.Error(1)
}

func (m *mockEscrowRepo) FundEscrow(ctx context.Context, gigID, clientID uuid.UUID, amount float64) (*models.Escrow, error) {
	args := m.Called(ctx, gigID, clientID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Escrow), args.Error(1)
}

func (m *mockEscrowRepo) ReleaseEscrow(ctx context.Context, escrowID uuid.UUID, feePercent float64, platformAccountID uuid.UUID) (*models.Escrow, error) {
	args := m.Called(ctx, escrowID, feePercent, platformAccountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Escrow), args.Error(1)
}

func (m *mockEscrowRepo) EnsurePlatformAccount(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockEscrowRepo) GetEscrowByGigID(ctx context.Context, gigID uuid.UUID) (*models.Escrow, error) {
	args := m.Called(ctx, gigID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Escrow), args.Error(1)
}

func (m *mockEscrowRepo) GetEscrowByID(ctx context.Context, id uuid.UUID) (*models.Escrow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Escrow), args.Error(1)
}

type mockGigStateRepo struct {
	mock.Mock
}

func (m *mockGigStateRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Gig, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Gig), args.Error(1)
}

func (m *mockGigStateRepo) Confirm(ctx context.Context, gigID uuid.UUID, byOwner bool) (*models.Gig, error) {
	args := m.Called(ctx, gigID, byOwner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Gig), args.Error(1)
}

// recordingNotifier накапливает отправленные события. Потокобезопасен,
// чтобы его можно было использовать в конкурентных тестах.
type recordingNotifier struct {
	mu     sync.Mutex
	events []string
	users  []uuid.UUID
}

func (n *recordingNotifier) BroadcastToUser(userID uuid.UUID, event string, data any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.users = append(n.users, userID)
	n.events = append(n.events, event)
	return nil
}

func (n *recordingNotifier) sent() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.events...)
}

func inProgressGig(posterID, workerID uuid.UUID) *models.Gig {
	return &models.Gig{
		ID:       uuid.New(),
		PosterID: posterID,
		WorkerID: &workerID,
		Budget:   1000,
		Status:   models.GigStatusInProgress,
	}
}

func TestEscrowService_EnsurePlatformAccount(t *testing.T) {
	// Перед первой выплатой с комиссией строка аккаунта платформы должна
	// существовать в users, иначе зачисление комиссии упадёт на внешнем ключе.
	repo := new(mockEscrowRepo)
	gigs := new(mockGigStateRepo)
	platformID := uuid.New()
	svc := NewEscrowService(repo, gigs, nil, 10, platformID)
	ctx := context.Background()

	repo.On("EnsurePlatformAccount", ctx, platformID).Return(nil)

	assert.NoError(t, svc.EnsurePlatformAccount(ctx))
	repo.AssertExpectations(t)
}

func TestEscrowService_FundEscrow_OnlyPoster(t *testing.T) {
	repo := new(mockEscrowRepo)
	gigs := new(mockGigStateRepo)
	svc := NewEscrowService(repo, gigs, nil, 10, uuid.New())
	ctx := context.Background()

	poster := uuid.New()
	worker := uuid.New()
	gig := inProgressGig(poster, worker)
	gigs.On("GetByID", ctx, gig.ID).Return(gig, nil)

	_, err := svc.FundEscrow(ctx, gig.ID, worker, 1000)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
	repo.AssertNotCalled(t, "FundEscrow", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestEscrowService_FundEscrow_InsufficientFunds(t *testing.T) {
	repo := new(mockEscrowRepo)
	gigs := new(mockGigStateRepo)
	svc := NewEscrowService(repo, gigs, nil, 10, uuid.New())
	ctx := context.Background()

	poster := uuid.New()
	gig := inProgressGig(poster, uuid.New())
	gigs.On("GetByID", ctx, gig.ID).Return(gig, nil)
	repo.On("FundEscrow", ctx, gig.ID, poster, float64(1000)).Return(nil, repository.ErrInsufficientFunds)

	_, err := svc.FundEscrow(ctx, gig.ID, poster, 1000)
	assert.Error(t, err)

	var appErr *apperror.AppError
	assert.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.ErrCodeConflict, appErr.Code)
}

func TestEscrowService_FundEscrow_AmountMismatch(t *testing.T) {
	repo := new(mockEscrowRepo)
	gigs := new(mockGigStateRepo)
	svc := NewEscrowService(repo, gigs, nil, 10, uuid.New())
	ctx := context.Background()

	poster := uuid.New()
	gig := inProgressGig(poster, uuid.New())
	gigs.On("GetByID", ctx, gig.ID).Return(gig, nil)
	repo.On("FundEscrow", ctx, gig.ID, poster, float64(500)).Return(nil, repository.ErrAmountMismatch)

	_, err := svc.FundEscrow(ctx, gig.ID, poster, 500)
	assert.True(t, apperror.IsValidation(err))
}

func TestEscrowService_FundEscrow_NotifiesWorker(t *testing.T) {
	repo := new(mockEscrowRepo)
	gigs := new(mockGigStateRepo)
	notifier := &recordingNotifier{}
	svc := NewEscrowService(repo, gigs, notifier, 10, uuid.New())
	ctx := context.Background()

	poster := uuid.New()
	worker := uuid.New()
	gig := inProgressGig(poster, worker)
	escrow := &models.Escrow{ID: uuid.New(), GigID: gig.ID, ClientID: poster, WorkerID: worker, Amount: 1000, Status: models.EscrowStatusHeld}

	gigs.On("GetByID", ctx, gig.ID).Return(gig, nil)
	repo.On("FundEscrow", ctx, gig.ID, poster, float64(1000)).Return(escrow, nil)

	got, err := svc.FundEscrow(ctx, gig.ID, poster, 1000)
	assert.NoError(t, err)
	assert.Equal(t, escrow, got)
	assert.Equal(t, []string{models.NotificationEscrowFunded}, notifier.sent())
	assert.Equal(t, worker, notifier.users[0])
}

func TestEscrowService_ConfirmCompletion_Stranger(t *testing.T) {
	repo := new(mockEscrowRepo)
	gigs := new(mockGigStateRepo)
	svc := NewEscrowService(repo, gigs, nil, 10, uuid.New())
	ctx := context.Background()

	gig := inProgressGig(uuid.New(), uuid.New())
	gigs.On("GetByID", ctx, gig.ID).Return(gig, nil)

	_, _, err := svc.ConfirmCompletion(ctx, gig.ID, uuid.New())
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestEscrowService_ConfirmCompletion_OneSideNoRelease(t *testing.T) {
	repo := new(mockEscrowRepo)
	gigs := new(mockGigStateRepo)
	svc := NewEscrowService(repo, gigs, nil, 10, uuid.New())
	ctx := context.Background()

	poster := uuid.New()
	worker := uuid.New()
	gig := inProgressGig(poster, worker)
	confirmed := *gig
	confirmed.OwnerConfirmed = true

	gigs.On("GetByID", ctx, gig.ID).Return(gig, nil)
	gigs.On("Confirm", ctx, gig.ID, true).Return(&confirmed, nil)

	updated, escrow, err := svc.ConfirmCompletion(ctx, gig.ID, poster)
	assert.NoError(t, err)
	assert.Nil(t, escrow)
	assert.True(t, updated.OwnerConfirmed)
	assert.False(t, updated.WorkerConfirmed)
	repo.AssertNotCalled(t, "ReleaseEscrow", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestEscrowService_ConfirmCompletion_BothSidesRelease(t *testing.T) {
	repo := new(mockEscrowRepo)
	gigs := new(mockGigStateRepo)
	notifier := &recordingNotifier{}
	platformID := uuid.New()
	svc := NewEscrowService(repo, gigs, notifier, 10, platformID)
	ctx := context.Background()

	poster := uuid.New()
	worker := uuid.New()
	gig := inProgressGig(poster, worker)
	confirmed := *gig
	confirmed.OwnerConfirmed = true
	confirmed.WorkerConfirmed = true

	escrow := &models.Escrow{ID: uuid.New(), GigID: gig.ID, ClientID: poster, WorkerID: worker, Amount: 1000, Status: models.EscrowStatusHeld}
	now := time.Now()
	released := *escrow
	released.Status = models.EscrowStatusReleased
	released.ReleasedAt = &now

	gigs.On("GetByID", ctx, gig.ID).Return(gig, nil)
	gigs.On("Confirm", ctx, gig.ID, false).Return(&confirmed, nil)
	repo.On("GetEscrowByGigID", ctx, gig.ID).Return(escrow, nil)
	repo.On("ReleaseEscrow", ctx, escrow.ID, float64(10), platformID).Return(&released, nil)

	updated, got, err := svc.ConfirmCompletion(ctx, gig.ID, worker)
	assert.NoError(t, err)
	assert.True(t, updated.BothConfirmed())
	assert.Equal(t, models.EscrowStatusReleased, got.Status)

	// gig.confirmed второй стороне + escrow.released обеим сторонам.
	assert.Equal(t, []string{
		models.NotificationGigConfirmed,
		models.NotificationEscrowReleased,
		models.NotificationEscrowReleased,
	}, notifier.sent())
}

func TestEscrowService_ConfirmCompletion_ConcurrentReleaseTolerated(t *testing.T) {
	repo := new(mockEscrowRepo)
	gigs := new(mockGigStateRepo)
	svc := NewEscrowService(repo, gigs, nil, 10, uuid.New())
	ctx := context.Background()

	poster := uuid.New()
	worker := uuid.New()
	gig := inProgressGig(poster, worker)
	confirmed := *gig
	confirmed.OwnerConfirmed = true
	confirmed.WorkerConfirmed = true

	escrow := &models.Escrow{ID: uuid.New(), GigID: gig.ID, ClientID: poster, WorkerID: worker, Amount: 1000, Status: models.EscrowStatusHeld}

	gigs.On("GetByID", ctx, gig.ID).Return(gig, nil)
	gigs.On("Confirm", ctx, gig.ID, true).Return(&confirmed, nil)
	repo.On("GetEscrowByGigID", ctx, gig.ID).Return(escrow, nil)
	// Конкурирующее подтверждение успело выплатить первым.
	repo.On("ReleaseEscrow", ctx, escrow.ID, float64(10), mock.Anything).Return(nil, repository.ErrEscrowNotHeld)

	updated, got, err := svc.ConfirmCompletion(ctx, gig.ID, poster)
	assert.NoError(t, err)
	assert.True(t, updated.BothConfirmed())
	assert.Equal(t, escrow, got)
}

func TestEscrowService_ConfirmCompletion_NoEscrowYet(t *testing.T) {
	repo := new(mockEscrowRepo)
	gigs := new(mockGigStateRepo)
	svc := NewEscrowService(repo, gigs, nil, 10, uuid.New())
	ctx := context.Background()

	poster := uuid.New()
	worker := uuid.New()
	gig := inProgressGig(poster, worker)
	confirmed := *gig
	confirmed.OwnerConfirmed = true
	confirmed.WorkerConfirmed = true

	gigs.On("GetByID", ctx, gig.ID).Return(gig, nil)
	gigs.On("Confirm", ctx, gig.ID, true).Return(&confirmed, nil)
	repo.On("GetEscrowByGigID", ctx, gig.ID).Return(nil, repository.ErrEscrowNotFound)

	updated, escrow, err := svc.ConfirmCompletion(ctx, gig.ID, poster)
	assert.NoError(t, err)
	assert.Nil(t, escrow)
	assert.NotNil(t, updated)
}

// casEscrowRepo имитирует поведение базы: ReleaseEscrow выигрывает только
// у escrow в статусе held, проигравший вызов получает ErrEscrowNotHeld.
type casEscrowRepo struct {
	mu       sync.Mutex
	escrow   *models.Escrow
	releases int
}

func (r *casEscrowRepo) GetBalance(ctx context.Context, userID uuid.UUID) (*models.UserBalance, error) {
	return nil, repository.ErrEscrowNotFound
}

func (r *casEscrowRepo) FundEscrow(ctx context.Context, gigID, clientID uuid.UUID, amount float64) (*models.Escrow, error) {
	return nil, repository.ErrEscrowExists
}

func (r *casEscrowRepo) ReleaseEscrow(ctx context.Context, escrowID uuid.UUID, feePercent float64, platformAccountID uuid.UUID) (*models.Escrow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.escrow.Status != models.EscrowStatusHeld {
		return nil, repository.ErrEscrowNotHeld
	}
	r.escrow.Status = models.EscrowStatusReleased
	r.releases++
	released := *r.escrow
	return &released, nil
}

func (r *casEscrowRepo) EnsurePlatformAccount(ctx context.Context, id uuid.UUID) error {
	return nil
}

func (r *casEscrowRepo) GetEscrowByGigID(ctx context.Context, gigID uuid.UUID) (*models.Escrow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	snapshot := *r.escrow
	return &snapshot, nil
}

func (r *casEscrowRepo) GetEscrowByID(ctx context.Context, id uuid.UUID) (*models.Escrow, error) {
	return r.GetEscrowByGigID(ctx, id)
}

func TestEscrowService_ConfirmCompletion_ExactlyOncePayout(t *testing.T) {
	// Подтверждения обеих сторон приходят одновременно: выплата должна
	// пройти ровно один раз, проигравшая сторона получает существующий escrow.
	gigs := new(mockGigStateRepo)
	ctx := context.Background()

	poster := uuid.New()
	worker := uuid.New()
	gig := inProgressGig(poster, worker)
	confirmed := *gig
	confirmed.OwnerConfirmed = true
	confirmed.WorkerConfirmed = true

	repo := &casEscrowRepo{escrow: &models.Escrow{
		ID: uuid.New(), GigID: gig.ID, ClientID: poster, WorkerID: worker,
		Amount: 1000, Status: models.EscrowStatusHeld,
	}}
	svc := NewEscrowService(repo, gigs, nil, 10, uuid.New())

	gigs.On("GetByID", ctx, gig.ID).Return(gig, nil)
	gigs.On("Confirm", ctx, gig.ID, mock.Anything).Return(&confirmed, nil)

	var wg sync.WaitGroup
	results := make([]*models.Escrow, 2)
	errs := make([]error, 2)
	for i, userID := range []uuid.UUID{poster, worker} {
		wg.Add(1)
		go func(i int, userID uuid.UUID) {
			defer wg.Done()
			_, results[i], errs[i] = svc.ConfirmCompletion(ctx, gig.ID, userID)
		}(i, userID)
	}
	wg.Wait()

	assert.NoError(t, errs[0])
	assert.NoError(t, errs[1])
	for _, e := range results {
		assert.NotNil(t, e)
	}
	assert.Equal(t, 1, repo.releases, "выплата должна пройти ровно один раз")
	assert.Equal(t, models.EscrowStatusReleased, repo.escrow.Status)
}

func TestEscrowService_GetEscrow_ParticipantOnly(t *testing.T) {
	repo := new(mockEscrowRepo)
	gigs := new(mockGigStateRepo)
	svc := NewEscrowService(repo, gigs, nil, 10, uuid.New())
	ctx := context.Background()

	gigID := uuid.New()
	escrow := &models.Escrow{ID: uuid.New(), GigID: gigID, ClientID: uuid.New(), WorkerID: uuid.New(), Status: models.EscrowStatusHeld}
	repo.On("GetEscrowByGigID", ctx, gigID).Return(escrow, nil)

	_, err := svc.GetEscrow(ctx, gigID, uuid.New())
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	got, err := svc.GetEscrow(ctx, gigID, escrow.WorkerID)
	assert.NoError(t, err)
	assert.Equal(t, escrow, got)
}
