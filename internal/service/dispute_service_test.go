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

type mockDisputeRepo struct {
	mock.Mock
}

func (m *mockDisputeRepo) Create(ctx context.Context, d *models.Dispute) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *mockDisputeRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dispute), args.Error(1)
}

func (m *mockDisputeRepo) GetByGigID(ctx context.Context, gigID uuid.UUID) (*models.Dispute, error) {
	args := m.Called(ctx, gigID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dispute), args.Error(1)
}

func (m *mockDisputeRepo) Resolve(ctx context.Context, disputeID, resolvedBy uuid.UUID, status, resolution string) (*models.Dispute, error) {
	args := m.Called(ctx, disputeID, resolvedBy, status, resolution)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dispute), args.Error(1)
}

func (m *mockDisputeRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Dispute, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Dispute), args.Error(1)
}

const validReason = "Работа сдана не полностью, половина требований не выполнена."

func TestDisputeService_Open_RequiresFundedEscrow(t *testing.T) {
	repo := new(mockDisputeRepo)
	gigs := new(mockGigRepo)
	escrows := new(mockEscrowRepo)
	svc := NewDisputeService(repo, gigs, escrows, nil, 10, uuid.New())
	ctx := context.Background()

	poster := uuid.New()
	worker := uuid.New()
	gig := inProgressGig(poster, worker)

	gigs.On("GetByID", ctx, gig.ID).Return(gig, nil)
	escrows.On("GetEscrowByGigID", ctx, gig.ID).Return(nil, repository.ErrEscrowNotFound)

	_, err := svc.OpenDispute(ctx, gig.ID, poster, validReason)
	assert.True(t, apperror.IsInvalidState(err))
}

func TestDisputeService_Open_StrangerForbidden(t *testing.T) {
	repo := new(mockDisputeRepo)
	gigs := new(mockGigRepo)
	escrows := new(mockEscrowRepo)
	svc := NewDisputeService(repo, gigs, escrows, nil, 10, uuid.New())
	ctx := context.Background()

	gig := inProgressGig(uuid.New(), uuid.New())
	gigs.On("GetByID", ctx, gig.ID).Return(gig, nil)

	_, err := svc.OpenDispute(ctx, gig.ID, uuid.New(), validReason)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestDisputeService_Open_OnePerGig(t *testing.T) {
	repo := new(mockDisputeRepo)
	gigs := new(mockGigRepo)
	escrows := new(mockEscrowRepo)
	svc := NewDisputeService(repo, gigs, escrows, nil, 10, uuid.New())
	ctx := context.Background()

	poster := uuid.New()
	worker := uuid.New()
	gig := inProgressGig(poster, worker)
	escrow := &models.Escrow{ID: uuid.New(), GigID: gig.ID, ClientID: poster, WorkerID: worker, Status: models.EscrowStatusHeld}

	gigs.On("GetByID", ctx, gig.ID).Return(gig, nil)
	escrows.On("GetEscrowByGigID", ctx, gig.ID).Return(escrow, nil)
	repo.On("GetByGigID", ctx, gig.ID).Return(&models.Dispute{ID: uuid.New(), GigID: gig.ID}, nil)

	_, err := svc.OpenDispute(ctx, gig.ID, worker, validReason)
	assert.True(t, apperror.IsDuplicate(err))
}

func TestDisputeService_Open_MarksGigDisputed(t *testing.T) {
	repo := new(mockDisputeRepo)
	gigs := new(mockGigRepo)
	escrows := new(mockEscrowRepo)
	notifier := &recordingNotifier{}
	svc := NewDisputeService(repo, gigs, escrows, notifier, 10, uuid.New())
	ctx := context.Background()

	poster := uuid.New()
	worker := uuid.New()
	gig := inProgressGig(poster, worker)
	escrow := &models.Escrow{ID: uuid.New(), GigID: gig.ID, ClientID: poster, WorkerID: worker, Status: models.EscrowStatusHeld}
	disputed := *gig
	disputed.Status = models.GigStatusDisputed

	gigs.On("GetByID", ctx, gig.ID).Return(gig, nil)
	escrows.On("GetEscrowByGigID", ctx, gig.ID).Return(escrow, nil)
	repo.On("GetByGigID", ctx, gig.ID).Return(nil, repository.ErrDisputeNotFound)
	gigs.On("MarkDisputed", ctx, gig.ID).Return(&disputed, nil)
	repo.On("Create", ctx, mock.AnythingOfType("*models.Dispute")).Return(nil)

	dispute, err := svc.OpenDispute(ctx, gig.ID, worker, validReason)
	assert.NoError(t, err)
	assert.Equal(t, models.DisputeStatusOpen, dispute.Status)
	assert.Equal(t, escrow.ID, dispute.EscrowID)

	// Заказчик узнаёт о споре, который открыл исполнитель.
	assert.Equal(t, []string{models.NotificationGigDisputed}, notifier.sent())
	assert.Equal(t, poster, notifier.users[0])
}

func TestDisputeService_Resolve_WorkerFavorReleases(t *testing.T) {
	repo := new(mockDisputeRepo)
	gigs := new(mockGigRepo)
	escrows := new(mockEscrowRepo)
	notifier := &recordingNotifier{}
	platformID := uuid.New()
	svc := NewDisputeService(repo, gigs, escrows, notifier, 10, platformID)
	ctx := context.Background()

	operator := uuid.New()
	poster := uuid.New()
	worker := uuid.New()
	escrow := &models.Escrow{ID: uuid.New(), GigID: uuid.New(), ClientID: poster, WorkerID: worker, Amount: 1000, Status: models.EscrowStatusHeld}
	dispute := &models.Dispute{ID: uuid.New(), EscrowID: escrow.ID, GigID: escrow.GigID, InitiatorID: worker, Status: models.DisputeStatusOpen}

	released := *escrow
	released.Status = models.EscrowStatusReleased
	resolved := *dispute
	resolved.Status = models.DisputeStatusResolvedWorker

	repo.On("GetByID", ctx, dispute.ID).Return(dispute, nil)
	escrows.On("GetEscrowByID", ctx, escrow.ID).Return(escrow, nil)
	escrows.On("ReleaseEscrow", ctx, escrow.ID, float64(10), platformID).Return(&released, nil)
	repo.On("Resolve", ctx, dispute.ID, operator, models.DisputeStatusResolvedWorker, "работа выполнена").Return(&resolved, nil)

	got, err := svc.ResolveDispute(ctx, dispute.ID, operator, true, "работа выполнена")
	assert.NoError(t, err)
	assert.Equal(t, models.DisputeStatusResolvedWorker, got.Status)
	assert.Equal(t, []string{models.NotificationEscrowReleased, models.NotificationEscrowReleased}, notifier.sent())
	gigs.AssertNotCalled(t, "Cancel", mock.Anything, mock.Anything)
}

func TestDisputeService_Resolve_ClientFavorRefunds(t *testing.T) {
	repo := new(mockDisputeRepo)
	gigs := new(mockGigRepo)
	escrows := new(mockEscrowRepo)
	notifier := &recordingNotifier{}
	svc := NewDisputeService(repo, gigs, escrows, notifier, 10, uuid.New())
	ctx := context.Background()

	operator := uuid.New()
	poster := uuid.New()
	worker := uuid.New()
	escrow := &models.Escrow{ID: uuid.New(), GigID: uuid.New(), ClientID: poster, WorkerID: worker, Amount: 1000, Status: models.EscrowStatusHeld}
	dispute := &models.Dispute{ID: uuid.New(), EscrowID: escrow.ID, GigID: escrow.GigID, InitiatorID: poster, Status: models.DisputeStatusOpen}

	cancelledGig := &models.Gig{ID: escrow.GigID, PosterID: poster, WorkerID: &worker, Status: models.GigStatusCancelled}
	refunded := *escrow
	refunded.Status = models.EscrowStatusRefunded
	resolved := *dispute
	resolved.Status = models.DisputeStatusResolvedClient

	repo.On("GetByID", ctx, dispute.ID).Return(dispute, nil)
	escrows.On("GetEscrowByID", ctx, escrow.ID).Return(escrow, nil)
	gigs.On("Cancel", ctx, escrow.GigID).Return(cancelledGig, &refunded, nil)
	repo.On("Resolve", ctx, dispute.ID, operator, models.DisputeStatusResolvedClient, "возврат заказчику").Return(&resolved, nil)

	got, err := svc.ResolveDispute(ctx, dispute.ID, operator, false, "возврат заказчику")
	assert.NoError(t, err)
	assert.Equal(t, models.DisputeStatusResolvedClient, got.Status)
	assert.Equal(t, []string{models.NotificationEscrowRefunded, models.NotificationEscrowRefunded}, notifier.sent())
	escrows.AssertNotCalled(t, "ReleaseEscrow", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDisputeService_Resolve_AlreadyResolved(t *testing.T) {
	repo := new(mockDisputeRepo)
	gigs := new(mockGigRepo)
	escrows := new(mockEscrowRepo)
	svc := NewDisputeService(repo, gigs, escrows, nil, 10, uuid.New())
	ctx := context.Background()

	dispute := &models.Dispute{ID: uuid.New(), Status: models.DisputeStatusResolvedWorker}
	repo.On("GetByID", ctx, dispute.ID).Return(dispute, nil)

	_, err := svc.ResolveDispute(ctx, dispute.ID, uuid.New(), true, "повторно")
	assert.True(t, apperror.IsInvalidState(err))
}

func TestDisputeService_Get_OperatorBypassesParticipantCheck(t *testing.T) {
	repo := new(mockDisputeRepo)
	gigs := new(mockGigRepo)
	escrows := new(mockEscrowRepo)
	svc := NewDisputeService(repo, gigs, escrows, nil, 10, uuid.New())
	ctx := context.Background()

	escrow := &models.Escrow{ID: uuid.New(), ClientID: uuid.New(), WorkerID: uuid.New()}
	dispute := &models.Dispute{ID: uuid.New(), EscrowID: escrow.ID, Status: models.DisputeStatusOpen}

	repo.On("GetByID", ctx, dispute.ID).Return(dispute, nil)
	escrows.On("GetEscrowByID", ctx, escrow.ID).Return(escrow, nil)

	_, err := svc.GetDispute(ctx, dispute.ID, uuid.New(), false)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	got, err := svc.GetDispute(ctx, dispute.ID, uuid.New(), true)
	assert.NoError(t, err)
	assert.Equal(t, dispute, got)
}
