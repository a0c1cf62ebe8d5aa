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

type mockApplicationRepo struct {
	mock.Mock
}

func (m *mockApplicationRepo) Create(ctx context.Context, app *models.Application) error {
	args := m.Called(ctx, app)
	return args.Error(0)
}

func (m *mockApplicationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Application), args.Error(1)
}

func (m *mockApplicationRepo) ListByGig(ctx context.Context, gigID uuid.UUID, limit, offset int) ([]models.Application, error) {
	args := m.Called(ctx, gigID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Application), args.Error(1)
}

func (m *mockApplicationRepo) ListByApplicant(ctx context.Context, applicantID uuid.UUID, limit, offset int) ([]models.Application, error) {
	args := m.Called(ctx, applicantID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Application), args.Error(1)
}

func (m *mockApplicationRepo) Accept(ctx context.Context, applicationID uuid.UUID) (*models.Application, *models.Gig, []models.Application, error) {
	args := m.Called(ctx, applicationID)
	var app *models.Application
	var gig *models.Gig
	var rejected []models.Application
	if args.Get(0) != nil {
		app = args.Get(0).(*models.Application)
	}
	if args.Get(1) != nil {
		gig = args.Get(1).(*models.Gig)
	}
	if args.Get(2) != nil {
		rejected = args.Get(2).([]models.Application)
	}
	return app, gig, rejected, args.Error(3)
}

func (m *mockApplicationRepo) Reject(ctx context.Context, applicationID uuid.UUID) (*models.Application, error) {
	args := m.Called(ctx, applicationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Application), args.Error(1)
}

const validCoverLetter = "Готов выполнить задачу, есть релевантный опыт."

func openGig(posterID uuid.UUID) *models.Gig {
	return &models.Gig{ID: uuid.New(), PosterID: posterID, Status: models.GigStatusOpen}
}

func TestApplicationService_Submit_Success(t *testing.T) {
	repo := new(mockApplicationRepo)
	gigs := new(mockGigRepo)
	notifier := &recordingNotifier{}
	svc := NewApplicationService(repo, gigs, notifier)
	ctx := context.Background()

	poster := uuid.New()
	applicant := uuid.New()
	gig := openGig(poster)

	gigs.On("GetByID", ctx, gig.ID).Return(gig, nil)
	repo.On("Create", ctx, mock.AnythingOfType("*models.Application")).Return(nil)

	app, err := svc.SubmitApplication(ctx, gig.ID, applicant, validCoverLetter)
	assert.NoError(t, err)
	assert.Equal(t, applicant, app.ApplicantID)
	assert.Equal(t, []string{models.NotificationApplicationReceived}, notifier.sent())
	assert.Equal(t, poster, notifier.users[0])
}

func TestApplicationService_Submit_GigNotOpen(t *testing.T) {
	repo := new(mockApplicationRepo)
	gigs := new(mockGigRepo)
	svc := NewApplicationService(repo, gigs, nil)
	ctx := context.Background()

	gig := &models.Gig{ID: uuid.New(), PosterID: uuid.New(), Status: models.GigStatusInProgress}
	gigs.On("GetByID", ctx, gig.ID).Return(gig, nil)

	_, err := svc.SubmitApplication(ctx, gig.ID, uuid.New(), validCoverLetter)
	assert.ErrorIs(t, err, apperror.ErrGigNotOpen)
}

func TestApplicationService_Submit_OwnGig(t *testing.T) {
	repo := new(mockApplicationRepo)
	gigs := new(mockGigRepo)
	svc := NewApplicationService(repo, gigs, nil)
	ctx := context.Background()

	poster := uuid.New()
	gig := openGig(poster)
	gigs.On("GetByID", ctx, gig.ID).Return(gig, nil)

	_, err := svc.SubmitApplication(ctx, gig.ID, poster, validCoverLetter)
	assert.True(t, apperror.IsForbidden(err))
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestApplicationService_Submit_Duplicate(t *testing.T) {
	repo := new(mockApplicationRepo)
	gigs := new(mockGigRepo)
	svc := NewApplicationService(repo, gigs, nil)
	ctx := context.Background()

	gig := openGig(uuid.New())
	gigs.On("GetByID", ctx, gig.ID).Return(gig, nil)
	repo.On("Create", ctx, mock.AnythingOfType("*models.Application")).Return(repository.ErrDuplicateApplication)

	_, err := svc.SubmitApplication(ctx, gig.ID, uuid.New(), validCoverLetter)
	assert.ErrorIs(t, err, apperror.ErrDuplicateApplication)
}

func TestApplicationService_Submit_ShortCoverLetter(t *testing.T) {
	repo := new(mockApplicationRepo)
	gigs := new(mockGigRepo)
	svc := NewApplicationService(repo, gigs, nil)
	ctx := context.Background()

	_, err := svc.SubmitApplication(ctx, uuid.New(), uuid.New(), "коротко")
	assert.True(t, apperror.IsValidation(err))
	gigs.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestApplicationService_Accept_OnlyPoster(t *testing.T) {
	repo := new(mockApplicationRepo)
	gigs := new(mockGigRepo)
	svc := NewApplicationService(repo, gigs, nil)
	ctx := context.Background()

	gig := openGig(uuid.New())
	app := &models.Application{ID: uuid.New(), GigID: gig.ID, ApplicantID: uuid.New(), Status: models.ApplicationStatusPending}

	repo.On("GetByID", ctx, app.ID).Return(app, nil)
	gigs.On("GetByID", ctx, gig.ID).Return(gig, nil)

	_, _, err := svc.AcceptApplication(ctx, app.ID, uuid.New())
	assert.ErrorIs(t, err, apperror.ErrForbidden)
	repo.AssertNotCalled(t, "Accept", mock.Anything, mock.Anything)
}

func TestApplicationService_Accept_AlreadyDecided(t *testing.T) {
	repo := new(mockApplicationRepo)
	gigs := new(mockGigRepo)
	svc := NewApplicationService(repo, gigs, nil)
	ctx := context.Background()

	poster := uuid.New()
	gig := openGig(poster)
	app := &models.Application{ID: uuid.New(), GigID: gig.ID, ApplicantID: uuid.New(), Status: models.ApplicationStatusRejected}

	repo.On("GetByID", ctx, app.ID).Return(app, nil)
	gigs.On("GetByID", ctx, gig.ID).Return(gig, nil)
	repo.On("Accept", ctx, app.ID).Return(nil, nil, nil, repository.ErrApplicationDecided)

	_, _, err := svc.AcceptApplication(ctx, app.ID, poster)
	assert.ErrorIs(t, err, apperror.ErrAlreadyDecided)
}

func TestApplicationService_Accept_NotifiesOnlyAutoRejected(t *testing.T) {
	// Уведомление об отклонении получают только заявки, отклонённые этим
	// принятием. Отклонённый вручную ранее второго уведомления не получает.
	repo := new(mockApplicationRepo)
	gigs := new(mockGigRepo)
	notifier := &recordingNotifier{}
	svc := NewApplicationService(repo, gigs, notifier)
	ctx := context.Background()

	poster := uuid.New()
	winner := uuid.New()
	loser := uuid.New()
	earlierRejected := uuid.New()
	gig := openGig(poster)
	app := &models.Application{ID: uuid.New(), GigID: gig.ID, ApplicantID: winner, Status: models.ApplicationStatusPending}

	accepted := *app
	accepted.Status = models.ApplicationStatusAccepted
	updatedGig := *gig
	updatedGig.Status = models.GigStatusInProgress
	updatedGig.WorkerID = &winner

	repo.On("GetByID", ctx, app.ID).Return(app, nil)
	gigs.On("GetByID", ctx, gig.ID).Return(gig, nil)
	// Репозиторий возвращает только pending-заявки, переведённые в rejected
	// этим вызовом; заявка earlierRejected в список не входит.
	repo.On("Accept", ctx, app.ID).Return(&accepted, &updatedGig, []models.Application{
		{ID: uuid.New(), GigID: gig.ID, ApplicantID: loser, Status: models.ApplicationStatusRejected},
	}, nil)

	gotApp, gotGig, err := svc.AcceptApplication(ctx, app.ID, poster)
	assert.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusAccepted, gotApp.Status)
	assert.Equal(t, models.GigStatusInProgress, gotGig.Status)
	assert.Equal(t, []string{
		models.NotificationApplicationAccepted,
		models.NotificationApplicationRejected,
	}, notifier.sent())
	assert.Equal(t, []uuid.UUID{winner, loser}, notifier.users)
	assert.NotContains(t, notifier.users, earlierRejected)
}

func TestApplicationService_Get_ParticipantOnly(t *testing.T) {
	repo := new(mockApplicationRepo)
	gigs := new(mockGigRepo)
	svc := NewApplicationService(repo, gigs, nil)
	ctx := context.Background()

	poster := uuid.New()
	applicant := uuid.New()
	gig := openGig(poster)
	app := &models.Application{ID: uuid.New(), GigID: gig.ID, ApplicantID: applicant}

	repo.On("GetByID", ctx, app.ID).Return(app, nil)
	gigs.On("GetByID", ctx, gig.ID).Return(gig, nil)

	// Автор заявки и заказчик имеют доступ, посторонний — нет.
	got, err := svc.GetApplication(ctx, app.ID, applicant)
	assert.NoError(t, err)
	assert.Equal(t, app, got)

	got, err = svc.GetApplication(ctx, app.ID, poster)
	assert.NoError(t, err)
	assert.Equal(t, app, got)

	_, err = svc.GetApplication(ctx, app.ID, uuid.New())
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}
