package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"respirapt-backend/internal/domain"
	"respirapt-backend/internal/usecase"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// Mock Repositories

type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}
func (m *MockUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}
func (m *MockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}
func (m *MockUserRepo) Update(ctx context.Context, user *domain.User) error {
	return m.Called(ctx, user).Error(0)
}
func (m *MockUserRepo) RelinkByEmail(ctx context.Context, email, newID string) (*domain.User, error) {
	args := m.Called(ctx, email, newID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}
func (m *MockUserRepo) CompleteOnboarding(ctx context.Context, userID string, in domain.OnboardingInput) (*domain.User, error) {
	args := m.Called(ctx, userID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}
func (m *MockUserRepo) SetPremium(ctx context.Context, userID string, premium bool) error {
	return m.Called(ctx, userID, premium).Error(0)
}

type MockTaskRepo struct {
	mock.Mock
}

func (m *MockTaskRepo) CreateBatch(ctx context.Context, tasks []domain.Task) error {
	return m.Called(ctx, tasks).Error(0)
}
func (m *MockTaskRepo) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Task), args.Error(1)
}
func (m *MockTaskRepo) ListPending(ctx context.Context, userID string, day int, limit int) ([]domain.Task, error) {
	args := m.Called(ctx, userID, day, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Task), args.Error(1)
}
func (m *MockTaskRepo) MarkCompleted(ctx context.Context, id string, at time.Time) (bool, error) {
	args := m.Called(ctx, id, at)
	return args.Bool(0), args.Error(1)
}
func (m *MockTaskRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

type MockProgressRepo struct {
	mock.Mock
}

func (m *MockProgressRepo) GetByDate(ctx context.Context, userID string, date time.Time) (*domain.Progress, error) {
	args := m.Called(ctx, userID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Progress), args.Error(1)
}
func (m *MockProgressRepo) Upsert(ctx context.Context, p *domain.Progress) error {
	return m.Called(ctx, p).Error(0)
}
func (m *MockProgressRepo) ListRange(ctx context.Context, userID string, from, to time.Time) ([]domain.Progress, error) {
	args := m.Called(ctx, userID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Progress), args.Error(1)
}
func (m *MockProgressRepo) Totals(ctx context.Context, userID string) (int, int, int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Int(1), args.Int(2), args.Error(3)
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateCheckoutSession(ctx context.Context, userID, email, priceID string) (*domain.CheckoutSession, error) {
	args := m.Called(ctx, userID, email, priceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CheckoutSession), args.Error(1)
}
func (m *MockGateway) RetrieveSession(ctx context.Context, sessionID string) (*domain.CheckoutStatus, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CheckoutStatus), args.Error(1)
}

func TestEnsureProfileExists(t *testing.T) {
	ctx := context.Background()
	incoming := &domain.User{ID: "new-id", Email: "ana@example.pt"}

	t.Run("Returns existing row when ID matches", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		uc := usecase.NewAuthUsecase(mockRepo)

		existing := &domain.User{ID: "new-id", Email: "ana@example.pt", Premium: true}
		mockRepo.On("GetByID", ctx, "new-id").Return(existing, nil)

		got, err := uc.EnsureProfileExists(ctx, incoming)
		assert.NoError(t, err)
		assert.True(t, got.Premium)
		mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("Relinks row when email exists under old ID", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		uc := usecase.NewAuthUsecase(mockRepo)

		old := &domain.User{ID: "old-id", Email: "ana@example.pt", OnboardingCompleted: true}
		relinked := &domain.User{ID: "new-id", Email: "ana@example.pt", OnboardingCompleted: true}
		mockRepo.On("GetByID", ctx, "new-id").Return(nil, domain.ErrProfileNotFound)
		mockRepo.On("GetByEmail", ctx, "ana@example.pt").Return(old, nil)
		mockRepo.On("RelinkByEmail", ctx, "ana@example.pt", "new-id").Return(relinked, nil)

		got, err := uc.EnsureProfileExists(ctx, incoming)
		assert.NoError(t, err)
		assert.Equal(t, "new-id", got.ID)
		assert.True(t, got.OnboardingCompleted)
		mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("Creates row for a brand new user", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		uc := usecase.NewAuthUsecase(mockRepo)

		mockRepo.On("GetByID", ctx, "new-id").Return(nil, domain.ErrProfileNotFound)
		mockRepo.On("GetByEmail", ctx, "ana@example.pt").Return(nil, domain.ErrProfileNotFound)
		mockRepo.On("Create", ctx, incoming).Return(incoming, nil)

		got, err := uc.EnsureProfileExists(ctx, incoming)
		assert.NoError(t, err)
		assert.Equal(t, "new-id", got.ID)
	})

	t.Run("Falls back to lookup when the signup trigger wins the race", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		uc := usecase.NewAuthUsecase(mockRepo)

		row := &domain.User{ID: "new-id", Email: "ana@example.pt"}
		mockRepo.On("GetByID", ctx, "new-id").Return(nil, domain.ErrProfileNotFound).Once()
		mockRepo.On("GetByEmail", ctx, "ana@example.pt").Return(nil, domain.ErrProfileNotFound)
		mockRepo.On("Create", ctx, incoming).Return(nil, domain.ErrProfileExists)
		mockRepo.On("GetByID", ctx, "new-id").Return(row, nil).Once()

		got, err := uc.EnsureProfileExists(ctx, incoming)
		assert.NoError(t, err)
		assert.Equal(t, "new-id", got.ID)
	})
}

func TestOnboardingValidation(t *testing.T) {
	ctx := context.Background()
	validate := validator.New()

	t.Run("Rejects missing fields", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		uc := usecase.NewOnboardingUsecase(mockRepo, nil, validate)

		_, err := uc.Complete(ctx, "u1", domain.OnboardingInput{})
		assert.Error(t, err)
		mockRepo.AssertNotCalled(t, "CompleteOnboarding", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Rejects unknown goal", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		uc := usecase.NewOnboardingUsecase(mockRepo, nil, validate)

		_, err := uc.Complete(ctx, "u1", domain.OnboardingInput{
			CigarettesPerDay: 10, Goal: "quit-someday", Method: "cold_turkey",
		})
		assert.Error(t, err)
	})

	t.Run("Stores answers and seeds the starter plan", func(t *testing.T) {
		mockUsers := new(MockUserRepo)
		mockTasks := new(MockTaskRepo)
		tasksUC := usecase.NewTaskUsecase(mockTasks, nil)
		uc := usecase.NewOnboardingUsecase(mockUsers, tasksUC, validate)

		in := domain.OnboardingInput{CigarettesPerDay: 15, Goal: domain.GoalStop, Method: "gradual"}
		goal := domain.GoalStop
		cpd := 15
		updated := &domain.User{ID: "u1", OnboardingCompleted: true, CigarettesPerDay: &cpd, Goal: &goal}

		mockUsers.On("CompleteOnboarding", ctx, "u1", in).Return(updated, nil)
		mockTasks.On("CountByUser", ctx, "u1").Return(0, nil)
		mockTasks.On("CreateBatch", ctx, mock.AnythingOfType("[]domain.Task")).Return(nil).Run(func(args mock.Arguments) {
			plan := args.Get(1).([]domain.Task)
			assert.NotEmpty(t, plan)
			days := map[int]bool{}
			for _, task := range plan {
				assert.Equal(t, "u1", task.UserID)
				assert.True(t, task.Type.IsValid())
				days[task.Day] = true
			}
			assert.Len(t, days, 7)
		})

		got, err := uc.Complete(ctx, "u1", in)
		assert.NoError(t, err)
		assert.True(t, got.OnboardingCompleted)
		mockTasks.AssertExpectations(t)
	})

	t.Run("Does not reseed an existing plan", func(t *testing.T) {
		mockTasks := new(MockTaskRepo)
		tasksUC := usecase.NewTaskUsecase(mockTasks, nil)

		mockTasks.On("CountByUser", ctx, "u1").Return(12, nil)

		err := tasksUC.SeedDefaultPlan(ctx, "u1")
		assert.NoError(t, err)
		mockTasks.AssertNotCalled(t, "CreateBatch", mock.Anything, mock.Anything)
	})
}

func TestCompleteTask(t *testing.T) {
	ctx := context.Background()

	t.Run("Should fail when the task belongs to someone else", func(t *testing.T) {
		mockTasks := new(MockTaskRepo)
		uc := usecase.NewTaskUsecase(mockTasks, nil)

		mockTasks.On("GetByID", ctx, "t1").Return(&domain.Task{ID: "t1", UserID: "owner"}, nil)

		_, err := uc.CompleteTask(ctx, "intruder", "t1")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "your own tasks")
		mockTasks.AssertNotCalled(t, "MarkCompleted", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Awards points on first completion", func(t *testing.T) {
		mockTasks := new(MockTaskRepo)
		mockProgress := new(MockProgressRepo)
		progressUC := usecase.NewProgressUsecase(mockProgress, new(MockUserRepo), 25, 11)
		uc := usecase.NewTaskUsecase(mockTasks, progressUC)

		mockTasks.On("GetByID", ctx, "t1").Return(&domain.Task{ID: "t1", UserID: "u1", Points: 20}, nil)
		mockTasks.On("MarkCompleted", ctx, "t1", mock.AnythingOfType("time.Time")).Return(true, nil)
		mockProgress.On("GetByDate", ctx, "u1", mock.AnythingOfType("time.Time")).Return(nil, domain.ErrProgressNotFound)
		mockProgress.On("Upsert", ctx, mock.AnythingOfType("*domain.Progress")).Return(nil).Run(func(args mock.Arguments) {
			p := args.Get(1).(*domain.Progress)
			assert.Equal(t, 1, p.TasksCompleted)
			assert.Equal(t, 20, p.PointsEarned)
			assert.NotEmpty(t, p.ID)
		})

		task, err := uc.CompleteTask(ctx, "u1", "t1")
		assert.NoError(t, err)
		assert.True(t, task.Completed)
		assert.NotNil(t, task.CompletedAt)
		mockProgress.AssertExpectations(t)
	})

	t.Run("Never awards points twice", func(t *testing.T) {
		mockTasks := new(MockTaskRepo)
		mockProgress := new(MockProgressRepo)
		progressUC := usecase.NewProgressUsecase(mockProgress, new(MockUserRepo), 25, 11)
		uc := usecase.NewTaskUsecase(mockTasks, progressUC)

		done := time.Now().Add(-time.Hour)
		mockTasks.On("GetByID", ctx, "t1").Return(&domain.Task{
			ID: "t1", UserID: "u1", Points: 20, Completed: true, CompletedAt: &done,
		}, nil)
		mockTasks.On("MarkCompleted", ctx, "t1", mock.AnythingOfType("time.Time")).Return(false, nil)

		task, err := uc.CompleteTask(ctx, "u1", "t1")
		assert.NoError(t, err)
		assert.True(t, task.Completed)
		mockProgress.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	})
}

func TestLogCigarettes(t *testing.T) {
	ctx := context.Background()

	newUC := func(users *MockUserRepo, progress *MockProgressRepo) domain.ProgressUsecase {
		return usecase.NewProgressUsecase(progress, users, 25, 11)
	}

	t.Run("Derives savings from the onboarding baseline", func(t *testing.T) {
		mockUsers := new(MockUserRepo)
		mockProgress := new(MockProgressRepo)
		uc := newUC(mockUsers, mockProgress)

		cpd := 20
		mockUsers.On("GetByID", ctx, "u1").Return(&domain.User{ID: "u1", CigarettesPerDay: &cpd}, nil)
		mockProgress.On("GetByDate", ctx, "u1", mock.AnythingOfType("time.Time")).Return(nil, domain.ErrProgressNotFound)
		mockProgress.On("Upsert", ctx, mock.AnythingOfType("*domain.Progress")).Return(nil)

		p, err := uc.LogCigarettes(ctx, "u1", 5)
		assert.NoError(t, err)
		assert.Equal(t, 5, p.CigarettesSmoked)
		assert.Equal(t, 15*25, p.MoneySavedCents)
		assert.Equal(t, 15*11, p.TimeGainedMinutes)
		assert.Equal(t, 0, p.Streak)
	})

	t.Run("Smoking above the baseline never goes negative", func(t *testing.T) {
		mockUsers := new(MockUserRepo)
		mockProgress := new(MockProgressRepo)
		uc := newUC(mockUsers, mockProgress)

		cpd := 10
		mockUsers.On("GetByID", ctx, "u1").Return(&domain.User{ID: "u1", CigarettesPerDay: &cpd}, nil)
		mockProgress.On("GetByDate", ctx, "u1", mock.AnythingOfType("time.Time")).Return(nil, domain.ErrProgressNotFound)
		mockProgress.On("Upsert", ctx, mock.AnythingOfType("*domain.Progress")).Return(nil)

		p, err := uc.LogCigarettes(ctx, "u1", 14)
		assert.NoError(t, err)
		assert.Equal(t, 0, p.MoneySavedCents)
		assert.Equal(t, 0, p.TimeGainedMinutes)
	})

	t.Run("Smoke-free day extends yesterday's streak", func(t *testing.T) {
		mockUsers := new(MockUserRepo)
		mockProgress := new(MockProgressRepo)
		uc := newUC(mockUsers, mockProgress)

		cpd := 10
		mockUsers.On("GetByID", ctx, "u1").Return(&domain.User{ID: "u1", CigarettesPerDay: &cpd}, nil)

		today := time.Now().UTC().Truncate(24 * time.Hour)
		mockProgress.On("GetByDate", ctx, "u1", today).Return(nil, domain.ErrProgressNotFound)
		mockProgress.On("GetByDate", ctx, "u1", today.AddDate(0, 0, -1)).Return(&domain.Progress{Streak: 4}, nil)
		mockProgress.On("Upsert", ctx, mock.AnythingOfType("*domain.Progress")).Return(nil)

		p, err := uc.LogCigarettes(ctx, "u1", 0)
		assert.NoError(t, err)
		assert.Equal(t, 5, p.Streak)
	})

	t.Run("Rejects negative counts", func(t *testing.T) {
		uc := newUC(new(MockUserRepo), new(MockProgressRepo))
		_, err := uc.LogCigarettes(ctx, "u1", -1)
		assert.Error(t, err)
	})
}

func TestProgressSummary(t *testing.T) {
	ctx := context.Background()

	mockUsers := new(MockUserRepo)
	mockProgress := new(MockProgressRepo)
	uc := usecase.NewProgressUsecase(mockProgress, mockUsers, 25, 11)

	mockProgress.On("Totals", ctx, "u1").Return(250, 18, 3750, nil)
	mockProgress.On("GetByDate", ctx, "u1", mock.AnythingOfType("time.Time")).Return(&domain.Progress{Streak: 3}, nil)

	summary, err := uc.Summary(ctx, "u1")
	assert.NoError(t, err)
	assert.Equal(t, 250, summary.TotalPoints)
	assert.Equal(t, 3, summary.Level)
	assert.Equal(t, 3750, summary.TotalMoneySavedCents)
	assert.Equal(t, 18, summary.TotalTasksCompleted)
	assert.Equal(t, 3, summary.CurrentStreak)
}

func TestHandlePaymentEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("Checkout completion grants premium", func(t *testing.T) {
		mockUsers := new(MockUserRepo)
		uc := usecase.NewBillingUsecase(new(MockGateway), mockUsers)

		mockUsers.On("SetPremium", ctx, "u1", true).Return(nil)

		err := uc.HandleEvent(ctx, domain.PaymentEvent{Kind: domain.EventCheckoutCompleted, UserID: "u1"})
		assert.NoError(t, err)
		mockUsers.AssertExpectations(t)
	})

	t.Run("Subscription deletion revokes premium", func(t *testing.T) {
		mockUsers := new(MockUserRepo)
		uc := usecase.NewBillingUsecase(new(MockGateway), mockUsers)

		mockUsers.On("SetPremium", ctx, "u1", false).Return(nil)

		err := uc.HandleEvent(ctx, domain.PaymentEvent{Kind: domain.EventSubscriptionDeleted, UserID: "u1"})
		assert.NoError(t, err)
		mockUsers.AssertExpectations(t)
	})

	t.Run("Duplicate deliveries are harmless", func(t *testing.T) {
		mockUsers := new(MockUserRepo)
		uc := usecase.NewBillingUsecase(new(MockGateway), mockUsers)

		mockUsers.On("SetPremium", ctx, "u1", true).Return(nil).Twice()

		evt := domain.PaymentEvent{Kind: domain.EventCheckoutCompleted, UserID: "u1"}
		assert.NoError(t, uc.HandleEvent(ctx, evt))
		assert.NoError(t, uc.HandleEvent(ctx, evt))
		mockUsers.AssertExpectations(t)
	})

	t.Run("Unrelated event kinds are acknowledged and skipped", func(t *testing.T) {
		mockUsers := new(MockUserRepo)
		uc := usecase.NewBillingUsecase(new(MockGateway), mockUsers)

		err := uc.HandleEvent(ctx, domain.PaymentEvent{Kind: "invoice.paid", UserID: "u1"})
		assert.NoError(t, err)
		mockUsers.AssertNotCalled(t, "SetPremium", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Unknown user is logged, not retried", func(t *testing.T) {
		mockUsers := new(MockUserRepo)
		uc := usecase.NewBillingUsecase(new(MockGateway), mockUsers)

		mockUsers.On("SetPremium", ctx, "ghost", true).Return(domain.ErrProfileNotFound)

		err := uc.HandleEvent(ctx, domain.PaymentEvent{Kind: domain.EventCheckoutCompleted, UserID: "ghost"})
		assert.NoError(t, err)
	})

	t.Run("Missing user reference is skipped", func(t *testing.T) {
		mockUsers := new(MockUserRepo)
		uc := usecase.NewBillingUsecase(new(MockGateway), mockUsers)

		err := uc.HandleEvent(ctx, domain.PaymentEvent{Kind: domain.EventCheckoutCompleted})
		assert.NoError(t, err)
		mockUsers.AssertNotCalled(t, "SetPremium", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Storage failure propagates so the provider retries", func(t *testing.T) {
		mockUsers := new(MockUserRepo)
		uc := usecase.NewBillingUsecase(new(MockGateway), mockUsers)

		mockUsers.On("SetPremium", ctx, "u1", true).Return(errors.New("connection refused"))

		err := uc.HandleEvent(ctx, domain.PaymentEvent{Kind: domain.EventCheckoutCompleted, UserID: "u1"})
		assert.Error(t, err)
	})
}
