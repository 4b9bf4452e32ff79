package usecase

import (
	"context"
	"errors"
	"time"

	"respirapt-backend/internal/domain"
	"respirapt-backend/pkg/apperror"
	"respirapt-backend/pkg/logger"

	"github.com/google/uuid"
)

// dailyTaskLimit caps how many micro-tasks the dashboard shows per day.
const dailyTaskLimit = 5

type taskUsecase struct {
	taskRepo domain.TaskRepository
	progress domain.ProgressUsecase
	now      func() time.Time
}

func NewTaskUsecase(taskRepo domain.TaskRepository, progress domain.ProgressUsecase) domain.TaskUsecase {
	return &taskUsecase{taskRepo: taskRepo, progress: progress, now: time.Now}
}

func (u *taskUsecase) TodayTasks(ctx context.Context, userID string) ([]domain.Task, error) {
	day := int(u.now().Weekday())
	return u.taskRepo.ListPending(ctx, userID, day, dailyTaskLimit)
}

func (u *taskUsecase) CompleteTask(ctx context.Context, userID, taskID string) (*domain.Task, error) {
	task, err := u.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, domain.ErrTaskNotFound) {
			return nil, apperror.NotFound("Task not found")
		}
		return nil, err
	}
	if task.UserID != userID {
		return nil, apperror.Forbidden("You can only complete your own tasks")
	}

	now := u.now()
	awarded, err := u.taskRepo.MarkCompleted(ctx, taskID, now)
	if err != nil {
		return nil, err
	}

	if awarded {
		// Points are recorded only on the first completion, so a retried
		// request never double counts.
		if err := u.progress.RecordTaskCompletion(ctx, userID, task.Points); err != nil {
			logger.Log.Error("task completed but progress not recorded",
				"task_id", taskID, "user_id", userID, "error", err)
		}
		task.Completed = true
		task.CompletedAt = &now
	}

	return task, nil
}

func (u *taskUsecase) SeedDefaultPlan(ctx context.Context, userID string) error {
	count, err := u.taskRepo.CountByUser(ctx, userID)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	plan := defaultPlan(userID)
	return u.taskRepo.CreateBatch(ctx, plan)
}

type taskTemplate struct {
	title       string
	description string
	typ         domain.TaskType
	points      int
}

// starterTemplates is the daily rotation assigned right after onboarding.
// Every weekday gets the same base set; day-specific extras are appended
// below.
var starterTemplates = []taskTemplate{
	{"Deep breathing", "Do 10 slow deep breaths when a craving hits.", domain.TaskBreathing, 10},
	{"Drink a glass of water", "Replace the first cigarette urge with a full glass of water.", domain.TaskWater, 5},
	{"Write down a trigger", "Note one situation that made you want to smoke today.", domain.TaskWrite, 10},
	{"Take a short walk", "Walk for 5 minutes instead of taking a smoke break.", domain.TaskWalk, 15},
	{"Refuse one cigarette", "Say no to one cigarette you would normally smoke.", domain.TaskRefuse, 20},
}

var weekendExtra = taskTemplate{
	"Tell someone about your progress",
	"Share this week's progress with a friend or family member.",
	domain.TaskContact, 15,
}

func defaultPlan(userID string) []domain.Task {
	var tasks []domain.Task
	for day := 0; day < 7; day++ {
		templates := starterTemplates
		if day == 0 || day == 6 {
			templates = append(templates[:len(templates)-1:len(templates)-1], weekendExtra)
		}
		for _, tpl := range templates {
			tasks = append(tasks, domain.Task{
				ID:          uuid.NewString(),
				UserID:      userID,
				Title:       tpl.title,
				Description: tpl.description,
				Type:        tpl.typ,
				Points:      tpl.points,
				Day:         day,
			})
		}
	}
	return tasks
}
