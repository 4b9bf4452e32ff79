package domain

import (
	"context"
	"errors"
	"time"
)

var ErrTaskNotFound = errors.New("task not found")

// TaskType is the micro-task category shown on the dashboard.
type TaskType string

const (
	TaskBreathing TaskType = "breathing"
	TaskWater     TaskType = "water"
	TaskWrite     TaskType = "write"
	TaskWalk      TaskType = "walk"
	TaskRefuse    TaskType = "refuse"
	TaskContact   TaskType = "contact"
	TaskOther     TaskType = "other"
)

func ValidTaskTypes() []TaskType {
	return []TaskType{TaskBreathing, TaskWater, TaskWrite, TaskWalk, TaskRefuse, TaskContact, TaskOther}
}

func (t TaskType) IsValid() bool {
	for _, valid := range ValidTaskTypes() {
		if t == valid {
			return true
		}
	}
	return false
}

// Task is one gamified micro-task, assigned to a weekday (0=Sunday..6).
type Task struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Type        TaskType   `json:"type"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Points      int        `json:"points"`
	Day         int        `json:"day"`
	CreatedAt   time.Time  `json:"created_at"`
}

type TaskRepository interface {
	CreateBatch(ctx context.Context, tasks []Task) error
	GetByID(ctx context.Context, id string) (*Task, error)
	// ListPending returns incomplete tasks assigned to the given weekday.
	ListPending(ctx context.Context, userID string, day int, limit int) ([]Task, error)
	// MarkCompleted flips the completion flag. Returns false when the task
	// was already completed, so points are never awarded twice.
	MarkCompleted(ctx context.Context, id string, at time.Time) (bool, error)
	CountByUser(ctx context.Context, userID string) (int, error)
}

type TaskUsecase interface {
	TodayTasks(ctx context.Context, userID string) ([]Task, error)
	CompleteTask(ctx context.Context, userID, taskID string) (*Task, error)
	// SeedDefaultPlan creates the starter week of micro-tasks after
	// onboarding. No-op if the user already has tasks.
	SeedDefaultPlan(ctx context.Context, userID string) error
}
