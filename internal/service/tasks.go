package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Codewithsubhasree/PRAGATIPATH1234/internal/model"
	"github.com/Codewithsubhasree/PRAGATIPATH1234/internal/repository"
	"github.com/Codewithsubhasree/PRAGATIPATH1234/pkg/logger"
	"go.uber.org/zap"
)

const (
	DefaultMinPayout int64 = 10
	DefaultMaxPayout int64 = 5000
)

type TaskConfig struct {
	MinPayout int64 `mapstructure:"minPayout"`
	MaxPayout int64 `mapstructure:"maxPayout"`
}

type CreateTaskInput struct {
	Title       string
	Description string
	Payout      int64
	Creator     string
}

type TaskService struct {
	tasks  TaskRepository
	proofs ProofRepository
	users  ReferralReader
	cfg    TaskConfig
}

func NewTaskService(tasks TaskRepository, proofs ProofRepository, users ReferralReader, cfg TaskConfig) *TaskService {
	if cfg.MinPayout <= 0 {
		cfg.MinPayout = DefaultMinPayout
	}
	if cfg.MaxPayout < cfg.MinPayout {
		cfg.MaxPayout = DefaultMaxPayout
	}
	return &TaskService{
		tasks:  tasks,
		proofs: proofs,
		users:  users,
		cfg:    cfg,
	}
}

func (s *TaskService) CreateTask(ctx context.Context, in CreateTaskInput) (*model.Task, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, fmt.Errorf("%w: task title is required", ErrInvalidInput)
	}
	if in.Payout < s.cfg.MinPayout || in.Payout > s.cfg.MaxPayout {
		return nil, fmt.Errorf("%w: payout must be between %d and %d", ErrInvalidInput, s.cfg.MinPayout, s.cfg.MaxPayout)
	}

	if _, err := requireRole(ctx, s.users, in.Creator, model.RoleAdmin, model.RoleCoadmin); err != nil {
		return nil, err
	}

	task := &model.Task{
		Title:       in.Title,
		Description: strings.TrimSpace(in.Description),
		Payout:      in.Payout,
		CreatedBy:   in.Creator,
		CreatedDate: time.Now().UTC(),
	}
	if err := s.tasks.CreateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	logger.Logger().Info("task created",
		zap.String("title", task.Title),
		zap.Int64("payout", task.Payout),
		zap.String("created_by", task.CreatedBy))

	return task, nil
}

// ListTasksFor returns every task. For a member each task carries the status of the
// member's own submission, if one exists.
func (s *TaskService) ListTasksFor(ctx context.Context, viewer *model.User) ([]*model.TaskView, error) {
	tasks, err := s.tasks.ListTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	statuses := map[string]model.ProofStatus{}
	if viewer != nil && viewer.Role == model.RoleMember {
		submissions, err := s.proofs.ListSubmissions(ctx, model.ProofFilter{Member: viewer.Username})
		if err != nil {
			return nil, fmt.Errorf("failed to list submissions: %w", err)
		}
		for _, sub := range submissions {
			statuses[sub.TaskTitle] = sub.Status
		}
	}

	views := make([]*model.TaskView, len(tasks))
	for i, task := range tasks {
		view := &model.TaskView{Task: *task}
		if status, ok := statuses[task.Title]; ok {
			view.SubmissionStatus = &status
		}
		views[i] = view
	}

	return views, nil
}

func (s *TaskService) TasksByCreator(ctx context.Context, username string) ([]*model.Task, error) {
	tasks, err := s.tasks.ListTasksByCreator(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

func (s *TaskService) taskByTitle(ctx context.Context, title string) (*model.Task, error) {
	task, err := s.tasks.FindTaskByTitle(ctx, title)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return task, nil
}
