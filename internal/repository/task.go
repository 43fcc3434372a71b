package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Codewithsubhasree/PRAGATIPATH1234/internal/model"

	"github.com/Masterminds/squirrel"
)

type Task struct {
	ID          int64     `db:"id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	Payout      int64     `db:"payout"`
	CreatedBy   string    `db:"created_by"`
	CreatedDate time.Time `db:"created_date"`
}

func (t *Task) toModel() *model.Task {
	return &model.Task{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Payout:      t.Payout,
		CreatedBy:   t.CreatedBy,
		CreatedDate: t.CreatedDate,
	}
}

func (r *Repository) CreateTask(ctx context.Context, task *model.Task) error {
	query, args, err := psql.
		Insert("tasks").
		SetMap(map[string]interface{}{
			"title":        task.Title,
			"description":  task.Description,
			"payout":       task.Payout,
			"created_by":   task.CreatedBy,
			"created_date": task.CreatedDate,
		}).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build task insert query: %w", err)
	}

	if err = r.conn(ctx).QueryRowxContext(ctx, query, args...).Scan(&task.ID); err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}

	return nil
}

func (r *Repository) listTasksWhere(ctx context.Context, where squirrel.Sqlizer) ([]*model.Task, error) {
	builder := psql.
		Select("id", "title", "description", "payout", "created_by", "created_date").
		From("tasks").
		OrderBy("id")
	if where != nil {
		builder = builder.Where(where)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	var tasks []Task
	if err = r.conn(ctx).SelectContext(ctx, &tasks, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	out := make([]*model.Task, len(tasks))
	for i := range tasks {
		out[i] = tasks[i].toModel()
	}
	return out, nil
}

func (r *Repository) ListTasks(ctx context.Context) ([]*model.Task, error) {
	return r.listTasksWhere(ctx, nil)
}

func (r *Repository) ListTasksByCreator(ctx context.Context, username string) ([]*model.Task, error) {
	return r.listTasksWhere(ctx, squirrel.Eq{"created_by": username})
}

// FindTaskByTitle returns the earliest task with the given title.
func (r *Repository) FindTaskByTitle(ctx context.Context, title string) (*model.Task, error) {
	query, args, err := psql.
		Select("id", "title", "description", "payout", "created_by", "created_date").
		From("tasks").
		Where(squirrel.Eq{"title": title}).
		OrderBy("id").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, err
	}

	var task Task
	err = r.conn(ctx).GetContext(ctx, &task, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return task.toModel(), nil
}
