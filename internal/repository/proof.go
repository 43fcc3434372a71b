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

var proofColumns = []string{
	"submission_key",
	"task_title",
	"task_payout",
	"member_username",
	"proof_file",
	"status",
	"submitted_date",
	"coadmin_username",
	"approved_by_admin",
}

type ProofSubmission struct {
	Key             string    `db:"submission_key"`
	TaskTitle       string    `db:"task_title"`
	TaskPayout      int64     `db:"task_payout"`
	MemberUsername  string    `db:"member_username"`
	ProofFile       string    `db:"proof_file"`
	Status          string    `db:"status"`
	SubmittedDate   time.Time `db:"submitted_date"`
	CoadminUsername string    `db:"coadmin_username"`
	ApprovedByAdmin bool      `db:"approved_by_admin"`
}

func (p *ProofSubmission) toModel() *model.ProofSubmission {
	return &model.ProofSubmission{
		Key:             p.Key,
		TaskTitle:       p.TaskTitle,
		TaskPayout:      p.TaskPayout,
		MemberUsername:  p.MemberUsername,
		ProofFile:       p.ProofFile,
		Status:          model.ProofStatus(p.Status),
		SubmittedDate:   p.SubmittedDate,
		CoadminUsername: p.CoadminUsername,
		ApprovedByAdmin: p.ApprovedByAdmin,
	}
}

// CreateSubmission fails with ErrDuplicateKey when the key or the (member, task title)
// pair is already taken.
func (r *Repository) CreateSubmission(ctx context.Context, s *model.ProofSubmission) error {
	query, args, err := psql.
		Insert("proof_submissions").
		SetMap(map[string]interface{}{
			"submission_key":    s.Key,
			"task_title":        s.TaskTitle,
			"task_payout":       s.TaskPayout,
			"member_username":   s.MemberUsername,
			"proof_file":        s.ProofFile,
			"status":            string(s.Status),
			"submitted_date":    s.SubmittedDate,
			"coadmin_username":  s.CoadminUsername,
			"approved_by_admin": s.ApprovedByAdmin,
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build proof insert query: %w", err)
	}

	_, err = r.conn(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("failed to insert proof submission: %w", err)
	}

	return nil
}

func (r *Repository) getSubmissionWhere(ctx context.Context, where squirrel.Sqlizer) (*model.ProofSubmission, error) {
	query, args, err := psql.
		Select(proofColumns...).
		From("proof_submissions").
		Where(where).
		Suffix(lockSuffix(ctx)).
		ToSql()
	if err != nil {
		return nil, err
	}

	var s ProofSubmission
	err = r.conn(ctx).GetContext(ctx, &s, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return s.toModel(), nil
}

func (r *Repository) GetSubmission(ctx context.Context, key string) (*model.ProofSubmission, error) {
	return r.getSubmissionWhere(ctx, squirrel.Eq{"submission_key": key})
}

func (r *Repository) FindSubmission(ctx context.Context, member, taskTitle string) (*model.ProofSubmission, error) {
	return r.getSubmissionWhere(ctx, squirrel.Eq{
		"member_username": member,
		"task_title":      taskTitle,
	})
}

// UpdateSubmission persists the mutable decision fields of a submission.
func (r *Repository) UpdateSubmission(ctx context.Context, s *model.ProofSubmission) error {
	query, args, err := psql.
		Update("proof_submissions").
		SetMap(map[string]interface{}{
			"status":            string(s.Status),
			"approved_by_admin": s.ApprovedByAdmin,
		}).
		Where(squirrel.Eq{"submission_key": s.Key}).
		ToSql()
	if err != nil {
		return err
	}

	result, err := r.conn(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update proof submission: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *Repository) ListSubmissions(ctx context.Context, filter model.ProofFilter) ([]*model.ProofSubmission, error) {
	where := squirrel.And{}
	if filter.Status != "" {
		where = append(where, squirrel.Eq{"status": string(filter.Status)})
	}
	if filter.Coadmin != "" {
		where = append(where, squirrel.Eq{"coadmin_username": filter.Coadmin})
	}
	if filter.Member != "" {
		where = append(where, squirrel.Eq{"member_username": filter.Member})
	}

	query, args, err := psql.
		Select(proofColumns...).
		From("proof_submissions").
		Where(where).
		OrderBy("seq").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	var submissions []ProofSubmission
	if err = r.conn(ctx).SelectContext(ctx, &submissions, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list proof submissions: %w", err)
	}

	out := make([]*model.ProofSubmission, len(submissions))
	for i := range submissions {
		out[i] = submissions[i].toModel()
	}
	return out, nil
}
