package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Codewithsubhasree/PRAGATIPATH1234/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/lib/pq"
)

var withdrawalColumns = []string{
	"request_id",
	"username",
	"name",
	"destination",
	"amount",
	"task_amount",
	"affiliate_amount",
	"date",
	"status",
}

type Withdrawal struct {
	RequestID       string    `db:"request_id"`
	Username        string    `db:"username"`
	Name            string    `db:"name"`
	Destination     string    `db:"destination"`
	Amount          int64     `db:"amount"`
	TaskAmount      int64     `db:"task_amount"`
	AffiliateAmount int64     `db:"affiliate_amount"`
	Date            time.Time `db:"date"`
	Status          string    `db:"status"`
}

func (w *Withdrawal) toModel() *model.WithdrawalRequest {
	return &model.WithdrawalRequest{
		RequestID:       w.RequestID,
		Username:        w.Username,
		Name:            w.Name,
		Destination:     w.Destination,
		Amount:          w.Amount,
		TaskAmount:      w.TaskAmount,
		AffiliateAmount: w.AffiliateAmount,
		Date:            w.Date,
		Status:          model.WithdrawalStatus(w.Status),
	}
}

func (r *Repository) NextWithdrawalNumber(ctx context.Context) (int64, error) {
	var n int64
	err := r.conn(ctx).QueryRowxContext(ctx, "SELECT nextval('withdrawal_number_seq')").Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to advance withdrawal sequence: %w", err)
	}
	return n, nil
}

func (r *Repository) CreateWithdrawal(ctx context.Context, w *model.WithdrawalRequest) error {
	query, args, err := psql.
		Insert("withdrawals").
		SetMap(map[string]interface{}{
			"request_id":       w.RequestID,
			"username":         w.Username,
			"name":             w.Name,
			"destination":      w.Destination,
			"amount":           w.Amount,
			"task_amount":      w.TaskAmount,
			"affiliate_amount": w.AffiliateAmount,
			"date":             w.Date,
			"status":           string(w.Status),
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build withdrawal insert query: %w", err)
	}

	_, err = r.conn(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("failed to insert withdrawal: %w", err)
	}

	return nil
}

func (r *Repository) GetWithdrawal(ctx context.Context, requestID string) (*model.WithdrawalRequest, error) {
	query, args, err := psql.
		Select(withdrawalColumns...).
		From("withdrawals").
		Where(squirrel.Eq{"request_id": requestID}).
		Suffix(lockSuffix(ctx)).
		ToSql()
	if err != nil {
		return nil, err
	}

	var w Withdrawal
	err = r.conn(ctx).GetContext(ctx, &w, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return w.toModel(), nil
}

func (r *Repository) UpdateWithdrawalStatus(ctx context.Context, requestID string, status model.WithdrawalStatus) error {
	query, args, err := psql.
		Update("withdrawals").
		Set("status", string(status)).
		Where(squirrel.Eq{"request_id": requestID}).
		ToSql()
	if err != nil {
		return err
	}

	result, err := r.conn(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update withdrawal: %w", err)
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

func (r *Repository) ListWithdrawals(ctx context.Context, filter model.WithdrawalFilter) ([]*model.WithdrawalRequest, error) {
	where := squirrel.And{}
	if filter.Username != "" {
		where = append(where, squirrel.Eq{"username": filter.Username})
	}
	if len(filter.Statuses) > 0 {
		statuses := make(pq.StringArray, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		where = append(where, squirrel.Expr("status = ANY(?)", statuses))
	}

	query, args, err := psql.
		Select(withdrawalColumns...).
		From("withdrawals").
		Where(where).
		OrderBy("seq").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	var withdrawals []Withdrawal
	if err = r.conn(ctx).SelectContext(ctx, &withdrawals, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list withdrawals: %w", err)
	}

	out := make([]*model.WithdrawalRequest, len(withdrawals))
	for i := range withdrawals {
		out[i] = withdrawals[i].toModel()
	}
	return out, nil
}
