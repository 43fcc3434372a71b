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

const refIDBase = 1000

var userColumns = []string{
	"username",
	"name",
	"secret_hash",
	"ref_id",
	"ref_by",
	"task_income",
	"affiliate_income",
	"joined",
	"role",
}

type User struct {
	Username        string    `db:"username"`
	Name            string    `db:"name"`
	SecretHash      string    `db:"secret_hash"`
	RefID           string    `db:"ref_id"`
	RefBy           string    `db:"ref_by"`
	TaskIncome      int64     `db:"task_income"`
	AffiliateIncome int64     `db:"affiliate_income"`
	Joined          time.Time `db:"joined"`
	Role            string    `db:"role"`
}

func (u *User) toModel() *model.User {
	return &model.User{
		Username:        u.Username,
		Name:            u.Name,
		SecretHash:      u.SecretHash,
		RefID:           u.RefID,
		RefBy:           u.RefBy,
		TaskIncome:      u.TaskIncome,
		AffiliateIncome: u.AffiliateIncome,
		Joined:          u.Joined,
		Role:            model.Role(u.Role),
	}
}

func FormatRefID(n int64) string {
	return fmt.Sprintf("PRG%d", refIDBase+n)
}

// CreateUser inserts the user; its ref_id becomes a tree node with no children.
func (r *Repository) CreateUser(ctx context.Context, user *model.User) error {
	query, args, err := psql.
		Insert("users").
		SetMap(map[string]interface{}{
			"username":         user.Username,
			"name":             user.Name,
			"secret_hash":      user.SecretHash,
			"ref_id":           user.RefID,
			"ref_by":           user.RefBy,
			"task_income":      user.TaskIncome,
			"affiliate_income": user.AffiliateIncome,
			"joined":           user.Joined,
			"role":             string(user.Role),
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build user insert query: %w", err)
	}

	_, err = r.conn(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

func (r *Repository) getUserWhere(ctx context.Context, where squirrel.Sqlizer) (*model.User, error) {
	query, args, err := psql.
		Select(userColumns...).
		From("users").
		Where(where).
		Suffix(lockSuffix(ctx)).
		ToSql()
	if err != nil {
		return nil, err
	}

	var user User
	err = r.conn(ctx).GetContext(ctx, &user, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return user.toModel(), nil
}

func (r *Repository) GetUser(ctx context.Context, username string) (*model.User, error) {
	return r.getUserWhere(ctx, squirrel.Eq{"username": username})
}

func (r *Repository) GetAdmin(ctx context.Context) (*model.User, error) {
	return r.getUserWhere(ctx, squirrel.Eq{"role": string(model.RoleAdmin)})
}

func (r *Repository) FindByRefID(ctx context.Context, refID string) (string, error) {
	query, args, err := psql.
		Select("username").
		From("users").
		Where(squirrel.Eq{"ref_id": refID}).
		ToSql()
	if err != nil {
		return "", err
	}

	var username string
	err = r.conn(ctx).GetContext(ctx, &username, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}

	return username, nil
}

func (r *Repository) RefIDExists(ctx context.Context, refID string) (bool, error) {
	_, err := r.FindByRefID(ctx, refID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *Repository) AddChild(ctx context.Context, parentRefID, childRefID string) error {
	exists, err := r.RefIDExists(ctx, parentRefID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}

	query, args, err := psql.
		Insert("referrals").
		Columns("parent_ref_id", "child_ref_id").
		Values(parentRefID, childRefID).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build referral insert query: %w", err)
	}

	_, err = r.conn(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("failed to insert referral: %w", err)
	}

	return nil
}

func (r *Repository) Children(ctx context.Context, refID string) ([]string, error) {
	query, args, err := psql.
		Select("child_ref_id").
		From("referrals").
		Where(squirrel.Eq{"parent_ref_id": refID}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, err
	}

	children := []string{}
	err = r.conn(ctx).SelectContext(ctx, &children, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get children: %w", err)
	}

	return children, nil
}

func incomeColumn(kind model.IncomeKind) (string, error) {
	switch kind {
	case model.IncomeTask:
		return "task_income", nil
	case model.IncomeAffiliate:
		return "affiliate_income", nil
	}
	return "", fmt.Errorf("unknown income kind %q", kind)
}

func (r *Repository) CreditIncome(ctx context.Context, username string, kind model.IncomeKind, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("negative credit amount %d", amount)
	}

	column, err := incomeColumn(kind)
	if err != nil {
		return err
	}

	query, args, err := psql.
		Update("users").
		Set(column, squirrel.Expr(column+" + ?", amount)).
		Where(squirrel.Eq{"username": username}).
		ToSql()
	if err != nil {
		return err
	}

	result, err := r.conn(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to credit income: %w", err)
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

// DrainIncome zeroes both accumulators and returns their previous values.
func (r *Repository) DrainIncome(ctx context.Context, username string) (int64, int64, error) {
	var task, affiliate int64

	err := r.WithinTransaction(ctx, func(ctx context.Context) error {
		user, err := r.GetUser(ctx, username)
		if err != nil {
			return err
		}

		query, args, err := psql.
			Update("users").
			SetMap(map[string]interface{}{
				"task_income":      0,
				"affiliate_income": 0,
			}).
			Where(squirrel.Eq{"username": username}).
			ToSql()
		if err != nil {
			return err
		}

		if _, err = r.conn(ctx).ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to reset income: %w", err)
		}

		task, affiliate = user.TaskIncome, user.AffiliateIncome
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	return task, affiliate, nil
}

func (r *Repository) NextRefID(ctx context.Context) (string, error) {
	query, args, err := psql.
		Update("ref_counter").
		Set("value", squirrel.Expr("value + 1")).
		Where(squirrel.Eq{"id": 1}).
		Suffix("RETURNING value").
		ToSql()
	if err != nil {
		return "", err
	}

	var n int64
	if err = r.conn(ctx).QueryRowxContext(ctx, query, args...).Scan(&n); err != nil {
		return "", fmt.Errorf("failed to advance ref counter: %w", err)
	}

	return FormatRefID(n), nil
}

func (r *Repository) listUsersWhere(ctx context.Context, where squirrel.Sqlizer) ([]*model.User, error) {
	query, args, err := psql.
		Select(userColumns...).
		From("users").
		Where(where).
		OrderBy("joined", "ref_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	var users []User
	err = r.conn(ctx).SelectContext(ctx, &users, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	out := make([]*model.User, len(users))
	for i := range users {
		out[i] = users[i].toModel()
	}

	return out, nil
}

func (r *Repository) ListUsersByRole(ctx context.Context, role model.Role) ([]*model.User, error) {
	return r.listUsersWhere(ctx, squirrel.Eq{"role": string(role)})
}

func (r *Repository) ListReferredBy(ctx context.Context, refID string) ([]*model.User, error) {
	return r.listUsersWhere(ctx, squirrel.Eq{"ref_by": refID})
}
