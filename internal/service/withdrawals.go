package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Codewithsubhasree/PRAGATIPATH1234/internal/metrics"
	"github.com/Codewithsubhasree/PRAGATIPATH1234/internal/model"
	"github.com/Codewithsubhasree/PRAGATIPATH1234/internal/repository"
	"github.com/Codewithsubhasree/PRAGATIPATH1234/pkg/logger"
	"go.uber.org/zap"
)

const requestIDTimeLayout = "20060102150405"

type WithdrawalConfig struct {
	// RefundOnCancel credits the drained amounts back when a request is cancelled.
	RefundOnCancel bool `mapstructure:"refundOnCancel"`
}

type WithdrawalService struct {
	withdrawals WithdrawalRepository
	users       DirectoryRepository
	tx          Transactor
	notifier    Notifier
	cfg         WithdrawalConfig
	now         func() time.Time
}

func NewWithdrawalService(
	withdrawals WithdrawalRepository,
	users DirectoryRepository,
	tx Transactor,
	notifier Notifier,
	cfg WithdrawalConfig,
) *WithdrawalService {
	return &WithdrawalService{
		withdrawals: withdrawals,
		users:       users,
		tx:          tx,
		notifier:    notifierOrNop(notifier),
		cfg:         cfg,
		now:         time.Now,
	}
}

// RequestWithdrawal drains the user's whole balance into a new Pending request.
func (s *WithdrawalService) RequestWithdrawal(ctx context.Context, username, destination string) (*model.WithdrawalRequest, error) {
	destination = strings.TrimSpace(destination)
	if destination == "" {
		return nil, fmt.Errorf("%w: payment destination is required", ErrInvalidInput)
	}

	var request *model.WithdrawalRequest
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		user, err := s.users.GetUser(ctx, username)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("failed to get user: %w", err)
		}
		if user.Balance() <= 0 {
			return ErrNoBalance
		}

		task, affiliate, err := s.users.DrainIncome(ctx, username)
		if err != nil {
			return fmt.Errorf("failed to drain income: %w", err)
		}
		if task+affiliate <= 0 {
			return ErrNoBalance
		}

		n, err := s.withdrawals.NextWithdrawalNumber(ctx)
		if err != nil {
			return fmt.Errorf("failed to allocate request id: %w", err)
		}

		now := s.now().UTC()
		request = &model.WithdrawalRequest{
			RequestID:       fmt.Sprintf("WDR%d-%s", n, now.Format(requestIDTimeLayout)),
			Username:        user.Username,
			Name:            user.Name,
			Destination:     destination,
			Amount:          task + affiliate,
			TaskAmount:      task,
			AffiliateAmount: affiliate,
			Date:            now,
			Status:          model.WithdrawalPending,
		}
		if err := s.withdrawals.CreateWithdrawal(ctx, request); err != nil {
			return fmt.Errorf("failed to create withdrawal: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.Withdrawals.WithLabelValues(string(model.WithdrawalPending)).Inc()
	logger.Logger().Info("withdrawal requested",
		zap.String("request_id", request.RequestID),
		zap.String("username", username),
		zap.Int64("amount", request.Amount))

	s.notifyAdmin(ctx, request)

	return request, nil
}

func (s *WithdrawalService) notifyAdmin(ctx context.Context, request *model.WithdrawalRequest) {
	admin, err := s.users.GetAdmin(ctx)
	if err != nil {
		logger.Logger().Warn("no admin to notify", zap.String("request_id", request.RequestID), zap.Error(err))
		return
	}

	s.notifier.Notify(ctx, model.Event{
		Type:      model.EventWithdrawalRequested,
		Recipient: admin.Username,
		Payload: map[string]any{
			"request_id":  request.RequestID,
			"username":    request.Username,
			"name":        request.Name,
			"destination": request.Destination,
			"amount":      request.Amount,
		},
	})
}

// Settle moves a Pending request to Paid or Cancelled.
func (s *WithdrawalService) Settle(ctx context.Context, requestID, adminUsername string, outcome model.SettleOutcome) error {
	status, ok := outcome.Status()
	if !ok {
		return fmt.Errorf("%w: unknown outcome %q", ErrInvalidInput, outcome)
	}

	var request *model.WithdrawalRequest
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := requireRole(ctx, s.users, adminUsername, model.RoleAdmin); err != nil {
			return err
		}

		var err error
		request, err = s.withdrawals.GetWithdrawal(ctx, requestID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrWithdrawalNotFound
			}
			return fmt.Errorf("failed to get withdrawal: %w", err)
		}
		if request.Status != model.WithdrawalPending {
			return ErrInvalidTransition
		}

		if err := s.withdrawals.UpdateWithdrawalStatus(ctx, requestID, status); err != nil {
			return fmt.Errorf("failed to update withdrawal: %w", err)
		}
		request.Status = status

		if status == model.WithdrawalCancelled && s.cfg.RefundOnCancel {
			return s.refund(ctx, request)
		}
		return nil
	})
	if err != nil {
		return err
	}

	metrics.Withdrawals.WithLabelValues(string(status)).Inc()
	logger.Logger().Info("withdrawal settled",
		zap.String("request_id", requestID),
		zap.String("status", string(status)),
		zap.Bool("refunded", status == model.WithdrawalCancelled && s.cfg.RefundOnCancel))

	s.notifier.Notify(ctx, model.Event{
		Type:      model.EventWithdrawalSettled,
		Recipient: request.Username,
		Payload: map[string]any{
			"request_id": requestID,
			"status":     status,
			"amount":     request.Amount,
		},
	})

	return nil
}

func (s *WithdrawalService) refund(ctx context.Context, request *model.WithdrawalRequest) error {
	parts := []struct {
		kind   model.IncomeKind
		amount int64
	}{
		{model.IncomeTask, request.TaskAmount},
		{model.IncomeAffiliate, request.AffiliateAmount},
	}
	for _, p := range parts {
		if p.amount == 0 {
			continue
		}
		if err := s.users.CreditIncome(ctx, request.Username, p.kind, p.amount); err != nil {
			return fmt.Errorf("failed to refund %s income: %w", p.kind, err)
		}
	}
	return nil
}

func (s *WithdrawalService) Pending(ctx context.Context) ([]*model.WithdrawalRequest, error) {
	return s.list(ctx, model.WithdrawalFilter{Statuses: []model.WithdrawalStatus{model.WithdrawalPending}})
}

func (s *WithdrawalService) Processed(ctx context.Context) ([]*model.WithdrawalRequest, error) {
	return s.list(ctx, model.WithdrawalFilter{
		Statuses: []model.WithdrawalStatus{model.WithdrawalPaid, model.WithdrawalCancelled},
	})
}

func (s *WithdrawalService) ForUser(ctx context.Context, username string) ([]*model.WithdrawalRequest, error) {
	return s.list(ctx, model.WithdrawalFilter{Username: username})
}

func (s *WithdrawalService) list(ctx context.Context, filter model.WithdrawalFilter) ([]*model.WithdrawalRequest, error) {
	requests, err := s.withdrawals.ListWithdrawals(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list withdrawals: %w", err)
	}
	return requests, nil
}
