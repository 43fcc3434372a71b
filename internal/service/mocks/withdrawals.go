package mocks

import (
	"context"

	"github.com/Codewithsubhasree/PRAGATIPATH1234/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockWithdrawalRepository struct {
	mock.Mock
}

func (m *MockWithdrawalRepository) NextWithdrawalNumber(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockWithdrawalRepository) CreateWithdrawal(ctx context.Context, request *model.WithdrawalRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

func (m *MockWithdrawalRepository) GetWithdrawal(ctx context.Context, requestID string) (*model.WithdrawalRequest, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WithdrawalRequest), args.Error(1)
}

func (m *MockWithdrawalRepository) UpdateWithdrawalStatus(ctx context.Context, requestID string, status model.WithdrawalStatus) error {
	args := m.Called(ctx, requestID, status)
	return args.Error(0)
}

func (m *MockWithdrawalRepository) ListWithdrawals(ctx context.Context, filter model.WithdrawalFilter) ([]*model.WithdrawalRequest, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.WithdrawalRequest), args.Error(1)
}
