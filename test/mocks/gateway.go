package mocks

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/richxcame/tutor-payouts/internal/gateway"
)

// MockGateway is a mock implementation of the payout gateway
type MockGateway struct {
	mock.Mock
}

var _ gateway.Gateway = (*MockGateway)(nil)

// Transfer mocks a payout transfer
func (m *MockGateway) Transfer(ctx context.Context, amount decimal.Decimal, account gateway.BankAccount, idempotencyKey string) (*gateway.TransferResult, error) {
	args := m.Called(ctx, amount, account, idempotencyKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.TransferResult), args.Error(1)
}

// PlatformBalance mocks reading the settlement balance
func (m *MockGateway) PlatformBalance(ctx context.Context) (*gateway.PlatformBalance, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.PlatformBalance), args.Error(1)
}
