package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/richxcame/tutor-payouts/internal/withdrawal"
	"github.com/richxcame/tutor-payouts/pkg/storage"
)

// MockReceiptArchive is a mock implementation of the payout receipt archive
type MockReceiptArchive struct {
	mock.Mock
}

// Archive mocks writing a receipt
func (m *MockReceiptArchive) Archive(ctx context.Context, req *withdrawal.Request, currency string) error {
	args := m.Called(ctx, req, currency)
	return args.Error(0)
}

// DownloadURL mocks signing a receipt link
func (m *MockReceiptArchive) DownloadURL(ctx context.Context, req *withdrawal.Request) (*storage.PresignedURL, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.PresignedURL), args.Error(1)
}
