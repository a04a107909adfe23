package fraud

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type mockHistory struct {
	mock.Mock
}

func (m *mockHistory) LastWithdrawalAt(ctx context.Context, tutorID, exclude uuid.UUID) (*time.Time, error) {
	args := m.Called(ctx, tutorID, exclude)
	last, _ := args.Get(0).(*time.Time)
	return last, args.Error(1)
}

func (m *mockHistory) KnownSessionIPs(ctx context.Context, tutorID uuid.UUID) ([]string, error) {
	args := m.Called(ctx, tutorID)
	ips, _ := args.Get(0).([]string)
	return ips, args.Error(1)
}

func (m *mockHistory) CompletedWithdrawals(ctx context.Context, tutorID uuid.UUID) (int, error) {
	args := m.Called(ctx, tutorID)
	return args.Int(0), args.Error(1)
}

func (m *mockHistory) Tutor(ctx context.Context, tutorID uuid.UUID) (*TutorContext, error) {
	args := m.Called(ctx, tutorID)
	t, _ := args.Get(0).(*TutorContext)
	return t, args.Error(1)
}
