package notifications

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockBroadcaster struct {
	mock.Mock
}

func (m *mockBroadcaster) SendToAll(msgType string, data interface{}) error {
	return m.Called(msgType, data).Error(0)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, eventType string, data WithdrawalEventData) error {
	return m.Called(ctx, eventType, data).Error(0)
}

func TestDashboardNotifier_Broadcasts(t *testing.T) {
	hub := new(mockBroadcaster)
	data := WithdrawalEventData{WithdrawalID: uuid.New(), Amount: decimal.NewFromInt(500000), Status: "pending_review"}
	hub.On("SendToAll", EventWithdrawalReview, data).Return(nil).Once()

	err := NewDashboardNotifier(hub).Notify(context.Background(), EventWithdrawalReview, data)

	assert.NoError(t, err)
	hub.AssertExpectations(t)
}

func TestFanout_CallsEveryNotifier(t *testing.T) {
	failing, ok := new(mockNotifier), new(mockNotifier)
	failing.On("Notify", mock.Anything, EventWithdrawalApproved, mock.Anything).Return(errors.New("nats: connection closed"))
	ok.On("Notify", mock.Anything, EventWithdrawalApproved, mock.Anything).Return(nil)

	err := Fanout{failing, ok}.Notify(context.Background(), EventWithdrawalApproved, WithdrawalEventData{})

	assert.ErrorContains(t, err, "connection closed")
	ok.AssertNumberOfCalls(t, "Notify", 1)
}

func TestFanout_Empty(t *testing.T) {
	assert.NoError(t, Fanout(nil).Notify(context.Background(), EventWithdrawalCreated, WithdrawalEventData{}))
}
