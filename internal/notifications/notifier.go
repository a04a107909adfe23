package notifications

import (
	"context"

	"go.uber.org/zap"

	"github.com/richxcame/tutor-payouts/pkg/eventbus"
	"github.com/richxcame/tutor-payouts/pkg/logger"
)

// Notifier announces withdrawal lifecycle changes
type Notifier interface {
	Notify(ctx context.Context, eventType string, data WithdrawalEventData) error
}

// BusNotifier publishes withdrawal events on the event bus
type BusNotifier struct {
	publisher eventbus.Publisher
	source    string
}

var _ Notifier = (*BusNotifier)(nil)

// NewBusNotifier creates a notifier. A nil publisher only logs.
func NewBusNotifier(publisher eventbus.Publisher, source string) *BusNotifier {
	return &BusNotifier{publisher: publisher, source: source}
}

// Notify publishes eventType with data
func (n *BusNotifier) Notify(ctx context.Context, eventType string, data WithdrawalEventData) error {
	if n.publisher == nil {
		logger.WithContext(ctx).Debug("notifications: event bus disabled, dropping event",
			zap.String("type", eventType),
			zap.String("withdrawal_id", data.WithdrawalID.String()),
		)
		return nil
	}

	event, err := eventbus.NewEvent(eventType, n.source, data)
	if err != nil {
		return err
	}
	return n.publisher.Publish(ctx, SubjectPrefix+eventType, event)
}
