package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/richxcame/tutor-payouts/pkg/eventbus"
	"github.com/richxcame/tutor-payouts/pkg/i18n"
	"github.com/richxcame/tutor-payouts/pkg/logger"
)

// EventHandler turns withdrawal events into localized tutor messages.
type EventHandler struct {
	publisher eventbus.Publisher
	source    string
	lang      string
}

// NewEventHandler creates an event handler that forwards messages through publisher.
func NewEventHandler(publisher eventbus.Publisher, source, lang string) *EventHandler {
	return &EventHandler{publisher: publisher, source: source, lang: lang}
}

// RegisterSubscriptions subscribes to withdrawal lifecycle events on the bus.
func (h *EventHandler) RegisterSubscriptions(ctx context.Context, bus *eventbus.Bus) error {
	if err := bus.Subscribe(ctx, SubjectPrefix+"withdrawal.>", "notifications-payouts", h.HandleEvent); err != nil {
		return fmt.Errorf("subscribe to withdrawal events: %w", err)
	}
	logger.Info("notifications: subscribed to withdrawal lifecycle events")
	return nil
}

// HandleEvent renders one withdrawal event for the tutor
func (h *EventHandler) HandleEvent(ctx context.Context, event *eventbus.Event) error {
	var data WithdrawalEventData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("unmarshal %s: %w", event.Type, err)
	}

	msg, ok := h.render(event.Type, data)
	if !ok {
		logger.Debug("notifications: ignoring unknown event type", zap.String("type", event.Type))
		return nil
	}

	out, err := eventbus.NewEvent("tutor.message", h.source, msg)
	if err != nil {
		return err
	}
	if err := h.publisher.Publish(ctx, MessagingSubject, out); err != nil {
		logger.WithContext(ctx).Warn("failed to forward tutor message",
			zap.String("type", event.Type),
			zap.String("withdrawal_id", data.WithdrawalID.String()),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (h *EventHandler) render(eventType string, data WithdrawalEventData) (*TutorMessage, bool) {
	amount := i18n.FormatAmount(data.Amount, data.Currency)

	var key string
	var args []interface{}
	switch eventType {
	case EventWithdrawalCreated:
		key, args = "created", []interface{}{amount}
	case EventWithdrawalDelayed:
		until := ""
		if data.DelayUntil != nil {
			until = data.DelayUntil.Format(time.DateTime)
		}
		key, args = "delayed", []interface{}{amount, until}
	case EventWithdrawalReview:
		key, args = "review", []interface{}{amount}
	case EventWithdrawalApproved:
		key, args = "approved", []interface{}{amount, data.BankName}
	case EventWithdrawalRejected:
		key, args = "rejected", []interface{}{amount, data.Reason}
	case EventWithdrawalCancelled:
		key, args = "cancelled", []interface{}{amount}
	default:
		return nil, false
	}

	return &TutorMessage{
		TutorID: data.TutorID,
		Kind:    eventType,
		Title:   i18n.Translate("notification.withdrawal."+key+".title", h.lang),
		Body:    i18n.Translate("notification.withdrawal."+key+".body", h.lang, args...),
		Data: map[string]string{
			"withdrawal_id": data.WithdrawalID.String(),
			"status":        data.Status,
		},
	}, true
}
