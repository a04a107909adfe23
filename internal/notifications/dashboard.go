package notifications

import (
	"context"
	"errors"
)

// Broadcaster pushes a typed frame to every connected dashboard
type Broadcaster interface {
	SendToAll(msgType string, data interface{}) error
}

// DashboardNotifier forwards withdrawal events to the admin live feed
type DashboardNotifier struct {
	hub Broadcaster
}

var _ Notifier = (*DashboardNotifier)(nil)

// NewDashboardNotifier creates a notifier writing to hub
func NewDashboardNotifier(hub Broadcaster) *DashboardNotifier {
	return &DashboardNotifier{hub: hub}
}

// Notify broadcasts the event under its type
func (n *DashboardNotifier) Notify(_ context.Context, eventType string, data WithdrawalEventData) error {
	return n.hub.SendToAll(eventType, data)
}

// Fanout delivers each event to every notifier and joins their errors
type Fanout []Notifier

var _ Notifier = Fanout(nil)

// Notify calls every notifier even when an earlier one fails
func (f Fanout) Notify(ctx context.Context, eventType string, data WithdrawalEventData) error {
	var errs []error
	for _, n := range f {
		if err := n.Notify(ctx, eventType, data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
