package payout

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/richxcame/tutor-payouts/internal/audit"
	"github.com/richxcame/tutor-payouts/internal/fraud"
	"github.com/richxcame/tutor-payouts/internal/ledger"
	"github.com/richxcame/tutor-payouts/internal/scoring"
	"github.com/richxcame/tutor-payouts/internal/withdrawal"
	"github.com/richxcame/tutor-payouts/pkg/common"
)

// fakeRequests applies the same version/status/claim compare-and-swap rules as the SQL repository.
type fakeRequests struct {
	mu        sync.Mutex
	rows      map[uuid.UUID]*withdrawal.Request
	snapshots map[uuid.UUID]scoring.TrustScoreSnapshot
}

func newFakeRequests() *fakeRequests {
	return &fakeRequests{
		rows:      map[uuid.UUID]*withdrawal.Request{},
		snapshots: map[uuid.UUID]scoring.TrustScoreSnapshot{},
	}
}

func (f *fakeRequests) Create(_ context.Context, req *withdrawal.Request, snap *scoring.TrustScoreSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *req
	f.rows[req.ID] = &cp
	if snap != nil {
		f.snapshots[req.ID] = *snap
	}
	return nil
}

func (f *fakeRequests) Get(_ context.Context, id uuid.UUID) (*withdrawal.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return nil, common.NewNotFoundError("withdrawal request not found", nil)
	}
	cp := *row
	return &cp, nil
}

func (f *fakeRequests) GetSnapshot(_ context.Context, id uuid.UUID) (*scoring.TrustScoreSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap, ok := f.snapshots[id]
	if !ok {
		return nil, common.NewNotFoundError("trust score snapshot not found", nil)
	}
	return &snap, nil
}

func (f *fakeRequests) List(_ context.Context, filter withdrawal.ListFilter) ([]*withdrawal.Request, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*withdrawal.Request
	for _, row := range f.rows {
		if filter.Status != nil && row.Status != *filter.Status {
			continue
		}
		if filter.TutorID != nil && row.TutorID != *filter.TutorID {
			continue
		}
		cp := *row
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := int64(len(out))
	if filter.Offset < len(out) {
		out = out[filter.Offset:]
	} else {
		out = nil
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, total, nil
}

func (f *fakeRequests) DueDelayed(_ context.Context, now time.Time, limit int) ([]*withdrawal.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*withdrawal.Request
	for _, row := range f.rows {
		if row.Status == withdrawal.StatusDelayed && row.DelayUntil != nil && !row.DelayUntil.After(now) && !row.ClaimActive(now) {
			cp := *row
			out = append(out, &cp)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeRequests) Overview(_ context.Context, now time.Time) (*withdrawal.Overview, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ov := &withdrawal.Overview{ByStatus: map[withdrawal.Status]withdrawal.StatusSummary{}}
	for _, row := range f.rows {
		s := ov.ByStatus[row.Status]
		s.Count++
		s.Amount = s.Amount.Add(row.Amount)
		ov.ByStatus[row.Status] = s
		if row.Status == withdrawal.StatusDelayed && row.DelayUntil != nil && !row.DelayUntil.After(now) {
			ov.DueDelayed++
		}
	}
	return ov, nil
}

func (f *fakeRequests) Claim(_ context.Context, req *withdrawal.Request, until, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[req.ID]
	if !ok || row.Version != req.Version || row.Status != req.Status || row.ClaimActive(now) {
		return common.NewConcurrencyConflictError("withdrawal was modified or is being paid out", nil)
	}
	row.PayoutClaimUntil = &until
	row.Version++
	row.UpdatedAt = now
	*req = *row
	return nil
}

func (f *fakeRequests) ReleaseClaim(_ context.Context, req *withdrawal.Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[req.ID]
	if !ok || row.Version != req.Version {
		return common.NewConcurrencyConflictError("withdrawal was modified while paying out", nil)
	}
	row.PayoutClaimUntil = nil
	row.Version++
	*req = *row
	return nil
}

func (f *fakeRequests) Transition(_ context.Context, req *withdrawal.Request, to withdrawal.Status, change withdrawal.Change, now time.Time) error {
	if err := withdrawal.ValidateTransition(req.Status, to); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[req.ID]
	if !ok || row.Version != req.Version || row.Status != req.Status {
		return common.NewConcurrencyConflictError("withdrawal was modified by another request", nil)
	}
	if !change.OwnsClaim && row.ClaimActive(now) {
		return common.NewConcurrencyConflictError("withdrawal was modified by another request", nil)
	}

	row.Status = to
	row.Version++
	row.UpdatedAt = now
	row.PayoutClaimUntil = nil
	if change.ProcessedAt != nil {
		row.ProcessedAt = change.ProcessedAt
	}
	if change.ProcessedByID != nil {
		row.ProcessedByID = change.ProcessedByID
	}
	if change.GatewayTransactionID != nil {
		row.GatewayTransactionID = change.GatewayTransactionID
	}
	if change.GatewayStatus != nil {
		row.GatewayStatus = change.GatewayStatus
	}
	*req = *row
	return nil
}

type fakeLedger struct {
	mu      sync.Mutex
	wallets map[uuid.UUID]*ledger.Wallet
	holds   map[uuid.UUID]*ledger.Hold
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{wallets: map[uuid.UUID]*ledger.Wallet{}, holds: map[uuid.UUID]*ledger.Hold{}}
}

func (l *fakeLedger) seed(tutorID uuid.UUID, balance string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.wallets[tutorID] = &ledger.Wallet{TutorID: tutorID, Balance: decimal.RequireFromString(balance), Currency: "VND"}
}

func (l *fakeLedger) Reserve(_ context.Context, tutorID, withdrawalID uuid.UUID, amount decimal.Decimal) (*ledger.Hold, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	w, ok := l.wallets[tutorID]
	if !ok {
		return nil, common.NewNotFoundError("wallet not found", nil)
	}
	if w.Available().LessThan(amount) {
		return nil, common.NewInsufficientFundsError("insufficient balance")
	}
	w.Frozen = w.Frozen.Add(amount)
	h := &ledger.Hold{ID: uuid.New(), TutorID: tutorID, WithdrawalID: withdrawalID, Amount: amount, Status: ledger.HoldHeld}
	l.holds[h.ID] = h
	cp := *h
	return &cp, nil
}

func (l *fakeLedger) settle(holdID uuid.UUID, to ledger.HoldStatus) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	h, ok := l.holds[holdID]
	if !ok {
		return common.NewNotFoundError("hold not found", nil)
	}
	if !h.Open() {
		return common.NewInvalidStateError("hold is already " + string(h.Status))
	}
	w := l.wallets[h.TutorID]
	w.Frozen = w.Frozen.Sub(h.Amount)
	if to == ledger.HoldCommitted {
		w.Balance = w.Balance.Sub(h.Amount)
	}
	h.Status = to
	return nil
}

func (l *fakeLedger) Commit(_ context.Context, holdID uuid.UUID) error {
	return l.settle(holdID, ledger.HoldCommitted)
}

func (l *fakeLedger) Release(_ context.Context, holdID uuid.UUID) error {
	return l.settle(holdID, ledger.HoldReleased)
}

func (l *fakeLedger) Wallet(_ context.Context, tutorID uuid.UUID) (*ledger.Wallet, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	w, ok := l.wallets[tutorID]
	if !ok {
		return nil, common.NewNotFoundError("wallet not found", nil)
	}
	cp := *w
	return &cp, nil
}

func (l *fakeLedger) TotalFrozen(context.Context) (decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	total := decimal.Zero
	for _, h := range l.holds {
		if h.Open() {
			total = total.Add(h.Amount)
		}
	}
	return total, nil
}

type fakeAudit struct {
	mu       sync.Mutex
	logs     []*audit.FraudCheckLog
	timeline map[uuid.UUID][]*audit.TimelineEvent
	alerts   []*audit.SystemAlert
}

func newFakeAudit() *fakeAudit {
	return &fakeAudit{timeline: map[uuid.UUID][]*audit.TimelineEvent{}}
}

func (a *fakeAudit) RecordFraudChecks(_ context.Context, tutorID uuid.UUID, requestID *uuid.UUID, results []fraud.RuleResult) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, r := range results {
		a.logs = append(a.logs, &audit.FraudCheckLog{
			ID: uuid.New(), TutorID: tutorID, WithdrawalRequestID: requestID,
			RuleName: string(r.RuleName), Passed: r.Passed, Message: r.Message,
		})
	}
	return nil
}

func (a *fakeAudit) AppendTimeline(_ context.Context, requestID uuid.UUID, event string, actorID *uuid.UUID, _ map[string]any) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.timeline[requestID] = append(a.timeline[requestID], &audit.TimelineEvent{
		ID: uuid.New(), WithdrawalRequestID: requestID, Event: event, ActorID: actorID,
	})
	return nil
}

func (a *fakeAudit) events(requestID uuid.UUID) []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []string
	for _, e := range a.timeline[requestID] {
		out = append(out, e.Event)
	}
	return out
}

func (a *fakeAudit) Timeline(_ context.Context, requestID uuid.UUID) ([]*audit.TimelineEvent, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]*audit.TimelineEvent(nil), a.timeline[requestID]...), nil
}

func (a *fakeAudit) FraudLogs(_ context.Context, filter audit.FraudLogFilter) ([]*audit.FraudCheckLog, int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []*audit.FraudCheckLog
	for _, l := range a.logs {
		if filter.TutorID != nil && l.TutorID != *filter.TutorID {
			continue
		}
		if filter.Passed != nil && l.Passed != *filter.Passed {
			continue
		}
		out = append(out, l)
	}
	return out, int64(len(out)), nil
}

func (a *fakeAudit) RequestFraudLogs(_ context.Context, requestID uuid.UUID) ([]*audit.FraudCheckLog, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []*audit.FraudCheckLog
	for _, l := range a.logs {
		if l.WithdrawalRequestID != nil && *l.WithdrawalRequestID == requestID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (a *fakeAudit) RaiseAlert(_ context.Context, alertType string, severity audit.Severity, message string) *audit.SystemAlert {
	a.mu.Lock()
	defer a.mu.Unlock()
	alert := &audit.SystemAlert{ID: uuid.New(), Type: alertType, Severity: severity, Message: message}
	a.alerts = append(a.alerts, alert)
	return alert
}

func (a *fakeAudit) ResolveAlert(_ context.Context, alertID, adminID uuid.UUID) (*audit.SystemAlert, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, alert := range a.alerts {
		if alert.ID != alertID {
			continue
		}
		if alert.Resolved {
			return nil, common.NewInvalidStateError("system alert is already resolved")
		}
		alert.Resolved = true
		alert.ResolvedBy = &adminID
		return alert, nil
	}
	return nil, common.NewNotFoundError("system alert not found", nil)
}

func (a *fakeAudit) Alerts(_ context.Context, resolved *bool, _, _ int) ([]*audit.SystemAlert, int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []*audit.SystemAlert
	for _, alert := range a.alerts {
		if resolved == nil || alert.Resolved == *resolved {
			out = append(out, alert)
		}
	}
	return out, int64(len(out)), nil
}

func (a *fakeAudit) OpenAlerts(context.Context) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var n int64
	for _, alert := range a.alerts {
		if !alert.Resolved {
			n++
		}
	}
	return n, nil
}

// fakeHistory answers the fraud rules from the fake request store.
type fakeHistory struct {
	mu       sync.Mutex
	tutors   map[uuid.UUID]*fraud.TutorContext
	ips      map[uuid.UUID][]string
	requests *fakeRequests
}

func newFakeHistory(requests *fakeRequests) *fakeHistory {
	return &fakeHistory{tutors: map[uuid.UUID]*fraud.TutorContext{}, ips: map[uuid.UUID][]string{}, requests: requests}
}

func (h *fakeHistory) addTutor(t *fraud.TutorContext, ips ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.tutors[t.TutorID] = t
	h.ips[t.TutorID] = ips
}

func (h *fakeHistory) LastWithdrawalAt(_ context.Context, tutorID, exclude uuid.UUID) (*time.Time, error) {
	h.requests.mu.Lock()
	defer h.requests.mu.Unlock()
	var last *time.Time
	for _, row := range h.requests.rows {
		if row.TutorID != tutorID || row.ID == exclude {
			continue
		}
		if row.Status == withdrawal.StatusRejected || row.Status == withdrawal.StatusCancelled {
			continue
		}
		if last == nil || row.CreatedAt.After(*last) {
			at := row.CreatedAt
			last = &at
		}
	}
	return last, nil
}

func (h *fakeHistory) KnownSessionIPs(_ context.Context, tutorID uuid.UUID) ([]string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ips[tutorID], nil
}

func (h *fakeHistory) CompletedWithdrawals(_ context.Context, tutorID uuid.UUID) (int, error) {
	h.requests.mu.Lock()
	defer h.requests.mu.Unlock()
	n := 0
	for _, row := range h.requests.rows {
		if row.TutorID == tutorID && row.Status == withdrawal.StatusApproved {
			n++
		}
	}
	return n, nil
}

func (h *fakeHistory) Tutor(_ context.Context, tutorID uuid.UUID) (*fraud.TutorContext, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, ok := h.tutors[tutorID]
	if !ok {
		return nil, common.NewNotFoundError("tutor not found", nil)
	}
	cp := *t
	return &cp, nil
}

// serialTx runs transactions one at a time. It does not roll back.
type serialTx struct{ mu sync.Mutex }

func (t *serialTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return fn(ctx)
}
