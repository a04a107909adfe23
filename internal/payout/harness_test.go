package payout

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/richxcame/tutor-payouts/internal/fraud"
	"github.com/richxcame/tutor-payouts/internal/gateway"
	"github.com/richxcame/tutor-payouts/internal/ledger"
	"github.com/richxcame/tutor-payouts/internal/scoring"
	"github.com/richxcame/tutor-payouts/internal/withdrawal"
	"github.com/richxcame/tutor-payouts/pkg/config"
	"github.com/richxcame/tutor-payouts/test/helpers"
	"github.com/richxcame/tutor-payouts/test/mocks"
)

type harness struct {
	mu  sync.Mutex
	now time.Time

	requests *fakeRequests
	ledger   *fakeLedger
	audit    *fakeAudit
	history  *fakeHistory
	gateway  *mocks.MockGateway
	notifier *mocks.MockNotifier
	receipts *mocks.MockReceiptArchive

	processor *Processor
	admin     *AdminService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	h.requests = newFakeRequests()
	h.ledger = newFakeLedger()
	h.audit = newFakeAudit()
	h.history = newFakeHistory(h.requests)
	h.gateway = new(mocks.MockGateway)
	h.notifier = new(mocks.MockNotifier)
	h.notifier.On("Notify", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	h.receipts = new(mocks.MockReceiptArchive)
	h.receipts.On("Archive", mock.Anything, mock.Anything, "VND").Return(nil).Maybe()

	risk := config.DefaultRiskConfig()
	deps := Deps{
		Tx:       &serialTx{},
		Requests: h.requests,
		Ledger:   h.ledger,
		Engine:   fraud.NewEngine(fraud.DefaultRules(h.history, risk)...),
		History:  h.history,
		Scorer:   scoring.NewCalculator(risk),
		Gateway:  h.gateway,
		Audit:    h.audit,
		Notifier: h.notifier,
		Receipts: h.receipts,
	}
	settings := Settings{
		BaseScore:  risk.BaseScore,
		DelayHold:  risk.DelayHold,
		ClaimLease: 2 * time.Minute,
		MinAmount:  decimal.NewFromInt(50000),
		Currency:   "VND",
	}

	h.processor = NewProcessor(deps, settings)
	h.processor.now = h.clock
	h.admin = NewAdminService(deps, settings)
	h.admin.now = h.clock
	return h
}

func (h *harness) clock() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.now
}

func (h *harness) advance(d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.now = h.now.Add(d)
}

// tutor registers a tutor with a funded wallet and one known session IP.
func (h *harness) tutor(joinedDaysAgo int, emailVerified bool) *fraud.TutorContext {
	t := helpers.CreateTestTutor(h.clock(), joinedDaysAgo)
	t.EmailVerified = emailVerified
	h.history.addTutor(t, helpers.HomeIP)
	h.ledger.seed(t.TutorID, "5000000")
	return t
}

func (h *harness) create(t *testing.T, tutorID uuid.UUID, amount string, bank withdrawal.BankDetails, ip string) *withdrawal.Request {
	t.Helper()
	req, err := h.processor.CreateWithdrawal(context.Background(), CreateInput{
		TutorID: tutorID,
		Amount:  decimal.RequireFromString(amount),
		Bank:    bank,
		IP:      ip,
	})
	require.NoError(t, err)
	return req
}

// reviewRequest creates a request that scores 45 and lands in pending_review.
func (h *harness) reviewRequest(t *testing.T, amount string) (*fraud.TutorContext, *withdrawal.Request) {
	t.Helper()
	tutor := h.tutor(3, true)
	req := h.create(t, tutor.TutorID, amount, helpers.CreateTestBank(), helpers.ForeignIP)
	require.Equal(t, withdrawal.StatusPendingReview, req.Status)
	return tutor, req
}

func (h *harness) stored(t *testing.T, id uuid.UUID) *withdrawal.Request {
	t.Helper()
	req, err := h.requests.Get(context.Background(), id)
	require.NoError(t, err)
	return req
}

func (h *harness) wallet(t *testing.T, tutorID uuid.UUID) *ledger.Wallet {
	t.Helper()
	w, err := h.ledger.Wallet(context.Background(), tutorID)
	require.NoError(t, err)
	return w
}

func succeeded(txID string) *gateway.TransferResult {
	return &gateway.TransferResult{Success: true, TransactionID: txID, Status: "SUCCEEDED"}
}
