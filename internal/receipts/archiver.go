package receipts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/richxcame/tutor-payouts/internal/withdrawal"
	"github.com/richxcame/tutor-payouts/pkg/common"
	"github.com/richxcame/tutor-payouts/pkg/logger"
	"github.com/richxcame/tutor-payouts/pkg/storage"
)

// Receipt is the accounting record written for every paid withdrawal
type Receipt struct {
	WithdrawalID         uuid.UUID       `json:"withdrawal_id"`
	TutorID              uuid.UUID       `json:"tutor_id"`
	Amount               decimal.Decimal `json:"amount"`
	Currency             string          `json:"currency"`
	HolderName           string          `json:"holder_name"`
	BankName             string          `json:"bank_name"`
	AccountNumber        string          `json:"account_number"`
	Decision             string          `json:"decision"`
	GatewayTransactionID string          `json:"gateway_transaction_id"`
	GatewayStatus        string          `json:"gateway_status"`
	ApprovedByID         *uuid.UUID      `json:"approved_by_id,omitempty"`
	ProcessedAt          time.Time       `json:"processed_at"`
	IssuedAt             time.Time       `json:"issued_at"`
}

// Archiver writes receipts to object storage and hands out download links
type Archiver struct {
	store      storage.ObjectStore
	prefix     string
	presignTTL time.Duration
	now        func() time.Time
}

// NewArchiver creates an archiver writing under prefix
func NewArchiver(store storage.ObjectStore, prefix string, presignTTL time.Duration) *Archiver {
	if presignTTL <= 0 {
		presignTTL = 15 * time.Minute
	}
	return &Archiver{
		store:      store,
		prefix:     strings.Trim(prefix, "/"),
		presignTTL: presignTTL,
		now:        time.Now,
	}
}

// Key is prefix/YYYY/MM/<withdrawal id>.json, dated by the payout time.
func (a *Archiver) Key(req *withdrawal.Request) (string, error) {
	if req.Status != withdrawal.StatusApproved || req.ProcessedAt == nil {
		return "", common.NewInvalidStateError(fmt.Sprintf("withdrawal %s has not been paid", req.ID))
	}
	at := req.ProcessedAt.UTC()
	return path.Join(a.prefix, at.Format("2006"), at.Format("01"), req.ID.String()+".json"), nil
}

// Archive stores the receipt for a paid request. Writing the same request
// twice overwrites the object with identical content.
func (a *Archiver) Archive(ctx context.Context, req *withdrawal.Request, currency string) error {
	key, err := a.Key(req)
	if err != nil {
		return err
	}

	body, err := json.MarshalIndent(a.receipt(req, currency), "", "  ")
	if err != nil {
		return fmt.Errorf("encode receipt: %w", err)
	}

	if _, err := a.store.Put(ctx, key, bytes.NewReader(body), int64(len(body)), "application/json"); err != nil {
		return err
	}
	logger.WithContext(ctx).Info("Payout receipt archived",
		zap.String("withdrawal_id", req.ID.String()),
		zap.String("key", key),
	)
	return nil
}

// DownloadURL returns a short-lived link to the request's receipt.
func (a *Archiver) DownloadURL(ctx context.Context, req *withdrawal.Request) (*storage.PresignedURL, error) {
	key, err := a.Key(req)
	if err != nil {
		return nil, err
	}
	ok, err := a.store.Exists(ctx, key)
	if err != nil {
		return nil, common.NewServiceUnavailableError("receipt storage unavailable")
	}
	if !ok {
		return nil, common.NewNotFoundError("receipt not found", nil)
	}
	return a.store.PresignGet(ctx, key, a.presignTTL)
}

func (a *Archiver) receipt(req *withdrawal.Request, currency string) Receipt {
	r := Receipt{
		WithdrawalID:  req.ID,
		TutorID:       req.TutorID,
		Amount:        req.Amount,
		Currency:      currency,
		HolderName:    req.Bank.HolderName,
		BankName:      req.Bank.BankName,
		AccountNumber: MaskAccount(req.Bank.AccountNumber),
		Decision:      string(req.Decision),
		ApprovedByID:  req.ProcessedByID,
		ProcessedAt:   req.ProcessedAt.UTC(),
		IssuedAt:      a.now().UTC(),
	}
	if req.GatewayTransactionID != nil {
		r.GatewayTransactionID = *req.GatewayTransactionID
	}
	if req.GatewayStatus != nil {
		r.GatewayStatus = *req.GatewayStatus
	}
	return r
}

// MaskAccount keeps the last four digits.
func MaskAccount(number string) string {
	runes := []rune(number)
	if len(runes) <= 4 {
		return number
	}
	return strings.Repeat("*", len(runes)-4) + string(runes[len(runes)-4:])
}
