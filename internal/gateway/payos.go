package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/richxcame/tutor-payouts/pkg/httpclient"
)

const (
	payOSSuccessCode = "00"
	balancePath      = "/v1/payouts-account/balance"
	payoutsPath      = "/v1/payouts"
)

// PayoutRequest is the body of a PayOS payout call
type PayoutRequest struct {
	ReferenceID     string   `json:"referenceId"`
	Amount          int64    `json:"amount"`
	Description     string   `json:"description"`
	ToBin           string   `json:"toBin"`
	ToAccountNumber string   `json:"toAccountNumber"`
	Category        []string `json:"category,omitempty"`
}

// PayoutResponse is the part of a PayOS payout response the adapter needs
type PayoutResponse struct {
	ID            string `json:"id"`
	ReferenceID   string `json:"referenceId"`
	ApprovalState string `json:"approvalState"`
}

type payOSEnvelope struct {
	Code string          `json:"code"`
	Desc string          `json:"desc"`
	Data json.RawMessage `json:"data"`
}

// PayOSAPI is the raw payout rail
type PayOSAPI interface {
	Balance(ctx context.Context) (decimal.Decimal, error)
	CreatePayout(ctx context.Context, req PayoutRequest, idempotencyKey string) (*PayoutResponse, error)
}

// RejectedError is a well-formed PayOS response with a non-success code.
type RejectedError struct {
	Code string
	Desc string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("payos rejected request: %s %s", e.Code, e.Desc)
}

// PayOSClient talks to the PayOS payout API over signed JSON requests
type PayOSClient struct {
	http        *httpclient.Client
	clientID    string
	apiKey      string
	checksumKey string
}

var _ PayOSAPI = (*PayOSClient)(nil)

// NewPayOSClient creates a PayOS client on top of an HTTP client
func NewPayOSClient(client *httpclient.Client, clientID, apiKey, checksumKey string) *PayOSClient {
	return &PayOSClient{
		http:        client,
		clientID:    clientID,
		apiKey:      apiKey,
		checksumKey: checksumKey,
	}
}

func (c *PayOSClient) headers() map[string]string {
	return map[string]string{
		"x-client-id": c.clientID,
		"x-api-key":   c.apiKey,
	}
}

// Balance reads the settlement account balance
func (c *PayOSClient) Balance(ctx context.Context) (decimal.Decimal, error) {
	body, err := c.http.Get(ctx, balancePath, c.headers())
	if err != nil {
		return decimal.Zero, err
	}

	data, err := unwrap(body)
	if err != nil {
		return decimal.Zero, err
	}

	var out struct {
		Balance decimal.Decimal `json:"balance"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return decimal.Zero, fmt.Errorf("decode payos balance: %w", err)
	}
	return out.Balance, nil
}

// CreatePayout submits a signed payout. PayOS deduplicates on the idempotency key.
func (c *PayOSClient) CreatePayout(ctx context.Context, req PayoutRequest, idempotencyKey string) (*PayoutResponse, error) {
	headers := c.headers()
	headers["x-idempotency-key"] = idempotencyKey
	headers["x-signature"] = Sign(c.checksumKey, map[string]string{
		"referenceId":     req.ReferenceID,
		"amount":          fmt.Sprintf("%d", req.Amount),
		"description":     req.Description,
		"toBin":           req.ToBin,
		"toAccountNumber": req.ToAccountNumber,
	})

	body, err := c.http.PostWithIdempotency(ctx, payoutsPath, req, headers, idempotencyKey)
	if err != nil {
		return nil, err
	}

	data, err := unwrap(body)
	if err != nil {
		return nil, err
	}

	var out PayoutResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode payos payout: %w", err)
	}
	return &out, nil
}

func unwrap(body []byte) (json.RawMessage, error) {
	var env payOSEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode payos response: %w", err)
	}
	if env.Code != payOSSuccessCode {
		return nil, &RejectedError{Code: env.Code, Desc: env.Desc}
	}
	return env.Data, nil
}

// Sign builds the PayOS signature: HMAC-SHA256 over key=value pairs sorted by key and joined with '&'.
func Sign(checksumKey string, fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+fields[k])
	}

	mac := hmac.New(sha256.New, []byte(checksumKey))
	mac.Write([]byte(strings.Join(parts, "&")))
	return hex.EncodeToString(mac.Sum(nil))
}
