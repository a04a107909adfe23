package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richxcame/tutor-payouts/pkg/httpclient"
)

func TestSign_SortsFields(t *testing.T) {
	a := Sign("secret", map[string]string{"b": "2", "a": "1"})
	b := Sign("secret", map[string]string{"a": "1", "b": "2"})

	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, Sign("other", map[string]string{"a": "1", "b": "2"}))
}

func TestPayOSClient_Balance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payouts-account/balance", r.URL.Path)
		assert.Equal(t, "client-1", r.Header.Get("x-client-id"))
		assert.Equal(t, "key-1", r.Header.Get("x-api-key"))
		_, _ = w.Write([]byte(`{"code":"00","desc":"success","data":{"accountNumber":"123","balance":"25000000"}}`))
	}))
	defer server.Close()

	client := NewPayOSClient(httpclient.NewClient(server.URL), "client-1", "key-1", "checksum")

	balance, err := client.Balance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "25000000", balance.String())
}

func TestPayOSClient_CreatePayoutSignsRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "w-1", r.Header.Get("Idempotency-Key"))
		assert.Equal(t, "w-1", r.Header.Get("x-idempotency-key"))

		var body PayoutRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, int64(500000), body.Amount)

		expected := Sign("checksum", map[string]string{
			"referenceId":     "w-1",
			"amount":          "500000",
			"description":     "Tutor payout",
			"toBin":           "970422",
			"toAccountNumber": "0123456789",
		})
		assert.Equal(t, expected, r.Header.Get("x-signature"))

		_, _ = w.Write([]byte(`{"code":"00","desc":"success","data":{"id":"po_1","referenceId":"w-1","approvalState":"COMPLETED"}}`))
	}))
	defer server.Close()

	client := NewPayOSClient(httpclient.NewClient(server.URL), "client-1", "key-1", "checksum")

	resp, err := client.CreatePayout(context.Background(), PayoutRequest{
		ReferenceID:     "w-1",
		Amount:          500000,
		Description:     "Tutor payout",
		ToBin:           "970422",
		ToAccountNumber: "0123456789",
	}, "w-1")
	require.NoError(t, err)
	assert.Equal(t, "po_1", resp.ID)
	assert.Equal(t, "COMPLETED", resp.ApprovalState)
}

func TestPayOSClient_RejectedCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":"201","desc":"invalid account"}`))
	}))
	defer server.Close()

	client := NewPayOSClient(httpclient.NewClient(server.URL), "c", "k", "s")

	_, err := client.CreatePayout(context.Background(), PayoutRequest{ReferenceID: "w-1", Amount: 1}, "w-1")
	var rejected *RejectedError
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, "201", rejected.Code)
}
