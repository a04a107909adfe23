package i18n

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestTranslate_English(t *testing.T) {
	assert.Equal(t, "Withdrawal Paid", Translate("notification.withdrawal.approved.title", "en"))
}

func TestTranslate_Vietnamese(t *testing.T) {
	assert.Equal(t, "Đã chuyển tiền", Translate("notification.withdrawal.approved.title", "vi"))
}

func TestTranslate_FallsBackToEnglish_UnknownLang(t *testing.T) {
	assert.Equal(t, "Withdrawal Rejected", Translate("notification.withdrawal.rejected.title", "fr"))
}

func TestTranslate_EmptyLang_UsesEnglish(t *testing.T) {
	assert.Equal(t, "Withdrawal Cancelled", Translate("notification.withdrawal.cancelled.title", ""))
}

func TestTranslate_UnknownKey_ReturnsKey(t *testing.T) {
	assert.Equal(t, "does.not.exist", Translate("does.not.exist", "en"))
}

func TestTranslate_WithArgs(t *testing.T) {
	result := Translate("notification.withdrawal.rejected.body", "en", "500,000 ₫", "bank holder mismatch")
	assert.Equal(t, "Your withdrawal of 500,000 ₫ was rejected: bank holder mismatch. The funds are back in your wallet.", result)
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		amount   string
		currency string
		want     string
	}{
		{"500000", "VND", "500,000 ₫"},
		{"1234567.4", "VND", "1,234,567 ₫"},
		{"15.5", "USD", "$15.50"},
		{"999", "EUR", "€999.00"},
		{"150", "XYZ", "150.00 XYZ"},
		{"-2500", "VND", "-2,500 ₫"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatAmount(decimal.RequireFromString(tt.amount), tt.currency))
		})
	}
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int32(0), MinorUnits("VND"))
	assert.Equal(t, int32(2), MinorUnits("USD"))
	assert.Equal(t, int32(2), MinorUnits("XYZ"))
}
