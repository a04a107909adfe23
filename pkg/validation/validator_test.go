package validation

import (
	"errors"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richxcame/tutor-payouts/pkg/common"
)

type withdrawalForm struct {
	Amount     decimal.Decimal `binding:"required,money"`
	BankBin    string          `binding:"required,bank_bin"`
	HolderName string          `binding:"required,max=128"`
}

type filterForm struct {
	Status   string `binding:"withdrawal_status"`
	RuleName string `binding:"rule_name"`
}

func TestValidateStruct_Valid(t *testing.T) {
	form := withdrawalForm{
		Amount:     decimal.RequireFromString("2000000"),
		BankBin:    "970415",
		HolderName: "NGUYEN VAN A",
	}
	assert.NoError(t, ValidateStruct(&form))
}

func TestValidateStruct_FieldErrors(t *testing.T) {
	form := withdrawalForm{
		Amount:  decimal.RequireFromString("10.005"),
		BankBin: "97041",
	}

	err := ValidateStruct(&form)
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Errors["Amount"], "positive amount")
	assert.Contains(t, verr.Errors["BankBin"], "6-digit")
	assert.Equal(t, "HolderName is required", verr.Errors["HolderName"])
}

func TestValidateStruct_NegativeAmount(t *testing.T) {
	form := withdrawalForm{Amount: decimal.NewFromInt(-5), BankBin: "970415", HolderName: "A"}
	assert.Error(t, ValidateStruct(&form))
}

func TestValidateStruct_Enums(t *testing.T) {
	assert.NoError(t, ValidateStruct(&filterForm{}))
	assert.NoError(t, ValidateStruct(&filterForm{Status: "pending_review", RuleName: "IP_CONSISTENCY"}))
	assert.Error(t, ValidateStruct(&filterForm{Status: "paid"}))
	assert.Error(t, ValidateStruct(&filterForm{RuleName: "VELOCITY"}))
}

func TestToAppError(t *testing.T) {
	err := ValidateStruct(&withdrawalForm{})
	appErr := ToAppError(err)

	assert.Equal(t, http.StatusBadRequest, appErr.Code)
	assert.Equal(t, common.KindValidation, appErr.Kind)
	assert.Contains(t, appErr.Message, "HolderName is required")

	assert.Equal(t, "invalid request body", ToAppError(errors.New("unexpected EOF")).Message)
}
