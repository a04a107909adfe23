package validation

import (
	"errors"
	"reflect"
	"regexp"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/richxcame/tutor-payouts/pkg/common"
)

var (
	bankBinPattern = regexp.MustCompile(`^[0-9]{6}$`)

	withdrawalStatuses = map[string]bool{
		"pending": true, "pending_review": true, "delayed": true,
		"approved": true, "rejected": true, "cancelled": true,
	}
	ruleNames = map[string]bool{
		"WITHDRAW_SPEED": true, "BANK_ACCOUNT_MATCH": true,
		"IP_CONSISTENCY": true, "EMAIL_VERIFIED": true,
	}

	registerOnce sync.Once
)

// Register installs the payout validators on gin's binding engine.
func Register() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		registerCustom(v)
	})
}

func registerCustom(v *validator.Validate) {
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})

	_ = v.RegisterValidation("money", validateMoney)
	_ = v.RegisterValidation("bank_bin", func(fl validator.FieldLevel) bool {
		return bankBinPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("withdrawal_status", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == "" || withdrawalStatuses[s]
	})
	_ = v.RegisterValidation("rule_name", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == "" || ruleNames[s]
	})
}

func validateMoney(fl validator.FieldLevel) bool {
	var d decimal.Decimal
	switch val := fl.Field().Interface().(type) {
	case decimal.Decimal:
		d = val
	case string:
		parsed, err := decimal.NewFromString(val)
		if err != nil {
			return false
		}
		d = parsed
	default:
		return false
	}
	return d.IsPositive() && d.Exponent() >= -2
}

// ValidateStruct validates s with the shared binding engine.
func ValidateStruct(s interface{}) error {
	Register()
	if err := binding.Validator.ValidateStruct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return NewValidationError(verrs)
		}
		return err
	}
	return nil
}

// ToAppError converts a binding or validation error into a 400 AppError.
func ToAppError(err error) *common.AppError {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return common.NewValidationError(NewValidationError(verrs).Error(), err)
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		return common.NewValidationError(verr.Error(), err)
	}
	return common.NewValidationError("invalid request body", err)
}
