package i18n

import "github.com/shopspring/decimal"

// currencyFormats maps ISO 4217 codes to symbol, placement and minor units.
var currencyFormats = map[string]struct {
	symbol string
	prefix bool // true = "$12.50", false = "500,000 ₫"
	places int32
}{
	"VND": {"₫", false, 0},
	"USD": {"$", true, 2},
	"EUR": {"€", true, 2},
}

// FormatAmount returns a display string with thousands separators and the currency symbol.
// Examples:
//
//	FormatAmount(500000, "VND") → "500,000 ₫"
//	FormatAmount(15.5, "USD")   → "$15.50"
//	FormatAmount(150, "XYZ")    → "150.00 XYZ"
func FormatAmount(amount decimal.Decimal, currencyCode string) string {
	info, ok := currencyFormats[currencyCode]
	if !ok {
		return groupThousands(amount.StringFixed(2)) + " " + currencyCode
	}
	s := groupThousands(amount.StringFixed(info.places))
	if info.prefix {
		return info.symbol + s
	}
	return s + " " + info.symbol
}

// MinorUnits returns how many decimal places the currency allows. Unknown codes get 2.
func MinorUnits(currencyCode string) int32 {
	if info, ok := currencyFormats[currencyCode]; ok {
		return info.places
	}
	return 2
}

func groupThousands(s string) string {
	sign := ""
	if len(s) > 0 && s[0] == '-' {
		sign, s = "-", s[1:]
	}

	intPart, frac := s, ""
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			intPart, frac = s[:i], s[i:]
			break
		}
	}

	out := make([]byte, 0, len(intPart)+len(intPart)/3)
	for i := 0; i < len(intPart); i++ {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, intPart[i])
	}
	return sign + string(out) + frac
}
