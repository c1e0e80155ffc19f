package cashier

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var currencySymbols = map[string]string{
	"ngn": "₦",
	"ghs": "GH₵",
	"eur": "€",
	"gbp": "£",
	"usd": "$",
	"aud": "$",
	"cad": "$",
	"zar": "R",
	"kes": "KSh",
}

// CurrencySymbol guesses the display symbol of an ISO currency code.
func CurrencySymbol(currency string) (string, error) {
	if sym, ok := currencySymbols[strings.ToLower(currency)]; ok {
		return sym, nil
	}
	return "", fmt.Errorf("%w: %s", ErrCurrencySymbolNotFound, currency)
}

// amountPrinter groups thousands the way number_format does in English.
var amountPrinter = message.NewPrinter(language.English)

// AmountFormatter renders an amount in the currency's minor unit.
type AmountFormatter func(amount int64) string

// FormatAmount renders amount, in minor units, as symbol followed by the
// major units with thousands grouping and two decimals: 123456 with "₦" is
// "₦1,234.56". Negative amounts get the sign before the symbol.
func FormatAmount(amount int64, symbol string) string {
	sign, abs := "", uint64(amount)
	if amount < 0 {
		sign = "-"
		abs = -abs
	}
	return fmt.Sprintf("%s%s%s.%02d", sign, symbol, amountPrinter.Sprintf("%d", abs/100), abs%100)
}
