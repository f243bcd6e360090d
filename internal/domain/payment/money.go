package payment

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// AEDToFils converts an AED amount to integer fils (1/100 AED), the unit the
// Ziina API requires. Amounts with sub-fils precision are rejected rather than
// rounded: money must cross the gateway boundary exactly.
func AEDToFils(amount decimal.Decimal) (int64, error) {
	fils := amount.Shift(2)
	if !fils.IsInteger() {
		return 0, fmt.Errorf("amount %s has sub-fils precision", amount)
	}
	return fils.IntPart(), nil
}

// FilsToAED converts integer fils back to a decimal AED amount.
func FilsToAED(fils int64) decimal.Decimal {
	return decimal.NewFromInt(fils).Shift(-2)
}
