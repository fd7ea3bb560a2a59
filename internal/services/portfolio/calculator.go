package portfolio

import (
	"github.com/shopspring/decimal"
)

// Performance holds the exact results of evaluating one simulated investment.
// Rounding for display happens in the rendering layer, not here.
type Performance struct {
	Quantity      decimal.Decimal
	CurrentValue  decimal.Decimal
	ProfitLoss    decimal.Decimal
	PercentChange decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// Evaluate computes the performance of an investment against the current price.
// Callers guarantee invested > 0 and initialPrice > 0 (subscription invariant),
// so the divisions cannot hit zero.
func Evaluate(invested, initialPrice, currentPrice decimal.Decimal) Performance {
	quantity := invested.Div(initialPrice)
	currentValue := quantity.Mul(currentPrice)
	profitLoss := currentValue.Sub(invested)
	percentChange := profitLoss.Div(invested).Mul(hundred)

	return Performance{
		Quantity:      quantity,
		CurrentValue:  currentValue,
		ProfitLoss:    profitLoss,
		PercentChange: percentChange,
	}
}

// Gain reports whether the investment is flat or up.
func (p Performance) Gain() bool {
	return !p.ProfitLoss.IsNegative()
}
