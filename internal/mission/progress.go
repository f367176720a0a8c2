package mission

import (
	"github.com/shopspring/decimal"

	"github.com/carson-networks/mission-server/internal/models"
)

var hundred = decimal.NewFromInt(100)

// Progress is accumulated/goal as a percentage in [0, 100], two decimals.
// A non-positive goal reports zero.
func Progress(accumulated, goal decimal.Decimal) decimal.Decimal {
	if !goal.IsPositive() || !accumulated.IsPositive() {
		return decimal.Zero
	}
	pct := accumulated.Mul(hundred).Div(goal)
	if pct.GreaterThan(hundred) {
		pct = hundred
	}
	return pct.Round(2)
}

// DepositTotal sums the deposits in txs. Withdrawals and non-positive
// amounts contribute nothing, so the total is never negative.
func DepositTotal(txs []*models.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txs {
		if tx.Type == models.TransactionTypeDeposit && tx.Amount.IsPositive() {
			total = total.Add(tx.Amount)
		}
	}
	return total
}
