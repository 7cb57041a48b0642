package balances

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/artvault-backend/pkg/db/models"
	"github.com/angelmondragon/artvault-backend/pkg/enums"
)

// Totals is the result of folding one currency's entries.
type Totals struct {
	Earned decimal.Decimal
	Spent  decimal.Decimal
	Raw    decimal.Decimal
}

// Clamped is the displayable balance, never below zero.
func (t Totals) Clamped() decimal.Decimal {
	if t.Raw.IsNegative() {
		return decimal.Zero
	}
	return t.Raw
}

// Negative reports whether the raw sum fell below zero.
func (t Totals) Negative() bool {
	return t.Raw.IsNegative()
}

// Fold sums the entries of currency. A positive entry of an earning type
// counts as earned; negative entries count as spent by magnitude; positive
// non-earning entries (credit adjustments) move only the raw balance.
func Fold(entries []models.LedgerEntry, currency enums.Currency) Totals {
	totals := Totals{Earned: decimal.Zero, Spent: decimal.Zero, Raw: decimal.Zero}
	for _, entry := range entries {
		if entry.Currency != currency {
			continue
		}
		totals.Raw = totals.Raw.Add(entry.Amount)
		switch {
		case entry.Amount.IsPositive() && entry.TransactionType.IsEarning():
			totals.Earned = totals.Earned.Add(entry.Amount)
		case entry.Amount.IsNegative():
			totals.Spent = totals.Spent.Add(entry.Amount.Abs())
		}
	}
	return totals
}
