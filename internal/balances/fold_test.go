package balances

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/angelmondragon/artvault-backend/pkg/db/models"
	"github.com/angelmondragon/artvault-backend/pkg/enums"
)

func entry(txType enums.TransactionType, amount string, currency enums.Currency) models.LedgerEntry {
	return models.LedgerEntry{
		TransactionType: txType,
		Amount:          decimal.RequireFromString(amount),
		Currency:        currency,
	}
}

func TestFoldClassifiesEarnedAndSpent(t *testing.T) {
	entries := []models.LedgerEntry{
		entry(enums.TransactionCreditEarned, "400", enums.CurrencyCredits),
		entry(enums.TransactionSubscriptionCredit, "100", enums.CurrencyCredits),
		entry(enums.TransactionNFCScanReward, "50", enums.CurrencyCredits),
		entry(enums.TransactionCreditSpent, "-120", enums.CurrencyCredits),
		entry(enums.TransactionManualAdjustment, "30", enums.CurrencyCredits),
		entry(enums.TransactionManualAdjustment, "-10", enums.CurrencyCredits),
		entry(enums.TransactionPayoutEarned, "70.00", enums.CurrencyUSD),
	}

	totals := Fold(entries, enums.CurrencyCredits)
	assert.Equal(t, "550", totals.Earned.String())
	assert.Equal(t, "130", totals.Spent.String())
	assert.Equal(t, "450", totals.Raw.String())
	assert.False(t, totals.Negative())

	usd := Fold(entries, enums.CurrencyUSD)
	assert.Equal(t, "70", usd.Earned.String())
	assert.True(t, usd.Spent.IsZero())
}

func TestFoldClampsNegative(t *testing.T) {
	entries := []models.LedgerEntry{
		entry(enums.TransactionPayoutEarned, "50.00", enums.CurrencyUSD),
		entry(enums.TransactionPayoutWithdrawal, "-80.00", enums.CurrencyUSD),
	}
	totals := Fold(entries, enums.CurrencyUSD)
	assert.True(t, totals.Negative())
	assert.Equal(t, "-30", totals.Raw.String())
	assert.True(t, totals.Clamped().IsZero())
}

func TestFoldEmpty(t *testing.T) {
	totals := Fold(nil, enums.CurrencyCredits)
	assert.True(t, totals.Raw.IsZero())
	assert.True(t, totals.Clamped().IsZero())
}
