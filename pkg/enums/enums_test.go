package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionTypeSigns(t *testing.T) {
	cases := map[TransactionType]AmountSign{
		TransactionCreditEarned:           SignPositive,
		TransactionSubscriptionCredit:     SignPositive,
		TransactionPayoutEarned:           SignPositive,
		TransactionNFCScanReward:          SignPositive,
		TransactionSeriesCompletionReward: SignPositive,
		TransactionCreditSpent:            SignNegative,
		TransactionPayoutWithdrawal:       SignNegative,
		TransactionRefundDeduction:        SignNegative,
		TransactionManualAdjustment:       SignAny,
	}
	for typ, want := range cases {
		assert.Equal(t, want, typ.Sign(), typ)
		assert.True(t, typ.IsValid(), typ)
	}
}

func TestTransactionTypeIsEarning(t *testing.T) {
	assert.True(t, TransactionCreditEarned.IsEarning())
	assert.True(t, TransactionPayoutEarned.IsEarning())
	assert.False(t, TransactionManualAdjustment.IsEarning())
	assert.False(t, TransactionRefundDeduction.IsEarning())
	assert.False(t, TransactionCreditSpent.IsEarning())
}

func TestParseCurrencyCaseInsensitive(t *testing.T) {
	got, err := ParseCurrency(" credits ")
	require.NoError(t, err)
	assert.Equal(t, CurrencyCredits, got)

	_, err = ParseCurrency("EUR")
	assert.Error(t, err)
}

func TestPerkThresholds(t *testing.T) {
	assert.Equal(t, int64(2550), PerkTypeLamp.Threshold())
	assert.Equal(t, int64(240), PerkTypeProofPrint.Threshold())
	_, err := ParsePerkType("poster")
	assert.Error(t, err)
}

func TestPayoutStatusTransitions(t *testing.T) {
	assert.True(t, PayoutStatusPending.CanTransitionTo(PayoutStatusProcessing))
	assert.True(t, PayoutStatusProcessing.CanTransitionTo(PayoutStatusCompleted))
	assert.True(t, PayoutStatusProcessing.CanTransitionTo(PayoutStatusFailed))
	assert.True(t, PayoutStatusFailed.CanTransitionTo(PayoutStatusPending))
	assert.False(t, PayoutStatusFailed.CanTransitionTo(PayoutStatusProcessing))
	assert.False(t, PayoutStatusCompleted.CanTransitionTo(PayoutStatusFailed))
	assert.False(t, PayoutStatusPending.CanTransitionTo(PayoutStatusCompleted))
	assert.True(t, PayoutStatusCompleted.IsTerminal())
}
