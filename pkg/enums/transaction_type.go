package enums

import "fmt"

// TransactionType classifies a ledger entry. The sign of an entry's amount is
// fixed by its type, except for manual adjustments.
type TransactionType string

const (
	TransactionCreditEarned           TransactionType = "credit_earned"
	TransactionSubscriptionCredit     TransactionType = "subscription_credit"
	TransactionCreditSpent            TransactionType = "credit_spent"
	TransactionPayoutEarned           TransactionType = "payout_earned"
	TransactionPayoutWithdrawal       TransactionType = "payout_withdrawal"
	TransactionNFCScanReward          TransactionType = "nfc_scan_reward"
	TransactionSeriesCompletionReward TransactionType = "series_completion_reward"
	TransactionRefundDeduction        TransactionType = "refund_deduction"
	TransactionManualAdjustment       TransactionType = "manual_adjustment"
)

var validTransactionTypes = []TransactionType{
	TransactionCreditEarned,
	TransactionSubscriptionCredit,
	TransactionCreditSpent,
	TransactionPayoutEarned,
	TransactionPayoutWithdrawal,
	TransactionNFCScanReward,
	TransactionSeriesCompletionReward,
	TransactionRefundDeduction,
	TransactionManualAdjustment,
}

// AmountSign describes the sign an entry of a given type must carry.
type AmountSign int

const (
	SignAny      AmountSign = 0
	SignPositive AmountSign = 1
	SignNegative AmountSign = -1
)

func (t TransactionType) String() string {
	return string(t)
}

// IsValid reports whether the transaction type is recognized.
func (t TransactionType) IsValid() bool {
	for _, candidate := range validTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// IsEarning reports whether positive amounts of this type count toward lifetime earnings.
func (t TransactionType) IsEarning() bool {
	switch t {
	case TransactionCreditEarned,
		TransactionSubscriptionCredit,
		TransactionPayoutEarned,
		TransactionNFCScanReward,
		TransactionSeriesCompletionReward:
		return true
	default:
		return false
	}
}

// Sign returns the required amount sign for the type.
func (t TransactionType) Sign() AmountSign {
	switch t {
	case TransactionCreditSpent, TransactionPayoutWithdrawal, TransactionRefundDeduction:
		return SignNegative
	case TransactionManualAdjustment:
		return SignAny
	default:
		return SignPositive
	}
}

// ParseTransactionType converts a raw string into a TransactionType.
func ParseTransactionType(value string) (TransactionType, error) {
	for _, candidate := range validTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction type %q", value)
}
