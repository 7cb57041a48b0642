package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type column of outbox_events.
type OutboxAggregateType string

const (
	AggregateVendorPayout     OutboxAggregateType = "vendor_payout"
	AggregateCollectorAccount OutboxAggregateType = "collector_account"
	AggregatePerkRedemption   OutboxAggregateType = "perk_redemption"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateVendorPayout,
	AggregateCollectorAccount,
	AggregatePerkRedemption,
}

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type column of outbox_events.
type OutboxEventType string

const (
	EventPayoutCompleted      OutboxEventType = "payout_completed"
	EventPayoutFailed         OutboxEventType = "payout_failed"
	EventPerkRedeemed         OutboxEventType = "perk_redeemed"
	EventNegativeBalanceAlert OutboxEventType = "negative_balance_detected"
)

var validOutboxEventTypes = []OutboxEventType{
	EventPayoutCompleted,
	EventPayoutFailed,
	EventPerkRedeemed,
	EventNegativeBalanceAlert,
}

// IsValid reports whether the value matches a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox event type %q", value)
}

type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

func (r OutboxDLQErrorReason) IsValid() bool {
	return r == OutboxDLQReasonMaxAttempts || r == OutboxDLQReasonNonRetryable
}
