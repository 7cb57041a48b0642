package enums

import "fmt"

// SubscriptionStatus is the lifecycle of a recurring credit subscription.
type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

func (s SubscriptionStatus) IsValid() bool {
	return s == SubscriptionStatusActive || s == SubscriptionStatusCancelled
}

func ParseSubscriptionStatus(value string) (SubscriptionStatus, error) {
	s := SubscriptionStatus(value)
	if !s.IsValid() {
		return "", fmt.Errorf("invalid subscription status %q", value)
	}
	return s, nil
}
