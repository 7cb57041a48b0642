package enums

import "fmt"

// AccountType distinguishes buyers (credits) from vendors (USD payouts).
type AccountType string

const (
	AccountTypeCustomer AccountType = "customer"
	AccountTypeVendor   AccountType = "vendor"
)

func (a AccountType) IsValid() bool {
	return a == AccountTypeCustomer || a == AccountTypeVendor
}

func ParseAccountType(value string) (AccountType, error) {
	a := AccountType(value)
	if !a.IsValid() {
		return "", fmt.Errorf("invalid account type %q", value)
	}
	return a, nil
}

type AccountStatus string

const (
	AccountStatusActive   AccountStatus = "active"
	AccountStatusInactive AccountStatus = "inactive"
)

func (s AccountStatus) IsValid() bool {
	return s == AccountStatusActive || s == AccountStatusInactive
}
