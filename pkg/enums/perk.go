package enums

import "fmt"

// PerkType identifies a physical perk unlocked by lifetime credit earnings.
type PerkType string

const (
	PerkTypeLamp       PerkType = "lamp"
	PerkTypeProofPrint PerkType = "proof_print"
)

var perkThresholds = map[PerkType]int64{
	PerkTypeLamp:       2550,
	PerkTypeProofPrint: 240,
}

func (p PerkType) IsValid() bool {
	_, ok := perkThresholds[p]
	return ok
}

// Threshold returns the lifetime credits required to unlock the perk.
func (p PerkType) Threshold() int64 {
	return perkThresholds[p]
}

func ParsePerkType(value string) (PerkType, error) {
	p := PerkType(value)
	if !p.IsValid() {
		return "", fmt.Errorf("invalid perk type %q", value)
	}
	return p, nil
}

type RedemptionStatus string

const (
	RedemptionStatusPending   RedemptionStatus = "pending"
	RedemptionStatusFulfilled RedemptionStatus = "fulfilled"
	RedemptionStatusCancelled RedemptionStatus = "cancelled"
)

var validRedemptionStatuses = []RedemptionStatus{
	RedemptionStatusPending,
	RedemptionStatusFulfilled,
	RedemptionStatusCancelled,
}

func (s RedemptionStatus) IsValid() bool {
	for _, candidate := range validRedemptionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

func ParseRedemptionStatus(value string) (RedemptionStatus, error) {
	for _, candidate := range validRedemptionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid redemption status %q", value)
}
