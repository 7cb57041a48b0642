package vendors

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/artvault-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/artvault-backend/pkg/errors"
)

// RuleSource records which level of the hierarchy produced a payout rule.
type RuleSource string

const (
	RuleSourceProduct RuleSource = "product"
	RuleSourceVendor  RuleSource = "vendor"
	RuleSourceDefault RuleSource = "default"
)

const (
	hundred     = 100
	usdCode     = "USD"
	centsPlaces = 2
)

// PayoutRule is the resolved vendor share for a line item. A flat rate, when
// present, wins over the percentage at the same level.
type PayoutRule struct {
	Percentage decimal.NullDecimal
	FlatRate   decimal.NullDecimal
	Source     RuleSource
}

// Amount applies the rule to a USD unit price and quantity, rounded to cents.
func (r PayoutRule) Amount(unitPriceUSD decimal.Decimal, quantity int64) decimal.Decimal {
	if quantity <= 0 {
		quantity = 1
	}
	qty := decimal.NewFromInt(quantity)
	if r.FlatRate.Valid {
		return r.FlatRate.Decimal.Mul(qty).Round(centsPlaces)
	}
	pct := decimal.Zero
	if r.Percentage.Valid {
		pct = r.Percentage.Decimal
	}
	return unitPriceUSD.Mul(qty).Mul(pct).Div(decimal.NewFromInt(hundred)).Round(centsPlaces)
}

func ruleFromFields(pct, flat decimal.NullDecimal, source RuleSource) (PayoutRule, bool) {
	if !pct.Valid && !flat.Valid {
		return PayoutRule{}, false
	}
	return PayoutRule{Percentage: pct, FlatRate: flat, Source: source}, true
}

// ResolveRule walks product -> vendor -> platform default.
func ResolveRule(product *models.ProductPayoutRule, vendor *models.Vendor, defaultPct decimal.Decimal) PayoutRule {
	if product != nil {
		if rule, ok := ruleFromFields(product.PayoutPercentage, product.PayoutFlatRate, RuleSourceProduct); ok {
			return rule
		}
	}
	if vendor != nil {
		if rule, ok := ruleFromFields(vendor.PayoutPercentage, vendor.PayoutFlatRate, RuleSourceVendor); ok {
			return rule
		}
	}
	return PayoutRule{
		Percentage: decimal.NewNullDecimal(defaultPct),
		Source:     RuleSourceDefault,
	}
}

// Converter normalizes foreign prices to USD using a static rate table.
type Converter struct {
	rates map[string]decimal.Decimal
}

// NewConverter copies rates (currency -> USD per unit). USD is always 1.
func NewConverter(rates map[string]decimal.Decimal) *Converter {
	copied := make(map[string]decimal.Decimal, len(rates)+1)
	for code, rate := range rates {
		copied[strings.ToUpper(strings.TrimSpace(code))] = rate
	}
	copied[usdCode] = decimal.NewFromInt(1)
	return &Converter{rates: copied}
}

// ToUSD converts amount in currency to USD. Blank currency means USD.
func (c *Converter) ToUSD(amount decimal.Decimal, currency string) (decimal.Decimal, error) {
	code := strings.ToUpper(strings.TrimSpace(currency))
	if code == "" {
		code = usdCode
	}
	rate, ok := c.rates[code]
	if !ok {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("no USD conversion rate for currency %q", currency))
	}
	return amount.Mul(rate), nil
}
