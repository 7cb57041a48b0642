package vendors

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/artvault-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/artvault-backend/pkg/errors"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestResolveRuleHierarchy(t *testing.T) {
	vendor := &models.Vendor{PayoutPercentage: decimal.NewNullDecimal(d("60"))}
	product := &models.ProductPayoutRule{PayoutFlatRate: decimal.NewNullDecimal(d("15.00"))}

	rule := ResolveRule(product, vendor, d("70"))
	assert.Equal(t, RuleSourceProduct, rule.Source)
	assert.Equal(t, "30.00", rule.Amount(d("100"), 2).StringFixed(2))

	rule = ResolveRule(&models.ProductPayoutRule{}, vendor, d("70"))
	assert.Equal(t, RuleSourceVendor, rule.Source)
	assert.Equal(t, "60.00", rule.Amount(d("100"), 1).StringFixed(2))

	rule = ResolveRule(nil, &models.Vendor{}, d("70"))
	assert.Equal(t, RuleSourceDefault, rule.Source)
	assert.Equal(t, "28.00", rule.Amount(d("40"), 1).StringFixed(2))
}

func TestRuleAmountRoundsToCents(t *testing.T) {
	rule := PayoutRule{Percentage: decimal.NewNullDecimal(d("33.3333"))}
	assert.Equal(t, "3.33", rule.Amount(d("10"), 1).StringFixed(2))
	assert.Equal(t, "3.33", rule.Amount(d("10"), 0).StringFixed(2))
}

func TestConverter(t *testing.T) {
	conv := NewConverter(map[string]decimal.Decimal{"eur": d("1.10")})

	usd, err := conv.ToUSD(d("100"), "EUR")
	require.NoError(t, err)
	assert.Equal(t, "110.00", usd.StringFixed(2))

	usd, err = conv.ToUSD(d("12.5"), "")
	require.NoError(t, err)
	assert.Equal(t, "12.50", usd.StringFixed(2))

	_, err = conv.ToUSD(d("1"), "JPY")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
