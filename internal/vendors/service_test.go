package vendors

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/artvault-backend/pkg/db/dbtest"
	"github.com/angelmondragon/artvault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/artvault-backend/pkg/errors"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	svc, err := NewService(NewRepository(dbtest.NewSQLite(t)), NewConverter(nil), d("70"))
	require.NoError(t, err)
	return svc
}

func strPtr(s string) *string { return &s }

func TestRegisterVendorUpsertsByName(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	pct := d("65")

	created, err := svc.RegisterVendor(ctx, RegisterVendorInput{
		Name:                 "Studio North",
		CollectorIdentifier:  "vendor:studio-north",
		PayPalEmail:          strPtr("pay@studionorth.example"),
		DefaultPaymentMethod: enums.PaymentMethodPayPal,
		PayoutPercentage:     &pct,
	})
	require.NoError(t, err)
	assert.True(t, created.Active)
	assert.True(t, created.PayoutPercentage.Valid)

	newPct := d("75")
	updated, err := svc.RegisterVendor(ctx, RegisterVendorInput{
		Name:                "Studio North",
		CollectorIdentifier: "vendor:studio-north",
		PayoutPercentage:    &newPct,
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.True(t, updated.PayoutPercentage.Decimal.Equal(newPct))
	assert.Equal(t, enums.PaymentMethodManual, updated.DefaultPaymentMethod)

	active, err := svc.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestRegisterVendorRejectsBadPercentage(t *testing.T) {
	svc := newTestService(t)
	bad := d("120")
	_, err := svc.RegisterVendor(context.Background(), RegisterVendorInput{Name: "x", CollectorIdentifier: "y", PayoutPercentage: &bad})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestResolvePayoutRuleUsesProductOverride(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	vendor, err := svc.RegisterVendor(ctx, RegisterVendorInput{Name: "Atelier", CollectorIdentifier: "vendor:atelier"})
	require.NoError(t, err)

	flat := d("12.00")
	_, err = svc.SetProductRule(ctx, ProductRuleInput{ProductID: "prod-1", PayoutFlatRate: &flat})
	require.NoError(t, err)

	rule, err := svc.ResolvePayoutRule(ctx, "prod-1", vendor)
	require.NoError(t, err)
	assert.Equal(t, RuleSourceProduct, rule.Source)

	rule, err = svc.ResolvePayoutRule(ctx, "prod-2", vendor)
	require.NoError(t, err)
	assert.Equal(t, RuleSourceDefault, rule.Source)
	assert.Equal(t, "70.00", rule.Amount(decimal.NewFromInt(100), 1).StringFixed(2))
}

func TestGetByNameNotFound(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.GetByName(context.Background(), "ghost")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
