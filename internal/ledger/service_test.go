package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/artvault-backend/pkg/db/dbtest"
	"github.com/angelmondragon/artvault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/artvault-backend/pkg/errors"
	"github.com/angelmondragon/artvault-backend/pkg/pagination"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	svc, err := NewService(NewRepository(dbtest.NewSQLite(t)))
	require.NoError(t, err)
	return svc
}

func TestNewServiceRequiresRepository(t *testing.T) {
	_, err := NewService(nil)
	assert.Error(t, err)
}

func TestRecordEntryValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		input RecordEntryInput
	}{
		{name: "blank identifier", input: RecordEntryInput{TransactionType: enums.TransactionCreditEarned, Amount: decimal.NewFromInt(10), Currency: enums.CurrencyCredits}},
		{name: "unknown type", input: RecordEntryInput{CollectorIdentifier: "c1", TransactionType: "gift", Amount: decimal.NewFromInt(10), Currency: enums.CurrencyCredits}},
		{name: "unknown currency", input: RecordEntryInput{CollectorIdentifier: "c1", TransactionType: enums.TransactionCreditEarned, Amount: decimal.NewFromInt(10), Currency: "EUR"}},
		{name: "zero amount", input: RecordEntryInput{CollectorIdentifier: "c1", TransactionType: enums.TransactionCreditEarned, Amount: decimal.Zero, Currency: enums.CurrencyCredits}},
		{name: "negative earning", input: RecordEntryInput{CollectorIdentifier: "c1", TransactionType: enums.TransactionCreditEarned, Amount: decimal.NewFromInt(-5), Currency: enums.CurrencyCredits}},
		{name: "positive spend", input: RecordEntryInput{CollectorIdentifier: "c1", TransactionType: enums.TransactionCreditSpent, Amount: decimal.NewFromInt(5), Currency: enums.CurrencyCredits}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.RecordEntry(ctx, tc.input)
			require.Error(t, err)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}
}

func TestRecordEntryDedupReturnsExisting(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	lineItem := "li-1"

	input := RecordEntryInput{
		CollectorIdentifier: "collector-1",
		TransactionType:     enums.TransactionCreditEarned,
		Amount:              decimal.NewFromInt(400),
		Currency:            enums.CurrencyCredits,
		LineItemID:          &lineItem,
		Metadata:            map[string]any{"price": "40.00"},
		DedupKey:            DedupKey("collector-1", enums.TransactionCreditEarned, lineItem),
	}

	first, err := svc.RecordEntry(ctx, input)
	require.NoError(t, err)
	assert.True(t, first.Inserted)

	second, err := svc.RecordEntry(ctx, input)
	require.NoError(t, err)
	assert.False(t, second.Inserted)
	assert.Equal(t, first.Entry.ID, second.Entry.ID)

	entries, err := svc.ListEntries(ctx, "collector-1", nil)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Amount.Equal(decimal.NewFromInt(400)))
	assert.JSONEq(t, `{"price":"40.00"}`, string(entries[0].Metadata))
}

func TestRecordEntryWithoutDedupKeyAlwaysAppends(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := svc.RecordEntry(ctx, RecordEntryInput{
			CollectorIdentifier: "collector-1",
			TransactionType:     enums.TransactionCreditSpent,
			Amount:              decimal.NewFromInt(-10),
			Currency:            enums.CurrencyCredits,
		})
		require.NoError(t, err)
		assert.True(t, res.Inserted)
	}

	credits := enums.CurrencyCredits
	entries, err := svc.ListEntries(ctx, "collector-1", &credits)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestRecordEntryRoundsAndStampsTaxYear(t *testing.T) {
	svc := newTestService(t)
	occurred := time.Date(2025, 12, 31, 23, 0, 0, 0, time.UTC)

	res, err := svc.RecordEntry(context.Background(), RecordEntryInput{
		CollectorIdentifier: "vendor-1",
		TransactionType:     enums.TransactionPayoutEarned,
		Amount:              decimal.RequireFromString("12.345"),
		Currency:            enums.CurrencyUSD,
		OccurredAt:          occurred,
	})
	require.NoError(t, err)
	assert.Equal(t, "12.35", res.Entry.Amount.StringFixed(2))
	assert.Equal(t, 2025, res.Entry.TaxYear)
	assert.Equal(t, "system", res.Entry.CreatedBy)
}

func TestListStatementPaginates(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		_, err := svc.RecordEntry(ctx, RecordEntryInput{
			CollectorIdentifier: "collector-1",
			TransactionType:     enums.TransactionCreditEarned,
			Amount:              decimal.NewFromInt(int64(10 * (i + 1))),
			Currency:            enums.CurrencyCredits,
			OccurredAt:          base.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}

	page, err := svc.ListStatement(ctx, "collector-1", pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Entries, 2)
	assert.True(t, page.Entries[0].Amount.Equal(decimal.NewFromInt(50)))
	require.NotEmpty(t, page.NextCursor)

	next, err := svc.ListStatement(ctx, "collector-1", pagination.Params{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, next.Entries, 2)
	assert.True(t, next.Entries[0].Amount.Equal(decimal.NewFromInt(30)))

	last, err := svc.ListStatement(ctx, "collector-1", pagination.Params{Limit: 2, Cursor: next.NextCursor})
	require.NoError(t, err)
	require.Len(t, last.Entries, 1)
	assert.Empty(t, last.NextCursor)
}

func TestFindEntryNotFound(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.FindEntry(context.Background(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestParseAmount(t *testing.T) {
	amount, err := ParseAmount(" 103.00 ")
	require.NoError(t, err)
	assert.True(t, amount.Equal(decimal.RequireFromString("103")))

	for _, raw := range []string{"", "NaN", "abc", "Inf"} {
		_, err := ParseAmount(raw)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), raw)
	}
}

func TestDedupKey(t *testing.T) {
	key := DedupKey(" c1 ", enums.TransactionPayoutWithdrawal, "p-1", "USD")
	assert.Equal(t, "c1:payout_withdrawal:p-1:USD", key)
	assert.Equal(t, "2026-02-04", DayKey(time.Date(2026, 2, 3, 23, 59, 0, 0, time.FixedZone("x", -3600))))
}
