package collectors

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/artvault-backend/internal/perks"
	"github.com/angelmondragon/artvault-backend/internal/testkit"
	"github.com/angelmondragon/artvault-backend/internal/transactions"
	"github.com/angelmondragon/artvault-backend/pkg/db/models"
	"github.com/angelmondragon/artvault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/artvault-backend/pkg/errors"
	"github.com/angelmondragon/artvault-backend/pkg/logger"
)

const collector = "collector@example.com"

func serve(t *testing.T, method, pattern, target string, body string, h http.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.MethodFunc(method, pattern, h)
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, dest))
}

func fundedStack(t *testing.T) *testkit.Stack {
	t.Helper()
	stack := testkit.NewStack(t)
	_, err := stack.Transactions.DepositPurchaseCredits(context.Background(), transactions.PurchaseCreditInput{
		CollectorIdentifier: collector,
		OrderID:             "1001",
		LineItemID:          "li-1",
		Price:               decimal.NewFromInt(40),
		Currency:            "USD",
	})
	require.NoError(t, err)
	return stack
}

func TestBalanceAndPayment(t *testing.T) {
	stack := fundedStack(t)
	logg := logger.Nop()

	rec := serve(t, http.MethodGet, "/collectors/{identifier}/balance", "/collectors/"+collector+"/balance", "", Balance(stack.Balances, logg))
	require.Equal(t, http.StatusOK, rec.Code)
	var balance struct {
		Balance decimal.Decimal `json:"balance"`
	}
	decodeData(t, rec, &balance)
	assert.Equal(t, "400.00", balance.Balance.StringFixed(2))

	rec = serve(t, http.MethodPost, "/collectors/{identifier}/payments", "/collectors/"+collector+"/payments",
		`{"amount":"1000","purchaseId":"p-1"}`, CreditPayment(stack.Transactions, logg))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), string(pkgerrors.CodeInsufficientBalance))

	rec = serve(t, http.MethodPost, "/collectors/{identifier}/payments", "/collectors/"+collector+"/payments",
		`{"amount":"150","purchaseId":"p-2"}`, CreditPayment(stack.Transactions, logg))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var spent transactions.SpendResult
	decodeData(t, rec, &spent)
	assert.Equal(t, "250.00", spent.Balance.StringFixed(2))
}

func TestCreditPaymentRejectsUnknownFields(t *testing.T) {
	stack := fundedStack(t)
	rec := serve(t, http.MethodPost, "/collectors/{identifier}/payments", "/collectors/"+collector+"/payments",
		`{"amount":"10","collectorIdentifier":"someone-else"}`, CreditPayment(stack.Transactions, logger.Nop()))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEntriesPaginates(t *testing.T) {
	stack := fundedStack(t)
	_, err := stack.Transactions.SpendCredits(context.Background(), transactions.SpendInput{
		CollectorIdentifier: collector,
		Amount:              decimal.NewFromInt(100),
		PurchaseID:          "p-1",
	})
	require.NoError(t, err)

	rec := serve(t, http.MethodGet, "/collectors/{identifier}/entries", "/collectors/"+collector+"/entries?limit=1", "", Entries(stack.Ledger, logger.Nop()))
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Entries    []models.LedgerEntry `json:"entries"`
		NextCursor string               `json:"nextCursor"`
	}
	decodeData(t, rec, &page)
	assert.Len(t, page.Entries, 1)
	assert.NotEmpty(t, page.NextCursor)

	rec = serve(t, http.MethodGet, "/collectors/{identifier}/entries", "/collectors/"+collector+"/entries?limit=0", "", Entries(stack.Ledger, logger.Nop()))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type fakePerks struct {
	redeemed []perks.RedeemInput
	err      error
}

func (f *fakePerks) RedeemPerk(_ context.Context, input perks.RedeemInput) (*models.PerkRedemption, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.redeemed = append(f.redeemed, input)
	return &models.PerkRedemption{ID: uuid.New(), CollectorIdentifier: input.CollectorIdentifier, PerkType: input.PerkType, RedemptionStatus: enums.RedemptionStatusPending}, nil
}

func (f *fakePerks) CheckPerkUnlockStatus(_ context.Context, identifier string) (*perks.UnlockStatus, error) {
	return &perks.UnlockStatus{CollectorIdentifier: identifier}, nil
}

func (f *fakePerks) ListRedemptions(context.Context, string) ([]models.PerkRedemption, error) {
	return nil, nil
}

func TestRedeemPerk(t *testing.T) {
	svc := &fakePerks{}
	rec := serve(t, http.MethodPost, "/collectors/{identifier}/perks/redeem", "/collectors/"+collector+"/perks/redeem",
		`{"perkType":"lamp","productKey":" lamp-v1 "}`, RedeemPerk(svc, logger.Nop()))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, svc.redeemed, 1)
	assert.Equal(t, collector, svc.redeemed[0].CollectorIdentifier)
	assert.Equal(t, enums.PerkTypeLamp, svc.redeemed[0].PerkType)
	assert.Equal(t, "lamp-v1", svc.redeemed[0].ProductKey)

	rec = serve(t, http.MethodPost, "/collectors/{identifier}/perks/redeem", "/collectors/"+collector+"/perks/redeem",
		`{"perkType":"yacht"}`, RedeemPerk(svc, logger.Nop()))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	svc.err = pkgerrors.New(pkgerrors.CodeNotUnlocked, "lamp requires 20000 credits")
	rec = serve(t, http.MethodPost, "/collectors/{identifier}/perks/redeem", "/collectors/"+collector+"/perks/redeem",
		`{"perkType":"lamp"}`, RedeemPerk(svc, logger.Nop()))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "20000")
}
