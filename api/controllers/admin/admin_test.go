package admin

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

	"github.com/angelmondragon/artvault-backend/api/middleware"
	"github.com/angelmondragon/artvault-backend/internal/banking"
	"github.com/angelmondragon/artvault-backend/internal/payouts"
	"github.com/angelmondragon/artvault-backend/internal/testkit"
	"github.com/angelmondragon/artvault-backend/internal/transactions"
	"github.com/angelmondragon/artvault-backend/pkg/enums"
	"github.com/angelmondragon/artvault-backend/pkg/outbox"
)

type console struct {
	stack   *testkit.Stack
	payouts payouts.Service
	banking banking.Service
	router  chi.Router
}

func newConsole(t *testing.T) *console {
	t.Helper()
	stack := testkit.NewStack(t)
	repo := payouts.NewRepository(stack.Conn)
	emitter := outbox.NewService(outbox.NewRepository(stack.Conn), stack.Logger)

	payoutSvc, err := payouts.NewService(payouts.ServiceParams{
		Tx:           stack.Client,
		Repo:         repo,
		Accounts:     stack.Accounts,
		Vendors:      stack.Vendors,
		Balances:     stack.Balances,
		Transactions: stack.Transactions,
		Outbox:       emitter,
		Rails:        []payouts.Rail{payouts.ManualRail{}},
		Logger:       stack.Logger,
		Now:          stack.Clock.Now,
	})
	require.NoError(t, err)
	bankingSvc, err := banking.NewService(banking.ServiceParams{
		Tx:           stack.Client,
		Ledger:       stack.Ledger,
		Balances:     stack.Balances,
		Transactions: stack.Transactions,
		Vendors:      stack.Vendors,
		Payouts:      repo,
		Outbox:       emitter,
		Logger:       stack.Logger,
		Now:          stack.Clock.Now,
	})
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(middleware.WithActor(req.Context(), "ops@artvault.test", enums.ActorRoleAdmin)))
		})
	})
	r.Post("/vendors", VendorRegister(stack.Vendors, stack.Logger))
	r.Get("/vendors/balances", VendorBalances(bankingSvc, stack.Logger))
	r.Get("/integrity", Integrity(bankingSvc, stack.Logger))
	r.Post("/adjustments", Adjustment(bankingSvc, stack.Logger))
	r.Post("/rewards/series-completion", SeriesCompletionReward(stack.Transactions, stack.Logger))
	r.Post("/payouts/batch", PayoutBatch(payoutSvc, stack.Logger))
	r.Get("/payouts", PayoutList(payoutSvc, stack.Logger))
	r.Get("/payouts/{payoutId}", PayoutDetail(payoutSvc, stack.Logger))
	r.Post("/payouts/{payoutId}/withdrawal", PayoutWithdrawal(payoutSvc, stack.Logger))

	return &console{stack: stack, payouts: payoutSvc, banking: bankingSvc, router: r}
}

func (c *console) do(t *testing.T, method, target, body string, dest any) int {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)
	if dest != nil && rec.Code < 300 {
		var envelope struct {
			Data json.RawMessage `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
		require.NoError(t, json.Unmarshal(envelope.Data, dest))
	}
	return rec.Code
}

func TestManualPayoutEndToEnd(t *testing.T) {
	c := newConsole(t)
	ctx := context.Background()

	code := c.do(t, http.MethodPost, "/vendors", `{"name":"Studio North","collectorIdentifier":"vendor:studio-north","payoutPercentage":"100"}`, nil)
	require.Equal(t, http.StatusOK, code)
	_, err := c.stack.Transactions.RecordPayoutEarning(ctx, transactions.PayoutEarningInput{
		VendorName: "Studio North",
		OrderID:    "1001",
		LineItemID: "li-1",
		UnitPrice:  decimal.RequireFromString("103.00"),
		Currency:   "USD",
		Quantity:   1,
	})
	require.NoError(t, err)

	var batch struct {
		Results   []payouts.PayoutResult `json:"results"`
		Succeeded int                    `json:"succeeded"`
	}
	code = c.do(t, http.MethodPost, "/payouts/batch",
		`{"candidates":[{"vendorName":"Studio North","amount":"103.00"},{"vendorName":"Nobody","amount":"5"}],"paymentMethod":"manual"}`, &batch)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, batch.Results, 2)
	assert.Equal(t, 1, batch.Succeeded)
	first := batch.Results[0]
	require.True(t, first.Success, first.Error)
	assert.Equal(t, enums.PayoutStatusCompleted, first.Status)
	assert.True(t, first.WithdrawalRecorded)
	assert.False(t, batch.Results[1].Success)

	var retry transactions.WithdrawalResult
	code = c.do(t, http.MethodPost, "/payouts/"+first.PayoutID.String()+"/withdrawal", "", &retry)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, retry.USDWithdrawn.IsZero())

	var report banking.IntegrityReport
	require.Equal(t, http.StatusOK, c.do(t, http.MethodGet, "/integrity", "", &report))
	assert.True(t, report.IsHealthy)
	assert.Equal(t, "103.00", report.PayoutsTotal.StringFixed(2))

	var balances []banking.VendorBalance
	require.Equal(t, http.StatusOK, c.do(t, http.MethodGet, "/vendors/balances", "", &balances))
	require.Len(t, balances, 1)
	assert.True(t, balances[0].USDBalance.IsZero())
	require.NotNil(t, balances[0].LastPayout)

	var listed []map[string]any
	require.Equal(t, http.StatusOK, c.do(t, http.MethodGet, "/payouts?status=completed", "", &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "ops@artvault.test", listed[0]["createdBy"])
}

func TestPayoutEndpointsValidateInput(t *testing.T) {
	c := newConsole(t)

	assert.Equal(t, http.StatusBadRequest, c.do(t, http.MethodPost, "/payouts/batch", `{"candidates":[],"paymentMethod":"manual"}`, nil))
	assert.Equal(t, http.StatusBadRequest, c.do(t, http.MethodPost, "/payouts/batch", `{"candidates":[{"vendorName":"A","amount":"1"}],"paymentMethod":"wire"}`, nil))
	assert.Equal(t, http.StatusBadRequest, c.do(t, http.MethodGet, "/payouts/not-a-uuid", "", nil))
	assert.Equal(t, http.StatusNotFound, c.do(t, http.MethodGet, "/payouts/"+uuid.NewString(), "", nil))
	assert.Equal(t, http.StatusBadRequest, c.do(t, http.MethodGet, "/payouts?status=sideways", "", nil))
}

func TestAdjustmentRecordsAuthor(t *testing.T) {
	c := newConsole(t)

	var result transactions.AdjustmentResult
	code := c.do(t, http.MethodPost, "/adjustments",
		`{"collectorIdentifier":"collector@example.com","amount":"25","currency":"credits","reason":"Goodwill"}`, &result)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "25.00", result.Balance.StringFixed(2))

	entries, err := c.stack.Ledger.ListEntries(context.Background(), "collector@example.com", nil)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "ops@artvault.test", entries[0].CreatedBy)

	assert.Equal(t, http.StatusBadRequest, c.do(t, http.MethodPost, "/adjustments",
		`{"collectorIdentifier":"collector@example.com","amount":"25","currency":"credits"}`, nil))
}

func TestSeriesCompletionRewardGrantsOnce(t *testing.T) {
	c := newConsole(t)
	body := `{"collectorIdentifier":"collector@example.com","seriesId":"night-harbor"}`

	var first transactions.DepositResult
	require.Equal(t, http.StatusCreated, c.do(t, http.MethodPost, "/rewards/series-completion", body, &first))
	assert.Equal(t, "500.00", first.CreditsDeposited.StringFixed(2))

	var replay transactions.DepositResult
	require.Equal(t, http.StatusOK, c.do(t, http.MethodPost, "/rewards/series-completion", body, &replay))
	assert.True(t, replay.Duplicate)
	assert.True(t, replay.CreditsDeposited.IsZero())
	assert.Equal(t, "500.00", replay.Balance.StringFixed(2))

	assert.Equal(t, http.StatusBadRequest, c.do(t, http.MethodPost, "/rewards/series-completion", `{"collectorIdentifier":"collector@example.com"}`, nil))
}
