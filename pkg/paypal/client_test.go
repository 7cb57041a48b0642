package paypal

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/angelmondragon/artvault-backend/pkg/config"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func newTestClient(t *testing.T, handler func(*http.Request) *http.Response) *Client {
	t.Helper()
	base := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		if r.URL.Path == tokenPath {
			return jsonResponse(http.StatusOK, `{"access_token":"tok-1","token_type":"Bearer","expires_in":3600}`), nil
		}
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		return handler(r), nil
	})}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	client, err := NewClient(ctx, config.PayPalConfig{ClientID: "id", ClientSecret: "secret", BaseURL: "https://paypal.test/"}, "You have a payout")
	require.NoError(t, err)
	return client
}

func TestCreatePayout(t *testing.T) {
	var captured createPayoutBody
	client := newTestClient(t, func(r *http.Request) *http.Response {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, payoutsPath, r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		return jsonResponse(http.StatusCreated, `{"batch_header":{"payout_batch_id":"BATCH-1","batch_status":"PENDING"}}`)
	})

	batch, err := client.CreatePayout(context.Background(), PayoutRequest{
		SenderBatchID: "payout-123",
		Receiver:      "studio@example.com",
		Amount:        decimal.RequireFromString("103"),
		Note:          "ArtVault payout",
	})
	require.NoError(t, err)
	assert.Equal(t, "BATCH-1", batch.BatchID)
	assert.Equal(t, ItemPending, batch.ItemStatus)

	require.Len(t, captured.Items, 1)
	assert.Equal(t, "103.00", captured.Items[0].Amount.Value)
	assert.Equal(t, "USD", captured.Items[0].Amount.Currency)
	assert.Equal(t, "payout-123", captured.SenderBatchHeader.SenderBatchID)
	assert.Equal(t, "You have a payout", captured.SenderBatchHeader.EmailSubject)
}

func TestCreatePayoutAPIError(t *testing.T) {
	client := newTestClient(t, func(*http.Request) *http.Response {
		return jsonResponse(http.StatusUnprocessableEntity, `{"name":"INSUFFICIENT_FUNDS","message":"Sender does not have sufficient funds"}`)
	})
	_, err := client.CreatePayout(context.Background(), PayoutRequest{SenderBatchID: "p", Receiver: "a@b.c", Amount: decimal.NewFromInt(1)})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "INSUFFICIENT_FUNDS", apiErr.Name)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
}

func TestGetPayoutBatchNormalizesItemStatus(t *testing.T) {
	cases := map[string]ItemStatus{
		`{"batch_header":{"payout_batch_id":"B","batch_status":"SUCCESS"},"items":[{"payout_item_id":"I","transaction_status":"SUCCESS"}]}`:  ItemSucceeded,
		`{"batch_header":{"payout_batch_id":"B","batch_status":"SUCCESS"},"items":[{"payout_item_id":"I","transaction_status":"UNCLAIMED"}]}`: ItemPending,
		`{"batch_header":{"payout_batch_id":"B","batch_status":"SUCCESS"},"items":[{"payout_item_id":"I","transaction_status":"RETURNED"}]}`:  ItemFailed,
		`{"batch_header":{"payout_batch_id":"B","batch_status":"DENIED"}}`: ItemFailed,
	}
	for body, want := range cases {
		client := newTestClient(t, func(r *http.Request) *http.Response {
			assert.Equal(t, payoutsPath+"/B", r.URL.Path)
			return jsonResponse(http.StatusOK, body)
		})
		batch, err := client.GetPayoutBatch(context.Background(), "B")
		require.NoError(t, err)
		assert.Equal(t, want, batch.ItemStatus, body)
	}
}

func TestFailedItemCarriesErrorText(t *testing.T) {
	batch := normalize(batchResponse{})
	assert.Equal(t, ItemPending, batch.ItemStatus)

	var resp batchResponse
	require.NoError(t, json.Unmarshal([]byte(`{"batch_header":{"payout_batch_id":"B"},"items":[{"payout_item_id":"I","transaction_status":"FAILED","errors":{"name":"RECEIVER_UNREGISTERED","message":"Receiver is unregistered"}}]}`), &resp))
	batch = normalize(resp)
	assert.Equal(t, ItemFailed, batch.ItemStatus)
	assert.Equal(t, "RECEIVER_UNREGISTERED: Receiver is unregistered", batch.FailureText)
}

func TestNewClientRequiresCredentials(t *testing.T) {
	_, err := NewClient(context.Background(), config.PayPalConfig{BaseURL: "https://x"}, "")
	assert.Error(t, err)
}
