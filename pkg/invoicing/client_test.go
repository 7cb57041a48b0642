package invoicing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/artvault-backend/pkg/config"
)

func TestSendPayoutDocument(t *testing.T) {
	var got PayoutDocument
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "p-1", r.Header.Get("Idempotency-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client, err := NewClient(config.InvoicingConfig{BaseURL: srv.URL, APIToken: "secret"}, srv.Client())
	require.NoError(t, err)

	err = client.SendPayoutDocument(context.Background(), PayoutDocument{
		PayoutID:      "p-1",
		VendorName:    "Studio North",
		Amount:        "103.00",
		Currency:      "USD",
		InvoiceNumber: "INV-202603-abc123",
	})
	require.NoError(t, err)
	assert.Equal(t, "Studio North", got.VendorName)
	assert.Equal(t, "INV-202603-abc123", got.InvoiceNumber)
}

func TestSendPayoutDocumentStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client, err := NewClient(config.InvoicingConfig{BaseURL: srv.URL}, srv.Client())
	require.NoError(t, err)

	err = client.SendPayoutDocument(context.Background(), PayoutDocument{PayoutID: "p-2"})
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	assert.True(t, statusErr.Retryable())
}

func TestNewClientRequiresEndpoint(t *testing.T) {
	_, err := NewClient(config.InvoicingConfig{}, nil)
	assert.Error(t, err)
}
