// Package paypal is a minimal PayPal Payouts client. Payouts are async: a
// created batch is polled until its single item settles.
package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/angelmondragon/artvault-backend/pkg/config"
)

const (
	tokenPath   = "/v1/oauth2/token"
	payoutsPath = "/v1/payments/payouts"
)

// ItemStatus is the normalized outcome of a payout item.
type ItemStatus string

const (
	ItemPending   ItemStatus = "pending"
	ItemSucceeded ItemStatus = "succeeded"
	ItemFailed    ItemStatus = "failed"
)

// Client calls the Payouts API with a client-credentials token source.
type Client struct {
	baseURL      string
	http         *http.Client
	emailSubject string
}

// NewClient builds the client. A *http.Client stored in ctx under
// oauth2.HTTPClient is used as the base transport for both the token
// exchange and API calls.
func NewClient(ctx context.Context, cfg config.PayPalConfig, emailSubject string) (*Client, error) {
	if !cfg.Enabled() {
		return nil, errors.New("paypal client id and secret are required")
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("paypal base url is required")
	}
	creds := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     base + tokenPath,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	return &Client{baseURL: base, http: creds.Client(ctx), emailSubject: emailSubject}, nil
}

// PayoutRequest is a single-recipient payout.
type PayoutRequest struct {
	SenderBatchID string
	Receiver      string
	Amount        decimal.Decimal
	Currency      string
	Note          string
}

// Batch is the normalized view of a payout batch with one item.
type Batch struct {
	BatchID     string
	BatchStatus string
	ItemID      string
	ItemStatus  ItemStatus
	FailureText string
}

type money struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type payoutItem struct {
	RecipientType string `json:"recipient_type"`
	Amount        money  `json:"amount"`
	Receiver      string `json:"receiver"`
	Note          string `json:"note,omitempty"`
	SenderItemID  string `json:"sender_item_id"`
}

type createPayoutBody struct {
	SenderBatchHeader struct {
		SenderBatchID string `json:"sender_batch_id"`
		EmailSubject  string `json:"email_subject,omitempty"`
	} `json:"sender_batch_header"`
	Items []payoutItem `json:"items"`
}

type batchResponse struct {
	BatchHeader struct {
		PayoutBatchID string `json:"payout_batch_id"`
		BatchStatus   string `json:"batch_status"`
	} `json:"batch_header"`
	Items []struct {
		PayoutItemID      string `json:"payout_item_id"`
		TransactionStatus string `json:"transaction_status"`
		Errors            *struct {
			Name    string `json:"name"`
			Message string `json:"message"`
		} `json:"errors,omitempty"`
	} `json:"items"`
}

// APIError is a non-2xx response from PayPal.
type APIError struct {
	StatusCode int
	Name       string `json:"name"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("paypal: http %d", e.StatusCode)
	}
	return fmt.Sprintf("paypal: http %d %s: %s", e.StatusCode, e.Name, e.Message)
}

// CreatePayout submits the payout. sender_batch_id makes the call
// idempotent on PayPal's side.
func (c *Client) CreatePayout(ctx context.Context, req PayoutRequest) (*Batch, error) {
	if strings.TrimSpace(req.SenderBatchID) == "" {
		return nil, errors.New("sender batch id is required")
	}
	if strings.TrimSpace(req.Receiver) == "" {
		return nil, errors.New("receiver is required")
	}
	if !req.Amount.IsPositive() {
		return nil, errors.New("payout amount must be positive")
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "USD"
	}

	var body createPayoutBody
	body.SenderBatchHeader.SenderBatchID = req.SenderBatchID
	body.SenderBatchHeader.EmailSubject = c.emailSubject
	body.Items = []payoutItem{{
		RecipientType: "EMAIL",
		Amount:        money{Value: req.Amount.StringFixed(2), Currency: currency},
		Receiver:      req.Receiver,
		Note:          req.Note,
		SenderItemID:  req.SenderBatchID,
	}}

	var resp batchResponse
	if err := c.do(ctx, http.MethodPost, payoutsPath, body, &resp); err != nil {
		return nil, err
	}
	return normalize(resp), nil
}

// GetPayoutBatch reads the batch and its item status.
func (c *Client) GetPayoutBatch(ctx context.Context, batchID string) (*Batch, error) {
	batchID = strings.TrimSpace(batchID)
	if batchID == "" {
		return nil, errors.New("batch id is required")
	}
	var resp batchResponse
	if err := c.do(ctx, http.MethodGet, payoutsPath+"/"+url.PathEscape(batchID), nil, &resp); err != nil {
		return nil, err
	}
	return normalize(resp), nil
}

func normalize(resp batchResponse) *Batch {
	batch := &Batch{
		BatchID:     resp.BatchHeader.PayoutBatchID,
		BatchStatus: resp.BatchHeader.BatchStatus,
		ItemStatus:  ItemPending,
	}
	switch strings.ToUpper(batch.BatchStatus) {
	case "DENIED", "CANCELED":
		batch.ItemStatus = ItemFailed
		batch.FailureText = "batch " + strings.ToLower(batch.BatchStatus)
	}
	if len(resp.Items) == 0 {
		return batch
	}
	item := resp.Items[0]
	batch.ItemID = item.PayoutItemID
	switch strings.ToUpper(item.TransactionStatus) {
	case "SUCCESS":
		batch.ItemStatus = ItemSucceeded
	case "FAILED", "RETURNED", "BLOCKED", "REFUNDED", "REVERSED", "DENIED":
		batch.ItemStatus = ItemFailed
		batch.FailureText = strings.ToLower(item.TransactionStatus)
		if item.Errors != nil && item.Errors.Message != "" {
			batch.FailureText = item.Errors.Name + ": " + item.Errors.Message
		}
	}
	return batch
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var reader io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode paypal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("paypal %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read paypal response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		_ = json.Unmarshal(payload, apiErr)
		return apiErr
	}
	if out == nil || len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode paypal response: %w", err)
	}
	return nil
}
