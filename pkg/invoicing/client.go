// Package invoicing posts completed payouts to the external invoice and
// email collaborator.
package invoicing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/artvault-backend/pkg/config"
)

// PayoutDocument is the body the collaborator renders into an invoice.
type PayoutDocument struct {
	PayoutID      string `json:"payoutId"`
	VendorName    string `json:"vendorName"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	Reference     string `json:"reference,omitempty"`
	InvoiceNumber string `json:"invoiceNumber,omitempty"`
	TaxID         string `json:"taxId,omitempty"`
	LegalName     string `json:"legalName,omitempty"`
	TaxCountry    string `json:"taxCountry,omitempty"`
}

// Sender is the collaborator surface consumers depend on.
type Sender interface {
	SendPayoutDocument(ctx context.Context, doc PayoutDocument) error
}

// Client is the HTTP implementation of Sender.
type Client struct {
	endpoint string
	token    string
	http     *http.Client
}

// NewClient returns an error when no endpoint is configured.
func NewClient(cfg config.InvoicingConfig, httpClient *http.Client) (*Client, error) {
	endpoint := strings.TrimSpace(cfg.BaseURL)
	if endpoint == "" {
		return nil, errors.New("invoicing base url is required")
	}
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{endpoint: endpoint, token: strings.TrimSpace(cfg.APIToken), http: httpClient}, nil
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("invoicing: http %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether the collaborator may accept the document later.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

func (c *Client) SendPayoutDocument(ctx context.Context, doc PayoutDocument) error {
	if strings.TrimSpace(doc.PayoutID) == "" {
		return errors.New("payout id is required")
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode payout document: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", doc.PayoutID)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send payout document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
