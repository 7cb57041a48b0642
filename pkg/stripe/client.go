package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/artvault-backend/pkg/config"
	"github.com/angelmondragon/artvault-backend/pkg/logger"
)

const (
	testEnv = "test"
	liveEnv = "live"
)

var (
	errAPIKeyRequired   = errors.New("stripe api key is required")
	errInvalidStripeEnv = fmt.Errorf("stripe environment must be %q or %q", testEnv, liveEnv)
)

type transferAPI interface {
	Create(ctx context.Context, params *stripe.TransferCreateParams) (*stripe.Transfer, error)
}

// Client sends Connect transfers to vendor accounts.
type Client struct {
	transfers   transferAPI
	environment string
}

// TransferRequest moves Amount (USD, dollars) to a connected account.
type TransferRequest struct {
	Destination    string
	Amount         decimal.Decimal
	Currency       string
	Description    string
	TransferGroup  string
	IdempotencyKey string
}

type TransferResult struct {
	TransferID string
	Reversed   bool
}

// NewClient validates the key against the configured environment.
func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	if err := validateAPIKey(env, apiKey); err != nil {
		return nil, err
	}

	api := stripe.NewClient(apiKey)
	if logg != nil {
		logg.Info(ctx, fmt.Sprintf("stripe client initialized (%s)", env))
	}
	return &Client{transfers: api.V1Transfers, environment: env}, nil
}

func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// Transfer creates a Connect transfer. Amounts are sent in cents.
func (c *Client) Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	if c == nil || c.transfers == nil {
		return nil, errors.New("stripe client not initialized")
	}
	if !strings.HasPrefix(req.Destination, "acct_") {
		return nil, fmt.Errorf("invalid connected account %q", req.Destination)
	}
	cents := req.Amount.Mul(decimal.NewFromInt(100)).Round(0)
	if !cents.IsPositive() {
		return nil, errors.New("transfer amount must be positive")
	}
	currency := strings.ToLower(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "usd"
	}

	params := &stripe.TransferCreateParams{
		Amount:      stripe.Int64(cents.IntPart()),
		Currency:    stripe.String(currency),
		Destination: stripe.String(req.Destination),
	}
	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}
	if req.TransferGroup != "" {
		params.TransferGroup = stripe.String(req.TransferGroup)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	transfer, err := c.transfers.Create(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("stripe transfer: %w", err)
	}
	return &TransferResult{TransferID: transfer.ID, Reversed: transfer.Reversed}, nil
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		env = testEnv
	}
	switch env {
	case testEnv, liveEnv:
		return env, nil
	default:
		return "", errInvalidStripeEnv
	}
}

func validateAPIKey(env, key string) error {
	var prefixes []string
	switch env {
	case testEnv:
		prefixes = []string{"sk_test", "rk_test"}
	case liveEnv:
		prefixes = []string{"sk_live", "rk_live"}
	default:
		return errInvalidStripeEnv
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(key, prefix) {
			return nil
		}
	}
	return fmt.Errorf("stripe environment %q requires a %s secret key", env, env)
}
