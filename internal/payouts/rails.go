package payouts

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/artvault-backend/pkg/db/models"
	"github.com/angelmondragon/artvault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/artvault-backend/pkg/errors"
	"github.com/angelmondragon/artvault-backend/pkg/paypal"
	"github.com/angelmondragon/artvault-backend/pkg/stripe"
)

// Instruction is a single-item transfer handed to a rail.
type Instruction struct {
	PayeeAddress      string
	Amount            decimal.Decimal
	Currency          string
	Note              string
	ClientReferenceID string
}

// RailStatus is what the rail acknowledged.
type RailStatus string

const (
	RailCompleted  RailStatus = "completed"
	RailProcessing RailStatus = "processing"
	RailFailed     RailStatus = "failed"
)

// RailResult carries the identifiers the rail assigned.
type RailResult struct {
	Status        RailStatus
	BatchID       string
	TransferID    string
	Reference     string
	FailureReason string
}

// Rail sends money. An error means the rail did not accept the payout.
type Rail interface {
	Method() enums.PaymentMethod
	Send(ctx context.Context, in Instruction) (*RailResult, error)
}

// Poller resolves payouts a rail accepted asynchronously.
type Poller interface {
	Poll(ctx context.Context, payout models.VendorPayout) (*RailResult, error)
}

type paypalAPI interface {
	CreatePayout(ctx context.Context, req paypal.PayoutRequest) (*paypal.Batch, error)
	GetPayoutBatch(ctx context.Context, batchID string) (*paypal.Batch, error)
}

// PayPalRail submits payouts through PayPal Payouts and polls batch status.
type PayPalRail struct {
	api paypalAPI
}

func NewPayPalRail(api paypalAPI) *PayPalRail {
	return &PayPalRail{api: api}
}

func (r *PayPalRail) Method() enums.PaymentMethod { return enums.PaymentMethodPayPal }

func (r *PayPalRail) Send(ctx context.Context, in Instruction) (*RailResult, error) {
	batch, err := r.api.CreatePayout(ctx, paypal.PayoutRequest{
		SenderBatchID: in.ClientReferenceID,
		Receiver:      in.PayeeAddress,
		Amount:        in.Amount,
		Currency:      in.Currency,
		Note:          in.Note,
	})
	if err != nil {
		return nil, err
	}
	return batchResult(batch), nil
}

func (r *PayPalRail) Poll(ctx context.Context, payout models.VendorPayout) (*RailResult, error) {
	if payout.RailBatchID == nil || strings.TrimSpace(*payout.RailBatchID) == "" {
		return nil, fmt.Errorf("payout %s has no rail batch id", payout.ID)
	}
	batch, err := r.api.GetPayoutBatch(ctx, *payout.RailBatchID)
	if err != nil {
		return nil, err
	}
	return batchResult(batch), nil
}

func batchResult(batch *paypal.Batch) *RailResult {
	res := &RailResult{
		Status:     RailProcessing,
		BatchID:    batch.BatchID,
		TransferID: batch.ItemID,
		Reference:  batch.BatchID,
	}
	switch batch.ItemStatus {
	case paypal.ItemSucceeded:
		res.Status = RailCompleted
	case paypal.ItemFailed:
		res.Status = RailFailed
		res.FailureReason = batch.FailureText
	}
	return res
}

type stripeAPI interface {
	Transfer(ctx context.Context, req stripe.TransferRequest) (*stripe.TransferResult, error)
}

// StripeRail sends Connect transfers; a created transfer is final.
type StripeRail struct {
	api stripeAPI
}

func NewStripeRail(api stripeAPI) *StripeRail {
	return &StripeRail{api: api}
}

func (r *StripeRail) Method() enums.PaymentMethod { return enums.PaymentMethodStripe }

func (r *StripeRail) Send(ctx context.Context, in Instruction) (*RailResult, error) {
	res, err := r.api.Transfer(ctx, stripe.TransferRequest{
		Destination:    in.PayeeAddress,
		Amount:         in.Amount,
		Currency:       in.Currency,
		Description:    in.Note,
		TransferGroup:  in.ClientReferenceID,
		IdempotencyKey: "payout-" + in.ClientReferenceID,
	})
	if err != nil {
		return nil, err
	}
	if res.Reversed {
		return nil, fmt.Errorf("stripe transfer %s was reversed", res.TransferID)
	}
	return &RailResult{Status: RailCompleted, TransferID: res.TransferID, Reference: res.TransferID}, nil
}

// ManualRail records an out-of-band payment the operator already made.
type ManualRail struct{}

func (ManualRail) Method() enums.PaymentMethod { return enums.PaymentMethodManual }

func (ManualRail) Send(_ context.Context, in Instruction) (*RailResult, error) {
	return &RailResult{Status: RailCompleted, Reference: "manual-" + in.ClientReferenceID}, nil
}

var payeeValidator = validator.New()

// ResolvePayee returns the rail address for the vendor, validating its shape.
func ResolvePayee(vendor *models.Vendor, method enums.PaymentMethod) (string, error) {
	switch method {
	case enums.PaymentMethodPayPal:
		email := ""
		if vendor.PayPalEmail != nil {
			email = strings.TrimSpace(*vendor.PayPalEmail)
		}
		if err := payeeValidator.Var(email, "required,email"); err != nil {
			return "", pkgerrors.New(pkgerrors.CodeValidation, "vendor has no valid paypal email")
		}
		return email, nil
	case enums.PaymentMethodStripe:
		account := ""
		if vendor.StripeAccountID != nil {
			account = strings.TrimSpace(*vendor.StripeAccountID)
		}
		if !strings.HasPrefix(account, "acct_") {
			return "", pkgerrors.New(pkgerrors.CodeValidation, "vendor has no valid stripe connected account")
		}
		return account, nil
	case enums.PaymentMethodManual:
		return "", nil
	default:
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported payment method %q", method))
	}
}
