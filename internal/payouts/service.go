package payouts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/artvault-backend/internal/accounts"
	"github.com/angelmondragon/artvault-backend/internal/balances"
	"github.com/angelmondragon/artvault-backend/internal/transactions"
	"github.com/angelmondragon/artvault-backend/internal/vendors"
	"github.com/angelmondragon/artvault-backend/pkg/db"
	"github.com/angelmondragon/artvault-backend/pkg/db/models"
	"github.com/angelmondragon/artvault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/artvault-backend/pkg/errors"
	"github.com/angelmondragon/artvault-backend/pkg/logger"
	"github.com/angelmondragon/artvault-backend/pkg/metrics"
	"github.com/angelmondragon/artvault-backend/pkg/outbox"
	"github.com/angelmondragon/artvault-backend/pkg/outbox/payloads"
)

const defaultRailTimeout = 30 * time.Second

// Service drives vendor payouts from creation through the rail to the
// withdrawal ledger entry.
type Service interface {
	ProcessBatch(ctx context.Context, req BatchRequest) ([]PayoutResult, error)
	ProcessPayout(ctx context.Context, payoutID uuid.UUID, actor string) (*PayoutResult, error)
	RetryWithdrawal(ctx context.Context, payoutID uuid.UUID) (*transactions.WithdrawalResult, error)
	PollProcessing(ctx context.Context, limit int) (*PollSummary, error)
	GetPayout(ctx context.Context, payoutID uuid.UUID) (*models.VendorPayout, error)
	ListPayouts(ctx context.Context, filter ListFilter) ([]models.VendorPayout, error)
}

// Candidate is one vendor line of an admin batch.
type Candidate struct {
	VendorName string          `json:"vendorName" validate:"required"`
	Amount     decimal.Decimal `json:"amount"`
}

// BatchRequest is the admin console payload.
type BatchRequest struct {
	Candidates       []Candidate         `json:"candidates" validate:"required,min=1,dive"`
	PaymentMethod    enums.PaymentMethod `json:"paymentMethod" validate:"required,oneof=paypal stripe manual"`
	GenerateInvoices bool                `json:"generateInvoices"`
	Notes            string              `json:"notes"`
	CreatedBy        string              `json:"-"`
}

// PayoutResult is the per-vendor outcome of a batch.
type PayoutResult struct {
	VendorName         string             `json:"vendorName"`
	Success            bool               `json:"success"`
	PayoutID           *uuid.UUID         `json:"payoutId,omitempty"`
	Status             enums.PayoutStatus `json:"status,omitempty"`
	Amount             decimal.Decimal    `json:"amount"`
	Reference          string             `json:"reference,omitempty"`
	InvoiceNumber      string             `json:"invoiceNumber,omitempty"`
	WithdrawalRecorded bool               `json:"withdrawalRecorded"`
	WithdrawalReversed bool               `json:"withdrawalReversed,omitempty"`
	Error              string             `json:"error,omitempty"`
}

// PollSummary counts what a status poll resolved.
type PollSummary struct {
	Checked   int `json:"checked"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Pending   int `json:"pending"`
	Reversed  int `json:"reversed"`
}

// ListFilter narrows the admin payout listing.
type ListFilter struct {
	Status     *enums.PayoutStatus
	Method     *enums.PaymentMethod
	VendorName string
	Limit      int
}

// ServiceParams groups the collaborators of the payout processor.
type ServiceParams struct {
	Tx           db.TxRunner
	Repo         Repository
	Accounts     accounts.Service
	Vendors      vendors.Service
	Balances     balances.Service
	Transactions transactions.Service
	Outbox       outbox.Emitter
	Rails        []Rail
	Logger       *logger.Logger
	Metrics      *metrics.BankingMetrics
	RailTimeout  time.Duration
	Now          func() time.Time
}

type service struct {
	tx           db.TxRunner
	repo         Repository
	accounts     accounts.Service
	vendors      vendors.Service
	balances     balances.Service
	transactions transactions.Service
	outbox       outbox.Emitter
	rails        map[enums.PaymentMethod]Rail
	logg         *logger.Logger
	metrics      *metrics.BankingMetrics
	railTimeout  time.Duration
	now          func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("payout repository required")
	}
	if params.Accounts == nil {
		return nil, fmt.Errorf("accounts service required")
	}
	if params.Vendors == nil {
		return nil, fmt.Errorf("vendors service required")
	}
	if params.Balances == nil {
		return nil, fmt.Errorf("balances service required")
	}
	if params.Transactions == nil {
		return nil, fmt.Errorf("transactions service required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	rails := make(map[enums.PaymentMethod]Rail, len(params.Rails))
	for _, rail := range params.Rails {
		if rail == nil {
			continue
		}
		rails[rail.Method()] = rail
	}
	if len(rails) == 0 {
		return nil, fmt.Errorf("at least one payment rail required")
	}
	timeout := params.RailTimeout
	if timeout <= 0 {
		timeout = defaultRailTimeout
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		tx:           params.Tx,
		repo:         params.Repo,
		accounts:     params.Accounts,
		vendors:      params.Vendors,
		balances:     params.Balances,
		transactions: params.Transactions,
		outbox:       params.Outbox,
		rails:        rails,
		logg:         params.Logger,
		metrics:      params.Metrics,
		railTimeout:  timeout,
		now:          now,
	}, nil
}

// ProcessBatch pays each candidate in order. A failing candidate is reported
// in its result and never stops the batch.
func (s *service) ProcessBatch(ctx context.Context, req BatchRequest) ([]PayoutResult, error) {
	if len(req.Candidates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one candidate is required")
	}
	if !req.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment method %q", req.PaymentMethod))
	}
	rail, ok := s.rails[req.PaymentMethod]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("payment method %s is not configured", req.PaymentMethod))
	}
	createdBy := strings.TrimSpace(req.CreatedBy)
	if createdBy == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "created by is required")
	}

	results := make([]PayoutResult, 0, len(req.Candidates))
	for _, candidate := range req.Candidates {
		res := s.processCandidate(ctx, candidate, rail, req, createdBy)
		results = append(results, res)
	}
	return results, nil
}

func (s *service) processCandidate(ctx context.Context, candidate Candidate, rail Rail, req BatchRequest, createdBy string) PayoutResult {
	name := strings.TrimSpace(candidate.VendorName)
	amount := candidate.Amount.Round(2)
	res := PayoutResult{VendorName: name, Amount: amount}
	fail := func(err error) PayoutResult {
		res.Error = errorMessage(err)
		s.metrics.IncPayout(string(rail.Method()), "rejected")
		return res
	}

	if name == "" {
		return fail(pkgerrors.New(pkgerrors.CodeValidation, "vendor name is required"))
	}
	if !amount.IsPositive() {
		return fail(pkgerrors.New(pkgerrors.CodeValidation, "payout amount must be positive"))
	}
	vendor, err := s.vendors.GetByName(ctx, name)
	if err != nil {
		return fail(err)
	}
	if !vendor.Active {
		return fail(pkgerrors.New(pkgerrors.CodeStateConflict, "vendor is inactive"))
	}
	res.VendorName = vendor.Name

	payout := &models.VendorPayout{
		ID:                  uuid.New(),
		VendorID:            vendor.ID,
		VendorName:          vendor.Name,
		CollectorIdentifier: vendor.CollectorIdentifier,
		Amount:              amount,
		Currency:            enums.CurrencyUSD,
		Status:              enums.PayoutStatusPending,
		PaymentMethod:       rail.Method(),
		Notes:               optional(req.Notes),
		CreatedBy:           createdBy,
	}
	if req.GenerateInvoices {
		invoice := InvoiceNumber(s.now(), payout.ID)
		payout.InvoiceNumber = &invoice
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.ensureWithdrawable(ctx, tx, vendor, amount, uuid.Nil); err != nil {
			return err
		}
		if err := s.repo.WithTx(tx).Create(ctx, payout); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("create payout for %s", vendor.Name))
		}
		return nil
	})
	if err != nil {
		return fail(err)
	}
	return s.execute(ctx, payout, vendor, rail)
}

// ensureWithdrawable rejects amounts above the vendor's displayable USD
// balance less what its other unsettled payouts already reserve. It locks the
// vendor's account row first, so it must run inside tx together with the
// write that reserves the amount.
func (s *service) ensureWithdrawable(ctx context.Context, tx *gorm.DB, vendor *models.Vendor, amount decimal.Decimal, exclude uuid.UUID) error {
	vendorID := vendor.ID
	if _, err := s.accounts.WithTx(tx).EnsureAccount(ctx, vendor.CollectorIdentifier, enums.AccountTypeVendor, &vendorID); err != nil {
		return err
	}
	if _, err := s.accounts.WithTx(tx).LockAccount(ctx, vendor.CollectorIdentifier); err != nil {
		return err
	}
	totals, err := s.balances.WithTx(tx).CalculateTotals(ctx, vendor.CollectorIdentifier, enums.CurrencyUSD)
	if err != nil {
		return err
	}
	reserved, err := s.repo.WithTx(tx).SumUnsettled(ctx, vendor.ID, exclude)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum unsettled payouts")
	}
	available := totals.Clamped().Sub(reserved)
	if amount.GreaterThan(available) {
		return pkgerrors.New(pkgerrors.CodeInsufficientBalance, "payout exceeds withdrawable balance").
			WithDetails(map[string]any{
				"vendorName": vendor.Name,
				"balance":    totals.Clamped().StringFixed(2),
				"reserved":   reserved.StringFixed(2),
				"requested":  amount.StringFixed(2),
			})
	}
	return nil
}

// execute claims the payout, calls the rail and records the outcome. The
// withdrawal entry is written only after the rail accepted the payout.
func (s *service) execute(ctx context.Context, payout *models.VendorPayout, vendor *models.Vendor, rail Rail) PayoutResult {
	ctx = s.logg.WithPayoutID(ctx, payout.ID.String())
	ctx = s.logg.WithFields(ctx, map[string]any{
		"vendor_name":    payout.VendorName,
		"payment_method": string(payout.PaymentMethod),
		"amount":         payout.Amount.StringFixed(2),
	})
	id := payout.ID
	res := PayoutResult{
		VendorName:    payout.VendorName,
		PayoutID:      &id,
		Status:        payout.Status,
		Amount:        payout.Amount,
		InvoiceNumber: deref(payout.InvoiceNumber),
	}
	method := string(payout.PaymentMethod)
	from := []enums.PayoutStatus{payout.Status}

	payee, err := ResolvePayee(vendor, payout.PaymentMethod)
	if err != nil {
		return s.markFailed(ctx, payout, from, errorMessage(err), res)
	}

	startedAt := s.now()
	claimed, err := s.repo.Transition(ctx, payout.ID, from, enums.PayoutStatusProcessing, map[string]any{
		"processed_at":   startedAt,
		"payee_address":  optional(payee),
		"failure_reason": nil,
		"failed_at":      nil,
	})
	if err != nil {
		res.Error = errorMessage(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim payout"))
		return res
	}
	if !claimed {
		res.Error = "payout was claimed by another run"
		s.metrics.IncPayout(method, "conflict")
		return res
	}
	payout.Status = enums.PayoutStatusProcessing
	res.Status = payout.Status

	railCtx, cancel := context.WithTimeout(ctx, s.railTimeout)
	railRes, err := rail.Send(railCtx, Instruction{
		PayeeAddress:      payee,
		Amount:            payout.Amount,
		Currency:          string(payout.Currency),
		Note:              payoutNote(payout),
		ClientReferenceID: payout.ID.String(),
	})
	timedOut := errors.Is(railCtx.Err(), context.DeadlineExceeded)
	cancel()
	if err != nil {
		reason := err.Error()
		if timedOut {
			reason = fmt.Sprintf("rail timed out after %s: %s", s.railTimeout, reason)
		}
		s.logg.Error(ctx, "payout rail call failed", pkgerrors.Wrap(pkgerrors.CodeExternalRail, err, "send payout"))
		return s.markFailed(ctx, payout, []enums.PayoutStatus{enums.PayoutStatusProcessing}, reason, res)
	}
	if railRes.Status == RailFailed {
		return s.markFailed(ctx, payout, []enums.PayoutStatus{enums.PayoutStatusProcessing}, railRes.FailureReason, res)
	}

	res.Reference = railRes.Reference
	payout.Reference = optional(railRes.Reference)
	payout.RailBatchID = optional(railRes.BatchID)
	payout.RailTransferID = optional(railRes.TransferID)
	railFields := map[string]any{
		"reference":        payout.Reference,
		"rail_batch_id":    payout.RailBatchID,
		"rail_transfer_id": payout.RailTransferID,
	}

	if railRes.Status == RailCompleted {
		if err := s.complete(ctx, payout, vendor, railFields); err != nil {
			s.logg.Error(ctx, "payout completion not persisted", err)
			res.Error = errorMessage(err)
		} else {
			res.Status = enums.PayoutStatusCompleted
		}
	} else if err := s.repo.Update(ctx, payout.ID, railFields); err != nil {
		s.logg.Error(ctx, "payout rail identifiers not persisted", err)
	}

	res.Success = true
	res.WithdrawalRecorded = s.recordWithdrawal(ctx, payout)
	s.metrics.IncPayout(method, string(res.Status))
	s.logg.Info(ctx, "payout accepted by rail")
	return res
}

// complete moves a processing payout to completed and queues the event in
// the same transaction.
func (s *service) complete(ctx context.Context, payout *models.VendorPayout, vendor *models.Vendor, fields map[string]any) error {
	completedAt := s.now()
	updates := map[string]any{"completed_at": completedAt}
	for k, v := range fields {
		updates[k] = v
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.repo.WithTx(tx).Transition(ctx, payout.ID, []enums.PayoutStatus{enums.PayoutStatusProcessing}, enums.PayoutStatusCompleted, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete payout")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payout is no longer processing")
		}
		payout.Status = enums.PayoutStatusCompleted
		payout.CompletedAt = &completedAt
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPayoutCompleted,
			AggregateType: enums.AggregateVendorPayout,
			AggregateID:   payout.ID,
			Actor:         &outbox.ActorRef{Identifier: payout.CreatedBy, Role: "admin"},
			OccurredAt:    completedAt,
			Data: payloads.PayoutCompletedEvent{
				PayoutID:            payout.ID,
				VendorID:            payout.VendorID,
				VendorName:          payout.VendorName,
				CollectorIdentifier: payout.CollectorIdentifier,
				Amount:              payout.Amount.StringFixed(2),
				Currency:            string(payout.Currency),
				PaymentMethod:       string(payout.PaymentMethod),
				Reference:           deref(payout.Reference),
				InvoiceNumber:       deref(payout.InvoiceNumber),
				TaxID:               deref(vendor.TaxID),
				LegalName:           deref(vendor.LegalName),
				TaxCountry:          deref(vendor.TaxCountry),
				CompletedAt:         completedAt,
			},
		})
	})
}

// markFailed records the rail failure on the payout. A withdrawal already
// booked for it, which happens when an async rail accepted and later failed
// the transfer, is reversed in the same transaction.
func (s *service) markFailed(ctx context.Context, payout *models.VendorPayout, from []enums.PayoutStatus, reason string, res PayoutResult) PayoutResult {
	if strings.TrimSpace(reason) == "" {
		reason = "payout failed"
	}
	failedAt := s.now()
	res.Error = reason
	reversed := decimal.Zero
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.repo.WithTx(tx).Transition(ctx, payout.ID, from, enums.PayoutStatusFailed, map[string]any{
			"failure_reason": reason,
			"failed_at":      failedAt,
		})
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payout status changed concurrently")
		}
		reversal, err := s.transactions.ReversePayoutWithdrawal(ctx, tx, transactions.ReversalInput{
			CollectorIdentifier: payout.CollectorIdentifier,
			PayoutID:            payout.ID,
			Reason:              reason,
		})
		if err != nil {
			return err
		}
		reversed = reversal.USDRestored
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPayoutFailed,
			AggregateType: enums.AggregateVendorPayout,
			AggregateID:   payout.ID,
			OccurredAt:    failedAt,
			Data: payloads.PayoutFailedEvent{
				PayoutID:      payout.ID,
				VendorID:      payout.VendorID,
				VendorName:    payout.VendorName,
				Amount:        payout.Amount.StringFixed(2),
				Currency:      string(payout.Currency),
				PaymentMethod: string(payout.PaymentMethod),
				Reason:        reason,
				FailedAt:      failedAt,
			},
		})
	})
	if err != nil {
		s.logg.Error(ctx, "payout failure not persisted", err)
	} else {
		payout.Status = enums.PayoutStatusFailed
		res.Status = enums.PayoutStatusFailed
		res.WithdrawalReversed = reversed.IsPositive()
	}
	s.metrics.IncPayout(string(payout.PaymentMethod), "failed")
	logCtx := s.logg.WithField(ctx, "failure_reason", reason)
	if res.WithdrawalReversed {
		logCtx = s.logg.WithField(logCtx, "usd_restored", reversed.StringFixed(2))
	}
	s.logg.Warn(logCtx, "payout failed")
	return res
}

// recordWithdrawal writes the withdrawal entry. A failure here leaves the
// payout status alone; the integrity check reports the gap.
func (s *service) recordWithdrawal(ctx context.Context, payout *models.VendorPayout) bool {
	_, err := s.transactions.RecordPayoutWithdrawal(ctx, transactions.WithdrawalInput{
		CollectorIdentifier: payout.CollectorIdentifier,
		VendorID:            payout.VendorID,
		PayoutID:            payout.ID,
		Amount:              payout.Amount,
		Reference:           deref(payout.Reference),
		CreatedBy:           payout.CreatedBy,
	})
	if err != nil {
		s.metrics.IncWithdrawalRecordFailure()
		s.logg.Error(ctx, "withdrawal ledger entry not recorded after rail success", err)
		return false
	}
	return true
}

// ProcessPayout retries a pending or failed payout through its rail. A failed
// payout is re-queued as pending under the vendor lock so a concurrent batch
// sees its amount as reserved.
func (s *service) ProcessPayout(ctx context.Context, payoutID uuid.UUID, actor string) (*PayoutResult, error) {
	payout, err := s.GetPayout(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	if payout.Status != enums.PayoutStatusPending && payout.Status != enums.PayoutStatusFailed {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("payout is %s", payout.Status))
	}
	rail, ok := s.rails[payout.PaymentMethod]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("payment method %s is not configured", payout.PaymentMethod))
	}
	vendor, err := s.vendors.GetByID(ctx, payout.VendorID)
	if err != nil {
		return nil, err
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.ensureWithdrawable(ctx, tx, vendor, payout.Amount, payout.ID); err != nil {
			return err
		}
		if payout.Status == enums.PayoutStatusPending {
			return nil
		}
		ok, err := s.repo.WithTx(tx).Transition(ctx, payout.ID, []enums.PayoutStatus{enums.PayoutStatusFailed}, enums.PayoutStatusPending, nil)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "requeue payout")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payout status changed concurrently")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	payout.Status = enums.PayoutStatusPending
	if actor = strings.TrimSpace(actor); actor != "" {
		ctx = s.logg.WithField(ctx, "retried_by", actor)
	}
	res := s.execute(ctx, payout, vendor, rail)
	return &res, nil
}

// RetryWithdrawal re-runs the idempotent withdrawal recorder for a payout
// whose rail transfer completed.
func (s *service) RetryWithdrawal(ctx context.Context, payoutID uuid.UUID) (*transactions.WithdrawalResult, error) {
	payout, err := s.GetPayout(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	if payout.Status != enums.PayoutStatusCompleted {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only completed payouts can record a withdrawal")
	}
	res, err := s.transactions.RecordPayoutWithdrawal(ctx, transactions.WithdrawalInput{
		CollectorIdentifier: payout.CollectorIdentifier,
		VendorID:            payout.VendorID,
		PayoutID:            payout.ID,
		Amount:              payout.Amount,
		Reference:           deref(payout.Reference),
		CreatedBy:           payout.CreatedBy,
	})
	if err != nil {
		return nil, err
	}
	logCtx := s.logg.WithPayoutID(ctx, payout.ID.String())
	if res.Duplicate {
		s.logg.Info(logCtx, "withdrawal already recorded")
	} else {
		s.logg.Info(logCtx, "missing withdrawal recorded")
	}
	return res, nil
}

// PollProcessing asks async rails for the final state of processing payouts.
func (s *service) PollProcessing(ctx context.Context, limit int) (*PollSummary, error) {
	summary := &PollSummary{}
	var errs error
	for method, rail := range s.rails {
		poller, ok := rail.(Poller)
		if !ok {
			continue
		}
		m := method
		pending, err := s.repo.ListByStatus(ctx, enums.PayoutStatusProcessing, &m, limit)
		if err != nil {
			errs = multierr.Append(errs, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list processing payouts"))
			continue
		}
		for i := range pending {
			summary.Checked++
			if err := s.pollOne(ctx, poller, &pending[i], summary); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("poll payout %s: %w", pending[i].ID, err))
			}
		}
	}
	return summary, errs
}

func (s *service) pollOne(ctx context.Context, poller Poller, payout *models.VendorPayout, summary *PollSummary) error {
	ctx = s.logg.WithPayoutID(ctx, payout.ID.String())
	pollCtx, cancel := context.WithTimeout(ctx, s.railTimeout)
	defer cancel()

	res, err := poller.Poll(pollCtx, *payout)
	if err != nil {
		summary.Pending++
		return err
	}
	switch res.Status {
	case RailCompleted:
		vendor, err := s.vendors.GetByID(ctx, payout.VendorID)
		if err != nil {
			return err
		}
		fields := map[string]any{}
		if res.TransferID != "" {
			fields["rail_transfer_id"] = res.TransferID
		}
		if err := s.complete(ctx, payout, vendor, fields); err != nil {
			return err
		}
		summary.Completed++
		s.metrics.IncPayout(string(payout.PaymentMethod), string(enums.PayoutStatusCompleted))
		s.logg.Info(ctx, "async payout completed")
	case RailFailed:
		out := s.markFailed(ctx, payout, []enums.PayoutStatus{enums.PayoutStatusProcessing}, res.FailureReason, PayoutResult{})
		if out.Status != enums.PayoutStatusFailed {
			return errors.New("failed payout status not persisted")
		}
		summary.Failed++
		if out.WithdrawalReversed {
			summary.Reversed++
		}
	default:
		summary.Pending++
	}
	return nil
}

func (s *service) GetPayout(ctx context.Context, payoutID uuid.UUID) (*models.VendorPayout, error) {
	if payoutID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payout id is required")
	}
	payout, err := s.repo.FindByID(ctx, payoutID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payout not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payout")
	}
	return payout, nil
}

func (s *service) ListPayouts(ctx context.Context, filter ListFilter) ([]models.VendorPayout, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if name := strings.TrimSpace(filter.VendorName); name != "" {
		vendor, err := s.vendors.GetByName(ctx, name)
		if err != nil {
			return nil, err
		}
		list, err := s.repo.ListByVendor(ctx, vendor.ID, limit)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list vendor payouts")
		}
		return list, nil
	}
	status := enums.PayoutStatusPending
	if filter.Status != nil {
		status = *filter.Status
	}
	list, err := s.repo.ListByStatus(ctx, status, filter.Method, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payouts")
	}
	return list, nil
}

// InvoiceNumber derives a stable invoice number from the payout id.
func InvoiceNumber(at time.Time, payoutID uuid.UUID) string {
	return fmt.Sprintf("INV-%s-%s", at.UTC().Format("200601"), strings.ToUpper(payoutID.String()[:6]))
}

func payoutNote(payout *models.VendorPayout) string {
	if payout.InvoiceNumber != nil {
		return "ArtVault payout " + *payout.InvoiceNumber
	}
	return "ArtVault payout"
}

func errorMessage(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		return typed.Message()
	}
	return err.Error()
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
