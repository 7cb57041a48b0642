package transactions

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/artvault-backend/internal/ledger"
	"github.com/angelmondragon/artvault-backend/pkg/db/models"
	"github.com/angelmondragon/artvault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/artvault-backend/pkg/errors"
)

// RecordPayoutEarning resolves the vendor, applies its payout rule to the
// USD-normalized unit price and credits the vendor's USD balance. A rule that
// yields zero writes nothing.
func (s *service) RecordPayoutEarning(ctx context.Context, input PayoutEarningInput) (*PayoutEarningResult, error) {
	name := strings.TrimSpace(input.VendorName)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor name is required")
	}
	lineItem := strings.TrimSpace(input.LineItemID)
	if lineItem == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "line item id is required")
	}
	if input.UnitPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price must not be negative")
	}
	quantity := input.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	vendor, err := s.vendors.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if !vendor.Active {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "vendor is inactive")
	}
	unitUSD, err := s.vendors.NormalizeToUSD(input.UnitPrice, input.Currency)
	if err != nil {
		return nil, err
	}
	rule, err := s.vendors.ResolvePayoutRule(ctx, input.ProductID, vendor)
	if err != nil {
		return nil, err
	}
	amount := rule.Amount(unitUSD, quantity)
	identifier := vendor.CollectorIdentifier

	result := &PayoutEarningResult{
		VendorName:          vendor.Name,
		CollectorIdentifier: identifier,
		USDEarned:           decimal.Zero,
		RuleSource:          string(rule.Source),
	}

	var out *entryOutcome
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		vendorID := vendor.ID
		if _, err := s.accounts.WithTx(tx).EnsureAccount(ctx, identifier, enums.AccountTypeVendor, &vendorID); err != nil {
			return err
		}
		if amount.IsZero() {
			totals, err := s.balances.WithTx(tx).CalculateTotals(ctx, identifier, enums.CurrencyUSD)
			if err != nil {
				return err
			}
			result.USDBalance = totals.Clamped()
			return nil
		}
		metadata := map[string]any{
			"vendorId":     vendor.ID.String(),
			"productId":    input.ProductID,
			"unitPrice":    input.UnitPrice.String(),
			"unitPriceUsd": unitUSD.String(),
			"currency":     strings.ToUpper(strings.TrimSpace(input.Currency)),
			"quantity":     quantity,
			"ruleSource":   string(rule.Source),
		}
		if rule.FlatRate.Valid {
			metadata["flatRate"] = rule.FlatRate.Decimal.String()
		} else {
			metadata["percentage"] = rule.Percentage.Decimal.String()
		}
		var err error
		out, err = s.appendAndFold(ctx, tx, ledger.RecordEntryInput{
			CollectorIdentifier: identifier,
			TransactionType:     enums.TransactionPayoutEarned,
			Amount:              amount,
			Currency:            enums.CurrencyUSD,
			OrderID:             optional(input.OrderID),
			LineItemID:          &lineItem,
			Description:         "Vendor earnings",
			Metadata:            metadata,
			DedupKey:            ledger.DedupKey(identifier, enums.TransactionPayoutEarned, lineItem, string(enums.CurrencyUSD)),
			CreatedBy:           "system",
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		return result, nil
	}
	s.observe(ctx, enums.TransactionPayoutEarned, identifier, amount, out.duplicate)
	id := out.entry.Entry.ID
	result.EntryID = &id
	result.USDBalance = out.totals.Clamped()
	result.Duplicate = out.duplicate
	if !out.duplicate {
		result.USDEarned = out.entry.Entry.Amount
	}
	return result, nil
}

// RecordPayoutWithdrawal debits the vendor's USD balance for a payout the
// rail accepted. Keyed by payout id so a retry never double debits.
func (s *service) RecordPayoutWithdrawal(ctx context.Context, input WithdrawalInput) (*WithdrawalResult, error) {
	identifier, err := requireIdentifier(input.CollectorIdentifier)
	if err != nil {
		return nil, err
	}
	if input.PayoutID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payout id is required")
	}
	amount := input.Amount.Round(2)
	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "withdrawal amount must be positive")
	}
	createdBy := strings.TrimSpace(input.CreatedBy)
	if createdBy == "" {
		createdBy = "system"
	}

	var out *entryOutcome
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var vendorID *uuid.UUID
		if input.VendorID != uuid.Nil {
			id := input.VendorID
			vendorID = &id
		}
		if _, err := s.accounts.WithTx(tx).EnsureAccount(ctx, identifier, enums.AccountTypeVendor, vendorID); err != nil {
			return err
		}
		payoutID := input.PayoutID
		key, err := s.withdrawalKey(ctx, tx, identifier, payoutID)
		if err != nil {
			return err
		}
		out, err = s.appendAndFold(ctx, tx, ledger.RecordEntryInput{
			CollectorIdentifier: identifier,
			TransactionType:     enums.TransactionPayoutWithdrawal,
			Amount:              amount.Neg(),
			Currency:            enums.CurrencyUSD,
			PayoutID:            &payoutID,
			Description:         "Vendor payout",
			Metadata:            map[string]any{"reference": input.Reference},
			DedupKey:            key,
			CreatedBy:           createdBy,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.observe(ctx, enums.TransactionPayoutWithdrawal, identifier, amount.Neg(), out.duplicate)
	res := &WithdrawalResult{
		CollectorIdentifier: identifier,
		USDWithdrawn:        amount,
		USDBalance:          out.totals.Clamped(),
		Duplicate:           out.duplicate,
		EntryID:             out.entry.Entry.ID,
	}
	if out.duplicate {
		res.USDWithdrawn = decimal.Zero
	}
	return res, nil
}

// withdrawalKey keys the withdrawal by payout id. Each reversal already
// booked for the payout starts a new attempt, so a payout that is retried
// after the rail failed it is debited again exactly once.
func (s *service) withdrawalKey(ctx context.Context, tx *gorm.DB, identifier string, payoutID uuid.UUID) (string, error) {
	entries, err := s.ledger.WithTx(tx).ListByPayout(ctx, payoutID)
	if err != nil {
		return "", err
	}
	reversals := 0
	for _, entry := range entries {
		if IsWithdrawalReversal(entry) {
			reversals++
		}
	}
	parts := []string{payoutID.String(), string(enums.CurrencyUSD)}
	if reversals > 0 {
		parts = append(parts, fmt.Sprintf("attempt-%d", reversals+1))
	}
	return ledger.DedupKey(identifier, enums.TransactionPayoutWithdrawal, parts...), nil
}

// ReversePayoutWithdrawal credits back every withdrawal of the payout that
// has not been reversed yet. It runs inside tx so the reversal commits with
// the payout's failed transition; a nil tx opens its own transaction. Each
// reversal is keyed by the withdrawal entry it offsets.
func (s *service) ReversePayoutWithdrawal(ctx context.Context, tx *gorm.DB, input ReversalInput) (*ReversalResult, error) {
	identifier, err := requireIdentifier(input.CollectorIdentifier)
	if err != nil {
		return nil, err
	}
	if input.PayoutID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payout id is required")
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		reason = "payout failed"
	}
	if tx == nil {
		var res *ReversalResult
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			var err error
			res, err = s.reverseWithdrawals(ctx, tx, identifier, input.PayoutID, reason)
			return err
		})
		return res, err
	}
	return s.reverseWithdrawals(ctx, tx, identifier, input.PayoutID, reason)
}

func (s *service) reverseWithdrawals(ctx context.Context, tx *gorm.DB, identifier string, payoutID uuid.UUID, reason string) (*ReversalResult, error) {
	entries, err := s.ledger.WithTx(tx).ListByPayout(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	res := &ReversalResult{
		CollectorIdentifier: identifier,
		USDRestored:         decimal.Zero,
		EntryIDs:            []uuid.UUID{},
	}
	for _, entry := range entries {
		if entry.TransactionType != enums.TransactionPayoutWithdrawal || !entry.Amount.IsNegative() {
			continue
		}
		restored := entry.Amount.Neg()
		out, err := s.ledger.WithTx(tx).RecordEntry(ctx, ledger.RecordEntryInput{
			CollectorIdentifier: identifier,
			TransactionType:     enums.TransactionManualAdjustment,
			Amount:              restored,
			Currency:            enums.CurrencyUSD,
			PayoutID:            &payoutID,
			Description:         "Payout reversal",
			Metadata: map[string]any{
				"referenceEntryId": entry.ID.String(),
				"payoutId":         payoutID.String(),
				"reason":           reason,
			},
			DedupKey:  ledger.DedupKey(identifier, enums.TransactionPayoutWithdrawal, payoutID.String(), "reversal", entry.ID.String()),
			CreatedBy: "system",
		})
		if err != nil {
			return nil, err
		}
		s.observe(ctx, enums.TransactionManualAdjustment, identifier, restored, !out.Inserted)
		if out.Inserted {
			res.USDRestored = res.USDRestored.Add(restored)
			res.EntryIDs = append(res.EntryIDs, out.Entry.ID)
		}
	}
	return res, nil
}

// IsWithdrawalReversal reports whether entry offsets a payout withdrawal.
func IsWithdrawalReversal(entry models.LedgerEntry) bool {
	return entry.TransactionType == enums.TransactionManualAdjustment && entry.PayoutID != nil && entry.Amount.IsPositive()
}

// RecordRefundDeduction reverses vendor earnings. The entry is deduplicated
// only when both a refund id and a line item id are supplied.
func (s *service) RecordRefundDeduction(ctx context.Context, input RefundDeductionInput) (*RefundResult, error) {
	identifier, err := requireIdentifier(input.CollectorIdentifier)
	if err != nil {
		return nil, err
	}
	orderID := strings.TrimSpace(input.OrderID)
	if orderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	amount := input.Amount.Abs().Round(2)
	if amount.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be non-zero")
	}
	refundID := strings.TrimSpace(input.RefundID)
	lineItem := strings.TrimSpace(input.LineItemID)
	var dedupKey string
	if refundID != "" && lineItem != "" {
		dedupKey = ledger.DedupKey(identifier, enums.TransactionRefundDeduction, refundID, lineItem)
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		reason = "Refund deduction"
	}
	createdBy := strings.TrimSpace(input.CreatedBy)
	if createdBy == "" {
		createdBy = "system"
	}

	var out *entryOutcome
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.accounts.WithTx(tx).EnsureAccount(ctx, identifier, enums.AccountTypeVendor, nil); err != nil {
			return err
		}
		var err error
		out, err = s.appendAndFold(ctx, tx, ledger.RecordEntryInput{
			CollectorIdentifier: identifier,
			TransactionType:     enums.TransactionRefundDeduction,
			Amount:              amount.Neg(),
			Currency:            enums.CurrencyUSD,
			OrderID:             &orderID,
			LineItemID:          optional(lineItem),
			Description:         reason,
			Metadata:            map[string]any{"refundId": refundID},
			DedupKey:            dedupKey,
			CreatedBy:           createdBy,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.observe(ctx, enums.TransactionRefundDeduction, identifier, amount.Neg(), out.duplicate)
	res := &RefundResult{
		CollectorIdentifier: identifier,
		USDDeducted:         amount,
		USDBalance:          out.totals.Clamped(),
		Duplicate:           out.duplicate,
		EntryID:             out.entry.Entry.ID,
	}
	if out.duplicate {
		res.USDDeducted = decimal.Zero
	}
	return res, nil
}

// RecordManualAdjustment appends an operator correction in either currency.
// The author is mandatory for audit.
func (s *service) RecordManualAdjustment(ctx context.Context, input AdjustmentInput) (*AdjustmentResult, error) {
	identifier, err := requireIdentifier(input.CollectorIdentifier)
	if err != nil {
		return nil, err
	}
	createdBy := strings.TrimSpace(input.CreatedBy)
	if createdBy == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "adjustment author is required")
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "adjustment reason is required")
	}
	currency, err := enums.ParseCurrency(input.Currency)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid currency")
	}
	amount := input.Amount.Round(2)
	if amount.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "adjustment amount must be non-zero")
	}
	accountType := enums.AccountTypeCustomer
	if currency == enums.CurrencyUSD {
		accountType = enums.AccountTypeVendor
	}
	metadata := map[string]any{}
	if input.ReferenceEntryID != nil {
		metadata["referenceEntryId"] = input.ReferenceEntryID.String()
	}

	var out *entryOutcome
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.accounts.WithTx(tx).EnsureAccount(ctx, identifier, accountType, nil); err != nil {
			return err
		}
		var err error
		out, err = s.appendAndFold(ctx, tx, ledger.RecordEntryInput{
			CollectorIdentifier: identifier,
			TransactionType:     enums.TransactionManualAdjustment,
			Amount:              amount,
			Currency:            currency,
			Description:         reason,
			Metadata:            metadata,
			CreatedBy:           createdBy,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.observe(ctx, enums.TransactionManualAdjustment, identifier, amount, false)
	return &AdjustmentResult{
		CollectorIdentifier: identifier,
		Currency:            string(currency),
		Amount:              amount,
		Balance:             out.totals.Clamped(),
		EntryID:             out.entry.Entry.ID,
	}, nil
}
