// Package notifications consumes payout events from the payouts
// subscription and forwards completed payouts to the invoicing collaborator.
package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/artvault-backend/pkg/enums"
	"github.com/angelmondragon/artvault-backend/pkg/invoicing"
	"github.com/angelmondragon/artvault-backend/pkg/logger"
	"github.com/angelmondragon/artvault-backend/pkg/outbox"
	"github.com/angelmondragon/artvault-backend/pkg/outbox/payloads"
)

const payoutDocumentConsumer = "payout-documents"

type receiver interface {
	Receive(ctx context.Context, f func(context.Context, *pubsub.Message)) error
}

type processedGuard interface {
	CheckAndMarkProcessed(ctx context.Context, consumer, eventID string) (bool, error)
	Delete(ctx context.Context, consumer, eventID string) error
}

// Consumer dispatches payout documents. It never writes to the ledger; a
// failed dispatch is retried by nacking the message.
type Consumer struct {
	subscription receiver
	guard        processedGuard
	sender       invoicing.Sender
	logg         *logger.Logger
}

func NewConsumer(subscription receiver, guard processedGuard, sender invoicing.Sender, logg *logger.Logger) (*Consumer, error) {
	if subscription == nil {
		return nil, fmt.Errorf("payouts subscription required")
	}
	if guard == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if sender == nil {
		return nil, fmt.Errorf("invoicing sender required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		subscription: subscription,
		guard:        guard,
		sender:       sender,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	switch eventType {
	case enums.EventPayoutCompleted:
		return c.dispatchDocument(ctx, logCtx, envelope)
	case enums.EventPayoutFailed:
		var payload payloads.PayoutFailedEvent
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			c.logg.Error(logCtx, "failed to parse payload", err)
			return processResult{ack: true}
		}
		c.logg.Warn(c.logg.WithFields(logCtx, map[string]any{
			"payout_id":   payload.PayoutID.String(),
			"vendor_name": payload.VendorName,
			"amount":      payload.Amount,
			"reason":      payload.Reason,
		}), "payout.failed")
		return processResult{ack: true}
	case enums.EventNegativeBalanceAlert:
		var payload payloads.NegativeBalanceEvent
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			c.logg.Error(logCtx, "failed to parse payload", err)
			return processResult{ack: true}
		}
		c.logg.Warn(c.logg.WithFields(logCtx, map[string]any{
			"collector_identifier": payload.CollectorIdentifier,
			"currency":             payload.Currency,
			"raw_balance":          payload.RawBalance,
		}), "balance.negative")
		return processResult{ack: true}
	default:
		c.logg.Debug(logCtx, "skipping unhandled event")
		return processResult{ack: true}
	}
}

func (c *Consumer) dispatchDocument(ctx, logCtx context.Context, envelope outbox.PayloadEnvelope) processResult {
	eventID := strings.TrimSpace(envelope.EventID)
	if eventID == "" {
		c.logg.Warn(logCtx, "event id missing")
		return processResult{ack: true}
	}

	var payload payloads.PayoutCompletedEvent
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		return processResult{ack: true}
	}
	logCtx = c.logg.WithPayoutID(logCtx, payload.PayoutID.String())
	if strings.TrimSpace(payload.InvoiceNumber) == "" {
		c.logg.Info(logCtx, "payout has no invoice requested")
		return processResult{ack: true}
	}

	already, err := c.guard.CheckAndMarkProcessed(ctx, payoutDocumentConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	if err := c.sender.SendPayoutDocument(ctx, DocumentFromEvent(payload)); err != nil {
		var statusErr *invoicing.StatusError
		if errors.As(err, &statusErr) && !statusErr.Retryable() {
			c.logg.Error(logCtx, "invoicing rejected payout document", err)
			return processResult{ack: true}
		}
		c.logg.Error(logCtx, "payout document dispatch failed", err)
		_ = c.guard.Delete(ctx, payoutDocumentConsumer, eventID)
		return processResult{nack: true}
	}

	c.logg.Info(logCtx, "payout document sent")
	return processResult{ack: true}
}

// DocumentFromEvent maps a completed payout onto the invoicing body.
func DocumentFromEvent(event payloads.PayoutCompletedEvent) invoicing.PayoutDocument {
	return invoicing.PayoutDocument{
		PayoutID:      event.PayoutID.String(),
		VendorName:    event.VendorName,
		Amount:        event.Amount,
		Currency:      event.Currency,
		Reference:     event.Reference,
		InvoiceNumber: event.InvoiceNumber,
		TaxID:         event.TaxID,
		LegalName:     event.LegalName,
		TaxCountry:    event.TaxCountry,
	}
}
