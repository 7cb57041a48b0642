package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/angelmondragon/artvault-backend/api/responses"
	"github.com/angelmondragon/artvault-backend/api/validators"
	"github.com/angelmondragon/artvault-backend/internal/fulfillment"
	pkgerrors "github.com/angelmondragon/artvault-backend/pkg/errors"
	"github.com/angelmondragon/artvault-backend/pkg/logger"
)

const (
	shopifySignatureHeader = "X-Shopify-Hmac-Sha256"
	shopifyWebhookIDHeader = "X-Shopify-Webhook-Id"

	FulfillmentConsumer = "shopify:fulfillment"
	RefundConsumer      = "shopify:refund"

	maxWebhookBody = 1 << 20
)

type shopifyWebhookGuard interface {
	CheckAndMarkProcessed(ctx context.Context, consumer, eventID string) (bool, error)
	Delete(ctx context.Context, consumer, eventID string) error
}

// ShopifyFulfillment credits collectors and vendors for a fulfilled order.
func ShopifyFulfillment(svc fulfillment.Service, secret string, guard shopifyWebhookGuard, logg *logger.Logger) http.HandlerFunc {
	return shopifyWebhook(FulfillmentConsumer, secret, svc, guard, logg, func(ctx context.Context, payload []byte) (any, error) {
		var event fulfillment.FulfillmentEvent
		if err := decodeEvent(payload, &event); err != nil {
			return nil, err
		}
		return svc.HandleFulfillment(ctx, event)
	})
}

// ShopifyRefund deducts vendor earnings for refunded lines.
func ShopifyRefund(svc fulfillment.Service, secret string, guard shopifyWebhookGuard, logg *logger.Logger) http.HandlerFunc {
	return shopifyWebhook(RefundConsumer, secret, svc, guard, logg, func(ctx context.Context, payload []byte) (any, error) {
		var event fulfillment.RefundEvent
		if err := decodeEvent(payload, &event); err != nil {
			return nil, err
		}
		return svc.HandleRefund(ctx, event)
	})
}

func shopifyWebhook(
	consumer, secret string,
	svc fulfillment.Service,
	guard shopifyWebhookGuard,
	logg *logger.Logger,
	handle func(ctx context.Context, payload []byte) (any, error),
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment service unavailable"))
			return
		}
		if guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard unavailable"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		sigHeader := r.Header.Get(shopifySignatureHeader)
		if sigHeader == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "shopify signature missing"))
			return
		}
		if !fulfillment.VerifyShopifySignature(payload, secret, sigHeader) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid shopify signature"))
			return
		}

		eventID := strings.TrimSpace(r.Header.Get(shopifyWebhookIDHeader))
		if eventID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "shopify webhook id missing"))
			return
		}
		if logg != nil {
			ctx = logg.WithFields(ctx, map[string]any{"webhook_id": eventID, "consumer": consumer})
		}

		alreadyProcessed, err := guard.CheckAndMarkProcessed(ctx, consumer, eventID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
			return
		}
		if alreadyProcessed {
			if logg != nil {
				logg.Info(ctx, "shopify webhook already processed")
			}
			responses.WriteSuccess(w, map[string]any{"duplicate": true})
			return
		}

		result, err := handle(ctx, payload)
		if err != nil {
			_ = guard.Delete(ctx, consumer, eventID)
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			logg.Info(ctx, "shopify webhook processed")
		}
		responses.WriteSuccess(w, result)
	}
}

func decodeEvent(payload []byte, dest any) error {
	if err := json.Unmarshal(payload, dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode event")
	}
	return validators.ValidateStruct(dest)
}
