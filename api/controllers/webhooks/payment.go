package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/packcredits/backend/api/responses"
	"github.com/packcredits/backend/api/validators"
	"github.com/packcredits/backend/internal/reconcile"
	pkgerrors "github.com/packcredits/backend/pkg/errors"
	"github.com/packcredits/backend/pkg/logger"
	"github.com/packcredits/backend/pkg/signature"
)

// SignatureHeader carries the gateway's timestamped HMAC over the raw body.
const SignatureHeader = "X-Gateway-Signature"

const maxBodyBytes = 64 << 10

type reconcileService interface {
	ProcessEvent(ctx context.Context, event reconcile.PaymentEvent) (*reconcile.Result, error)
}

type eventGuard interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Mark(ctx context.Context, eventID string) error
}

// PaymentEvent accepts gateway payment notifications. The raw body is read
// before unmarshalling because the signature covers the exact bytes sent.
//
// Response contract: 200 for credited, idempotent no-op or ignored status;
// 400 for malformed or mismatched payloads; 401 for signature failure; 404
// for unknown order; 500 for storage failure (the gateway redelivers, and the
// paid-status guard makes that safe).
func PaymentEvent(svc reconcileService, verifier signature.Verifier, guard eventGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil || verifier == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook handler unavailable"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		if err := verifier.Verify(payload, r.Header.Get(SignatureHeader)); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var event reconcile.PaymentEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid event payload"))
			return
		}
		if err := validators.ValidateStruct(&event); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		eventID := event.PaymentID + ":" + event.OrderID
		if guard != nil {
			seen, err := guard.Seen(ctx, eventID)
			if err != nil {
				// Redis being down must not block payment processing; the
				// order-status guard still prevents double-crediting.
				if logg != nil {
					logg.Warn(ctx, "webhook dedupe unavailable: "+err.Error())
				}
			} else if seen {
				responses.WriteSuccess(w, &reconcile.Result{
					Outcome: reconcile.OutcomeAlreadyProcessed,
					OrderID: event.OrderID,
				})
				return
			}
		}

		result, err := svc.ProcessEvent(ctx, event)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		// Marked only after a terminal outcome. An event that died mid-flight
		// leaves no key, so the gateway's redelivery is processed rather than
		// acked against a still-pending order.
		if guard != nil {
			if err := guard.Mark(ctx, eventID); err != nil && logg != nil {
				logg.Warn(ctx, "webhook dedupe mark failed: "+err.Error())
			}
		}

		if logg != nil {
			logCtx := logg.WithFields(ctx, map[string]any{
				"order_id": event.OrderID,
				"outcome":  string(result.Outcome),
			})
			logg.Info(logCtx, "payment event processed")
		}
		responses.WriteSuccess(w, result)
	}
}
