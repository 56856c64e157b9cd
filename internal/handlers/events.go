package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"NGO_BACKEND_GO/internal/models"

	"github.com/aws/aws-lambda-go/events"
)

// gatewayWebhookEvent mirrors the gateway webhook envelope as relayed through
// EventBridge. Only failure events are consumed here; successful payments
// arrive through the client-driven verify endpoint.
type gatewayWebhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID               string            `json:"id"`
				OrderID          string            `json:"order_id"`
				ErrorDescription string            `json:"error_description"`
				Notes            map[string]string `json:"notes"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

func (h *Handler) HandleEventBridge(ctx context.Context, ebEvent events.EventBridgeEvent) (map[string]string, error) {
	if ebEvent.Source == "aws.events" {
		return h.handleScheduledSweep(ctx)
	}

	var webhook gatewayWebhookEvent
	if err := json.Unmarshal(ebEvent.Detail, &webhook); err != nil {
		h.Log.Error("eventbridge_detail_invalid", map[string]interface{}{"error": err.Error()})
		return map[string]string{"status": "invalid"}, nil
	}

	switch webhook.Event {
	case "payment.failed":
		return h.handleGatewayFailure(ctx, webhook)
	default:
		return map[string]string{"status": "ignored"}, nil
	}
}

func (h *Handler) handleGatewayFailure(ctx context.Context, webhook gatewayWebhookEvent) (map[string]string, error) {
	entity := webhook.Payload.Payment.Entity
	donationID := strings.TrimSpace(entity.Notes["donationId"])
	if donationID == "" {
		h.Log.Info("gateway_failure_without_donation_id", map[string]interface{}{
			"paymentId": entity.ID,
			"orderId":   entity.OrderID,
		})
		return map[string]string{"status": "ignored"}, nil
	}

	reason := entity.ErrorDescription
	if reason == "" {
		reason = "gateway reported payment failure"
	}

	d, err := h.Store.MarkFailed(ctx, donationID, reason)
	if err != nil {
		if errors.Is(err, models.ErrConflict) || errors.Is(err, models.ErrNotFound) {
			h.Log.Info("gateway_failure_skipped", map[string]interface{}{
				"donationId": donationID,
				"reason":     err.Error(),
			})
			return map[string]string{"status": "ok"}, nil
		}
		h.Log.Error("gateway_failure_transition_failed", map[string]interface{}{
			"error":      err.Error(),
			"donationId": donationID,
		})
		return map[string]string{"status": "error"}, err
	}

	h.Log.Info("payment_failed", map[string]interface{}{
		"donationId": d.ID,
		"paymentId":  entity.ID,
		"reason":     reason,
	})
	return map[string]string{"status": "ok"}, nil
}

func (h *Handler) handleScheduledSweep(ctx context.Context) (map[string]string, error) {
	if h.Cfg.PendingTTLHours <= 0 {
		return map[string]string{"status": "ignored"}, nil
	}

	cutoff := time.Now().UTC().Add(-time.Duration(h.Cfg.PendingTTLHours) * time.Hour)
	swept, err := h.Store.SweepStalePending(ctx, cutoff)
	if err != nil {
		h.Log.Error("stale_pending_sweep_failed", map[string]interface{}{"error": err.Error()})
		return map[string]string{"status": "error"}, err
	}

	h.Log.Info("stale_pending_sweep", map[string]interface{}{"swept": swept})
	return map[string]string{"status": "ok"}, nil
}
