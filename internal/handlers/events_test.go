package handlers_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"NGO_BACKEND_GO/internal/models"

	"github.com/aws/aws-lambda-go/events"
)

func webhookDetail(t *testing.T, event, donationID, reason string) json.RawMessage {
	t.Helper()
	detail := map[string]interface{}{
		"event": event,
		"payload": map[string]interface{}{
			"payment": map[string]interface{}{
				"entity": map[string]interface{}{
					"id":                "pay_123",
					"order_id":          "order_abc",
					"error_description": reason,
					"notes":             map[string]string{"donationId": donationID},
				},
			},
		},
	}
	raw, err := json.Marshal(detail)
	if err != nil {
		t.Fatalf("marshal detail: %v", err)
	}
	return raw
}

func TestHandleEventBridgeGatewayFailure(t *testing.T) {
	var gotID, gotReason string
	store := &fakeStore{
		MarkFailedFunc: func(ctx context.Context, id, reason string) (*models.Donation, error) {
			gotID = id
			gotReason = reason
			d := pendingDonation(id)
			d.Status = models.DonationStatusFailed
			return d, nil
		},
	}
	h := newTestHandler(store, nil)

	out, err := h.HandleEventBridge(context.Background(), events.EventBridgeEvent{
		Source: "gateway.webhooks",
		Detail: webhookDetail(t, "payment.failed", "d1", "card declined"),
	})
	if err != nil {
		t.Fatalf("HandleEventBridge() error: %v", err)
	}
	if out["status"] != "ok" {
		t.Errorf("status = %q, want ok", out["status"])
	}
	if gotID != "d1" || gotReason != "card declined" {
		t.Errorf("MarkFailed(%q, %q)", gotID, gotReason)
	}
}

func TestHandleEventBridgeFailureAfterTerminalState(t *testing.T) {
	store := &fakeStore{
		MarkFailedFunc: func(ctx context.Context, id, reason string) (*models.Donation, error) {
			return nil, models.ErrConflict
		},
	}
	h := newTestHandler(store, nil)

	out, err := h.HandleEventBridge(context.Background(), events.EventBridgeEvent{
		Source: "gateway.webhooks",
		Detail: webhookDetail(t, "payment.failed", "d1", ""),
	})
	if err != nil {
		t.Fatalf("duplicate failure surfaced an error: %v", err)
	}
	if out["status"] != "ok" {
		t.Errorf("status = %q, want ok", out["status"])
	}
}

func TestHandleEventBridgeIgnoresOtherEvents(t *testing.T) {
	store := &fakeStore{
		MarkFailedFunc: func(ctx context.Context, id, reason string) (*models.Donation, error) {
			t.Error("MarkFailed called for an unrelated event")
			return nil, nil
		},
	}
	h := newTestHandler(store, nil)

	out, err := h.HandleEventBridge(context.Background(), events.EventBridgeEvent{
		Source: "gateway.webhooks",
		Detail: webhookDetail(t, "payment.captured", "d1", ""),
	})
	if err != nil {
		t.Fatalf("HandleEventBridge() error: %v", err)
	}
	if out["status"] != "ignored" {
		t.Errorf("status = %q, want ignored", out["status"])
	}
}

func TestHandleEventBridgeScheduledSweep(t *testing.T) {
	var gotCutoff time.Time
	store := &fakeStore{
		SweepFunc: func(ctx context.Context, olderThan time.Time) (int, error) {
			gotCutoff = olderThan
			return 2, nil
		},
	}
	h := newTestHandler(store, nil)
	h.Cfg.PendingTTLHours = 48

	out, err := h.HandleEventBridge(context.Background(), events.EventBridgeEvent{
		Source: "aws.events",
	})
	if err != nil {
		t.Fatalf("HandleEventBridge() error: %v", err)
	}
	if out["status"] != "ok" {
		t.Errorf("status = %q, want ok", out["status"])
	}

	wantCutoff := time.Now().UTC().Add(-48 * time.Hour)
	if diff := gotCutoff.Sub(wantCutoff); diff < -time.Minute || diff > time.Minute {
		t.Errorf("cutoff = %v, want ~%v", gotCutoff, wantCutoff)
	}
}

func TestHandleEventBridgeSweepDisabledWithoutTTL(t *testing.T) {
	store := &fakeStore{
		SweepFunc: func(ctx context.Context, olderThan time.Time) (int, error) {
			t.Error("sweep ran with no TTL configured")
			return 0, nil
		},
	}
	h := newTestHandler(store, nil)

	out, err := h.HandleEventBridge(context.Background(), events.EventBridgeEvent{
		Source: "aws.events",
	})
	if err != nil {
		t.Fatalf("HandleEventBridge() error: %v", err)
	}
	if out["status"] != "ignored" {
		t.Errorf("status = %q, want ignored", out["status"])
	}
}
