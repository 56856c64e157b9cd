package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"NGO_BACKEND_GO/internal/config"
	"NGO_BACKEND_GO/internal/donations"
	"NGO_BACKEND_GO/internal/models"
	"NGO_BACKEND_GO/internal/signature"
	"NGO_BACKEND_GO/internal/utils"

	"github.com/gorilla/mux"
)

type DonationStore interface {
	Create(ctx context.Context, in models.DonationInput) (*models.Donation, error)
	Get(ctx context.Context, id string) (*models.Donation, error)
	List(ctx context.Context, f models.ListFilter) ([]models.Donation, int, error)
	Stats(ctx context.Context) (*models.Stats, error)
	SetOrder(ctx context.Context, id, orderID string) (*models.Donation, error)
	MarkPaid(ctx context.Context, id, paymentID string) (*models.Donation, error)
	MarkFailed(ctx context.Context, id, reason string) (*models.Donation, error)
	SweepStalePending(ctx context.Context, olderThan time.Time) (int, error)
}

type OrderGateway interface {
	CreateOrder(ctx context.Context, amountMinor int64, currency, receipt, donationID string) (string, error)
}

type Notifier interface {
	PublishPaymentVerified(ctx context.Context, d *models.Donation) error
}

type Handler struct {
	Store    DonationStore
	Gateway  OrderGateway
	Verifier *signature.Verifier
	Notifier Notifier // nil when notifications are disabled
	Cfg      config.Config
	Log      *utils.Logger
}

func NewHandler(store DonationStore, gateway OrderGateway, verifier *signature.Verifier, cfg config.Config, logger *utils.Logger) *Handler {
	return &Handler{
		Store:    store,
		Gateway:  gateway,
		Verifier: verifier,
		Cfg:      cfg,
		Log:      logger,
	}
}

type createOrderRequest struct {
	DonationID string `json:"donationId"`
	Amount     int64  `json:"amount"`
}

type verifyRequest struct {
	DonationID string `json:"donationId"`
	OrderID    string `json:"orderId"`
	PaymentID  string `json:"paymentId"`
	Signature  string `json:"signature"`
}

type markFailedRequest struct {
	DonationID string `json:"donationId"`
	Reason     string `json:"reason"`
}

func (h *Handler) CreateDonation(w http.ResponseWriter, r *http.Request) {
	var in models.DonationInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	d, err := h.Store.Create(r.Context(), in)
	if err != nil {
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			utils.RespondJSON(w, http.StatusBadRequest, map[string]interface{}{
				"message": "Validation failed",
				"errors":  verr.Fields,
			})
			return
		}
		h.Log.Error("donation_create_failed", map[string]interface{}{"error": err.Error()})
		utils.RespondError(w, http.StatusInternalServerError, "failed to save donation")
		return
	}

	h.Log.Info("donation_created", map[string]interface{}{
		"donationId": d.ID,
		"amount":     d.AmountInInr,
		"provider":   string(d.Provider),
	})
	utils.RespondJSON(w, http.StatusCreated, d)
}

// CreatePaymentOrder opens a gateway order for a pending donation. A repeat
// call returns the already-stored order without touching the gateway.
func (h *Handler) CreatePaymentOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	donationID := strings.TrimSpace(req.DonationID)
	if donationID == "" {
		utils.RespondError(w, http.StatusBadRequest, "donationId is required")
		return
	}

	d, err := h.Store.Get(r.Context(), donationID)
	if err != nil {
		h.respondStoreError(w, err, donationID, "donation_lookup_failed")
		return
	}
	if d.Status.Terminal() {
		utils.RespondErrorCode(w, http.StatusConflict, "donation is no longer pending", "CONFLICT")
		return
	}
	if req.Amount != 0 && req.Amount != d.AmountInInr {
		utils.RespondJSON(w, http.StatusBadRequest, map[string]interface{}{
			"message": "Validation failed",
			"errors": []models.FieldError{{
				Field:   "amount",
				Message: "amount does not match the donation",
			}},
		})
		return
	}
	if d.OrderID != "" {
		utils.RespondJSON(w, http.StatusOK, orderPayload(d))
		return
	}

	// the gateway call must be allowed to finish and persist even if the
	// client disconnects mid-request
	ctx := context.WithoutCancel(r.Context())

	orderID, err := h.Gateway.CreateOrder(ctx, utils.ToMinorUnits(d.AmountInInr), d.Currency, receiptLabel(d.ID), d.ID)
	if err != nil {
		h.Log.Error("gateway_order_failed", map[string]interface{}{"error": err.Error(), "donationId": d.ID})
		msg := "payment gateway unavailable"
		if h.Cfg.IsDev() {
			msg = err.Error()
		}
		utils.RespondError(w, http.StatusBadGateway, msg)
		return
	}

	updated, err := h.Store.SetOrder(ctx, d.ID, orderID)
	if err != nil {
		if errors.Is(err, donations.ErrOrderExists) {
			// lost a race with a concurrent call; the stored order wins
			utils.RespondJSON(w, http.StatusOK, orderPayload(updated))
			return
		}
		h.respondStoreError(w, err, d.ID, "order_persist_failed")
		return
	}

	h.Log.Info("payment_order_created", map[string]interface{}{
		"donationId": d.ID,
		"orderId":    orderID,
		"amount":     utils.ToMinorUnits(d.AmountInInr),
	})
	utils.RespondJSON(w, http.StatusOK, orderPayload(updated))
}

// VerifyPayment validates the completion signature and performs the
// pending -> success transition.
func (h *Handler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	donationID := strings.TrimSpace(req.DonationID)
	if donationID == "" || req.OrderID == "" || req.PaymentID == "" {
		utils.RespondError(w, http.StatusBadRequest, "donationId, orderId and paymentId are required")
		return
	}

	if _, err := h.Store.Get(r.Context(), donationID); err != nil {
		h.respondStoreError(w, err, donationID, "donation_lookup_failed")
		return
	}

	if !h.Verifier.Verify(req.OrderID, req.PaymentID, req.Signature) {
		h.Log.Info("signature_mismatch", map[string]interface{}{
			"donationId": donationID,
			"orderId":    req.OrderID,
		})
		utils.RespondErrorCode(w, http.StatusBadRequest, "payment signature verification failed", "SIGNATURE_MISMATCH")
		return
	}

	d, err := h.Store.MarkPaid(context.WithoutCancel(r.Context()), donationID, req.PaymentID)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			// duplicate callback after a terminal transition; do not
			// re-dispatch notifications
			utils.RespondErrorCode(w, http.StatusConflict, "donation already processed", "CONFLICT")
			return
		}
		h.respondStoreError(w, err, donationID, "payment_transition_failed")
		return
	}

	h.Log.Info("payment_verified", map[string]interface{}{
		"donationId": d.ID,
		"paymentId":  d.PaymentID,
		"amount":     d.AmountInInr,
	})
	h.dispatchPaymentVerified(*d)

	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"message":  "payment verified",
		"donation": d,
	})
}

// MarkPaymentFailed records a gateway-reported payment failure.
func (h *Handler) MarkPaymentFailed(w http.ResponseWriter, r *http.Request) {
	var req markFailedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	donationID := strings.TrimSpace(req.DonationID)
	if donationID == "" {
		utils.RespondError(w, http.StatusBadRequest, "donationId is required")
		return
	}

	d, err := h.Store.MarkFailed(context.WithoutCancel(r.Context()), donationID, req.Reason)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			utils.RespondErrorCode(w, http.StatusConflict, "donation already processed", "CONFLICT")
			return
		}
		h.respondStoreError(w, err, donationID, "payment_transition_failed")
		return
	}

	h.Log.Info("payment_failed", map[string]interface{}{
		"donationId": d.ID,
		"reason":     req.Reason,
	})
	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"message":  "payment marked as failed",
		"donation": d,
	})
}

func (h *Handler) ListDonations(w http.ResponseWriter, r *http.Request) {
	page := 1
	limit := 10
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = l
		if limit > 100 {
			limit = 100
		}
	}

	items, total, err := h.Store.List(r.Context(), models.ListFilter{
		Status: strings.TrimSpace(r.URL.Query().Get("status")),
		Search: r.URL.Query().Get("search"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		h.Log.Error("donation_list_failed", map[string]interface{}{"error": err.Error()})
		utils.RespondError(w, http.StatusInternalServerError, "failed to list donations")
		return
	}

	pages := (total + limit - 1) / limit
	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"donations": items,
		"pagination": map[string]int{
			"page":  page,
			"limit": limit,
			"total": total,
			"pages": pages,
		},
	})
}

func (h *Handler) GetDonation(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	d, err := h.Store.Get(r.Context(), id)
	if err != nil {
		h.respondStoreError(w, err, id, "donation_lookup_failed")
		return
	}
	utils.RespondJSON(w, http.StatusOK, d)
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Store.Stats(r.Context())
	if err != nil {
		h.Log.Error("stats_failed", map[string]interface{}{"error": err.Error()})
		utils.RespondError(w, http.StatusInternalServerError, "failed to aggregate stats")
		return
	}
	utils.RespondJSON(w, http.StatusOK, stats)
}

// dispatchPaymentVerified publishes the event without blocking or failing the
// HTTP response. Exactly one publish per successful transition.
func (h *Handler) dispatchPaymentVerified(d models.Donation) {
	if h.Notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := h.Notifier.PublishPaymentVerified(ctx, &d); err != nil {
			h.Log.Error("notify_publish_failed", map[string]interface{}{
				"error":      err.Error(),
				"donationId": d.ID,
			})
		}
	}()
}

func (h *Handler) respondStoreError(w http.ResponseWriter, err error, donationID, event string) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		utils.RespondError(w, http.StatusNotFound, "donation not found")
	case errors.Is(err, models.ErrConflict):
		utils.RespondErrorCode(w, http.StatusConflict, "donation is no longer pending", "CONFLICT")
	default:
		h.Log.Error(event, map[string]interface{}{"error": err.Error(), "donationId": donationID})
		utils.RespondError(w, http.StatusInternalServerError, "internal error")
	}
}

func receiptLabel(donationID string) string {
	return "donation_" + donationID
}

func orderPayload(d *models.Donation) map[string]interface{} {
	return map[string]interface{}{
		"id":       d.OrderID,
		"amount":   utils.ToMinorUnits(d.AmountInInr),
		"currency": d.Currency,
		"receipt":  receiptLabel(d.ID),
	}
}
