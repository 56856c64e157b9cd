package router

import (
	"net/http"

	"NGO_BACKEND_GO/internal/handlers"
	"NGO_BACKEND_GO/internal/utils"

	"github.com/gorilla/mux"
)

func New(h *handlers.Handler) *mux.Router {
	r := mux.NewRouter()
	r.Use(utils.CorsMiddleware)
	r.PathPrefix("/").Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	r.HandleFunc("/health", h.Health(r)).Methods(http.MethodGet)

	r.HandleFunc("/donations", h.CreateDonation).Methods(http.MethodPost)
	r.HandleFunc("/donations", h.ListDonations).Methods(http.MethodGet)
	r.HandleFunc("/donations/stats", h.GetStats).Methods(http.MethodGet)
	r.HandleFunc("/donations/payment", h.CreatePaymentOrder).Methods(http.MethodPost)
	r.HandleFunc("/donations/payment/failed", h.MarkPaymentFailed).Methods(http.MethodPost)
	r.HandleFunc("/donations/verify", h.VerifyPayment).Methods(http.MethodPost)
	r.HandleFunc("/donations/{id}", h.GetDonation).Methods(http.MethodGet)

	return r
}
