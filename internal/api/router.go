package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter registers all API endpoints. Every route except /healthz
// runs behind the identity middleware; admin routes additionally pass
// the role gate.
func NewRouter(h *HandlerProvider) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Group(func(r chi.Router) {
		r.Use(h.Identity)

		r.Get("/wallet", h.GetWalletHandler)
		r.Get("/wallet/ledger", h.GetLedgerHandler)
		r.Post("/purchase", h.PurchaseHandler)
		r.Post("/draws/{drawId}/entries", h.RegisterEntryHandler)

		r.Group(func(r chi.Router) {
			r.Use(h.AdminOnly)

			r.Post("/admin/topup", h.TopupHandler)
			r.Post("/admin/draws/{drawId}/winner", h.PickWinnerHandler)
		})
	})

	return r
}
