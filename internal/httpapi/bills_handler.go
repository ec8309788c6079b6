package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/mogesh-developer/billing-webapp/internal/domain"
	"github.com/mogesh-developer/billing-webapp/internal/receipt"
	"github.com/mogesh-developer/billing-webapp/internal/store"
)

const defaultBillsLimit = 100

type BillsHandler struct {
	bills    BillStore
	settings SettingsStore
	timeout  time.Duration
}

func NewBillsHandler(bills BillStore, settings SettingsStore, timeout time.Duration) *BillsHandler {
	return &BillsHandler{bills: bills, settings: settings, timeout: timeout}
}

// GET /api/bills?limit=
func (h *BillsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	limit := defaultBillsLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = n
	}

	bills, err := h.bills.ListBills(ctx, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list bills")
		return
	}
	if bills == nil {
		bills = []domain.Bill{}
	}
	respondJSON(w, http.StatusOK, bills)
}

// GET /api/bills/{id}
func (h *BillsHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	bill, ok := h.load(ctx, w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, bill)
}

// GET /receipt/{id}
func (h *BillsHandler) Receipt(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	bill, ok := h.load(ctx, w, r)
	if !ok {
		return
	}
	shop, err := h.settings.GetSettings(ctx)
	if err != nil {
		shop = domain.DefaultShopSettings()
	}
	respondText(w, http.StatusOK, receipt.Format(shop, bill))
}

func (h *BillsHandler) load(ctx context.Context, w http.ResponseWriter, r *http.Request) (domain.Bill, bool) {
	id, ok := parseID(w, r)
	if !ok {
		return domain.Bill{}, false
	}
	bill, err := h.bills.BillByID(ctx, id)
	if errors.Is(err, store.ErrBillNotFound) {
		respondError(w, http.StatusNotFound, "not_found", "Bill not found")
		return domain.Bill{}, false
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to load bill")
		return domain.Bill{}, false
	}
	return bill, true
}
