package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/mogesh-developer/billing-webapp/internal/domain"
)

type SettingsHandler struct {
	store   SettingsStore
	timeout time.Duration
}

func NewSettingsHandler(store SettingsStore, timeout time.Duration) *SettingsHandler {
	return &SettingsHandler{store: store, timeout: timeout}
}

// GET /api/settings
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	st, err := h.store.GetSettings(ctx)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to load settings")
		return
	}
	respondJSON(w, http.StatusOK, st)
}

// PUT /api/settings
func (h *SettingsHandler) Put(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var st domain.ShopSettings
	if err := decodeJSON(w, r, &st); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	st.ShopName = strings.TrimSpace(st.ShopName)
	if st.ShopName == "" {
		respondError(w, http.StatusBadRequest, "invalid_settings", "shop_name is required")
		return
	}
	if st.DefaultTaxRate.IsNegative() {
		respondError(w, http.StatusBadRequest, "invalid_settings", "default_tax_rate must not be negative")
		return
	}
	if !domain.AmountInRange(st.DefaultTaxRate) {
		respondError(w, http.StatusBadRequest, "invalid_settings", "default_tax_rate is out of range")
		return
	}
	if st.CurrencySymbol == "" {
		st.CurrencySymbol = domain.DefaultCurrencySymbol
	}

	if err := h.store.SaveSettings(ctx, st); err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to save settings")
		return
	}
	respondJSON(w, http.StatusOK, st)
}
