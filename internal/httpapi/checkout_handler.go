package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/mogesh-developer/billing-webapp/internal/domain"
	"github.com/mogesh-developer/billing-webapp/pkg/idempotency"
	"github.com/mogesh-developer/billing-webapp/pkg/logger"
	"go.uber.org/zap"
)

type CheckoutHandler struct {
	recorder SaleRecorder
	logger   *zap.Logger
	timeout  time.Duration
}

func NewCheckoutHandler(recorder SaleRecorder, l *zap.Logger, timeout time.Duration) *CheckoutHandler {
	if l == nil {
		l = zap.NewNop()
	}
	return &CheckoutHandler{recorder: recorder, logger: l, timeout: timeout}
}

// POST /api/checkout
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	key := idempotency.Key(r)
	if len(key) > idempotency.MaxKeyLength {
		respondError(w, http.StatusBadRequest, "invalid_idempotency_key", "Idempotency-Key is too long")
		return
	}

	var payload domain.CheckoutPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	bill, err := h.recorder.Record(ctx, payload, key)
	if err != nil {
		var rejected *domain.RejectedError
		if errors.As(err, &rejected) {
			respondError(w, http.StatusUnprocessableEntity, "rejected", rejected.Reason)
			return
		}
		logger.WithTrace(ctx, h.logger).Error("failed to record sale",
			zap.String("request_id", getRequestID(r.Context())),
			zap.Error(err),
		)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to record sale")
		return
	}

	respondJSON(w, http.StatusCreated, bill.Result())
}
