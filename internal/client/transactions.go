package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/mogesh-developer/billing-webapp/internal/domain"
	"github.com/mogesh-developer/billing-webapp/pkg/idempotency"
	"go.uber.org/zap"
)

type TransactionService struct {
	c *Client
}

func NewTransactionService(c *Client) *TransactionService {
	return &TransactionService{c: c}
}

// Submit posts the sale. A non-2xx answer carrying an "error" message is a
// *domain.RejectedError, except for gateway errors which, like every other
// failure, wrap domain.ErrTransport.
func (s *TransactionService) Submit(ctx context.Context, payload domain.CheckoutPayload, idempotencyKey string) (*domain.TransactionResult, error) {
	header := http.Header{}
	if idempotencyKey != "" {
		header.Set(idempotency.Header, idempotencyKey)
	}

	resp, err := s.c.do(ctx, http.MethodPost, "/api/checkout", payload, header)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrTransport, err)
	}

	if resp.ok() {
		var result domain.TransactionResult
		if err := resp.decode(&result); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrTransport, err)
		}
		if result.TransactionID == "" {
			return nil, fmt.Errorf("%w: response has no transaction id", domain.ErrTransport)
		}
		return &result, nil
	}

	if msg := resp.errorMessage(); msg != "" && !gatewayError(resp.status) {
		s.c.logger.Info("checkout rejected", zap.Int("status", resp.status), zap.String("reason", msg))
		return nil, &domain.RejectedError{Reason: msg}
	}
	return nil, fmt.Errorf("%w: status %d", domain.ErrTransport, resp.status)
}

func gatewayError(status int) bool {
	switch status {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}
