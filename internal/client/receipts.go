package client

import (
	"context"
	"fmt"
	"net/url"
)

type ReceiptService struct {
	c *Client
}

func NewReceiptService(c *Client) *ReceiptService {
	return &ReceiptService{c: c}
}

// Fetch returns the rendered receipt for a recorded sale.
func (s *ReceiptService) Fetch(ctx context.Context, transactionID string) (string, error) {
	resp, err := s.c.get(ctx, "/receipt/"+url.PathEscape(transactionID))
	if err != nil {
		return "", fmt.Errorf("fetch receipt %s: %w", transactionID, err)
	}
	if !resp.ok() {
		if msg := resp.errorMessage(); msg != "" {
			return "", fmt.Errorf("fetch receipt %s: %s", transactionID, msg)
		}
		return "", fmt.Errorf("fetch receipt %s: status %d", transactionID, resp.status)
	}
	return string(resp.body), nil
}
