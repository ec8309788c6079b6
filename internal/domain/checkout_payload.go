package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CheckoutPayload is the finalized sale sent to the transaction service.
// It is built once per attempt from a cart snapshot and never mutated.
type CheckoutPayload struct {
	CustomerName   string          `json:"customer_name"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	PaymentMode    PaymentMode     `json:"payment_mode"`
	Items          Cart            `json:"items"`
}

func NewCheckoutPayload(customer string, mode PaymentMode, cart Cart, totals TotalsSnapshot) CheckoutPayload {
	return CheckoutPayload{
		CustomerName:   customer,
		Subtotal:       totals.Subtotal,
		TaxAmount:      totals.TaxAmount,
		DiscountAmount: totals.DiscountAmount,
		TotalAmount:    totals.Total,
		PaymentMode:    mode,
		Items:          cart.Clone(),
	}
}

// TransactionResult is what the transaction service returns for a recorded sale.
type TransactionResult struct {
	TransactionID string    `json:"transaction_id"`
	BillNumber    string    `json:"bill_number"`
	Date          time.Time `json:"date"`
}
