package domain

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

const (
	DefaultCustomerName = "Walk-in"
	DefaultPaymentMode  = PaymentModeCash
)

// Bill is a recorded sale as kept by the shop server.
type Bill struct {
	ID             int64           `json:"id"`
	BillNumber     string          `json:"bill_number"`
	Date           time.Time       `json:"date"`
	CustomerName   string          `json:"customer_name"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	TaxAmount      decimal.Decimal `json:"tax"`
	DiscountAmount decimal.Decimal `json:"discount"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	PaymentMode    PaymentMode     `json:"payment_mode"`
	IdempotencyKey string          `json:"-"`
	Items          []BillItem      `json:"items"`
}

type BillItem struct {
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	PriceAtSale decimal.Decimal `json:"price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// Result is what the client sees once the bill is recorded.
func (b Bill) Result() TransactionResult {
	return TransactionResult{
		TransactionID: strconv.FormatInt(b.ID, 10),
		BillNumber:    b.BillNumber,
		Date:          b.Date,
	}
}
