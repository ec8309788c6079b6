// Package totals derives subtotal, tax and payable total from a cart. Every
// function here is pure.
package totals

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mogesh-developer/billing-webapp/internal/domain"
	"github.com/shopspring/decimal"
)

const places = 2

var (
	hundred = decimal.NewFromInt(100)

	ErrTotalsMismatch   = errors.New("totals do not match items")
	ErrAmountOutOfRange = errors.New("amount out of range")
)

// Compute returns the totals for cart. Negative or out-of-range tax rates
// and discounts are treated as zero. The payable total is floored at zero so
// an oversized discount never produces a negative amount.
func Compute(cart domain.Cart, taxRatePercent, discount decimal.Decimal) domain.TotalsSnapshot {
	subtotal := decimal.Zero
	for _, item := range cart {
		subtotal = subtotal.Add(item.LineSubtotal)
	}
	subtotal = subtotal.Round(places)

	tax := subtotal.Mul(sanitize(taxRatePercent)).Div(hundred).Round(places)
	discount = sanitize(discount).Round(places)

	total := subtotal.Add(tax).Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return domain.TotalsSnapshot{
		Subtotal:       subtotal,
		TaxAmount:      tax,
		DiscountAmount: discount,
		Total:          total,
	}
}

// ParseAmount converts operator input to a non-negative decimal. Blank,
// unparsable, negative or out-of-range input yields zero.
func ParseAmount(text string) decimal.Decimal {
	text = strings.TrimSpace(text)
	if text == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero
	}
	return sanitize(d)
}

// CheckRange rejects payloads carrying amounts or quantities too large (or
// too finely scaled) to verify. It must run before any arithmetic on p.
func CheckRange(p domain.CheckoutPayload) error {
	for _, amount := range []decimal.Decimal{p.Subtotal, p.TaxAmount, p.DiscountAmount, p.TotalAmount} {
		if !domain.AmountInRange(amount) {
			return fmt.Errorf("%w: bill header", ErrAmountOutOfRange)
		}
	}
	for _, item := range p.Items {
		if item.Quantity > domain.MaxQuantity {
			return fmt.Errorf("%w: quantity %d for product %d", ErrAmountOutOfRange, item.Quantity, item.ProductID)
		}
		if !domain.AmountInRange(item.UnitPrice) || !domain.AmountInRange(item.LineSubtotal) {
			return fmt.Errorf("%w: line for product %d", ErrAmountOutOfRange, item.ProductID)
		}
	}
	return nil
}

// Verify checks that a submitted payload is internally consistent: every line
// has a non-negative price, its subtotal matches price times quantity and the
// header amounts follow from the lines.
func Verify(p domain.CheckoutPayload) error {
	if err := CheckRange(p); err != nil {
		return err
	}
	subtotal := decimal.Zero
	for _, item := range p.Items {
		if item.Quantity < 1 {
			return fmt.Errorf("%w: quantity %d for product %d", ErrTotalsMismatch, item.Quantity, item.ProductID)
		}
		if item.UnitPrice.IsNegative() {
			return fmt.Errorf("%w: negative price for product %d", ErrTotalsMismatch, item.ProductID)
		}
		want := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		if !want.Equal(item.LineSubtotal) {
			return fmt.Errorf("%w: line for product %d", ErrTotalsMismatch, item.ProductID)
		}
		subtotal = subtotal.Add(item.LineSubtotal)
	}
	if !subtotal.Round(places).Equal(p.Subtotal) {
		return fmt.Errorf("%w: subtotal %s, items sum to %s", ErrTotalsMismatch, p.Subtotal, subtotal.Round(places))
	}

	total := p.Subtotal.Add(p.TaxAmount).Sub(p.DiscountAmount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	if !total.Equal(p.TotalAmount) {
		return fmt.Errorf("%w: total %s, expected %s", ErrTotalsMismatch, p.TotalAmount, total)
	}
	return nil
}

func sanitize(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() || !domain.AmountInRange(d) {
		return decimal.Zero
	}
	return d
}
