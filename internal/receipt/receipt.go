// Package receipt renders recorded bills as plain-text receipts.
package receipt

import (
	"fmt"
	"strings"

	"github.com/mogesh-developer/billing-webapp/internal/domain"
	"github.com/shopspring/decimal"
)

const width = 40

// Format renders bill with the shop's header and currency.
func Format(shop domain.ShopSettings, bill domain.Bill) string {
	symbol := shop.CurrencySymbol
	if symbol == "" {
		symbol = domain.DefaultCurrencySymbol
	}
	money := func(d decimal.Decimal) string { return domain.Format(symbol, d) }

	var lines []string
	lines = append(lines, strings.Repeat("═", width))
	lines = append(lines, center(shop.ShopName))
	if shop.Address != "" {
		lines = append(lines, center(shop.Address))
	}
	if shop.Phone != "" {
		lines = append(lines, center("Tel: "+shop.Phone))
	}
	lines = append(lines, strings.Repeat("═", width))
	lines = append(lines, fmt.Sprintf("Bill #%s", bill.BillNumber))
	lines = append(lines, fmt.Sprintf("Date: %s", bill.Date.Local().Format("2006-01-02 15:04")))
	lines = append(lines, fmt.Sprintf("Customer: %s", bill.CustomerName))
	lines = append(lines, strings.Repeat("─", width))

	for _, item := range bill.Items {
		lines = append(lines, item.ProductName)
		lines = append(lines, row(
			fmt.Sprintf("  %d x %s", item.Quantity, money(item.PriceAtSale)),
			money(item.Subtotal)))
	}

	lines = append(lines, strings.Repeat("─", width))
	lines = append(lines, row("Subtotal", money(bill.Subtotal)))
	lines = append(lines, row("Tax", money(bill.TaxAmount)))
	if bill.DiscountAmount.IsPositive() {
		lines = append(lines, row("Discount", "-"+money(bill.DiscountAmount)))
	}
	lines = append(lines, strings.Repeat("─", width))
	lines = append(lines, row("TOTAL", money(bill.TotalAmount)))
	lines = append(lines, fmt.Sprintf("Payment: %s", bill.PaymentMode))
	lines = append(lines, strings.Repeat("═", width))
	lines = append(lines, center("Thank you for shopping with us!"))
	lines = append(lines, strings.Repeat("═", width))

	return strings.Join(lines, "\n") + "\n"
}

// row puts left and right on one line, right-aligned to the receipt width.
func row(left, right string) string {
	pad := width - len([]rune(left))
	if pad < len([]rune(right))+1 {
		pad = len([]rune(right)) + 1
	}
	return left + fmt.Sprintf("%*s", pad, right)
}

func center(s string) string {
	n := len([]rune(s))
	if n >= width {
		return s
	}
	return strings.Repeat(" ", (width-n)/2) + s
}
