package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mogesh-developer/billing-webapp/internal/domain"
)

const billColumns = `id, bill_number, date, customer_name, subtotal, tax, discount, total_amount, payment_mode, idempotency_key`

// CreateBill records a sale atomically: every line's stock is checked and
// decremented, the bill and its items are inserted, and a SaleCompleted
// outbox event is queued. On success bill.ID is set. Nothing is written
// when any line lacks stock.
func (s *Store) CreateBill(ctx context.Context, bill *domain.Bill) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, item := range bill.Items {
		if err := decrementStock(ctx, tx, item.ProductID, item.Quantity); err != nil {
			return err
		}
	}

	query := `
		INSERT INTO bills (bill_number, date, customer_name, subtotal, tax, discount, total_amount, payment_mode, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	err = tx.QueryRowContext(ctx, query,
		bill.BillNumber,
		bill.Date.UTC(),
		bill.CustomerName,
		bill.Subtotal,
		bill.TaxAmount,
		bill.DiscountAmount,
		bill.TotalAmount,
		string(bill.PaymentMode),
		nullString(bill.IdempotencyKey),
	).Scan(&bill.ID)
	if err != nil {
		if bill.IdempotencyKey != "" && isUniqueViolation(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("insert bill: %w", err)
	}

	itemQuery := `
		INSERT INTO bill_items (bill_id, product_id, product_name, quantity, price_at_sale, subtotal)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for _, item := range bill.Items {
		if _, err := tx.ExecContext(ctx, itemQuery,
			bill.ID,
			item.ProductID,
			item.ProductName,
			item.Quantity,
			item.PriceAtSale,
			item.Subtotal,
		); err != nil {
			return fmt.Errorf("insert bill item: %w", err)
		}
	}

	payload, err := json.Marshal(bill)
	if err != nil {
		return fmt.Errorf("marshal sale event: %w", err)
	}
	if err := insertOutboxEvent(ctx, tx, bill.BillNumber, EventSaleCompleted, payload); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit bill: %w", err)
	}
	return nil
}

func decrementStock(ctx context.Context, tx *sql.Tx, productID int64, qty int) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE products
		SET stock_quantity = stock_quantity - $1
		WHERE id = $2 AND stock_quantity >= $1
	`, qty, productID)
	if err != nil {
		return fmt.Errorf("update stock: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 1 {
		return nil
	}

	var (
		name      string
		available int
	)
	err = tx.QueryRowContext(ctx, `SELECT name, stock_quantity FROM products WHERE id = $1`, productID).Scan(&name, &available)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %d", ErrUnknownProduct, productID)
	}
	if err != nil {
		return fmt.Errorf("query stock: %w", err)
	}
	return &InsufficientStockError{ProductID: productID, Name: name, Available: available, Requested: qty}
}

func scanBill(row rowScanner) (domain.Bill, error) {
	var (
		b    domain.Bill
		mode string
		key  sql.NullString
	)
	err := row.Scan(
		&b.ID,
		&b.BillNumber,
		&b.Date,
		&b.CustomerName,
		&b.Subtotal,
		&b.TaxAmount,
		&b.DiscountAmount,
		&b.TotalAmount,
		&mode,
		&key,
	)
	b.PaymentMode = domain.PaymentMode(mode)
	b.IdempotencyKey = key.String
	return b, err
}

// BillByID returns the bill with its items.
func (s *Store) BillByID(ctx context.Context, id int64) (domain.Bill, error) {
	return s.queryBill(ctx, `SELECT `+billColumns+` FROM bills WHERE id = $1`, id)
}

func (s *Store) BillByIdempotencyKey(ctx context.Context, key string) (domain.Bill, error) {
	return s.queryBill(ctx, `SELECT `+billColumns+` FROM bills WHERE idempotency_key = $1`, key)
}

func (s *Store) queryBill(ctx context.Context, query string, arg any) (domain.Bill, error) {
	b, err := scanBill(s.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Bill{}, ErrBillNotFound
	}
	if err != nil {
		return domain.Bill{}, fmt.Errorf("query bill: %w", err)
	}

	items, err := s.billItems(ctx, b.ID)
	if err != nil {
		return domain.Bill{}, err
	}
	b.Items = items
	return b, nil
}

func (s *Store) billItems(ctx context.Context, billID int64) ([]domain.BillItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, product_name, quantity, price_at_sale, subtotal
		FROM bill_items
		WHERE bill_id = $1
		ORDER BY id
	`, billID)
	if err != nil {
		return nil, fmt.Errorf("query bill items: %w", err)
	}
	defer rows.Close()

	items := []domain.BillItem{}
	for rows.Next() {
		var it domain.BillItem
		if err := rows.Scan(&it.ProductID, &it.ProductName, &it.Quantity, &it.PriceAtSale, &it.Subtotal); err != nil {
			return nil, fmt.Errorf("scan bill item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return items, nil
}

// ListBills returns the most recent bills first, without items.
func (s *Store) ListBills(ctx context.Context, limit int) ([]domain.Bill, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+billColumns+`
		FROM bills
		ORDER BY date DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query bills: %w", err)
	}
	defer rows.Close()

	bills := []domain.Bill{}
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bill: %w", err)
		}
		bills = append(bills, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return bills, nil
}

func now() time.Time {
	return time.Now().UTC()
}
