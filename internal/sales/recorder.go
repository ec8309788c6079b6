// Package sales records checkouts submitted by the tills.
package sales

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mogesh-developer/billing-webapp/internal/domain"
	"github.com/mogesh-developer/billing-webapp/internal/metrics"
	"github.com/mogesh-developer/billing-webapp/internal/store"
	"github.com/mogesh-developer/billing-webapp/internal/totals"
	"github.com/mogesh-developer/billing-webapp/pkg/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/mogesh-developer/billing-webapp/internal/sales")

type Store interface {
	CreateBill(ctx context.Context, bill *domain.Bill) error
	BillByIdempotencyKey(ctx context.Context, key string) (domain.Bill, error)
}

// StockCache is told which products just changed stock.
type StockCache interface {
	InvalidateProducts(ctx context.Context, ids ...int64)
}

type Recorder struct {
	store   Store
	cache   StockCache
	metrics *metrics.ServerMetrics
	logger  *zap.Logger

	now           func() time.Time
	newBillNumber func() string
}

func NewRecorder(s Store, cache StockCache, m *metrics.ServerMetrics, logger *zap.Logger) *Recorder {
	return &Recorder{
		store:         s,
		cache:         cache,
		metrics:       m,
		logger:        logger,
		now:           time.Now,
		newBillNumber: BillNumber,
	}
}

// BillNumber is the first group of a random UUID, upper-cased.
func BillNumber() string {
	id := uuid.NewString()
	return strings.ToUpper(id[:strings.IndexByte(id, '-')])
}

// Record validates and stores a sale. A repeated idempotency key returns the
// bill recorded the first time without touching stock again. Refusals are
// returned as *domain.RejectedError.
func (r *Recorder) Record(ctx context.Context, payload domain.CheckoutPayload, idempotencyKey string) (domain.Bill, error) {
	ctx, span := tracer.Start(ctx, "sales.Record")
	defer span.End()
	span.SetAttributes(attribute.Int("items", len(payload.Items)))

	if idempotencyKey != "" {
		bill, err := r.store.BillByIdempotencyKey(ctx, idempotencyKey)
		if err == nil {
			r.logger.Info("replaying recorded sale",
				zap.String("idempotency_key", idempotencyKey),
				zap.String("bill_number", bill.BillNumber))
			return bill, nil
		}
		if !errors.Is(err, store.ErrBillNotFound) {
			return domain.Bill{}, fmt.Errorf("lookup idempotency key: %w", err)
		}
	}

	bill, err := r.newBill(payload, idempotencyKey)
	if err != nil {
		return domain.Bill{}, err
	}

	if err := r.store.CreateBill(ctx, &bill); err != nil {
		return r.handleCreateError(ctx, err, idempotencyKey)
	}

	mode := string(bill.PaymentMode)
	r.metrics.Sales.WithLabelValues(mode).Inc()
	r.metrics.SalesRevenue.WithLabelValues(mode).Add(bill.TotalAmount.InexactFloat64())

	if r.cache != nil {
		ids := make([]int64, len(bill.Items))
		for i, it := range bill.Items {
			ids[i] = it.ProductID
		}
		r.cache.InvalidateProducts(ctx, ids...)
	}

	span.SetAttributes(attribute.String("bill_number", bill.BillNumber))
	logger.WithTrace(ctx, r.logger).Info("sale recorded",
		zap.Int64("bill_id", bill.ID),
		zap.String("bill_number", bill.BillNumber),
		zap.String("total", bill.TotalAmount.StringFixed(2)),
		zap.String("payment_mode", mode),
		zap.Int("items", len(bill.Items)))
	return bill, nil
}

func (r *Recorder) newBill(p domain.CheckoutPayload, key string) (domain.Bill, error) {
	if len(p.Items) == 0 {
		return domain.Bill{}, r.reject("empty", "Bill is empty")
	}

	mode := domain.DefaultPaymentMode
	if strings.TrimSpace(string(p.PaymentMode)) != "" {
		parsed, err := domain.ParsePaymentMode(string(p.PaymentMode))
		if err != nil {
			return domain.Bill{}, r.reject("payment_mode", fmt.Sprintf("Unknown payment mode %s", p.PaymentMode))
		}
		mode = parsed
	}

	if p.TaxAmount.IsNegative() || p.DiscountAmount.IsNegative() {
		return domain.Bill{}, r.reject("totals", "Tax and discount must not be negative")
	}
	if err := totals.CheckRange(p); err != nil {
		r.logger.Info("amounts out of range", zap.Error(err))
		return domain.Bill{}, r.reject("totals", "Bill amounts are out of range")
	}
	if err := totals.Verify(p); err != nil {
		r.logger.Info("totals mismatch", zap.Error(err))
		return domain.Bill{}, r.reject("totals", "Bill totals do not match its items")
	}

	customer := strings.TrimSpace(p.CustomerName)
	if customer == "" {
		customer = domain.DefaultCustomerName
	}

	items := make([]domain.BillItem, len(p.Items))
	for i, it := range p.Items {
		items[i] = domain.BillItem{
			ProductID:   it.ProductID,
			ProductName: it.Name,
			Quantity:    it.Quantity,
			PriceAtSale: it.UnitPrice,
			Subtotal:    it.LineSubtotal,
		}
	}

	return domain.Bill{
		BillNumber:     r.newBillNumber(),
		Date:           r.now().UTC(),
		CustomerName:   customer,
		Subtotal:       p.Subtotal,
		TaxAmount:      p.TaxAmount,
		DiscountAmount: p.DiscountAmount,
		TotalAmount:    p.TotalAmount,
		PaymentMode:    mode,
		IdempotencyKey: key,
		Items:          items,
	}, nil
}

func (r *Recorder) handleCreateError(ctx context.Context, err error, key string) (domain.Bill, error) {
	var stockErr *store.InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		return domain.Bill{}, r.reject("stock", "Insufficient stock for "+stockErr.Name)
	case errors.Is(err, store.ErrUnknownProduct):
		return domain.Bill{}, r.reject("product", "Product not found")
	case errors.Is(err, store.ErrDuplicateKey):
		// A concurrent retry with the same key won the race.
		bill, lookupErr := r.store.BillByIdempotencyKey(ctx, key)
		if lookupErr != nil {
			return domain.Bill{}, fmt.Errorf("load bill for duplicate key: %w", lookupErr)
		}
		return bill, nil
	}
	return domain.Bill{}, fmt.Errorf("create bill: %w", err)
}

func (r *Recorder) reject(reason, message string) error {
	r.metrics.Rejections.WithLabelValues(reason).Inc()
	return &domain.RejectedError{Reason: message}
}
