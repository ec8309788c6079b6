package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mogesh-developer/billing-webapp/internal/domain"
	"github.com/mogesh-developer/billing-webapp/internal/ledger"
	"github.com/mogesh-developer/billing-webapp/internal/totals"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// TransactionService records a finalized sale. Implementations return a
// *domain.RejectedError when the service refuses the sale and wrap
// domain.ErrTransport for connectivity problems.
type TransactionService interface {
	Submit(ctx context.Context, payload domain.CheckoutPayload, idempotencyKey string) (*domain.TransactionResult, error)
}

// Form holds the operator-entered checkout fields.
type Form struct {
	CustomerName   string
	PaymentMode    domain.PaymentMode
	TaxRatePercent decimal.Decimal
	Discount       decimal.Decimal
}

// Outcome describes how the last submission ended.
type Outcome struct {
	Status  domain.CheckoutStatus
	Result  *domain.TransactionResult
	Payload domain.CheckoutPayload
	Message string
	Err     error
}

type Coordinator struct {
	mu     sync.Mutex
	status domain.CheckoutStatus
	last   Outcome

	key        string
	keyVersion uint64

	ledger  *ledger.Ledger
	tx      TransactionService
	logger  *zap.Logger
	timeout time.Duration

	offerReceipt func(domain.TransactionResult)
	resetForm    func()
	onTransition func(from, to domain.CheckoutStatus)
	newKey       func() string
}

type Option func(*Coordinator)

// WithTimeout bounds a single submission. Zero means no bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Coordinator) { c.timeout = d }
}

// WithReceiptOffer is called first after a confirmed success.
func WithReceiptOffer(fn func(domain.TransactionResult)) Option {
	return func(c *Coordinator) { c.offerReceipt = fn }
}

// WithFormReset is called last after a confirmed success, once the ledger is cleared.
func WithFormReset(fn func()) Option {
	return func(c *Coordinator) { c.resetForm = fn }
}

// WithTransitionHook observes every state change. It runs with the
// coordinator lock held and must not call back into the coordinator.
func WithTransitionHook(fn func(from, to domain.CheckoutStatus)) Option {
	return func(c *Coordinator) { c.onTransition = fn }
}

func WithKeyGenerator(fn func() string) Option {
	return func(c *Coordinator) { c.newKey = fn }
}

func New(l *ledger.Ledger, tx TransactionService, logger *zap.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		status:       domain.CheckoutStatusIdle,
		ledger:       l,
		tx:           tx,
		logger:       logger,
		offerReceipt: func(domain.TransactionResult) {},
		resetForm:    func() {},
		onTransition: func(_, _ domain.CheckoutStatus) {},
		newKey:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Coordinator) Status() domain.CheckoutStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Busy reports whether a submission is in flight or its result is still being handled.
func (c *Coordinator) Busy() bool {
	return c.Status() != domain.CheckoutStatusIdle
}

func (c *Coordinator) Last() Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Checkout submits the current cart. The cart is snapshotted before the
// call so later ledger changes never reach the in-flight payload. On
// failure the ledger and form are left as they were.
func (c *Coordinator) Checkout(ctx context.Context, form Form) (Outcome, error) {
	c.mu.Lock()
	if c.status != domain.CheckoutStatusIdle {
		c.mu.Unlock()
		return Outcome{}, ErrCheckoutInFlight
	}

	cart, version := c.ledger.VersionedSnapshot()
	if cart.IsEmpty() {
		c.mu.Unlock()
		return Outcome{Status: domain.CheckoutStatusIdle, Message: "Bill is empty!", Err: domain.ErrEmptyCart}, domain.ErrEmptyCart
	}

	if c.key == "" || c.keyVersion != version {
		c.key = c.newKey()
		c.keyVersion = version
	}
	key := c.key
	c.transition(domain.CheckoutStatusSubmitting)
	c.mu.Unlock()

	mode := form.PaymentMode
	if !mode.Valid() {
		mode = domain.DefaultPaymentMode
	}
	snapshot := totals.Compute(cart, form.TaxRatePercent, form.Discount)
	payload := domain.NewCheckoutPayload(strings.TrimSpace(form.CustomerName), mode, cart, snapshot)

	c.logger.Info("submitting checkout",
		zap.String("idempotency_key", key),
		zap.Int("items", len(payload.Items)),
		zap.String("total", payload.TotalAmount.StringFixed(2)),
		zap.String("payment_mode", payload.PaymentMode.String()))

	submitCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		submitCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	result, err := c.tx.Submit(submitCtx, payload, key)
	if err == nil && result == nil {
		err = fmt.Errorf("%w: empty response", domain.ErrTransport)
	}
	if err != nil {
		return c.fail(payload, err)
	}
	return c.complete(payload, *result), nil
}

func (c *Coordinator) complete(payload domain.CheckoutPayload, result domain.TransactionResult) Outcome {
	outcome := Outcome{
		Status:  domain.CheckoutStatusCompleted,
		Result:  &result,
		Payload: payload,
		Message: "Sale Complete!",
	}

	c.mu.Lock()
	c.transition(domain.CheckoutStatusCompleted)
	c.last = outcome
	c.key = ""
	c.mu.Unlock()

	c.logger.Info("checkout completed",
		zap.String("transaction_id", result.TransactionID),
		zap.String("bill_number", result.BillNumber))

	c.offerReceipt(result)
	c.ledger.Clear()
	c.resetForm()

	c.mu.Lock()
	c.transition(domain.CheckoutStatusIdle)
	c.mu.Unlock()

	return outcome
}

func (c *Coordinator) fail(payload domain.CheckoutPayload, err error) (Outcome, error) {
	var rejected *domain.RejectedError
	message := TransportFailureMessage
	switch {
	case errors.As(err, &rejected):
		message = rejected.Reason
	case !errors.Is(err, domain.ErrTransport):
		err = fmt.Errorf("%w: %w", domain.ErrTransport, err)
	}

	outcome := Outcome{
		Status:  domain.CheckoutStatusFailed,
		Payload: payload,
		Message: message,
		Err:     err,
	}

	c.mu.Lock()
	c.transition(domain.CheckoutStatusFailed)
	c.last = outcome
	c.mu.Unlock()

	c.logger.Warn("checkout failed", zap.String("reason", message), zap.Error(err))

	c.mu.Lock()
	c.transition(domain.CheckoutStatusIdle)
	c.mu.Unlock()

	return outcome, err
}

func (c *Coordinator) transition(to domain.CheckoutStatus) {
	from := c.status
	c.status = to
	c.onTransition(from, to)
}
