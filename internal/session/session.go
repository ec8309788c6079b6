// Package session is one operator's till: a cart ledger, the checkout form,
// live totals and the checkout coordinator, fed by the shop's settings,
// catalog and receipt services.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/mogesh-developer/billing-webapp/internal/checkout"
	"github.com/mogesh-developer/billing-webapp/internal/domain"
	"github.com/mogesh-developer/billing-webapp/internal/ledger"
	"github.com/mogesh-developer/billing-webapp/internal/totals"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrCartLocked       = errors.New("cart is locked while checkout is in progress")
	ErrNoReceiptOffer   = errors.New("no receipt to view")
	ErrResultOutOfRange = errors.New("search result index out of range")
)

type SettingsService interface {
	Get(ctx context.Context) (domain.ShopSettings, error)
}

// Catalog resolves products. ByCode returns domain.ErrProductNotFound when
// no product carries the code.
type Catalog interface {
	ByCode(ctx context.Context, code string) (domain.Product, error)
	Search(ctx context.Context, query string) ([]domain.Product, error)
}

type ReceiptService interface {
	Fetch(ctx context.Context, transactionID string) (string, error)
}

// ReceiptHandler receives the outcome of a receipt fetch started by ViewReceipt.
type ReceiptHandler func(transactionID, text string, err error)

// View is a point-in-time copy of everything the terminal renders.
type View struct {
	Settings       domain.ShopSettings
	Items          domain.Cart
	Totals         domain.TotalsSnapshot
	Results        []domain.Product
	CustomerName   string
	PaymentMode    domain.PaymentMode
	TaxRatePercent decimal.Decimal
	Discount       decimal.Decimal
	Status         domain.CheckoutStatus
	ReceiptOffer   *domain.TransactionResult
	Notice         string
}

type Session struct {
	ledger      *ledger.Ledger
	coordinator *checkout.Coordinator
	settingsSvc SettingsService
	catalog     Catalog
	receipts    ReceiptService
	onReceipt   ReceiptHandler
	logger      *zap.Logger

	// editMu serializes cart edits against the start of a checkout.
	editMu   sync.Mutex
	inFlight bool

	mu           sync.Mutex
	settings     domain.ShopSettings
	totals       domain.TotalsSnapshot
	results      []domain.Product
	customerName string
	paymentMode  domain.PaymentMode
	taxRate      decimal.Decimal
	discount     decimal.Decimal
	receiptOffer *domain.TransactionResult
	notice       string
}

type Config struct {
	Settings     SettingsService
	Catalog      Catalog
	Transactions checkout.TransactionService
	Receipts     ReceiptService
	Logger       *zap.Logger

	// OnReceipt is called from a background goroutine once a requested receipt
	// has been fetched. Nil logs the result and discards it.
	OnReceipt ReceiptHandler

	// CheckoutOptions are passed through to the coordinator.
	CheckoutOptions []checkout.Option
}

func New(cfg Config) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Session{
		ledger:      ledger.New(),
		settingsSvc: cfg.Settings,
		catalog:     cfg.Catalog,
		receipts:    cfg.Receipts,
		onReceipt:   cfg.OnReceipt,
		logger:      logger,
		settings:    domain.DefaultShopSettings(),
		paymentMode: domain.DefaultPaymentMode,
		taxRate:     decimal.Zero,
		discount:    decimal.Zero,
	}
	if s.onReceipt == nil {
		s.onReceipt = func(id, _ string, err error) {
			if err != nil {
				logger.Warn("receipt fetch failed", zap.String("transaction_id", id), zap.Error(err))
			}
		}
	}

	opts := append([]checkout.Option{
		checkout.WithReceiptOffer(s.offerReceipt),
		checkout.WithFormReset(s.resetForm),
		checkout.WithTransitionHook(func(from, to domain.CheckoutStatus) {
			logger.Debug("checkout transition", zap.Stringer("from", from), zap.Stringer("to", to))
		}),
	}, cfg.CheckoutOptions...)
	s.coordinator = checkout.New(s.ledger, cfg.Transactions, logger, opts...)

	s.ledger.OnChange(func(domain.Cart) { s.recompute() })
	s.recompute()
	return s
}

// Start loads shop settings and presets the tax rate. An unreachable
// settings service falls back to the defaults.
func (s *Session) Start(ctx context.Context) {
	settings := domain.DefaultShopSettings()
	if s.settingsSvc != nil {
		loaded, err := s.settingsSvc.Get(ctx)
		if err != nil {
			s.logger.Warn("settings unavailable, using defaults", zap.Error(err))
		} else {
			settings = loaded
		}
	}

	s.mu.Lock()
	s.settings = settings
	s.taxRate = nonNegative(settings.DefaultTaxRate)
	s.mu.Unlock()
	s.recompute()
}

// SearchResult reports what a search did: either one product went straight
// into the cart, or a list of candidates is waiting to be picked.
type SearchResult struct {
	Added   *domain.Product
	Results []domain.Product
}

// Search tries query as an exact product code first and adds the product on
// a hit. Otherwise it runs a name search and keeps the matches for Pick.
// Catalog failures are logged and reported as no results.
func (s *Session) Search(ctx context.Context, query string) (SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		s.setResults(nil)
		return SearchResult{}, nil
	}

	product, err := s.catalog.ByCode(ctx, query)
	switch {
	case err == nil:
		if err := s.edit(func() error { s.ledger.AddItem(product); return nil }); err != nil {
			return SearchResult{}, err
		}
		s.setResults(nil)
		return SearchResult{Added: &product}, nil
	case !errors.Is(err, domain.ErrProductNotFound):
		s.logger.Warn("product lookup failed", zap.String("query", query), zap.Error(err))
	}

	results, err := s.catalog.Search(ctx, query)
	if err != nil {
		s.logger.Warn("product search failed", zap.String("query", query), zap.Error(err))
		results = nil
	}
	s.setResults(results)
	return SearchResult{Results: append([]domain.Product(nil), results...)}, nil
}

// Pick adds the index-th product of the last search and clears the results.
func (s *Session) Pick(index int) (domain.Product, error) {
	s.mu.Lock()
	if index < 0 || index >= len(s.results) {
		s.mu.Unlock()
		return domain.Product{}, ErrResultOutOfRange
	}
	product := s.results[index]
	s.mu.Unlock()

	if err := s.Add(product); err != nil {
		return domain.Product{}, err
	}
	s.setResults(nil)
	return product, nil
}

func (s *Session) Add(p domain.Product) error {
	return s.edit(func() error {
		s.ledger.AddItem(p)
		return nil
	})
}

func (s *Session) Remove(index int) error {
	return s.edit(func() error { return s.ledger.RemoveItem(index) })
}

func (s *Session) Adjust(index, delta int) error {
	return s.edit(func() error { return s.ledger.AdjustQuantity(index, delta) })
}

// SetTaxRate takes the operator's text; anything unparsable or negative is 0.
func (s *Session) SetTaxRate(text string) {
	s.mu.Lock()
	s.taxRate = totals.ParseAmount(text)
	s.mu.Unlock()
	s.recompute()
}

func (s *Session) SetDiscount(text string) {
	s.mu.Lock()
	s.discount = totals.ParseAmount(text)
	s.mu.Unlock()
	s.recompute()
}

func (s *Session) SetCustomerName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customerName = name
}

func (s *Session) SetPaymentMode(text string) error {
	mode, err := domain.ParsePaymentMode(text)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paymentMode = mode
	return nil
}

func (s *Session) Totals() domain.TotalsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totals
}

// Checkout submits the cart with the current form. Cart edits are refused
// until the coordinator is idle again.
func (s *Session) Checkout(ctx context.Context) (checkout.Outcome, error) {
	s.editMu.Lock()
	if s.inFlight {
		s.editMu.Unlock()
		return checkout.Outcome{}, checkout.ErrCheckoutInFlight
	}
	s.inFlight = true
	s.editMu.Unlock()

	defer func() {
		s.editMu.Lock()
		s.inFlight = false
		s.editMu.Unlock()
	}()

	s.mu.Lock()
	form := checkout.Form{
		CustomerName:   s.customerName,
		PaymentMode:    s.paymentMode,
		TaxRatePercent: s.taxRate,
		Discount:       s.discount,
	}
	s.mu.Unlock()

	outcome, err := s.coordinator.Checkout(ctx, form)
	if outcome.Message != "" {
		s.setNotice(outcome.Message)
	}
	return outcome, err
}

func (s *Session) Status() domain.CheckoutStatus {
	return s.coordinator.Status()
}

// ViewReceipt answers the pending receipt offer. On yes the receipt is
// fetched in the background and handed to the ReceiptHandler; the call
// itself never waits for it.
func (s *Session) ViewReceipt(ctx context.Context, yes bool) error {
	s.mu.Lock()
	offer := s.receiptOffer
	s.receiptOffer = nil
	s.mu.Unlock()

	if offer == nil {
		return ErrNoReceiptOffer
	}
	if !yes || s.receipts == nil {
		return nil
	}

	id := offer.TransactionID
	go func() {
		text, err := s.receipts.Fetch(ctx, id)
		s.onReceipt(id, text, err)
	}()
	return nil
}

func (s *Session) View() View {
	items := s.ledger.Snapshot()
	status := s.coordinator.Status()

	s.mu.Lock()
	defer s.mu.Unlock()

	var offer *domain.TransactionResult
	if s.receiptOffer != nil {
		o := *s.receiptOffer
		offer = &o
	}
	return View{
		Settings:       s.settings,
		Items:          items,
		Totals:         s.totals,
		Results:        append([]domain.Product(nil), s.results...),
		CustomerName:   s.customerName,
		PaymentMode:    s.paymentMode,
		TaxRatePercent: s.taxRate,
		Discount:       s.discount,
		Status:         status,
		ReceiptOffer:   offer,
		Notice:         s.notice,
	}
}

func (s *Session) edit(fn func() error) error {
	s.editMu.Lock()
	defer s.editMu.Unlock()
	if s.inFlight || s.coordinator.Busy() {
		return ErrCartLocked
	}
	return fn()
}

func (s *Session) recompute() {
	cart := s.ledger.Snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.totals = totals.Compute(cart, s.taxRate, s.discount)
}

func (s *Session) offerReceipt(result domain.TransactionResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.receiptOffer = &result
}

func (s *Session) resetForm() {
	s.mu.Lock()
	s.customerName = ""
	s.discount = decimal.Zero
	s.mu.Unlock()
	s.recompute()
}

func (s *Session) setResults(results []domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = results
}

func (s *Session) setNotice(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notice = msg
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() || !domain.AmountInRange(d) {
		return decimal.Zero
	}
	return d
}
