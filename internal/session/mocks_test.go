package session

import (
	"context"
	"strings"
	"sync"

	"github.com/mogesh-developer/billing-webapp/internal/domain"
)

type mockSettings struct {
	settings domain.ShopSettings
	err      error
}

func (m *mockSettings) Get(ctx context.Context) (domain.ShopSettings, error) {
	return m.settings, m.err
}

type mockCatalog struct {
	mu        sync.Mutex
	products  []domain.Product
	byCodeErr error
	searchErr error
	searches  int
}

func (m *mockCatalog) ByCode(ctx context.Context, code string) (domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.byCodeErr != nil {
		return domain.Product{}, m.byCodeErr
	}
	for _, p := range m.products {
		if p.Barcode == code {
			return p, nil
		}
	}
	return domain.Product{}, domain.ErrProductNotFound
}

func (m *mockCatalog) Search(ctx context.Context, query string) ([]domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searches++
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	var out []domain.Product
	for _, p := range m.products {
		if strings.Contains(strings.ToLower(p.Name), strings.ToLower(query)) {
			out = append(out, p)
		}
	}
	return out, nil
}

type mockTransactions struct {
	mu       sync.Mutex
	result   *domain.TransactionResult
	err      error
	payloads []domain.CheckoutPayload
	block    chan struct{}
	entered  chan struct{}
}

func (m *mockTransactions) Submit(ctx context.Context, payload domain.CheckoutPayload, key string) (*domain.TransactionResult, error) {
	m.mu.Lock()
	m.payloads = append(m.payloads, payload)
	block, entered := m.block, m.entered
	m.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		<-block
	}
	return m.result, m.err
}

func (m *mockTransactions) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.payloads)
}

type mockReceipts struct {
	text string
	err  error
}

func (m *mockReceipts) Fetch(ctx context.Context, id string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.text + id, nil
}
