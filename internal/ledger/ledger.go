package ledger

import (
	"errors"
	"fmt"
	"sync"

	"github.com/mogesh-developer/billing-webapp/internal/domain"
	"github.com/shopspring/decimal"
)

var ErrIndexOutOfRange = errors.New("line item index out of range")

// Ledger is the sole mutable owner of a Cart.
type Ledger struct {
	mu        sync.Mutex
	items     domain.Cart
	version   uint64
	observers []func(domain.Cart)
}

func New() *Ledger {
	return &Ledger{items: domain.Cart{}}
}

// OnChange registers fn to be called with a snapshot after every mutation.
// Observers run outside the ledger lock.
func (l *Ledger) OnChange(fn func(domain.Cart)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.observers = append(l.observers, fn)
}

// AddItem merges into an existing line for the same product or appends a
// new line with quantity 1. A negative or out-of-range price is taken as 0.
func (l *Ledger) AddItem(p domain.Product) {
	if p.Price.IsNegative() || !domain.AmountInRange(p.Price) {
		p.Price = decimal.Zero
	}
	l.mutate(func() error {
		for i := range l.items {
			if l.items[i].ProductID == p.ID {
				l.items[i].Quantity++
				recompute(&l.items[i])
				return nil
			}
		}
		item := domain.LineItem{
			ProductID: p.ID,
			Name:      p.Name,
			UnitPrice: p.Price,
			Quantity:  1,
		}
		recompute(&item)
		l.items = append(l.items, item)
		return nil
	})
}

func (l *Ledger) RemoveItem(index int) error {
	return l.mutate(func() error {
		if err := l.checkIndex(index); err != nil {
			return err
		}
		l.removeAt(index)
		return nil
	})
}

// AdjustQuantity applies delta to the line at index. A resulting quantity of
// zero or less removes the line.
func (l *Ledger) AdjustQuantity(index, delta int) error {
	return l.mutate(func() error {
		if err := l.checkIndex(index); err != nil {
			return err
		}
		qty := l.items[index].Quantity + delta
		if qty <= 0 {
			l.removeAt(index)
			return nil
		}
		l.items[index].Quantity = qty
		recompute(&l.items[index])
		return nil
	})
}

// Snapshot returns a copy of the cart; changing it does not touch the ledger.
func (l *Ledger) Snapshot() domain.Cart {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.items.Clone()
}

// VersionedSnapshot returns a snapshot together with the version it was taken at.
func (l *Ledger) VersionedSnapshot() (domain.Cart, uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.items.Clone(), l.version
}

func (l *Ledger) Clear() {
	l.mutate(func() error {
		l.items = domain.Cart{}
		return nil
	})
}

func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// Version increases on every successful mutation.
func (l *Ledger) Version() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.version
}

func (l *Ledger) mutate(fn func() error) error {
	l.mu.Lock()
	if err := fn(); err != nil {
		l.mu.Unlock()
		return err
	}
	l.version++
	snapshot := l.items.Clone()
	observers := append([]func(domain.Cart){}, l.observers...)
	l.mu.Unlock()

	for _, observe := range observers {
		observe(snapshot)
	}
	return nil
}

func (l *Ledger) checkIndex(index int) error {
	if index < 0 || index >= len(l.items) {
		return fmt.Errorf("%w: %d (cart has %d items)", ErrIndexOutOfRange, index, len(l.items))
	}
	return nil
}

func (l *Ledger) removeAt(index int) {
	l.items = append(l.items[:index], l.items[index+1:]...)
}

func recompute(item *domain.LineItem) {
	item.LineSubtotal = item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
}
