package storage

import (
	"context"
	"slices"
	"sync"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

type reviewKey struct {
	username  string
	productID int64
}

// MemoryAdapter keeps every collection in process. Each collection has its
// own lock and every method holds it for the whole check-and-mutate step,
// which gives the same per-record atomicity the remote stores provide.
type MemoryAdapter struct {
	usersMu sync.RWMutex
	users   map[string]domain.User

	productsMu sync.RWMutex
	products   map[int64]*domain.Product

	reviewsMu sync.RWMutex
	reviews   map[reviewKey]domain.Review
	byProduct map[int64][]reviewKey
	byUser    map[string][]reviewKey

	ordersMu sync.RWMutex
	orders   map[int64]domain.Order

	seqMu sync.Mutex
	seq   map[string]int64
}

var _ port.Store = (*MemoryAdapter)(nil)

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{
		users:     make(map[string]domain.User),
		products:  make(map[int64]*domain.Product),
		reviews:   make(map[reviewKey]domain.Review),
		byProduct: make(map[int64][]reviewKey),
		byUser:    make(map[string][]reviewKey),
		orders:    make(map[int64]domain.Order),
		seq:       make(map[string]int64),
	}
}

func (m *MemoryAdapter) InsertUser(ctx context.Context, user domain.User) error {
	m.usersMu.Lock()
	defer m.usersMu.Unlock()

	if _, ok := m.users[user.Username]; ok {
		return domain.ErrDuplicateKey
	}
	m.users[user.Username] = user
	return nil
}

func (m *MemoryAdapter) FindUser(ctx context.Context, username string) (*domain.User, error) {
	m.usersMu.RLock()
	defer m.usersMu.RUnlock()

	user, ok := m.users[username]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

func (m *MemoryAdapter) InsertProduct(ctx context.Context, product domain.Product) error {
	m.productsMu.Lock()
	defer m.productsMu.Unlock()

	if _, ok := m.products[product.ID]; ok {
		return domain.ErrDuplicateKey
	}
	m.products[product.ID] = &product
	return nil
}

func (m *MemoryAdapter) GetProduct(ctx context.Context, productID int64) (*domain.Product, error) {
	m.productsMu.RLock()
	defer m.productsMu.RUnlock()

	p, ok := m.products[productID]
	if !ok {
		return nil, nil
	}
	product := *p
	return &product, nil
}

func (m *MemoryAdapter) IncrementStock(ctx context.Context, productID int64, delta int) error {
	m.productsMu.Lock()
	defer m.productsMu.Unlock()

	p, ok := m.products[productID]
	if !ok {
		return domain.ErrNotFound
	}
	p.Stock += delta
	return nil
}

func (m *MemoryAdapter) DecrementStockIfEnough(ctx context.Context, productID int64, quantity int) (bool, error) {
	m.productsMu.Lock()
	defer m.productsMu.Unlock()

	p, ok := m.products[productID]
	if !ok || p.Stock < quantity {
		return false, nil
	}
	p.Stock -= quantity
	return true, nil
}

func (m *MemoryAdapter) InsertReview(ctx context.Context, review domain.Review) error {
	m.reviewsMu.Lock()
	defer m.reviewsMu.Unlock()

	key := reviewKey{username: review.Username, productID: review.ProductID}
	if _, ok := m.reviews[key]; ok {
		return domain.ErrDuplicateKey
	}
	m.reviews[key] = review
	m.byProduct[review.ProductID] = append(m.byProduct[review.ProductID], key)
	m.byUser[review.Username] = append(m.byUser[review.Username], key)
	return nil
}

func (m *MemoryAdapter) ListReviewsByProduct(ctx context.Context, productID int64) ([]domain.Review, error) {
	m.reviewsMu.RLock()
	defer m.reviewsMu.RUnlock()
	return m.collectReviews(m.byProduct[productID]), nil
}

func (m *MemoryAdapter) ListReviewsByUser(ctx context.Context, username string) ([]domain.Review, error) {
	m.reviewsMu.RLock()
	defer m.reviewsMu.RUnlock()
	return m.collectReviews(m.byUser[username]), nil
}

func (m *MemoryAdapter) collectReviews(keys []reviewKey) []domain.Review {
	out := make([]domain.Review, 0, len(keys))
	for _, k := range keys {
		out = append(out, m.reviews[k])
	}
	return out
}

func (m *MemoryAdapter) InsertOrder(ctx context.Context, order domain.Order) error {
	m.ordersMu.Lock()
	defer m.ordersMu.Unlock()

	if _, ok := m.orders[order.ID]; ok {
		return domain.ErrDuplicateKey
	}
	order.Items = slices.Clone(order.Items)
	m.orders[order.ID] = order
	return nil
}

func (m *MemoryAdapter) GetOrder(ctx context.Context, orderID int64) (*domain.Order, error) {
	m.ordersMu.RLock()
	defer m.ordersMu.RUnlock()

	order, ok := m.orders[orderID]
	if !ok {
		return nil, nil
	}
	order.Items = slices.Clone(order.Items)
	return &order, nil
}

// Orders returns a copy of every persisted order.
func (m *MemoryAdapter) Orders() []domain.Order {
	m.ordersMu.RLock()
	defer m.ordersMu.RUnlock()

	out := make([]domain.Order, 0, len(m.orders))
	for _, o := range m.orders {
		o.Items = slices.Clone(o.Items)
		out = append(out, o)
	}
	return out
}

func (m *MemoryAdapter) NextID(ctx context.Context, name string) (int64, error) {
	m.seqMu.Lock()
	defer m.seqMu.Unlock()

	m.seq[name]++
	return m.seq[name], nil
}
