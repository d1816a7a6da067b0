package services

import (
	"context"
	"sync"
	"time"

	ierr "github.com/tallbag/gutinvoice/internal/errors"
	"github.com/tallbag/gutinvoice/internal/models"
)

// MemorySellerStore keeps seller profiles in process
type MemorySellerStore struct {
	mu      sync.RWMutex
	sellers map[string]models.Seller
}

// NewMemorySellerStore creates an empty store
func NewMemorySellerStore() *MemorySellerStore {
	return &MemorySellerStore{sellers: make(map[string]models.Seller)}
}

// GetByPhone returns a copy of the seller registered with phone
func (m *MemorySellerStore) GetByPhone(ctx context.Context, phone string) (*models.Seller, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seller, ok := m.sellers[phone]
	if !ok {
		return nil, ierr.NewErrorf("seller not found: %s", phone).Mark(ierr.ErrNotFound)
	}
	return &seller, nil
}

// Save inserts or replaces the seller
func (m *MemorySellerStore) Save(ctx context.Context, seller *models.Seller) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	if seller.CreatedAt.IsZero() {
		seller.CreatedAt = now
	}
	seller.UpdatedAt = now
	m.sellers[seller.Phone] = *seller
	return nil
}
