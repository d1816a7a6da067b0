package ledger

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tallbag/gutinvoice/internal/models"
)

// MemoryStore is an in-process Store for development and tests
type MemoryStore struct {
	mu       sync.Mutex
	records  []*models.InvoiceRecord
	counters map[SequenceKey]int
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counters: map[SequenceKey]int{}}
}

// IssueInvoice implements Store
func (m *MemoryStore) IssueInvoice(ctx context.Context, key SequenceKey, rec *models.InvoiceRecord, number NumberFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	seq := m.nextLocked(key)
	num := number(seq)
	for _, existing := range m.records {
		if existing.SellerPhone == rec.SellerPhone && existing.InvoiceNumber == num {
			return fmt.Errorf("invoice number %s already exists", num)
		}
	}
	rec.Sequence = seq
	rec.InvoiceNumber = num
	m.counters[key] = seq
	m.records = append(m.records, clone(rec))
	return nil
}

// nextLocked seeds a fresh counter from the records already stored
func (m *MemoryStore) nextLocked(key SequenceKey) int {
	if last, ok := m.counters[key]; ok {
		return last + 1
	}
	count := 0
	for _, r := range m.records {
		if r.SellerPhone != key.SellerPhone || r.PeriodMonth != key.Period.Month || r.PeriodYear != key.Period.Year {
			continue
		}
		if r.IsCreditNote() == (key.Kind == SequenceCreditNote) {
			count++
		}
	}
	return count + 1
}

// SetPDFURL implements Store
func (m *MemoryStore) SetPDFURL(ctx context.Context, id uuid.UUID, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.ID == id {
			r.PDFURL = url
			return nil
		}
	}
	return fmt.Errorf("record %s not found", id)
}

// FindByFragment implements Store
func (m *MemoryStore) FindByFragment(ctx context.Context, sellerPhone, fragment string) ([]*models.InvoiceRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	fragment = strings.ToUpper(fragment)
	var out []*models.InvoiceRecord
	for _, r := range m.records {
		if r.SellerPhone == sellerPhone && strings.Contains(strings.ToUpper(r.InvoiceNumber), fragment) {
			out = append(out, clone(r))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// VoidWithCreditNote implements Store
func (m *MemoryStore) VoidWithCreditNote(ctx context.Context, originalID uuid.UUID, cn *models.InvoiceRecord, key SequenceKey) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var original *models.InvoiceRecord
	for _, r := range m.records {
		if r.ID == originalID {
			original = r
			break
		}
	}
	if original == nil {
		return false, fmt.Errorf("record %s not found", originalID)
	}
	if original.Status != models.InvoiceStatusActive {
		return false, nil
	}

	now := cn.CreatedAt
	if now.IsZero() {
		now = time.Now()
	}
	seq := m.nextLocked(key)
	m.counters[key] = seq
	cn.Sequence = seq
	original.Status = models.InvoiceStatusCancelled
	original.CancelledAt = &now
	m.records = append(m.records, clone(cn))
	return true, nil
}

// ListByPeriod implements Store
func (m *MemoryStore) ListByPeriod(ctx context.Context, sellerPhone string, period Period) ([]*models.InvoiceRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*models.InvoiceRecord
	for _, r := range m.records {
		if r.SellerPhone == sellerPhone && r.PeriodMonth == period.Month && r.PeriodYear == period.Year {
			out = append(out, clone(r))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Get returns a copy of the record with the given number
func (m *MemoryStore) Get(sellerPhone, invoiceNumber string) (*models.InvoiceRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.SellerPhone == sellerPhone && r.InvoiceNumber == invoiceNumber {
			return clone(r), true
		}
	}
	return nil, false
}

// Seed inserts records as they are, counters untouched
func (m *MemoryStore) Seed(records ...*models.InvoiceRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		m.records = append(m.records, clone(r))
	}
}

func clone(r *models.InvoiceRecord) *models.InvoiceRecord {
	c := *r
	c.Items = append([]models.LineItem(nil), r.Items...)
	if r.CancelledAt != nil {
		t := *r.CancelledAt
		c.CancelledAt = &t
	}
	return &c
}
