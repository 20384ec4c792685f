package discount

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caseloft/store-service/internal/catalog"
)

// mockProductSource is an in-memory ProductSource for sweep tests.
type mockProductSource struct {
	mu       sync.Mutex
	products map[string]catalog.Product
	listErr  error
	failIDs  map[string]bool
	writes   int
}

func newMockProductSource() *mockProductSource {
	return &mockProductSource{
		products: make(map[string]catalog.Product),
		failIDs:  make(map[string]bool),
	}
}

func (m *mockProductSource) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []catalog.Product
	for _, p := range m.products {
		out = append(out, p)
	}
	return out, nil
}

func (m *mockProductSource) UpdateDiscount(ctx context.Context, id string, discountedPrice int64, applied string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if m.failIDs[id] {
		return errors.New("write refused")
	}
	p := m.products[id]
	p.DiscountedPrice = &discountedPrice
	p.DiscountApplied = applied
	m.products[id] = p
	return nil
}

func (m *mockProductSource) add(p catalog.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.ID] = p
}

func (m *mockProductSource) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

func (m *mockProductSource) get(id string) catalog.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[id]
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func salePrice(v int64) *int64 { return &v }

var sweepNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func TestSweepAppliesDiscount(t *testing.T) {
	source := newMockProductSource()
	source.add(catalog.Product{
		ID: "prd_1", Price: 10000, DiscountApplied: "Y", DiscountRate: 20,
		DiscountedPrice: salePrice(10000),
	})

	r := NewReconciler(source, zerolog.Nop(), WithClock(fixedClock(sweepNow)))
	updated, err := r.Sweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, updated)
	require.NotNil(t, source.get("prd_1").DiscountedPrice)
	assert.Equal(t, int64(8000), *source.get("prd_1").DiscountedPrice)
	assert.Equal(t, "Y", source.get("prd_1").DiscountApplied)
}

func TestSweepRevertsExpiredDiscount(t *testing.T) {
	source := newMockProductSource()
	source.add(catalog.Product{
		ID: "prd_1", Price: 10000, DiscountApplied: "Y", DiscountRate: 20,
		DiscountedPrice: salePrice(8000),
		DiscountStartDate: "2026-01-01T00:00:00Z", DiscountEndDate: "2026-01-31T00:00:00Z",
	})

	r := NewReconciler(source, zerolog.Nop(), WithClock(fixedClock(sweepNow)))
	updated, err := r.Sweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, updated)
	require.NotNil(t, source.get("prd_1").DiscountedPrice)
	assert.Equal(t, int64(10000), *source.get("prd_1").DiscountedPrice)
	assert.Equal(t, "N", source.get("prd_1").DiscountApplied)
}

func TestSweepIdempotent(t *testing.T) {
	source := newMockProductSource()
	source.add(catalog.Product{
		ID: "prd_1", Price: 10000, DiscountApplied: "Y", DiscountRate: 20,
		DiscountedPrice: salePrice(10000),
	})
	source.add(catalog.Product{
		ID: "prd_2", Price: 5000, DiscountApplied: "N", DiscountedPrice: salePrice(5000),
	})
	// A full discount stores a sale price of 0, which must read as a real
	// value and not as a never-reconciled row.
	source.add(catalog.Product{
		ID: "prd_free", Price: 5000, DiscountApplied: "Y", DiscountRate: 100,
	})

	r := NewReconciler(source, zerolog.Nop(), WithClock(fixedClock(sweepNow)))

	updated, err := r.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, updated)
	require.NotNil(t, source.get("prd_free").DiscountedPrice)
	assert.Equal(t, int64(0), *source.get("prd_free").DiscountedPrice)

	// Second sweep over now-consistent data must write nothing.
	before := source.writeCount()
	updated, err = r.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, updated)
	assert.Equal(t, before, source.writeCount())
}

func TestSweepFailSoft(t *testing.T) {
	source := newMockProductSource()
	source.add(catalog.Product{
		ID: "prd_bad", Price: 10000, DiscountApplied: "Y", DiscountRate: 10,
		DiscountedPrice: salePrice(10000),
	})
	source.add(catalog.Product{
		ID: "prd_ok", Price: 10000, DiscountApplied: "Y", DiscountRate: 30,
		DiscountedPrice: salePrice(10000),
	})
	source.failIDs["prd_bad"] = true

	r := NewReconciler(source, zerolog.Nop(), WithClock(fixedClock(sweepNow)))
	updated, err := r.Sweep(context.Background())

	require.NoError(t, err, "a failed write must not fail the sweep")
	assert.Equal(t, 1, updated)
	require.NotNil(t, source.get("prd_ok").DiscountedPrice)
	assert.Equal(t, int64(7000), *source.get("prd_ok").DiscountedPrice)
}

func TestSweepDegradesWithoutStore(t *testing.T) {
	r := NewReconciler(nil, zerolog.Nop())
	updated, err := r.Sweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, updated)
}

func TestSweepDegradesOnListFailure(t *testing.T) {
	source := newMockProductSource()
	source.listErr = errors.New("connection refused")

	r := NewReconciler(source, zerolog.Nop())
	updated, err := r.Sweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, updated)
}

func TestSweepNeverReconciledRowFallsBackToPrice(t *testing.T) {
	// Rows created before discount bookkeeping carry a NULL sale price; the
	// comparison treats that as "equal to price", so an N product that has
	// never been reconciled is left alone.
	source := newMockProductSource()
	source.add(catalog.Product{
		ID: "prd_legacy", Price: 10000, DiscountApplied: "N",
	})

	r := NewReconciler(source, zerolog.Nop(), WithClock(fixedClock(sweepNow)))
	updated, err := r.Sweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, updated)
}
