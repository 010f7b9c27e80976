package cart

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmdirect/market/internal/domain/product"
)

// --- Mock implementations ---

type mockProductRepo struct {
	products map[int64]*product.Product
}

func (m *mockProductRepo) List(_ context.Context) ([]product.Product, error) { return nil, nil }

func (m *mockProductRepo) ListBySeller(_ context.Context, _ int64) ([]product.Product, error) {
	return nil, nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id int64) (*product.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return p, nil
}

func (m *mockProductRepo) Create(_ context.Context, _ *product.Product) (int64, error) {
	return 0, nil
}

func (m *mockProductRepo) Update(_ context.Context, _ *product.Product) error { return nil }

func (m *mockProductRepo) SetStatus(_ context.Context, _, _ int64, _ product.Status) error {
	return nil
}

type mockLineRepo struct {
	lines   map[[2]int64]Line
	deleted [][2]int64
}

func newMockLineRepo() *mockLineRepo {
	return &mockLineRepo{lines: make(map[[2]int64]Line)}
}

func (m *mockLineRepo) Get(_ context.Context, buyerID, productID int64) (*Line, error) {
	l, ok := m.lines[[2]int64{buyerID, productID}]
	if !ok {
		return nil, ErrLineNotFound
	}
	return &l, nil
}

func (m *mockLineRepo) Put(_ context.Context, l Line) error {
	m.lines[[2]int64{l.BuyerID, l.ProductID}] = l
	return nil
}

func (m *mockLineRepo) Delete(_ context.Context, buyerID, productID int64) error {
	key := [2]int64{buyerID, productID}
	m.deleted = append(m.deleted, key)
	delete(m.lines, key)
	return nil
}

func (m *mockLineRepo) ListDetails(_ context.Context, _ int64) ([]Detail, error) {
	return nil, nil
}

// --- Helpers ---

func newTestService(stock int, status product.Status) (*Service, *mockLineRepo) {
	products := &mockProductRepo{products: map[int64]*product.Product{
		10: {
			ID:       10,
			SellerID: 2,
			Name:     "Fresh Cassava Tubers",
			Price:    decimal.RequireFromString("15.50"),
			Unit:     "kg",
			Stock:    stock,
			Status:   status,
		},
	}}
	lines := newMockLineRepo()
	return NewService(products, lines), lines
}

// --- Tests ---

func TestAdd_NewLine(t *testing.T) {
	svc, lines := newTestService(500, product.StatusActive)

	err := svc.Add(context.Background(), 1, 10, 2)
	require.NoError(t, err)
	assert.Equal(t, Line{BuyerID: 1, ProductID: 10, Quantity: 2}, lines.lines[[2]int64{1, 10}])
}

func TestAdd_MergesQuantity(t *testing.T) {
	svc, lines := newTestService(500, product.StatusActive)

	require.NoError(t, svc.Add(context.Background(), 1, 10, 2))
	require.NoError(t, svc.Add(context.Background(), 1, 10, 3))
	assert.Equal(t, 5, lines.lines[[2]int64{1, 10}].Quantity)
}

func TestAdd_MergedQuantityExceedsStock(t *testing.T) {
	svc, lines := newTestService(4, product.StatusActive)

	require.NoError(t, svc.Add(context.Background(), 1, 10, 3))

	err := svc.Add(context.Background(), 1, 10, 2)
	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 5, stockErr.Requested, "bound applies to the merged quantity")
	assert.Equal(t, 4, stockErr.Available)
	assert.Equal(t, 3, lines.lines[[2]int64{1, 10}].Quantity, "existing line unchanged")
}

func TestAdd_InactiveProduct(t *testing.T) {
	svc, _ := newTestService(500, product.StatusInactive)

	err := svc.Add(context.Background(), 1, 10, 1)
	var unavailableErr *ProductUnavailableError
	require.ErrorAs(t, err, &unavailableErr)
	assert.Equal(t, int64(10), unavailableErr.ProductID)
}

func TestAdd_UnknownProduct(t *testing.T) {
	svc, _ := newTestService(500, product.StatusActive)

	err := svc.Add(context.Background(), 1, 99, 1)
	require.ErrorIs(t, err, product.ErrNotFound)
}

func TestAdd_NonPositiveQuantity(t *testing.T) {
	svc, _ := newTestService(500, product.StatusActive)

	require.ErrorIs(t, svc.Add(context.Background(), 1, 10, 0), ErrInvalidQuantity)
	require.ErrorIs(t, svc.Add(context.Background(), 1, 10, -1), ErrInvalidQuantity)
}

func TestUpdate_ReplacesQuantity(t *testing.T) {
	svc, lines := newTestService(500, product.StatusActive)

	require.NoError(t, svc.Add(context.Background(), 1, 10, 2))
	require.NoError(t, svc.Update(context.Background(), 1, 10, 7))
	assert.Equal(t, 7, lines.lines[[2]int64{1, 10}].Quantity, "update replaces, not merges")
}

func TestUpdate_ExceedsStock(t *testing.T) {
	svc, lines := newTestService(4, product.StatusActive)

	require.NoError(t, svc.Add(context.Background(), 1, 10, 2))

	err := svc.Update(context.Background(), 1, 10, 5)
	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 2, lines.lines[[2]int64{1, 10}].Quantity)
}

func TestUpdate_MissingLine(t *testing.T) {
	svc, _ := newTestService(500, product.StatusActive)

	err := svc.Update(context.Background(), 1, 10, 2)
	require.ErrorIs(t, err, ErrLineNotFound)
}

func TestRemove(t *testing.T) {
	svc, lines := newTestService(500, product.StatusActive)

	require.NoError(t, svc.Add(context.Background(), 1, 10, 2))
	require.NoError(t, svc.Remove(context.Background(), 1, 10))
	assert.Empty(t, lines.lines)

	// Removing an absent line is not an error.
	require.NoError(t, svc.Remove(context.Background(), 1, 10))
}

func TestCheckPurchasable(t *testing.T) {
	d := Detail{
		Line:        Line{ProductID: 10, Quantity: 3},
		ProductName: "Fresh Cassava Tubers",
		Stock:       3,
		Status:      product.StatusActive,
	}
	require.NoError(t, d.CheckPurchasable(), "quantity equal to stock is allowed")

	d.Quantity = 4
	var stockErr *InsufficientStockError
	require.ErrorAs(t, d.CheckPurchasable(), &stockErr)

	d.Quantity = 1
	d.Status = product.StatusInactive
	var unavailableErr *ProductUnavailableError
	require.ErrorAs(t, d.CheckPurchasable(), &unavailableErr)
}

func TestDetailSubtotal(t *testing.T) {
	d := Detail{
		Line:  Line{Quantity: 2},
		Price: decimal.RequireFromString("15.50"),
	}
	assert.True(t, decimal.RequireFromString("31.00").Equal(d.Subtotal()))
}
