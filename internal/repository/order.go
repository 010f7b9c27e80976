package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/farmdirect/market/internal/domain/order"
)

const (
	orderColumns = `id, buyer_id, total, delivery_area, payment_method, status,
		COALESCE(idempotency_key, ''), created_at`

	getOrderByIDSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	listOrdersByBuyerSQL = `SELECT ` + orderColumns + `
		FROM orders WHERE buyer_id = $1 ORDER BY created_at DESC, id DESC`

	listOrderLinesSQL = `SELECT id, order_id, product_id, seller_id, product_name, price, quantity, unit
		FROM order_lines WHERE order_id = $1 ORDER BY id`

	findOrderByIdempotencyKeySQL = `SELECT ` + orderColumns + `
		FROM orders WHERE buyer_id = $1 AND idempotency_key = $2`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements the read side of order.Repository backed by
// PostgreSQL. All writes go through TxManager.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// GetByID returns a single order by its identifier.
func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %d: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %d: %w", id, err)
	}
	return &o, nil
}

// ListByBuyer returns the buyer's orders, newest first.
func (r *OrderRepository) ListByBuyer(ctx context.Context, buyerID int64) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByBuyerSQL, buyerID)
	if err != nil {
		return nil, fmt.Errorf("listing orders for buyer %d: %w", buyerID, err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// ListLines returns the order's line snapshots.
func (r *OrderRepository) ListLines(ctx context.Context, orderID int64) ([]order.Line, error) {
	rows, err := r.pool.Query(ctx, listOrderLinesSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("listing lines for order %d: %w", orderID, err)
	}
	return pgx.CollectRows(rows, scanOrderLine)
}

// FindByIdempotencyKey returns the buyer's order created with the given key,
// or order.ErrNotFound.
func (r *OrderRepository) FindByIdempotencyKey(ctx context.Context, buyerID int64, key string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, findOrderByIdempotencyKeySQL, buyerID, key)
	if err != nil {
		return nil, fmt.Errorf("finding order by idempotency key: %w", err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("finding order by idempotency key: %w", err)
	}
	return &o, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var o order.Order
	err := row.Scan(
		&o.ID, &o.BuyerID, &o.Total, &o.DeliveryArea,
		&o.PaymentMethod, &o.Status, &o.IdempotencyKey, &o.CreatedAt,
	)
	return o, err
}

func scanOrderLine(row pgx.CollectableRow) (order.Line, error) {
	var l order.Line
	err := row.Scan(
		&l.ID, &l.OrderID, &l.ProductID, &l.SellerID,
		&l.ProductName, &l.Price, &l.Quantity, &l.Unit,
	)
	return l, err
}
