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
	createOrderSQL = `INSERT INTO orders (buyer_id, total, delivery_area, payment_method, status, idempotency_key, created_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7) RETURNING id`

	createOrderLineSQL = `INSERT INTO order_lines (order_id, product_id, seller_id, product_name, price, quantity, unit)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	decrementStockSQL = `UPDATE products SET stock = stock - $2
		WHERE id = $1 AND stock >= $2`

	incrementStockSQL = `UPDATE products SET stock = stock + $2 WHERE id = $1`

	clearCartSQL = `DELETE FROM cart_lines WHERE buyer_id = $1`

	createNotificationSQL = `INSERT INTO notifications (seller_id, message) VALUES ($1, $2)`

	getOrderForUpdateSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`

	updateOrderStatusSQL = `UPDATE orders SET status = $2 WHERE id = $1`
)

var _ order.TxManager = (*TxManager)(nil)

// TxManager implements order.TxManager on a pgx connection pool. Each
// WithinTx call runs fn against a single database transaction and commits
// only when fn returns nil.
type TxManager struct {
	pool *pgxpool.Pool
}

// NewTxManager returns a TxManager that uses the given pool.
func NewTxManager(pool *pgxpool.Pool) *TxManager {
	return &TxManager{pool: pool}
}

// WithinTx begins a transaction, runs fn with a transaction-scoped order.Tx,
// and commits. Any error from fn (or a panic) rolls the transaction back.
func (m *TxManager) WithinTx(ctx context.Context, fn func(tx order.Tx) error) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	// Rollback after commit is a no-op.
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(&orderTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

var _ order.Tx = (*orderTx)(nil)

// orderTx implements order.Tx on one pgx transaction.
type orderTx struct {
	tx pgx.Tx
}

func (t *orderTx) CreateOrder(ctx context.Context, o *order.Order) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, createOrderSQL,
		o.BuyerID, o.Total, o.DeliveryArea, o.PaymentMethod, o.Status, o.IdempotencyKey, o.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("creating order: %w", err)
	}
	return id, nil
}

func (t *orderTx) CreateLine(ctx context.Context, l *order.Line) error {
	_, err := t.tx.Exec(ctx, createOrderLineSQL,
		l.OrderID, l.ProductID, l.SellerID, l.ProductName, l.Price, l.Quantity, l.Unit,
	)
	if err != nil {
		return fmt.Errorf("creating order line: %w", err)
	}
	return nil
}

// DecrementStock subtracts quantity from the product's stock in a single
// conditional UPDATE. Zero rows affected means the remaining stock was
// insufficient and the row is unchanged.
func (t *orderTx) DecrementStock(ctx context.Context, productID int64, quantity int) (bool, error) {
	tag, err := t.tx.Exec(ctx, decrementStockSQL, productID, quantity)
	if err != nil {
		return false, fmt.Errorf("decrementing stock for product %d: %w", productID, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (t *orderTx) IncrementStock(ctx context.Context, productID int64, quantity int) error {
	_, err := t.tx.Exec(ctx, incrementStockSQL, productID, quantity)
	if err != nil {
		return fmt.Errorf("incrementing stock for product %d: %w", productID, err)
	}
	return nil
}

func (t *orderTx) ClearCart(ctx context.Context, buyerID int64) error {
	_, err := t.tx.Exec(ctx, clearCartSQL, buyerID)
	if err != nil {
		return fmt.Errorf("clearing cart for buyer %d: %w", buyerID, err)
	}
	return nil
}

func (t *orderTx) CreateNotification(ctx context.Context, sellerID int64, message string) error {
	_, err := t.tx.Exec(ctx, createNotificationSQL, sellerID, message)
	if err != nil {
		return fmt.Errorf("creating notification for seller %d: %w", sellerID, err)
	}
	return nil
}

func (t *orderTx) GetOrderForUpdate(ctx context.Context, id int64) (*order.Order, error) {
	rows, err := t.tx.Query(ctx, getOrderForUpdateSQL, id)
	if err != nil {
		return nil, fmt.Errorf("locking order %d: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("locking order %d: %w", id, err)
	}
	return &o, nil
}

func (t *orderTx) UpdateOrderStatus(ctx context.Context, id int64, status order.Status) error {
	_, err := t.tx.Exec(ctx, updateOrderStatusSQL, id, status)
	if err != nil {
		return fmt.Errorf("updating order %d status: %w", id, err)
	}
	return nil
}

func (t *orderTx) ListLines(ctx context.Context, orderID int64) ([]order.Line, error) {
	rows, err := t.tx.Query(ctx, listOrderLinesSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("listing lines for order %d: %w", orderID, err)
	}
	return pgx.CollectRows(rows, scanOrderLine)
}
