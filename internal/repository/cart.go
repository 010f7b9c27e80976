package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/farmdirect/market/internal/domain/cart"
)

const (
	getCartLineSQL = `SELECT buyer_id, product_id, quantity
		FROM cart_lines WHERE buyer_id = $1 AND product_id = $2`

	putCartLineSQL = `INSERT INTO cart_lines (buyer_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (buyer_id, product_id) DO UPDATE SET quantity = EXCLUDED.quantity`

	deleteCartLineSQL = `DELETE FROM cart_lines WHERE buyer_id = $1 AND product_id = $2`

	listCartDetailsSQL = `SELECT c.buyer_id, c.product_id, c.quantity,
			p.name, p.unit, p.price, p.stock, p.seller_id, p.status
		FROM cart_lines c
		JOIN products p ON p.id = c.product_id
		WHERE c.buyer_id = $1
		ORDER BY c.created_at, c.product_id`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// Get returns the buyer's line for a product, or cart.ErrLineNotFound.
func (r *CartRepository) Get(ctx context.Context, buyerID, productID int64) (*cart.Line, error) {
	var l cart.Line
	err := r.pool.QueryRow(ctx, getCartLineSQL, buyerID, productID).
		Scan(&l.BuyerID, &l.ProductID, &l.Quantity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrLineNotFound
		}
		return nil, fmt.Errorf("getting cart line: %w", err)
	}
	return &l, nil
}

// Put inserts the line or replaces the quantity of an existing one.
func (r *CartRepository) Put(ctx context.Context, l cart.Line) error {
	_, err := r.pool.Exec(ctx, putCartLineSQL, l.BuyerID, l.ProductID, l.Quantity)
	if err != nil {
		return fmt.Errorf("putting cart line: %w", err)
	}
	return nil
}

// Delete removes the buyer's line for a product. Deleting a missing line is
// not an error.
func (r *CartRepository) Delete(ctx context.Context, buyerID, productID int64) error {
	_, err := r.pool.Exec(ctx, deleteCartLineSQL, buyerID, productID)
	if err != nil {
		return fmt.Errorf("deleting cart line: %w", err)
	}
	return nil
}

// ListDetails returns the buyer's cart lines joined with live product state.
func (r *CartRepository) ListDetails(ctx context.Context, buyerID int64) ([]cart.Detail, error) {
	rows, err := r.pool.Query(ctx, listCartDetailsSQL, buyerID)
	if err != nil {
		return nil, fmt.Errorf("listing cart for buyer %d: %w", buyerID, err)
	}
	return pgx.CollectRows(rows, scanCartDetail)
}

func scanCartDetail(row pgx.CollectableRow) (cart.Detail, error) {
	var d cart.Detail
	err := row.Scan(
		&d.BuyerID, &d.ProductID, &d.Quantity,
		&d.ProductName, &d.Unit, &d.Price, &d.Stock, &d.SellerID, &d.Status,
	)
	return d, err
}
