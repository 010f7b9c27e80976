package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/farmdirect/market/internal/domain/product"
)

const (
	productColumns = `id, seller_id, name, category, price, unit, description, stock, status, created_at`

	listProductsSQL = `SELECT ` + productColumns + `
		FROM products WHERE status = 'active' ORDER BY id`

	listSellerProductsSQL = `SELECT ` + productColumns + `
		FROM products WHERE seller_id = $1 ORDER BY id`

	getProductByIDSQL = `SELECT ` + productColumns + `
		FROM products WHERE id = $1`

	createProductSQL = `INSERT INTO products (seller_id, name, category, price, unit, description, stock, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`

	updateProductSQL = `UPDATE products
		SET name = $3, category = $4, price = $5, unit = $6, description = $7, stock = $8
		WHERE id = $1 AND seller_id = $2`

	setProductStatusSQL = `UPDATE products SET status = $3 WHERE id = $1 AND seller_id = $2`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns all active products ordered by ID.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// ListBySeller returns every product listed by the seller, active or not.
func (r *ProductRepository) ListBySeller(ctx context.Context, sellerID int64) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listSellerProductsSQL, sellerID)
	if err != nil {
		return nil, fmt.Errorf("listing seller %d products: %w", sellerID, err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %d: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %d: %w", id, err)
	}
	return &p, nil
}

// Create inserts a new product and returns its generated ID.
func (r *ProductRepository) Create(ctx context.Context, p *product.Product) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, createProductSQL,
		p.SellerID, p.Name, p.Category, p.Price, p.Unit, p.Description, p.Stock, p.Status,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("creating product %q: %w", p.Name, err)
	}
	return id, nil
}

// Update replaces the mutable fields of a product. The update is scoped to
// the owning seller.
func (r *ProductRepository) Update(ctx context.Context, p *product.Product) error {
	tag, err := r.pool.Exec(ctx, updateProductSQL,
		p.ID, p.SellerID, p.Name, p.Category, p.Price, p.Unit, p.Description, p.Stock,
	)
	if err != nil {
		return fmt.Errorf("updating product %d: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

// SetStatus activates or deactivates a product, scoped to the owning seller.
func (r *ProductRepository) SetStatus(ctx context.Context, id, sellerID int64, status product.Status) error {
	tag, err := r.pool.Exec(ctx, setProductStatusSQL, id, sellerID, status)
	if err != nil {
		return fmt.Errorf("setting product %d status: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(
		&p.ID, &p.SellerID, &p.Name, &p.Category, &p.Price,
		&p.Unit, &p.Description, &p.Stock, &p.Status, &p.CreatedAt,
	)
	return p, err
}
