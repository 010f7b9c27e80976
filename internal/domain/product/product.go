package product

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Status enumerates the listing states of a product.
type Status string

const (
	// StatusActive marks a product as purchasable.
	StatusActive Status = "active"
	// StatusInactive hides a product from the catalog and blocks purchases.
	StatusInactive Status = "inactive"
)

// Valid reports whether s is a known product status.
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

// Product represents a catalog item listed by a seller.
type Product struct {
	ID          int64
	SellerID    int64
	Name        string
	Category    string
	Price       decimal.Decimal
	Unit        string
	Description string
	Stock       int
	Status      Status
	CreatedAt   time.Time
}

// Available reports whether the product can currently be purchased.
func (p *Product) Available() bool {
	return p.Status == StatusActive
}

// Repository defines persistence operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	ListBySeller(ctx context.Context, sellerID int64) ([]Product, error)
	GetByID(ctx context.Context, id int64) (*Product, error)
	Create(ctx context.Context, p *Product) (int64, error)
	Update(ctx context.Context, p *Product) error
	SetStatus(ctx context.Context, id, sellerID int64, status Status) error
}
