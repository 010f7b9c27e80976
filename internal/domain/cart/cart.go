package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/farmdirect/market/internal/domain/product"
)

// ErrLineNotFound is returned when a (buyer, product) cart line does not exist.
var ErrLineNotFound = errors.New("cart line not found")

// Line is a buyer's selection of one product. At most one line exists per
// (buyer, product) pair.
type Line struct {
	BuyerID   int64
	ProductID int64
	Quantity  int
}

// Detail is a cart line joined with the live state of its product. It is the
// input both for cart rendering and for checkout validation.
type Detail struct {
	Line
	ProductName string
	Unit        string
	Price       decimal.Decimal
	Stock       int
	SellerID    int64
	Status      product.Status
}

// Subtotal returns price multiplied by the line quantity.
func (d *Detail) Subtotal() decimal.Decimal {
	return d.Price.Mul(decimal.NewFromInt(int64(d.Quantity)))
}

// Repository defines persistence operations for cart lines.
type Repository interface {
	Get(ctx context.Context, buyerID, productID int64) (*Line, error)
	Put(ctx context.Context, l Line) error
	Delete(ctx context.Context, buyerID, productID int64) error
	ListDetails(ctx context.Context, buyerID int64) ([]Detail, error)
}
