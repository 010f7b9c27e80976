package cart

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"

	"github.com/farmdirect/market/internal/domain/product"
)

// ErrInvalidQuantity is returned when a requested quantity is not positive.
var ErrInvalidQuantity = errors.New("quantity must be greater than 0")

// InsufficientStockError indicates a requested quantity exceeds the product's
// current stock.
type InsufficientStockError struct {
	ProductID   int64
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: requested %d, available %d",
		e.ProductName, e.Requested, e.Available)
}

// ProductUnavailableError indicates the product is no longer active.
type ProductUnavailableError struct {
	ProductID   int64
	ProductName string
}

func (e *ProductUnavailableError) Error() string {
	return fmt.Sprintf("product %q is unavailable", e.ProductName)
}

// CheckPurchasable verifies that the line's product is active and that the
// requested quantity does not exceed current stock. Checkout validation and
// cart mutation apply this exact rule, so a cart accepted here cannot fail
// checkout for a reason the buyer could have seen earlier.
func (d *Detail) CheckPurchasable() error {
	if d.Status != product.StatusActive {
		return &ProductUnavailableError{ProductID: d.ProductID, ProductName: d.ProductName}
	}
	if d.Quantity > d.Stock {
		return &InsufficientStockError{
			ProductID:   d.ProductID,
			ProductName: d.ProductName,
			Requested:   d.Quantity,
			Available:   d.Stock,
		}
	}
	return nil
}

// Service implements stock-bounded cart mutations for buyers.
type Service struct {
	products product.Repository
	lines    Repository
}

// NewService creates a cart Service with the required dependencies.
func NewService(products product.Repository, lines Repository) *Service {
	return &Service{products: products, lines: lines}
}

// Add merges quantity into the buyer's existing line for the product, or
// creates a new line. The resulting quantity must not exceed current stock.
func (s *Service) Add(ctx context.Context, buyerID, productID int64, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return err
	}

	total := quantity
	existing, err := s.lines.Get(ctx, buyerID, productID)
	switch {
	case err == nil:
		total += existing.Quantity
	case errors.Is(err, ErrLineNotFound):
	default:
		return errors.Wrap(err, "get cart line")
	}

	if err := s.checkBounds(p, total); err != nil {
		return err
	}

	return s.lines.Put(ctx, Line{BuyerID: buyerID, ProductID: productID, Quantity: total})
}

// Update replaces the quantity of an existing line, subject to the same stock
// bound as Add.
func (s *Service) Update(ctx context.Context, buyerID, productID int64, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	if _, err := s.lines.Get(ctx, buyerID, productID); err != nil {
		return err
	}

	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return err
	}

	if err := s.checkBounds(p, quantity); err != nil {
		return err
	}

	return s.lines.Put(ctx, Line{BuyerID: buyerID, ProductID: productID, Quantity: quantity})
}

// Remove deletes the buyer's line for the product unconditionally.
func (s *Service) Remove(ctx context.Context, buyerID, productID int64) error {
	return s.lines.Delete(ctx, buyerID, productID)
}

// List returns the buyer's cart lines joined with live product state.
func (s *Service) List(ctx context.Context, buyerID int64) ([]Detail, error) {
	return s.lines.ListDetails(ctx, buyerID)
}

func (s *Service) checkBounds(p *product.Product, quantity int) error {
	d := Detail{
		Line:        Line{ProductID: p.ID, Quantity: quantity},
		ProductName: p.Name,
		Stock:       p.Stock,
		Status:      p.Status,
	}
	return d.CheckPurchasable()
}
