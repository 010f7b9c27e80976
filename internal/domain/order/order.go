package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested order does not exist.
var ErrNotFound = errors.New("order not found")

// Status enumerates the lifecycle states of an order.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// transitions is the closed set of permitted status changes. Delivered and
// cancelled are terminal.
var transitions = map[Status][]Status{
	StatusPending: {StatusPaid, StatusCancelled},
	StatusPaid:    {StatusDelivered},
}

// Valid reports whether s is a known order status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether the transition s -> next is permitted.
func (s Status) CanTransitionTo(next Status) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// DeliveryArea is one of the fixed set of areas the marketplace delivers to.
type DeliveryArea string

// DeliveryAreas lists every supported delivery area.
var DeliveryAreas = []DeliveryArea{
	"Central Business District",
	"North Industrial Park",
	"Riverside Estates",
	"Lakeside Heights",
	"Market Square Area",
	"Green Valley Farm Zone",
}

// Valid reports whether a is a supported delivery area.
func (a DeliveryArea) Valid() bool {
	for _, known := range DeliveryAreas {
		if a == known {
			return true
		}
	}
	return false
}

// PaymentMethod is one of the fixed set of supported payment methods.
type PaymentMethod string

const (
	PaymentMobileMoney PaymentMethod = "mobile_money"
	PaymentCreditCard  PaymentMethod = "credit_card"
)

// Valid reports whether m is a supported payment method.
func (m PaymentMethod) Valid() bool {
	return m == PaymentMobileMoney || m == PaymentCreditCard
}

// Order records a completed purchase. It is immutable after creation except
// for Status, which only administrators transition.
type Order struct {
	ID             int64
	BuyerID        int64
	Total          decimal.Decimal
	DeliveryArea   DeliveryArea
	PaymentMethod  PaymentMethod
	Status         Status
	IdempotencyKey string
	CreatedAt      time.Time
}

// Line is the snapshot of one cart line at purchase time. Product name, unit
// and price are copied rather than referenced, so later catalog edits never
// alter historical orders.
type Line struct {
	ID          int64
	OrderID     int64
	ProductID   int64
	SellerID    int64
	ProductName string
	Price       decimal.Decimal
	Quantity    int
	Unit        string
}

// Subtotal returns price multiplied by quantity for this line.
func (l *Line) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Repository defines read operations for orders.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Order, error)
	ListByBuyer(ctx context.Context, buyerID int64) ([]Order, error)
	ListLines(ctx context.Context, orderID int64) ([]Line, error)
	// FindByIdempotencyKey returns the buyer's order previously created with
	// the given key, or ErrNotFound.
	FindByIdempotencyKey(ctx context.Context, buyerID int64, key string) (*Order, error)
}

// Tx is the set of storage operations available inside a single order
// transaction. Implementations run every call on the same database
// transaction; returning an error from the enclosing function discards all of
// them.
type Tx interface {
	CreateOrder(ctx context.Context, o *Order) (int64, error)
	CreateLine(ctx context.Context, l *Line) error
	// DecrementStock atomically subtracts quantity from the product's stock
	// only when enough stock remains. It reports false when the decrement
	// would go below zero, leaving the row unchanged.
	DecrementStock(ctx context.Context, productID int64, quantity int) (bool, error)
	IncrementStock(ctx context.Context, productID int64, quantity int) error
	ClearCart(ctx context.Context, buyerID int64) error
	CreateNotification(ctx context.Context, sellerID int64, message string) error
	// GetOrderForUpdate loads an order with a row lock held until the
	// transaction ends.
	GetOrderForUpdate(ctx context.Context, id int64) (*Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, status Status) error
	ListLines(ctx context.Context, orderID int64) ([]Line, error)
}

// TxManager runs a function within one atomic storage transaction.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}
