package order

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/farmdirect/market/internal/domain/cart"
)

// Sentinel errors for checkout validation.
var (
	ErrEmptyCart            = errors.New("cart is empty")
	ErrInvalidDeliveryArea  = errors.New("unsupported delivery area")
	ErrInvalidPaymentMethod = errors.New("unsupported payment method")
)

// InvalidTransitionError indicates a forbidden order status change.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition order from %s to %s", e.From, e.To)
}

// CheckoutFailedError indicates the checkout transaction failed at the
// storage layer. The rollback guarantees the cart and stock are unchanged;
// the caller may resubmit.
type CheckoutFailedError struct {
	Err error
}

func (e *CheckoutFailedError) Error() string {
	return "checkout failed: " + e.Err.Error()
}

func (e *CheckoutFailedError) Unwrap() error {
	return e.Err
}

// CheckoutRequest holds the input for placing an order. Identity is explicit;
// the service never consults ambient session state.
type CheckoutRequest struct {
	BuyerID       int64
	DeliveryArea  DeliveryArea
	PaymentMethod PaymentMethod
	// IdempotencyKey, when set, makes resubmission of an already placed
	// checkout return the original order instead of creating a second one.
	IdempotencyKey string
}

// seenKeysCapacity sizes the idempotency-key bloom filter. False positives
// only cost one extra SELECT; false negatives cannot occur.
const (
	seenKeysCapacity = 1_000_000
	seenKeysFPR      = 0.001
)

// Service is the checkout engine. It validates a buyer's cart against live
// stock, and atomically creates the order with its line snapshots, decrements
// inventory, fans out seller notifications, and clears the cart.
type Service struct {
	carts  cart.Repository
	orders Repository
	tx     TxManager
	now    func() time.Time

	// seenKeys is a negative cache over idempotency keys: when it reports
	// "definitely unseen", the dedup lookup inside the transaction is skipped.
	seenMu   sync.Mutex
	seenKeys *bloom.BloomFilter
}

// NewService creates an order Service with the required dependencies.
func NewService(carts cart.Repository, orders Repository, tx TxManager) *Service {
	return &Service{
		carts:    carts,
		orders:   orders,
		tx:       tx,
		now:      time.Now,
		seenKeys: bloom.NewWithEstimates(seenKeysCapacity, seenKeysFPR),
	}
}

// Checkout places an order for everything in the buyer's cart.
//
// Validation failures (empty cart, unavailable product, insufficient stock,
// bad delivery area or payment method) are reported before any write happens.
// All writes run in one transaction: any failure there rolls everything back
// and surfaces as CheckoutFailedError, so the cart and stock are exactly as
// they were before the call.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (*Order, error) {
	if !req.DeliveryArea.Valid() {
		return nil, ErrInvalidDeliveryArea
	}
	if !req.PaymentMethod.Valid() {
		return nil, ErrInvalidPaymentMethod
	}

	// Resubmission of an already placed checkout returns the original order.
	// This runs before cart validation: a successful checkout cleared the
	// cart, so a replay would otherwise see an empty one. The bloom filter
	// skips the lookup when the key is definitely unseen.
	if req.IdempotencyKey != "" && s.maybeSeen(req.BuyerID, req.IdempotencyKey) {
		existing, err := s.orders.FindByIdempotencyKey(ctx, req.BuyerID, req.IdempotencyKey)
		switch {
		case err == nil:
			return existing, nil
		case errors.Is(err, ErrNotFound):
		default:
			return nil, errors.Wrap(err, "idempotency lookup")
		}
	}

	details, err := s.carts.ListDetails(ctx, req.BuyerID)
	if err != nil {
		return nil, errors.Wrap(err, "load cart")
	}
	if len(details) == 0 {
		return nil, ErrEmptyCart
	}

	// Validate every line and compute the total from the prices read here.
	// The total is fixed at creation and never recalculated.
	total := decimal.Zero
	for i := range details {
		if err := details[i].CheckPurchasable(); err != nil {
			return nil, err
		}
		total = total.Add(details[i].Subtotal())
	}
	total = total.Round(2)

	var placed *Order
	err = s.tx.WithinTx(ctx, func(tx Tx) error {
		o := &Order{
			BuyerID:        req.BuyerID,
			Total:          total,
			DeliveryArea:   req.DeliveryArea,
			PaymentMethod:  req.PaymentMethod,
			Status:         StatusPending,
			IdempotencyKey: req.IdempotencyKey,
			CreatedAt:      s.now(),
		}
		id, err := tx.CreateOrder(ctx, o)
		if err != nil {
			return errors.Wrap(err, "create order")
		}
		o.ID = id

		for i := range details {
			d := &details[i]
			line := &Line{
				OrderID:     id,
				ProductID:   d.ProductID,
				SellerID:    d.SellerID,
				ProductName: d.ProductName,
				Price:       d.Price,
				Quantity:    d.Quantity,
				Unit:        d.Unit,
			}
			if err := tx.CreateLine(ctx, line); err != nil {
				return errors.Wrapf(err, "create line for product %d", d.ProductID)
			}

			// The conditional decrement is the authority on stock: a
			// concurrent checkout may have consumed stock since the
			// validation read above. Never clamp; fail the whole order.
			ok, err := tx.DecrementStock(ctx, d.ProductID, d.Quantity)
			if err != nil {
				return errors.Wrapf(err, "decrement stock for product %d", d.ProductID)
			}
			if !ok {
				return &cart.InsufficientStockError{
					ProductID:   d.ProductID,
					ProductName: d.ProductName,
					Requested:   d.Quantity,
					Available:   d.Stock,
				}
			}
		}

		if err := tx.ClearCart(ctx, req.BuyerID); err != nil {
			return errors.Wrap(err, "clear cart")
		}

		for _, n := range sellerNotifications(details) {
			if err := tx.CreateNotification(ctx, n.sellerID, n.message); err != nil {
				return errors.Wrapf(err, "notify seller %d", n.sellerID)
			}
		}

		placed = o
		return nil
	})
	if err != nil {
		var stockErr *cart.InsufficientStockError
		if errors.As(err, &stockErr) {
			return nil, stockErr
		}
		return nil, &CheckoutFailedError{Err: err}
	}

	if req.IdempotencyKey != "" {
		s.markSeen(req.BuyerID, req.IdempotencyKey)
	}

	return placed, nil
}

// UpdateStatus transitions an order to the next status, enforcing the closed
// transition table. Cancelling restores each line's stock in the same
// transaction.
func (s *Service) UpdateStatus(ctx context.Context, orderID int64, next Status) error {
	if !next.Valid() {
		return &InvalidTransitionError{To: next}
	}

	return s.tx.WithinTx(ctx, func(tx Tx) error {
		o, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if !o.Status.CanTransitionTo(next) {
			return &InvalidTransitionError{From: o.Status, To: next}
		}

		if err := tx.UpdateOrderStatus(ctx, orderID, next); err != nil {
			return errors.Wrap(err, "update status")
		}

		if next == StatusCancelled {
			lines, err := tx.ListLines(ctx, orderID)
			if err != nil {
				return errors.Wrap(err, "list lines")
			}
			for _, l := range lines {
				if err := tx.IncrementStock(ctx, l.ProductID, l.Quantity); err != nil {
					return errors.Wrapf(err, "restock product %d", l.ProductID)
				}
			}
		}
		return nil
	})
}

// Get returns an order with its line snapshots.
func (s *Service) Get(ctx context.Context, orderID int64) (*Order, []Line, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	lines, err := s.orders.ListLines(ctx, orderID)
	if err != nil {
		return nil, nil, errors.Wrap(err, "list lines")
	}
	return o, lines, nil
}

// ListByBuyer returns the buyer's orders, newest first.
func (s *Service) ListByBuyer(ctx context.Context, buyerID int64) ([]Order, error) {
	return s.orders.ListByBuyer(ctx, buyerID)
}

func (s *Service) maybeSeen(buyerID int64, key string) bool {
	s.seenMu.Lock()
	defer s.seenMu.Unlock()
	return s.seenKeys.TestString(idemKey(buyerID, key))
}

func (s *Service) markSeen(buyerID int64, key string) {
	s.seenMu.Lock()
	defer s.seenMu.Unlock()
	s.seenKeys.AddString(idemKey(buyerID, key))
}

func idemKey(buyerID int64, key string) string {
	return strconv.FormatInt(buyerID, 10) + ":" + key
}

type sellerNote struct {
	sellerID int64
	message  string
}

// sellerNotifications builds one message per distinct seller in the order,
// in first-appearance order, summarizing that seller's sold items, e.g.
// "New sale! 2 kg of Fresh Cassava Tubers purchased."
func sellerNotifications(details []cart.Detail) []sellerNote {
	parts := make(map[int64][]string)
	var sellers []int64
	for i := range details {
		d := &details[i]
		if _, ok := parts[d.SellerID]; !ok {
			sellers = append(sellers, d.SellerID)
		}
		parts[d.SellerID] = append(parts[d.SellerID],
			fmt.Sprintf("%d %s of %s", d.Quantity, d.Unit, d.ProductName))
	}

	notes := make([]sellerNote, len(sellers))
	for i, id := range sellers {
		notes[i] = sellerNote{
			sellerID: id,
			message:  "New sale! " + strings.Join(parts[id], ", ") + " purchased.",
		}
	}
	return notes
}
