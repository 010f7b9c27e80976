package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/farmdirect/market/internal/domain/cart"
	"github.com/farmdirect/market/internal/domain/order"
	"github.com/farmdirect/market/internal/domain/product"
)

// writeJSON writes the encoder's buffer as an application/json response.
func writeJSON(w http.ResponseWriter, status int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// writeError writes a {code, message} error envelope.
func writeError(w http.ResponseWriter, status int, message string) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("code")
	e.Int(status)
	e.FieldStart("message")
	e.Str(message)
	e.ObjEnd()
	writeJSON(w, status, &e)
}

// writeDomainError maps a domain error to an HTTP error envelope. Unmapped
// errors are logged and reported as a generic 500.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		stockErr       *cart.InsufficientStockError
		unavailableErr *cart.ProductUnavailableError
		transitionErr  *order.InvalidTransitionError
		checkoutErr    *order.CheckoutFailedError
	)

	switch {
	case errors.Is(err, order.ErrEmptyCart),
		errors.Is(err, order.ErrInvalidDeliveryArea),
		errors.Is(err, order.ErrInvalidPaymentMethod),
		errors.Is(err, cart.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, product.ErrNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, cart.ErrLineNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &stockErr), errors.As(err, &unavailableErr), errors.As(err, &transitionErr):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &checkoutErr):
		zctx.From(r.Context()).Error("checkout failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "checkout failed, please try again")
	default:
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// encodeProduct appends a product object to the encoder.
func encodeProduct(e *jx.Encoder, p *product.Product) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(p.ID)
	e.FieldStart("seller_id")
	e.Int64(p.SellerID)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("category")
	e.Str(p.Category)
	e.FieldStart("price")
	e.Raw([]byte(p.Price.StringFixed(2)))
	e.FieldStart("unit")
	e.Str(p.Unit)
	e.FieldStart("description")
	e.Str(p.Description)
	e.FieldStart("stock")
	e.Int(p.Stock)
	e.FieldStart("status")
	e.Str(string(p.Status))
	e.ObjEnd()
}

// encodeOrder appends an order object, with lines when non-nil.
func encodeOrder(e *jx.Encoder, o *order.Order, lines []order.Line) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(o.ID)
	e.FieldStart("buyer_id")
	e.Int64(o.BuyerID)
	e.FieldStart("total")
	e.Raw([]byte(o.Total.StringFixed(2)))
	e.FieldStart("delivery_area")
	e.Str(string(o.DeliveryArea))
	e.FieldStart("payment_method")
	e.Str(string(o.PaymentMethod))
	e.FieldStart("status")
	e.Str(string(o.Status))
	e.FieldStart("created_at")
	e.Str(o.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"))
	if lines != nil {
		e.FieldStart("lines")
		e.ArrStart()
		for i := range lines {
			encodeOrderLine(e, &lines[i])
		}
		e.ArrEnd()
	}
	e.ObjEnd()
}

func encodeOrderLine(e *jx.Encoder, l *order.Line) {
	e.ObjStart()
	e.FieldStart("product_id")
	e.Int64(l.ProductID)
	e.FieldStart("seller_id")
	e.Int64(l.SellerID)
	e.FieldStart("product_name")
	e.Str(l.ProductName)
	e.FieldStart("price")
	e.Raw([]byte(l.Price.StringFixed(2)))
	e.FieldStart("quantity")
	e.Int(l.Quantity)
	e.FieldStart("unit")
	e.Str(l.Unit)
	e.ObjEnd()
}

// encodeCartDetail appends a cart line with its live product state and
// subtotal.
func encodeCartDetail(e *jx.Encoder, d *cart.Detail) {
	e.ObjStart()
	e.FieldStart("product_id")
	e.Int64(d.ProductID)
	e.FieldStart("product_name")
	e.Str(d.ProductName)
	e.FieldStart("unit")
	e.Str(d.Unit)
	e.FieldStart("price")
	e.Raw([]byte(d.Price.StringFixed(2)))
	e.FieldStart("quantity")
	e.Int(d.Quantity)
	e.FieldStart("stock")
	e.Int(d.Stock)
	e.FieldStart("subtotal")
	e.Raw([]byte(d.Subtotal().StringFixed(2)))
	e.ObjEnd()
}
