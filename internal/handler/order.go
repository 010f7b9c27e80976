package handler

import (
	"net/http"
	"strconv"

	"github.com/go-faster/jx"

	"github.com/farmdirect/market/internal/domain/auth"
	"github.com/farmdirect/market/internal/domain/order"
)

// Checkout places an order for everything in the buyer's cart.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	var req order.CheckoutRequest
	req.BuyerID = id.UserID

	d := jx.Decode(r.Body, 1024)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		var (
			s   string
			err error
		)
		switch key {
		case "delivery_area":
			if s, err = d.Str(); err == nil {
				req.DeliveryArea = order.DeliveryArea(s)
			}
		case "payment_method":
			if s, err = d.Str(); err == nil {
				req.PaymentMethod = order.PaymentMethod(s)
			}
		case "idempotency_key":
			req.IdempotencyKey, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	placed, err := h.orders.Checkout(r.Context(), req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	var e jx.Encoder
	encodeOrder(&e, placed, nil)
	writeJSON(w, http.StatusCreated, &e)
}

// ListOrders returns the authenticated buyer's orders.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	orders, err := h.orders.ListByBuyer(r.Context(), id.UserID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	var e jx.Encoder
	e.ArrStart()
	for i := range orders {
		encodeOrder(&e, &orders[i], nil)
	}
	e.ArrEnd()
	writeJSON(w, http.StatusOK, &e)
}

// GetOrder returns one order with its lines. Buyers may only see their own
// orders; admins may see any.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	orderID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	o, lines, err := h.orders.Get(r.Context(), orderID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if id.Role != auth.RoleAdmin && o.BuyerID != id.UserID {
		writeError(w, http.StatusNotFound, order.ErrNotFound.Error())
		return
	}

	var e jx.Encoder
	encodeOrder(&e, o, lines)
	writeJSON(w, http.StatusOK, &e)
}

// UpdateOrderStatus transitions an order's status (admin only).
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request, _ auth.Identity) {
	orderID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var next order.Status
	d := jx.Decode(r.Body, 256)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "status" {
			return d.Skip()
		}
		s, err := d.Str()
		if err == nil {
			next = order.Status(s)
		}
		return err
	}); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !next.Valid() {
		writeError(w, http.StatusBadRequest, "unknown order status")
		return
	}

	if err := h.orders.UpdateStatus(r.Context(), orderID, next); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
