package handler

import (
	"net/http"
	"strconv"

	"github.com/go-faster/jx"

	"github.com/farmdirect/market/internal/domain/auth"
)

type cartLineRequest struct {
	ProductID int64
	Quantity  int
}

func decodeCartLineRequest(r *http.Request) (*cartLineRequest, error) {
	var req cartLineRequest
	d := jx.Decode(r.Body, 1024)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "product_id":
			req.ProductID, err = d.Int64()
		case "quantity":
			req.Quantity, err = d.Int()
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		return nil, err
	}
	return &req, nil
}

// ListCart returns the buyer's cart lines joined with live product state.
func (h *Handler) ListCart(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	details, err := h.carts.List(r.Context(), id.UserID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("lines")
	e.ArrStart()
	for i := range details {
		encodeCartDetail(&e, &details[i])
	}
	e.ArrEnd()
	e.ObjEnd()
	writeJSON(w, http.StatusOK, &e)
}

// AddToCart merges a quantity into the buyer's cart, bounded by stock.
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	req, err := decodeCartLineRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.carts.Add(r.Context(), id.UserID, req.ProductID, req.Quantity); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateCartLine replaces the quantity of an existing cart line.
func (h *Handler) UpdateCartLine(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	req, err := decodeCartLineRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.carts.Update(r.Context(), id.UserID, req.ProductID, req.Quantity); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveCartLine deletes one cart line unconditionally.
func (h *Handler) RemoveCartLine(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	productID, err := strconv.ParseInt(r.PathValue("productID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	if err := h.carts.Remove(r.Context(), id.UserID, productID); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
