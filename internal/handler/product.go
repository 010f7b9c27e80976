package handler

import (
	"net/http"
	"strconv"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/farmdirect/market/internal/domain/auth"
	"github.com/farmdirect/market/internal/domain/product"
)

// ListProducts returns the active catalog.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	var e jx.Encoder
	e.ArrStart()
	for i := range products {
		encodeProduct(&e, &products[i])
	}
	e.ArrEnd()
	writeJSON(w, http.StatusOK, &e)
}

// GetProduct returns one product by ID.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	p, err := h.products.GetByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	var e jx.Encoder
	encodeProduct(&e, p)
	writeJSON(w, http.StatusOK, &e)
}

type productRequest struct {
	Name        string
	Category    string
	Price       decimal.Decimal
	Unit        string
	Description string
	Stock       int
}

func decodeProductRequest(r *http.Request) (*productRequest, error) {
	var req productRequest
	d := jx.Decode(r.Body, 4096)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "name":
			req.Name, err = d.Str()
		case "category":
			req.Category, err = d.Str()
		case "price":
			var num jx.Num
			if num, err = d.Num(); err == nil {
				req.Price, err = decimal.NewFromString(num.String())
			}
		case "unit":
			req.Unit, err = d.Str()
		case "description":
			req.Description, err = d.Str()
		case "stock":
			req.Stock, err = d.Int()
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		return nil, err
	}
	return &req, nil
}

// CreateProduct creates a listing owned by the authenticated seller.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	req, err := decodeProductRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Unit == "" || req.Price.IsNegative() || req.Stock < 0 {
		writeError(w, http.StatusBadRequest, "name, unit, non-negative price and stock are required")
		return
	}

	p := &product.Product{
		SellerID:    id.UserID,
		Name:        req.Name,
		Category:    req.Category,
		Price:       req.Price,
		Unit:        req.Unit,
		Description: req.Description,
		Stock:       req.Stock,
		Status:      product.StatusActive,
	}
	newID, err := h.products.Create(r.Context(), p)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	p.ID = newID

	var e jx.Encoder
	encodeProduct(&e, p)
	writeJSON(w, http.StatusCreated, &e)
}

// UpdateProduct updates a listing. The repository scopes the write to the
// owning seller, so updating someone else's product reports not found.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	productID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	req, err := decodeProductRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Unit == "" || req.Price.IsNegative() || req.Stock < 0 {
		writeError(w, http.StatusBadRequest, "name, unit, non-negative price and stock are required")
		return
	}

	p := &product.Product{
		ID:          productID,
		SellerID:    id.UserID,
		Name:        req.Name,
		Category:    req.Category,
		Price:       req.Price,
		Unit:        req.Unit,
		Description: req.Description,
		Stock:       req.Stock,
	}
	if err := h.products.Update(r.Context(), p); err != nil {
		writeDomainError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListOwnProducts returns the seller's listings, including inactive ones.
func (h *Handler) ListOwnProducts(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	products, err := h.products.ListBySeller(r.Context(), id.UserID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	var e jx.Encoder
	e.ArrStart()
	for i := range products {
		encodeProduct(&e, &products[i])
	}
	e.ArrEnd()
	writeJSON(w, http.StatusOK, &e)
}

// DeactivateProduct pulls a listing from the catalog without deleting it, so
// order lines that snapshot it keep a valid reference.
func (h *Handler) DeactivateProduct(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	productID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	if err := h.products.SetStatus(r.Context(), productID, id.UserID, product.StatusInactive); err != nil {
		writeDomainError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
