// Package handler exposes the marketplace domain over HTTP. Handlers decode
// JSON with go-faster/jx, delegate to the domain services, and map domain
// errors to an error envelope.
package handler

import (
	"net/http"

	"github.com/farmdirect/market/internal/domain/auth"
	"github.com/farmdirect/market/internal/domain/cart"
	"github.com/farmdirect/market/internal/domain/notification"
	"github.com/farmdirect/market/internal/domain/order"
	"github.com/farmdirect/market/internal/domain/product"
)

// Handler holds the domain dependencies for all API endpoints.
type Handler struct {
	products      product.Repository
	carts         *cart.Service
	orders        *order.Service
	notifications notification.Repository
	security      *Security
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	products product.Repository,
	carts *cart.Service,
	orders *order.Service,
	notifications notification.Repository,
	security *Security,
) *Handler {
	return &Handler{
		products:      products,
		carts:         carts,
		orders:        orders,
		notifications: notifications,
		security:      security,
	}
}

// Routes registers all API routes on mux under /api.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/products", h.ListProducts)
	mux.HandleFunc("GET /api/products/{id}", h.GetProduct)

	mux.Handle("POST /api/products", h.authed(auth.RoleSeller, h.CreateProduct))
	mux.Handle("PUT /api/products/{id}", h.authed(auth.RoleSeller, h.UpdateProduct))
	mux.Handle("DELETE /api/products/{id}", h.authed(auth.RoleSeller, h.DeactivateProduct))
	mux.Handle("GET /api/products/mine", h.authed(auth.RoleSeller, h.ListOwnProducts))

	mux.Handle("GET /api/cart", h.authed(auth.RoleBuyer, h.ListCart))
	mux.Handle("POST /api/cart", h.authed(auth.RoleBuyer, h.AddToCart))
	mux.Handle("PUT /api/cart", h.authed(auth.RoleBuyer, h.UpdateCartLine))
	mux.Handle("DELETE /api/cart/{productID}", h.authed(auth.RoleBuyer, h.RemoveCartLine))

	mux.Handle("POST /api/checkout", h.authed(auth.RoleBuyer, h.Checkout))
	mux.Handle("GET /api/orders", h.authed(auth.RoleBuyer, h.ListOrders))
	mux.Handle("GET /api/orders/{id}", h.authedAny(h.GetOrder))
	mux.Handle("PUT /api/orders/{id}/status", h.authed(auth.RoleAdmin, h.UpdateOrderStatus))

	mux.Handle("GET /api/notifications", h.authed(auth.RoleSeller, h.ListNotifications))
	mux.Handle("POST /api/notifications/{id}/read", h.authed(auth.RoleSeller, h.MarkNotificationRead))
	mux.Handle("POST /api/notifications/read-all", h.authed(auth.RoleSeller, h.MarkAllNotificationsRead))
}

// authed wraps an identity-aware handler with authentication and a role gate.
func (h *Handler) authed(role auth.Role, fn func(http.ResponseWriter, *http.Request, auth.Identity)) http.Handler {
	return h.security.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if id.Role != role {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		fn(w, r, id)
	}))
}

// authedAny wraps an identity-aware handler with authentication only; the
// handler itself decides who may see what.
func (h *Handler) authedAny(fn func(http.ResponseWriter, *http.Request, auth.Identity)) http.Handler {
	return h.security.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		fn(w, r, id)
	}))
}
