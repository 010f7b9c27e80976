//go:build integration

package integration

import (
	"fmt"
	"net/http"
	"testing"
)

func TestCheckout_NoAuth(t *testing.T) {
	req := checkoutRequest{DeliveryArea: "Riverside Estates", PaymentMethod: "mobile_money"}
	resp := doRequest(t, http.MethodPost, "/api/checkout", "", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestCheckout_SellerForbidden(t *testing.T) {
	req := checkoutRequest{DeliveryArea: "Riverside Estates", PaymentMethod: "mobile_money"}
	resp := doRequest(t, http.MethodPost, "/api/checkout", sellerKey, req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestCheckout_EmptyCart(t *testing.T) {
	clearCart(t, secondBuyerKey)

	req := checkoutRequest{DeliveryArea: "Riverside Estates", PaymentMethod: "mobile_money"}
	resp := doRequest(t, http.MethodPost, "/api/checkout", secondBuyerKey, req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestCheckout_InvalidDeliveryArea(t *testing.T) {
	clearCart(t, buyerKey)
	cassava := findProduct(t, "Fresh Cassava Tubers")

	add := doRequest(t, http.MethodPost, "/api/cart", buyerKey, cartLineRequest{ProductID: cassava.ID, Quantity: 1})
	add.Body.Close()
	defer clearCart(t, buyerKey)

	req := checkoutRequest{DeliveryArea: "Atlantis", PaymentMethod: "mobile_money"}
	resp := doRequest(t, http.MethodPost, "/api/checkout", buyerKey, req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestCheckout_InsufficientStock(t *testing.T) {
	clearCart(t, buyerKey)
	rice := findProduct(t, "Long Grain White Rice")

	add := doRequest(t, http.MethodPost, "/api/cart", buyerKey,
		cartLineRequest{ProductID: rice.ID, Quantity: rice.Stock + 1})
	defer add.Body.Close()

	if add.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", add.StatusCode)
	}
}

func TestCheckout_Flow(t *testing.T) {
	clearCart(t, buyerKey)
	cassava := findProduct(t, "Fresh Cassava Tubers")
	stockBefore := cassava.Stock

	add := doRequest(t, http.MethodPost, "/api/cart", buyerKey, cartLineRequest{ProductID: cassava.ID, Quantity: 2})
	add.Body.Close()
	if add.StatusCode != http.StatusNoContent {
		t.Fatalf("add to cart: expected 204, got %d", add.StatusCode)
	}

	resp := doRequest(t, http.MethodPost, "/api/checkout", buyerKey,
		checkoutRequest{DeliveryArea: "Riverside Estates", PaymentMethod: "mobile_money"})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("checkout: expected 201, got %d", resp.StatusCode)
	}

	placed := decodeJSON[orderResponse](t, resp)
	if placed.Status != "pending" {
		t.Errorf("status: got %q, want pending", placed.Status)
	}
	if want := 31.0; placed.Total != want {
		t.Errorf("total: got %v, want %v", placed.Total, want)
	}

	// Stock decremented.
	after := findProduct(t, "Fresh Cassava Tubers")
	if after.Stock != stockBefore-2 {
		t.Errorf("stock: got %d, want %d", after.Stock, stockBefore-2)
	}

	// Cart cleared.
	cartResp := doGetWithAuth(t, "/api/cart", buyerKey)
	defer cartResp.Body.Close()
	c := decodeJSON[cartResponse](t, cartResp)
	if len(c.Lines) != 0 {
		t.Errorf("cart not cleared: %d lines remain", len(c.Lines))
	}

	// The order is visible to its buyer with line snapshots.
	orderResp := doGetWithAuth(t, fmt.Sprintf("/api/orders/%d", placed.ID), buyerKey)
	defer orderResp.Body.Close()
	if orderResp.StatusCode != http.StatusOK {
		t.Fatalf("get order: expected 200, got %d", orderResp.StatusCode)
	}
	full := decodeJSON[orderResponse](t, orderResp)
	if len(full.Lines) != 1 {
		t.Fatalf("lines: got %d, want 1", len(full.Lines))
	}
	if full.Lines[0].ProductName != "Fresh Cassava Tubers" {
		t.Errorf("line product: got %q", full.Lines[0].ProductName)
	}
	if full.Lines[0].Price != 15.5 {
		t.Errorf("line price: got %v, want 15.5", full.Lines[0].Price)
	}

	// Seller received exactly one notification for the sale.
	noteResp := doGetWithAuth(t, "/api/notifications", sellerKey)
	defer noteResp.Body.Close()
	notes := decodeJSON[notificationsResponse](t, noteResp)
	want := "New sale! 2 kg of Fresh Cassava Tubers purchased."
	found := false
	for _, n := range notes.Notifications {
		if n.Message == want {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("seller notification %q not found among %d notifications", want, len(notes.Notifications))
	}
}

func TestCheckout_IdempotencyKeyReplay(t *testing.T) {
	clearCart(t, buyerKey)
	beans := findProduct(t, "Brown Beans (Honey Beans)")

	add := doRequest(t, http.MethodPost, "/api/cart", buyerKey, cartLineRequest{ProductID: beans.ID, Quantity: 1})
	add.Body.Close()

	req := checkoutRequest{
		DeliveryArea:   "Market Square Area",
		PaymentMethod:  "credit_card",
		IdempotencyKey: "integration-replay-1",
	}

	first := doRequest(t, http.MethodPost, "/api/checkout", buyerKey, req)
	defer first.Body.Close()
	if first.StatusCode != http.StatusCreated {
		t.Fatalf("first checkout: expected 201, got %d", first.StatusCode)
	}
	placed := decodeJSON[orderResponse](t, first)

	second := doRequest(t, http.MethodPost, "/api/checkout", buyerKey, req)
	defer second.Body.Close()
	if second.StatusCode != http.StatusCreated {
		t.Fatalf("replay: expected 201, got %d", second.StatusCode)
	}
	replayed := decodeJSON[orderResponse](t, second)

	if replayed.ID != placed.ID {
		t.Errorf("replay created a new order: got %d, want %d", replayed.ID, placed.ID)
	}
}

func TestGetOrder_OtherBuyerHidden(t *testing.T) {
	clearCart(t, buyerKey)
	tomatoes := findProduct(t, "Fresh Tomatoes")

	add := doRequest(t, http.MethodPost, "/api/cart", buyerKey, cartLineRequest{ProductID: tomatoes.ID, Quantity: 1})
	add.Body.Close()

	resp := doRequest(t, http.MethodPost, "/api/checkout", buyerKey,
		checkoutRequest{DeliveryArea: "Lakeside Heights", PaymentMethod: "mobile_money"})
	defer resp.Body.Close()
	placed := decodeJSON[orderResponse](t, resp)

	other := doGetWithAuth(t, fmt.Sprintf("/api/orders/%d", placed.ID), secondBuyerKey)
	defer other.Body.Close()
	if other.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for other buyer, got %d", other.StatusCode)
	}

	admin := doGetWithAuth(t, fmt.Sprintf("/api/orders/%d", placed.ID), adminKey)
	defer admin.Body.Close()
	if admin.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", admin.StatusCode)
	}
}

func TestOrderStatus_Lifecycle(t *testing.T) {
	clearCart(t, buyerKey)
	plantains := findProduct(t, "Yellow Plantains")
	stockBefore := plantains.Stock

	add := doRequest(t, http.MethodPost, "/api/cart", buyerKey, cartLineRequest{ProductID: plantains.ID, Quantity: 3})
	add.Body.Close()

	resp := doRequest(t, http.MethodPost, "/api/checkout", buyerKey,
		checkoutRequest{DeliveryArea: "Central Business District", PaymentMethod: "mobile_money"})
	defer resp.Body.Close()
	placed := decodeJSON[orderResponse](t, resp)
	statusPath := fmt.Sprintf("/api/orders/%d/status", placed.ID)

	// Buyers cannot change status.
	forbidden := doRequest(t, http.MethodPut, statusPath, buyerKey, map[string]string{"status": "paid"})
	forbidden.Body.Close()
	if forbidden.StatusCode != http.StatusForbidden {
		t.Fatalf("buyer status change: expected 403, got %d", forbidden.StatusCode)
	}

	// pending -> delivered is not allowed.
	invalid := doRequest(t, http.MethodPut, statusPath, adminKey, map[string]string{"status": "delivered"})
	invalid.Body.Close()
	if invalid.StatusCode != http.StatusConflict {
		t.Fatalf("invalid transition: expected 409, got %d", invalid.StatusCode)
	}

	// pending -> cancelled restocks the sold quantity.
	cancel := doRequest(t, http.MethodPut, statusPath, adminKey, map[string]string{"status": "cancelled"})
	cancel.Body.Close()
	if cancel.StatusCode != http.StatusNoContent {
		t.Fatalf("cancel: expected 204, got %d", cancel.StatusCode)
	}

	after := findProduct(t, "Yellow Plantains")
	if after.Stock != stockBefore {
		t.Errorf("stock after cancel: got %d, want %d", after.Stock, stockBefore)
	}
}
