//go:build integration

package integration

import (
	"fmt"
	"net/http"
	"testing"
)

func TestCart_AddMergeUpdateRemove(t *testing.T) {
	clearCart(t, secondBuyerKey)
	defer clearCart(t, secondBuyerKey)
	cassava := findProduct(t, "Fresh Cassava Tubers")

	// Adding the same product twice merges quantities.
	for range 2 {
		resp := doRequest(t, http.MethodPost, "/api/cart", secondBuyerKey,
			cartLineRequest{ProductID: cassava.ID, Quantity: 2})
		resp.Body.Close()
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("add: expected 204, got %d", resp.StatusCode)
		}
	}

	listResp := doGetWithAuth(t, "/api/cart", secondBuyerKey)
	c := decodeJSON[cartResponse](t, listResp)
	listResp.Body.Close()
	if len(c.Lines) != 1 {
		t.Fatalf("lines: got %d, want 1", len(c.Lines))
	}
	if c.Lines[0].Quantity != 4 {
		t.Errorf("merged quantity: got %d, want 4", c.Lines[0].Quantity)
	}
	if want := 62.0; c.Lines[0].Subtotal != want {
		t.Errorf("subtotal: got %v, want %v", c.Lines[0].Subtotal, want)
	}

	// Update replaces the quantity outright.
	upd := doRequest(t, http.MethodPut, "/api/cart", secondBuyerKey,
		cartLineRequest{ProductID: cassava.ID, Quantity: 1})
	upd.Body.Close()
	if upd.StatusCode != http.StatusNoContent {
		t.Fatalf("update: expected 204, got %d", upd.StatusCode)
	}

	listResp = doGetWithAuth(t, "/api/cart", secondBuyerKey)
	c = decodeJSON[cartResponse](t, listResp)
	listResp.Body.Close()
	if c.Lines[0].Quantity != 1 {
		t.Errorf("updated quantity: got %d, want 1", c.Lines[0].Quantity)
	}

	del := doRequest(t, http.MethodDelete, fmt.Sprintf("/api/cart/%d", cassava.ID), secondBuyerKey, nil)
	del.Body.Close()
	if del.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", del.StatusCode)
	}

	listResp = doGetWithAuth(t, "/api/cart", secondBuyerKey)
	c = decodeJSON[cartResponse](t, listResp)
	listResp.Body.Close()
	if len(c.Lines) != 0 {
		t.Errorf("cart not empty after delete: %d lines", len(c.Lines))
	}
}

func TestCart_UpdateMissingLine(t *testing.T) {
	clearCart(t, secondBuyerKey)
	tomatoes := findProduct(t, "Fresh Tomatoes")

	resp := doRequest(t, http.MethodPut, "/api/cart", secondBuyerKey,
		cartLineRequest{ProductID: tomatoes.ID, Quantity: 1})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestCart_UnknownProduct(t *testing.T) {
	resp := doRequest(t, http.MethodPost, "/api/cart", secondBuyerKey,
		cartLineRequest{ProductID: 999999, Quantity: 1})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestCart_ZeroQuantity(t *testing.T) {
	cassava := findProduct(t, "Fresh Cassava Tubers")

	resp := doRequest(t, http.MethodPost, "/api/cart", secondBuyerKey,
		cartLineRequest{ProductID: cassava.ID, Quantity: 0})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}
