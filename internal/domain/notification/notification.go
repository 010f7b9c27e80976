package notification

import (
	"context"
	"time"
)

// Notification informs a seller that some of their products were sold.
// Only the recipient may mark it read.
type Notification struct {
	ID        int64
	SellerID  int64
	Message   string
	Read      bool
	CreatedAt time.Time
}

// Repository defines persistence operations for seller notifications.
type Repository interface {
	ListBySeller(ctx context.Context, sellerID int64) ([]Notification, error)
	UnreadCount(ctx context.Context, sellerID int64) (int, error)
	// MarkRead flags a single notification as read. The update is scoped to
	// sellerID so a seller cannot touch another seller's notifications.
	MarkRead(ctx context.Context, id, sellerID int64) error
	MarkAllRead(ctx context.Context, sellerID int64) error
}
