package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/farmdirect/market/internal/domain/notification"
)

const (
	listNotificationsSQL = `SELECT id, seller_id, message, is_read, created_at
		FROM notifications WHERE seller_id = $1
		ORDER BY is_read ASC, created_at DESC`

	unreadNotificationCountSQL = `SELECT COUNT(*) FROM notifications
		WHERE seller_id = $1 AND is_read = FALSE`

	markNotificationReadSQL = `UPDATE notifications SET is_read = TRUE
		WHERE id = $1 AND seller_id = $2`

	markAllNotificationsReadSQL = `UPDATE notifications SET is_read = TRUE WHERE seller_id = $1`
)

var _ notification.Repository = (*NotificationRepository)(nil)

// NotificationRepository implements notification.Repository backed by
// PostgreSQL.
type NotificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository returns a NotificationRepository that uses the
// given pool.
func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

// ListBySeller returns the seller's notifications, unread first, newest first.
func (r *NotificationRepository) ListBySeller(ctx context.Context, sellerID int64) ([]notification.Notification, error) {
	rows, err := r.pool.Query(ctx, listNotificationsSQL, sellerID)
	if err != nil {
		return nil, fmt.Errorf("listing notifications for seller %d: %w", sellerID, err)
	}
	return pgx.CollectRows(rows, scanNotification)
}

// UnreadCount returns how many unread notifications the seller has.
func (r *NotificationRepository) UnreadCount(ctx context.Context, sellerID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, unreadNotificationCountSQL, sellerID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting unread notifications for seller %d: %w", sellerID, err)
	}
	return count, nil
}

// MarkRead flags one notification as read, scoped to the owning seller.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, sellerID int64) error {
	_, err := r.pool.Exec(ctx, markNotificationReadSQL, id, sellerID)
	if err != nil {
		return fmt.Errorf("marking notification %d read: %w", id, err)
	}
	return nil
}

// MarkAllRead flags every notification of the seller as read.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, sellerID int64) error {
	_, err := r.pool.Exec(ctx, markAllNotificationsReadSQL, sellerID)
	if err != nil {
		return fmt.Errorf("marking notifications read for seller %d: %w", sellerID, err)
	}
	return nil
}

func scanNotification(row pgx.CollectableRow) (notification.Notification, error) {
	var n notification.Notification
	err := row.Scan(&n.ID, &n.SellerID, &n.Message, &n.Read, &n.CreatedAt)
	return n, err
}
