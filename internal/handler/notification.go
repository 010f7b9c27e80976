package handler

import (
	"net/http"
	"strconv"

	"github.com/go-faster/jx"

	"github.com/farmdirect/market/internal/domain/auth"
)

// ListNotifications returns the seller's notifications with the unread count.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	notifications, err := h.notifications.ListBySeller(r.Context(), id.UserID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	unread, err := h.notifications.UnreadCount(r.Context(), id.UserID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("unread")
	e.Int(unread)
	e.FieldStart("notifications")
	e.ArrStart()
	for i := range notifications {
		n := &notifications[i]
		e.ObjStart()
		e.FieldStart("id")
		e.Int64(n.ID)
		e.FieldStart("message")
		e.Str(n.Message)
		e.FieldStart("read")
		e.Bool(n.Read)
		e.FieldStart("created_at")
		e.Str(n.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"))
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
	writeJSON(w, http.StatusOK, &e)
}

// MarkNotificationRead flags one notification as read, scoped to the caller.
func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	notificationID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid notification id")
		return
	}

	if err := h.notifications.MarkRead(r.Context(), notificationID, id.UserID); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MarkAllNotificationsRead flags all of the caller's notifications as read.
func (h *Handler) MarkAllNotificationsRead(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	if err := h.notifications.MarkAllRead(r.Context(), id.UserID); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
