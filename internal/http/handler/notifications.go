package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"gorm.io/gorm"

	"remindd/internal/auth"
	"remindd/internal/notify"
)

type NotificationsHandler struct {
	DB *gorm.DB
}

type notificationItem struct {
	ID               uint64     `json:"id"`
	NotificationType string     `json:"notification_type"`
	Subject          string     `json:"subject"`
	Status           string     `json:"status"`
	TaskID           *uint64    `json:"task_id,omitempty"`
	IsReminder       bool       `json:"is_reminder"`
	SentAt           *time.Time `json:"sent_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// List returns the caller's notification history, newest first.
func (h *NotificationsHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	limit := queryInt(r, "limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	var logs []notify.EmailNotificationLog
	err := h.DB.WithContext(r.Context()).
		Where("recipient_id = ?", uid).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&logs).Error
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	items := make([]notificationItem, 0, len(logs))
	for _, l := range logs {
		items = append(items, notificationItem{
			ID:               l.ID,
			NotificationType: l.NotificationType,
			Subject:          l.Subject,
			Status:           l.Status,
			TaskID:           l.TaskID,
			IsReminder:       l.IsReminder,
			SentAt:           l.SentAt,
			CreatedAt:        l.CreatedAt,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"notifications": items,
	})
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
