package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"remindd/internal/auth"
	"remindd/internal/notify"
)

type PrefsHandler struct {
	Prefs *notify.PreferenceStore
}

type prefsPayload struct {
	EmailEnabled bool `json:"email_enabled"`

	ThreeDayReminder     bool `json:"three_day_reminder"`
	OneDayReminder       bool `json:"one_day_reminder"`
	SameDayReminder      bool `json:"same_day_reminder"`
	HighPriorityReminder bool `json:"high_priority_reminder"`

	TaskAssignedEmail  bool `json:"task_assigned_email"`
	TaskCompletedEmail bool `json:"task_completed_email"`
	TaskOverdueEmail   bool `json:"task_overdue_email"`

	WeekendDelivery bool `json:"weekend_delivery"`

	MaxRemindersPerDay  int `json:"max_reminders_per_day"`
	MinReminderGapHours int `json:"min_reminder_gap_hours"`

	DailyDigestEnabled bool   `json:"daily_digest_enabled"`
	DigestTime         string `json:"digest_time"`
}

func toPayload(p notify.NotificationPreference) prefsPayload {
	return prefsPayload{
		EmailEnabled:         p.EmailEnabled,
		ThreeDayReminder:     p.ThreeDayReminder,
		OneDayReminder:       p.OneDayReminder,
		SameDayReminder:      p.SameDayReminder,
		HighPriorityReminder: p.HighPriorityReminder,
		TaskAssignedEmail:    p.TaskAssignedEmail,
		TaskCompletedEmail:   p.TaskCompletedEmail,
		TaskOverdueEmail:     p.TaskOverdueEmail,
		WeekendDelivery:      p.WeekendDelivery,
		MaxRemindersPerDay:   p.MaxRemindersPerDay,
		MinReminderGapHours:  p.MinReminderGapHours,
		DailyDigestEnabled:   p.DailyDigestEnabled,
		DigestTime:           p.DigestTime,
	}
}

func (h *PrefsHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	pref, err := h.Prefs.ForUser(r.Context(), uid)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toPayload(pref))
}

func (h *PrefsHandler) Update(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	pref, err := h.Prefs.ForUser(r.Context(), uid)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	// Decode over the current values so absent fields keep their setting.
	payload := toPayload(pref)
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if payload.MaxRemindersPerDay < 1 || payload.MaxRemindersPerDay > 20 {
		http.Error(w, "max_reminders_per_day out of range", http.StatusBadRequest)
		return
	}
	if payload.MinReminderGapHours < 0 || payload.MinReminderGapHours > 24 {
		http.Error(w, "min_reminder_gap_hours out of range", http.StatusBadRequest)
		return
	}
	if _, err := time.Parse("15:04", payload.DigestTime); err != nil {
		http.Error(w, "digest_time must be HH:MM", http.StatusBadRequest)
		return
	}

	pref.EmailEnabled = payload.EmailEnabled
	pref.ThreeDayReminder = payload.ThreeDayReminder
	pref.OneDayReminder = payload.OneDayReminder
	pref.SameDayReminder = payload.SameDayReminder
	pref.HighPriorityReminder = payload.HighPriorityReminder
	pref.TaskAssignedEmail = payload.TaskAssignedEmail
	pref.TaskCompletedEmail = payload.TaskCompletedEmail
	pref.TaskOverdueEmail = payload.TaskOverdueEmail
	pref.WeekendDelivery = payload.WeekendDelivery
	pref.MaxRemindersPerDay = payload.MaxRemindersPerDay
	pref.MinReminderGapHours = payload.MinReminderGapHours
	pref.DailyDigestEnabled = payload.DailyDigestEnabled
	pref.DigestTime = payload.DigestTime

	if err := h.Prefs.Save(r.Context(), &pref); err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toPayload(pref))
}
