package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"gorm.io/gorm"

	"remindd/internal/notify"
)

// AdminHandler exposes manual triggers for the scheduled passes. These run
// inline (no queue hop) so the response can carry the pass outcome.
type AdminHandler struct {
	DB        *gorm.DB
	Evaluator *notify.Evaluator
	Service   *notify.Service
	Trackers  *notify.TrackerStore
	Log       *slog.Logger

	LogRetentionDays int
	Location         *time.Location
}

func (h *AdminHandler) RunDeadlinePass(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Evaluator.RunDeadlinePass(r.Context())
	if err != nil {
		http.Error(w, "pass failed", http.StatusInternalServerError)
		return
	}
	hp, err := h.Evaluator.RunHighPriorityPass(r.Context())
	if err != nil {
		http.Error(w, "pass failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"deadline":      stats,
		"high_priority": hp,
	})
}

func (h *AdminHandler) RunOverduePass(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Service.RunOverduePass(r.Context())
	if err != nil {
		http.Error(w, "pass failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(stats)
}

func (h *AdminHandler) RunDigestPass(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Service.RunDigestPass(r.Context())
	if err != nil {
		http.Error(w, "pass failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(stats)
}

func (h *AdminHandler) RunCleanup(w http.ResponseWriter, r *http.Request) {
	keepFailed := r.URL.Query().Get("keep_failed") == "true"
	if err := h.Service.RunCleanup(r.Context(), h.Trackers, h.LogRetentionDays, keepFailed); err != nil {
		http.Error(w, "cleanup failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	snap, err := notify.CollectSnapshot(r.Context(), h.DB, time.Now().In(h.Location))
	if err != nil {
		http.Error(w, "stats failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(snap)
}
