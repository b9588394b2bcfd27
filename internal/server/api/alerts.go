package api

import (
	"net/http"
	"strconv"

	"github.com/ayusman/drivewatch/internal/alert"
	"github.com/ayusman/drivewatch/internal/store"
)

// MaxAlertsLimit caps the limit query parameter.
const MaxAlertsLimit = 500

// AlertsHandler serves the alert journal.
type AlertsHandler struct {
	store *store.Store
}

// NewAlertsHandler creates a new AlertsHandler with the given store.
func NewAlertsHandler(s *store.Store) *AlertsHandler {
	return &AlertsHandler{store: s}
}

type listAlertsResponse struct {
	Alerts []*store.Alert `json:"alerts"`
	Counts map[string]int `json:"counts"`
	Total  int            `json:"total"`
}

// ServeHTTP handles GET /api/alerts?category=drowsy&limit=20.
func (h *AlertsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	query := r.URL.Query()

	category := query.Get("category")
	if category != "" && !alert.Category(category).Valid() {
		writeError(w, http.StatusBadRequest, "Unknown category")
		return
	}

	limit := 50
	if raw := query.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = min(n, MaxAlertsLimit)
	}

	alerts, err := h.store.Alerts().List(category, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list alerts")
		return
	}
	if alerts == nil {
		alerts = []*store.Alert{}
	}

	counts, err := h.store.Alerts().CountByCategory()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count alerts")
		return
	}

	writeJSON(w, http.StatusOK, listAlertsResponse{
		Alerts: alerts,
		Counts: counts,
		Total:  len(alerts),
	})
}
